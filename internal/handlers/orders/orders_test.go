package orders

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"vendora_back_end/internal/catalog"
	"vendora_back_end/internal/models"
	"vendora_back_end/internal/notify"
	"vendora_back_end/internal/services"
	"vendora_back_end/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/shopspring/decimal"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := store.NewMemoryStore()
	cat := catalog.NewStaticCatalog()
	cat.AddProduct(catalog.Product{
		ID: "prod-1", Price: decimal.RequireFromString("25.50"),
		SellerID: "seller-1", TrustLevel: models.TrustGold,
	})
	cat.AddRegion("europe", decimal.RequireFromString("4.99"))

	dispatcher := notify.NewDispatcher(notify.NewMemoryQueue(8))
	svc := services.NewOrderService(st, cat, cat, nil, services.NewEscrowService(st), dispatcher)

	r := gin.New()
	h := NewHandler(svc)
	r.POST("/orders", h.CreateOrder)
	r.GET("/orders/:id", h.GetOrder)
	r.POST("/orders/:id/cancel", h.CancelOrder)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encodage requête: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateOrderEndpoint(t *testing.T) {
	t.Run("valid request returns 201", func(t *testing.T) {
		r := newTestRouter(t)
		w := doJSON(t, r, http.MethodPost, "/orders", gin.H{
			"buyer_id":         "buyer-1",
			"shipping_address": "12 rue de la Paix, Paris",
			"shipping_region":  "Europe",
			"items":            []gin.H{{"product_id": "prod-1", "quantity": 2}},
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("code = %d, attendu 201 (%s)", w.Code, w.Body)
		}

		var order models.Order
		if err := json.Unmarshal(w.Body.Bytes(), &order); err != nil {
			t.Fatalf("décodage réponse: %v", err)
		}
		if order.Status != models.OrderPendingPayment {
			t.Errorf("statut = %s, attendu pending_payment", order.Status)
		}
		// 51.00 + 4.99
		if order.TotalAmount.StringFixed(2) != "55.99" {
			t.Errorf("total = %s, attendu 55.99", order.TotalAmount.StringFixed(2))
		}
	})

	t.Run("missing fields return 400", func(t *testing.T) {
		r := newTestRouter(t)
		w := doJSON(t, r, http.MethodPost, "/orders", gin.H{"buyer_id": "buyer-1"})
		if w.Code != http.StatusBadRequest {
			t.Errorf("code = %d, attendu 400", w.Code)
		}
	})

	t.Run("unknown region returns 400", func(t *testing.T) {
		r := newTestRouter(t)
		w := doJSON(t, r, http.MethodPost, "/orders", gin.H{
			"buyer_id":         "buyer-1",
			"shipping_address": "adresse",
			"shipping_region":  "atlantide",
			"items":            []gin.H{{"product_id": "prod-1", "quantity": 1}},
		})
		if w.Code != http.StatusBadRequest {
			t.Errorf("code = %d, attendu 400 (%s)", w.Code, w.Body)
		}
	})
}

func TestGetOrderEndpoint(t *testing.T) {
	t.Run("malformed id returns 400", func(t *testing.T) {
		r := newTestRouter(t)
		w := doJSON(t, r, http.MethodGet, "/orders/pas-un-uuid", nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("code = %d, attendu 400", w.Code)
		}
	})

	t.Run("unknown id returns 404", func(t *testing.T) {
		r := newTestRouter(t)
		w := doJSON(t, r, http.MethodGet, "/orders/"+gocql.TimeUUID().String(), nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("code = %d, attendu 404", w.Code)
		}
	})
}

func TestCancelOrderEndpoint(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/orders", gin.H{
		"buyer_id":         "buyer-1",
		"shipping_address": "adresse",
		"shipping_region":  "europe",
		"items":            []gin.H{{"product_id": "prod-1", "quantity": 1}},
	})
	var order models.Order
	json.Unmarshal(w.Body.Bytes(), &order)

	w = doJSON(t, r, http.MethodPost, "/orders/"+order.ID.String()+"/cancel", gin.H{"reason": "test"})
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d, attendu 200 (%s)", w.Code, w.Body)
	}

	// une deuxième annulation est un conflit d'état
	w = doJSON(t, r, http.MethodPost, "/orders/"+order.ID.String()+"/cancel", gin.H{"reason": "encore"})
	if w.Code != http.StatusConflict {
		t.Errorf("code = %d, attendu 409", w.Code)
	}
}
