package paypal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
)

type gatewayStub struct {
	tokenCalls   int32
	lastAmount   string
	lastIdemKeys []string
	captureCode  int
	createCode   int
}

func (g *gatewayStub) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&g.tokenCalls, 1)
		if _, _, ok := r.BasicAuth(); !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "TEST-TOKEN",
			"expires_in":   3600,
		})
	})

	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		g.lastIdemKeys = append(g.lastIdemKeys, r.Header.Get("PayPal-Request-Id"))
		if auth := r.Header.Get("Authorization"); auth != "Bearer TEST-TOKEN" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		var payload struct {
			PurchaseUnits []struct {
				Amount struct {
					Value string `json:"value"`
				} `json:"amount"`
			} `json:"purchase_units"`
		}
		json.NewDecoder(r.Body).Decode(&payload)
		if len(payload.PurchaseUnits) > 0 {
			g.lastAmount = payload.PurchaseUnits[0].Amount.Value
		}

		if g.createCode != 0 {
			w.WriteHeader(g.createCode)
			w.Write([]byte(`{"name":"UNPROCESSABLE_ENTITY"}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"id": "GW-ORDER-42"})
	})

	mux.HandleFunc("/v2/checkout/orders/GW-ORDER-42/capture", func(w http.ResponseWriter, r *http.Request) {
		g.lastIdemKeys = append(g.lastIdemKeys, r.Header.Get("PayPal-Request-Id"))
		if g.captureCode != 0 {
			w.WriteHeader(g.captureCode)
			w.Write([]byte(`{"name":"INSTRUMENT_DECLINED"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"purchase_units": []map[string]any{
				{"payments": map[string]any{
					"captures": []map[string]string{{"id": "CAPTURE-7"}},
				}},
			},
		})
	})

	mux.HandleFunc("/v2/payments/captures/CAPTURE-7/refund", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "REFUND-9"})
	})

	return mux
}

func newTestClient(t *testing.T, stub *gatewayStub) *Client {
	t.Helper()
	srv := httptest.NewServer(stub.handler())
	t.Cleanup(srv.Close)
	return NewClientWith(srv.URL, "client-id", "client-secret", srv.Client())
}

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("sends two-decimal amount", func(t *testing.T) {
		stub := &gatewayStub{}
		c := newTestClient(t, stub)

		result, err := c.CreateOrder(ctx, decimal.RequireFromString("30.4"), "USD")
		if err != nil {
			t.Fatalf("CreateOrder: %v", err)
		}
		if !result.Success || result.ID != "GW-ORDER-42" {
			t.Errorf("result = %+v", result)
		}
		if stub.lastAmount != "30.40" {
			t.Errorf("montant envoyé = %q, attendu 30.40", stub.lastAmount)
		}
	})

	t.Run("business refusal is not an error", func(t *testing.T) {
		stub := &gatewayStub{createCode: http.StatusUnprocessableEntity}
		c := newTestClient(t, stub)

		result, err := c.CreateOrder(ctx, decimal.RequireFromString("10.00"), "USD")
		if err != nil {
			t.Fatalf("un refus métier ne doit pas être une error: %v", err)
		}
		if result.Success {
			t.Error("Success=true sur un refus 422")
		}
		if result.ErrorDetail == "" {
			t.Error("détail du refus absent")
		}
	})
}

func TestCaptureOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("extracts capture id", func(t *testing.T) {
		stub := &gatewayStub{}
		c := newTestClient(t, stub)

		result, err := c.CaptureOrder(ctx, "GW-ORDER-42")
		if err != nil {
			t.Fatalf("CaptureOrder: %v", err)
		}
		if !result.Success || result.ID != "CAPTURE-7" {
			t.Errorf("result = %+v", result)
		}
	})

	t.Run("fresh idempotency key per attempt", func(t *testing.T) {
		stub := &gatewayStub{}
		c := newTestClient(t, stub)

		c.CaptureOrder(ctx, "GW-ORDER-42")
		c.CaptureOrder(ctx, "GW-ORDER-42")

		if len(stub.lastIdemKeys) != 2 {
			t.Fatalf("clés reçues = %d, attendu 2", len(stub.lastIdemKeys))
		}
		if stub.lastIdemKeys[0] == "" || stub.lastIdemKeys[0] == stub.lastIdemKeys[1] {
			t.Error("chaque tentative doit porter une clé d'idempotence propre")
		}
	})
}

func TestRefundCapture(t *testing.T) {
	stub := &gatewayStub{}
	c := newTestClient(t, stub)

	result, err := c.RefundCapture(context.Background(), "CAPTURE-7", decimal.RequireFromString("30.49"))
	if err != nil {
		t.Fatalf("RefundCapture: %v", err)
	}
	if !result.Success || result.ID != "REFUND-9" {
		t.Errorf("result = %+v", result)
	}
}

func TestTokenHandling(t *testing.T) {
	ctx := context.Background()

	t.Run("token is cached across calls", func(t *testing.T) {
		stub := &gatewayStub{}
		c := newTestClient(t, stub)

		c.CreateOrder(ctx, decimal.RequireFromString("10.00"), "USD")
		c.CaptureOrder(ctx, "GW-ORDER-42")
		c.RefundCapture(ctx, "CAPTURE-7", decimal.RequireFromString("10.00"))

		if n := atomic.LoadInt32(&stub.tokenCalls); n != 1 {
			t.Errorf("requêtes de jeton = %d, attendu 1 (cache)", n)
		}
	})

	t.Run("missing credentials yield ErrAuth", func(t *testing.T) {
		c := NewClientWith("http://127.0.0.1:0", "", "", nil)
		if _, err := c.CreateOrder(ctx, decimal.RequireFromString("10.00"), "USD"); !errors.Is(err, ErrAuth) {
			t.Errorf("err = %v, attendu ErrAuth", err)
		}
	})

	t.Run("unreachable gateway yields ErrTransport", func(t *testing.T) {
		// port fermé : échec réseau immédiat
		c := NewClientWith("http://127.0.0.1:1", "id", "secret", nil)
		if _, err := c.CreateOrder(ctx, decimal.RequireFromString("10.00"), "USD"); !errors.Is(err, ErrTransport) {
			t.Errorf("err = %v, attendu ErrTransport", err)
		}
	})
}
