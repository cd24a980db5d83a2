package orders

import (
	"errors"
	"log"
	"net/http"

	"vendora_back_end/internal/catalog"
	"vendora_back_end/internal/models"
	"vendora_back_end/internal/paypal"
	"vendora_back_end/internal/services"
	"vendora_back_end/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
)

// Handler expose le cycle de vie des commandes en HTTP
type Handler struct {
	orders *services.OrderService
}

func NewHandler(orders *services.OrderService) *Handler {
	return &Handler{orders: orders}
}

func parseOrderID(c *gin.Context) (gocql.UUID, bool) {
	id, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de commande invalide"})
		return gocql.UUID{}, false
	}
	return id, true
}

// writeError traduit les erreurs métier en statuts HTTP
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound), errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, catalog.ErrRegionNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidState), errors.Is(err, services.ErrPaymentOutstanding):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Commande modifiée entre-temps, ré-essayez"})
	case errors.Is(err, services.ErrGatewayRejected):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, paypal.ErrTransport), errors.Is(err, paypal.ErrAuth):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Passerelle de paiement indisponible"})
	default:
		log.Printf("❌ Erreur interne: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur interne"})
	}
}

// ✅ POST /api/orders — crée une commande en attente de paiement
func (h *Handler) CreateOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requête invalide: " + err.Error()})
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// GET /api/orders/:id — vue agrégée (commande + paiement + livraison + escrow)
func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}

	detail, err := h.orders.GetOrderDetail(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// 💳 POST /api/orders/:id/payment/initiate — crée l'ordre passerelle
func (h *Handler) InitiatePayment(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}

	payment, err := h.orders.InitiatePayment(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"payment_id":       payment.ID,
		"gateway_order_id": payment.GatewayOrderID,
		"status":           payment.Status,
	})
}

// ✅ POST /api/orders/:id/payment/complete — capture après approbation acheteur
func (h *Handler) CompletePayment(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}

	var req struct {
		GatewayOrderID string `json:"gateway_order_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "gateway_order_id requis"})
		return
	}

	order, err := h.orders.CompletePayment(c.Request.Context(), id, req.GatewayOrderID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// 📦 PUT /api/orders/:id/shipping — affecte le suivi transporteur
func (h *Handler) UpdateShipping(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}

	var req struct {
		TrackingNumber string `json:"tracking_number" binding:"required"`
		Carrier        string `json:"carrier" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tracking_number et carrier requis"})
		return
	}

	shipping, err := h.orders.UpdateShipping(c.Request.Context(), id, req.TrackingNumber, req.Carrier)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, shipping)
}

// 🎉 POST /api/orders/:id/delivered — confirme la réception
func (h *Handler) MarkDelivered(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}

	order, err := h.orders.MarkDelivered(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// ⚠️ POST /api/orders/:id/dispute — ouvre un litige et gèle le reversement
func (h *Handler) FileDispute(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Motif requis"})
		return
	}

	order, err := h.orders.FileDispute(c.Request.Context(), id, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// ↩️ POST /api/orders/:id/return — dépose une demande de retour
func (h *Handler) RequestReturn(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Motif requis"})
		return
	}

	request, err := h.orders.RequestReturn(c.Request.Context(), id, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, request)
}

// POST /api/orders/:id/return/:requestId/process — approuve ou rejette un retour
func (h *Handler) ProcessReturn(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}

	requestID, err := gocql.ParseUUID(c.Param("requestId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identifiant de demande invalide"})
		return
	}

	var req struct {
		Approve  *bool  `json:"approve" binding:"required"`
		Comments string `json:"comments"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Champ approve requis"})
		return
	}

	request, err := h.orders.ProcessReturn(c.Request.Context(), id, requestID, *req.Approve, req.Comments)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

// ❌ POST /api/orders/:id/cancel — annule une commande jamais capturée
func (h *Handler) CancelOrder(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)
	if req.Reason == "" {
		req.Reason = "annulée par l'acheteur"
	}

	order, err := h.orders.CancelOrder(c.Request.Context(), id, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// 💰 POST /api/orders/:id/refund — rembourse tant que l'escrow est en garde
func (h *Handler) RefundOrder(c *gin.Context) {
	id, ok := parseOrderID(c)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Motif requis"})
		return
	}

	order, err := h.orders.RefundOrder(c.Request.Context(), id, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
