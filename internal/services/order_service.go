package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"vendora_back_end/internal/catalog"
	"vendora_back_end/internal/models"
	"vendora_back_end/internal/notify"
	"vendora_back_end/internal/paypal"
	"vendora_back_end/internal/store"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderService — moteur du cycle de vie des commandes. Chaque opération
// valide le statut courant, appelle la passerelle et/ou le registre escrow,
// persiste le nouvel état via écriture conditionnelle, puis met en file une
// notification (fire-and-forget).
type OrderService struct {
	store      store.Store
	catalog    catalog.ProductCatalog
	regions    catalog.RegionDirectory
	gateway    paypal.Gateway
	escrow     *EscrowService
	dispatcher *notify.Dispatcher
	currency   string
	now        func() time.Time
}

func NewOrderService(st store.Store, cat catalog.ProductCatalog, reg catalog.RegionDirectory,
	gw paypal.Gateway, esc *EscrowService, d *notify.Dispatcher) *OrderService {
	return &OrderService{
		store:      st,
		catalog:    cat,
		regions:    reg,
		gateway:    gw,
		escrow:     esc,
		dispatcher: d,
		currency:   "USD",
		now:        time.Now,
	}
}

func statusIn(s models.OrderStatus, allowed ...models.OrderStatus) bool {
	for _, a := range allowed {
		if s == a {
			return true
		}
	}
	return false
}

// CreateOrder valide les lignes, fige les prix catalogue, calcule frais de
// livraison et remise puis persiste la commande en attente de paiement.
// Aucun effet de bord : ni paiement ni escrow à ce stade.
func (s *OrderService) CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: la commande ne contient aucun article", ErrValidation)
	}

	var (
		items    []models.OrderItem
		sellerID string
		subtotal = decimal.Zero
	)

	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantité invalide pour %s", ErrValidation, item.ProductID)
		}

		product, err := s.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return nil, fmt.Errorf("%w: produit %s", catalog.ErrNotFound, item.ProductID)
			}
			return nil, err
		}

		if sellerID == "" {
			sellerID = product.SellerID
		} else if sellerID != product.SellerID {
			return nil, fmt.Errorf("%w: tous les articles doivent venir du même vendeur", ErrValidation)
		}

		// prix snapshot — jamais relu depuis le catalogue ensuite
		line := models.OrderItem{
			ProductID: item.ProductID,
			Price:     product.Price,
			Quantity:  item.Quantity,
		}
		items = append(items, line)
		subtotal = subtotal.Add(line.Subtotal())
	}

	shippingFee, err := s.regions.GetRegionCost(ctx, req.ShippingRegion)
	if err != nil {
		return nil, err
	}
	if IsFreeShipping(req.CouponCode) {
		shippingFee = decimal.Zero
	}

	discount := ApplyDiscount(subtotal, req.CouponCode)
	total := subtotal.Add(shippingFee).Sub(discount)

	order := &models.Order{
		ID:              gocql.TimeUUID(),
		BuyerID:         req.BuyerID,
		SellerID:        sellerID,
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		ShippingRegion:  req.ShippingRegion,
		CouponCode:      req.CouponCode,
		DiscountAmount:  discount,
		ShippingFee:     shippingFee,
		TotalAmount:     total,
		Status:          models.OrderPendingPayment,
		CreatedAt:       s.now().UTC(),
	}

	if err := s.store.InsertOrder(ctx, order); err != nil {
		return nil, err
	}

	log.Printf("🛒 Commande créée: %s (%s, total %s)", order.ID, order.BuyerID, total.StringFixed(2))
	return order, nil
}

// InitiatePayment crée un ordre passerelle pour le montant total.
// Refusé si un ordre passerelle non terminal est déjà en cours.
// En cas d'échec, le paiement est marqué failed mais la commande reste
// en attente de paiement — l'appelant peut ré-essayer.
func (s *OrderService) InitiatePayment(ctx context.Context, orderID gocql.UUID) (*models.Payment, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderPendingPayment {
		return nil, fmt.Errorf("%w: statut %s", ErrInvalidState, order.Status)
	}

	payment, err := s.store.GetPaymentByOrder(ctx, orderID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if payment.Outstanding() {
		return nil, ErrPaymentOutstanding
	}
	if payment == nil {
		payment = &models.Payment{
			ID:      gocql.TimeUUID(),
			OrderID: orderID,
		}
	}
	payment.TransactionID = uuid.NewString()

	result, gwErr := s.gateway.CreateOrder(ctx, order.TotalAmount, s.currency)
	if gwErr != nil || !result.Success {
		payment.Status = models.PaymentFailed
		if gwErr != nil {
			payment.LastError = gwErr.Error()
		} else {
			payment.LastError = result.ErrorDetail
		}
		if err := s.store.SavePayment(ctx, payment); err != nil {
			log.Printf("⚠️ Enregistrement paiement échoué pour %s: %v", orderID, err)
		}
		if gwErr != nil {
			return nil, gwErr
		}
		return nil, fmt.Errorf("%w: %s", ErrGatewayRejected, result.ErrorDetail)
	}

	payment.GatewayOrderID = result.ID
	payment.GatewayCaptureID = ""
	payment.Status = models.PaymentProcessing
	payment.LastError = ""

	if err := s.store.SavePayment(ctx, payment); err != nil {
		return nil, err
	}

	order.PaymentID = &payment.ID
	if err := s.store.UpdateOrderCAS(ctx, order, models.OrderPendingPayment); err != nil {
		return nil, err
	}

	log.Printf("💳 Paiement initié pour %s: ordre passerelle %s", orderID, result.ID)
	return payment, nil
}

// CompletePayment capture l'ordre passerelle correspondant. En cas de succès :
// paiement complété, commande payée, ouverture de l'escrow dimensionné sur le
// niveau de confiance du vendeur (évalué maintenant, à la capture), puis
// notification « paiement confirmé ». Un refus de capture est un cul-de-sac :
// payment_failed, pas de retry automatique.
func (s *OrderService) CompletePayment(ctx context.Context, orderID gocql.UUID, gatewayOrderID string) (*models.Order, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderPendingPayment {
		return nil, fmt.Errorf("%w: statut %s", ErrInvalidState, order.Status)
	}

	payment, err := s.store.GetPaymentByOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: aucun paiement initié", ErrInvalidState)
		}
		return nil, err
	}
	if payment.GatewayOrderID == "" || payment.GatewayOrderID != gatewayOrderID {
		return nil, fmt.Errorf("%w: ordre passerelle inconnu pour cette commande", ErrValidation)
	}
	if payment.Status == models.PaymentCompleted {
		return nil, fmt.Errorf("%w: paiement déjà capturé", ErrInvalidState)
	}

	result, gwErr := s.gateway.CaptureOrder(ctx, gatewayOrderID)
	if gwErr != nil {
		// échec transport : la capture n'a peut-être pas eu lieu, on trace
		// l'erreur sans condamner la commande
		payment.LastError = gwErr.Error()
		if err := s.store.SavePayment(ctx, payment); err != nil {
			log.Printf("⚠️ Enregistrement paiement échoué pour %s: %v", orderID, err)
		}
		return nil, gwErr
	}

	if !result.Success {
		// refus métier de la passerelle : cul-de-sac, nouvelle commande requise
		payment.Status = models.PaymentFailed
		payment.LastError = result.ErrorDetail
		if err := s.store.SavePayment(ctx, payment); err != nil {
			log.Printf("⚠️ Enregistrement paiement échoué pour %s: %v", orderID, err)
		}

		order.Status = models.OrderPaymentFailed
		if err := s.store.UpdateOrderCAS(ctx, order, models.OrderPendingPayment); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", ErrGatewayRejected, result.ErrorDetail)
	}

	processedAt := s.now().UTC()
	payment.Status = models.PaymentCompleted
	payment.GatewayCaptureID = result.ID
	payment.ProcessedAt = &processedAt
	payment.LastError = ""
	if err := s.store.SavePayment(ctx, payment); err != nil {
		return nil, err
	}

	order.Status = models.OrderPaid
	order.PaidAt = &processedAt
	order.PaymentID = &payment.ID
	if err := s.store.UpdateOrderCAS(ctx, order, models.OrderPendingPayment); err != nil {
		return nil, err
	}

	// période de garde dérivée du niveau de confiance du vendeur,
	// figée maintenant — à la capture
	holdDays := s.sellerHoldDays(ctx, order)
	escrow, err := s.escrow.OpenEscrow(ctx, order.ID, order.TotalAmount, holdDays)
	if err != nil {
		return nil, err
	}

	order.EscrowID = &escrow.ID
	if err := s.store.UpdateOrderCAS(ctx, order, models.OrderPaid); err != nil {
		log.Printf("⚠️ Liaison escrow non enregistrée pour %s: %v", orderID, err)
	}

	s.dispatcher.Enqueue(buyerStatusNotification(order, models.OrderPaid))
	log.Printf("✅ Paiement complété pour %s (capture %s)", orderID, result.ID)
	return order, nil
}

func (s *OrderService) sellerHoldDays(ctx context.Context, order *models.Order) int {
	if len(order.Items) > 0 {
		if product, err := s.catalog.GetProduct(ctx, order.Items[0].ProductID); err == nil {
			return product.TrustLevel.HoldDays()
		}
	}
	// vendeur illisible : période maximale par prudence
	return models.TrustNew.HoldDays()
}

// UpdateShipping enregistre le suivi transporteur, ajoute un événement à
// l'historique et passe la commande en expédiée à la première affectation
// d'un numéro de suivi.
func (s *OrderService) UpdateShipping(ctx context.Context, orderID gocql.UUID, trackingNumber, carrier string) (*models.Shipping, error) {
	if trackingNumber == "" || carrier == "" {
		return nil, fmt.Errorf("%w: numéro de suivi et transporteur requis", ErrValidation)
	}

	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !statusIn(order.Status, models.OrderPaid, models.OrderProcessing) {
		return nil, fmt.Errorf("%w: statut %s", ErrInvalidState, order.Status)
	}

	now := s.now().UTC()

	shipping, err := s.store.GetShippingByOrder(ctx, orderID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		shipping = &models.Shipping{
			ID:      gocql.TimeUUID(),
			OrderID: orderID,
			Status:  models.ShippingNotShipped,
		}
	}

	estimated := now.AddDate(0, 0, 7)
	shipping.TrackingNumber = trackingNumber
	shipping.Carrier = carrier
	shipping.Status = models.ShippingShipped
	shipping.ShippedAt = &now
	shipping.EstimatedDelivery = &estimated
	shipping.Events = append(shipping.Events, models.ShippingEvent{
		Timestamp:   now,
		Status:      string(models.ShippingShipped),
		Description: "Colis pris en charge par " + carrier,
	})

	if err := s.store.SaveShipping(ctx, shipping); err != nil {
		return nil, err
	}

	previous := order.Status
	order.Status = models.OrderShipped
	order.ShippedAt = &now
	order.ShippingID = &shipping.ID
	if err := s.store.UpdateOrderCAS(ctx, order, previous); err != nil {
		return nil, err
	}

	s.dispatcher.Enqueue(buyerStatusNotification(order, models.OrderShipped))
	log.Printf("📦 Commande %s expédiée via %s (%s)", orderID, carrier, trackingNumber)
	return shipping, nil
}

// MarkDelivered passe la commande en livrée. Le reversement de l'escrow n'est
// PAS déclenché ici : il reste calé sur la date de capture, indépendamment de
// la confirmation de livraison, pour préserver la fenêtre de litige.
func (s *OrderService) MarkDelivered(ctx context.Context, orderID gocql.UUID) (*models.Order, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderShipped {
		return nil, fmt.Errorf("%w: statut %s", ErrInvalidState, order.Status)
	}

	now := s.now().UTC()
	order.Status = models.OrderDelivered
	order.DeliveredAt = &now
	if err := s.store.UpdateOrderCAS(ctx, order, models.OrderShipped); err != nil {
		return nil, err
	}

	if shipping, err := s.store.GetShippingByOrder(ctx, orderID); err == nil {
		shipping.Status = models.ShippingDelivered
		shipping.ActualDelivery = &now
		shipping.Events = append(shipping.Events, models.ShippingEvent{
			Timestamp:   now,
			Status:      string(models.ShippingDelivered),
			Description: "Colis livré",
		})
		if err := s.store.SaveShipping(ctx, shipping); err != nil {
			log.Printf("⚠️ Mise à jour livraison échouée pour %s: %v", orderID, err)
		}
	}

	s.dispatcher.Enqueue(buyerStatusNotification(order, models.OrderDelivered))
	log.Printf("🎉 Commande %s livrée", orderID)
	return order, nil
}

// FileDispute ouvre un litige : le worker de reversement ignorera la commande
// tant que le litige est ouvert, même après la période de garde
func (s *OrderService) FileDispute(ctx context.Context, orderID gocql.UUID, reason string) (*models.Order, error) {
	if reason == "" {
		return nil, fmt.Errorf("%w: motif de litige requis", ErrValidation)
	}

	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !statusIn(order.Status, models.OrderPaid, models.OrderProcessing, models.OrderShipped, models.OrderDelivered) {
		return nil, fmt.Errorf("%w: statut %s", ErrInvalidState, order.Status)
	}

	previous := order.Status
	order.Status = models.OrderDisputed
	if err := s.store.UpdateOrderCAS(ctx, order, previous); err != nil {
		return nil, err
	}

	s.dispatcher.Enqueue(buyerStatusNotification(order, models.OrderDisputed))
	log.Printf("⚠️ Litige ouvert sur la commande %s: %s", orderID, reason)
	return order, nil
}

// RequestReturn dépose une demande de retour et gèle le reversement
func (s *OrderService) RequestReturn(ctx context.Context, orderID gocql.UUID, reason string) (*models.ReturnRequest, error) {
	if reason == "" {
		return nil, fmt.Errorf("%w: motif de retour requis", ErrValidation)
	}

	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !statusIn(order.Status, models.OrderPaid, models.OrderProcessing, models.OrderShipped, models.OrderDelivered) {
		return nil, fmt.Errorf("%w: statut %s", ErrInvalidState, order.Status)
	}

	request := &models.ReturnRequest{
		ID:          gocql.TimeUUID(),
		OrderID:     orderID,
		Reason:      reason,
		RequestedAt: s.now().UTC(),
	}
	if err := s.store.InsertReturnRequest(ctx, request); err != nil {
		return nil, err
	}

	previous := order.Status
	order.Status = models.OrderReturnRequested
	if err := s.store.UpdateOrderCAS(ctx, order, previous); err != nil {
		return nil, err
	}

	s.dispatcher.Enqueue(buyerStatusNotification(order, models.OrderReturnRequested))
	log.Printf("↩️ Demande de retour créée pour %s: %s", orderID, reason)
	return request, nil
}

// ProcessReturn traite une demande de retour. Approuvée → remboursement de la
// capture et commande retournée ; rejetée → la commande redevient livrée.
// La demande est terminale une fois traitée.
func (s *OrderService) ProcessReturn(ctx context.Context, orderID, requestID gocql.UUID, approve bool, comments string) (*models.ReturnRequest, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderReturnRequested {
		return nil, fmt.Errorf("%w: statut %s", ErrInvalidState, order.Status)
	}

	request, err := s.store.GetReturnRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: demande de retour inconnue", ErrNotFound)
		}
		return nil, err
	}
	if request.OrderID != orderID {
		return nil, fmt.Errorf("%w: la demande n'appartient pas à cette commande", ErrValidation)
	}
	if request.Processed() {
		return nil, fmt.Errorf("%w: demande déjà traitée", ErrInvalidState)
	}

	now := s.now().UTC()

	if !approve {
		request.ProcessedAt = &now
		request.IsApproved = false
		request.Comments = comments
		if err := s.store.UpdateReturnRequest(ctx, request); err != nil {
			return nil, err
		}

		order.Status = models.OrderDelivered
		if err := s.store.UpdateOrderCAS(ctx, order, models.OrderReturnRequested); err != nil {
			return nil, err
		}

		log.Printf("❌ Retour rejeté pour la commande %s", orderID)
		return request, nil
	}

	if err := s.refundCaptured(ctx, order, "retour approuvé: "+request.Reason); err != nil {
		return nil, err
	}

	request.ProcessedAt = &now
	request.IsApproved = true
	request.Comments = comments
	if err := s.store.UpdateReturnRequest(ctx, request); err != nil {
		return nil, err
	}

	order.Status = models.OrderReturned
	if err := s.store.UpdateOrderCAS(ctx, order, models.OrderReturnRequested); err != nil {
		return nil, err
	}

	s.dispatcher.Enqueue(buyerStatusNotification(order, models.OrderReturned))
	log.Printf("↩️ Retour approuvé et remboursé pour la commande %s", orderID)
	return request, nil
}

// CancelOrder annule une commande jamais capturée — aucun remboursement
// nécessaire puisque aucun fonds n'a été encaissé
func (s *OrderService) CancelOrder(ctx context.Context, orderID gocql.UUID, reason string) (*models.Order, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !statusIn(order.Status, models.OrderPendingPayment, models.OrderPaymentFailed) {
		return nil, fmt.Errorf("%w: statut %s", ErrInvalidState, order.Status)
	}

	now := s.now().UTC()
	previous := order.Status
	order.Status = models.OrderCancelled
	order.CancelledAt = &now
	order.CancellationReason = reason
	if err := s.store.UpdateOrderCAS(ctx, order, previous); err != nil {
		return nil, err
	}

	s.dispatcher.Enqueue(buyerStatusNotification(order, models.OrderCancelled))
	log.Printf("❌ Commande %s annulée: %s", orderID, reason)
	return order, nil
}

// RefundOrder rembourse la capture tant que l'escrow est encore en garde,
// puis clôt escrow, paiement et commande en remboursés
func (s *OrderService) RefundOrder(ctx context.Context, orderID gocql.UUID, reason string) (*models.Order, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !statusIn(order.Status, models.OrderPaid, models.OrderProcessing, models.OrderShipped,
		models.OrderDelivered, models.OrderDisputed) {
		return nil, fmt.Errorf("%w: statut %s", ErrInvalidState, order.Status)
	}

	if err := s.refundCaptured(ctx, order, reason); err != nil {
		return nil, err
	}

	previous := order.Status
	order.Status = models.OrderRefunded
	if err := s.store.UpdateOrderCAS(ctx, order, previous); err != nil {
		return nil, err
	}

	s.dispatcher.Enqueue(buyerStatusNotification(order, models.OrderRefunded))
	log.Printf("💰 Commande %s remboursée: %s", orderID, reason)
	return order, nil
}

// refundCaptured rembourse la capture passerelle puis clôt escrow et paiement.
// Exige un escrow encore en garde (pas de remboursement après reversement).
func (s *OrderService) refundCaptured(ctx context.Context, order *models.Order, reason string) error {
	escrow, err := s.store.GetEscrowByOrder(ctx, order.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: aucun escrow pour cette commande", ErrInvalidState)
		}
		return err
	}
	if escrow.Status != models.EscrowHeld {
		return fmt.Errorf("%w: fonds déjà reversés ou remboursés", ErrInvalidState)
	}

	payment, err := s.store.GetPaymentByOrder(ctx, order.ID)
	if err != nil {
		return err
	}
	if payment.GatewayCaptureID == "" {
		return fmt.Errorf("%w: aucune capture à rembourser", ErrInvalidState)
	}

	result, gwErr := s.gateway.RefundCapture(ctx, payment.GatewayCaptureID, order.TotalAmount)
	if gwErr != nil {
		return gwErr
	}
	if !result.Success {
		return fmt.Errorf("%w: %s", ErrGatewayRejected, result.ErrorDetail)
	}

	if err := s.escrow.RefundEscrow(ctx, order.ID, reason); err != nil {
		return err
	}

	payment.Status = models.PaymentRefunded
	if err := s.store.SavePayment(ctx, payment); err != nil {
		log.Printf("⚠️ Enregistrement paiement remboursé échoué pour %s: %v", order.ID, err)
	}
	return nil
}

// OrderDetail — vue agrégée pour la lecture externe
type OrderDetail struct {
	Order          *models.Order           `json:"order"`
	Payment        *models.Payment         `json:"payment,omitempty"`
	Shipping       *models.Shipping        `json:"shipping,omitempty"`
	Escrow         *models.Escrow          `json:"escrow,omitempty"`
	ReturnRequests []*models.ReturnRequest `json:"return_requests,omitempty"`
}

// GetOrderDetail agrège commande + dépendants via leurs identifiants
// (résolution par lookup, jamais de cycle d'objets)
func (s *OrderService) GetOrderDetail(ctx context.Context, orderID gocql.UUID) (*OrderDetail, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	detail := &OrderDetail{Order: order}

	if p, err := s.store.GetPaymentByOrder(ctx, orderID); err == nil {
		detail.Payment = p
	}
	if sh, err := s.store.GetShippingByOrder(ctx, orderID); err == nil {
		detail.Shipping = sh
	}
	if e, err := s.store.GetEscrowByOrder(ctx, orderID); err == nil {
		detail.Escrow = e
	}
	if rr, err := s.store.ListReturnRequestsByOrder(ctx, orderID); err == nil {
		detail.ReturnRequests = rr
	}
	return detail, nil
}

func (s *OrderService) getOrder(ctx context.Context, orderID gocql.UUID) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return order, nil
}
