package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vendora_back_end/internal/models"

	"github.com/gocql/gocql"
	"github.com/shopspring/decimal"
)

// ScyllaStore persiste les entités dans le keyspace commandes.
// Les montants sont stockés en texte (décimal fixe, jamais de float),
// les listes (items, events) en JSON.
// Les transitions de statut utilisent des LWT (`IF status = ?`) — c'est
// la discipline de recheck optimiste du cœur.
type ScyllaStore struct {
	session *gocql.Session
}

func NewScyllaStore(session *gocql.Session) *ScyllaStore {
	return &ScyllaStore{session: session}
}

// --- Helpers de sérialisation ---

func marshalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("sérialisation JSON: %w", err)
	}
	return string(b), nil
}

func parseAmount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func optTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func optUUID(u gocql.UUID) *gocql.UUID {
	var zero gocql.UUID
	if u == zero {
		return nil
	}
	return &u
}

func derefUUID(u *gocql.UUID) gocql.UUID {
	if u == nil {
		return gocql.UUID{}
	}
	return *u
}

// --- Commandes ---

const orderColumns = `buyer_id, seller_id, items, shipping_address, shipping_region,
	coupon_code, discount_amount, shipping_fee, total_amount, status,
	payment_id, shipping_id, escrow_id,
	created_at, paid_at, shipped_at, delivered_at, cancelled_at, cancellation_reason`

func (s *ScyllaStore) InsertOrder(ctx context.Context, o *models.Order) error {
	items, err := marshalJSON(o.Items)
	if err != nil {
		return err
	}

	return s.session.Query(`
		INSERT INTO orders (order_id, `+orderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, o.ID, o.BuyerID, o.SellerID, items, o.ShippingAddress, o.ShippingRegion,
		o.CouponCode, o.DiscountAmount.String(), o.ShippingFee.String(), o.TotalAmount.String(),
		string(o.Status), derefUUID(o.PaymentID), derefUUID(o.ShippingID), derefUUID(o.EscrowID),
		o.CreatedAt, derefTime(o.PaidAt), derefTime(o.ShippedAt), derefTime(o.DeliveredAt),
		derefTime(o.CancelledAt), o.CancellationReason,
	).WithContext(ctx).Exec()
}

func (s *ScyllaStore) scanOrder(scan func(dest ...any) error, id gocql.UUID) (*models.Order, error) {
	var (
		o                               models.Order
		items                           string
		discount, fee, total, status    string
		paymentID, shippingID, escrowID gocql.UUID
		paidAt, shippedAt, deliveredAt  time.Time
		cancelledAt                     time.Time
	)

	err := scan(&o.BuyerID, &o.SellerID, &items, &o.ShippingAddress, &o.ShippingRegion,
		&o.CouponCode, &discount, &fee, &total, &status,
		&paymentID, &shippingID, &escrowID,
		&o.CreatedAt, &paidAt, &shippedAt, &deliveredAt, &cancelledAt, &o.CancellationReason)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	o.ID = id
	o.DiscountAmount = parseAmount(discount)
	o.ShippingFee = parseAmount(fee)
	o.TotalAmount = parseAmount(total)
	o.Status = models.OrderStatus(status)
	o.PaymentID = optUUID(paymentID)
	o.ShippingID = optUUID(shippingID)
	o.EscrowID = optUUID(escrowID)
	o.PaidAt = optTime(paidAt)
	o.ShippedAt = optTime(shippedAt)
	o.DeliveredAt = optTime(deliveredAt)
	o.CancelledAt = optTime(cancelledAt)

	if items != "" {
		if err := json.Unmarshal([]byte(items), &o.Items); err != nil {
			return nil, fmt.Errorf("désérialisation items commande %s: %w", id, err)
		}
	}
	return &o, nil
}

func (s *ScyllaStore) GetOrder(ctx context.Context, id gocql.UUID) (*models.Order, error) {
	q := s.session.Query(`SELECT `+orderColumns+` FROM orders WHERE order_id = ?`, id).WithContext(ctx)
	return s.scanOrder(q.Scan, id)
}

// UpdateOrderCAS réécrit la commande avec une condition LWT sur le statut.
// Si la ligne a changé sous nos pieds, Scylla renvoie applied=false → ErrConflict.
func (s *ScyllaStore) UpdateOrderCAS(ctx context.Context, o *models.Order, expected models.OrderStatus) error {
	var prevStatus string

	applied, err := s.session.Query(`
		UPDATE orders SET
			status = ?, payment_id = ?, shipping_id = ?, escrow_id = ?,
			paid_at = ?, shipped_at = ?, delivered_at = ?, cancelled_at = ?,
			cancellation_reason = ?
		WHERE order_id = ?
		IF status = ?
	`, string(o.Status), derefUUID(o.PaymentID), derefUUID(o.ShippingID), derefUUID(o.EscrowID),
		derefTime(o.PaidAt), derefTime(o.ShippedAt), derefTime(o.DeliveredAt), derefTime(o.CancelledAt),
		o.CancellationReason,
		o.ID, string(expected),
	).WithContext(ctx).ScanCAS(&prevStatus)

	if err != nil {
		return err
	}
	if !applied {
		return ErrConflict
	}
	return nil
}

func (s *ScyllaStore) ListOrdersByStatus(ctx context.Context, status models.OrderStatus) ([]*models.Order, error) {
	iter := s.session.Query(`
		SELECT order_id, `+orderColumns+` FROM orders WHERE status = ? ALLOW FILTERING
	`, string(status)).WithContext(ctx).Iter()

	var orders []*models.Order
	for {
		var id gocql.UUID
		scanned := false
		o, err := s.scanOrder(func(dest ...any) error {
			all := append([]any{&id}, dest...)
			if !iter.Scan(all...) {
				return gocql.ErrNotFound
			}
			scanned = true
			return nil
		}, id)
		if err != nil || !scanned {
			break
		}
		o.ID = id
		orders = append(orders, o)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return orders, nil
}

// --- Paiements (1:1, clé = order_id, jamais supprimés) ---

func (s *ScyllaStore) SavePayment(ctx context.Context, p *models.Payment) error {
	return s.session.Query(`
		INSERT INTO payments_by_order (order_id, payment_id, transaction_id,
			gateway_order_id, gateway_capture_id, status, processed_at, last_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.OrderID, p.ID, p.TransactionID, p.GatewayOrderID, p.GatewayCaptureID,
		string(p.Status), derefTime(p.ProcessedAt), p.LastError,
	).WithContext(ctx).Exec()
}

func (s *ScyllaStore) GetPaymentByOrder(ctx context.Context, orderID gocql.UUID) (*models.Payment, error) {
	var (
		p           models.Payment
		status      string
		processedAt time.Time
	)

	err := s.session.Query(`
		SELECT payment_id, transaction_id, gateway_order_id, gateway_capture_id,
			status, processed_at, last_error
		FROM payments_by_order WHERE order_id = ?
	`, orderID).WithContext(ctx).Scan(&p.ID, &p.TransactionID, &p.GatewayOrderID,
		&p.GatewayCaptureID, &status, &processedAt, &p.LastError)

	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	p.OrderID = orderID
	p.Status = models.PaymentStatus(status)
	p.ProcessedAt = optTime(processedAt)
	return &p, nil
}

// --- Livraisons ---

func (s *ScyllaStore) SaveShipping(ctx context.Context, sh *models.Shipping) error {
	events, err := marshalJSON(sh.Events)
	if err != nil {
		return err
	}

	return s.session.Query(`
		INSERT INTO shipping_by_order (order_id, shipping_id, tracking_number, carrier,
			status, shipped_at, estimated_delivery, actual_delivery, events)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sh.OrderID, sh.ID, sh.TrackingNumber, sh.Carrier, string(sh.Status),
		derefTime(sh.ShippedAt), derefTime(sh.EstimatedDelivery), derefTime(sh.ActualDelivery), events,
	).WithContext(ctx).Exec()
}

func (s *ScyllaStore) GetShippingByOrder(ctx context.Context, orderID gocql.UUID) (*models.Shipping, error) {
	var (
		sh                           models.Shipping
		status, events               string
		shippedAt, estimated, actual time.Time
	)

	err := s.session.Query(`
		SELECT shipping_id, tracking_number, carrier, status,
			shipped_at, estimated_delivery, actual_delivery, events
		FROM shipping_by_order WHERE order_id = ?
	`, orderID).WithContext(ctx).Scan(&sh.ID, &sh.TrackingNumber, &sh.Carrier, &status,
		&shippedAt, &estimated, &actual, &events)

	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	sh.OrderID = orderID
	sh.Status = models.ShippingStatus(status)
	sh.ShippedAt = optTime(shippedAt)
	sh.EstimatedDelivery = optTime(estimated)
	sh.ActualDelivery = optTime(actual)

	if events != "" {
		if err := json.Unmarshal([]byte(events), &sh.Events); err != nil {
			return nil, fmt.Errorf("désérialisation events livraison %s: %w", orderID, err)
		}
	}
	return &sh, nil
}

// --- Escrows ---

func (s *ScyllaStore) InsertEscrow(ctx context.Context, e *models.Escrow) error {
	return s.session.Query(`
		INSERT INTO escrows_by_order (order_id, escrow_id, amount, status,
			hold_days, held_at, released_at, refund_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.OrderID, e.ID, e.Amount.String(), string(e.Status),
		e.HoldDays, e.HeldAt, derefTime(e.ReleasedAt), e.RefundReason,
	).WithContext(ctx).Exec()
}

func (s *ScyllaStore) scanEscrow(scan func(dest ...any) error, orderID gocql.UUID) (*models.Escrow, error) {
	var (
		e          models.Escrow
		amount     string
		status     string
		releasedAt time.Time
	)

	err := scan(&e.ID, &amount, &status, &e.HoldDays, &e.HeldAt, &releasedAt, &e.RefundReason)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	e.OrderID = orderID
	e.Amount = parseAmount(amount)
	e.Status = models.EscrowStatus(status)
	e.ReleasedAt = optTime(releasedAt)
	return &e, nil
}

func (s *ScyllaStore) GetEscrowByOrder(ctx context.Context, orderID gocql.UUID) (*models.Escrow, error) {
	q := s.session.Query(`
		SELECT escrow_id, amount, status, hold_days, held_at, released_at, refund_reason
		FROM escrows_by_order WHERE order_id = ?
	`, orderID).WithContext(ctx)
	return s.scanEscrow(q.Scan, orderID)
}

func (s *ScyllaStore) UpdateEscrowCAS(ctx context.Context, e *models.Escrow, expected models.EscrowStatus) error {
	var prevStatus string

	applied, err := s.session.Query(`
		UPDATE escrows_by_order SET status = ?, released_at = ?, refund_reason = ?
		WHERE order_id = ?
		IF status = ?
	`, string(e.Status), derefTime(e.ReleasedAt), e.RefundReason,
		e.OrderID, string(expected),
	).WithContext(ctx).ScanCAS(&prevStatus)

	if err != nil {
		return err
	}
	if !applied {
		return ErrConflict
	}
	return nil
}

// ListHeldEscrows ne sélectionne que les lignes encore en garde — c'est ce
// qui rend le worker de reversement idempotent.
func (s *ScyllaStore) ListHeldEscrows(ctx context.Context) ([]*models.Escrow, error) {
	iter := s.session.Query(`
		SELECT order_id, escrow_id, amount, status, hold_days, held_at, released_at, refund_reason
		FROM escrows_by_order WHERE status = ? ALLOW FILTERING
	`, string(models.EscrowHeld)).WithContext(ctx).Iter()

	var escrows []*models.Escrow
	for {
		var orderID gocql.UUID
		scanned := false
		e, err := s.scanEscrow(func(dest ...any) error {
			all := append([]any{&orderID}, dest...)
			if !iter.Scan(all...) {
				return gocql.ErrNotFound
			}
			scanned = true
			return nil
		}, orderID)
		if err != nil || !scanned {
			break
		}
		e.OrderID = orderID
		escrows = append(escrows, e)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return escrows, nil
}

// --- Demandes de retour ---

func (s *ScyllaStore) InsertReturnRequest(ctx context.Context, r *models.ReturnRequest) error {
	return s.session.Query(`
		INSERT INTO return_requests (return_request_id, order_id, reason,
			requested_at, processed_at, is_approved, comments)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.OrderID, r.Reason, r.RequestedAt, derefTime(r.ProcessedAt), r.IsApproved, r.Comments,
	).WithContext(ctx).Exec()
}

func (s *ScyllaStore) GetReturnRequest(ctx context.Context, id gocql.UUID) (*models.ReturnRequest, error) {
	var (
		r           models.ReturnRequest
		processedAt time.Time
	)

	err := s.session.Query(`
		SELECT order_id, reason, requested_at, processed_at, is_approved, comments
		FROM return_requests WHERE return_request_id = ?
	`, id).WithContext(ctx).Scan(&r.OrderID, &r.Reason, &r.RequestedAt, &processedAt, &r.IsApproved, &r.Comments)

	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	r.ID = id
	r.ProcessedAt = optTime(processedAt)
	return &r, nil
}

func (s *ScyllaStore) ListReturnRequestsByOrder(ctx context.Context, orderID gocql.UUID) ([]*models.ReturnRequest, error) {
	iter := s.session.Query(`
		SELECT return_request_id, reason, requested_at, processed_at, is_approved, comments
		FROM return_requests WHERE order_id = ? ALLOW FILTERING
	`, orderID).WithContext(ctx).Iter()

	var requests []*models.ReturnRequest
	var (
		id          gocql.UUID
		reason      string
		requestedAt time.Time
		processedAt time.Time
		isApproved  bool
		comments    string
	)
	for iter.Scan(&id, &reason, &requestedAt, &processedAt, &isApproved, &comments) {
		requests = append(requests, &models.ReturnRequest{
			ID:          id,
			OrderID:     orderID,
			Reason:      reason,
			RequestedAt: requestedAt,
			ProcessedAt: optTime(processedAt),
			IsApproved:  isApproved,
			Comments:    comments,
		})
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return requests, nil
}

func (s *ScyllaStore) UpdateReturnRequest(ctx context.Context, r *models.ReturnRequest) error {
	return s.session.Query(`
		UPDATE return_requests SET processed_at = ?, is_approved = ?, comments = ?
		WHERE return_request_id = ?
	`, derefTime(r.ProcessedAt), r.IsApproved, r.Comments, r.ID).WithContext(ctx).Exec()
}
