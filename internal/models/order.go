package models

import (
	"time"

	"github.com/gocql/gocql"
	"github.com/shopspring/decimal"
)

// OrderStatus — statut interne fermé, sérialisé en string uniquement à la frontière
type OrderStatus string

const (
	OrderPendingPayment  OrderStatus = "pending_payment"
	OrderPaymentFailed   OrderStatus = "payment_failed"
	OrderPaid            OrderStatus = "paid"
	OrderProcessing      OrderStatus = "processing"
	OrderShipped         OrderStatus = "shipped"
	OrderDelivered       OrderStatus = "delivered"
	OrderCancelled       OrderStatus = "cancelled"
	OrderRefunded        OrderStatus = "refunded"
	OrderDisputed        OrderStatus = "disputed"
	OrderReturned        OrderStatus = "returned"
	OrderReturnRequested OrderStatus = "return_requested"
)

// OrderItem — ligne de commande avec prix snapshot au moment de la commande
// (jamais relu depuis le catalogue ensuite)
type OrderItem struct {
	ProductID string          `json:"product_id"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// Subtotal retourne prix × quantité
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order — entité centrale du cycle de vie
// Les dépendants (Payment, Shipping, Escrow) référencent la commande par son ID,
// jamais par pointeur — navigation unidirectionnelle.
type Order struct {
	ID              gocql.UUID  `json:"id" db:"order_id"`
	BuyerID         string      `json:"buyer_id" db:"buyer_id"`
	SellerID        string      `json:"seller_id" db:"seller_id"`
	Items           []OrderItem `json:"items" db:"items"`
	ShippingAddress string      `json:"shipping_address" db:"shipping_address"`
	ShippingRegion  string      `json:"shipping_region" db:"shipping_region"`
	CouponCode      string      `json:"coupon_code,omitempty" db:"coupon_code"`

	DiscountAmount decimal.Decimal `json:"discount_amount" db:"discount_amount"`
	ShippingFee    decimal.Decimal `json:"shipping_fee" db:"shipping_fee"`
	TotalAmount    decimal.Decimal `json:"total_amount" db:"total_amount"`

	Status OrderStatus `json:"status" db:"status"`

	PaymentID  *gocql.UUID `json:"payment_id,omitempty" db:"payment_id"`
	ShippingID *gocql.UUID `json:"shipping_id,omitempty" db:"shipping_id"`
	EscrowID   *gocql.UUID `json:"escrow_id,omitempty" db:"escrow_id"`

	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	PaidAt             *time.Time `json:"paid_at,omitempty" db:"paid_at"`
	ShippedAt          *time.Time `json:"shipped_at,omitempty" db:"shipped_at"`
	DeliveredAt        *time.Time `json:"delivered_at,omitempty" db:"delivered_at"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CancellationReason string     `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
}

// CreateOrderRequest — payload de création de commande
type CreateOrderRequest struct {
	BuyerID         string            `json:"buyer_id" binding:"required"`
	Items           []CreateOrderItem `json:"items" binding:"required"`
	ShippingAddress string            `json:"shipping_address" binding:"required"`
	ShippingRegion  string            `json:"shipping_region" binding:"required"`
	CouponCode      string            `json:"coupon_code"`
}

type CreateOrderItem struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
}
