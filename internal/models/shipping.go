package models

import (
	"time"

	"github.com/gocql/gocql"
)

type ShippingStatus string

const (
	ShippingNotShipped     ShippingStatus = "not_shipped"
	ShippingProcessing     ShippingStatus = "processing"
	ShippingShipped        ShippingStatus = "shipped"
	ShippingInTransit      ShippingStatus = "in_transit"
	ShippingOutForDelivery ShippingStatus = "out_for_delivery"
	ShippingDelivered      ShippingStatus = "delivered"
	ShippingFailed         ShippingStatus = "failed"
	ShippingReturned       ShippingStatus = "returned"
)

// ShippingEvent — événement rapporté par le transporteur.
// L'historique est append-only, l'ordre d'insertion fait foi.
type ShippingEvent struct {
	Timestamp   time.Time `json:"timestamp"`
	Status      string    `json:"status"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
}

// Shipping — 1:1 avec une commande
type Shipping struct {
	ID                gocql.UUID      `json:"id" db:"shipping_id"`
	OrderID           gocql.UUID      `json:"order_id" db:"order_id"`
	TrackingNumber    string          `json:"tracking_number" db:"tracking_number"`
	Carrier           string          `json:"carrier" db:"carrier"`
	Status            ShippingStatus  `json:"status" db:"status"`
	ShippedAt         *time.Time      `json:"shipped_at,omitempty" db:"shipped_at"`
	EstimatedDelivery *time.Time      `json:"estimated_delivery,omitempty" db:"estimated_delivery"`
	ActualDelivery    *time.Time      `json:"actual_delivery,omitempty" db:"actual_delivery"`
	Events            []ShippingEvent `json:"events" db:"events"`
}
