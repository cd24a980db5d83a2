package models

import (
	"time"

	"github.com/gocql/gocql"
)

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
	PaymentRefunded   PaymentStatus = "refunded"
)

// Payment — 1:1 avec une commande, jamais supprimé (piste d'audit).
// Muté uniquement par les réponses de la passerelle de paiement.
type Payment struct {
	ID               gocql.UUID    `json:"id" db:"payment_id"`
	OrderID          gocql.UUID    `json:"order_id" db:"order_id"`
	TransactionID    string        `json:"transaction_id" db:"transaction_id"`
	GatewayOrderID   string        `json:"gateway_order_id,omitempty" db:"gateway_order_id"`
	GatewayCaptureID string        `json:"gateway_capture_id,omitempty" db:"gateway_capture_id"`
	Status           PaymentStatus `json:"status" db:"status"`
	ProcessedAt      *time.Time    `json:"processed_at,omitempty" db:"processed_at"`
	LastError        string        `json:"last_error,omitempty" db:"last_error"`
}

// Outstanding indique qu'un ordre passerelle est en cours et non terminal —
// toute ré-initiation doit être refusée tant qu'il est vrai.
func (p *Payment) Outstanding() bool {
	if p == nil {
		return false
	}
	return p.GatewayOrderID != "" && p.Status != PaymentFailed && p.Status != PaymentRefunded
}
