package models

import (
	"time"

	"github.com/gocql/gocql"
	"github.com/shopspring/decimal"
)

type EscrowStatus string

const (
	EscrowHeld     EscrowStatus = "held"
	EscrowReleased EscrowStatus = "released"
	EscrowRefunded EscrowStatus = "refunded"
)

// Escrow — fonds retenus par la plateforme après capture, reversés au vendeur
// après la période de garde. Le montant et la durée sont figés à la capture.
type Escrow struct {
	ID           gocql.UUID      `json:"id" db:"escrow_id"`
	OrderID      gocql.UUID      `json:"order_id" db:"order_id"`
	Amount       decimal.Decimal `json:"amount" db:"amount"`
	Status       EscrowStatus    `json:"status" db:"status"`
	HoldDays     int             `json:"hold_days" db:"hold_days"`
	HeldAt       time.Time       `json:"held_at" db:"held_at"`
	ReleasedAt   *time.Time      `json:"released_at,omitempty" db:"released_at"`
	RefundReason string          `json:"refund_reason,omitempty" db:"refund_reason"`
}

// ReleaseEligibleAt retourne la date à partir de laquelle les fonds
// peuvent être reversés au vendeur
func (e *Escrow) ReleaseEligibleAt() time.Time {
	return e.HeldAt.AddDate(0, 0, e.HoldDays)
}

// ReleaseEligible — éligibilité au reversement à l'instant donné
// (HeldAt + HoldDays ≤ now, borne incluse)
func (e *Escrow) ReleaseEligible(now time.Time) bool {
	return !now.Before(e.ReleaseEligibleAt())
}

// SellerTrustLevel — niveau de confiance du vendeur, détermine la période
// de garde des fonds. Ré-évalué une seule fois par commande, à la capture.
type SellerTrustLevel string

const (
	TrustNew      SellerTrustLevel = "new"
	TrustBronze   SellerTrustLevel = "bronze"
	TrustSilver   SellerTrustLevel = "silver"
	TrustGold     SellerTrustLevel = "gold"
	TrustPlatinum SellerTrustLevel = "platinum"
	TrustDiamond  SellerTrustLevel = "diamond"
)

// HoldDays mappe le niveau de confiance vers une période de garde en jours
func (l SellerTrustLevel) HoldDays() int {
	switch l {
	case TrustDiamond:
		return 0
	case TrustPlatinum:
		return 1
	case TrustGold:
		return 3
	case TrustSilver:
		return 7
	case TrustBronze:
		return 14
	default:
		// niveau inconnu ou vendeur récent : période maximale
		return 21
	}
}
