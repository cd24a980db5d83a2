package services

import (
	"context"
	"log"
	"time"

	"vendora_back_end/internal/models"
	"vendora_back_end/internal/store"

	"github.com/gocql/gocql"
	"github.com/shopspring/decimal"
)

// EscrowService — registre des fonds retenus. États : held → released | refunded
// (terminaux). L'ouverture n'est possible que depuis une capture réussie.
type EscrowService struct {
	store store.Store
	now   func() time.Time
}

func NewEscrowService(st store.Store) *EscrowService {
	return &EscrowService{store: st, now: time.Now}
}

// OpenEscrow crée la garde de fonds d'une commande : montant = part vendeur,
// durée figée au moment de la capture (jamais re-dérivée ensuite)
func (s *EscrowService) OpenEscrow(ctx context.Context, orderID gocql.UUID, amount decimal.Decimal, holdDays int) (*models.Escrow, error) {
	escrow := &models.Escrow{
		ID:       gocql.TimeUUID(),
		OrderID:  orderID,
		Amount:   amount,
		Status:   models.EscrowHeld,
		HoldDays: holdDays,
		HeldAt:   s.now().UTC(),
	}

	if err := s.store.InsertEscrow(ctx, escrow); err != nil {
		return nil, err
	}

	log.Printf("🔒 Escrow ouvert pour la commande %s: %s (garde %d jours)",
		orderID, amount.StringFixed(2), holdDays)
	return escrow, nil
}

// ReleaseEscrow reverse les fonds au vendeur : held → released.
// CAS sur le statut — relancer sur une ligne déjà released renvoie ErrConflict.
func (s *EscrowService) ReleaseEscrow(ctx context.Context, escrow *models.Escrow) error {
	released := s.now().UTC()
	escrow.Status = models.EscrowReleased
	escrow.ReleasedAt = &released

	if err := s.store.UpdateEscrowCAS(ctx, escrow, models.EscrowHeld); err != nil {
		return err
	}

	log.Printf("💸 Escrow reversé pour la commande %s: %s", escrow.OrderID, escrow.Amount.StringFixed(2))
	return nil
}

// RefundEscrow clôt la garde par remboursement : held → refunded
func (s *EscrowService) RefundEscrow(ctx context.Context, orderID gocql.UUID, reason string) error {
	escrow, err := s.store.GetEscrowByOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if escrow.Status != models.EscrowHeld {
		return ErrInvalidState
	}

	refunded := s.now().UTC()
	escrow.Status = models.EscrowRefunded
	escrow.ReleasedAt = &refunded
	escrow.RefundReason = reason

	if err := s.store.UpdateEscrowCAS(ctx, escrow, models.EscrowHeld); err != nil {
		return err
	}

	log.Printf("💰 Escrow remboursé pour la commande %s (%s)", orderID, reason)
	return nil
}
