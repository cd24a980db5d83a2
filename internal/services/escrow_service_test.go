package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"vendora_back_end/internal/models"
	"vendora_back_end/internal/store"

	"github.com/gocql/gocql"
	"github.com/shopspring/decimal"
)

func TestEscrowLifecycle(t *testing.T) {
	ctx := context.Background()
	held := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	newEscrow := func(t *testing.T) (*EscrowService, *store.MemoryStore, *models.Escrow) {
		t.Helper()
		st := store.NewMemoryStore()
		svc := NewEscrowService(st)
		svc.now = func() time.Time { return held }

		escrow, err := svc.OpenEscrow(ctx, gocql.TimeUUID(), decimal.RequireFromString("30.49"), 3)
		if err != nil {
			t.Fatalf("OpenEscrow: %v", err)
		}
		return svc, st, escrow
	}

	t.Run("open records amount and hold window", func(t *testing.T) {
		_, _, escrow := newEscrow(t)
		if escrow.Status != models.EscrowHeld {
			t.Errorf("statut = %s, attendu held", escrow.Status)
		}
		want := held.AddDate(0, 0, 3)
		if !escrow.ReleaseEligibleAt().Equal(want) {
			t.Errorf("échéance = %s, attendu %s", escrow.ReleaseEligibleAt(), want)
		}
	})

	t.Run("release eligibility boundary is inclusive", func(t *testing.T) {
		_, _, escrow := newEscrow(t)
		deadline := held.AddDate(0, 0, 3)

		if escrow.ReleaseEligible(deadline.Add(-time.Second)) {
			t.Error("éligible une seconde avant l'échéance")
		}
		if !escrow.ReleaseEligible(deadline) {
			t.Error("non éligible pile à l'échéance")
		}
		if !escrow.ReleaseEligible(deadline.Add(time.Hour)) {
			t.Error("non éligible après l'échéance")
		}
	})

	t.Run("release is terminal", func(t *testing.T) {
		svc, st, escrow := newEscrow(t)
		if err := svc.ReleaseEscrow(ctx, escrow); err != nil {
			t.Fatalf("ReleaseEscrow: %v", err)
		}

		stored, _ := st.GetEscrowByOrder(ctx, escrow.OrderID)
		if stored.Status != models.EscrowReleased {
			t.Errorf("statut = %s, attendu released", stored.Status)
		}
		if stored.ReleasedAt == nil {
			t.Error("released_at non renseigné")
		}

		// deuxième reversement : conflit CAS, jamais de double paiement
		if err := svc.ReleaseEscrow(ctx, stored); !errors.Is(err, store.ErrConflict) {
			t.Errorf("err = %v, attendu ErrConflict", err)
		}
	})

	t.Run("refund is terminal", func(t *testing.T) {
		svc, st, escrow := newEscrow(t)
		if err := svc.RefundEscrow(ctx, escrow.OrderID, "litige"); err != nil {
			t.Fatalf("RefundEscrow: %v", err)
		}

		stored, _ := st.GetEscrowByOrder(ctx, escrow.OrderID)
		if stored.Status != models.EscrowRefunded {
			t.Errorf("statut = %s, attendu refunded", stored.Status)
		}
		if stored.RefundReason != "litige" {
			t.Errorf("motif = %q", stored.RefundReason)
		}

		if err := svc.RefundEscrow(ctx, escrow.OrderID, "encore"); !errors.Is(err, ErrInvalidState) {
			t.Errorf("err = %v, attendu ErrInvalidState", err)
		}
	})
}

func TestTrustLevelHoldDays(t *testing.T) {
	tests := []struct {
		level models.SellerTrustLevel
		days  int
	}{
		{models.TrustDiamond, 0},
		{models.TrustPlatinum, 1},
		{models.TrustGold, 3},
		{models.TrustSilver, 7},
		{models.TrustBronze, 14},
		{models.TrustNew, 21},
		{models.SellerTrustLevel("inconnu"), 21}, // défaut prudent
	}
	for _, tt := range tests {
		if got := tt.level.HoldDays(); got != tt.days {
			t.Errorf("HoldDays(%s) = %d, attendu %d", tt.level, got, tt.days)
		}
	}
}
