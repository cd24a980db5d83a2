package workers

import (
	"context"
	"testing"
	"time"

	"vendora_back_end/internal/models"
	"vendora_back_end/internal/notify"
	"vendora_back_end/internal/store"

	"github.com/gocql/gocql"
	"github.com/shopspring/decimal"
)

func newTimeoutWorker(st *store.MemoryStore, queue *notify.MemoryQueue, now time.Time) *OrderTimeoutWorker {
	w := NewOrderTimeoutWorker(st, notify.NewDispatcher(queue), 30*time.Minute, time.Minute)
	w.now = func() time.Time { return now }
	return w
}

func seedPendingOrder(t *testing.T, st *store.MemoryStore, createdAt time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:          gocql.TimeUUID(),
		BuyerID:     "buyer-1",
		SellerID:    "seller-1",
		TotalAmount: decimal.RequireFromString("30.49"),
		Status:      models.OrderPendingPayment,
		CreatedAt:   createdAt,
	}
	if err := st.InsertOrder(context.Background(), order); err != nil {
		t.Fatalf("InsertOrder: %v", err)
	}
	return order
}

func TestOrderTimeoutTick(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("cancels stale pending order", func(t *testing.T) {
		st := store.NewMemoryStore()
		queue := notify.NewMemoryQueue(8)
		w := newTimeoutWorker(st, queue, now)

		order := seedPendingOrder(t, st, now.Add(-time.Hour))
		w.Tick(ctx)

		stored, _ := st.GetOrder(ctx, order.ID)
		if stored.Status != models.OrderCancelled {
			t.Errorf("statut = %s, attendu cancelled", stored.Status)
		}
		if stored.CancellationReason == "" {
			t.Error("motif d'annulation absent")
		}

		select {
		case msg := <-queue.Messages:
			if msg.To != "buyer-1" {
				t.Errorf("destinataire = %s, attendu buyer-1", msg.To)
			}
		default:
			t.Error("aucune notification acheteur après expiration")
		}
	})

	t.Run("keeps fresh pending order", func(t *testing.T) {
		st := store.NewMemoryStore()
		queue := notify.NewMemoryQueue(8)
		w := newTimeoutWorker(st, queue, now)

		order := seedPendingOrder(t, st, now.Add(-10*time.Minute))
		w.Tick(ctx)

		stored, _ := st.GetOrder(ctx, order.ID)
		if stored.Status != models.OrderPendingPayment {
			t.Errorf("statut = %s, une commande de 10 minutes ne doit pas expirer", stored.Status)
		}
	})

	t.Run("skips order whose capture already completed", func(t *testing.T) {
		st := store.NewMemoryStore()
		queue := notify.NewMemoryQueue(8)
		w := newTimeoutWorker(st, queue, now)

		// capture enregistrée mais la commande n'est pas encore passée paid
		order := seedPendingOrder(t, st, now.Add(-time.Hour))
		if err := st.SavePayment(ctx, &models.Payment{
			OrderID: order.ID,
			Status:  models.PaymentCompleted,
		}); err != nil {
			t.Fatalf("SavePayment: %v", err)
		}

		w.Tick(ctx)

		stored, _ := st.GetOrder(ctx, order.ID)
		if stored.Status != models.OrderPendingPayment {
			t.Errorf("statut = %s, une capture réussie interdit l'annulation", stored.Status)
		}
	})

	t.Run("lost race against completed payment", func(t *testing.T) {
		st := store.NewMemoryStore()
		queue := notify.NewMemoryQueue(8)

		order := seedPendingOrder(t, st, now.Add(-time.Hour))

		// entre le scan et l'écriture du worker, la capture aboutit
		racing := store.Store(st)
		w := NewOrderTimeoutWorker(&racingStore{Store: racing, onList: func() {
			paid := *order
			paid.Status = models.OrderPaid
			if err := st.UpdateOrderCAS(ctx, &paid, models.OrderPendingPayment); err != nil {
				t.Fatalf("course simulée: %v", err)
			}
		}}, notify.NewDispatcher(queue), 30*time.Minute, time.Minute)
		w.now = func() time.Time { return now }

		w.Tick(ctx)

		stored, _ := st.GetOrder(ctx, order.ID)
		if stored.Status != models.OrderPaid {
			t.Errorf("statut = %s, la commande payée ne doit jamais être annulée", stored.Status)
		}
		select {
		case <-queue.Messages:
			t.Error("notification d'annulation émise malgré le conflit")
		default:
		}
	})
}

// racingStore déclenche un callback après le scan, avant l'écriture CAS
type racingStore struct {
	store.Store
	onList func()
}

func (r *racingStore) ListOrdersByStatus(ctx context.Context, status models.OrderStatus) ([]*models.Order, error) {
	orders, err := r.Store.ListOrdersByStatus(ctx, status)
	if r.onList != nil {
		r.onList()
	}
	return orders, err
}
