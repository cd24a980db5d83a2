package workers

import (
	"context"
	"errors"
	"log"
	"time"

	"vendora_back_end/internal/models"
	"vendora_back_end/internal/notify"
	"vendora_back_end/internal/store"
)

// OrderTimeoutWorker annule les commandes restées en attente de paiement
// au-delà du délai. L'écriture conditionnelle protège contre la course avec
// une capture qui aboutit au même moment : si le statut a bougé, on ne touche
// à rien.
type OrderTimeoutWorker struct {
	store      store.Store
	dispatcher *notify.Dispatcher
	timeout    time.Duration
	interval   time.Duration
	now        func() time.Time
}

func NewOrderTimeoutWorker(st store.Store, d *notify.Dispatcher, timeout, interval time.Duration) *OrderTimeoutWorker {
	return &OrderTimeoutWorker{
		store:      st,
		dispatcher: d,
		timeout:    timeout,
		interval:   interval,
		now:        time.Now,
	}
}

// Run boucle jusqu'à annulation du contexte
func (w *OrderTimeoutWorker) Run(ctx context.Context) {
	log.Printf("⏲️ Worker d'expiration des commandes démarré (délai %s, scan toutes les %s)", w.timeout, w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("⏲️ Worker d'expiration arrêté")
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick effectue une passe d'expiration. Exporté pour piloter le worker
// sans horloge dans les tests.
func (w *OrderTimeoutWorker) Tick(ctx context.Context) {
	orders, err := w.store.ListOrdersByStatus(ctx, models.OrderPendingPayment)
	if err != nil {
		log.Printf("⚠️ Scan des commandes en attente échoué: %v", err)
		return
	}

	cutoff := w.now().UTC().Add(-w.timeout)
	for _, order := range orders {
		if order.CreatedAt.After(cutoff) {
			continue
		}

		// re-lecture du paiement au dernier moment : une capture déjà réussie
		// ne doit jamais être annulée (un ordre passerelle jamais approuvé,
		// lui, expire normalement)
		if payment, err := w.store.GetPaymentByOrder(ctx, order.ID); err == nil {
			if payment.Status == models.PaymentCompleted {
				continue
			}
		}

		now := w.now().UTC()
		order.Status = models.OrderCancelled
		order.CancelledAt = &now
		order.CancellationReason = "paiement non reçu dans le délai imparti"

		if err := w.store.UpdateOrderCAS(ctx, order, models.OrderPendingPayment); err != nil {
			if errors.Is(err, store.ErrConflict) {
				// un paiement a abouti entre le scan et l'écriture
				log.Printf("🔁 Expiration abandonnée pour %s: statut modifié entre-temps", order.ID)
				continue
			}
			log.Printf("⚠️ Annulation par expiration échouée pour %s: %v", order.ID, err)
			continue
		}

		w.dispatcher.Enqueue(notify.Message{
			To:      order.BuyerID,
			Subject: "❌ Commande annulée - Vendora",
			Body:    "Votre commande " + order.ID.String() + " a été annulée faute de paiement.",
		})
		log.Printf("⏲️ Commande %s annulée par expiration (créée %s)", order.ID, order.CreatedAt.Format(time.RFC3339))
	}
}
