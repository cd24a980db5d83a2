package workers

import (
	"context"
	"errors"
	"log"
	"time"

	"vendora_back_end/internal/models"
	"vendora_back_end/internal/notify"
	"vendora_back_end/internal/services"
	"vendora_back_end/internal/store"
)

// EscrowReleaseWorker reverse aux vendeurs les fonds dont la période de garde
// est écoulée. Re-lecture de la commande juste avant l'écriture : un litige ou
// une demande de retour ouverts gèlent le reversement, quelle que soit
// l'ancienneté de la garde.
type EscrowReleaseWorker struct {
	store      store.Store
	escrow     *services.EscrowService
	dispatcher *notify.Dispatcher
	interval   time.Duration
	now        func() time.Time
}

func NewEscrowReleaseWorker(st store.Store, esc *services.EscrowService, d *notify.Dispatcher, interval time.Duration) *EscrowReleaseWorker {
	return &EscrowReleaseWorker{
		store:      st,
		escrow:     esc,
		dispatcher: d,
		interval:   interval,
		now:        time.Now,
	}
}

// Run boucle jusqu'à annulation du contexte
func (w *EscrowReleaseWorker) Run(ctx context.Context) {
	log.Printf("💸 Worker de reversement escrow démarré (scan toutes les %s)", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("💸 Worker de reversement arrêté")
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick effectue une passe de reversement. Exporté pour les tests.
func (w *EscrowReleaseWorker) Tick(ctx context.Context) {
	escrows, err := w.store.ListHeldEscrows(ctx)
	if err != nil {
		log.Printf("⚠️ Scan des escrows en garde échoué: %v", err)
		return
	}

	now := w.now().UTC()
	for _, escrow := range escrows {
		if !escrow.ReleaseEligible(now) {
			continue
		}

		// re-lecture au dernier moment : l'état de la commande peut avoir
		// bougé depuis le scan
		order, err := w.store.GetOrder(ctx, escrow.OrderID)
		if err != nil {
			log.Printf("⚠️ Commande %s introuvable pour l'escrow %s: %v", escrow.OrderID, escrow.ID, err)
			continue
		}

		if order.Status == models.OrderDisputed || order.Status == models.OrderReturnRequested {
			log.Printf("🔒 Reversement gelé pour %s: commande en %s", escrow.OrderID, order.Status)
			continue
		}

		if err := w.escrow.ReleaseEscrow(ctx, escrow); err != nil {
			if errors.Is(err, store.ErrConflict) {
				// déjà reversé ou remboursé par une passe concurrente
				log.Printf("🔁 Reversement abandonné pour %s: escrow déjà clos", escrow.OrderID)
				continue
			}
			log.Printf("⚠️ Reversement échoué pour %s: %v", escrow.OrderID, err)
			continue
		}

		w.dispatcher.Enqueue(services.SellerReleaseNotification(order, escrow.Amount.StringFixed(2)))
	}
}
