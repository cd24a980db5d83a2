package notify

import (
	"context"
	"log"
	"time"
)

// Dispatcher — côté producteur du pipeline de notifications.
// Enqueue ne doit jamais bloquer ni faire échouer la transaction qui la
// déclenche : les erreurs sont journalisées puis avalées.
type Dispatcher struct {
	queue Queue
}

func NewDispatcher(queue Queue) *Dispatcher {
	return &Dispatcher{queue: queue}
}

// Enqueue — fire-and-forget ; appelé de façon synchrone depuis les
// transitions du moteur et les workers
func (d *Dispatcher) Enqueue(m Message) {
	if d == nil || d.queue == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := d.queue.Enqueue(ctx, m); err != nil {
		log.Printf("⚠️ Notification perdue pour %s (%s): %v", m.To, m.Subject, err)
	}
}
