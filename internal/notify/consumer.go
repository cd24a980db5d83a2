package notify

import (
	"context"
	"log"
	"time"
)

// Sender envoie effectivement une notification (SMTP en production).
// L'envoi doit être idempotent côté métier : un message peut être livré
// deux fois après un crash avant acquittement.
type Sender interface {
	Send(m Message) error
}

// Consumer tire les messages de la file Redis et les envoie, un par un.
type Consumer struct {
	queue  *RedisQueue
	sender Sender
}

func NewConsumer(queue *RedisQueue, sender Sender) *Consumer {
	return &Consumer{queue: queue, sender: sender}
}

// Run boucle jusqu'à annulation du contexte. Au démarrage, les messages
// orphelins de la liste de travail sont remis en file.
func (c *Consumer) Run(ctx context.Context) {
	if n, err := c.queue.RequeueStale(ctx); err != nil {
		log.Printf("⚠️ Remise en file des messages orphelins échouée: %v", err)
	} else if n > 0 {
		log.Printf("🔁 %d notification(s) remise(s) en file après redémarrage", n)
	}

	log.Println("📬 Consommateur de notifications démarré")

	for {
		select {
		case <-ctx.Done():
			log.Println("📪 Consommateur de notifications arrêté")
			return
		default:
		}

		raw, msg, err := c.queue.Reserve(ctx, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Printf("⚠️ Lecture file notifications: %v", err)
			time.Sleep(time.Second)
			continue
		}
		if msg == nil {
			continue // file vide
		}

		if err := c.sender.Send(*msg); err != nil {
			// pas d'acquittement : le message repartira après redémarrage
			log.Printf("❌ Envoi notification à %s échoué: %v", msg.To, err)
			continue
		}

		if err := c.queue.Ack(ctx, raw); err != nil {
			log.Printf("⚠️ Acquittement notification échoué (doublon possible): %v", err)
		}
	}
}
