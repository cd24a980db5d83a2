// Package notify découple « un e-mail doit partir » du chemin de requête :
// une file durable Redis côté producteur, un consommateur at-least-once.
// La perte d'une notification est tolérable ; la perte d'un état de
// règlement ne l'est pas.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Message — notification à destination d'un acheteur ou d'un vendeur.
// To est une référence destinataire (e-mail ou identifiant résolu par
// l'expéditeur).
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Queue — côté producteur de la file
type Queue interface {
	Enqueue(ctx context.Context, m Message) error
}

const (
	queueKey      = "notifications:queue"
	processingKey = "notifications:processing"
)

// RedisQueue — file durable sur liste Redis.
// Producteur : LPUSH. Consommateur : BRPOPLPUSH vers une liste de travail,
// acquittement par LREM après envoi réussi → at-least-once.
type RedisQueue struct {
	rdb *redis.Client
}

func NewRedisQueue(rdb *redis.Client) *RedisQueue {
	return &RedisQueue{rdb: rdb}
}

func (q *RedisQueue) Enqueue(ctx context.Context, m Message) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return q.rdb.LPush(ctx, queueKey, payload).Err()
}

// Reserve bloque jusqu'à timeout et déplace le prochain message vers la
// liste de travail. Retourne le payload brut servant de jeton d'acquittement.
func (q *RedisQueue) Reserve(ctx context.Context, timeout time.Duration) (string, *Message, error) {
	raw, err := q.rdb.BRPopLPush(ctx, queueKey, processingKey, timeout).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil, nil // file vide, pas une erreur
		}
		return "", nil, err
	}

	var m Message
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		// message illisible : on l'acquitte pour ne pas bloquer la file
		q.rdb.LRem(ctx, processingKey, 1, raw)
		return "", nil, err
	}
	return raw, &m, nil
}

// Ack retire le message de la liste de travail après traitement réussi
func (q *RedisQueue) Ack(ctx context.Context, raw string) error {
	return q.rdb.LRem(ctx, processingKey, 1, raw).Err()
}

// RequeueStale remet en file les messages restés dans la liste de travail
// après un crash — ils seront livrés une deuxième fois, c'est le contrat.
func (q *RedisQueue) RequeueStale(ctx context.Context) (int, error) {
	n := 0
	for {
		_, err := q.rdb.RPopLPush(ctx, processingKey, queueKey).Result()
		if err != nil {
			if err == redis.Nil {
				return n, nil
			}
			return n, err
		}
		n++
	}
}

// MemoryQueue — file en mémoire pour le mode dev et les tests
type MemoryQueue struct {
	Messages chan Message
}

func NewMemoryQueue(size int) *MemoryQueue {
	return &MemoryQueue{Messages: make(chan Message, size)}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, m Message) error {
	select {
	case q.Messages <- m:
		return nil
	default:
		return context.DeadlineExceeded
	}
}
