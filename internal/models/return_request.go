package models

import (
	"time"

	"github.com/gocql/gocql"
)

// ReturnRequest — demande de retour déposée par l'acheteur sur une commande
// livrée. Terminale une fois traitée : approuvée → remboursement,
// rejetée → la commande reste livrée.
type ReturnRequest struct {
	ID          gocql.UUID `json:"id" db:"return_request_id"`
	OrderID     gocql.UUID `json:"order_id" db:"order_id"`
	Reason      string     `json:"reason" db:"reason"`
	RequestedAt time.Time  `json:"requested_at" db:"requested_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty" db:"processed_at"`
	IsApproved  bool       `json:"is_approved" db:"is_approved"`
	Comments    string     `json:"comments,omitempty" db:"comments"`
}

// Processed indique si la demande a déjà été traitée
func (r *ReturnRequest) Processed() bool {
	return r.ProcessedAt != nil
}
