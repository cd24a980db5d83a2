// Package store est la frontière de persistance du cœur transactionnel.
// Toutes les écritures de statut passent par des écritures conditionnelles
// (compare-and-swap) : on n'écrit que si le statut persisté est toujours
// celui relu avant l'opération, sinon ErrConflict.
package store

import (
	"context"
	"errors"

	"vendora_back_end/internal/models"

	"github.com/gocql/gocql"
)

var (
	// ErrNotFound — entité absente du store
	ErrNotFound = errors.New("entité introuvable")

	// ErrConflict — la précondition de statut n'était plus vraie au moment
	// de l'écriture ; l'appelant doit relire et décider
	ErrConflict = errors.New("conflit de concurrence : le statut a changé")
)

type Store interface {
	InsertOrder(ctx context.Context, o *models.Order) error
	GetOrder(ctx context.Context, id gocql.UUID) (*models.Order, error)
	// UpdateOrderCAS réécrit les colonnes mutables de la commande,
	// seulement si le statut persisté vaut encore expected.
	UpdateOrderCAS(ctx context.Context, o *models.Order, expected models.OrderStatus) error
	ListOrdersByStatus(ctx context.Context, status models.OrderStatus) ([]*models.Order, error)

	SavePayment(ctx context.Context, p *models.Payment) error
	GetPaymentByOrder(ctx context.Context, orderID gocql.UUID) (*models.Payment, error)

	SaveShipping(ctx context.Context, s *models.Shipping) error
	GetShippingByOrder(ctx context.Context, orderID gocql.UUID) (*models.Shipping, error)

	InsertEscrow(ctx context.Context, e *models.Escrow) error
	GetEscrowByOrder(ctx context.Context, orderID gocql.UUID) (*models.Escrow, error)
	UpdateEscrowCAS(ctx context.Context, e *models.Escrow, expected models.EscrowStatus) error
	ListHeldEscrows(ctx context.Context) ([]*models.Escrow, error)

	InsertReturnRequest(ctx context.Context, r *models.ReturnRequest) error
	GetReturnRequest(ctx context.Context, id gocql.UUID) (*models.ReturnRequest, error)
	ListReturnRequestsByOrder(ctx context.Context, orderID gocql.UUID) ([]*models.ReturnRequest, error)
	UpdateReturnRequest(ctx context.Context, r *models.ReturnRequest) error
}
