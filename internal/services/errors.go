package services

import "errors"

var (
	// ErrValidation — entrée invalide, rejetée avant tout changement d'état
	ErrValidation = errors.New("données invalides")

	// ErrNotFound — entité référencée absente
	ErrNotFound = errors.New("commande introuvable")

	// ErrInvalidState — opération tentée depuis un statut qui l'interdit
	ErrInvalidState = errors.New("transition d'état non autorisée")

	// ErrPaymentOutstanding — un ordre passerelle est déjà en cours pour
	// cette commande, la ré-initiation est refusée
	ErrPaymentOutstanding = errors.New("un paiement est déjà en cours pour cette commande")

	// ErrGatewayRejected — la passerelle a explicitement refusé l'opération
	// (échec métier, non ré-essayé automatiquement)
	ErrGatewayRejected = errors.New("opération refusée par la passerelle de paiement")
)
