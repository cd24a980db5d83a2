// Package catalog expose les collaborateurs externes du cœur transactionnel :
// le catalogue produit et l'annuaire des régions de livraison. Seule la
// frontière est spécifiée ici — le reste du catalogue (recherche, pagination)
// vit ailleurs.
package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"

	"vendora_back_end/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound       = errors.New("produit introuvable")
	ErrRegionNotFound = errors.New("région de livraison inconnue")
)

// Product — ce que le cœur a besoin de savoir d'un produit :
// son prix courant et son vendeur (avec niveau de confiance)
type Product struct {
	ID         string
	Price      decimal.Decimal
	SellerID   string
	TrustLevel models.SellerTrustLevel
}

type ProductCatalog interface {
	GetProduct(ctx context.Context, productID string) (*Product, error)
}

type RegionDirectory interface {
	// GetRegionCost — coût de livraison pour une région, insensible à la casse
	GetRegionCost(ctx context.Context, name string) (decimal.Decimal, error)
}

// --- Implémentation statique (dev / tests) ---

// StaticCatalog sert des produits et régions depuis des maps en mémoire
type StaticCatalog struct {
	mu       sync.RWMutex
	products map[string]Product
	regions  map[string]decimal.Decimal // clé en minuscules
}

func NewStaticCatalog() *StaticCatalog {
	return &StaticCatalog{
		products: make(map[string]Product),
		regions:  make(map[string]decimal.Decimal),
	}
}

func (c *StaticCatalog) AddProduct(p Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = p
}

func (c *StaticCatalog) AddRegion(name string, cost decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.regions[strings.ToLower(name)] = cost
}

func (c *StaticCatalog) GetProduct(ctx context.Context, productID string) (*Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[productID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (c *StaticCatalog) GetRegionCost(ctx context.Context, name string) (decimal.Decimal, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cost, ok := c.regions[strings.ToLower(name)]
	if !ok {
		return decimal.Zero, ErrRegionNotFound
	}
	return cost, nil
}
