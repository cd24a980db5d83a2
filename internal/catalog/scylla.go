package catalog

import (
	"context"
	"strings"

	"vendora_back_end/internal/models"

	"github.com/gocql/gocql"
	"github.com/shopspring/decimal"
)

// ScyllaCatalog lit produits et régions dans le keyspace catalogue.
// Lecture seule — le cœur ne modifie jamais le catalogue.
type ScyllaCatalog struct {
	session *gocql.Session
}

func NewScyllaCatalog(session *gocql.Session) *ScyllaCatalog {
	return &ScyllaCatalog{session: session}
}

func (c *ScyllaCatalog) GetProduct(ctx context.Context, productID string) (*Product, error) {
	var (
		price      string
		sellerID   string
		trustLevel string
	)

	err := c.session.Query(`
		SELECT price, seller_id, seller_trust_level FROM products WHERE product_id = ?
	`, productID).WithContext(ctx).Scan(&price, &sellerID, &trustLevel)

	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, err
	}

	return &Product{
		ID:         productID,
		Price:      d,
		SellerID:   sellerID,
		TrustLevel: models.SellerTrustLevel(trustLevel),
	}, nil
}

func (c *ScyllaCatalog) GetRegionCost(ctx context.Context, name string) (decimal.Decimal, error) {
	var cost string

	// les régions sont indexées en minuscules — correspondance insensible à la casse
	err := c.session.Query(`
		SELECT cost FROM shipping_regions WHERE name = ?
	`, strings.ToLower(name)).WithContext(ctx).Scan(&cost)

	if err != nil {
		if err == gocql.ErrNotFound {
			return decimal.Zero, ErrRegionNotFound
		}
		return decimal.Zero, err
	}

	return decimal.NewFromString(cost)
}
