package services

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Table fixe des coupons — correspondance insensible à la casse.
// Un code inconnu n'est jamais une erreur : remise nulle.
var (
	save10 = decimal.NewFromFloat(0.10)
	save20 = decimal.NewFromFloat(0.20)
)

// ApplyDiscount calcule la remise sur un montant pour un code coupon.
// FREESHIP ne donne aucune remise sur le montant — il annule les frais
// de livraison (voir IsFreeShipping).
func ApplyDiscount(amount decimal.Decimal, couponCode string) decimal.Decimal {
	switch strings.ToUpper(couponCode) {
	case "SAVE10":
		return amount.Mul(save10)
	case "SAVE20":
		return amount.Mul(save20)
	default:
		return decimal.Zero
	}
}

// IsFreeShipping indique si le coupon annule les frais de livraison
func IsFreeShipping(couponCode string) bool {
	return strings.ToUpper(couponCode) == "FREESHIP"
}
