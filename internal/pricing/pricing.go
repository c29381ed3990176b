// Package pricing computes order quotes from a cart snapshot. Everything here
// is pure: the same cart, promo and method always produce the same Quote.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/models"
	"storefront/internal/shoperr"
)

// TaxOrdering selects the amount tax is charged on.
type TaxOrdering int

const (
	// TaxAfterDiscount charges tax on subtotal minus discount.
	TaxAfterDiscount TaxOrdering = iota
	// TaxBeforeDiscount charges tax on the full subtotal.
	TaxBeforeDiscount
)

const centsPlaces = 2

// Policy holds the rates, thresholds and promo registry a Calculator uses.
type Policy struct {
	TaxRate               decimal.Decimal
	TaxOrdering           TaxOrdering
	FreeShippingThreshold decimal.Decimal
	// FreeShippingMethod is the only tier that becomes free above the threshold.
	FreeShippingMethod models.ShippingMethod
	ShippingRates      map[models.ShippingMethod]decimal.Decimal
	// Promos maps an upper-case code to a fractional discount rate.
	Promos map[string]decimal.Decimal
}

// DefaultPolicy is 8% tax after discount, free standard shipping from 35.00
// and the SAVE10 promo.
func DefaultPolicy() Policy {
	return Policy{
		TaxRate:               decimal.RequireFromString("0.08"),
		TaxOrdering:           TaxAfterDiscount,
		FreeShippingThreshold: decimal.RequireFromString("35.00"),
		FreeShippingMethod:    models.ShippingStandard,
		ShippingRates: map[models.ShippingMethod]decimal.Decimal{
			models.ShippingStandard:  decimal.RequireFromString("5.99"),
			models.ShippingExpress:   decimal.RequireFromString("9.99"),
			models.ShippingOvernight: decimal.RequireFromString("19.99"),
		},
		Promos: map[string]decimal.Decimal{
			"SAVE10": decimal.RequireFromString("0.10"),
		},
	}
}

// Quote is a priced cart. Each component is rounded to cents and Total is
// their exact sum.
type Quote struct {
	Subtotal decimal.Decimal       `json:"subtotal"`
	Discount decimal.Decimal       `json:"discount"`
	Shipping decimal.Decimal       `json:"shipping"`
	Tax      decimal.Decimal       `json:"tax"`
	Total    decimal.Decimal       `json:"total"`
	Promo    string                `json:"promo,omitempty"`
	Method   models.ShippingMethod `json:"shippingMethod"`
}

// Calculator prices carts under a fixed Policy.
type Calculator struct {
	policy Policy
}

// NewCalculator returns a Calculator for policy.
func NewCalculator(policy Policy) *Calculator {
	return &Calculator{policy: policy}
}

// Default is a calculator with DefaultPolicy.
var Default = NewCalculator(DefaultPolicy())

// Calculate prices cart. An empty promo means no discount; an unknown promo or
// shipping method is a validation error.
func (c *Calculator) Calculate(cart models.Cart, promo string, method models.ShippingMethod) (Quote, error) {
	rate, ok := c.policy.ShippingRates[method]
	if !ok {
		return Quote{}, shoperr.NewFieldError("shippingMethod", "is not a supported shipping method")
	}

	code := NormalizePromo(promo)
	discountRate := decimal.Zero
	if code != "" {
		discountRate, ok = c.policy.Promos[code]
		if !ok {
			return Quote{}, shoperr.NewFieldError("promoCode", "is not a valid promo code")
		}
	}

	subtotal := roundCents(cart.Total())
	discount := roundCents(subtotal.Mul(discountRate))

	shipping := rate
	if method == c.policy.FreeShippingMethod && subtotal.GreaterThanOrEqual(c.policy.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	shipping = roundCents(shipping)

	taxBase := subtotal.Sub(discount)
	if c.policy.TaxOrdering == TaxBeforeDiscount {
		taxBase = subtotal
	}
	tax := roundCents(taxBase.Mul(c.policy.TaxRate))

	return Quote{
		Subtotal: subtotal,
		Discount: discount,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Sub(discount).Add(shipping).Add(tax),
		Promo:    code,
		Method:   method,
	}, nil
}

// ValidPromo reports whether code is empty or registered.
func (c *Calculator) ValidPromo(code string) bool {
	code = NormalizePromo(code)
	if code == "" {
		return true
	}
	_, ok := c.policy.Promos[code]
	return ok
}

func NormalizePromo(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// roundCents rounds half away from zero, which is half-up for money.
func roundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(centsPlaces)
}
