package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
	"storefront/internal/shoperr"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func cartOf(prices ...string) models.Cart {
	items := make([]models.CartItem, 0, len(prices))
	for i, p := range prices {
		items = append(items, models.CartItem{ProductID: string(rune('a' + i)), Price: dec(p), Quantity: 1})
	}
	return models.NewCart(items)
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func TestCalculateTotalsAddUp(t *testing.T) {
	carts := []models.Cart{
		cartOf("0.01"),
		cartOf("19.99", "0.33"),
		cartOf("34.99"),
		cartOf("35.00"),
		cartOf("123.45", "0.05", "7.77"),
	}
	for _, cart := range carts {
		for _, promo := range []string{"", "SAVE10"} {
			for _, method := range []models.ShippingMethod{models.ShippingStandard, models.ShippingExpress, models.ShippingOvernight} {
				q, err := Default.Calculate(cart, promo, method)
				require.NoError(t, err)
				sum := q.Subtotal.Sub(q.Discount).Add(q.Shipping).Add(q.Tax)
				assert.True(t, sum.Equal(q.Total), "cart %s promo %q method %s", cart.Total(), promo, method)
				assert.True(t, q.Tax.Equal(q.Tax.Round(2)))
			}
		}
	}
}

func TestFreeShippingBoundary(t *testing.T) {
	q, err := Default.Calculate(cartOf("34.99"), "", models.ShippingStandard)
	require.NoError(t, err)
	assertDec(t, "5.99", q.Shipping)

	q, err = Default.Calculate(cartOf("35.00"), "", models.ShippingStandard)
	require.NoError(t, err)
	assertDec(t, "0", q.Shipping)

	q, err = Default.Calculate(cartOf("35.00"), "", models.ShippingExpress)
	require.NoError(t, err)
	assertDec(t, "9.99", q.Shipping)
}

func TestUnknownPromoIsValidationError(t *testing.T) {
	_, err := Default.Calculate(cartOf("10.00"), "BOGUS", models.ShippingStandard)
	require.Error(t, err)
	assert.True(t, shoperr.IsValidation(err))
	assert.Contains(t, shoperr.FieldsOf(err), "promoCode")
}

func TestPromoIsCaseInsensitive(t *testing.T) {
	q, err := Default.Calculate(cartOf("20.00"), " save10 ", models.ShippingStandard)
	require.NoError(t, err)
	assertDec(t, "2.00", q.Discount)
	assert.Equal(t, "SAVE10", q.Promo)
}

func TestUnknownMethodIsValidationError(t *testing.T) {
	_, err := Default.Calculate(cartOf("10.00"), "", models.ShippingMethod("drone"))
	assert.True(t, shoperr.IsValidation(err))
}

func TestTaxOrdering(t *testing.T) {
	policy := DefaultPolicy()
	policy.TaxOrdering = TaxBeforeDiscount
	calc := NewCalculator(policy)

	q, err := calc.Calculate(cartOf("20.00"), "SAVE10", models.ShippingStandard)
	require.NoError(t, err)
	assertDec(t, "1.60", q.Tax)

	q, err = Default.Calculate(cartOf("20.00"), "SAVE10", models.ShippingStandard)
	require.NoError(t, err)
	assertDec(t, "1.44", q.Tax)
}

func TestRoundingHalfUp(t *testing.T) {
	// 0.05 * 10% = 0.005
	q, err := Default.Calculate(cartOf("0.05"), "SAVE10", models.ShippingStandard)
	require.NoError(t, err)
	assertDec(t, "0.01", q.Discount)

	// 0.07 * 8% = 0.0056
	q, err = Default.Calculate(cartOf("0.07"), "", models.ShippingStandard)
	require.NoError(t, err)
	assertDec(t, "0.01", q.Tax)
}

func TestEmptyCartQuotesShippingOnly(t *testing.T) {
	q, err := Default.Calculate(models.Cart{}, "", models.ShippingStandard)
	require.NoError(t, err)
	assertDec(t, "0", q.Subtotal)
	assertDec(t, "5.99", q.Total)
}

func TestCalculateIsPure(t *testing.T) {
	cart := cartOf("12.34", "5.55")
	first, err := Default.Calculate(cart, "SAVE10", models.ShippingExpress)
	require.NoError(t, err)
	second, err := Default.Calculate(cart, "SAVE10", models.ShippingExpress)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
