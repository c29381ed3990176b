package pricing

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"

	"storefront/internal/models"
	"storefront/internal/shoperr"
)

type pricingTestContext struct {
	items []models.CartItem
	quote Quote
	err   error
}

func (c *pricingTestContext) reset() {
	c.items = nil
	c.quote = Quote{}
	c.err = nil
}

func (c *pricingTestContext) anEmptyCart() error {
	c.items = nil
	return nil
}

func (c *pricingTestContext) theCartContains(table *godog.Table) error {
	for i, row := range table.Rows {
		if i == 0 {
			continue // header
		}
		price, err := decimal.NewFromString(row.Cells[1].Value)
		if err != nil {
			return err
		}
		qty, err := strconv.Atoi(row.Cells[2].Value)
		if err != nil {
			return err
		}
		c.items = append(c.items, models.CartItem{
			ID:        row.Cells[0].Value,
			ProductID: row.Cells[0].Value,
			Name:      row.Cells[0].Value,
			Price:     price,
			Quantity:  qty,
		})
	}
	return nil
}

func (c *pricingTestContext) iPriceTheCartWithShipping(method string) error {
	return c.iPriceTheCartWithPromoAndShipping("", method)
}

func (c *pricingTestContext) iPriceTheCartWithPromoAndShipping(promo, method string) error {
	c.quote, c.err = Default.Calculate(models.NewCart(c.items), promo, models.ShippingMethod(method))
	return nil
}

func (c *pricingTestContext) expectAmount(name string, got decimal.Decimal, want string) error {
	if c.err != nil {
		return fmt.Errorf("pricing failed: %w", c.err)
	}
	expected, err := decimal.NewFromString(want)
	if err != nil {
		return err
	}
	if !got.Equal(expected) {
		return fmt.Errorf("expected %s %s, got %s", name, expected, got)
	}
	return nil
}

func (c *pricingTestContext) theSubtotalIs(want string) error {
	return c.expectAmount("subtotal", c.quote.Subtotal, want)
}

func (c *pricingTestContext) theDiscountIs(want string) error {
	return c.expectAmount("discount", c.quote.Discount, want)
}

func (c *pricingTestContext) theShippingFeeIs(want string) error {
	return c.expectAmount("shipping", c.quote.Shipping, want)
}

func (c *pricingTestContext) theTaxIs(want string) error {
	return c.expectAmount("tax", c.quote.Tax, want)
}

func (c *pricingTestContext) theTotalIs(want string) error {
	return c.expectAmount("total", c.quote.Total, want)
}

func (c *pricingTestContext) pricingFailsWithAValidationErrorOn(field string) error {
	if !shoperr.IsValidation(c.err) {
		return fmt.Errorf("expected validation error, got %v", c.err)
	}
	if _, ok := shoperr.FieldsOf(c.err)[field]; !ok {
		return fmt.Errorf("expected error on %q, got %v", field, shoperr.FieldsOf(c.err))
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &pricingTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	ctx.Step(`^an empty cart$`, tc.anEmptyCart)
	ctx.Step(`^the cart contains:$`, tc.theCartContains)

	ctx.Step(`^I price the cart with shipping "([^"]*)"$`, tc.iPriceTheCartWithShipping)
	ctx.Step(`^I price the cart with promo "([^"]*)" and shipping "([^"]*)"$`, tc.iPriceTheCartWithPromoAndShipping)

	ctx.Step(`^the subtotal is (\d+\.\d+)$`, tc.theSubtotalIs)
	ctx.Step(`^the discount is (\d+\.\d+)$`, tc.theDiscountIs)
	ctx.Step(`^the shipping fee is (\d+\.\d+)$`, tc.theShippingFeeIs)
	ctx.Step(`^the tax is (\d+\.\d+)$`, tc.theTaxIs)
	ctx.Step(`^the total is (\d+\.\d+)$`, tc.theTotalIs)
	ctx.Step(`^pricing fails with a validation error on "([^"]*)"$`, tc.pricingFailsWithAValidationErrorOn)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/pricing.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
