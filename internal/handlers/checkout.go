package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/checkout"
	"storefront/internal/models"
	"storefront/internal/payment"
	"storefront/internal/shoperr"
)

type shippingRequest struct {
	Shipping    models.ShippingInfo `json:"shipping"`
	SaveAddress bool                `json:"saveAddress"`
}

type methodRequest struct {
	ShippingMethod string `json:"shippingMethod"`
}

type promoRequest struct {
	PromoCode string `json:"promoCode"`
}

type paymentRequest struct {
	PaymentMethod models.PaymentMethod   `json:"paymentMethod" binding:"required"`
	Card          *payment.CardPayment   `json:"creditCard"`
	Paypal        *payment.WalletPayment `json:"paypal"`
}

func (r paymentRequest) details() (payment.Details, error) {
	switch r.PaymentMethod {
	case models.PaymentCard:
		if r.Card == nil {
			return nil, shoperr.NewFieldError("creditCard", "is required")
		}
		return *r.Card, nil
	case models.PaymentWallet:
		if r.Paypal == nil {
			return nil, shoperr.NewFieldError("paypal", "is required")
		}
		return *r.Paypal, nil
	default:
		return nil, shoperr.NewFieldError("paymentMethod", "is not a supported payment method")
	}
}

// activeCheckout answers 404 when no checkout was started.
func (d Deps) activeCheckout(c *gin.Context) (*checkout.Orchestrator, bool) {
	orch, ok := d.Shop.Checkout()
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no checkout in progress"})
	}
	return orch, ok
}

func BeginCheckout(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /checkout"
		defer d.handlePanic(c, route)

		orch, err := d.Shop.BeginCheckout()
		if err != nil {
			d.respondWithError(c, route, err)
			return
		}
		c.JSON(http.StatusCreated, orch.View())
	}
}

func GetCheckout(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer d.handlePanic(c, "GET /checkout")
		orch, ok := d.activeCheckout(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, orch.View())
	}
}

// editCheckout binds a request and applies it to the active checkout.
func editCheckout[T any](d Deps, route string, apply func(*checkout.Orchestrator, T) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer d.handlePanic(c, route)
		orch, ok := d.activeCheckout(c)
		if !ok {
			return
		}
		var req T
		if !d.bindJSON(c, route, &req) {
			return
		}
		if err := apply(orch, req); err != nil {
			d.respondWithError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, orch.View())
	}
}

func SetShipping(d Deps) gin.HandlerFunc {
	return editCheckout(d, "PUT /checkout/shipping", func(o *checkout.Orchestrator, req shippingRequest) error {
		return o.SetShipping(req.Shipping, req.SaveAddress)
	})
}

func SetShippingMethod(d Deps) gin.HandlerFunc {
	return editCheckout(d, "PUT /checkout/method", func(o *checkout.Orchestrator, req methodRequest) error {
		method, ok := models.ParseShippingMethod(req.ShippingMethod)
		if !ok {
			return shoperr.NewFieldError("shippingMethod", "is not a supported shipping method")
		}
		return o.SetShippingMethod(method)
	})
}

func ApplyPromo(d Deps) gin.HandlerFunc {
	return editCheckout(d, "PUT /checkout/promo", func(o *checkout.Orchestrator, req promoRequest) error {
		return o.ApplyPromo(req.PromoCode)
	})
}

func SubmitOrder(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /checkout/order"
		defer d.handlePanic(c, route)

		orch, ok := d.activeCheckout(c)
		if !ok {
			return
		}
		order, err := orch.SubmitOrder(c.Request.Context())
		if err != nil {
			d.respondWithError(c, route, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"order": order, "checkout": orch.View()})
	}
}

func SubmitPayment(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /checkout/payment"
		defer d.handlePanic(c, route)

		orch, ok := d.activeCheckout(c)
		if !ok {
			return
		}
		var req paymentRequest
		if !d.bindJSON(c, route, &req) {
			return
		}
		details, err := req.details()
		if err != nil {
			d.respondWithError(c, route, err)
			return
		}
		receipt, err := orch.SubmitPayment(c.Request.Context(), details)
		if err != nil {
			d.respondWithError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"receipt": receipt, "checkout": orch.View()})
	}
}

func RetryCheckout(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /checkout/retry"
		defer d.handlePanic(c, route)

		orch, ok := d.activeCheckout(c)
		if !ok {
			return
		}
		if err := orch.Retry(); err != nil {
			d.respondWithError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, orch.View())
	}
}
