package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Register mounts the local API on r.
func Register(r gin.IRouter, d Deps) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	r.GET("/session", GetSession(d))
	r.POST("/session", SignIn(d))
	r.DELETE("/session", SignOut(d))

	cart := r.Group("/cart")
	{
		cart.GET("", GetCart(d))
		cart.DELETE("", ClearCart(d))
		cart.POST("/items", AddCartItem(d))
		cart.PATCH("/items/:id", UpdateCartItem(d))
		cart.DELETE("/items/:id", RemoveCartItem(d))
		cart.GET("/quote", QuoteCart(d))
		cart.GET("/sync", GetSyncStatus(d))
		cart.POST("/sync", Resync(d))
	}

	checkoutGroup := r.Group("/checkout")
	{
		checkoutGroup.POST("", BeginCheckout(d))
		checkoutGroup.GET("", GetCheckout(d))
		checkoutGroup.PUT("/shipping", SetShipping(d))
		checkoutGroup.PUT("/method", SetShippingMethod(d))
		checkoutGroup.PUT("/promo", ApplyPromo(d))
		checkoutGroup.POST("/order", SubmitOrder(d))
		checkoutGroup.POST("/payment", SubmitPayment(d))
		checkoutGroup.POST("/retry", RetryCheckout(d))
	}
}
