package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"storefront/internal/models"
	"storefront/internal/shoperr"
)

type addItemRequest struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	ImageURL  string          `json:"imageUrl"`
	Quantity  int             `json:"quantity"`
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type cartResponse struct {
	Items     []models.CartItem `json:"items"`
	ItemCount int               `json:"itemCount"`
	Total     decimal.Decimal   `json:"total"`
}

func cartBody(c models.Cart) cartResponse {
	return cartResponse{Items: c.Items(), ItemCount: c.ItemCount(), Total: c.Total()}
}

func GetCart(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer d.handlePanic(c, "GET /cart")
		c.JSON(http.StatusOK, cartBody(d.Shop.Cart().Snapshot()))
	}
}

func AddCartItem(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /cart/items"
		defer d.handlePanic(c, route)

		var req addItemRequest
		if !d.bindJSON(c, route, &req) {
			return
		}
		if req.Quantity == 0 {
			req.Quantity = 1
		}
		product := models.Product{ID: req.ProductID, Name: req.Name, Price: req.Price, ImageURL: req.ImageURL}
		if err := d.Shop.Cart().Add(product, req.Quantity); err != nil {
			d.respondWithError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, cartBody(d.Shop.Cart().Snapshot()))
	}
}

// UpdateCartItem sets a line quantity; zero or less removes the line.
func UpdateCartItem(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /cart/items/:id"
		defer d.handlePanic(c, route)

		line, ok := d.Shop.Cart().Snapshot().FindByID(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "cart item not found"})
			return
		}
		var req updateQuantityRequest
		if !d.bindJSON(c, route, &req) {
			return
		}
		d.Shop.Cart().UpdateQuantity(line.ProductID, *req.Quantity)
		c.JSON(http.StatusOK, cartBody(d.Shop.Cart().Snapshot()))
	}
}

func RemoveCartItem(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer d.handlePanic(c, "DELETE /cart/items/:id")
		if line, ok := d.Shop.Cart().Snapshot().FindByID(c.Param("id")); ok {
			d.Shop.Cart().Remove(line.ProductID)
		}
		c.JSON(http.StatusOK, cartBody(d.Shop.Cart().Snapshot()))
	}
}

func ClearCart(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer d.handlePanic(c, "DELETE /cart")
		d.Shop.Cart().Clear()
		c.JSON(http.StatusOK, cartBody(d.Shop.Cart().Snapshot()))
	}
}

// QuoteCart prices the live cart with the promo and method query params.
func QuoteCart(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /cart/quote"
		defer d.handlePanic(c, route)

		method, ok := models.ParseShippingMethod(c.Query("method"))
		if !ok {
			d.respondWithError(c, route, shoperr.NewFieldError("shippingMethod", "is not a supported shipping method"))
			return
		}
		quote, err := d.Shop.Quote(c.Query("promo"), method)
		if err != nil {
			d.respondWithError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, quote)
	}
}

func GetSyncStatus(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer d.handlePanic(c, "GET /cart/sync")
		c.JSON(http.StatusOK, d.Shop.SyncStatus())
	}
}

// Resync starts a full push of the cart and returns immediately.
func Resync(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /cart/sync"
		defer d.handlePanic(c, route)

		if err := d.Shop.Resync(); err != nil {
			d.respondWithError(c, route, err)
			return
		}
		c.JSON(http.StatusAccepted, d.Shop.SyncStatus())
	}
}
