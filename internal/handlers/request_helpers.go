package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/shoperr"
	"storefront/internal/storefront"
)

// Deps is what every local API handler needs.
type Deps struct {
	Shop *storefront.Storefront
	Log  *zap.Logger
}

func (d Deps) handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		d.Log.Error("panic recovered", zap.String("route", route), zap.Any("panic", r))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// respondWithError writes err as {"error", "fields"} with the status its
// code maps to. Errors outside the taxonomy are internal errors.
func (d Deps) respondWithError(c *gin.Context, route string, err error) {
	var shopErr *shoperr.Error
	if !errors.As(err, &shopErr) {
		d.Log.Error("unclassified error", zap.String("route", route), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	status := shoperr.HTTPStatus(err)
	d.Log.Info("returning error",
		zap.String("route", route),
		zap.Int("status", status),
		zap.Stringer("code", shopErr.Code),
		zap.Error(err),
	)
	body := gin.H{"error": shopErr.Message, "code": shopErr.Code.String()}
	if len(shopErr.Fields) > 0 {
		body["fields"] = shopErr.Fields
	}
	c.AbortWithStatusJSON(status, body)
}

// bindJSON decodes the body into v and answers 400 on failure.
func (d Deps) bindJSON(c *gin.Context, route string, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		d.respondWithError(c, route, shoperr.NewFieldError("body", "invalid request body"))
		return false
	}
	return true
}
