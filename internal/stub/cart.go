package stub

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/internal/middleware"
	"storefront/internal/remote"
)

// SetCartItem stores the absolute quantity of one product; 0 removes it.
func (s *Server) SetCartItem() gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /carts/current/items"
		defer s.handlePanic(c, route)

		var line remote.CartLine
		if err := c.ShouldBindJSON(&line); err != nil {
			s.respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}
		if strings.TrimSpace(line.ProductID) == "" || line.Quantity < 0 {
			s.respondWithError(c, http.StatusBadRequest, route, "productId and a non-negative quantity are required")
			return
		}

		userID := middleware.UserID(c)
		if err := s.repo.SetCartLine(c.Request.Context(), userID, line.ProductID, line.Quantity); err != nil {
			s.storeFailure(c, route, err)
			return
		}
		lines, err := s.repo.CartLines(c.Request.Context(), userID)
		if err != nil {
			s.storeFailure(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": lines})
	}
}

func (s *Server) GetCart() gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /carts/current"
		defer s.handlePanic(c, route)

		lines, err := s.repo.CartLines(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			s.storeFailure(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"items": lines})
	}
}
