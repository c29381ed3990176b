package stub

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/database"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/remote"
)

func validateOrderRequest(req remote.CreateOrderRequest) string {
	if len(req.OrderItems) == 0 {
		return "orderItems must not be empty"
	}
	for _, item := range req.OrderItems {
		if strings.TrimSpace(item.ProductID) == "" || item.Quantity < 1 {
			return "each order item needs a productId and a positive quantity"
		}
	}
	if strings.TrimSpace(req.ShippingAddress) == "" {
		return "shippingAddress is required"
	}
	if req.Total.IsNegative() {
		return "total must not be negative"
	}
	return ""
}

func decimalOf(amount string) decimal.Decimal {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func orderResponse(order database.OrderRecord) remote.CreateOrderResponse {
	total := decimalOf(order.Total)
	return remote.CreateOrderResponse{
		ID:          order.ID,
		OrderNumber: order.Number,
		Status:      order.Status,
		Total:       &total,
	}
}

// CreateOrder stores a pending order for the caller.
func (s *Server) CreateOrder() gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders"
		defer s.handlePanic(c, route)

		var req remote.CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			s.respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}
		if msg := validateOrderRequest(req); msg != "" {
			s.respondWithError(c, http.StatusBadRequest, route, msg)
			return
		}

		userID := middleware.UserID(c)
		if req.UserID != "" && req.UserID != userID {
			s.respondWithError(c, http.StatusForbidden, route, "userId does not match token")
			return
		}

		order := database.OrderRecord{
			ID:              s.newID(),
			Number:          "ORD-" + s.shortID(),
			UserID:          userID,
			Items:           req.OrderItems,
			ShippingAddress: req.ShippingAddress,
			ShippingMethod:  string(req.ShippingMethod),
			Total:           req.Total.StringFixed(2),
			Status:          models.OrderPending,
			CreatedAt:       s.now().UTC(),
		}
		if err := s.repo.CreateOrder(c.Request.Context(), order); err != nil {
			s.storeFailure(c, route, err)
			return
		}

		s.log.Info("order created", zap.String("orderId", order.ID), zap.String("orderNumber", order.Number))
		c.JSON(http.StatusCreated, orderResponse(order))
	}
}

func (s *Server) GetOrder() gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders/:id"
		defer s.handlePanic(c, route)

		order, err := s.repo.FindOrder(c.Request.Context(), c.Param("id"))
		if err != nil {
			s.storeFailure(c, route, err)
			return
		}
		if order.UserID != middleware.UserID(c) {
			s.respondWithError(c, http.StatusNotFound, route, "not found")
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// historyQuery pages through order history; page starts at 1.
type historyQuery struct {
	Page  int64 `form:"page,default=1" binding:"min=1"`
	Limit int64 `form:"limit,default=20" binding:"min=1,max=100"`
}

const msgBadHistoryQuery = "page must be at least 1 and limit between 1 and 100"

// ListOrders is the caller's order history, newest first.
func (s *Server) ListOrders() gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders"
		defer s.handlePanic(c, route)

		var q historyQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			s.respondWithError(c, http.StatusBadRequest, route, msgBadHistoryQuery)
			return
		}

		orders, total, err := s.repo.ListOrders(c.Request.Context(), middleware.UserID(c), q.Page, q.Limit)
		if err != nil {
			s.storeFailure(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"orders": orders,
			"page":   q.Page,
			"limit":  q.Limit,
			"total":  total,
		})
	}
}
