package stub

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/database"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/remote"
)

const msgAlreadyPaid = "order already paid"

func validatePaymentRequest(req remote.PaymentRequest) string {
	if req.OrderID == "" && req.OrderNumber == "" {
		return "orderId or orderNumber is required"
	}
	if !req.Amount.IsPositive() {
		return "amount must be positive"
	}
	switch req.PaymentMethod {
	case models.PaymentCard:
		if req.CreditCardDetails == nil || len(req.CreditCardDetails.CardNumber) < 13 {
			return "creditCardDetails are required"
		}
	case models.PaymentWallet:
		if req.PaypalDetails == nil || strings.TrimSpace(req.PaypalDetails.Email) == "" {
			return "paypalDetails are required"
		}
	default:
		return "unsupported paymentMethod"
	}
	return ""
}

// CreatePayment accepts at most one payment per order. A request repeating
// an Idempotency-Key gets the first response again.
func (s *Server) CreatePayment() gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /payments"
		defer s.handlePanic(c, route)
		ctx := c.Request.Context()

		var req remote.PaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			s.respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}
		if msg := validatePaymentRequest(req); msg != "" {
			s.respondWithError(c, http.StatusBadRequest, route, msg)
			return
		}

		userID := middleware.UserID(c)
		key := strings.TrimSpace(c.GetHeader(remote.HeaderIdempotencyKey))

		order, err := s.findOrder(c, req)
		if err != nil {
			s.storeFailure(c, route, err)
			return
		}
		if order.UserID != userID {
			s.respondWithError(c, http.StatusNotFound, route, "not found")
			return
		}

		if key != "" {
			prior, err := s.repo.FindPaymentByKey(ctx, key)
			switch {
			case err == nil && prior.OrderID == order.ID:
				s.log.Info("replaying payment", zap.String("idempotencyKey", key))
				c.JSON(http.StatusOK, remote.PaymentResponse{PaymentNumber: prior.Number, OrderNumber: order.Number})
				return
			case err == nil:
				s.respondWithError(c, http.StatusUnprocessableEntity, route, "idempotency key reused for another order")
				return
			case !errors.Is(err, database.ErrNotFound):
				s.storeFailure(c, route, err)
				return
			}
		}

		if order.Status == models.OrderConfirmed {
			s.respondWithError(c, http.StatusConflict, route, msgAlreadyPaid)
			return
		}
		if !req.Amount.Round(2).Equal(decimalOf(order.Total)) {
			s.respondWithError(c, http.StatusBadRequest, route, "amount does not match order total")
			return
		}

		payment := database.PaymentRecord{
			ID:             s.newID(),
			Number:         "PAY-" + s.shortID(),
			OrderID:        order.ID,
			UserID:         userID,
			Method:         req.PaymentMethod,
			Amount:         req.Amount.StringFixed(2),
			Status:         models.PaymentCompleted,
			IdempotencyKey: key,
			CreatedAt:      s.now().UTC(),
		}
		if err := s.repo.CreatePayment(ctx, payment); err != nil {
			if errors.Is(err, database.ErrDuplicate) {
				s.respondWithError(c, http.StatusConflict, route, msgAlreadyPaid)
				return
			}
			s.storeFailure(c, route, err)
			return
		}
		if err := s.repo.SetOrderStatus(ctx, order.ID, models.OrderConfirmed); err != nil {
			s.storeFailure(c, route, err)
			return
		}

		s.log.Info("payment accepted",
			zap.String("orderNumber", order.Number),
			zap.String("paymentNumber", payment.Number),
		)
		c.JSON(http.StatusCreated, remote.PaymentResponse{PaymentNumber: payment.Number, OrderNumber: order.Number})
	}
}

func (s *Server) findOrder(c *gin.Context, req remote.PaymentRequest) (database.OrderRecord, error) {
	if req.OrderID != "" {
		return s.repo.FindOrder(c.Request.Context(), req.OrderID)
	}
	return s.repo.FindOrderByNumber(c.Request.Context(), req.OrderNumber)
}
