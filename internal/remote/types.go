package remote

import (
	"github.com/shopspring/decimal"

	"storefront/internal/models"
)

// CartLine sets the absolute quantity of a product in the remote cart.
// Quantity 0 removes the product.
type CartLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type CreateOrderRequest struct {
	UserID          string                `json:"userId"`
	ShippingAddress string                `json:"shippingAddress"`
	ShippingMethod  models.ShippingMethod `json:"shippingMethod,omitempty"`
	OrderItems      []models.OrderItem    `json:"orderItems"`
	Total           decimal.Decimal       `json:"total"`
}

type CreateOrderResponse struct {
	ID          string             `json:"id"`
	OrderNumber string             `json:"orderNumber"`
	Status      models.OrderStatus `json:"status,omitempty"`
	Total       *decimal.Decimal   `json:"total,omitempty"`
}

type CreditCardDetails struct {
	CardNumber     string `json:"cardNumber"`
	CardHolderName string `json:"cardHolderName"`
	ExpiryDate     string `json:"expiryDate"`
	CVV            string `json:"cvv"`
}

type PaypalDetails struct {
	Email string `json:"email"`
	Token string `json:"token,omitempty"`
}

type PaymentRequest struct {
	UserID            string               `json:"userId"`
	Amount            decimal.Decimal      `json:"amount"`
	PaymentMethod     models.PaymentMethod `json:"paymentMethod"`
	OrderID           string               `json:"orderId,omitempty"`
	OrderNumber       string               `json:"orderNumber,omitempty"`
	CreditCardDetails *CreditCardDetails   `json:"creditCardDetails,omitempty"`
	PaypalDetails     *PaypalDetails       `json:"paypalDetails,omitempty"`
}

type PaymentResponse struct {
	PaymentNumber string `json:"paymentNumber"`
	OrderNumber   string `json:"orderNumber"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
