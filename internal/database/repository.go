package database

import (
	"context"
	"errors"
	"time"

	"storefront/internal/models"
)

var (
	ErrNotFound  = errors.New("database: not found")
	ErrDuplicate = errors.New("database: duplicate")
)

// OrderRecord is an order as the stub stores it. Money is kept as a decimal
// string.
type OrderRecord struct {
	ID              string             `bson:"_id" json:"id"`
	Number          string             `bson:"number" json:"orderNumber"`
	UserID          string             `bson:"userId" json:"userId"`
	Items           []models.OrderItem `bson:"items" json:"orderItems"`
	ShippingAddress string             `bson:"shippingAddress" json:"shippingAddress"`
	ShippingMethod  string             `bson:"shippingMethod,omitempty" json:"shippingMethod,omitempty"`
	Total           string             `bson:"total" json:"total"`
	Status          models.OrderStatus `bson:"status" json:"status"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
}

type PaymentRecord struct {
	ID             string               `bson:"_id" json:"id"`
	Number         string               `bson:"number" json:"paymentNumber"`
	OrderID        string               `bson:"orderId" json:"orderId"`
	UserID         string               `bson:"userId" json:"userId"`
	Method         models.PaymentMethod `bson:"method" json:"paymentMethod"`
	Amount         string               `bson:"amount" json:"amount"`
	Status         models.PaymentStatus `bson:"status" json:"status"`
	IdempotencyKey string               `bson:"idempotencyKey,omitempty" json:"-"`
	CreatedAt      time.Time            `bson:"createdAt" json:"createdAt"`
}

type Repository interface {
	// SetCartLine stores an absolute quantity; zero deletes the line.
	SetCartLine(ctx context.Context, userID, productID string, quantity int) error
	CartLines(ctx context.Context, userID string) (map[string]int, error)

	CreateOrder(ctx context.Context, order OrderRecord) error
	FindOrder(ctx context.Context, id string) (OrderRecord, error)
	FindOrderByNumber(ctx context.Context, number string) (OrderRecord, error)
	SetOrderStatus(ctx context.Context, id string, status models.OrderStatus) error
	// ListOrders returns one page of the user's orders, newest first, and
	// the total count.
	ListOrders(ctx context.Context, userID string, page, limit int64) ([]OrderRecord, int64, error)

	// CreatePayment fails with ErrDuplicate when the order already has a
	// payment or the idempotency key was used before.
	CreatePayment(ctx context.Context, payment PaymentRecord) error
	FindPaymentByKey(ctx context.Context, key string) (PaymentRecord, error)
}
