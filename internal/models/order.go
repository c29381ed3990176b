package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending          OrderStatus = "pending"
	OrderPaymentSubmitted OrderStatus = "payment-submitted"
	OrderConfirmed        OrderStatus = "confirmed"
	OrderFailed           OrderStatus = "failed"
)

type ShippingMethod string

const (
	ShippingStandard  ShippingMethod = "standard"
	ShippingExpress   ShippingMethod = "express"
	ShippingOvernight ShippingMethod = "overnight"
)

func ParseShippingMethod(raw string) (ShippingMethod, bool) {
	switch ShippingMethod(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ShippingStandard:
		return ShippingStandard, true
	case ShippingExpress:
		return ShippingExpress, true
	case ShippingOvernight:
		return ShippingOvernight, true
	default:
		return "", false
	}
}

// OrderItem is the wire shape of an order line.
type OrderItem struct {
	ProductID string `json:"productId" bson:"productId"`
	Quantity  int    `json:"quantity" bson:"quantity"`
}

// Order is the client-side record of a created order. Items is the cart
// snapshot it was created from and never changes afterwards.
type Order struct {
	ID              string          `json:"id"`
	Number          string          `json:"orderNumber"`
	Status          OrderStatus     `json:"status"`
	Items           []CartItem      `json:"itemsSnapshot"`
	ShippingAddress string          `json:"shippingAddress"`
	ShippingMethod  ShippingMethod  `json:"shippingMethod"`
	Total           decimal.Decimal `json:"total"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// OrderItemsFrom maps cart lines to the wire shape.
func OrderItemsFrom(items []CartItem) []OrderItem {
	out := make([]OrderItem, 0, len(items))
	for _, item := range items {
		out = append(out, OrderItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return out
}

// ShippingInfo is the address form. Phone is optional.
type ShippingInfo struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone,omitempty"`
	Address   string `json:"address" validate:"required"`
	City      string `json:"city" validate:"required"`
	State     string `json:"state" validate:"required"`
	Zip       string `json:"zip" validate:"required,zip"`
}

// Normalize trims surrounding whitespace from every field.
func (s ShippingInfo) Normalize() ShippingInfo {
	return ShippingInfo{
		FirstName: strings.TrimSpace(s.FirstName),
		LastName:  strings.TrimSpace(s.LastName),
		Email:     strings.TrimSpace(s.Email),
		Phone:     strings.TrimSpace(s.Phone),
		Address:   strings.TrimSpace(s.Address),
		City:      strings.TrimSpace(s.City),
		State:     strings.TrimSpace(s.State),
		Zip:       strings.TrimSpace(s.Zip),
	}
}

// AddressLine serializes the address the way the order service stores it.
func (s ShippingInfo) AddressLine() string {
	line := fmt.Sprintf("%s %s, %s, %s, %s %s",
		s.FirstName, s.LastName, s.Address, s.City, s.State, s.Zip)
	if s.Phone != "" {
		line += ", " + s.Phone
	}
	return line
}
