package models

type PaymentMethod string

const (
	PaymentCard   PaymentMethod = "credit_card"
	PaymentWallet PaymentMethod = "paypal"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Receipt is what a successful payment hands back.
type Receipt struct {
	PaymentNumber string `json:"paymentNumber"`
	OrderNumber   string `json:"orderNumber"`
}
