package payment

import (
	"storefront/internal/models"
	"storefront/internal/remote"
	"storefront/internal/validation"
)

// Details is the method-specific part of a payment. The set of
// implementations is closed: CardPayment and WalletPayment.
type Details interface {
	Method() models.PaymentMethod
	apply(req *remote.PaymentRequest)
}

type CardPayment struct {
	Number     string `json:"number" validate:"required,cardnumber"`
	HolderName string `json:"holderName" validate:"required"`
	// Expiry is MM/YY.
	Expiry string `json:"expiry" validate:"required,expiry,notexpired"`
	CVV    string `json:"cvv" validate:"required,cvv"`
}

func (CardPayment) Method() models.PaymentMethod { return models.PaymentCard }

func (c CardPayment) apply(req *remote.PaymentRequest) {
	req.CreditCardDetails = &remote.CreditCardDetails{
		CardNumber:     validation.StripSpaces(c.Number),
		CardHolderName: c.HolderName,
		ExpiryDate:     c.Expiry,
		CVV:            c.CVV,
	}
}

type WalletPayment struct {
	Email string `json:"email" validate:"required"`
	Token string `json:"token,omitempty"`
}

func (WalletPayment) Method() models.PaymentMethod { return models.PaymentWallet }

func (w WalletPayment) apply(req *remote.PaymentRequest) {
	req.PaypalDetails = &remote.PaypalDetails{Email: w.Email, Token: w.Token}
}
