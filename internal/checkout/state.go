package checkout

import (
	"errors"

	"storefront/internal/shoperr"
)

type State string

const (
	Shipping          State = "shipping"
	Validating        State = "validating"
	SubmittingOrder   State = "submitting-order"
	OrderCreated      State = "order-created"
	SubmittingPayment State = "submitting-payment"
	Confirmed         State = "confirmed"
	Failed            State = "failed"
)

// IsTerminal reports whether no further transition can leave s on its own.
func (s State) IsTerminal() bool {
	return s == Confirmed || s == Failed
}

// Failure is the reason a checkout ended in Failed.
type Failure struct {
	Code    shoperr.Code `json:"-"`
	Kind    string       `json:"kind"`
	Message string       `json:"message"`
	// Retryable is true when Retry may resume the checkout.
	Retryable bool `json:"retryable"`
}

func failureFrom(err error) *Failure {
	code := shoperr.CodeOf(err)
	msg := err.Error()
	var serr *shoperr.Error
	if errors.As(err, &serr) {
		msg = serr.Message
	}
	return &Failure{
		Code:      code,
		Kind:      code.String(),
		Message:   msg,
		Retryable: code != shoperr.Conflict && code != shoperr.Validation,
	}
}

// Transition is handed to listeners after every state change.
type Transition struct {
	From State
	To   State
}
