// Package payment validates and submits one payment per order.
package payment

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/models"
	"storefront/internal/remote"
	"storefront/internal/retry"
	"storefront/internal/shoperr"
	"storefront/internal/validation"
)

type Client interface {
	SubmitPayment(ctx context.Context, idempotencyKey string, req remote.PaymentRequest) (remote.PaymentResponse, error)
}

// OrderRef identifies the order being paid. At least one field is set.
type OrderRef struct {
	ID     string `json:"orderId,omitempty"`
	Number string `json:"orderNumber,omitempty"`
}

func (r OrderRef) key() string {
	if r.ID != "" {
		return r.ID
	}
	return r.Number
}

type Request struct {
	UserID  string
	Order   OrderRef
	Amount  decimal.Decimal
	Details Details
}

type Submitter struct {
	client    Client
	validator *validation.Validator
	policy    retry.Policy
	log       *zap.Logger
	newKey    func() string

	mu       sync.Mutex
	inflight map[string]struct{}
	paid     map[string]models.Receipt
}

type Option func(*Submitter)

// WithClock sets the clock used for card expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Submitter) { s.validator = validation.New(now) }
}

func WithRetry(p retry.Policy) Option {
	return func(s *Submitter) { s.policy = p }
}

func WithKeyGenerator(fn func() string) Option {
	return func(s *Submitter) { s.newKey = fn }
}

func NewSubmitter(client Client, log *zap.Logger, opts ...Option) *Submitter {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Submitter{
		client:    client,
		validator: validation.New(time.Now),
		log:       log.Named("payment"),
		newKey:    uuid.NewString,
		inflight:  make(map[string]struct{}),
		paid:      make(map[string]models.Receipt),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate runs the local checks Submit runs before any network call.
func (s *Submitter) Validate(req Request) error {
	fields := map[string]string{}
	if req.Order.key() == "" {
		fields["orderId"] = "is required"
	}
	if !req.Amount.IsPositive() {
		fields["amount"] = "must be greater than zero"
	}
	if strings.TrimSpace(req.UserID) == "" {
		fields["userId"] = "is required"
	}
	if req.Details == nil {
		fields["paymentMethod"] = "is required"
	} else if err := s.validator.Struct(req.Details); err != nil {
		for k, v := range shoperr.FieldsOf(err) {
			fields[k] = v
		}
	}
	if len(fields) > 0 {
		return shoperr.NewValidation(fields)
	}
	return nil
}

// Submit charges the order once. A second submit for an order that was
// already paid, or one racing an in-flight submit, is a conflict and sends
// nothing. Transient failures are retried under the same idempotency key.
func (s *Submitter) Submit(ctx context.Context, req Request) (models.Receipt, error) {
	const op = "submit payment"

	if err := s.Validate(req); err != nil {
		return models.Receipt{}, err
	}

	orderKey := req.Order.key()
	s.mu.Lock()
	if _, ok := s.paid[orderKey]; ok {
		s.mu.Unlock()
		return models.Receipt{}, shoperr.NewConflict(op, shoperr.MsgAlreadyPaid)
	}
	if _, ok := s.inflight[orderKey]; ok {
		s.mu.Unlock()
		return models.Receipt{}, shoperr.NewConflict(op, shoperr.MsgPaymentInFlight)
	}
	s.inflight[orderKey] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inflight, orderKey)
		s.mu.Unlock()
	}()

	body := remote.PaymentRequest{
		UserID:        req.UserID,
		Amount:        req.Amount.Round(2),
		PaymentMethod: req.Details.Method(),
		OrderID:       req.Order.ID,
		OrderNumber:   req.Order.Number,
	}
	req.Details.apply(&body)

	key := s.newKey()
	log := s.log.With(zap.String("order", orderKey), zap.String("idempotencyKey", key), zap.String("method", string(body.PaymentMethod)))

	var resp remote.PaymentResponse
	err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		var err error
		resp, err = s.client.SubmitPayment(ctx, key, body)
		return err
	}, func(err error, wait time.Duration) {
		log.Warn("payment attempt failed, retrying", zap.Duration("wait", wait), zap.Error(err))
	})
	if err != nil {
		if shoperr.IsConflict(err) {
			s.markPaid(orderKey, models.Receipt{OrderNumber: req.Order.Number})
			err = shoperr.NewConflict(op, shoperr.MsgAlreadyPaid)
		}
		log.Warn("payment failed", zap.Stringer("code", shoperr.CodeOf(err)), zap.Error(err))
		return models.Receipt{}, err
	}

	receipt := models.Receipt{PaymentNumber: resp.PaymentNumber, OrderNumber: resp.OrderNumber}
	if receipt.OrderNumber == "" {
		receipt.OrderNumber = req.Order.Number
	}
	s.markPaid(orderKey, receipt)
	log.Info("payment accepted", zap.String("paymentNumber", receipt.PaymentNumber))
	return receipt, nil
}

// Paid reports whether the order is known to be paid.
func (s *Submitter) Paid(order OrderRef) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.paid[order.key()]
	return ok
}

func (s *Submitter) markPaid(orderKey string, receipt models.Receipt) {
	s.mu.Lock()
	s.paid[orderKey] = receipt
	s.mu.Unlock()
}
