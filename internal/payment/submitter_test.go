package payment

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"storefront/internal/models"
	"storefront/internal/remote"
	"storefront/internal/retry"
	"storefront/internal/shoperr"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) SubmitPayment(ctx context.Context, key string, req remote.PaymentRequest) (remote.PaymentResponse, error) {
	args := m.Called(ctx, key, req)
	return args.Get(0).(remote.PaymentResponse), args.Error(1)
}

func march2026() time.Time {
	return time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
}

func newSubmitter(t *testing.T, client Client, opts ...Option) *Submitter {
	t.Helper()
	base := []Option{
		WithClock(march2026),
		WithKeyGenerator(func() string { return "idem-1" }),
		WithRetry(retry.Policy{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}),
	}
	return NewSubmitter(client, zaptest.NewLogger(t), append(base, opts...)...)
}

func validCard() CardPayment {
	return CardPayment{Number: "4111 1111 1111 1111", HolderName: "Ada Lovelace", Expiry: "12/28", CVV: "123"}
}

func cardRequest() Request {
	return Request{
		UserID:  "u-1",
		Order:   OrderRef{ID: "o-1", Number: "ORD-1"},
		Amount:  decimal.RequireFromString("27.59"),
		Details: validCard(),
	}
}

func TestCardPaymentBuildsCardPayload(t *testing.T) {
	client := &mockClient{}
	client.On("SubmitPayment", mock.Anything, "idem-1", mock.MatchedBy(func(req remote.PaymentRequest) bool {
		return req.PaymentMethod == models.PaymentCard &&
			req.CreditCardDetails != nil &&
			req.CreditCardDetails.CardNumber == "4111111111111111" &&
			req.PaypalDetails == nil &&
			req.OrderID == "o-1" &&
			req.Amount.Equal(decimal.RequireFromString("27.59"))
	})).Return(remote.PaymentResponse{PaymentNumber: "PAY-1", OrderNumber: "ORD-1"}, nil).Once()

	receipt, err := newSubmitter(t, client).Submit(context.Background(), cardRequest())
	require.NoError(t, err)
	assert.Equal(t, models.Receipt{PaymentNumber: "PAY-1", OrderNumber: "ORD-1"}, receipt)
	client.AssertExpectations(t)
}

func TestWalletPaymentBuildsWalletPayload(t *testing.T) {
	client := &mockClient{}
	client.On("SubmitPayment", mock.Anything, "idem-1", mock.MatchedBy(func(req remote.PaymentRequest) bool {
		return req.PaymentMethod == models.PaymentWallet &&
			req.PaypalDetails != nil && req.PaypalDetails.Email == "ada@example.com" &&
			req.CreditCardDetails == nil
	})).Return(remote.PaymentResponse{PaymentNumber: "PAY-2"}, nil).Once()

	req := cardRequest()
	req.Details = WalletPayment{Email: "ada@example.com"}
	receipt, err := newSubmitter(t, client).Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", receipt.OrderNumber, "falls back to the order reference")
	client.AssertExpectations(t)
}

func TestShortCardNumberNeverReachesNetwork(t *testing.T) {
	client := &mockClient{}
	req := cardRequest()
	card := validCard()
	card.Number = "4111 1111 1111"
	req.Details = card

	_, err := newSubmitter(t, client).Submit(context.Background(), req)
	require.Error(t, err)
	assert.True(t, shoperr.IsValidation(err))
	assert.Contains(t, shoperr.FieldsOf(err), "number")
	client.AssertNotCalled(t, "SubmitPayment", mock.Anything, mock.Anything, mock.Anything)
}

func TestExpiredCardIsRejected(t *testing.T) {
	client := &mockClient{}
	req := cardRequest()
	card := validCard()
	card.Expiry = "01/20"
	req.Details = card

	_, err := newSubmitter(t, client).Submit(context.Background(), req)
	assert.Equal(t, "has expired", shoperr.FieldsOf(err)["expiry"])
	client.AssertNotCalled(t, "SubmitPayment", mock.Anything, mock.Anything, mock.Anything)
}

func TestCurrentMonthIsNotExpired(t *testing.T) {
	client := &mockClient{}
	client.On("SubmitPayment", mock.Anything, mock.Anything, mock.Anything).Return(remote.PaymentResponse{PaymentNumber: "PAY-1"}, nil)
	req := cardRequest()
	card := validCard()
	card.Expiry = "03/26"
	req.Details = card

	_, err := newSubmitter(t, client).Submit(context.Background(), req)
	assert.NoError(t, err)
}

func TestWalletNeedsEmail(t *testing.T) {
	req := cardRequest()
	req.Details = WalletPayment{}
	err := newSubmitter(t, &mockClient{}).Validate(req)
	assert.Equal(t, map[string]string{"email": "is required"}, shoperr.FieldsOf(err))
}

func TestMissingDetailsAndAmount(t *testing.T) {
	err := newSubmitter(t, &mockClient{}).Validate(Request{UserID: "u-1", Order: OrderRef{Number: "ORD-1"}})
	assert.Equal(t, map[string]string{
		"amount":        "must be greater than zero",
		"paymentMethod": "is required",
	}, shoperr.FieldsOf(err))
}

func TestSecondPaymentForPaidOrderIsConflict(t *testing.T) {
	client := &mockClient{}
	client.On("SubmitPayment", mock.Anything, mock.Anything, mock.Anything).
		Return(remote.PaymentResponse{PaymentNumber: "PAY-1", OrderNumber: "ORD-1"}, nil).Once()
	s := newSubmitter(t, client)

	_, err := s.Submit(context.Background(), cardRequest())
	require.NoError(t, err)
	assert.True(t, s.Paid(OrderRef{ID: "o-1"}))

	_, err = s.Submit(context.Background(), cardRequest())
	require.Error(t, err)
	assert.True(t, shoperr.IsConflict(err))
	assert.Contains(t, err.Error(), shoperr.MsgAlreadyPaid)
	client.AssertNumberOfCalls(t, "SubmitPayment", 1)
}

func TestRemoteConflictUsesAlreadyPaidMessage(t *testing.T) {
	client := &mockClient{}
	client.On("SubmitPayment", mock.Anything, mock.Anything, mock.Anything).
		Return(remote.PaymentResponse{}, shoperr.FromStatus("POST /payments", http.StatusConflict, "payment exists")).Once()
	s := newSubmitter(t, client)

	_, err := s.Submit(context.Background(), cardRequest())
	require.Error(t, err)
	var serr *shoperr.Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, shoperr.Conflict, serr.Code)
	assert.Equal(t, shoperr.MsgAlreadyPaid, serr.Message)
	client.AssertNumberOfCalls(t, "SubmitPayment", 1)
	assert.True(t, s.Paid(OrderRef{ID: "o-1"}))
}

func TestTransientRetriedWithSameKey(t *testing.T) {
	client := &mockClient{}
	client.On("SubmitPayment", mock.Anything, "idem-1", mock.Anything).
		Return(remote.PaymentResponse{}, shoperr.NewTransient("POST /payments", errors.New("timeout"))).Once()
	client.On("SubmitPayment", mock.Anything, "idem-1", mock.Anything).
		Return(remote.PaymentResponse{PaymentNumber: "PAY-1", OrderNumber: "ORD-1"}, nil).Once()

	receipt, err := newSubmitter(t, client).Submit(context.Background(), cardRequest())
	require.NoError(t, err)
	assert.Equal(t, "PAY-1", receipt.PaymentNumber)
	client.AssertExpectations(t)
}

func TestServerErrorIsNotRetried(t *testing.T) {
	client := &mockClient{}
	client.On("SubmitPayment", mock.Anything, mock.Anything, mock.Anything).
		Return(remote.PaymentResponse{}, shoperr.NewServer("POST /payments", 500, "")).Once()
	s := newSubmitter(t, client)

	_, err := s.Submit(context.Background(), cardRequest())
	assert.True(t, shoperr.IsServer(err))
	client.AssertNumberOfCalls(t, "SubmitPayment", 1)
	assert.False(t, s.Paid(OrderRef{ID: "o-1"}))
}

type blockingClient struct {
	entered chan struct{}
	release chan struct{}
	mu      sync.Mutex
	calls   int
}

func (b *blockingClient) SubmitPayment(ctx context.Context, _ string, _ remote.PaymentRequest) (remote.PaymentResponse, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	close(b.entered)
	<-b.release
	return remote.PaymentResponse{PaymentNumber: "PAY-1"}, nil
}

func TestConcurrentSubmitIsRejected(t *testing.T) {
	client := &blockingClient{entered: make(chan struct{}), release: make(chan struct{})}
	s := newSubmitter(t, client)

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), cardRequest())
		done <- err
	}()
	<-client.entered

	_, err := s.Submit(context.Background(), cardRequest())
	require.Error(t, err)
	assert.True(t, shoperr.IsConflict(err))
	assert.Contains(t, err.Error(), shoperr.MsgPaymentInFlight)

	close(client.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, client.calls)
}
