// Package remote talks to the authoritative order and payment service.
// Every error it returns is a classified shoperr.Error.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"storefront/internal/shoperr"
)

const (
	PathCartItems = "/carts/current/items"
	PathOrders    = "/orders"
	PathPayments  = "/payments"

	HeaderIdempotencyKey = "Idempotency-Key"

	maxErrorBody = 64 << 10
)

// Session supplies the bearer token and receives the session-expired signal.
type Session interface {
	Token() string
	Expire()
}

type Client struct {
	baseURL string
	http    *http.Client
	session Session
	log     *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, timeout time.Duration, session Session, log *zap.Logger, opts ...Option) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		session: session,
		log:     log.Named("remote"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddCartItem sets the remote quantity of one product.
func (c *Client) AddCartItem(ctx context.Context, line CartLine) error {
	return c.do(ctx, http.MethodPost, PathCartItems, "", line, nil)
}

func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (CreateOrderResponse, error) {
	var resp CreateOrderResponse
	if err := c.do(ctx, http.MethodPost, PathOrders, "", req, &resp); err != nil {
		return CreateOrderResponse{}, err
	}
	if resp.ID == "" {
		return CreateOrderResponse{}, shoperr.NewServer("POST "+PathOrders, http.StatusOK, "order response missing id")
	}
	return resp, nil
}

// SubmitPayment posts one payment. idempotencyKey must stay the same across
// retries of the same logical submission.
func (c *Client) SubmitPayment(ctx context.Context, idempotencyKey string, req PaymentRequest) (PaymentResponse, error) {
	var resp PaymentResponse
	if err := c.do(ctx, http.MethodPost, PathPayments, idempotencyKey, req, &resp); err != nil {
		return PaymentResponse{}, err
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path, idempotencyKey string, body, out any) error {
	op := method + " " + path

	token := c.session.Token()
	if token == "" {
		// a locally expired token still has to reach the identity owner
		c.session.Expire()
		return shoperr.NewAuth(op, 0)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return shoperr.NewServer(op, 0, fmt.Sprintf("encode request: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return shoperr.NewServer(op, 0, fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if idempotencyKey != "" {
		req.Header.Set(HeaderIdempotencyKey, idempotencyKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed", zap.String("op", op), zap.Error(err))
		return shoperr.FromTransport(op, err)
	}
	defer resp.Body.Close()

	c.log.Debug("response",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		classified := shoperr.FromStatus(op, resp.StatusCode, readErrorMessage(resp.Body))
		if classified.Code == shoperr.Auth {
			c.session.Expire()
		}
		c.log.Warn("request rejected",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.Stringer("code", classified.Code),
		)
		return classified
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return shoperr.FromTransport(op, ctx.Err())
		}
		return shoperr.NewServer(op, resp.StatusCode, "malformed response body")
	}
	return nil
}

func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if body.Error != "" {
		return body.Error
	}
	return body.Message
}
