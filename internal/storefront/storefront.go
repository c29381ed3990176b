// Package storefront wires the cart, the session, the synchronizer and the
// checkout pipeline into the object the local API talks to. It is the cart
// lifecycle owner: the cart is cleared when a checkout is confirmed.
package storefront

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"storefront/internal/cart"
	"storefront/internal/cartsync"
	"storefront/internal/checkout"
	"storefront/internal/identity"
	"storefront/internal/models"
	"storefront/internal/payment"
	"storefront/internal/pricing"
	"storefront/internal/remote"
	"storefront/internal/retry"
	"storefront/internal/shoperr"
	"storefront/internal/storage"
	"storefront/internal/validation"
)

// Remote is the slice of the remote client the storefront needs.
type Remote interface {
	cartsync.Pusher
	checkout.OrderClient
	payment.Client
}

type Deps struct {
	Storage storage.Store
	// NewRemote builds the remote client around the restored session, which
	// it must expire on authorization failures.
	NewRemote   func(session remote.Session) Remote
	Calculator  *pricing.Calculator
	SyncRetry   retry.Policy
	PayRetry    retry.Policy
	Concurrency int
	Now         func() time.Time
	Log         *zap.Logger
}

type Storefront struct {
	store      storage.Store
	cart       *cart.Store
	session    *identity.Session
	sync       *cartsync.Synchronizer
	remote     Remote
	payments   *payment.Submitter
	calculator *pricing.Calculator
	validator  *validation.Validator
	log        *zap.Logger

	mu          sync.Mutex
	active      *checkout.Orchestrator
	unsubscribe func()
}

// New restores state from storage. Call Start to begin syncing.
func New(d Deps) *Storefront {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Calculator == nil {
		d.Calculator = pricing.Default
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	c := cart.New(d.Storage, d.Log)
	session := identity.Load(d.Storage, d.Log, identity.WithClock(d.Now))
	client := d.NewRemote(session)
	return &Storefront{
		store:   d.Storage,
		cart:    c,
		session: session,
		sync: cartsync.New(c, session, client, d.Storage, cartsync.Config{
			Retry:       d.SyncRetry,
			Concurrency: d.Concurrency,
		}, d.Log),
		remote:     client,
		payments:   payment.NewSubmitter(client, d.Log, payment.WithClock(d.Now), payment.WithRetry(d.PayRetry)),
		calculator: d.Calculator,
		validator:  validation.New(d.Now),
		log:        d.Log.Named("storefront"),
	}
}

func (s *Storefront) Start() {
	s.unsubscribe = s.session.Subscribe(func(e identity.Event) {
		if e.Kind == identity.SignedOut {
			s.mu.Lock()
			s.active = nil
			s.mu.Unlock()
		}
	})
	s.sync.Start()
}

func (s *Storefront) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.sync.Close()
}

// SignIn stores the session; the synchronizer pushes the cart in response.
func (s *Storefront) SignIn(user models.User, token string) error {
	return s.session.SignIn(user, token)
}

// SignOut drops the session and any checkout in progress.
func (s *Storefront) SignOut() {
	s.session.SignOut()
}

func (s *Storefront) SyncStatus() cartsync.Status { return s.sync.Status() }

// Resync pushes the whole cart again.
func (s *Storefront) Resync() error {
	if !s.session.Authenticated() {
		return shoperr.NewAuth("storefront.Resync", 0)
	}
	s.sync.Resync()
	return nil
}

func (s *Storefront) Cart() *cart.Store                   { return s.cart }
func (s *Storefront) Session() *identity.Session          { return s.session }
func (s *Storefront) Synchronizer() *cartsync.Synchronizer { return s.sync }

// Quote prices the live cart.
func (s *Storefront) Quote(promo string, method models.ShippingMethod) (pricing.Quote, error) {
	return s.calculator.Calculate(s.cart.Snapshot(), promo, method)
}

// BeginCheckout freezes the current cart into a new checkout. A checkout
// with a request in flight or an unpaid order is returned as is, so
// reopening the page never starts a second order.
func (s *Storefront) BeginCheckout() (*checkout.Orchestrator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil && resumable(s.active) {
		return s.active, nil
	}

	snapshot := s.cart.Snapshot()
	if snapshot.IsEmpty() {
		return nil, shoperr.NewFieldError("cart", "is empty")
	}

	orch := checkout.New(checkout.Params{
		Snapshot:   snapshot,
		Prefill:    s.prefill(),
		Identity:   s.session,
		Orders:     s.remote,
		Payments:   s.payments,
		Calculator: s.calculator,
		Validator:  s.validator,
		Log:        s.log,
	})
	orch.Subscribe(s.onTransition)
	s.active = orch
	s.log.Info("checkout started", zap.Int("lines", snapshot.Len()))
	return orch, nil
}

// resumable reports whether o is still submitting or holds an order that can
// still be paid.
func resumable(o *checkout.Orchestrator) bool {
	_, hasOrder := o.Order()
	switch o.State() {
	case checkout.Validating, checkout.SubmittingOrder, checkout.SubmittingPayment:
		return true
	case checkout.Confirmed:
		return false
	case checkout.Failed:
		failure := o.View().Failure
		return hasOrder && failure != nil && failure.Retryable
	default:
		return hasOrder
	}
}

// Checkout returns the active checkout.
func (s *Storefront) Checkout() (*checkout.Orchestrator, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.active != nil
}

func (s *Storefront) onTransition(o *checkout.Orchestrator, t checkout.Transition) {
	switch t.To {
	case checkout.OrderCreated:
		if t.From == checkout.SubmittingOrder && o.SaveAddressRequested() {
			s.saveAddress(o.Shipping())
		}
	case checkout.Confirmed:
		s.cart.Clear()
		s.log.Info("cart cleared after confirmed checkout")
	}
}

// prefill prefers the saved address, then the signed-in profile.
func (s *Storefront) prefill() models.ShippingInfo {
	var info models.ShippingInfo
	err := storage.LoadJSON(context.Background(), s.store, storage.KeyShippingAddress, &info)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.log.Warn("discarding saved address", zap.Error(err))
		info = models.ShippingInfo{}
	}
	if user, ok := s.session.Current(); ok {
		profile := user.Prefill()
		if info.FirstName == "" {
			info.FirstName = profile.FirstName
		}
		if info.LastName == "" {
			info.LastName = profile.LastName
		}
		if info.Email == "" {
			info.Email = profile.Email
		}
	}
	return info
}

func (s *Storefront) saveAddress(info models.ShippingInfo) {
	if err := storage.SaveJSON(context.Background(), s.store, storage.KeyShippingAddress, info); err != nil {
		s.log.Error("persist shipping address failed", zap.Error(err))
	}
}

// ForgetAddress deletes the saved shipping address.
func (s *Storefront) ForgetAddress() error {
	return s.store.Delete(context.Background(), storage.KeyShippingAddress)
}
