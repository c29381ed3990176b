// Package cartsync pushes the local cart to the remote cart endpoint while a
// user is signed in.
//
// At most one sync runs at a time. Triggers that arrive during a run collapse
// into a single follow-up run, and every run reads a fresh cart snapshot, so
// the last mutation always wins on the remote side.
package cartsync

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"storefront/internal/cart"
	"storefront/internal/identity"
	"storefront/internal/models"
	"storefront/internal/remote"
	"storefront/internal/retry"
	"storefront/internal/storage"
)

const defaultConcurrency = 4

type Pusher interface {
	AddCartItem(ctx context.Context, line remote.CartLine) error
}

type CartSource interface {
	Snapshot() models.Cart
	Subscribe(fn cart.Listener) func()
}

type Identity interface {
	Authenticated() bool
	Subscribe(fn identity.Listener) func()
}

// Status describes the synchronizer for the UI.
type Status struct {
	Running     bool      `json:"running"`
	Failed      bool      `json:"failed"`
	LastError   string    `json:"lastError,omitempty"`
	LastSuccess time.Time `json:"lastSuccess,omitempty"`
}

type Config struct {
	Retry       retry.Policy
	Concurrency int
}

type Synchronizer struct {
	cart     CartSource
	identity Identity
	pusher   Pusher
	store    storage.Store
	cfg      Config
	log      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
	pending bool
	closed  bool
	idle    chan struct{}
	// synced holds the quantities the remote cart is known to have.
	synced     map[string]int
	generation int
	status     Status

	unsubscribe []func()
}

func New(c CartSource, id Identity, pusher Pusher, store storage.Store, cfg Config, log *zap.Logger) *Synchronizer {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Synchronizer{
		cart:     c,
		identity: id,
		pusher:   pusher,
		store:    store,
		cfg:      cfg,
		log:      log.Named("sync"),
		ctx:      ctx,
		cancel:   cancel,
		synced:   make(map[string]int),
	}
	s.status.Failed = s.loadFailedFlag()
	return s
}

// Start subscribes to cart and session changes. A sync left failed by a
// previous process is retried right away when the user is signed in.
func (s *Synchronizer) Start() {
	s.unsubscribe = append(s.unsubscribe,
		s.cart.Subscribe(func(models.Cart) { s.Trigger() }),
		s.identity.Subscribe(s.onSession),
	)
	s.mu.Lock()
	failed := s.status.Failed
	s.mu.Unlock()
	if failed {
		s.Resync()
	}
}

func (s *Synchronizer) onSession(e identity.Event) {
	switch e.Kind {
	case identity.SignedIn:
		s.Resync()
	case identity.SignedOut:
		s.forget()
	}
}

// Trigger schedules a sync. It never blocks.
func (s *Synchronizer) Trigger() {
	if !s.identity.Authenticated() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.running {
		s.pending = true
		return
	}
	s.running = true
	s.status.Running = true
	s.idle = make(chan struct{})
	s.wg.Add(1)
	go s.loop()
}

// Resync forgets what the remote cart holds and pushes every line again.
func (s *Synchronizer) Resync() {
	s.forget()
	s.Trigger()
}

func (s *Synchronizer) forget() {
	s.mu.Lock()
	s.synced = make(map[string]int)
	s.generation++
	s.mu.Unlock()
}

func (s *Synchronizer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// WaitIdle blocks until no sync is running or ctx ends.
func (s *Synchronizer) WaitIdle(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting triggers, aborts the running sync and waits for it.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.pending = false
	s.mu.Unlock()

	for _, unsub := range s.unsubscribe {
		unsub()
	}
	s.cancel()
	s.wg.Wait()
}

func (s *Synchronizer) loop() {
	defer s.wg.Done()
	for {
		s.runOnce(s.ctx)

		s.mu.Lock()
		if s.pending && !s.closed {
			s.pending = false
			s.mu.Unlock()
			continue
		}
		s.running = false
		s.status.Running = false
		close(s.idle)
		s.mu.Unlock()
		return
	}
}

func (s *Synchronizer) runOnce(ctx context.Context) {
	if !s.identity.Authenticated() {
		return
	}
	snapshot := s.cart.Snapshot()

	s.mu.Lock()
	generation := s.generation
	lines := diff(s.synced, snapshot)
	s.mu.Unlock()

	if len(lines) == 0 {
		s.markSucceeded()
		return
	}

	var (
		pushedMu sync.Mutex
		pushed   = make([]remote.CartLine, 0, len(lines))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, line := range lines {
		line := line
		g.Go(func() error {
			err := retry.Do(gctx, s.cfg.Retry, func(ctx context.Context) error {
				return s.pusher.AddCartItem(ctx, line)
			}, func(err error, wait time.Duration) {
				s.log.Debug("retrying cart line", zap.String("productId", line.ProductID), zap.Duration("wait", wait), zap.Error(err))
			})
			if err != nil {
				return err
			}
			pushedMu.Lock()
			pushed = append(pushed, line)
			pushedMu.Unlock()
			return nil
		})
	}
	err := g.Wait()

	s.mu.Lock()
	if s.generation == generation {
		for _, line := range pushed {
			if line.Quantity == 0 {
				delete(s.synced, line.ProductID)
			} else {
				s.synced[line.ProductID] = line.Quantity
			}
		}
	}
	s.mu.Unlock()

	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			s.log.Debug("sync aborted")
			return
		}
		s.markFailed(err, len(pushed), len(lines))
		return
	}
	s.log.Info("cart synced", zap.Int("lines", len(lines)))
	s.markSucceeded()
}

// diff lists the lines whose remote quantity differs from the snapshot,
// with removed products sent as quantity 0.
func diff(synced map[string]int, snapshot models.Cart) []remote.CartLine {
	var lines []remote.CartLine
	present := make(map[string]struct{}, snapshot.Len())
	for _, item := range snapshot.Items() {
		present[item.ProductID] = struct{}{}
		if qty, ok := synced[item.ProductID]; ok && qty == item.Quantity {
			continue
		}
		lines = append(lines, remote.CartLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	for productID := range synced {
		if _, ok := present[productID]; !ok {
			lines = append(lines, remote.CartLine{ProductID: productID, Quantity: 0})
		}
	}
	return lines
}

func (s *Synchronizer) markFailed(err error, pushed, total int) {
	s.mu.Lock()
	s.status.Failed = true
	s.status.LastError = err.Error()
	s.mu.Unlock()

	if serr := storage.SaveJSON(context.Background(), s.store, storage.KeySyncFailed, true); serr != nil {
		s.log.Error("persist sync flag failed", zap.Error(serr))
	}
	s.log.Warn("cart sync failed", zap.Int("pushed", pushed), zap.Int("lines", total), zap.Error(err))
}

func (s *Synchronizer) markSucceeded() {
	s.mu.Lock()
	wasFailed := s.status.Failed
	s.status.Failed = false
	s.status.LastError = ""
	s.status.LastSuccess = time.Now()
	s.mu.Unlock()

	if wasFailed {
		if err := s.store.Delete(context.Background(), storage.KeySyncFailed); err != nil {
			s.log.Error("clear sync flag failed", zap.Error(err))
		}
	}
}

func (s *Synchronizer) loadFailedFlag() bool {
	var failed bool
	err := storage.LoadJSON(context.Background(), s.store, storage.KeySyncFailed, &failed)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.log.Warn("discarding stored sync flag", zap.Error(err))
	}
	return err == nil && failed
}
