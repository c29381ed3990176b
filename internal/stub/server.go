// Package stub is a development double of the authoritative order and
// payment service. It speaks the same wire format the remote client uses.
package stub

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/database"
	"storefront/internal/middleware"
	"storefront/internal/remote"
)

type Server struct {
	repo     database.Repository
	secret   string
	tokenTTL time.Duration
	log      *zap.Logger
	now      func() time.Time
	newID    func() string
}

type Option func(*Server)

func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func WithIDGenerator(fn func() string) Option {
	return func(s *Server) { s.newID = fn }
}

func New(repo database.Repository, secret string, tokenTTL time.Duration, log *zap.Logger, opts ...Option) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		repo:     repo,
		secret:   secret,
		tokenTTL: tokenTTL,
		log:      log.Named("stub"),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register mounts the stub routes on r.
func (s *Server) Register(r gin.IRouter) {
	r.POST("/auth/token", s.IssueToken())

	authed := r.Group("")
	authed.Use(middleware.UserAuth(s.secret, s.log))
	{
		authed.GET("/carts/current", s.GetCart())
		authed.POST(remote.PathCartItems, s.SetCartItem())
		authed.POST(remote.PathOrders, s.CreateOrder())
		authed.GET(remote.PathOrders, s.ListOrders())
		authed.GET(remote.PathOrders+"/:id", s.GetOrder())
		authed.POST(remote.PathPayments, s.CreatePayment())
	}
}

func (s *Server) handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		s.log.Error("panic recovered", zap.String("route", route), zap.Any("panic", r))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func (s *Server) respondWithError(c *gin.Context, status int, route, message string) {
	s.log.Info("returning error", zap.String("route", route), zap.Int("status", status), zap.String("message", message))
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// storeFailure answers a repository error that is not part of the flow.
func (s *Server) storeFailure(c *gin.Context, route string, err error) {
	if errors.Is(err, database.ErrNotFound) {
		s.respondWithError(c, http.StatusNotFound, route, "not found")
		return
	}
	s.log.Error("repository error", zap.String("route", route), zap.Error(err))
	s.respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
}

// shortID is the first eight hex digits of a fresh id, upper-cased.
func (s *Server) shortID() string {
	return strings.ToUpper(strings.ReplaceAll(s.newID(), "-", "")[:8])
}
