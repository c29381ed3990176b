// Package storage is the durable key/value layer behind the cart and the
// identity session. Values are opaque bytes; LoadJSON and SaveJSON add the
// JSON encoding used by every caller.
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/goccy/go-json"
)

// Well-known keys. Each has exactly one owning package.
const (
	KeyCart            = "cart"
	KeyUser            = "user"
	KeyAuthToken       = "auth_token"
	KeySyncFailed      = "sync_failed"
	KeyShippingAddress = "shipping_address"
)

var (
	ErrNotFound   = errors.New("storage: key not found")
	ErrMalformed  = errors.New("storage: malformed value")
	ErrInvalidKey = errors.New("storage: invalid key")
)

var keyPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

func validKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// LoadJSON decodes the value under key into v. It returns ErrNotFound when
// the key is absent and wraps ErrMalformed when the bytes do not decode;
// callers treat both as "no data".
func LoadJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, key, err)
	}
	return nil
}

func SaveJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}

// Open builds the store selected by driver.
func Open(driver string, opts Options) (Store, error) {
	switch driver {
	case "", "file":
		return NewFileStore(opts.Dir)
	case "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(opts.RedisAddr, opts.RedisPrefix)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", driver)
	}
}

type Options struct {
	Dir         string
	RedisAddr   string
	RedisPrefix string
}
