package identity

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"storefront/internal/models"
	"storefront/internal/storage"
)

var ada = models.User{ID: "u-1", Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": ada.ID,
		"exp":    exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestSignInPersistsAndNotifies(t *testing.T) {
	mem := storage.NewMemoryStore()
	s := Load(mem, zaptest.NewLogger(t))

	var events []Event
	s.Subscribe(func(e Event) { events = append(events, e) })

	require.NoError(t, s.SignIn(ada, "opaque-token"))

	assert.True(t, s.Authenticated())
	assert.Equal(t, "opaque-token", s.Token())
	require.Len(t, events, 1)
	assert.Equal(t, SignedIn, events[0].Kind)

	reloaded := Load(mem, zaptest.NewLogger(t))
	user, ok := reloaded.Current()
	require.True(t, ok)
	assert.Equal(t, ada, user)
	assert.True(t, reloaded.Authenticated())
}

func TestSignInRequiresUserAndToken(t *testing.T) {
	s := Load(storage.NewMemoryStore(), zaptest.NewLogger(t))
	assert.Error(t, s.SignIn(models.User{}, "tok"))
	assert.Error(t, s.SignIn(ada, " "))
	assert.False(t, s.Authenticated())
}

func TestMalformedStoredUserMeansSignedOut(t *testing.T) {
	mem := storage.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, mem.Set(ctx, storage.KeyUser, []byte("not-json")))
	require.NoError(t, storage.SaveJSON(ctx, mem, storage.KeyAuthToken, "tok"))

	s := Load(mem, zaptest.NewLogger(t))
	_, ok := s.Current()
	assert.False(t, ok)
	assert.False(t, s.Authenticated())
}

func TestExpiredJWTIsNotAuthenticated(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s := Load(storage.NewMemoryStore(), zaptest.NewLogger(t), WithClock(func() time.Time { return now }))

	require.NoError(t, s.SignIn(ada, signedToken(t, now.Add(-time.Minute))))
	assert.False(t, s.Authenticated())
	assert.Empty(t, s.Token())

	require.NoError(t, s.SignIn(ada, signedToken(t, now.Add(time.Hour))))
	assert.True(t, s.Authenticated())
}

func TestExpireKeepsUserAndNotifiesOnce(t *testing.T) {
	mem := storage.NewMemoryStore()
	s := Load(mem, zaptest.NewLogger(t))
	require.NoError(t, s.SignIn(ada, "tok"))

	var kinds []EventKind
	s.Subscribe(func(e Event) { kinds = append(kinds, e.Kind) })

	s.Expire()
	s.Expire()

	assert.Equal(t, []EventKind{Expired}, kinds)
	assert.False(t, s.Authenticated())
	user, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, ada.ID, user.ID)
	assert.False(t, mem.Has(storage.KeyAuthToken))
	assert.True(t, mem.Has(storage.KeyUser))
}

func TestSignOutClearsEverything(t *testing.T) {
	mem := storage.NewMemoryStore()
	s := Load(mem, zaptest.NewLogger(t))
	require.NoError(t, s.SignIn(ada, "tok"))

	s.SignOut()

	_, ok := s.Current()
	assert.False(t, ok)
	assert.False(t, mem.Has(storage.KeyUser))
	assert.False(t, mem.Has(storage.KeyAuthToken))
}
