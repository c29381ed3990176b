package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
	"storefront/internal/shoperr"
)

type cardForm struct {
	Number string `json:"number" validate:"required,cardnumber"`
	Expiry string `json:"expiry" validate:"required,expiry,notexpired"`
	CVV    string `json:"cvv" validate:"required,cvv"`
}

func fixedNow() time.Time {
	return time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
}

func validShipping() models.ShippingInfo {
	return models.ShippingInfo{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Address:   "1 Main St",
		City:      "Springfield",
		State:     "IL",
		Zip:       "62701",
	}
}

func TestShippingValid(t *testing.T) {
	v := New(fixedNow)
	assert.NoError(t, v.Struct(validShipping()))

	info := validShipping()
	info.Zip = "62701-1234"
	assert.NoError(t, v.Struct(info))

	info.Zip = "627011234"
	assert.NoError(t, v.Struct(info))
}

func TestShippingFieldErrors(t *testing.T) {
	v := New(fixedNow)
	info := validShipping()
	info.FirstName = ""
	info.Email = "not-an-email"
	info.Zip = "1234"

	err := v.Struct(info)
	require.Error(t, err)
	assert.True(t, shoperr.IsValidation(err))
	assert.Equal(t, map[string]string{
		"firstName": "is required",
		"email":     "must be a valid email address",
		"zip":       "must be a 5 or 9 digit ZIP code",
	}, shoperr.FieldsOf(err))
}

func TestCardRules(t *testing.T) {
	v := New(fixedNow)

	assert.NoError(t, v.Struct(cardForm{Number: "4111 1111 1111 1111", Expiry: "03/26", CVV: "123"}))

	err := v.Struct(cardForm{Number: "411111111111", Expiry: "01/20", CVV: "12a"})
	require.Error(t, err)
	assert.Equal(t, map[string]string{
		"number": "must contain at least 13 digits",
		"expiry": "has expired",
		"cvv":    "must be 3 or 4 digits",
	}, shoperr.FieldsOf(err))

	err = v.Struct(cardForm{Number: "4111111111111111", Expiry: "13/30", CVV: "1234"})
	assert.Equal(t, map[string]string{"expiry": "must be in MM/YY format"}, shoperr.FieldsOf(err))
}

func TestExpired(t *testing.T) {
	now := fixedNow()
	assert.True(t, Expired(2, 2026, now))
	assert.False(t, Expired(3, 2026, now))
	assert.False(t, Expired(1, 2027, now))
	assert.True(t, Expired(12, 2025, now))
}

func TestParseExpiry(t *testing.T) {
	month, year, ok := ParseExpiry("07/29")
	require.True(t, ok)
	assert.Equal(t, 7, month)
	assert.Equal(t, 2029, year)

	for _, raw := range []string{"7/29", "00/29", "07-29", "07/2029", ""} {
		_, _, ok := ParseExpiry(raw)
		assert.False(t, ok, raw)
	}
}
