package shoperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromStatus(t *testing.T) {
	cases := []struct {
		status int
		want   Code
	}{
		{http.StatusUnauthorized, Auth},
		{http.StatusForbidden, Auth},
		{http.StatusConflict, Conflict},
		{http.StatusRequestTimeout, TransientNetwork},
		{http.StatusTooManyRequests, TransientNetwork},
		{http.StatusBadGateway, TransientNetwork},
		{http.StatusServiceUnavailable, TransientNetwork},
		{http.StatusGatewayTimeout, TransientNetwork},
		{http.StatusBadRequest, Server},
		{http.StatusInternalServerError, Server},
		{http.StatusTeapot, Server},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			err := FromStatus("POST /payments", tc.status, "")
			assert.Equal(t, tc.want, err.Code)
			assert.Equal(t, tc.status, err.Status)
		})
	}
}

func TestConflictDefaultsToAlreadyPaidMessage(t *testing.T) {
	err := FromStatus("POST /payments", http.StatusConflict, "")
	assert.Equal(t, MsgAlreadyPaid, err.Message)

	err = FromStatus("POST /orders", http.StatusConflict, "duplicate order")
	assert.Equal(t, "duplicate order", err.Message)
}

func TestFromTransportNeverLeaksRaw(t *testing.T) {
	raw := errors.New("connection reset by peer")
	err := FromTransport("POST /orders", raw)

	assert.True(t, IsTransient(err))
	assert.ErrorIs(t, err, raw)

	err = FromTransport("POST /orders", fmt.Errorf("wrapped: %w", context.DeadlineExceeded))
	assert.True(t, IsTransient(err))
}

func TestFromTransportKeepsClassifiedErrors(t *testing.T) {
	auth := NewAuth("POST /orders", http.StatusUnauthorized)
	assert.Same(t, auth, FromTransport("POST /orders", auth))
}

func TestRetryableOnlyTransient(t *testing.T) {
	assert.True(t, Retryable(NewTransient("op", errors.New("timeout"))))
	assert.False(t, Retryable(NewConflict("op", MsgAlreadyPaid)))
	assert.False(t, Retryable(NewFieldError("zip", "is invalid")))
	assert.False(t, Retryable(NewServer("op", 500, "")))
	assert.False(t, Retryable(errors.New("plain")))
}

func TestErrorMessageListsFieldsSorted(t *testing.T) {
	err := NewValidation(map[string]string{"zip": "is invalid", "email": "is required"})
	assert.Equal(t, "validation failed (email: is required; zip: is invalid)", err.Error())
	assert.Equal(t, map[string]string{"zip": "is invalid", "email": "is required"}, FieldsOf(err))
	assert.Nil(t, FieldsOf(errors.New("other")))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(NewFieldError("cvv", "is invalid")))
	assert.Equal(t, http.StatusConflict, HTTPStatus(NewConflict("op", MsgAlreadyPaid)))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(NewAuth("op", 401)))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(NewTransient("op", errors.New("x"))))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(errors.New("unclassified")))
}
