package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("project: %w", ErrNotFound), http.StatusNotFound},
		{"conflict", ErrConflict, http.StatusConflict},
		{"credentials", ErrInvalidCredentials, http.StatusUnauthorized},
		{"code", fmt.Errorf("otp: %w", ErrInvalidCode), http.StatusBadRequest},
		{"attempts", ErrTooManyAttempts, http.StatusTooManyRequests},
		{"expired", ErrFlowExpired, http.StatusGone},
		{"provider", fmt.Errorf("create order: %w", ErrPaymentProvider), http.StatusBadGateway},
		{"verification", ErrPaymentVerification, http.StatusBadRequest},
		{"app error code wins", Forbidden("owners only"), http.StatusForbidden},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MapErrorToStatus(tc.err))
		})
	}
}

func TestPersistenceHidesCause(t *testing.T) {
	err := Persistence(errors.New("pq: deadlock detected"))

	assert.Equal(t, ErrPersistence.Error(), err.Error())
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, http.StatusInternalServerError, MapErrorToStatus(err))
}

func TestValidationMessage(t *testing.T) {
	err := Validation("stake terms are required for stake projects")

	assert.EqualError(t, err, "stake terms are required for stake projects")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
