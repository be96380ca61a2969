package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target *AppError
		want   bool
	}{
		{name: "same sentinel", err: ErrDuplicateID, target: ErrDuplicateID, want: true},
		{name: "with detail", err: ErrDuplicateID.WithDetail("kaelen"), target: ErrDuplicateID, want: true},
		{name: "wrapped", err: fmt.Errorf("add entity: %w", ErrInvalidReference.WithDetail("x")), target: ErrInvalidReference, want: true},
		{name: "entity not found is not found", err: ErrEntityNotFound, target: ErrNotFound, want: true},
		{name: "event not found is not found", err: ErrEventNotFound.WithDetail("e1"), target: ErrNotFound, want: true},
		{name: "not found is not entity not found", err: ErrNotFound, target: ErrEntityNotFound, want: false},
		{name: "different codes", err: ErrDuplicateID, target: ErrInvalidParam, want: false},
		{name: "plain error", err: stderrors.New("boom"), target: ErrInternalError, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stderrors.Is(tt.err, tt.target))
		})
	}
}

func TestWithDetailDoesNotMutateSentinel(t *testing.T) {
	_ = ErrEntityNotFound.WithDetail("kaelen")
	assert.Empty(t, ErrEntityNotFound.Detail)

	cause := stderrors.New("conn refused")
	wrapped := ErrCacheUnavailable.WithError(cause)
	assert.Nil(t, ErrCacheUnavailable.Err)
	assert.ErrorIs(t, wrapped, cause)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{ErrInvalidParam, http.StatusBadRequest},
		{ErrInvalidReference, http.StatusBadRequest},
		{ErrDuplicateID, http.StatusConflict},
		{ErrEntityNotFound, http.StatusNotFound},
		{ErrSnapshotNotFound, http.StatusNotFound},
		{ErrValidationFailed, http.StatusUnprocessableEntity},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{ErrRateLimited, http.StatusTooManyRequests},
		{ErrDatabase, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HTTPStatus)
		})
	}
}

func TestAsAppError(t *testing.T) {
	err := fmt.Errorf("ctx: %w", ErrEventNotFound.WithDetail("e9"))
	app := AsAppError(err)
	assert.Equal(t, CodeEventNotFound, app.Code)
	assert.Equal(t, "e9", app.Detail)

	unknown := AsAppError(stderrors.New("boom"))
	assert.Equal(t, CodeUnknown, unknown.Code)
	assert.False(t, IsAppError(stderrors.New("boom")))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "[1009] duplicate id (kaelen)", ErrDuplicateID.WithDetail("kaelen").Error())
}
