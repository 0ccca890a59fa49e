package domainerrors_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "custodia/pkg/domain-errors"
)

func TestHasCodeTraversesWrapping(t *testing.T) {
	base := dErrors.New(dErrors.CodeNotFound, "Case not found")
	wrapped := errors.Join(errors.New("outer"), base)

	assert.True(t, dErrors.HasCode(wrapped, dErrors.CodeNotFound))
	assert.False(t, dErrors.HasCode(wrapped, dErrors.CodeConflict))
	assert.False(t, dErrors.HasCode(errors.New("plain"), dErrors.CodeNotFound))
}

func TestMessageOfHidesInternalDetail(t *testing.T) {
	assert.Equal(t, "Case not found",
		dErrors.MessageOf(dErrors.New(dErrors.CodeNotFound, "Case not found")))
	assert.Empty(t,
		dErrors.MessageOf(dErrors.Wrap(errors.New("pq: connection refused"), dErrors.CodeInternal, "failed to create case")))
	assert.Empty(t, dErrors.MessageOf(errors.New("uncoded")))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := dErrors.Wrap(cause, dErrors.CodeUnavailable, "File upload failed")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "disk full")
}

func TestToHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest,
		dErrors.ToHTTPStatus(dErrors.New(dErrors.CodeValidation, "x")))
	assert.Equal(t, http.StatusNotFound,
		dErrors.ToHTTPStatus(dErrors.New(dErrors.CodeNotFound, "x")))
	assert.Equal(t, http.StatusInternalServerError,
		dErrors.ToHTTPStatus(errors.New("uncoded")))
}
