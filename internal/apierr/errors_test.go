package apierr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/veilnet/veilnet/pkg/wire"
)

func TestToPayload_ClientError(t *testing.T) {
	err := NewClientError(wire.ErrCodeUserNotFound, "user %s not found", "u1")
	payload, status := ToPayload(err)

	assert.Equal(t, wire.ErrCodeUserNotFound, payload.Code)
	assert.Equal(t, "user u1 not found", payload.Message)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestToPayload_ServerError_HidesCause(t *testing.T) {
	err := NewServerError(errors.New("table lock corrupted: secret detail"))
	payload, status := ToPayload(err)

	assert.Equal(t, wire.ErrCodeInternalError, payload.Code)
	assert.Equal(t, "internal error", payload.Message)
	assert.NotContains(t, payload.Message, "secret detail")
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestToPayload_UnknownError_TreatedAsServerError(t *testing.T) {
	payload, status := ToPayload(errors.New("boom"))
	assert.Equal(t, wire.ErrCodeInternalError, payload.Code)
	assert.Equal(t, http.StatusInternalServerError, status)
}
