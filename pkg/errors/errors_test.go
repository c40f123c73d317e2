package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDetailReturnsCopy(t *testing.T) {
	err := ErrSessionNotFound.WithDetail("abc-123")

	assert.Equal(t, "abc-123", err.Detail)
	assert.Empty(t, ErrSessionNotFound.Detail)
	assert.Equal(t, ErrSessionNotFound.Code, err.Code)
}

func TestWithErrorReturnsCopy(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := ErrStoreUnavailable.WithError(cause)

	assert.Equal(t, cause, err.Unwrap())
	assert.Nil(t, ErrStoreUnavailable.Err)
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		code   ErrorCode
		status int
	}{
		{CodeInvalidParam, http.StatusBadRequest},
		{CodeStoryNotStarted, http.StatusBadRequest},
		{CodeSessionNotFound, http.StatusNotFound},
		{CodeCharacterNotFound, http.StatusNotFound},
		{CodeStoryComplete, http.StatusConflict},
		{CodeExportNotReady, http.StatusConflict},
		{CodeBackendUnavailable, http.StatusServiceUnavailable},
		{CodeStoreUnavailable, http.StatusServiceUnavailable},
		{CodeBackendCallFailed, http.StatusBadGateway},
		{CodeRewriteFailed, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, New(tc.code, "x").HTTPStatus, string(tc.code))
	}
}

func TestAsAppErrorWrapsUnknown(t *testing.T) {
	plain := fmt.Errorf("boom")
	appErr := AsAppError(plain)

	require.NotNil(t, appErr)
	assert.Equal(t, CodeUnknown, appErr.Code)
	assert.Equal(t, plain, appErr.Unwrap())
}

func TestErrorFormatting(t *testing.T) {
	err := Wrap(fmt.Errorf("boom"), CodeGenerationFailed, "scene generation failed")
	assert.Equal(t, "[4001] scene generation failed: boom", err.Error())

	bare := New(CodeInvalidParam, "invalid parameter")
	assert.Equal(t, "[1001] invalid parameter", bare.Error())
}
