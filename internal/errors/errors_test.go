package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsInnerCode(t *testing.T) {
	root := ExternalServiceError("registry", stderrors.New("connection refused"))
	wrapped := Wrap(fmt.Errorf("search: %w", root), "failed to search trials")

	assert.Equal(t, CodeExternalService, GetCode(wrapped))
	assert.ErrorIs(t, wrapped, root)
	assert.Contains(t, wrapped.Error(), "connection refused")
}

func TestWrapPlainErrorIsInternal(t *testing.T) {
	err := Wrap(stderrors.New("boom"), "context")
	assert.Equal(t, CodeInternalError, GetCode(err))
	assert.Equal(t, "context: boom", err.Error())
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ignored"))
	assert.Nil(t, WithCode(CodeNotFound, nil))
}

func TestWithCode(t *testing.T) {
	err := WithCode(CodeNotFound, InvalidInput("bad id"))
	assert.Equal(t, CodeNotFound, GetCode(err))
	assert.Equal(t, "bad id", err.Error())

	assert.Equal(t, "UNKNOWN", GetCode(stderrors.New("plain")))
}

func TestConstructors(t *testing.T) {
	cause := stderrors.New("singular matrix")
	err := AnalysisFailed("enrollment", cause)
	assert.Equal(t, CodeAnalysisFailed, GetCode(err))
	assert.Equal(t, "enrollment analysis failed: singular matrix", err.Error())
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, CodeConfigInvalid, GetCode(ConfigInvalid("registry not configured")))
	assert.Equal(t, "registry service error: timeout", ExternalServiceError("registry", stderrors.New("timeout")).Error())
}
