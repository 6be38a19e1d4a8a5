package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("row missing")
	err := Wrap(CodeNotFound, cause, "dispute not found")

	require.Equal(t, CodeNotFound, err.Code())
	assert.Equal(t, "NOT_FOUND: dispute not found", err.Error())
	assert.True(t, stdErrors.Is(err, cause))
}

func TestAsFindsTypedErrorInChain(t *testing.T) {
	inner := New(CodeStateConflict, "dispute cannot be escalated")
	wrapped := Wrap(CodeDependency, inner, "escalate dispute")

	typed := As(wrapped)
	require.NotNil(t, typed)
	// outermost code wins
	assert.Equal(t, CodeDependency, typed.Code())
}

func TestHasCode(t *testing.T) {
	err := New(CodeClosed, "dispute is closed")
	assert.True(t, HasCode(err, CodeClosed))
	assert.False(t, HasCode(err, CodeConflict))
	assert.False(t, HasCode(stdErrors.New("plain"), CodeClosed))
	assert.False(t, HasCode(nil, CodeClosed))
}

func TestMetadataFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, MetadataFor(CodeClosed).HTTPStatus)
	assert.Equal(t, http.StatusUnprocessableEntity, MetadataFor(CodeStateConflict).HTTPStatus)
	assert.Equal(t, http.StatusInternalServerError, MetadataFor(Code("bogus")).HTTPStatus)
}

func TestDumpCollectsChain(t *testing.T) {
	cause := stdErrors.New("connection reset")
	err := Wrap(CodeDependency, cause, "load votes")

	dump := Dump(err)
	require.Equal(t, CodeDependency, dump.Code)
	assert.Len(t, dump.Chain, 2)
	assert.Equal(t, "DEPENDENCY_ERROR: load votes", dump.TopMessage)
}
