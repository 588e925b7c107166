package cover

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := E(KindSubmit, "task submit rejected").
		WithStatus(402).
		WithDetail("quota exceeded")

	msg := err.Error()
	assert.Contains(t, msg, "SUBMIT_ERROR")
	assert.Contains(t, msg, "task submit rejected")
	assert.Contains(t, msg, "402")
	assert.Contains(t, msg, "quota exceeded")
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := E(KindTaskFailed, "generation task failed").WithCause(cause)

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNoImage, KindOf(E(KindNoImage, "nothing")))
	assert.Equal(t, Kind(""), KindOf(errors.New("untyped")))
	assert.Equal(t, Kind(""), KindOf(nil))

	wrapped := fmt.Errorf("outer: %w", E(KindOverloaded, "busy"))
	assert.Equal(t, KindOverloaded, KindOf(wrapped))
}

func TestIsOverloaded(t *testing.T) {
	assert.True(t, IsOverloaded(E(KindOverloaded, "busy")))
	assert.True(t, IsOverloaded(E(KindSubmit, "rejected").WithStatus(429)))
	assert.True(t, IsOverloaded(E(KindSubmit, "rejected").WithStatus(503)))
	assert.True(t, IsOverloaded(errors.New("model is overloaded, try later")))
	assert.True(t, IsOverloaded(errors.New("upstream returned 429")))

	assert.False(t, IsOverloaded(nil))
	assert.False(t, IsOverloaded(E(KindCredential, "bad key").WithStatus(401)))
	assert.False(t, IsOverloaded(errors.New("plain failure")))
}
