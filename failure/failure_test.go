package failure

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"configuration", Configuration("missing credentials"), KindConfiguration},
		{"operation", Operationf("boom"), KindOperation},
		{"generation", Generation(errors.New("llm down")), KindGeneration},
		{"wrapped configuration", fmt.Errorf("publish: %w", Configuration("no token")), KindConfiguration},
		{"plain error", errors.New("socket closed"), KindOperation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestMessage(t *testing.T) {
	t.Run("verbatim", func(t *testing.T) {
		assert.Equal(t, "missing credentials", Message(Configuration("missing credentials")))
	})

	t.Run("wrapped error message", func(t *testing.T) {
		assert.Equal(t, "dial tcp: refused", Message(Operation(errors.New("dial tcp: refused"))))
	})

	t.Run("empty message falls back", func(t *testing.T) {
		assert.Equal(t, UnknownMessage, Message(errors.New("")))
		assert.Equal(t, UnknownMessage, Message(&Error{Kind: KindOperation}))
		assert.Equal(t, UnknownMessage, Message(errors.New("   ")))
	})

	t.Run("nil", func(t *testing.T) {
		assert.Empty(t, Message(nil))
	})
}

func TestConstructorsKeepCause(t *testing.T) {
	cause := errors.New("timeout")
	err := Generation(cause)
	assert.ErrorIs(t, err, cause)
	assert.True(t, Is(err, KindGeneration))
	assert.False(t, Is(err, KindOperation))
	assert.NoError(t, Generation(nil))
	assert.NoError(t, Operation(nil))
}
