package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateTokenService_Generate(t *testing.T) {
	gen := NewStateTokenGenerator()
	userID := uuid.Must(uuid.NewV7())

	token, err := gen.Generate(userID)
	require.NoError(t, err)
	assert.Len(t, token, 64)
	assert.Regexp(t, "^[0-9a-f]{64}$", token)
}

func TestStateTokenService_TokensAreUnique(t *testing.T) {
	gen := NewStateTokenGenerator()
	userID := uuid.Must(uuid.NewV7())

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := gen.Generate(userID)
		require.NoError(t, err)
		assert.False(t, seen[token])
		seen[token] = true
	}
}

func TestStateTokenService_AnonymousFlow(t *testing.T) {
	gen := NewStateTokenGenerator()
	gen.now = func() time.Time { return time.Unix(1700000000, 0) }

	token, err := gen.Generate(uuid.Nil)
	require.NoError(t, err)
	assert.Len(t, token, 64)

	// same instant, different randomness
	other, err := gen.Generate(uuid.Nil)
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}
