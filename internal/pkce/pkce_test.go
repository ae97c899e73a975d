package pkce

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCodeVerifier(t *testing.T) {
	verifier, err := GenerateCodeVerifier()
	require.NoError(t, err)

	// 32 random bytes encode to 43 base64url characters without padding
	assert.Len(t, verifier, 43)
	assert.False(t, strings.ContainsAny(verifier, "+/="), "verifier must be base64url without padding")

	// Two verifiers must not collide
	other, err := GenerateCodeVerifier()
	require.NoError(t, err)
	assert.NotEqual(t, verifier, other)
}

func TestGenerateCodeChallenge(t *testing.T) {
	// Known vector from RFC 7636 appendix B
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	challenge := GenerateCodeChallenge(verifier)
	assert.Equal(t, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM", challenge)
}

func TestVerifyChallenge_RoundTrip(t *testing.T) {
	for i := 0; i < 20; i++ {
		verifier, err := GenerateCodeVerifier()
		require.NoError(t, err)

		challenge := GenerateCodeChallenge(verifier)
		assert.True(t, VerifyChallenge(verifier, challenge))
	}
}

func TestVerifyChallenge_Mutation(t *testing.T) {
	verifier, err := GenerateCodeVerifier()
	require.NoError(t, err)
	challenge := GenerateCodeChallenge(verifier)

	// Any single-character mutation of the challenge must fail verification
	for i := 0; i < len(challenge); i++ {
		mutated := []byte(challenge)
		if mutated[i] == 'A' {
			mutated[i] = 'B'
		} else {
			mutated[i] = 'A'
		}
		assert.False(t, VerifyChallenge(verifier, string(mutated)), "mutation at index %d", i)
	}
}

func TestVerifyChallenge_WrongVerifier(t *testing.T) {
	v1, err := GenerateCodeVerifier()
	require.NoError(t, err)
	v2, err := GenerateCodeVerifier()
	require.NoError(t, err)

	assert.False(t, VerifyChallenge(v2, GenerateCodeChallenge(v1)))
}

func TestGenerateChallenge(t *testing.T) {
	pair, err := GenerateChallenge()
	require.NoError(t, err)

	assert.Equal(t, ChallengeMethodS256, pair.ChallengeMethod)
	assert.Equal(t, GenerateCodeChallenge(pair.Verifier), pair.Challenge)
	assert.True(t, VerifyChallenge(pair.Verifier, pair.Challenge))
	assert.Greater(t, pair.Entropy, 4.0, "random verifier should clear the default entropy floor")
}

func TestEntropyScore(t *testing.T) {
	tests := []struct {
		name     string
		verifier string
		check    func(t *testing.T, score float64)
	}{
		{
			name:     "empty input",
			verifier: "",
			check: func(t *testing.T, score float64) {
				assert.Zero(t, score)
			},
		},
		{
			name:     "single repeated character",
			verifier: strings.Repeat("a", 43),
			check: func(t *testing.T, score float64) {
				assert.Zero(t, score)
			},
		},
		{
			name:     "two alternating characters",
			verifier: strings.Repeat("ab", 21) + "a",
			check: func(t *testing.T, score float64) {
				assert.InDelta(t, 1.0, score, 0.01)
			},
		},
		{
			name:     "patterned verifier stays below the floor",
			verifier: strings.Repeat("abcd", 11),
			check: func(t *testing.T, score float64) {
				assert.Less(t, score, 4.0)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, EntropyScore(tt.verifier))
		})
	}
}
