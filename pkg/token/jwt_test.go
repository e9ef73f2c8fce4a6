package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerify(t *testing.T) {
	m := NewJWTManager("secret", 1)

	signed, err := m.GenerateToken("ana@example.com", "Ana")
	require.NoError(t, err)

	claims, err := m.VerifyToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.Equal(t, "Ana", claims.Name)
}

func TestVerifyRejectsOtherSecret(t *testing.T) {
	signed, err := NewJWTManager("secret", 1).GenerateToken("ana@example.com", "")
	require.NoError(t, err)

	_, err = NewJWTManager("other", 1).VerifyToken(signed)
	require.Error(t, err)
}

func TestVerifyRejectsExpired(t *testing.T) {
	signed, err := NewJWTManager("secret", -1).GenerateToken("ana@example.com", "")
	require.NoError(t, err)

	_, err = NewJWTManager("secret", 1).VerifyToken(signed)
	require.Error(t, err)
}
