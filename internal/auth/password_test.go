package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_HashAndCheck(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	hash, err := h.Hash("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)

	assert.NoError(t, h.Check(hash, "hunter2"))
	assert.ErrorIs(t, h.Check(hash, "hunter3"), ErrMismatch)
}

func TestPasswordHasher_Salted(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestPasswordHasher_PlaintextStoredValueIsMismatch(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	assert.ErrorIs(t, h.Check("hunter2", "hunter2"), ErrMismatch)
}

func TestPasswordHasher_MalformedStoredValueIsMismatch(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	salt := strings.Repeat("a", 53)

	for name, stored := range map[string]string{
		"long plaintext":  strings.Repeat("p", 60),
		"cost too high":   "$2a$99$" + salt,
		"unknown version": "$3a$10$" + salt,
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, h.Check(stored, "hunter2"), ErrMismatch)
		})
	}
}

func TestNewPasswordHasher_Cost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewPasswordHasher(0).Cost())
	assert.Equal(t, bcrypt.MinCost, NewPasswordHasher(1).Cost())
	assert.Equal(t, bcrypt.MaxCost, NewPasswordHasher(99).Cost())
	assert.Equal(t, 6, NewPasswordHasher(6).Cost())
}
