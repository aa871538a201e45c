package bcrypt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndVerify(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("pw123")
	require.NoError(t, err)
	assert.NotEqual(t, "pw123", hash)

	assert.True(t, h.Verify("pw123", hash))
	assert.False(t, h.Verify("wrong", hash))
}

func TestHasher_VerifyMalformedHash(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	assert.False(t, h.Verify("pw123", ""))
	assert.False(t, h.Verify("pw123", "not-a-bcrypt-hash"))
}

func TestNewHasher_ClampsCost(t *testing.T) {
	h := NewHasher(100).(*Hasher)
	assert.Equal(t, bcrypt.DefaultCost, h.cost)
}
