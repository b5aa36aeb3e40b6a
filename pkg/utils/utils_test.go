package utils

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
	testIV  = "a0a1a2a3a4a5a6a7a8a9aaabacadaeaf"
)

func TestCipher_RoundTrip(t *testing.T) {
	c, err := NewCipher(testKey, testIV)
	require.NoError(t, err)

	plain := []byte(`{"wallet_id":"w-1","seed":"abc","network_id":"base-mainnet"}`)
	enc, err := c.Encrypt(plain)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(enc, testIV+":"))

	dec, err := c.Decrypt(enc)
	require.NoError(t, err)
	assert.Equal(t, plain, dec)
}

func TestCipher_BadInput(t *testing.T) {
	_, err := NewCipher("abcd", testIV)
	assert.Error(t, err)

	c, err := NewCipher(testKey, testIV)
	require.NoError(t, err)
	for _, in := range []string{"", "nocolon", testIV + ":zz", testIV + ":00"} {
		_, err := c.Decrypt(in)
		assert.ErrorIs(t, err, ErrInvalidCiphertext, in)
	}
}

func TestIsValidAddress(t *testing.T) {
	assert.True(t, IsValidAddress("base", "0x4200000000000000000000000000000000000006"))
	assert.True(t, IsValidAddress("ETH", "0x4200000000000000000000000000000000000006"))
	assert.False(t, IsValidAddress("base", "0x42"))
	assert.True(t, IsValidAddress("solana", "So11111111111111111111111111111111111111112"))
	assert.False(t, IsValidAddress("solana", "0x4200000000000000000000000000000000000006"))
	assert.False(t, IsValidAddress("tron", "T9yD14Nj9j7xAB4dbGeiX9h8unkKHxuWwb"))
}

func TestNormalizeChain(t *testing.T) {
	assert.Equal(t, ChainSolana, NormalizeChain(" SOL "))
	assert.Equal(t, ChainEthereum, NormalizeChain("eth"))
	assert.True(t, IsEVMChain("Base"))
	assert.False(t, IsEVMChain("solana"))
}

func TestPercent(t *testing.T) {
	assert.True(t, Percent(decimal.NewFromInt(200), 10).Equal(decimal.NewFromInt(20)))
}

func TestSafeFileName(t *testing.T) {
	assert.Equal(t, "tokenTrade_0xAbC", SafeFileName("tokenTrade_0xAbC"))
	assert.Equal(t, "a_b_c", SafeFileName("a/b:c"))
}

func TestGetHashBucket(t *testing.T) {
	assert.Equal(t, uint32(0), GetHashBucket("room-1", 0))
	b := GetHashBucket("room-1", 8)
	assert.Less(t, b, uint32(8))
	assert.Equal(t, b, GetHashBucket("room-1", 8))
}
