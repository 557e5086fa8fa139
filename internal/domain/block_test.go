package domain_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carboncoin/carboncoin-api/internal/domain"
)

func TestNewGenesisBlock(t *testing.T) {
	t.Parallel()

	b := domain.NewGenesisBlock()

	assert.Equal(t, 0, b.Index)
	assert.Equal(t, domain.GenesisPrevHash, b.PrevHash)
	assert.Empty(t, b.Transactions)
	assert.Equal(t, b.ComputeHash(), b.Hash)
}

func TestBlockComputeHash(t *testing.T) {
	t.Parallel()

	tx, err := domain.NewTransaction(domain.TransactionMint, domain.MintAddress, "addr-1", 50, "GTI")
	require.NoError(t, err)

	b := domain.NewBlock(1, []domain.Transaction{*tx}, "abc123")

	t.Run("hash is deterministic", func(t *testing.T) {
		assert.Equal(t, b.ComputeHash(), b.ComputeHash())
	})

	t.Run("hash covers the nonce", func(t *testing.T) {
		before := b.ComputeHash()
		b.Nonce++
		assert.NotEqual(t, before, b.ComputeHash())
		b.Nonce--
	})

	t.Run("hash covers transactions", func(t *testing.T) {
		before := b.ComputeHash()
		b.Transactions[0].Amount = 51
		assert.NotEqual(t, before, b.ComputeHash())
		b.Transactions[0].Amount = 50
	})
}

func TestBlockSeal(t *testing.T) {
	t.Parallel()

	const difficulty = 2

	b := domain.NewBlock(1, nil, "prev")
	b.Seal(difficulty)

	assert.True(t, b.MeetsDifficulty(difficulty))
	assert.True(t, strings.HasPrefix(b.Hash, "00"))
	assert.Equal(t, b.ComputeHash(), b.Hash, "sealed hash must match recomputed hash")
}

func TestBlockMeetsDifficulty(t *testing.T) {
	t.Parallel()

	b := domain.NewBlock(1, nil, "prev")
	b.Hash = "00ffab"

	assert.True(t, b.MeetsDifficulty(0))
	assert.True(t, b.MeetsDifficulty(2))
	assert.False(t, b.MeetsDifficulty(3))
}
