package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carboncoin/carboncoin-api/internal/domain"
	"github.com/carboncoin/carboncoin-api/internal/mocks"
)

func TestRestoreLedger(t *testing.T) {
	ctx := context.Background()

	t.Run("first boot persists the genesis block", func(t *testing.T) {
		blocks := &mocks.BlockStore{}

		chain, err := restoreLedger(ctx, 1, blocks, nil)
		require.NoError(t, err)

		require.Len(t, blocks.Blocks, 1)
		assert.Equal(t, 0, blocks.Blocks[0].Index)
		assert.Equal(t, chain.Blocks()[0].Hash, blocks.Blocks[0].Hash)
	})

	t.Run("restart restores the persisted chain", func(t *testing.T) {
		blocks := &mocks.BlockStore{}

		first, err := restoreLedger(ctx, 1, blocks, nil)
		require.NoError(t, err)

		tx, err := domain.NewTransaction(
			domain.TransactionMint, domain.MintAddress, "WALLET_GTI", 1000, "GTI")
		require.NoError(t, err)
		require.NoError(t, first.Submit(tx))
		mined, err := first.MinePending("ADMIN")
		require.NoError(t, err)
		require.NoError(t, blocks.Append(ctx, mined))

		second, err := restoreLedger(ctx, 1, blocks, nil)
		require.NoError(t, err)

		assert.Equal(t, 2, second.Height())
		assert.True(t, second.Valid())
		assert.Equal(t, 1000.0, second.BalanceOf("WALLET_GTI", "GTI"))

		// Nothing extra was written on restore.
		assert.Len(t, blocks.Blocks, 2)
	})
}
