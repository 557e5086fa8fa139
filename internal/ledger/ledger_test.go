package ledger_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carboncoin/carboncoin-api/internal/domain"
	"github.com/carboncoin/carboncoin-api/internal/ledger"
)

// testDifficulty keeps proof-of-work fast in tests.
const testDifficulty = 1

func mustTx(
	t *testing.T,
	txType domain.TransactionType,
	from, to string,
	amount float64,
	symbol string,
) *domain.Transaction {
	t.Helper()
	tx, err := domain.NewTransaction(txType, from, to, amount, symbol)
	require.NoError(t, err)
	return tx
}

func TestNewLedgerHasGenesis(t *testing.T) {
	t.Parallel()

	l := ledger.New(testDifficulty, nil)

	assert.Equal(t, 1, l.Height())
	assert.True(t, l.Valid())
	assert.Equal(t, 0, l.PendingCount())
}

func TestMintAndMine(t *testing.T) {
	t.Parallel()

	l := ledger.New(testDifficulty, nil)

	require.NoError(t, l.Submit(mustTx(t, domain.TransactionMint, domain.MintAddress, "owner-1", 300, "GTI")))
	assert.Equal(t, 1, l.PendingCount())

	block, err := l.MinePending(domain.SystemAddress)
	require.NoError(t, err)

	assert.Equal(t, 1, block.Index)
	assert.True(t, block.MeetsDifficulty(testDifficulty))
	assert.Equal(t, 2, l.Height())
	assert.Equal(t, 0, l.PendingCount())
	assert.Equal(t, 300.0, l.BalanceOf("owner-1", "GTI"))
	assert.True(t, l.Valid())
}

func TestMinePendingEmptyPool(t *testing.T) {
	t.Parallel()

	l := ledger.New(testDifficulty, nil)

	_, err := l.MinePending(domain.SystemAddress)
	assert.ErrorIs(t, err, ledger.ErrNothingToMine)
}

func TestSubmitBalanceChecks(t *testing.T) {
	t.Parallel()

	l := ledger.New(testDifficulty, nil)

	t.Run("sell without balance is rejected", func(t *testing.T) {
		err := l.Submit(mustTx(t, domain.TransactionSell, "wallet-1", "wallet-1", 5, "GTI"))
		assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	})

	t.Run("buy needs no token balance", func(t *testing.T) {
		err := l.Submit(mustTx(t, domain.TransactionBuy, "wallet-1", "wallet-1", 5, "GTI"))
		assert.NoError(t, err)
	})

	t.Run("sell is allowed once the balance is mined", func(t *testing.T) {
		_, err := l.MinePending(domain.SystemAddress)
		require.NoError(t, err)
		require.Equal(t, 5.0, l.BalanceOf("wallet-1", "GTI"))

		err = l.Submit(mustTx(t, domain.TransactionSell, "wallet-1", "wallet-1", 5, "GTI"))
		assert.NoError(t, err)
	})
}

func TestBalanceApplication(t *testing.T) {
	t.Parallel()

	l := ledger.New(testDifficulty, nil)

	require.NoError(t, l.Submit(mustTx(t, domain.TransactionMint, domain.MintAddress, "a", 100, "GTI")))
	_, err := l.MinePending(domain.SystemAddress)
	require.NoError(t, err)

	t.Run("transfer moves balance", func(t *testing.T) {
		require.NoError(t, l.Submit(mustTx(t, domain.TransactionTransfer, "a", "b", 40, "GTI")))
		_, err := l.MinePending(domain.SystemAddress)
		require.NoError(t, err)

		assert.Equal(t, 60.0, l.BalanceOf("a", "GTI"))
		assert.Equal(t, 40.0, l.BalanceOf("b", "GTI"))
	})

	t.Run("sell debits only the seller", func(t *testing.T) {
		require.NoError(t, l.Submit(mustTx(t, domain.TransactionSell, "b", "b", 10, "GTI")))
		_, err := l.MinePending(domain.SystemAddress)
		require.NoError(t, err)

		assert.Equal(t, 30.0, l.BalanceOf("b", "GTI"))
	})
}

func TestValidDetectsTampering(t *testing.T) {
	t.Parallel()

	l := ledger.New(testDifficulty, nil)
	require.NoError(t, l.Submit(mustTx(t, domain.TransactionMint, domain.MintAddress, "a", 100, "GTI")))
	_, err := l.MinePending(domain.SystemAddress)
	require.NoError(t, err)
	require.True(t, l.Valid())

	// Mutate a mined transaction behind the ledger's back.
	blocks := l.Blocks()
	blocks[1].Transactions[0].Amount = 1_000_000

	assert.False(t, l.Valid())
}

func TestRestore(t *testing.T) {
	t.Parallel()

	l := ledger.New(testDifficulty, nil)
	require.NoError(t, l.Submit(mustTx(t, domain.TransactionMint, domain.MintAddress, "a", 100, "GTI")))
	_, err := l.MinePending(domain.SystemAddress)
	require.NoError(t, err)

	t.Run("replays balances", func(t *testing.T) {
		restored, err := ledger.Restore(testDifficulty, l.Blocks(), nil)
		require.NoError(t, err)

		assert.Equal(t, l.Height(), restored.Height())
		assert.Equal(t, 100.0, restored.BalanceOf("a", "GTI"))
	})

	t.Run("rejects a tampered chain", func(t *testing.T) {
		blocks := l.Blocks()
		blocks[1].Transactions[0].Amount = 999

		_, err := ledger.Restore(testDifficulty, blocks, nil)
		assert.ErrorIs(t, err, ledger.ErrInvalidChain)
	})
}

func TestConcurrentSubmitAndMine(t *testing.T) {
	t.Parallel()

	l := ledger.New(testDifficulty, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		tx := mustTx(t, domain.TransactionMint, domain.MintAddress, "a", 1, "GTI")
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Submit(tx))
		}()
	}
	wg.Wait()

	_, err := l.MinePending(domain.SystemAddress)
	require.NoError(t, err)

	assert.Equal(t, 20.0, l.BalanceOf("a", "GTI"))
	assert.True(t, l.Valid())
}
