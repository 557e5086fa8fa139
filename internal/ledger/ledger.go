// Package ledger implements the platform's single-node proof-of-work ledger.
//
// The ledger records tokenized carbon-credit movements in sealed blocks.
// Balance state is derived by replaying mined transactions, so the chain is
// the source of truth for on-chain balances. This is a permissioned ledger:
// there is no peer-to-peer consensus, only the local node mines.
package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/carboncoin/carboncoin-api/internal/domain"
)

// Ledger errors.
var (
	// ErrNothingToMine is returned when MinePending is called with an empty
	// pending pool.
	ErrNothingToMine = errors.New("no pending transactions to mine")

	// ErrInsufficientBalance is returned when a SELL or TRANSFER would spend
	// more than the source address holds on-chain.
	ErrInsufficientBalance = errors.New("insufficient on-chain balance")

	// ErrInvalidChain is returned when restoring from persisted blocks that
	// fail verification.
	ErrInvalidChain = errors.New("persisted chain failed verification")
)

// DefaultDifficulty is the number of leading zero hex digits a sealed block
// hash must carry.
const DefaultDifficulty = 3

// Ledger is a mutex-guarded chain of blocks plus a pending transaction pool.
// It is safe for concurrent use by HTTP handlers and the emission simulator.
type Ledger struct {
	mu         sync.Mutex
	blocks     []*domain.Block
	pending    []domain.Transaction
	balances   map[string]map[string]float64
	difficulty int
	logger     *slog.Logger
}

// New creates a ledger with a genesis block.
func New(difficulty int, logger *slog.Logger) *Ledger {
	if difficulty <= 0 {
		difficulty = DefaultDifficulty
	}
	if logger == nil {
		logger = slog.Default()
	}

	l := &Ledger{
		balances:   make(map[string]map[string]float64),
		difficulty: difficulty,
		logger:     logger.With(slog.String("component", "ledger")),
	}
	l.blocks = append(l.blocks, domain.NewGenesisBlock())
	return l
}

// Restore creates a ledger from persisted blocks, verifying the chain and
// replaying balances. The block slice must start with the genesis block.
func Restore(difficulty int, blocks []*domain.Block, logger *slog.Logger) (*Ledger, error) {
	if len(blocks) == 0 {
		return New(difficulty, logger), nil
	}

	l := New(difficulty, logger)
	l.blocks = blocks

	if !l.Valid() {
		return nil, ErrInvalidChain
	}

	for _, b := range blocks {
		for i := range b.Transactions {
			l.applyBalances(&b.Transactions[i])
		}
	}

	l.logger.Info("ledger restored from persisted chain",
		slog.Int("height", len(blocks)),
	)
	return l, nil
}

// Submit validates a transaction and appends it to the pending pool.
//
// Issuing transactions (MINT/SYSTEM sources) and BUY transactions bypass the
// balance check: a BUY is paid in USD, not tokens. SELL and TRANSFER must be
// covered by the source address's mined balance.
func (l *Ledger) Submit(tx *domain.Transaction) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("invalid transaction: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !tx.Issuing() && tx.Type != domain.TransactionBuy {
		have := l.balanceLocked(tx.FromAddress, tx.TokenSymbol)
		if have < tx.Amount {
			l.logger.Warn("transaction rejected",
				slog.String("tx_id", tx.ID.String()),
				slog.String("from", tx.FromAddress),
				slog.String("symbol", tx.TokenSymbol),
				slog.Float64("have", have),
				slog.Float64("need", tx.Amount),
			)
			return fmt.Errorf("%w: have %.4f %s, need %.4f",
				ErrInsufficientBalance, have, tx.TokenSymbol, tx.Amount)
		}
	}

	l.pending = append(l.pending, *tx)
	return nil
}

// MinePending seals the pending pool into a new block via proof-of-work,
// applies the balance updates and clears the pool. The miner address is
// recorded only in logs; there is no mining reward on this ledger.
func (l *Ledger) MinePending(minerAddress string) (*domain.Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.pending) == 0 {
		return nil, ErrNothingToMine
	}

	prev := l.blocks[len(l.blocks)-1]
	block := domain.NewBlock(len(l.blocks), l.pending, prev.Hash)
	block.Seal(l.difficulty)

	l.blocks = append(l.blocks, block)
	for i := range block.Transactions {
		l.applyBalances(&block.Transactions[i])
	}
	l.pending = nil

	l.logger.Info("block mined",
		slog.Int("index", block.Index),
		slog.String("hash", block.Hash),
		slog.Int("tx_count", len(block.Transactions)),
		slog.String("miner", minerAddress),
	)
	return block, nil
}

// applyBalances updates on-chain balances for a mined transaction.
// Callers must hold the mutex.
func (l *Ledger) applyBalances(tx *domain.Transaction) {
	switch {
	case tx.Type == domain.TransactionBuy:
		// Purchases are funded in USD; only the buyer's token balance moves.
		l.credit(tx.ToAddress, tx.TokenSymbol, tx.Amount)
	case tx.Type == domain.TransactionSell:
		// Proceeds are paid in USD; only the seller's token balance moves.
		l.debit(tx.FromAddress, tx.TokenSymbol, tx.Amount)
	case tx.Issuing():
		l.credit(tx.ToAddress, tx.TokenSymbol, tx.Amount)
	default:
		l.debit(tx.FromAddress, tx.TokenSymbol, tx.Amount)
		l.credit(tx.ToAddress, tx.TokenSymbol, tx.Amount)
	}
}

func (l *Ledger) credit(addr, symbol string, amount float64) {
	if l.balances[addr] == nil {
		l.balances[addr] = make(map[string]float64)
	}
	l.balances[addr][symbol] += amount
}

func (l *Ledger) debit(addr, symbol string, amount float64) {
	if l.balances[addr] == nil {
		l.balances[addr] = make(map[string]float64)
	}
	l.balances[addr][symbol] -= amount
}

func (l *Ledger) balanceLocked(addr, symbol string) float64 {
	return l.balances[addr][symbol]
}

// BalanceOf returns the mined balance of a token for an address.
func (l *Ledger) BalanceOf(addr, symbol string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balanceLocked(addr, symbol)
}

// Valid verifies the whole chain: recomputed hashes, previous-hash links and
// the difficulty prefix on every non-genesis block.
func (l *Ledger) Valid() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := 1; i < len(l.blocks); i++ {
		current, prev := l.blocks[i], l.blocks[i-1]

		if current.Hash != current.ComputeHash() {
			return false
		}
		if current.PrevHash != prev.Hash {
			return false
		}
		if !current.MeetsDifficulty(l.difficulty) {
			return false
		}
	}
	return true
}

// Height returns the number of blocks on the chain.
func (l *Ledger) Height() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.blocks)
}

// PendingCount returns the number of transactions awaiting mining.
func (l *Ledger) PendingCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}

// Blocks returns a copy of the chain's block slice. The blocks themselves
// are shared; callers must not mutate them.
func (l *Ledger) Blocks() []*domain.Block {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*domain.Block, len(l.blocks))
	copy(out, l.blocks)
	return out
}
