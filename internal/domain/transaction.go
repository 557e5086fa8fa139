package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TransactionType classifies ledger transactions.
type TransactionType string

// Known transaction types.
const (
	// TransactionBuy credits tokens purchased with USD to the buyer.
	TransactionBuy TransactionType = "BUY"

	// TransactionSell debits tokens sold for USD from the seller.
	TransactionSell TransactionType = "SELL"

	// TransactionMint issues new tokens from the mint address.
	TransactionMint TransactionType = "MINT"

	// TransactionTransfer moves tokens between two addresses.
	TransactionTransfer TransactionType = "TRANSFER"
)

// Reserved ledger addresses. Transactions originating from these addresses
// bypass the balance check: they issue value rather than move it.
const (
	MintAddress   = "MINT"
	SystemAddress = "SYSTEM"
)

// Transaction validation errors.
var (
	ErrEmptyFromAddress = errors.New("transaction from address cannot be empty")
	ErrEmptyToAddress   = errors.New("transaction to address cannot be empty")
	ErrEmptyTokenSymbol = errors.New("transaction token symbol cannot be empty")
)

// Transaction is a single tokenized-asset movement recorded on the ledger.
type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	Type        TransactionType `json:"type"`
	FromAddress string          `json:"from_address"`
	ToAddress   string          `json:"to_address"`
	Amount      float64         `json:"amount"`
	TokenSymbol string          `json:"token_symbol"`
	Price       float64         `json:"price,omitempty"`
	Fee         float64         `json:"fee,omitempty"`
	Timestamp   int64           `json:"timestamp"`
}

// NewTransaction creates a transaction with a fresh ID and the current time.
func NewTransaction(
	txType TransactionType,
	from, to string,
	amount float64,
	symbol string,
) (*Transaction, error) {
	tx := &Transaction{
		ID:          uuid.New(),
		Type:        txType,
		FromAddress: from,
		ToAddress:   to,
		Amount:      amount,
		TokenSymbol: symbol,
		Timestamp:   time.Now().Unix(),
	}

	if err := tx.Validate(); err != nil {
		return nil, err
	}

	return tx, nil
}

// Validate checks the transaction carries the required fields.
func (t *Transaction) Validate() error {
	if t.FromAddress == "" {
		return ErrEmptyFromAddress
	}
	if t.ToAddress == "" {
		return ErrEmptyToAddress
	}
	if t.TokenSymbol == "" {
		return ErrEmptyTokenSymbol
	}
	if t.Amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Issuing reports whether the transaction originates from a reserved address
// and therefore creates value instead of moving it.
func (t *Transaction) Issuing() bool {
	return t.FromAddress == MintAddress || t.FromAddress == SystemAddress
}
