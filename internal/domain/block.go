package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// GenesisPrevHash is the previous-hash value carried by the genesis block.
const GenesisPrevHash = "0"

// Block is a sealed group of ledger transactions. The hash covers every
// field except the hash itself, so any mutation invalidates the chain.
type Block struct {
	Index        int           `json:"index"`
	Transactions []Transaction `json:"transactions"`
	Timestamp    int64         `json:"timestamp"`
	PrevHash     string        `json:"previous_hash"`
	Nonce        int           `json:"nonce"`
	Hash         string        `json:"hash"`
}

// blockHashPayload fixes the set and order of fields covered by the hash.
type blockHashPayload struct {
	Index        int           `json:"index"`
	Transactions []Transaction `json:"transactions"`
	Timestamp    int64         `json:"timestamp"`
	PrevHash     string        `json:"previous_hash"`
	Nonce        int           `json:"nonce"`
}

// NewBlock creates an unsealed block. The caller seals it with Seal.
func NewBlock(index int, txs []Transaction, prevHash string) *Block {
	b := &Block{
		Index:        index,
		Transactions: txs,
		Timestamp:    time.Now().Unix(),
		PrevHash:     prevHash,
	}
	b.Hash = b.ComputeHash()
	return b
}

// NewGenesisBlock creates the first block of a chain.
func NewGenesisBlock() *Block {
	return NewBlock(0, nil, GenesisPrevHash)
}

// ComputeHash returns the SHA-256 hex digest of the block's hashable fields.
func (b *Block) ComputeHash() string {
	payload := blockHashPayload{
		Index:        b.Index,
		Transactions: b.Transactions,
		Timestamp:    b.Timestamp,
		PrevHash:     b.PrevHash,
		Nonce:        b.Nonce,
	}

	// Struct field order is stable, so the serialization is canonical.
	data, err := json.Marshal(payload)
	if err != nil {
		// Marshaling a value of only basic types cannot fail.
		panic("block hash payload marshal: " + err.Error())
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// MeetsDifficulty reports whether the block's hash carries the required
// number of leading zero hex digits.
func (b *Block) MeetsDifficulty(difficulty int) bool {
	return strings.HasPrefix(b.Hash, strings.Repeat("0", difficulty))
}

// Seal performs the proof-of-work search: it increments the nonce until the
// hash satisfies the difficulty target. Genesis blocks (difficulty 0) seal
// immediately.
func (b *Block) Seal(difficulty int) {
	b.Hash = b.ComputeHash()
	for !b.MeetsDifficulty(difficulty) {
		b.Nonce++
		b.Hash = b.ComputeHash()
	}
}
