package service_test

import (
	"github.com/carboncoin/carboncoin-api/internal/mocks"
)

// The service tests run against the shared in-memory stores.
type (
	memUserStore   = mocks.UserStore
	memWalletStore = mocks.WalletStore
	memTokenStore  = mocks.TokenStore
	memTradeStore  = mocks.TradeStore
	memBlockStore  = mocks.BlockStore
	memAppStore    = mocks.ApplicationStore
)

var (
	newMemUserStore     = mocks.NewUserStore
	newMemWalletStore   = mocks.NewWalletStore
	newMemTokenStore    = mocks.NewTokenStore
	newMemTradeStore    = mocks.NewTradeStore
	newMemAppStore      = mocks.NewApplicationStore
	passthroughTxRunner = mocks.PassthroughTxRunner
)
