package model

import "github.com/btcsuite/btcd/btcutil"

type ChainState struct {
	Chain                string
	Blocks               int64
	Headers              int64
	VerificationProgress float64
	Difficulty           float64
}

type NetworkState struct {
	ConnectionsIn  int64
	ConnectionsOut int64
	Connections    int64
	Version        int64
	TimeOffset     int64
	Proxy          string
	RelayFee       btcutil.Amount
	Warnings       string
}

type WalletState struct {
	Name          string
	KeypoolSize   int64
	PayTxFee      btcutil.Amount
	UnlockedUntil *int64
	Balance       btcutil.Amount
}

type WalletListing struct {
	Name    string
	Balance btcutil.Amount
}

// WalletSection is the wallet part of a diagnostics report.
type WalletSection interface {
	walletSection()
}

type NoWallets struct{}

type SingleWallet struct {
	Wallet WalletState
}

type MultipleWallets struct {
	Wallets []WalletListing
}

func (NoWallets) walletSection()       {}
func (SingleWallet) walletSection()    {}
func (MultipleWallets) walletSection() {}

type Report struct {
	Chain   ChainState
	Network NetworkState
	Wallets WalletSection
}

type GenerateResult struct {
	Address string   `json:"address"`
	Blocks  []string `json:"blocks"`
}
