package diagnostics

import (
	"context"
	"encoding/json"

	"github.com/btcsuite/btcd/btcutil"

	clierr "github.com/bitcli/bitcli/internal/errors"
	"github.com/bitcli/bitcli/internal/model"
	"github.com/bitcli/bitcli/internal/rpc"
)

// Aggregator assembles the node diagnostics report. Node state failures are
// fatal; a wallet the node cannot answer for is left out of the report.
type Aggregator struct {
	node   *rpc.Client
	wallet *string
}

func New(node *rpc.Client, wallet *string) *Aggregator {
	return &Aggregator{node: node, wallet: wallet}
}

type networkInfo struct {
	Version        int64 `json:"version"`
	TimeOffset     int64 `json:"timeoffset"`
	ConnectionsIn  int64 `json:"connections_in"`
	ConnectionsOut int64 `json:"connections_out"`
	Connections    int64 `json:"connections"`
	Networks       []struct {
		Proxy string `json:"proxy"`
	} `json:"networks"`
	RelayFee float64 `json:"relayfee"`
	Warnings string  `json:"warnings"`
}

type blockchainInfo struct {
	Chain                string  `json:"chain"`
	Blocks               int64   `json:"blocks"`
	Headers              int64   `json:"headers"`
	VerificationProgress float64 `json:"verificationprogress"`
	Difficulty           float64 `json:"difficulty"`
}

type walletInfo struct {
	WalletName    string  `json:"walletname"`
	KeypoolSize   int64   `json:"keypoolsize"`
	PayTxFee      float64 `json:"paytxfee"`
	UnlockedUntil *int64  `json:"unlocked_until"`
}

type balances struct {
	Mine struct {
		Trusted float64 `json:"trusted"`
	} `json:"mine"`
}

func (a *Aggregator) Collect(ctx context.Context) (*model.Report, error) {
	var net networkInfo
	if err := a.call(ctx, a.node, "getnetworkinfo", &net); err != nil {
		return nil, err
	}
	var chain blockchainInfo
	if err := a.call(ctx, a.node, "getblockchaininfo", &chain); err != nil {
		return nil, err
	}

	relayFee, err := btcutil.NewAmount(net.RelayFee)
	if err != nil {
		return nil, clierr.Wrap(clierr.KindInternal, "relay fee out of range", err)
	}
	proxy := ""
	if len(net.Networks) > 0 {
		proxy = net.Networks[0].Proxy
	}

	report := &model.Report{
		Chain: model.ChainState{
			Chain:                chain.Chain,
			Blocks:               chain.Blocks,
			Headers:              chain.Headers,
			VerificationProgress: chain.VerificationProgress,
			Difficulty:           chain.Difficulty,
		},
		Network: model.NetworkState{
			ConnectionsIn:  net.ConnectionsIn,
			ConnectionsOut: net.ConnectionsOut,
			Connections:    net.Connections,
			Version:        net.Version,
			TimeOffset:     net.TimeOffset,
			Proxy:          proxy,
			RelayFee:       relayFee,
			Warnings:       net.Warnings,
		},
	}

	section, err := a.walletSection(ctx)
	if err != nil {
		return nil, err
	}
	report.Wallets = section
	return report, nil
}

func (a *Aggregator) walletSection(ctx context.Context) (model.WalletSection, error) {
	if a.wallet != nil {
		return a.singleWallet(ctx, a.node.ForWallet(*a.wallet))
	}

	// The default endpoint answers when exactly one wallet is loaded.
	section, err := a.singleWallet(ctx, a.node)
	if err != nil {
		return nil, err
	}
	if _, ok := section.(model.NoWallets); !ok {
		return section, nil
	}

	var names []string
	if err := a.call(ctx, a.node, "listwallets", &names); err != nil {
		if clierr.IsKind(err, clierr.KindRPC) {
			return model.NoWallets{}, nil
		}
		return nil, err
	}
	switch len(names) {
	case 0:
		return model.NoWallets{}, nil
	case 1:
		return a.singleWallet(ctx, a.node.ForWallet(names[0]))
	}

	rows := make([]model.WalletListing, 0, len(names))
	for _, name := range names {
		var bal balances
		if err := a.call(ctx, a.node.ForWallet(name), "getbalances", &bal); err != nil {
			if clierr.IsKind(err, clierr.KindRPC) {
				continue
			}
			return nil, err
		}
		amount, err := btcutil.NewAmount(bal.Mine.Trusted)
		if err != nil {
			return nil, clierr.Wrap(clierr.KindInternal, "wallet balance out of range", err)
		}
		rows = append(rows, model.WalletListing{Name: name, Balance: amount})
	}
	return model.MultipleWallets{Wallets: rows}, nil
}

// A node-reported error collapses to the empty section; everything else is
// a real failure.
func (a *Aggregator) singleWallet(ctx context.Context, route *rpc.Client) (model.WalletSection, error) {
	var info walletInfo
	if err := a.call(ctx, route, "getwalletinfo", &info); err != nil {
		if clierr.IsKind(err, clierr.KindRPC) {
			return model.NoWallets{}, nil
		}
		return nil, err
	}
	var bal balances
	if err := a.call(ctx, route, "getbalances", &bal); err != nil {
		if clierr.IsKind(err, clierr.KindRPC) {
			return model.NoWallets{}, nil
		}
		return nil, err
	}

	payTxFee, err := btcutil.NewAmount(info.PayTxFee)
	if err != nil {
		return nil, clierr.Wrap(clierr.KindInternal, "pay tx fee out of range", err)
	}
	balance, err := btcutil.NewAmount(bal.Mine.Trusted)
	if err != nil {
		return nil, clierr.Wrap(clierr.KindInternal, "wallet balance out of range", err)
	}

	return model.SingleWallet{Wallet: model.WalletState{
		Name:          info.WalletName,
		KeypoolSize:   info.KeypoolSize,
		PayTxFee:      payTxFee,
		UnlockedUntil: info.UnlockedUntil,
		Balance:       balance,
	}}, nil
}

func (a *Aggregator) call(ctx context.Context, route *rpc.Client, method string, out any) error {
	raw, err := route.Call(ctx, method, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return clierr.Wrap(clierr.KindInternal, "decode "+method+" reply", err)
	}
	return nil
}
