package out

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/fatih/color"

	"github.com/bitcli/bitcli/internal/model"
)

// The node's own palette. Every Color is forced on so the rendered bytes do
// not depend on whether stdout is a terminal.
var (
	blue    = color.New(color.FgBlue)
	green   = color.New(color.FgGreen)
	yellow  = color.New(color.FgYellow)
	magenta = color.New(color.FgMagenta)
	cyan    = color.New(color.FgCyan)
)

func init() {
	for _, c := range []*color.Color{blue, green, yellow, magenta, cyan} {
		c.EnableColor()
	}
}

// Render returns the report text with no trailing newline.
func Render(r *model.Report) string {
	var b strings.Builder

	b.WriteString(blue.Sprintf("Chain: %s", r.Chain.Chain))
	b.WriteByte('\n')
	fmt.Fprintf(&b, "Blocks: %d\n", r.Chain.Blocks)
	fmt.Fprintf(&b, "Headers: %d\n", r.Chain.Headers)
	fmt.Fprintf(&b, "Verification progress: %s\n", formatNumber(r.Chain.VerificationProgress))
	fmt.Fprintf(&b, "Difficulty: %s\n\n", formatNumber(r.Chain.Difficulty))

	b.WriteString(green.Sprintf("Network: in %d, out %d, total %d",
		r.Network.ConnectionsIn, r.Network.ConnectionsOut, r.Network.Connections))
	b.WriteByte('\n')
	fmt.Fprintf(&b, "Version: %d\n", r.Network.Version)
	fmt.Fprintf(&b, "Time offset: %d\n", r.Network.TimeOffset)
	fmt.Fprintf(&b, "Proxy: %s\n", r.Network.Proxy)
	fmt.Fprintf(&b, "Relay fee: %s\n\n", formatBTC(r.Network.RelayFee))

	switch section := r.Wallets.(type) {
	case model.NoWallets:
	case model.SingleWallet:
		writeWallet(&b, section.Wallet)
	case model.MultipleWallets:
		writeBalances(&b, section.Wallets)
	}

	b.WriteString(yellow.Sprint("Warnings"))
	b.WriteString(": ")
	b.WriteString(r.Network.Warnings)
	return b.String()
}

func writeWallet(b *strings.Builder, w model.WalletState) {
	b.WriteString(magenta.Sprintf("Wallet: %s", quoteName(w.Name)))
	b.WriteByte('\n')
	fmt.Fprintf(b, "Keypool size: %d\n", w.KeypoolSize)
	fmt.Fprintf(b, "Pay transaction fee: %s\n", formatBTC(w.PayTxFee))
	if w.UnlockedUntil != nil {
		fmt.Fprintf(b, "Unlocked until: %d\n", *w.UnlockedUntil)
	}
	b.WriteByte('\n')
	b.WriteString(cyan.Sprint("Balance (₿)"))
	fmt.Fprintf(b, ": %s\n\n", formatBTC(w.Balance))
}

func writeBalances(b *strings.Builder, rows []model.WalletListing) {
	width := 0
	balances := make([]string, len(rows))
	for i, row := range rows {
		balances[i] = formatBTC(row.Balance)
		if len(balances[i]) > width {
			width = len(balances[i])
		}
	}
	b.WriteString(cyan.Sprint("Balances (₿)"))
	b.WriteByte('\n')
	for i, row := range rows {
		fmt.Fprintf(b, "%*s %s\n", width, balances[i], quoteName(row.Name))
	}
	b.WriteByte('\n')
}

// An unnamed default wallet renders as "" so the line is never blank.
func quoteName(name string) string {
	if name == "" {
		return `""`
	}
	return name
}

// formatNumber renders a float the way the node writes it on the wire:
// sixteen significant digits, trailing zeros dropped.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', 16, 64)
}

func formatBTC(a btcutil.Amount) string {
	return strconv.FormatFloat(a.ToBTC(), 'f', 8, 64)
}
