// Package notify runs a configurable shell hook when a node reports a
// wallet-affecting transaction.
package notify

import (
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"go.uber.org/zap"
)

// Event is one wallet-affecting transaction notification. Block and Height
// are set only once a block confirms the transaction.
type Event struct {
	TxID   chainhash.Hash
	Block  *chainhash.Hash
	Wallet string
	Height int32
}

// key identifies an event for exactly-once dispatch; the zero block stands
// for unconfirmed, so a confirming block fires the same transaction again.
type key struct {
	txid  chainhash.Hash
	block chainhash.Hash
}

// Runner executes one substituted command line.
type Runner func(command string) error

type Option func(*Notifier)

// WithLogger routes hook failures to log instead of dropping them.
func WithLogger(log *zap.Logger) Option {
	return func(n *Notifier) { n.log = log }
}

// WithRunner replaces the default /bin/sh execution.
func WithRunner(run Runner) Option {
	return func(n *Notifier) { n.run = run }
}

// Notifier substitutes events into a command template and executes the
// result asynchronously, at most once per distinct event.
type Notifier struct {
	template string
	run      Runner
	log      *zap.Logger

	mu   sync.Mutex
	seen map[key]struct{}
	wg   sync.WaitGroup
}

func New(template string, opts ...Option) *Notifier {
	n := &Notifier{
		template: template,
		run:      runShell,
		log:      zap.NewNop(),
		seen:     make(map[key]struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// TransactionChanged fires the hook for one event, dropping duplicates; the
// command runs on its own goroutine so the caller never blocks on it.
func (n *Notifier) TransactionChanged(ev Event) {
	if n.template == "" {
		return
	}
	k := key{txid: ev.TxID}
	if ev.Block != nil {
		k.block = *ev.Block
	}
	n.mu.Lock()
	if _, dup := n.seen[k]; dup {
		n.mu.Unlock()
		return
	}
	n.seen[k] = struct{}{}
	n.mu.Unlock()

	command := n.expand(ev)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := n.run(command); err != nil {
			n.log.Error("notification hook failed",
				zap.String("txid", ev.TxID.String()),
				zap.String("wallet", ev.Wallet),
				zap.String("command", command),
				zap.Error(err))
		}
	}()
}

// Close waits for every in-flight hook process to finish.
func (n *Notifier) Close() {
	n.wg.Wait()
}

// expand substitutes placeholders in a single pass; substituted values are
// never re-scanned, so a wallet named "%s" cannot inject a placeholder.
func (n *Notifier) expand(ev Event) string {
	t := n.template
	var b strings.Builder
	b.Grow(len(t) + 2*chainhash.MaxHashStringSize)

	for i := 0; i < len(t); i++ {
		if t[i] != '%' || i+1 == len(t) {
			b.WriteByte(t[i])
			continue
		}
		i++
		switch t[i] {
		case 's':
			b.WriteString(ev.TxID.String())
		case 'b':
			if ev.Block != nil {
				b.WriteString(ev.Block.String())
			}
		case 'h':
			if ev.Block != nil {
				b.WriteString(strconv.FormatInt(int64(ev.Height), 10))
			}
		case 'w':
			b.WriteString(ev.Wallet)
		case '%':
			b.WriteByte('%')
		default:
			b.WriteByte('%')
			b.WriteByte(t[i])
		}
	}
	return b.String()
}

func runShell(command string) error {
	return exec.Command("/bin/sh", "-c", command).Run()
}
