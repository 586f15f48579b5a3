package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bitcli/bitcli/internal/config"
	"github.com/bitcli/bitcli/internal/credentials"
	"github.com/bitcli/bitcli/internal/diagnostics"
	clierr "github.com/bitcli/bitcli/internal/errors"
	"github.com/bitcli/bitcli/internal/generate"
	"github.com/bitcli/bitcli/internal/input"
	"github.com/bitcli/bitcli/internal/out"
	"github.com/bitcli/bitcli/internal/registry"
	"github.com/bitcli/bitcli/internal/rpc"
	"github.com/bitcli/bitcli/internal/version"
)

// Node error code for wallet RPCs issued without a wallet route.
const rpcWalletNotSpecified = -19

type Runner struct {
	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader
}

func NewRunner() *Runner {
	return NewRunnerWithIO(os.Stdout, os.Stderr, os.Stdin)
}

func NewRunnerWithIO(stdout, stderr io.Writer, stdin io.Reader) *Runner {
	return &Runner{stdout: stdout, stderr: stderr, stdin: stdin}
}

type modeFlags struct {
	version   bool
	getInfo   bool
	generate  bool
	stdinArgs bool
	named     bool
	stdinPass bool
}

type runtimeState struct {
	runner   *Runner
	flags    config.GlobalFlags
	mode     modeFlags
	settings config.Settings
}

func (r *Runner) Run(ctx context.Context, args []string) int {
	state := &runtimeState{runner: r}
	root := state.newRootCommand()
	root.SetArgs(normalizeArgs(root.Flags(), args))
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)

	err := normalizeRunError(root.ExecuteContext(ctx))
	if err == nil {
		return 0
	}
	state.renderError(err)
	return clierr.ExitCode(err)
}

func (s *runtimeState) newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:               version.CLIName + " [options] <command> [params]",
		Short:             "Command line client for a running node",
		Args:              cobra.ArbitraryArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			s.flags.RPCWalletSet = cmd.Flags().Changed("rpcwallet")
			return s.dispatch(cmd.Context(), args)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return clierr.New(clierr.KindUsage, err.Error())
	})

	flags := cmd.Flags()
	// Values after the command name stay positional even when they look like flags.
	flags.SetInterspersed(false)

	flags.StringVar(&s.flags.Chain, "chain", "", "Use the chain <chain> (main, test, signet, regtest)")
	flags.StringVar(&s.flags.DataDir, "datadir", "", "Specify data directory")
	flags.StringVar(&s.flags.ConfigPath, "config", "", "Specify configuration file")
	flags.StringVar(&s.flags.RPCConnect, "rpcconnect", "", "Send commands to node running on <ip>")
	flags.IntVar(&s.flags.RPCPort, "rpcport", 0, "Connect to JSON-RPC on <port>")
	flags.StringVar(&s.flags.RPCUser, "rpcuser", "", "Username for JSON-RPC connections")
	flags.StringVar(&s.flags.RPCPassword, "rpcpassword", "", "Password for JSON-RPC connections")
	flags.BoolVar(&s.mode.stdinPass, "stdinrpcpass", false, "Read RPC password from standard input as a single line")
	flags.StringVar(&s.flags.RPCCookieFile, "rpccookiefile", "", "Location of the RPC auth cookie")
	flags.StringVar(&s.flags.RPCWallet, "rpcwallet", "", "Send RPC for non-default wallet on RPC server")
	flags.IntVar(&s.flags.ClientTimeout, "rpcclienttimeout", -1, "Timeout in seconds during HTTP requests, or 0 for no timeout")
	flags.BoolVar(&s.flags.Wait, "rpcwait", false, "Wait for RPC server to start")
	flags.IntVar(&s.flags.WaitTimeout, "rpcwaittimeout", 0, "Timeout in seconds to wait for the RPC server to start, or 0 for no timeout")
	flags.BoolVar(&s.mode.stdinArgs, "stdin", false, "Read commands from standard input, one per line")
	flags.BoolVar(&s.mode.named, "named", false, "Pass named instead of positional arguments")
	flags.BoolVar(&s.mode.getInfo, "getinfo", false, "Get general information from the remote server")
	flags.BoolVar(&s.mode.generate, "generate", false, "Generate blocks, equivalent to RPC getnewaddress followed by generatetoaddress")
	flags.BoolVar(&s.mode.version, "version", false, "Print version and exit")

	return cmd
}

// normalizeArgs rewrites node-style single-dash options to the double-dash
// form. Only registered names are rewritten, and rewriting stops at the
// first non-option argument.
func normalizeArgs(flags *pflag.FlagSet, args []string) []string {
	normalized := make([]string, 0, len(args))
	for i, arg := range args {
		if strings.HasPrefix(arg, "--") && arg != "--" {
			normalized = append(normalized, arg)
			continue
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" || arg == "--" {
			normalized = append(normalized, args[i:]...)
			break
		}
		name := strings.TrimPrefix(arg, "-")
		if eq := strings.IndexByte(name, '='); eq >= 0 {
			name = name[:eq]
		}
		// "help" is registered later by the command machinery itself.
		if name == "help" || flags.Lookup(name) != nil {
			arg = "-" + arg
		}
		normalized = append(normalized, arg)
	}
	return normalized
}

func (s *runtimeState) dispatch(ctx context.Context, args []string) error {
	if s.mode.version {
		_, _ = fmt.Fprintln(s.runner.stdout, version.Long())
		return nil
	}

	settings, err := config.Load(s.flags)
	if err != nil {
		return err
	}
	s.settings = settings

	src := input.NewSource(s.runner.stdin)
	resolver := &credentials.Resolver{
		User:       settings.User,
		Password:   settings.Password,
		UseStdin:   s.mode.stdinPass,
		CookiePath: settings.CookiePath,
		Prompt:     s.runner.stderr,
	}
	// The secret is the first stdin line; consume it now so batch reads
	// start at the first command. The resolver memoizes it for later calls.
	if s.mode.stdinPass {
		if _, err := resolver.Resolve(src); err != nil {
			return err
		}
	}
	credential := func() (string, string, error) {
		cred, err := resolver.Resolve(src)
		if err != nil {
			return "", "", err
		}
		return cred.User, cred.Pass, nil
	}
	gate := &rpc.Gate{Wait: settings.Wait, Timeout: settings.WaitTimeout}
	client := rpc.New(settings.Host, settings.Port, settings.Timeout, credential, gate)
	defer client.Close()

	routed := client
	if name, ok := settings.WalletHint(); ok {
		routed = client.ForWallet(name)
	}

	switch {
	case s.mode.getInfo:
		return s.runGetInfo(ctx, client, args)
	case s.mode.generate:
		return s.runGenerate(ctx, routed, args)
	case s.mode.stdinArgs:
		return s.runBatch(ctx, routed, src, args)
	default:
		return s.runCommand(ctx, routed, args)
	}
}

func (s *runtimeState) runGetInfo(ctx context.Context, client *rpc.Client, args []string) error {
	if len(args) > 0 {
		return clierr.New(clierr.KindUsage, "--getinfo takes no arguments")
	}
	report, err := diagnostics.New(client, s.settings.Wallet).Collect(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(s.runner.stdout, out.Render(report))
	return nil
}

func (s *runtimeState) runGenerate(ctx context.Context, client *rpc.Client, args []string) error {
	result, err := generate.New(client).Run(ctx, args)
	if err != nil {
		return err
	}
	body, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return clierr.Wrap(clierr.KindInternal, "encode generate result", err)
	}
	_, _ = fmt.Fprintln(s.runner.stdout, string(body))
	return nil
}

// Each batch result is printed before the next stdin line is read, and the
// first failure aborts the rest.
func (s *runtimeState) runBatch(ctx context.Context, client *rpc.Client, src *input.Source, args []string) error {
	if len(args) > 0 {
		return clierr.New(clierr.KindUsage, "--stdin takes commands from standard input and accepts no arguments")
	}
	for {
		line, err := src.NextLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return clierr.Wrap(clierr.KindInternal, "read command from standard input", err)
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		result, err := s.call(ctx, client, fields[0], fields[1:])
		if err != nil {
			return err
		}
		s.printResult(result)
	}
}

func (s *runtimeState) runCommand(ctx context.Context, client *rpc.Client, args []string) error {
	if len(args) == 0 {
		return clierr.New(clierr.KindUsage, "too few parameters (need at least a command)")
	}
	result, err := s.call(ctx, client, args[0], args[1:])
	if err != nil {
		return err
	}
	s.printResult(result)
	return nil
}

func (s *runtimeState) call(ctx context.Context, client *rpc.Client, method string, args []string) (json.RawMessage, error) {
	if s.mode.named {
		params := make(map[string]any, len(args))
		for _, arg := range args {
			name, value, err := registry.ConvertNamed(method, arg)
			if err != nil {
				return nil, err
			}
			params[name] = value
		}
		return client.CallNamed(ctx, method, params)
	}

	params := make([]any, 0, len(args))
	for i, arg := range args {
		value, err := registry.ConvertPositional(method, i, arg)
		if err != nil {
			return nil, err
		}
		params = append(params, value)
	}
	return client.Call(ctx, method, params)
}

// printResult: null prints nothing, a string prints bare, everything else
// prints as indented JSON in the order the node sent it.
func (s *runtimeState) printResult(result json.RawMessage) {
	trimmed := bytes.TrimSpace(result)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return
	}
	if trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err == nil {
			_, _ = fmt.Fprintln(s.runner.stdout, text)
			return
		}
	}
	pretty := trimmed
	var buf bytes.Buffer
	if err := json.Indent(&buf, trimmed, "", "  "); err == nil {
		pretty = buf.Bytes()
	}
	_, _ = fmt.Fprintln(s.runner.stdout, string(pretty))
}

func (s *runtimeState) renderError(err error) {
	if cliErr, ok := clierr.As(err); ok && cliErr.RPC != nil {
		message := cliErr.RPC.Message
		if int(cliErr.RPC.Code) == rpcWalletNotSpecified {
			message += ` Try adding "--rpcwallet=<filename>" option to ` + version.CLIName + ` command line.`
		}
		_, _ = fmt.Fprintf(s.runner.stderr, "error code: %d\nerror message:\n%s\n", cliErr.RPC.Code, message)
		return
	}
	_, _ = fmt.Fprintf(s.runner.stderr, "error: %v\n", err)
}

// By the time Execute returns, anything untyped is a malformed invocation.
func normalizeRunError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := clierr.As(err); ok {
		return err
	}
	return clierr.New(clierr.KindUsage, err.Error())
}
