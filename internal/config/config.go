package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	clierr "github.com/bitcli/bitcli/internal/errors"
	"github.com/bitcli/bitcli/internal/registry"
)

const defaultClientTimeout = 900 // seconds

type GlobalFlags struct {
	ConfigPath    string
	Chain         string
	DataDir       string
	RPCConnect    string
	RPCPort       int
	RPCUser       string
	RPCPassword   string
	RPCCookieFile string
	RPCWallet     string
	RPCWalletSet  bool
	ClientTimeout int // seconds; negative means not given
	Wait          bool
	WaitTimeout   int // seconds; 0 waits forever
}

type Settings struct {
	Network     registry.Network
	DataDir     string
	Host        string
	Port        uint16
	User        string
	Password    string
	CookiePath  string
	Wallet      *string
	Timeout     time.Duration // zero disables the HTTP deadline
	Wait        bool
	WaitTimeout time.Duration // zero waits forever
}

func (s Settings) ServerAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// WalletHint reports the wallet the invocation targets, if any. The empty
// name is a real wallet and distinct from no hint at all.
func (s Settings) WalletHint() (string, bool) {
	if s.Wallet == nil {
		return "", false
	}
	return *s.Wallet, true
}

type fileConfig struct {
	Chain   string `yaml:"chain"`
	DataDir string `yaml:"datadir"`
	RPC     struct {
		Connect       string  `yaml:"connect"`
		Port          *int    `yaml:"port"`
		User          string  `yaml:"user"`
		Password      string  `yaml:"password"`
		CookieFile    string  `yaml:"cookiefile"`
		Wallet        *string `yaml:"wallet"`
		ClientTimeout *int    `yaml:"client_timeout"`
		Wait          *bool   `yaml:"wait"`
		WaitTimeout   *int    `yaml:"wait_timeout"`
	} `yaml:"rpc"`
}

// Environment overrides, read as BITCLI_<FIELD>.
type envConfig struct {
	Chain         string
	DataDir       string
	RPCConnect    string
	RPCPort       int
	RPCUser       string
	RPCPassword   string
	RPCCookieFile string
	RPCWallet     string
}

// layered holds raw values; chain-dependent defaults resolve only once
// every layer has spoken.
type layered struct {
	chain       string
	dataDir     string
	host        string
	port        int
	user        string
	password    string
	cookieFile  string
	wallet      *string
	timeoutSec  int
	wait        bool
	waitTimeout int
}

func Load(flags GlobalFlags) (Settings, error) {
	raw := layered{
		chain:      "main",
		host:       "127.0.0.1",
		cookieFile: ".cookie",
		timeoutSec: defaultClientTimeout,
	}

	cfgPath, err := resolveConfigPath(flags.ConfigPath)
	if err != nil {
		return Settings{}, err
	}
	if err := applyFileConfig(cfgPath, &raw); err != nil {
		return Settings{}, err
	}
	if err := applyEnv(&raw); err != nil {
		return Settings{}, err
	}
	applyFlags(flags, &raw)

	network, ok := registry.LookupNetwork(raw.chain)
	if !ok {
		return Settings{}, clierr.Newf(clierr.KindUsage,
			"invalid chain %q (valid values: main, test, signet, regtest)", raw.chain)
	}

	settings := Settings{
		Network:     network,
		Host:        raw.host,
		User:        raw.user,
		Password:    raw.password,
		Wallet:      raw.wallet,
		Wait:        raw.wait,
		Timeout:     time.Duration(raw.timeoutSec) * time.Second,
		WaitTimeout: time.Duration(raw.waitTimeout) * time.Second,
	}

	if raw.port != 0 {
		if raw.port < 1 || raw.port > 65535 {
			return Settings{}, clierr.Newf(clierr.KindUsage, "invalid rpc port %d", raw.port)
		}
		settings.Port = uint16(raw.port)
	} else {
		settings.Port = network.RPCPort
	}

	settings.DataDir = raw.dataDir
	if settings.DataDir == "" {
		settings.DataDir = btcutil.AppDataDir("bitcoin", false)
	}

	if filepath.IsAbs(raw.cookieFile) {
		settings.CookiePath = raw.cookieFile
	} else {
		settings.CookiePath = filepath.Join(settings.DataDir, network.CookieDir, raw.cookieFile)
	}

	return settings, nil
}

func resolveConfigPath(input string) (string, error) {
	if input != "" {
		return input, nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "bitcli", "config.yaml"), nil
}

func applyFileConfig(path string, raw *layered) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return clierr.Wrap(clierr.KindUsage, "read config", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return clierr.Wrap(clierr.KindUsage, "parse config yaml", err)
	}

	if cfg.Chain != "" {
		raw.chain = cfg.Chain
	}
	if cfg.DataDir != "" {
		raw.dataDir = cfg.DataDir
	}
	if cfg.RPC.Connect != "" {
		raw.host = cfg.RPC.Connect
	}
	if cfg.RPC.Port != nil {
		raw.port = *cfg.RPC.Port
	}
	if cfg.RPC.User != "" {
		raw.user = cfg.RPC.User
	}
	if cfg.RPC.Password != "" {
		raw.password = cfg.RPC.Password
	}
	if cfg.RPC.CookieFile != "" {
		raw.cookieFile = cfg.RPC.CookieFile
	}
	if cfg.RPC.Wallet != nil {
		wallet := *cfg.RPC.Wallet
		raw.wallet = &wallet
	}
	if cfg.RPC.ClientTimeout != nil {
		raw.timeoutSec = *cfg.RPC.ClientTimeout
	}
	if cfg.RPC.Wait != nil {
		raw.wait = *cfg.RPC.Wait
	}
	if cfg.RPC.WaitTimeout != nil {
		raw.waitTimeout = *cfg.RPC.WaitTimeout
	}

	return nil
}

func applyEnv(raw *layered) error {
	var env envConfig
	if err := envconfig.Process("bitcli", &env); err != nil {
		return clierr.Wrap(clierr.KindUsage, "read environment", err)
	}

	if env.Chain != "" {
		raw.chain = env.Chain
	}
	if env.DataDir != "" {
		raw.dataDir = env.DataDir
	}
	if env.RPCConnect != "" {
		raw.host = env.RPCConnect
	}
	if env.RPCPort != 0 {
		raw.port = env.RPCPort
	}
	if env.RPCUser != "" {
		raw.user = env.RPCUser
	}
	if env.RPCPassword != "" {
		raw.password = env.RPCPassword
	}
	if env.RPCCookieFile != "" {
		raw.cookieFile = env.RPCCookieFile
	}
	if env.RPCWallet != "" {
		wallet := env.RPCWallet
		raw.wallet = &wallet
	}

	return nil
}

func applyFlags(flags GlobalFlags, raw *layered) {
	if flags.Chain != "" {
		raw.chain = flags.Chain
	}
	if flags.DataDir != "" {
		raw.dataDir = flags.DataDir
	}
	if flags.RPCConnect != "" {
		raw.host = flags.RPCConnect
	}
	if flags.RPCPort != 0 {
		raw.port = flags.RPCPort
	}
	if flags.RPCUser != "" {
		raw.user = flags.RPCUser
	}
	if flags.RPCPassword != "" {
		raw.password = flags.RPCPassword
	}
	if flags.RPCCookieFile != "" {
		raw.cookieFile = flags.RPCCookieFile
	}
	if flags.RPCWalletSet {
		wallet := flags.RPCWallet
		raw.wallet = &wallet
	}
	if flags.ClientTimeout >= 0 {
		raw.timeoutSec = flags.ClientTimeout
	}
	if flags.Wait {
		raw.wait = true
	}
	if flags.WaitTimeout > 0 {
		raw.waitTimeout = flags.WaitTimeout
	}
}
