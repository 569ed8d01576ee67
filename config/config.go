// Package config loads wallet view settings from a YAML file or command line flags.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/walletview/internal/domain"
	"github.com/vadiminshakov/walletview/internal/services/swap"
)

// Price sources.
const (
	SourceSwitcheo    = "switcheo"
	SourceBinance     = "binance"
	SourceBybit       = "bybit"
	SourceHyperliquid = "hyperliquid"
)

const (
	defaultPollPriceInterval = 30 * time.Second
	defaultRefreshInterval   = 10 * time.Second
	defaultWebAddr           = ":8080"
	defaultWALDir            = "./wal/wallet"
	ethereumRPCEnv           = "ETHEREUM_RPC_URL"
)

type Config struct {
	PriceSource       string
	PricesURL         string
	PollPriceInterval time.Duration
	RefreshInterval   time.Duration
	BalancesFile      string
	EthereumRPC       string
	EthereumAddresses []string
	Priorities        domain.PriorityTable
	WebAddr           string
	TLSDomains        []string
	TLSCacheDir       string
	WALDir            string
	SwapDelay         time.Duration
	Slippage          decimal.Decimal

	// command line only
	Setup bool
	Once  bool
	Print bool
}

// ConfigTmp is the YAML representation of Config.
type ConfigTmp struct {
	PriceSource       string         `yaml:"price_source"`
	PricesURL         string         `yaml:"prices_url,omitempty"`
	PollPriceInterval time.Duration  `yaml:"poll_price_interval,omitempty"`
	RefreshInterval   time.Duration  `yaml:"refresh_interval,omitempty"`
	BalancesFile      string         `yaml:"balances_file,omitempty"`
	EthereumRPC       string         `yaml:"ethereum_rpc,omitempty"`
	EthereumAddresses []string       `yaml:"ethereum_addresses,omitempty"`
	Priorities        map[string]int `yaml:"priorities,omitempty"`
	WebAddr           string         `yaml:"web_addr,omitempty"`
	TLSDomains        []string       `yaml:"tls_domains,omitempty"`
	TLSCacheDir       string         `yaml:"tls_cache_dir,omitempty"`
	WALDir            string         `yaml:"wal_dir,omitempty"`
	SwapDelay         time.Duration  `yaml:"swap_delay,omitempty"`
	SlippageStr       string         `yaml:"slippage,omitempty"`
}

// Get reads the configuration from os.Args.
func Get() (Config, error) {
	return Parse(os.Args[1:])
}

// Parse reads the configuration from args. A -config file takes precedence over the other flags.
func Parse(args []string) (Config, error) {
	fs := flag.NewFlagSet("walletview", flag.ContinueOnError)
	path := fs.String("config", "", "path to yaml config")
	source := fs.String("source", SourceSwitcheo, "price source: switcheo, binance, bybit or hyperliquid")
	pricesURL := fs.String("prices-url", "", "price list url for the switcheo source")
	balances := fs.String("balances", "", "path to a yaml or json balances file")
	poll := fs.Duration("pollpriceinterval", defaultPollPriceInterval, "poll prices interval")
	refresh := fs.Duration("refreshinterval", defaultRefreshInterval, "wallet view refresh interval")
	addr := fs.String("addr", defaultWebAddr, "dashboard listen address")
	walDir := fs.String("wal", defaultWALDir, "wallet snapshot WAL directory")
	slippage := fs.String("slippage", swap.DefaultSlippagePercent, "default swap slippage in percent")
	setup := fs.Bool("setup", false, "run the configuration wizard and start with its result")
	once := fs.Bool("once", false, "print the wallet once and exit")
	printViews := fs.Bool("print", false, "print every rendered wallet view to stdout")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	var (
		conf Config
		err  error
	)
	if *path != "" {
		conf, err = getYaml(*path)
	} else {
		conf, err = fromTmp(ConfigTmp{
			PriceSource:       *source,
			PricesURL:         *pricesURL,
			PollPriceInterval: *poll,
			RefreshInterval:   *refresh,
			BalancesFile:      *balances,
			WebAddr:           *addr,
			WALDir:            *walDir,
			SlippageStr:       *slippage,
		})
	}
	if err != nil {
		return Config{}, err
	}

	conf.Setup = *setup
	conf.Once = *once
	conf.Print = *printViews
	return conf, nil
}

func getYaml(path string) (Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp ConfigTmp
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return Config{}, fmt.Errorf("incorrect yaml config %s: %w", path, err)
	}

	return fromTmp(tmp)
}

func fromTmp(c ConfigTmp) (Config, error) {
	conf := Config{
		PriceSource:       strings.ToLower(strings.TrimSpace(c.PriceSource)),
		PricesURL:         c.PricesURL,
		PollPriceInterval: c.PollPriceInterval,
		RefreshInterval:   c.RefreshInterval,
		BalancesFile:      c.BalancesFile,
		EthereumRPC:       c.EthereumRPC,
		EthereumAddresses: c.EthereumAddresses,
		WebAddr:           c.WebAddr,
		TLSDomains:        c.TLSDomains,
		TLSCacheDir:       c.TLSCacheDir,
		WALDir:            c.WALDir,
		SwapDelay:         c.SwapDelay,
	}

	if conf.PriceSource == "" {
		conf.PriceSource = SourceSwitcheo
	}
	switch conf.PriceSource {
	case SourceSwitcheo, SourceBinance, SourceBybit, SourceHyperliquid:
	default:
		return Config{}, fmt.Errorf("unsupported price source: %s", conf.PriceSource)
	}

	if conf.PollPriceInterval <= 0 {
		conf.PollPriceInterval = defaultPollPriceInterval
	}
	if conf.RefreshInterval <= 0 {
		conf.RefreshInterval = defaultRefreshInterval
	}
	if conf.WebAddr == "" {
		conf.WebAddr = defaultWebAddr
	}
	if conf.WALDir == "" {
		conf.WALDir = defaultWALDir
	}
	if conf.SwapDelay <= 0 {
		conf.SwapDelay = swap.DefaultSimulatedDelay
	}
	if rpc := os.Getenv(ethereumRPCEnv); rpc != "" {
		conf.EthereumRPC = rpc
	}
	if len(conf.EthereumAddresses) > 0 && conf.EthereumRPC == "" {
		return Config{}, fmt.Errorf("'ethereum_rpc' (or %s) is required when 'ethereum_addresses' is set", ethereumRPCEnv)
	}

	slippage := c.SlippageStr
	if slippage == "" {
		slippage = swap.DefaultSlippagePercent
	}
	s, err := decimal.NewFromString(slippage)
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'slippage' param in yaml config (must be a decimal), error: %w", err)
	}
	if s.IsNegative() || s.GreaterThan(decimal.NewFromInt(50)) {
		return Config{}, fmt.Errorf("incorrect 'slippage' param, must be between 0 and 50, got %s", s.String())
	}
	conf.Slippage = s

	if len(c.Priorities) == 0 {
		conf.Priorities = domain.DefaultPriorityTable()
	} else {
		conf.Priorities = make(domain.PriorityTable, len(c.Priorities))
		for chain, p := range c.Priorities {
			if strings.TrimSpace(chain) == "" {
				return Config{}, fmt.Errorf("incorrect 'priorities' param: empty chain name")
			}
			conf.Priorities[chain] = p
		}
	}

	return conf, nil
}
