// Package setup holds the interactive configuration wizard.
package setup

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/walletview/config"
	"github.com/vadiminshakov/walletview/internal/domain"
	"github.com/vadiminshakov/walletview/internal/services/swap"
)

// DefaultConfigFile is where RunTUI writes the generated configuration.
const DefaultConfigFile = "config.gen.yaml"

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// answers are the raw wizard inputs.
type answers struct {
	PriceSource  string
	PricesURL    string
	PollInterval string
	BalancesFile string
	EthereumRPC  string
	EthAddresses string
	Priorities   string
	WebAddr      string
	Slippage     string
}

func defaultAnswers() answers {
	return answers{
		PriceSource:  config.SourceSwitcheo,
		PollInterval: "30s",
		BalancesFile: "balances.yaml",
		Priorities:   formatPriorities(domain.DefaultPriorityTable()),
		WebAddr:      ":8080",
		Slippage:     swap.DefaultSlippagePercent,
	}
}

func step(title string) {
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("WALLETVIEW CONFIG WIZARD"))
	fmt.Println(stepStyle.Render(title))
}

// RunTUI launches the terminal configuration wizard and writes the result to path.
func RunTUI(path string) error {
	a := defaultAnswers()
	var confirm bool

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("WALLETVIEW CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Point it at your balances and a price source.\n"))

	fmt.Println(stepStyle.Render("STEP 1: PRICES"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Price source").
				Options(
					huh.NewOption("Switcheo price list", config.SourceSwitcheo),
					huh.NewOption("Binance", config.SourceBinance),
					huh.NewOption("Bybit", config.SourceBybit),
					huh.NewOption("Hyperliquid", config.SourceHyperliquid),
				).
				Value(&a.PriceSource),
			huh.NewInput().
				Title("Poll Price Interval").
				Description("Duration string (e.g. 30s, 1m, 5m)").
				Value(&a.PollInterval).
				Validate(validateInterval),
		),
	).Run()
	if err != nil {
		return err
	}

	if a.PriceSource == config.SourceSwitcheo {
		step("STEP 1: PRICES")
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Price list URL").
					Description("Leave empty for the default list").
					Value(&a.PricesURL),
			),
		).Run()
		if err != nil {
			return err
		}
	}

	step("STEP 2: BALANCES")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Balances file").
				Description("YAML or JSON list of {currency, amount, chain}").
				Value(&a.BalancesFile),
			huh.NewInput().
				Title("Ethereum addresses").
				Description("Comma separated, optional").
				Value(&a.EthAddresses).
				Validate(validateAddresses),
			huh.NewInput().
				Title("Ethereum RPC URL").
				Description("Required with addresses unless ETHEREUM_RPC_URL is set").
				Value(&a.EthereumRPC),
		),
	).Run()
	if err != nil {
		return err
	}

	step("STEP 3: DISPLAY")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Chain priorities").
				Description("Chain=priority pairs, higher first (e.g. Osmosis=100,Ethereum=50)").
				Value(&a.Priorities).
				Validate(validatePriorities),
			huh.NewInput().
				Title("Swap slippage %").
				Description("Between 0 and 50").
				Value(&a.Slippage).
				Validate(validateSlippage),
			huh.NewInput().
				Title("Dashboard address").
				Value(&a.WebAddr),
		),
	).Run()
	if err != nil {
		return err
	}

	step("FINAL CONFIRMATION")
	summary := fmt.Sprintf(
		"Prices: %s every %s\nBalances: %s\nEthereum: %s\nPriorities: %s\nDashboard: %s\n",
		a.PriceSource, a.PollInterval, a.BalancesFile, a.EthAddresses, a.Priorities, a.WebAddr,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save and start").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	cfgTmp, err := a.configTmp()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfgTmp)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s\nStarting walletview...", path)))
	time.Sleep(1500 * time.Millisecond) // small pause to read success message
	return nil
}

func (a answers) configTmp() (config.ConfigTmp, error) {
	interval, err := time.ParseDuration(a.PollInterval)
	if err != nil {
		return config.ConfigTmp{}, err
	}
	priorities, err := parsePriorities(a.Priorities)
	if err != nil {
		return config.ConfigTmp{}, err
	}

	return config.ConfigTmp{
		PriceSource:       a.PriceSource,
		PricesURL:         strings.TrimSpace(a.PricesURL),
		PollPriceInterval: interval,
		BalancesFile:      strings.TrimSpace(a.BalancesFile),
		EthereumRPC:       strings.TrimSpace(a.EthereumRPC),
		EthereumAddresses: splitList(a.EthAddresses),
		Priorities:        priorities,
		WebAddr:           strings.TrimSpace(a.WebAddr),
		SlippageStr:       strings.TrimSpace(a.Slippage),
	}, nil
}

func validateInterval(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	if d <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validateSlippage(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(50)) {
		return fmt.Errorf("must be between 0 and 50")
	}
	return nil
}

func validatePriorities(s string) error {
	_, err := parsePriorities(s)
	return err
}

func validateAddresses(s string) error {
	for _, addr := range splitList(s) {
		if !strings.HasPrefix(addr, "0x") || len(addr) != 42 {
			return fmt.Errorf("invalid address %q: want 0x followed by 40 hex digits", addr)
		}
	}
	return nil
}

// parsePriorities reads "Chain=priority" pairs separated by commas. An empty string yields nil.
func parsePriorities(s string) (map[string]int, error) {
	pairs := splitList(s)
	if len(pairs) == 0 {
		return nil, nil
	}

	out := make(map[string]int, len(pairs))
	for _, pair := range pairs {
		chain, value, ok := strings.Cut(pair, "=")
		chain = strings.TrimSpace(chain)
		if !ok || chain == "" {
			return nil, fmt.Errorf("invalid pair %q: want Chain=priority", pair)
		}
		p, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid priority for %s: %w", chain, err)
		}
		if p <= domain.SentinelPriority {
			return nil, fmt.Errorf("priority for %s must be greater than %d", chain, domain.SentinelPriority)
		}
		out[chain] = p
	}
	return out, nil
}

func formatPriorities(t domain.PriorityTable) string {
	chains := make([]string, 0, len(t))
	for chain := range t {
		chains = append(chains, chain)
	}
	sort.Slice(chains, func(i, j int) bool {
		if t[chains[i]] != t[chains[j]] {
			return t[chains[i]] > t[chains[j]]
		}
		return chains[i] < chains[j]
	})

	parts := make([]string, len(chains))
	for i, chain := range chains {
		parts[i] = fmt.Sprintf("%s=%d", chain, t[chain])
	}
	return strings.Join(parts, ",")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
