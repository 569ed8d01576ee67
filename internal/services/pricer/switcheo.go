package pricer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/walletview/internal/domain"
)

// DefaultSwitcheoURL serves a JSON list of token prices.
const DefaultSwitcheoURL = "https://interview.switcheo.com/prices.json"

// SwitcheoPricer reads token prices from a static JSON price list.
type SwitcheoPricer struct {
	client *http.Client
	url    string
}

func NewSwitcheoPricer(url string, client *http.Client) *SwitcheoPricer {
	if url == "" {
		url = DefaultSwitcheoURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &SwitcheoPricer{client: client, url: url}
}

func (p *SwitcheoPricer) Name() string {
	return "switcheo"
}

// Prices downloads the list. Currencies listed more than once keep their highest price.
func (p *SwitcheoPricer) Prices(ctx context.Context) (domain.PriceTable, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request do: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 128))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, errors.Wrap(ErrPermanent, err.Error())
		}
		return nil, err
	}

	var tokens []domain.TokenPrice
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, errors.Wrap(ErrPermanent, fmt.Sprintf("unmarshal body: %v", err))
	}

	table := collapseTokenPrices(tokens)
	if len(table) == 0 {
		return nil, ErrNoPrices
	}

	return table, nil
}

func collapseTokenPrices(tokens []domain.TokenPrice) domain.PriceTable {
	table := make(domain.PriceTable, len(tokens))
	for _, token := range tokens {
		if token.Currency == "" || token.Price.IsNegative() {
			continue
		}
		if current, ok := table.Lookup(token.Currency); ok && current.GreaterThanOrEqual(token.Price) {
			continue
		}
		table.Set(token.Currency, token.Price)
	}

	return table
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
