// Package swap quotes and simulates token swaps against a price table. No funds move.
package swap

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/walletview/internal/domain"
)

const (
	amountPlaces = 6
	usdPlaces    = 2

	DefaultSlippagePercent = "0.5"
	DefaultSimulatedDelay  = 2 * time.Second
)

var (
	ErrAmountRequired    = errors.New("amount is required")
	ErrAmountNotPositive = errors.New("amount must be greater than 0")
	ErrTokenRequired     = errors.New("both tokens must be selected")
	ErrSameToken         = errors.New("cannot swap a token for itself")
	ErrPriceUnavailable  = errors.New("price unavailable")
	ErrInvalidSlippage   = errors.New("slippage must be between 0 and 50 percent")
)

var maxSlippage = decimal.NewFromInt(50)

// Request is a swap form submission. FromAmount is kept as entered, Slippage is a tolerance
// in percent and defaults to DefaultSlippagePercent.
type Request struct {
	FromToken  string `json:"from_token"`
	ToToken    string `json:"to_token"`
	FromAmount string `json:"from_amount"`
	Slippage   string `json:"slippage,omitempty"`
}

// Quote is the result of pricing a Request.
type Quote struct {
	FromToken   string          `json:"from_token"`
	ToToken     string          `json:"to_token"`
	FromAmount  decimal.Decimal `json:"from_amount"`
	ToAmount    string          `json:"to_amount"`
	Rate        string          `json:"rate"`
	FromUSD     string          `json:"from_usd"`
	MinReceived string          `json:"min_received"`
	Slippage    decimal.Decimal `json:"slippage"`
}

// Receipt confirms a simulated swap.
type Receipt struct {
	ID         uuid.UUID `json:"id"`
	Quote      Quote     `json:"quote"`
	ExecutedAt time.Time `json:"executed_at"`
}

// NewQuote validates req and prices it with prices.
func NewQuote(req Request, prices domain.PriceTable) (Quote, error) {
	raw := strings.TrimSpace(req.FromAmount)
	if raw == "" {
		return Quote{}, ErrAmountRequired
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return Quote{}, errors.Wrapf(ErrAmountNotPositive, "incorrect amount %q", raw)
	}
	if !amount.IsPositive() {
		return Quote{}, ErrAmountNotPositive
	}

	if req.FromToken == "" || req.ToToken == "" {
		return Quote{}, ErrTokenRequired
	}
	if strings.EqualFold(req.FromToken, req.ToToken) {
		return Quote{}, ErrSameToken
	}

	slippage, err := parseSlippage(req.Slippage)
	if err != nil {
		return Quote{}, err
	}

	fromPrice, ok := prices.Lookup(req.FromToken)
	if !ok || !fromPrice.IsPositive() {
		return Quote{}, errors.Wrap(ErrPriceUnavailable, req.FromToken)
	}
	toPrice, ok := prices.Lookup(req.ToToken)
	if !ok || !toPrice.IsPositive() {
		return Quote{}, errors.Wrap(ErrPriceUnavailable, req.ToToken)
	}

	fromUSD := amount.Mul(fromPrice)
	toAmount := decimal.Max(decimal.Zero, fromUSD.Div(toPrice))
	keep := decimal.NewFromInt(100).Sub(slippage).Div(decimal.NewFromInt(100))

	return Quote{
		FromToken:   req.FromToken,
		ToToken:     req.ToToken,
		FromAmount:  amount,
		ToAmount:    toAmount.StringFixed(amountPlaces),
		Rate:        fromPrice.Div(toPrice).StringFixed(amountPlaces),
		FromUSD:     fromUSD.StringFixed(usdPlaces),
		MinReceived: toAmount.Mul(keep).StringFixed(amountPlaces),
		Slippage:    slippage,
	}, nil
}

func parseSlippage(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		s = DefaultSlippagePercent
	}
	slippage, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || slippage.IsNegative() || slippage.GreaterThan(maxSlippage) {
		return decimal.Zero, ErrInvalidSlippage
	}

	return slippage, nil
}

type priceProvider interface {
	Prices() domain.PriceTable
}

// Simulator quotes a swap against the current prices and pretends to execute it.
type Simulator struct {
	prices   priceProvider
	delay    time.Duration
	slippage string
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*Simulator)

// WithDefaultSlippage sets the tolerance used for requests that leave Slippage empty.
func WithDefaultSlippage(percent decimal.Decimal) Option {
	return func(s *Simulator) {
		s.slippage = percent.String()
	}
}

func NewSimulator(logger *zap.Logger, prices priceProvider, delay time.Duration, opts ...Option) *Simulator {
	s := &Simulator{prices: prices, delay: delay, slippage: DefaultSlippagePercent, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Quote prices req with the current price table.
func (s *Simulator) Quote(req Request) (Quote, error) {
	if strings.TrimSpace(req.Slippage) == "" {
		req.Slippage = s.slippage
	}
	return NewQuote(req, s.prices.Prices())
}

// Swap quotes req, waits for the simulated settlement delay and returns a receipt.
func (s *Simulator) Swap(ctx context.Context, req Request) (Receipt, error) {
	quote, err := s.Quote(req)
	if err != nil {
		return Receipt{}, err
	}

	timer := time.NewTimer(s.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return Receipt{}, ctx.Err()
	case <-timer.C:
	}

	receipt := Receipt{ID: uuid.New(), Quote: quote, ExecutedAt: s.now()}
	s.logger.Info("simulated swap",
		zap.String("id", receipt.ID.String()),
		zap.String("from", quote.FromToken),
		zap.String("to", quote.ToToken),
		zap.String("from_amount", quote.FromAmount.String()),
		zap.String("to_amount", quote.ToAmount),
	)

	return receipt, nil
}
