package web

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/walletview/internal/domain"
	"github.com/vadiminshakov/walletview/internal/services/pricefeed"
	"github.com/vadiminshakov/walletview/internal/services/swap"
)

type fakeStore struct {
	records []domain.WalletViewRecord
	err     error
}

func (s *fakeStore) ViewsAfter(index uint64) ([]domain.WalletViewRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.WalletViewRecord
	for _, r := range s.records {
		if r.Index > index {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakePage struct {
	view domain.WalletView
	ok   bool
}

func (p fakePage) Latest() (domain.WalletView, bool) { return p.view, p.ok }

type fakeFeed struct {
	snap pricefeed.Snapshot
}

func (f fakeFeed) Snapshot() pricefeed.Snapshot { return f.snap }

func (f fakeFeed) Prices() domain.PriceTable { return f.snap.Prices }

func osmoView() domain.WalletView {
	return domain.NewWalletView(
		time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		[]domain.EnrichedBalance{{
			RawBalance:      domain.RawBalance{Currency: "OSMO", Amount: decimal.NewFromInt(10), Chain: domain.ChainOsmosis},
			FormattedAmount: "10.00",
			USDValue:        decimal.RequireFromString("15"),
		}},
		false,
		nil,
	)
}

func newTestServer(store viewReader, page latestView, feed fakeFeed) *Server {
	sim := swap.NewSimulator(zap.NewNop(), feed, time.Millisecond)
	return NewServer(zap.NewNop(), ":0", store, page, feed, sim)
}

func TestServer_Wallet(t *testing.T) {
	t.Run("not rendered", func(t *testing.T) {
		srv := newTestServer(&fakeStore{}, fakePage{}, fakeFeed{})
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/wallet", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("latest view", func(t *testing.T) {
		view := osmoView()
		srv := newTestServer(&fakeStore{}, fakePage{view: view, ok: true}, fakeFeed{})
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/wallet", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var got domain.WalletView
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, view.ID, got.ID)
		require.Len(t, got.Balances, 1)
		assert.Equal(t, "10.00", got.Balances[0].FormattedAmount)
		assert.True(t, got.TotalUSD.Equal(decimal.NewFromInt(15)))
	})
}

func TestServer_Prices(t *testing.T) {
	updated := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	feed := fakeFeed{snap: pricefeed.Snapshot{
		Prices:    domain.PriceTable{"osmo": decimal.RequireFromString("1.5")},
		Err:       errors.New("upstream timeout"),
		UpdatedAt: updated,
	}}
	srv := newTestServer(&fakeStore{}, fakePage{}, feed)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/prices", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got pricesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, map[string]string{"osmo": "1.5"}, got.Prices)
	assert.False(t, got.Loading)
	assert.Equal(t, "upstream timeout", got.Error)
	require.NotNil(t, got.UpdatedAt)
	assert.True(t, updated.Equal(*got.UpdatedAt))
}

func TestServer_Swap(t *testing.T) {
	feed := fakeFeed{snap: pricefeed.Snapshot{Prices: domain.PriceTable{
		"osmo": decimal.RequireFromString("1.5"),
		"usdc": decimal.NewFromInt(1),
	}}}
	srv := newTestServer(&fakeStore{}, fakePage{}, feed)

	tests := []struct {
		name string
		path string
		body string
		code int
	}{
		{name: "quote", path: "/api/swap/quote", body: `{"from_token":"OSMO","to_token":"USDC","from_amount":"10"}`, code: http.StatusOK},
		{name: "swap", path: "/api/swap", body: `{"from_token":"OSMO","to_token":"USDC","from_amount":"10"}`, code: http.StatusOK},
		{name: "same token", path: "/api/swap/quote", body: `{"from_token":"OSMO","to_token":"OSMO","from_amount":"10"}`, code: http.StatusUnprocessableEntity},
		{name: "missing amount", path: "/api/swap", body: `{"from_token":"OSMO","to_token":"USDC"}`, code: http.StatusUnprocessableEntity},
		{name: "malformed body", path: "/api/swap/quote", body: `{"from_token":`, code: http.StatusBadRequest},
		{name: "unknown field", path: "/api/swap/quote", body: `{"from":"OSMO"}`, code: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			srv.Handler().ServeHTTP(rec, req)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}

	t.Run("quote body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/swap/quote",
			strings.NewReader(`{"from_token":"OSMO","to_token":"USDC","from_amount":"10"}`))
		srv.Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var quote swap.Quote
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))
		assert.Equal(t, "15.000000", quote.ToAmount)
		assert.Equal(t, "15.00", quote.FromUSD)
	})

	t.Run("method not allowed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/swap", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestServer_Index(t *testing.T) {
	srv := newTestServer(&fakeStore{}, fakePage{}, fakeFeed{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/wallet/stream")

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_WalletStream(t *testing.T) {
	store := &fakeStore{records: []domain.WalletViewRecord{
		{Index: 1, View: osmoView()},
		{Index: 2, View: osmoView()},
	}}
	srv := newTestServer(store, fakePage{}, fakeFeed{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/wallet/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Last-Event-ID", "1")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var lines []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		lines = append(lines, line)
		if strings.HasPrefix(line, "data: ") {
			break
		}
	}
	require.Len(t, lines, 3)
	assert.Equal(t, "id: 2", lines[0])
	assert.Equal(t, "event: wallet", lines[1])

	var view domain.WalletView
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(lines[2], "data: ")), &view))
	assert.Equal(t, "OSMO", view.Balances[0].Currency)
}

func TestServer_WalletStreamNoData(t *testing.T) {
	srv := newTestServer(&fakeStore{}, fakePage{}, fakeFeed{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/wallet/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	require.True(t, scanner.Scan())
	assert.Equal(t, "event: no_data", scanner.Text())
}

func TestParseLastEventID(t *testing.T) {
	srv := newTestServer(&fakeStore{}, fakePage{}, fakeFeed{})

	tests := []struct {
		header, query string
		want          uint64
	}{
		{"", "", 0},
		{"7", "", 7},
		{" 7 ", "3", 7},
		{"", "3", 3},
		{"abc", "", 0},
		{"-1", "", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, srv.parseLastEventID(tt.header, tt.query), "header=%q query=%q", tt.header, tt.query)
	}
}
