// Package web serves the wallet dashboard and its JSON API.
package web

import (
	"context"
	"crypto/tls"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/vadiminshakov/walletview/internal/domain"
	"github.com/vadiminshakov/walletview/internal/services/pricefeed"
	"github.com/vadiminshakov/walletview/internal/services/swap"
)

const (
	defaultPollInterval = 2 * time.Second
	heartbeatInterval   = 20 * time.Second
	maxRequestBody      = 1 << 16
)

//go:embed static/index.html
var indexHTML string

type viewReader interface {
	ViewsAfter(index uint64) ([]domain.WalletViewRecord, error)
}

type latestView interface {
	Latest() (domain.WalletView, bool)
}

type priceSnapshotter interface {
	Snapshot() pricefeed.Snapshot
}

type swapper interface {
	Quote(req swap.Request) (swap.Quote, error)
	Swap(ctx context.Context, req swap.Request) (swap.Receipt, error)
}

// Server exposes the wallet JSON API, an SSE stream of stored views and an HTML page.
type Server struct {
	Addr         string
	Store        viewReader
	Page         latestView
	Prices       priceSnapshotter
	Swaps        swapper
	PollInterval time.Duration
	logger       *zap.Logger
}

// NewServer creates a new web server instance. Any dependency may be nil; its endpoints
// then answer 503.
func NewServer(logger *zap.Logger, addr string, store viewReader, page latestView, prices priceSnapshotter, swaps swapper) *Server {
	return &Server{
		Addr:         addr,
		Store:        store,
		Page:         page,
		Prices:       prices,
		Swaps:        swaps,
		PollInterval: defaultPollInterval,
		logger:       logger,
	}
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/wallet", s.handleWallet)
	mux.HandleFunc("GET /api/prices", s.handlePrices)
	mux.HandleFunc("POST /api/swap/quote", s.handleSwapQuote)
	mux.HandleFunc("POST /api/swap", s.handleSwap)
	mux.HandleFunc("GET /wallet/stream", s.handleWalletStream)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("dashboard listening", zap.String("addr", s.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartWithAutoTLS runs an HTTPS server with automatic TLS certificates via ACME.
// It also starts an HTTP server on port 80 to handle ACME HTTP-01 challenges.
func (s *Server) StartWithAutoTLS(ctx context.Context, domains []string, cacheDir string) error {
	if len(domains) == 0 {
		return fmt.Errorf("no domains provided for automatic TLS")
	}
	if cacheDir == "" {
		cacheDir = "cert-cache"
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(domains...),
		Cache:      autocert.DirCache(cacheDir),
	}

	httpSrv := &http.Server{
		Addr:              ":80",
		Handler:           manager.HTTPHandler(nil),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	tlsConfig := manager.TLSConfig()
	tlsConfig.MinVersion = tls.VersionTLS12

	httpsSrv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
		TLSConfig:         tlsConfig,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("acme server shutdown", zap.Error(err))
		}
		if err := httpsSrv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("https server shutdown", zap.Error(err))
		}
	}()

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("acme server", zap.Error(err))
		}
	}()

	s.logger.Info("dashboard listening with TLS", zap.String("addr", s.Addr), zap.Strings("domains", domains))
	if err := httpsSrv.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	if s.Page == nil {
		writeError(w, http.StatusServiceUnavailable, "wallet page not available")
		return
	}
	view, ok := s.Page.Latest()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "wallet not rendered yet")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type pricesResponse struct {
	Prices    map[string]string `json:"prices"`
	Loading   bool              `json:"loading"`
	Error     string            `json:"error,omitempty"`
	UpdatedAt *time.Time        `json:"updated_at,omitempty"`
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	if s.Prices == nil {
		writeError(w, http.StatusServiceUnavailable, "price feed not available")
		return
	}

	snap := s.Prices.Snapshot()
	resp := pricesResponse{
		Prices:  make(map[string]string, len(snap.Prices)),
		Loading: snap.Loading,
	}
	for currency, price := range snap.Prices {
		resp.Prices[currency] = price.String()
	}
	if snap.Err != nil {
		resp.Error = snap.Err.Error()
	}
	if !snap.UpdatedAt.IsZero() {
		resp.UpdatedAt = &snap.UpdatedAt
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSwapQuote(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeSwapRequest(w, r)
	if !ok {
		return
	}

	quote, err := s.Swaps.Quote(req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeSwapRequest(w, r)
	if !ok {
		return
	}

	receipt, err := s.Swaps.Swap(r.Context(), req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			writeError(w, http.StatusRequestTimeout, err.Error())
			return
		}
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) decodeSwapRequest(w http.ResponseWriter, r *http.Request) (swap.Request, bool) {
	if s.Swaps == nil {
		writeError(w, http.StatusServiceUnavailable, "swap simulator not available")
		return swap.Request{}, false
	}

	var req swap.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return swap.Request{}, false
	}
	return req, true
}

func (s *Server) handleWalletStream(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "snapshot store not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// comment heartbeat so proxies keep the connection
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	pollInterval := s.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	pollTicker := time.NewTicker(pollInterval)
	defer pollTicker.Stop()

	lastIndex := s.parseLastEventID(r.Header.Get("Last-Event-ID"), r.URL.Query().Get("last_event_id"))
	sendViews := func() error {
		records, err := s.Store.ViewsAfter(lastIndex)
		if err != nil {
			return err
		}
		for _, record := range records {
			payload, err := json.Marshal(record.View)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "id: %d\n", record.Index)
			fmt.Fprintf(w, "event: wallet\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			lastIndex = record.Index
		}
		return nil
	}

	if err := sendViews(); err != nil {
		http.Error(w, "failed to load wallet views", http.StatusInternalServerError)
		s.logger.Error("wallet stream initial load", zap.Error(err))
		return
	}

	if lastIndex == 0 {
		fmt.Fprintf(w, "event: no_data\n")
		fmt.Fprintf(w, "data: {}\n\n")
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := sendViews(); err != nil {
				s.logger.Error("wallet stream poll", zap.Error(err))
			}
		}
	}
}

// parseLastEventID prefers the Last-Event-ID header; the query parameter allows manual resumes.
func (s *Server) parseLastEventID(headerVal, queryVal string) uint64 {
	idStr := strings.TrimSpace(headerVal)
	if idStr == "" {
		idStr = strings.TrimSpace(queryVal)
	}
	if idStr == "" {
		return 0
	}

	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		s.logger.Warn("invalid last event id", zap.String("id", idStr), zap.Error(err))
		return 0
	}
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
