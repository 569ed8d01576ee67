// Command sse_load opens many concurrent subscriptions to the wallet stream and reports
// how many wallet views each delivered.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
)

type stats struct {
	connected   atomic.Int64
	connectErrs atomic.Int64
	streamErrs  atomic.Int64
	views       atomic.Int64
	noData      atomic.Int64
	lastID      atomic.Uint64
}

func (s *stats) fields(elapsed time.Duration) []zap.Field {
	return []zap.Field{
		zap.Int64("connected", s.connected.Load()),
		zap.Int64("connect_errs", s.connectErrs.Load()),
		zap.Int64("stream_errs", s.streamErrs.Load()),
		zap.Int64("views", s.views.Load()),
		zap.Int64("no_data", s.noData.Load()),
		zap.Uint64("last_id", s.lastID.Load()),
		zap.Duration("elapsed", elapsed.Truncate(time.Second)),
	}
}

func main() {
	targetURL := flag.String("url", "http://localhost:8080/wallet/stream", "wallet stream URL")
	connections := flag.Int("conns", 1000, "number of concurrent connections to open")
	testDuration := flag.Duration("dur", 60*time.Second, "test duration (0 for until interrupted)")
	rampUp := flag.Duration("ramp", 0, "spread connection starts across this window")
	lastEventID := flag.Uint64("from", 0, "resume every stream after this snapshot index")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	if *connections <= 0 {
		logger.Fatal("invalid conns", zap.Int("conns", *connections))
	}
	if *rampUp == 0 && *connections > 100 {
		// 1s per 500 connections
		*rampUp = max(time.Duration(*connections/500)*time.Second, time.Second)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if *testDuration > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, *testDuration)
		defer stop()
	}

	client := &http.Client{Transport: &http.Transport{
		MaxConnsPerHost:     *connections + 100,
		MaxIdleConns:        *connections + 100,
		MaxIdleConnsPerHost: *connections + 100,
		DisableCompression:  true,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}}

	logger.Info("starting wallet stream load",
		zap.String("url", *targetURL),
		zap.Int("conns", *connections),
		zap.Duration("duration", *testDuration),
		zap.Duration("ramp", *rampUp),
	)

	var (
		st       stats
		wg       sync.WaitGroup
		start    = time.Now()
		interval = *rampUp / time.Duration(*connections)
	)

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logger.Info("status", st.fields(time.Since(start))...)
			}
		}
	}()

	for i := 0; i < *connections && ctx.Err() == nil; i++ {
		if i > 0 && interval > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(interval):
			}
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			subscribe(ctx, client, *targetURL, *lastEventID, &st)
		}()
	}

	wg.Wait()

	elapsed := max(time.Since(start), time.Millisecond)
	fmt.Printf("done: connected=%d connect_errs=%d stream_errs=%d views=%d no_data=%d last_id=%d elapsed=%s views/s=%.2f\n",
		st.connected.Load(),
		st.connectErrs.Load(),
		st.streamErrs.Load(),
		st.views.Load(),
		st.noData.Load(),
		st.lastID.Load(),
		elapsed.Truncate(time.Millisecond),
		float64(st.views.Load())/elapsed.Seconds(),
	)
}

func subscribe(ctx context.Context, client *http.Client, url string, from uint64, st *stats) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		st.connectErrs.Add(1)
		return
	}
	req.Header.Set("Accept", "text/event-stream")
	if from > 0 {
		req.Header.Set("Last-Event-ID", strconv.FormatUint(from, 10))
	}

	resp, err := client.Do(req)
	if err != nil {
		st.connectErrs.Add(1)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		st.connectErrs.Add(1)
		return
	}
	st.connected.Add(1)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "event: wallet":
			st.views.Add(1)
		case line == "event: no_data":
			st.noData.Add(1)
		case strings.HasPrefix(line, "id: "):
			id, err := strconv.ParseUint(strings.TrimPrefix(line, "id: "), 10, 64)
			if err == nil {
				for {
					cur := st.lastID.Load()
					if id <= cur || st.lastID.CompareAndSwap(cur, id) {
						break
					}
				}
			}
		}
	}
	// the server never ends a stream on its own
	if ctx.Err() == nil {
		st.streamErrs.Add(1)
	}
}
