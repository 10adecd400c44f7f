package main

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const eventsPath = "/api/events"

type loadConfig struct {
	BaseURL   string
	Conns     int
	Duration  time.Duration
	RampUp    time.Duration
	Poke      string
	PokeEvery time.Duration
}

type stats struct {
	connected   atomic.Int64
	connectErrs atomic.Int64
	streamErrs  atomic.Int64
	changes     atomic.Int64
	pokes       atomic.Int64
	started     time.Time
}

func (s *stats) String() string {
	elapsed := time.Since(s.started)
	if elapsed <= 0 {
		elapsed = time.Millisecond
	}
	return fmt.Sprintf("done: connected=%d connect_errs=%d stream_errs=%d changes=%d pokes=%d elapsed=%s changes/s=%.2f",
		s.connected.Load(), s.connectErrs.Load(), s.streamErrs.Load(), s.changes.Load(), s.pokes.Load(),
		elapsed.Truncate(time.Millisecond), float64(s.changes.Load())/elapsed.Seconds())
}

// runLoad subscribes cfg.Conns clients and returns once ctx ends.
func runLoad(ctx context.Context, cfg loadConfig, logger *zap.Logger) (*stats, error) {
	if cfg.Conns <= 0 {
		return nil, errors.Errorf("invalid conns: %d", cfg.Conns)
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if cfg.RampUp == 0 && cfg.Conns > 100 {
		// 1 second per 500 subscribers
		cfg.RampUp = max(time.Duration(cfg.Conns/500)*time.Second, time.Second)
		logger.Info("using default ramp-up", zap.Duration("ramp", cfg.RampUp))
	}

	client := &http.Client{
		Transport: &http.Transport{
			MaxConnsPerHost:     cfg.Conns + 100,
			MaxIdleConns:        cfg.Conns + 100,
			MaxIdleConnsPerHost: cfg.Conns + 100,
			DisableCompression:  true,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
	}

	st := &stats{started: time.Now()}
	logger.Info("starting change stream load",
		zap.String("url", base+eventsPath), zap.Int("conns", cfg.Conns), zap.Duration("ramp", cfg.RampUp))

	var interval time.Duration
	if cfg.RampUp > 0 {
		interval = cfg.RampUp / time.Duration(cfg.Conns)
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Poke != "" {
		g.Go(func() error {
			poke(gctx, client, base+"/api/"+cfg.Poke, cfg.PokeEvery, st, logger)
			return nil
		})
	}
	g.Go(func() error {
		report(gctx, st, logger)
		return nil
	})

	for i := 0; i < cfg.Conns; i++ {
		if i > 0 && interval > 0 {
			select {
			case <-gctx.Done():
			case <-time.After(interval):
			}
		}
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			subscribe(gctx, client, base+eventsPath, st)
			return nil
		})
	}

	return st, g.Wait()
}

func subscribe(ctx context.Context, client *http.Client, url string, st *stats) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		st.connectErrs.Add(1)
		return
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			st.connectErrs.Add(1)
		}
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		st.connectErrs.Add(1)
		return
	}

	st.connected.Add(1)
	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if ctx.Err() == nil {
				st.streamErrs.Add(1)
			}
			return
		}
		// heartbeats start with ':'
		if strings.HasPrefix(line, "event: change") {
			st.changes.Add(1)
		}
	}
}

// poke reloads a resource so the dashboard publishes changes.
func poke(ctx context.Context, client *http.Client, url string, every time.Duration, st *stats, logger *zap.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return
			}
			resp, err := client.Do(req)
			if err != nil {
				if ctx.Err() == nil {
					logger.Warn("poke failed", zap.Error(err))
				}
				continue
			}
			_ = resp.Body.Close()
			st.pokes.Add(1)
		}
	}
}

func report(ctx context.Context, st *stats, logger *zap.Logger) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logger.Info("status",
				zap.Int64("connected", st.connected.Load()),
				zap.Int64("connect_errs", st.connectErrs.Load()),
				zap.Int64("stream_errs", st.streamErrs.Load()),
				zap.Int64("changes", st.changes.Load()),
				zap.Duration("elapsed", time.Since(st.started).Truncate(time.Second)),
			)
		}
	}
}
