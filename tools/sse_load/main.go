// Command sse_load opens many concurrent subscriptions to the dashboard change
// stream and optionally keeps reloading a resource so the stream has traffic.
//
//	go run ./tools/sse_load -conns 500 -poke courses -every 2s
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

func main() {
	var cfg loadConfig
	flag.StringVar(&cfg.BaseURL, "url", "http://127.0.0.1:8090", "dashboard base URL")
	flag.IntVar(&cfg.Conns, "conns", 200, "number of concurrent subscribers")
	flag.DurationVar(&cfg.Duration, "dur", time.Minute, "test duration (0 for until interrupted)")
	flag.DurationVar(&cfg.RampUp, "ramp", 0, "spread subscriber starts across this window")
	flag.StringVar(&cfg.Poke, "poke", "", "resource to reload periodically, e.g. students")
	flag.DurationVar(&cfg.PokeEvery, "every", 2*time.Second, "reload interval for -poke")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	st, err := runLoad(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("load run failed", zap.Error(err))
	}
	fmt.Println(st.String())
}
