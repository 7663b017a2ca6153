// Command cctalkd is the ccTalk host daemon: it owns one serial bus,
// runs background polling for every configured coin/bill validator and
// payout hopper, and optionally exposes Prometheus metrics and a Redis
// event mirror.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cctalk/cctalk-host/internal/daemon"
)

func main() {
	configPath := flag.String("config", ".", "directory to load cctalkd.yaml from")
	flag.Parse()

	app, err := daemon.New(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cctalkd: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() {
		runErr <- app.Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		cancel()
	case err := <-runErr:
		if err != nil {
			fmt.Fprintf(os.Stderr, "cctalkd: %v\n", err)
		}
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "cctalkd: shutdown: %v\n", err)
		os.Exit(1)
	}
}
