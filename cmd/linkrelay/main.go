// Command linkrelay runs next to the game: it reads the local shared record
// and sends its wire prefix to a bridge whenever the tick advances.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gw2overlay/linkbridge/internal/config"
	"github.com/gw2overlay/linkbridge/internal/link"
	"github.com/gw2overlay/linkbridge/internal/logging"
	"github.com/gw2overlay/linkbridge/internal/shm"
	"github.com/gw2overlay/linkbridge/internal/telemetry"
)

func main() {
	configDir := flag.String("config", ".", "directory holding "+config.FileName)
	target := flag.String("target", "", "bridge address, overrides relay.target")
	flag.Parse()

	configErr := config.Load(*configDir)

	slogManager := logging.NewSlogManager()
	slogManager.Setup(nil, config.GetString("logLevel"), nil)
	logger := slogManager.Logger()
	if configErr != nil {
		logger.Warn("Failed to load config, using defaults!", "error", configErr)
	}

	if err := run(logger, *target); err != nil {
		fmt.Fprintf(os.Stderr, "linkrelay: %v\n", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, target string) error {
	if err := telemetry.ValidateLayout(); err != nil {
		return err
	}

	cfg := config.GetRelayConfig()
	if target != "" {
		cfg.Target = target
	}

	region, err := shm.OpenOrCreate(shm.SegmentName(config.GetShmConfig().Name))
	if err != nil {
		return err
	}
	defer region.Close()

	relay, err := link.DialRelay(region, cfg.Target, logger.With("component", "relay"))
	if err != nil {
		return err
	}
	defer relay.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Relaying", "segment", region.Name(), "target", cfg.Target, "interval", cfg.Interval)
	if err := relay.Run(ctx, cfg.Interval); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
