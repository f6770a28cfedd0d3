// Command ladder runs a DCA ladder on a Solana DEX pair.
// It is configured through a YAML file, with secrets taken from the environment or a .env file.
//
// Usage:
//
//	ladder --config config.yaml          run the ladder
//	ladder --config config.yaml status   print the persisted ledger
//	ladder --setup                       interactive configuration wizard
//
// Environment variables:
//
//	LADDER_WALLET_KEY      base58 or JSON array wallet secret (not needed in dry run)
//	LADDER_RPC_URL         overrides solana.rpc_url
//	LADDER_TELEGRAM_TOKEN  enables the Telegram channel together with notify.telegram.chat_id
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/ladder/config"
	"github.com/vadiminshakov/ladder/internal"
	"github.com/vadiminshakov/ladder/internal/metrics"
	"github.com/vadiminshakov/ladder/internal/setup"
)

func main() {
	flags, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	if flags.Setup {
		if err := setup.RunTUI(flags.ConfigPath); err != nil {
			log.Fatal(err)
		}
	}

	logger, err := newLogger(flags.Debug)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	conf, err := config.Load(flags.ConfigPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.String("path", flags.ConfigPath), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flags.Command == config.CommandStatus {
		if err := internal.PrintStatus(ctx, logger, conf, os.Stdout); err != nil {
			logger.Fatal("failed to print status", zap.Error(err))
		}
		return
	}

	if err := run(ctx, logger, conf); err != nil {
		logger.Fatal("ladder stopped", zap.Error(err))
	}
	logger.Info("ladder stopped")
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(ctx context.Context, logger *zap.Logger, conf config.Config) error {
	app, err := internal.NewLadder(ctx, logger, conf)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("failed to close ladder", zap.Error(err))
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	if conf.MetricsListen != "" {
		g.Go(func() error {
			return metrics.Serve(gctx, logger, conf.MetricsListen)
		})
	}
	g.Go(func() error {
		return app.Bot.Run(gctx, logger)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
