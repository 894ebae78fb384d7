package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/juju/errors"
	"github.com/peer-calls/relay/server/cli"
	"github.com/peer-calls/relay/server/logformatter"
	"github.com/peer-calls/relay/server/logger"
	"github.com/peer-calls/relay/server/multierr"
	"github.com/spf13/pflag"
)

const gitDescribe string = "v0.0.0"

func start(ctx context.Context, log logger.Logger, args []string) error {
	err := cli.Exec(ctx, cli.Props{
		Log:     log,
		Version: gitDescribe,
		Args:    args,
	})

	return errors.Trace(err)
}

func main() {
	log := logger.New().
		WithConfig(
			logger.NewConfig(logger.ConfigMap{
				"**:pion:**": logger.LevelWarn,
				"**:session": logger.LevelInfo,
				"**:pinger":  logger.LevelInfo,
				"**:router":  logger.LevelInfo,
				"":           logger.LevelInfo,
			}),
		).
		WithConfig(logger.NewConfigFromString(os.Getenv("PEERCALLS_LOG"))).
		WithFormatter(logformatter.New()).
		WithNamespaceAppended("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := start(ctx, log, os.Args[1:])

	stop()

	if multierr.Is(err, pflag.ErrHelp) {
		os.Exit(1)
	} else if err != nil {
		log.Error("Command error", errors.Trace(err), nil)
		os.Exit(1)
	}
}
