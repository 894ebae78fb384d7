// Package cli wires the relay server and the headless client into
// subcommands.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/juju/errors"
	"github.com/peer-calls/relay/server/logger"
)

type Props struct {
	Log     logger.Logger
	Version string
	Args    []string
	// Stdout defaults to os.Stdout.
	Stdout io.Writer
}

func Exec(ctx context.Context, props Props) error {
	if props.Stdout == nil {
		props.Stdout = os.Stdout
	}

	cmd := NewRootCommand(props)
	err := cmd.Exec(ctx, props.Args)

	return errors.Trace(err)
}
