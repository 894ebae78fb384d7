// Package command is a small tree of subcommands on top of pflag.
package command

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/juju/errors"
	"github.com/spf13/pflag"
)

var ErrCommandNotFound = errors.New("command not found")

// Handler runs a command with the arguments left over after flag parsing.
type Handler interface {
	Handle(ctx context.Context, args []string) error
}

type HandlerFunc func(ctx context.Context, args []string) error

func (h HandlerFunc) Handle(ctx context.Context, args []string) error {
	return h(ctx, args)
}

type Params struct {
	Name string
	Desc string

	// Flags registers the command's own flags. Flags are parsed up to the
	// first positional argument so subcommands can define their own.
	Flags func(flags *pflag.FlagSet)

	// Handler runs before any subcommand.
	Handler Handler

	// Default is the name of the subcommand to run when no arguments are
	// left after parsing the flags.
	Default string

	SubCommands []*Command
}

type Command struct {
	params Params
	subs   map[string]*Command
	writer io.Writer
}

func New(params Params) *Command {
	c := &Command{
		params: params,
		subs:   make(map[string]*Command, len(params.SubCommands)),
	}

	for _, sub := range params.SubCommands {
		c.subs[sub.Name()] = sub
	}

	c.SetWriter(os.Stderr)

	return c
}

// SetWriter sets the usage output of this command and all of its
// subcommands.
func (c *Command) SetWriter(w io.Writer) {
	c.writer = w

	for _, sub := range c.params.SubCommands {
		sub.SetWriter(w)
	}
}

func (c *Command) Name() string {
	return c.params.Name
}

func (c *Command) Desc() string {
	return c.params.Desc
}

func (c *Command) usage(flags *pflag.FlagSet) {
	var b strings.Builder

	fmt.Fprintf(&b, "Usage: %s", c.params.Name)

	flagUsages := flags.FlagUsages()

	if flagUsages != "" {
		b.WriteString(" [OPTIONS]")
	}

	if len(c.params.SubCommands) > 0 {
		b.WriteString(" [COMMAND] [ARG...]")
	}

	fmt.Fprintf(&b, "\n%s\n", c.params.Desc)

	if flagUsages != "" {
		fmt.Fprintf(&b, "\nOptions:\n%s\n", flagUsages)
	}

	if len(c.params.SubCommands) > 0 {
		width := 12

		for _, sub := range c.params.SubCommands {
			if l := len(sub.Name()); l > width {
				width = l
			}
		}

		b.WriteString("\nCommands:\n")

		for _, sub := range c.params.SubCommands {
			fmt.Fprintf(&b, "  %-*s %s\n", width, sub.Name(), sub.Desc())
		}

		b.WriteString("\n")
	}

	_, _ = io.WriteString(c.writer, b.String())
}

// Exec parses flags from args, runs the Handler and then dispatches the
// remaining arguments to a subcommand.
func (c *Command) Exec(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet(c.params.Name, pflag.ContinueOnError)
	flags.SetOutput(c.writer)
	flags.SetInterspersed(false)
	flags.Usage = func() {
		c.usage(flags)
	}

	if c.params.Flags != nil {
		c.params.Flags(flags)
	}

	if err := flags.Parse(args); err != nil {
		return errors.Annotatef(err, "parse args for command: %s", c.params.Name)
	}

	args = flags.Args()

	if c.params.Handler != nil {
		if err := c.params.Handler.Handle(ctx, args); err != nil {
			return errors.Trace(err)
		}
	}

	if len(c.subs) == 0 {
		return nil
	}

	if len(args) > 0 && args[0] == "--" {
		args = args[1:]
	}

	if len(args) == 0 {
		if c.params.Default == "" {
			return nil
		}

		args = []string{c.params.Default}
	}

	sub, ok := c.subs[args[0]]
	if !ok {
		return errors.Annotatef(ErrCommandNotFound, "command: %s", args[0])
	}

	return errors.Trace(sub.Exec(ctx, args[1:]))
}
