package logger

import (
	"fmt"
	"sort"
	"strings"
)

// Formatter serializes a Message before it is written out.
type Formatter interface {
	Format(message Message) ([]byte, error)
}

// StringFormatter is the default Formatter. It writes one line per message
// with context keys appended as key=value pairs.
type StringFormatter struct {
	params StringFormatterParams
}

type StringFormatterParams struct {
	// DateLayout is passed to time.Time.Format.
	DateLayout string

	// DisableContextKeySorting prints the context keys in map order.
	DisableContextKeySorting bool
}

var _ Formatter = &StringFormatter{}

func NewStringFormatter(params StringFormatterParams) *StringFormatter {
	if params.DateLayout == "" {
		params.DateLayout = "2006-01-02T15:04:05.000000Z07:00"
	}

	return &StringFormatter{
		params: params,
	}
}

// Format implements Formatter.
func (f *StringFormatter) Format(message Message) ([]byte, error) {
	keys := make([]string, 0, len(message.Ctx))

	for k := range message.Ctx {
		keys = append(keys, k)
	}

	if !f.params.DisableContextKeySorting {
		sort.Strings(keys)
	}

	var b strings.Builder

	fmt.Fprintf(&b, "%s %5s [%20s] %s",
		message.Timestamp.Format(f.params.DateLayout),
		message.Level,
		message.Namespace,
		strings.TrimRight(message.Body, "\n"),
	)

	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%+v", k, message.Ctx[k])
	}

	b.WriteString("\n")

	return []byte(b.String()), nil
}
