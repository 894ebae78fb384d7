package logformatter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/peer-calls/relay/server/logger"
)

const (
	clientIDKey  = "client_id"
	maxNamespace = 20
	timeLayout   = "2006-01-02T15:04:05.000000Z07:00"
)

// LogFormatter formats entries for console output. The client_id context key
// is pulled out in front of the message so that all entries of a single
// connection are easy to grep.
type LogFormatter struct{}

func New() *LogFormatter {
	return &LogFormatter{}
}

var _ logger.Formatter = &LogFormatter{}

func (f *LogFormatter) Format(message logger.Message) ([]byte, error) {
	keys := make([]string, 0, len(message.Ctx))

	for k := range message.Ctx {
		if k != clientIDKey {
			keys = append(keys, k)
		}
	}

	sort.Strings(keys)

	namespace := message.Namespace
	if len(namespace) > maxNamespace {
		namespace = namespace[len(namespace)-maxNamespace:]
	}

	var b strings.Builder

	fmt.Fprintf(&b, "%s %5s [%20s] ", message.Timestamp.Format(timeLayout), message.Level, namespace)

	if clientID, ok := message.Ctx[clientIDKey]; ok {
		fmt.Fprintf(&b, "[%s] ", clientID)
	}

	b.WriteString(strings.TrimRight(message.Body, "\n"))

	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%+v", k, message.Ctx[k])
	}

	b.WriteString("\n")

	return []byte(b.String()), nil
}
