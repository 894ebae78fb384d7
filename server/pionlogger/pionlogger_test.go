package pionlogger_test

import (
	"strings"
	"testing"

	"github.com/peer-calls/relay/server/logger"
	"github.com/peer-calls/relay/server/pionlogger"
	"github.com/stretchr/testify/assert"
)

func TestFactory_NewLogger(t *testing.T) {
	t.Parallel()

	var b strings.Builder

	log := logger.New().
		WithWriter(&b).
		WithFormatter(logger.NewStringFormatter(logger.StringFormatterParams{
			DateLayout: "-",
		})).
		WithConfig(logger.NewConfig(logger.ConfigMap{
			"pion:ice": logger.LevelDebug,
			"pion:*":   logger.LevelWarn,
		}))

	f := pionlogger.NewFactory(log)

	ice := f.NewLogger("ice")
	ice.Tracef("hidden %d", 1)
	ice.Debugf("candidate %s", "host")

	dtls := f.NewLogger("dtls")
	dtls.Info("hidden")
	dtls.Warnf("retransmit %d", 3)
	dtls.Error("failed")

	out := b.String()

	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "candidate host")
	assert.Contains(t, out, "retransmit 3")
	assert.Contains(t, out, "failed")
	assert.Equal(t, 3, strings.Count(out, "\n"), out)
}
