package logger_test

import (
	"fmt"
	"testing"

	"github.com/peer-calls/relay/server/logger"
	"github.com/stretchr/testify/assert"
)

func TestNewConfig(t *testing.T) {
	t.Parallel()

	assert.Nil(t, logger.NewConfig(nil))

	config := logger.NewConfig(logger.ConfigMap{
		"":                logger.LevelWarn,
		"relay":           logger.LevelInfo,
		"relay:router":    logger.LevelTrace,
		"relay:*":         logger.LevelDebug,
		"*:wss":           logger.LevelError,
		"**:pion:**":      logger.LevelDisabled,
		"client:**":       logger.LevelTrace,
		"client:*:answer": logger.LevelInfo,
	})

	type testCase struct {
		namespace string
		wantLevel logger.Level
	}

	testCases := []testCase{
		{"", logger.LevelWarn},
		{"unknown", logger.LevelWarn},
		{"relay", logger.LevelInfo},
		{"relay:router", logger.LevelTrace},
		{"relay:rooms", logger.LevelDebug},
		{"relay:rooms:redis", logger.LevelWarn},
		{"main:wss", logger.LevelError},
		{"pion", logger.LevelDisabled},
		{"main:pion:ice", logger.LevelDisabled},
		{"client", logger.LevelTrace},
		{"client:session:offer", logger.LevelTrace},
		{"client:session:answer", logger.LevelInfo},
	}

	for i, tc := range testCases {
		descr := fmt.Sprintf("test case %d, namespace: %q", i, tc.namespace)

		assert.Equal(t, tc.wantLevel, config.LevelForNamespace(tc.namespace), descr)
	}
}

func TestNewConfigFromString(t *testing.T) {
	t.Parallel()

	assert.Nil(t, logger.NewConfigFromString(""))

	config := logger.NewConfigFromString("a:b:trace,c,:error,**:pion:warn")

	assert.Equal(t, logger.LevelTrace, config.LevelForNamespace("a:b"))
	assert.Equal(t, logger.LevelInfo, config.LevelForNamespace("c"))
	assert.Equal(t, logger.LevelError, config.LevelForNamespace("d"))
	assert.Equal(t, logger.LevelWarn, config.LevelForNamespace("x:y:pion"))

	config = logger.NewConfigFromString("debug")
	assert.Equal(t, logger.LevelDebug, config.LevelForNamespace("anything"))
}
