package test

import (
	"github.com/peer-calls/relay/server/logformatter"
	"github.com/peer-calls/relay/server/logger"
)

// NewLogger returns a logger configured from PEERCALLS_LOG. It is silent by
// default.
func NewLogger() logger.Logger {
	return logger.NewFromEnv("PEERCALLS_LOG").WithFormatter(logformatter.New())
}
