package logger

import "time"

// Message is a single log entry passed to a Formatter.
type Message struct {
	Timestamp time.Time
	// Namespace is the full namespace of the Logger the entry was sent to.
	Namespace string
	Level     Level
	Body      string
	Ctx       Ctx
}
