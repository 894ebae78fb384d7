package logger

import "fmt"

// Level defines the logging level.
type Level int

const (
	// LevelUnknown is an unknown level.
	LevelUnknown Level = iota - 1

	// LevelDisabled means no messages will be logged.
	LevelDisabled

	// LevelError means only error messages will be logged.
	LevelError

	// LevelWarn enables warning and error messages.
	LevelWarn

	// LevelInfo enables info messages and above.
	LevelInfo

	// LevelDebug enables debug messages and above.
	LevelDebug

	// LevelTrace enables all messages.
	LevelTrace
)

var levelNames = map[Level]string{
	LevelDisabled: "disabled",
	LevelError:    "error",
	LevelWarn:     "warn",
	LevelInfo:     "info",
	LevelDebug:    "debug",
	LevelTrace:    "trace",
}

// String returns a string representation of Level.
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}

	return fmt.Sprintf("Unknown(%d)", int(l))
}

// LevelFromString parses the level name. The second return value is false
// when the name is not recognized.
func LevelFromString(str string) (Level, bool) {
	for level, name := range levelNames {
		if name == str {
			return level, true
		}
	}

	return LevelUnknown, false
}

// LevelForNamespace implements Config. When a Level is used as a Config, all
// namespaces share the same level.
func (l Level) LevelForNamespace(_ string) Level {
	return l
}
