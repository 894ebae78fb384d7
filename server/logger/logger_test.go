package logger_test

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/peer-calls/relay/server/logger"
	"github.com/stretchr/testify/assert"
)

type testWriter struct {
	mockErr error
	b       strings.Builder
}

func (w *testWriter) Write(b []byte) (int, error) {
	if w.mockErr != nil {
		return 0, w.mockErr
	}

	return w.b.Write(b)
}

type testFormatter struct {
	*logger.StringFormatter
	mockErr error
}

func newTestFormatter() *testFormatter {
	return &testFormatter{
		StringFormatter: logger.NewStringFormatter(logger.StringFormatterParams{
			DateLayout: "-",
		}),
	}
}

func (f *testFormatter) Format(message logger.Message) ([]byte, error) {
	if f.mockErr != nil {
		return nil, f.mockErr
	}

	return f.StringFormatter.Format(message)
}

var errTest = fmt.Errorf("test err")

func TestLogger_Namespace(t *testing.T) {
	t.Parallel()

	log := logger.New().WithNamespace("relay").WithNamespaceAppended("router")

	assert.Equal(t, "relay:router", log.Namespace())
}

func TestLogger(t *testing.T) {
	t.Parallel()

	type testEntry struct {
		namespace string
		level     logger.Level
		message   string
		err       error
		ctx       logger.Ctx
	}

	type testCase struct {
		config           string
		ctx              logger.Ctx
		entries          []testEntry
		mockWriterErr    error
		mockFormatterErr error
		wantErr          error
		wantResult       string
	}

	testCases := []testCase{
		{
			config: "",
			entries: []testEntry{
				{"a", logger.LevelInfo, "test", nil, nil},
			},
		},
		{
			config: "a:b",
			entries: []testEntry{
				{"a:b", logger.LevelInfo, "test", nil, nil},
				{"a:b", logger.LevelDebug, "hidden", nil, nil},
			},
			wantResult: "-  info [                 a:b] test\n",
		},
		{
			config: "a:b:debug",
			entries: []testEntry{
				{"a:b", logger.LevelDebug, "test", nil, nil},
			},
			mockWriterErr: errTest,
			wantErr:       fmt.Errorf("log write error: %w", errTest),
		},
		{
			config: "a:b:debug",
			entries: []testEntry{
				{"a:b", logger.LevelDebug, "test", nil, nil},
			},
			mockFormatterErr: errTest,
			wantErr:          fmt.Errorf("log format error: %w", errTest),
		},
		{
			config: "*:b:trace",
			ctx:    logger.Ctx{"k1": "v1", "k2": "v2"},
			entries: []testEntry{
				{"a:b", logger.LevelTrace, "test1", nil, logger.Ctx{"k2": "v3"}},
				{"a:c", logger.LevelTrace, "test2", nil, nil},
				{"a:b", logger.LevelError, "", errTest, nil},
				{"a:b", logger.LevelError, "failed", errTest, nil},
			},
			wantResult: "- trace [                 a:b] test1 k1=v1 k2=v3\n" +
				"- error [                 a:b] test err k1=v1 k2=v2\n" +
				"- error [                 a:b] failed: test err k1=v1 k2=v2\n",
		},
	}

	for i, tc := range testCases {
		descr := fmt.Sprintf("test case: %d", i)

		w := &testWriter{mockErr: tc.mockWriterErr}
		formatter := newTestFormatter()
		formatter.mockErr = tc.mockFormatterErr

		root := logger.New().
			WithConfig(logger.NewConfigFromString(tc.config)).
			WithWriter(w).
			WithCtx(tc.ctx).
			WithFormatter(formatter)

		var gotErr error

		for _, entry := range tc.entries {
			log := root.WithNamespace(entry.namespace)

			switch entry.level {
			case logger.LevelError:
				_, gotErr = log.Error(entry.message, entry.err, entry.ctx)
			case logger.LevelWarn:
				_, gotErr = log.Warn(entry.message, entry.ctx)
			case logger.LevelInfo:
				_, gotErr = log.Info(entry.message, entry.ctx)
			case logger.LevelDebug:
				_, gotErr = log.Debug(entry.message, entry.ctx)
			case logger.LevelTrace:
				_, gotErr = log.Trace(entry.message, entry.ctx)
			default:
				panic(fmt.Sprintf("unexpected level: %s", entry.level))
			}
		}

		assert.Equal(t, tc.wantErr, gotErr, "%s: wantErr", descr)
		assert.Equal(t, tc.wantResult, w.b.String(), "%s: wantResult", descr)
	}
}

func TestLogger_WithConfigNil(t *testing.T) {
	t.Parallel()

	log := logger.New().WithConfig(logger.LevelInfo).WithConfig(nil)

	assert.True(t, log.IsLevelEnabled(logger.LevelInfo))
	assert.False(t, log.IsLevelEnabled(logger.LevelDebug))
}

func TestNewFromEnv(t *testing.T) {
	envKey := "RELAYTEST_LOG"

	defer os.Unsetenv(envKey)

	os.Setenv(envKey, "**:a:trace,:info")

	log := logger.NewFromEnv(envKey)

	assert.True(t, log.IsLevelEnabled(logger.LevelInfo))
	assert.False(t, log.IsLevelEnabled(logger.LevelDebug))
	assert.True(t, log.WithNamespace("a").IsLevelEnabled(logger.LevelTrace))
	assert.True(t, log.WithNamespace("c:b:a").IsLevelEnabled(logger.LevelTrace))
	assert.False(t, log.WithNamespace("b").IsLevelEnabled(logger.LevelDebug))
}
