package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
)

// setupTestLogger creates a JSON logger writing into a buffer
func setupTestLogger(level string) (*StandardLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewWriterLogger(&buf, level, ""), &buf
}

// lastEntry decodes the last JSON line written to buf
func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestNewStandardLogger_Basic(t *testing.T) {
	logger := NewStandardLogger("info", "development")

	assert.NotNil(t, logger)
	assert.NotNil(t, logger.Logger())
}

func TestGetSlogLevel(t *testing.T) {
	tests := []struct {
		levelStr string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.levelStr, func(t *testing.T) {
			assert.Equal(t, tt.expected, getSlogLevel(tt.levelStr))
		})
	}
}

func TestParseLogrusLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLogrusLevel("debug"))
	assert.Equal(t, logrus.WarnLevel, ParseLogrusLevel("warning"))
	assert.Equal(t, logrus.ErrorLevel, ParseLogrusLevel("error"))
	assert.Equal(t, logrus.InfoLevel, ParseLogrusLevel(""))
}

func TestNewWriterLogger_Environment(t *testing.T) {
	var buf bytes.Buffer
	NewWriterLogger(&buf, "info", "production").Logger().Info("hello")

	entry := lastEntry(t, &buf)
	assert.Equal(t, "production", entry["environment"])
	assert.Equal(t, "hello", entry["msg"])
}

func TestStandardLogger_ContextHelpers(t *testing.T) {
	tests := []struct {
		name  string
		build func(l *StandardLogger) *slog.Logger
		key   string
		want  interface{}
	}{
		{"service", func(l *StandardLogger) *slog.Logger { return l.WithService("regime") }, "service", "regime"},
		{"component", func(l *StandardLogger) *slog.Logger { return l.WithComponent("simulator") }, "component", "simulator"},
		{"operation", func(l *StandardLogger) *slog.Logger { return l.WithOperation("refresh") }, "operation", "refresh"},
		{"request id", func(l *StandardLogger) *slog.Logger { return l.WithRequestID("req-1") }, "request_id", "req-1"},
		{"session", func(l *StandardLogger) *slog.Logger { return l.WithSession("sess-9") }, "session_id", "sess-9"},
		{"pair", func(l *StandardLogger) *slog.Logger { return l.WithPair("SPY-TLT") }, "pair", "SPY-TLT"},
		{"error", func(l *StandardLogger) *slog.Logger { return l.WithError(errors.New("boom")) }, "error", "boom"},
		{"metrics", func(l *StandardLogger) *slog.Logger {
			return l.WithMetrics(map[string]interface{}{"floored_pivots": 3})
		}, "floored_pivots", float64(3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := setupTestLogger("info")
			tt.build(logger).Info("test message")

			entry := lastEntry(t, buf)
			assert.Equal(t, tt.want, entry[tt.key])
			assert.Equal(t, "test message", entry["msg"])
		})
	}
}

func TestStandardLogger_WithNilError(t *testing.T) {
	logger, buf := setupTestLogger("info")
	logger.WithError(nil).Info("no error")

	entry := lastEntry(t, buf)
	_, ok := entry["error"]
	assert.False(t, ok)
}

func TestStandardLogger_LogStartupAndShutdown(t *testing.T) {
	logger, buf := setupTestLogger("info")

	logger.LogStartup("quant-regime", "1.0.0", 8080)
	entry := lastEntry(t, buf)
	assert.Equal(t, "startup", entry["event"])
	assert.Equal(t, float64(8080), entry["port"])

	logger.LogShutdown("quant-regime", "signal")
	entry = lastEntry(t, buf)
	assert.Equal(t, "shutdown", entry["event"])
	assert.Equal(t, "signal", entry["reason"])
}

func TestStandardLogger_LogStoreOperation(t *testing.T) {
	t.Run("failure is a warning", func(t *testing.T) {
		logger, buf := setupTestLogger("info")
		logger.LogStoreOperation("set", "redis", "qrd_regime_state", 4, errors.New("quota exceeded"))

		entry := lastEntry(t, buf)
		assert.Equal(t, "WARN", entry["level"])
		assert.Equal(t, "quota exceeded", entry["error"])
		assert.Equal(t, "redis", entry["backend"])
	})

	t.Run("success is debug", func(t *testing.T) {
		logger, buf := setupTestLogger("info")
		logger.LogStoreOperation("get", "memory", "k", 0, nil)
		assert.Empty(t, buf.String())
	})
}

func TestStandardLogger_LogCacheOperation(t *testing.T) {
	logger, buf := setupTestLogger("debug")
	logger.LogCacheOperation("get", "qrd_corr_alerts", true, 2)

	entry := lastEntry(t, buf)
	assert.Equal(t, "cache", entry["event"])
	assert.Equal(t, true, entry["hit"])
}

func TestStandardLogger_LogAPIRequest(t *testing.T) {
	logger, buf := setupTestLogger("info")
	logger.LogAPIRequest("GET", "/api/v1/regime", 200, 12, "sess-1")

	entry := lastEntry(t, buf)
	assert.Equal(t, "api", entry["event"])
	assert.Equal(t, float64(200), entry["status"])
	assert.Equal(t, "sess-1", entry["session_id"])
}

func TestStandardLogger_LogBusinessEvent(t *testing.T) {
	logger, buf := setupTestLogger("info")
	logger.LogBusinessEvent("regime_transition", map[string]interface{}{
		"indicator": "VIX Regime",
		"to":        "Elevated",
	})

	entry := lastEntry(t, buf)
	assert.Equal(t, "business_event", entry["event"])
	assert.Equal(t, "regime_transition", entry["type"])
	assert.Equal(t, "VIX Regime", entry["indicator"])
}

func TestNewOTLPLogger_Disabled(t *testing.T) {
	l, err := NewOTLPLogger(OTLPConfig{Enabled: false})
	require.NoError(t, err)
	assert.NotNil(t, l.Logger())
	assert.NoError(t, l.Shutdown(context.Background()))
}

func TestNewStandardOTLPLogger_Disabled(t *testing.T) {
	logger, otlp := NewStandardOTLPLogger(OTLPConfig{Enabled: false, LogLevel: "info"})
	assert.NotNil(t, logger)
	require.NotNil(t, otlp)
	assert.NoError(t, otlp.Shutdown(context.Background()))
}

// recordingLogger captures emitted OTLP records
type recordingLogger struct {
	otellog.Logger
	records []otellog.Record
}

func (r *recordingLogger) Enabled(ctx context.Context, params otellog.EnabledParameters) bool {
	return true
}

func (r *recordingLogger) Emit(ctx context.Context, record otellog.Record) {
	r.records = append(r.records, record)
}

func recordAttrs(rec otellog.Record) map[string]string {
	out := map[string]string{}
	rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		out[kv.Key] = kv.Value.String()
		return true
	})
	return out
}

func TestOTLPHandler_Enabled(t *testing.T) {
	handler := NewOTLPHandler(&recordingLogger{}, slog.LevelWarn)
	ctx := context.Background()

	assert.False(t, handler.Enabled(ctx, slog.LevelInfo))
	assert.True(t, handler.Enabled(ctx, slog.LevelWarn))
	assert.True(t, handler.Enabled(ctx, slog.LevelError))
}

func TestOTLPHandler_Handle(t *testing.T) {
	rec := &recordingLogger{}
	handler := NewOTLPHandler(rec, slog.LevelInfo)

	record := slog.NewRecord(time.Now(), slog.LevelWarn, "cholesky floor hit", 0)
	record.AddAttrs(slog.Int("floored_pivots", 2))

	require.NoError(t, handler.Handle(context.Background(), record))
	require.Len(t, rec.records, 1)

	got := rec.records[0]
	assert.Equal(t, "cholesky floor hit", got.Body().AsString())
	assert.Equal(t, otellog.SeverityWarn, got.Severity())
	assert.Equal(t, "2", recordAttrs(got)["floored_pivots"])
	got.WalkAttributes(func(kv otellog.KeyValue) bool {
		assert.Equal(t, otellog.KindInt64, kv.Value.Kind())
		return true
	})
}

func TestOTLPHandler_WithAttrsAndGroup(t *testing.T) {
	rec := &recordingLogger{}
	base := NewOTLPHandler(rec, slog.LevelInfo)

	handler := base.WithAttrs([]slog.Attr{slog.String("component", "regime")}).WithGroup("req")
	logger := slog.New(handler)
	logger.Info("hello", "id", "abc")

	require.Len(t, rec.records, 1)
	attrs := recordAttrs(rec.records[0])
	assert.Equal(t, "regime", attrs["component"])
	assert.Equal(t, "abc", attrs["req.id"])

	// The base handler is not mutated.
	slog.New(base).Info("plain")
	require.Len(t, rec.records, 2)
	assert.Empty(t, recordAttrs(rec.records[1]))
}

func TestSeverity(t *testing.T) {
	assert.Equal(t, otellog.SeverityDebug, severity(slog.LevelDebug))
	assert.Equal(t, otellog.SeverityInfo, severity(slog.LevelInfo))
	assert.Equal(t, otellog.SeverityWarn, severity(slog.LevelWarn))
	assert.Equal(t, otellog.SeverityError, severity(slog.LevelError))
	assert.Equal(t, otellog.SeverityInfo, severity(slog.Level(2)))
	assert.Equal(t, otellog.SeverityWarn, severity(slog.LevelWarn+2))
}

func TestOTLPAttr_KeepsTypes(t *testing.T) {
	assert.Equal(t, otellog.KindFloat64, otlpAttr("score", slog.Float64Value(0.4)).Value.Kind())
	assert.Equal(t, otellog.KindBool, otlpAttr("repaired", slog.BoolValue(true)).Value.Kind())
	assert.Equal(t, otellog.KindString, otlpAttr("pair", slog.StringValue("SPY-TLT")).Value.Kind())
	assert.Equal(t, otellog.KindString, otlpAttr("took", slog.DurationValue(time.Second)).Value.Kind())
}
