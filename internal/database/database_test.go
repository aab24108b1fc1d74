package database

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/irfndi/quant-regime/internal/config"
	"github.com/irfndi/quant-regime/internal/logging"
)

func TestDSN(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host: "db", Port: 5433, User: "quant", Password: "secret", DBName: "regime", SSLMode: "disable",
	}
	assert.Equal(t, "host=db port=5433 user=quant password=secret dbname=regime sslmode=disable", DSN(cfg))

	cfg.DatabaseURL = "postgres://u:p@elsewhere/db"
	assert.Equal(t, "postgres://u:p@elsewhere/db", DSN(cfg))
}

func TestPoolConfig(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host: "localhost", Port: 5432, User: "postgres", Password: "postgres", DBName: "quant_regime", SSLMode: "disable",
		MaxOpenConns: 7, ConnMaxLifetime: "300s", ConnMaxIdleTime: "bogus",
	}
	poolCfg, err := PoolConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, int32(7), poolCfg.MaxConns)
	assert.Equal(t, 300*time.Second, poolCfg.MaxConnLifetime)

	_, err = PoolConfig(config.DatabaseConfig{DatabaseURL: "postgres://%zz"})
	assert.Error(t, err)
}

func TestRedisConnection(t *testing.T) {
	s := miniredis.RunT(t)
	cfg := config.RedisConfig{Host: s.Host(), Port: mustPort(t, s), DB: 0}

	client, err := NewRedisConnection(context.Background(), cfg)
	require.NoError(t, err)
	defer client.Close()
	assert.NoError(t, client.HealthCheck(context.Background()))

	s.Close()
	assert.Error(t, client.HealthCheck(context.Background()))
}

func TestRedisConnection_Unreachable(t *testing.T) {
	s := miniredis.RunT(t)
	cfg := config.RedisConfig{Host: s.Host(), Port: mustPort(t, s)}
	s.Close()

	_, err := NewRedisConnection(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
}

func TestRedisClient_CloseNil(t *testing.T) {
	client := &RedisClient{}
	assert.NotPanics(t, client.Close)
}

func TestPostgresDB_CloseNil(t *testing.T) {
	db := &PostgresDB{}
	assert.NotPanics(t, db.Close)
}

func mustPort(t *testing.T, s *miniredis.Miniredis) int {
	t.Helper()
	port, err := strconv.Atoi(s.Port())
	require.NoError(t, err)
	return port
}

func newTraced(t *testing.T) (*TracedDB, pgxmock.PgxPoolIface, *tracetest.SpanRecorder, *bytes.Buffer) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	var buf bytes.Buffer
	db := NewTracedDB(mock, logging.NewWriterLogger(&buf, "debug", "")).WithTracer(tp.Tracer("test"))
	return db, mock, rec, &buf
}

func TestTracedDB_Exec(t *testing.T) {
	db, mock, rec, _ := newTraced(t)
	mock.ExpectExec("DELETE FROM kv_store").
		WithArgs("k").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	tag, err := db.Exec(context.Background(), "DELETE FROM kv_store WHERE key = $1", "k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), tag.RowsAffected())
	require.NoError(t, mock.ExpectationsWereMet())

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "db.exec", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
}

func TestTracedDB_ErrorsMarkSpan(t *testing.T) {
	db, mock, rec, _ := newTraced(t)
	mock.ExpectQuery("SELECT value").WillReturnError(errors.New("connection reset"))

	_, err := db.Query(context.Background(), "SELECT value FROM kv_store")
	require.Error(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "db.query", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestTracedDB_QueryRow(t *testing.T) {
	db, mock, rec, _ := newTraced(t)
	mock.ExpectQuery("SELECT value").
		WithArgs("k").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow([]byte(`{"a":1}`)))

	var value []byte
	require.NoError(t, db.QueryRow(context.Background(), "SELECT value FROM kv_store WHERE key = $1", "k").Scan(&value))
	assert.JSONEq(t, `{"a":1}`, string(value))
	require.Len(t, rec.Ended(), 1)
}

func TestTracedDB_SlowQueryLogged(t *testing.T) {
	db, mock, _, buf := newTraced(t)
	mock.ExpectExec("UPDATE").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0)).
		WillDelayFor(SlowQueryThreshold + 50*time.Millisecond)

	_, err := db.Exec(context.Background(), "UPDATE kv_store SET updated_at = NOW()")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Slow query")
}
