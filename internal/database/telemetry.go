package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/irfndi/quant-regime/internal/logging"
)

// SlowQueryThreshold is the duration above which statements are logged.
const SlowQueryThreshold = 200 * time.Millisecond

// TracedDB wraps a pool with a span per statement and slow query logging.
type TracedDB struct {
	pool   DatabasePool
	tracer trace.Tracer
	logger logging.Logger
}

// NewTracedDB wraps pool. A nil logger discards slow query logs.
func NewTracedDB(pool DatabasePool, logger logging.Logger) *TracedDB {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &TracedDB{
		pool:   pool,
		tracer: otel.Tracer("github.com/irfndi/quant-regime/database"),
		logger: logger,
	}
}

// WithTracer replaces the tracer.
func (db *TracedDB) WithTracer(t trace.Tracer) *TracedDB {
	db.tracer = t
	return db
}

func (db *TracedDB) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	ctx, span := db.start(ctx, "db.query", sql)
	defer span.End()
	start := time.Now()
	rows, err := db.pool.Query(ctx, sql, args...)
	db.finish(span, "query", sql, time.Since(start), err)
	return rows, err
}

// QueryRow errors surface at Scan, so the span only records latency.
func (db *TracedDB) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	ctx, span := db.start(ctx, "db.query_row", sql)
	defer span.End()
	start := time.Now()
	row := db.pool.QueryRow(ctx, sql, args...)
	db.finish(span, "query_row", sql, time.Since(start), nil)
	return row
}

func (db *TracedDB) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	ctx, span := db.start(ctx, "db.exec", sql)
	defer span.End()
	start := time.Now()
	tag, err := db.pool.Exec(ctx, sql, args...)
	if err == nil {
		span.SetAttributes(attribute.Int64("db.rows_affected", tag.RowsAffected()))
	}
	db.finish(span, "exec", sql, time.Since(start), err)
	return tag, err
}

func (db *TracedDB) start(ctx context.Context, name, sql string) (context.Context, trace.Span) {
	return db.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.statement", sql),
		),
	)
}

func (db *TracedDB) finish(span trace.Span, op, sql string, elapsed time.Duration, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if elapsed > SlowQueryThreshold {
		db.logger.WithComponent("database").Warn("Slow query",
			"operation", op,
			"statement", sql,
			"duration_ms", elapsed.Milliseconds(),
		)
	}
}
