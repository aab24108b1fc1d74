package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/quant-regime/internal/models"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return s, client
}

// exerciseKV runs the contract every backend must honor.
func exerciseKV(t *testing.T, kv KeyValueStore) {
	t.Helper()
	ctx := context.Background()

	_, err := kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Set(ctx, "k", []byte(`{"v":1}`)))
	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(got))

	require.NoError(t, kv.Set(ctx, "k", []byte(`{"v":2}`)))
	got, err = kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(got))

	require.NoError(t, kv.Delete(ctx, "k"))
	_, err = kv.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	kv := NewMemoryStore()
	exerciseKV(t, kv)
	assert.Equal(t, BackendMemory, kv.Backend())

	// Stored bytes are not aliased.
	buf := []byte(`"a"`)
	require.NoError(t, kv.Set(context.Background(), "x", buf))
	buf[1] = 'b'
	got, _ := kv.Get(context.Background(), "x")
	assert.Equal(t, `"a"`, string(got))
}

func TestRedisStore(t *testing.T) {
	_, client := setupTestRedis(t)
	kv := NewRedisStore(client, 0)
	exerciseKV(t, kv)
	assert.Equal(t, BackendRedis, kv.Backend())
}

func TestRedisStore_TTLAndClear(t *testing.T) {
	s, client := setupTestRedis(t)
	kv := NewRedisStore(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "qr:a", []byte("1")))
	require.NoError(t, kv.Set(ctx, "qr:b", []byte("2")))
	require.NoError(t, kv.Set(ctx, "other", []byte("3")))
	assert.Equal(t, time.Minute, s.TTL("qr:a"))

	n, err := kv.Clear(ctx, "qr:")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, s.Exists("other"))

	s.FastForward(2 * time.Minute)
	_, err = kv.Get(ctx, "other")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_ConnectionError(t *testing.T) {
	s, client := setupTestRedis(t)
	kv := NewRedisStore(client, 0)
	s.Close()

	_, err := kv.Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()
	kv := NewPostgresStore(pool)
	ctx := context.Background()

	pool.ExpectExec("CREATE TABLE IF NOT EXISTS kv_store").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	pool.ExpectQuery("SELECT value FROM kv_store").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)
	pool.ExpectExec("INSERT INTO kv_store").
		WithArgs("k", []byte(`{"v":1}`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pool.ExpectQuery("SELECT value FROM kv_store").
		WithArgs("k").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow([]byte(`{"v":1}`)))
	pool.ExpectExec("DELETE FROM kv_store").
		WithArgs("k").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, kv.EnsureSchema(ctx))

	_, err = kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Set(ctx, "k", []byte(`{"v":1}`)))
	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(got))

	require.NoError(t, kv.Delete(ctx, "k"))
	require.NoError(t, pool.ExpectationsWereMet())
	assert.Equal(t, BackendPostgres, kv.Backend())
}

func TestPostgresStore_Errors(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()
	kv := NewPostgresStore(pool)

	pool.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))
	pool.ExpectQuery("SELECT value").
		WithArgs("k").
		WillReturnError(errors.New("connection refused"))
	pool.ExpectExec("INSERT INTO kv_store").
		WithArgs("k", []byte("{}")).
		WillReturnError(errors.New("disk full"))

	assert.ErrorContains(t, kv.EnsureSchema(context.Background()), "kv_store")

	_, err = kv.Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	assert.ErrorContains(t, kv.Set(context.Background(), "k", []byte("{}")), "disk full")
	require.NoError(t, pool.ExpectationsWereMet())
}

type MockKV struct {
	mock.Mock
}

func (m *MockKV) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockKV) Set(ctx context.Context, key string, value []byte) error {
	return m.Called(ctx, key, value).Error(0)
}

func (m *MockKV) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockKV) Backend() string { return "mock" }

func TestBreakerStore_OpensAfterFailures(t *testing.T) {
	kv := new(MockKV)
	kv.On("Set", mock.Anything, "k", mock.Anything).Return(errors.New("timeout")).Times(2)

	b := NewBreakerStore(kv, BreakerConfig{ConsecutiveFailures: 2, OpenTimeout: time.Hour}, nil)
	ctx := context.Background()

	assert.EqualError(t, b.Set(ctx, "k", []byte("1")), "timeout")
	assert.EqualError(t, b.Set(ctx, "k", []byte("1")), "timeout")
	assert.Equal(t, "open", b.State())

	err := b.Set(ctx, "k", []byte("1"))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Contains(t, err.Error(), "mock store unavailable")
	kv.AssertNumberOfCalls(t, "Set", 2)
}

func TestBreakerStore_NotFoundIsNotAFailure(t *testing.T) {
	kv := new(MockKV)
	kv.On("Get", mock.Anything, "k").Return(nil, ErrNotFound)

	b := NewBreakerStore(kv, BreakerConfig{ConsecutiveFailures: 1}, nil)
	for i := 0; i < 3; i++ {
		_, err := b.Get(context.Background(), "k")
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, "closed", b.State())
	assert.Equal(t, "mock", b.Backend())
}

func TestBreakerStore_PassesThrough(t *testing.T) {
	b := NewBreakerStore(NewMemoryStore(), DefaultBreakerConfig(), nil)
	exerciseKV(t, b)
}

func TestValidateBackend(t *testing.T) {
	for _, name := range []string{BackendMemory, BackendRedis, BackendPostgres} {
		assert.NoError(t, ValidateBackend(name))
	}
	assert.Error(t, ValidateBackend("etcd"))
}

func TestRegimeStateStore(t *testing.T) {
	repo := NewRepository(NewMemoryStore(), "desk1:", nil)
	states := NewRegimeStateStore(repo)
	ctx := context.Background()

	prev, err := states.Previous(ctx)
	require.NoError(t, err)
	assert.Nil(t, prev)

	log, err := states.Log(ctx)
	require.NoError(t, err)
	assert.Empty(t, log)

	vix := 18.5
	state := models.CompositeRegimeState{
		Indicators: map[string]models.IndicatorClassification{
			"vix": {Key: "vix", Name: "VIX Regime", DisplayValue: "18.50", Label: "Normal", Color: models.ColorYellow, Score: -0.3, RawValue: &vix},
		},
		Overall:   models.OverallRegime{Score: -0.3, Label: models.RegimeNeutral, Color: models.ColorYellow, Hex: "#d29922"},
		Timestamp: time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC),
	}
	require.NoError(t, states.SavePrevious(ctx, state))

	prev, err = states.Previous(ctx)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, state, *prev)

	entries := []models.RegimeChange{{ID: "1", Date: state.Timestamp, Indicator: "VIX Regime", From: "Low", To: "Normal"}}
	require.NoError(t, states.SaveLog(ctx, entries))
	log, err = states.Log(ctx)
	require.NoError(t, err)
	assert.Equal(t, entries, log)

	stats := repo.Stats()
	assert.Equal(t, int64(2), stats.Sets)
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, BackendMemory, repo.Backend())
}

func TestRepository_UsesPrefix(t *testing.T) {
	s, client := setupTestRedis(t)
	repo := NewRepository(NewRedisStore(client, 0), "desk1:", nil)

	require.NoError(t, NewAlertCache(repo).PublishAlerts(context.Background(), nil))
	assert.True(t, s.Exists("desk1:"+KeyCorrAlerts))

	raw, err := s.Get("desk1:" + KeyCorrAlerts)
	require.NoError(t, err)
	assert.Equal(t, "[]", raw)
}

func TestRepository_CorruptDocument(t *testing.T) {
	kv := NewMemoryStore()
	require.NoError(t, kv.Set(context.Background(), KeyRegimeState, []byte("not json")))
	repo := NewRepository(kv, "", nil)

	_, err := NewRegimeStateStore(repo).Previous(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode")
	assert.Equal(t, int64(1), repo.Stats().Errors)
}

func TestAlertCache(t *testing.T) {
	cache := NewAlertCache(NewRepository(NewMemoryStore(), "", nil))
	ctx := context.Background()

	alerts, found, err := cache.LoadAlerts(ctx)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, alerts)

	require.NoError(t, cache.PublishAlerts(ctx, []models.AlertSummary{}))
	alerts, found, err = cache.LoadAlerts(ctx)
	require.NoError(t, err)
	assert.True(t, found, "an empty published list still counts as a cache")
	assert.Empty(t, alerts)

	summary := models.AlertSummary{Pair: "SPY-TLT", Type: "Stock-Bond Correlation Flip", Severity: models.SeverityHigh, Message: "Stock-Bond Correlation Flip: S&P 500 / 20Y Treasury"}
	require.NoError(t, cache.PublishAlerts(ctx, []models.AlertSummary{summary}))
	alerts, found, err = cache.LoadAlerts(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []models.AlertSummary{summary}, alerts)
}

func TestAlertCache_BackendDown(t *testing.T) {
	kv := new(MockKV)
	kv.On("Get", mock.Anything, KeyCorrAlerts).Return(nil, errors.New("down"))

	_, found, err := NewAlertCache(NewRepository(kv, "", nil)).LoadAlerts(context.Background())
	assert.Error(t, err)
	assert.False(t, found)
}

func TestMarketSnapshotStore(t *testing.T) {
	snaps := NewMarketSnapshotStore(NewRepository(NewMemoryStore(), "", nil))
	ctx := context.Background()

	_, found, err := snaps.Load(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	snap := models.MarketSnapshot{
		Data:      []models.MarketItem{{Label: "VIX", Value: "18.42"}},
		Timestamp: time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC),
	}
	require.NoError(t, snaps.Save(ctx, snap))

	got, found, err := snaps.Load(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	item, ok := got.Find("VIX")
	require.True(t, ok)
	assert.Equal(t, "18.42", item.Value)
	assert.False(t, item.ChangeNum.Valid)
}
