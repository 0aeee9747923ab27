package loadgen

import (
	"auth_gateway/internal/storage"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGenerator(t *testing.T, opts ...Option) (*Generator, *storage.MemoryStorage) {
	t.Helper()

	mem := storage.NewMemoryStorage()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return New(mem, mem, log, append([]Option{WithSeed(42)}, opts...)...), mem
}

func count(t *testing.T, mem *storage.MemoryStorage) int64 {
	t.Helper()

	n, err := mem.CountResources(context.Background())
	require.NoError(t, err)

	return n
}

func TestEnsureSeed(t *testing.T) {
	g, mem := newGenerator(t)
	ctx := context.Background()

	inserted, err := g.EnsureSeed(ctx, DefaultMinSeed)
	require.NoError(t, err)
	assert.Equal(t, 5, inserted)
	assert.Equal(t, int64(5), count(t, mem))

	inserted, err = g.EnsureSeed(ctx, DefaultMinSeed)
	require.NoError(t, err)
	assert.Zero(t, inserted)
}

func TestInsert_FakeResourceShape(t *testing.T) {
	g, mem := newGenerator(t)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		_, err := g.Insert(ctx)
		require.NoError(t, err)
	}

	list, err := mem.ListResources(ctx)
	require.NoError(t, err)
	require.Len(t, list, 20)

	for _, r := range list {
		assert.True(t, strings.HasSuffix(r.Name, " Resource"), r.Name)
		require.NotNil(t, r.Author)
		require.NotNil(t, r.Annotation)
		require.NotNil(t, r.URL)
		assert.Contains(t, kinds, *r.Kind)
		assert.Contains(t, purposes, *r.Purpose)
		assert.Contains(t, usageConditions, *r.UsageConditions)

		open, err := time.Parse(time.DateOnly, *r.OpenDate)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, open.Year(), 2018)
		assert.LessOrEqual(t, open.Year(), 2025)
		assert.LessOrEqual(t, open.Day(), 28)

		expiry, err := time.Parse(time.DateOnly, *r.ExpiryDate)
		require.NoError(t, err)
		days := int(expiry.Sub(open).Hours() / 24)
		assert.GreaterOrEqual(t, days, 180)
		assert.LessOrEqual(t, days, 1500)
	}
}

func TestUpdate_InsertsWhenEmpty(t *testing.T) {
	g, mem := newGenerator(t)

	id, err := g.Update(context.Background())
	require.NoError(t, err)
	assert.NotZero(t, id)
	assert.Equal(t, int64(1), count(t, mem))
}

func TestUpdate_ChangesAnnotationAndKindOnly(t *testing.T) {
	g, mem := newGenerator(t)
	ctx := context.Background()

	id, err := g.Insert(ctx)
	require.NoError(t, err)
	before, _ := mem.ListResources(ctx)

	updated, err := g.Update(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, updated)

	after, _ := mem.ListResources(ctx)
	assert.Equal(t, before[0].Name, after[0].Name)
	assert.Equal(t, *before[0].Author, *after[0].Author)
	assert.Equal(t, *before[0].URL, *after[0].URL)
	assert.NotEqual(t, *before[0].Annotation, *after[0].Annotation)
	assert.Contains(t, kinds, *after[0].Kind)
}

func TestDelete_RespectsMinKeep(t *testing.T) {
	g, mem := newGenerator(t)
	ctx := context.Background()

	_, err := g.EnsureSeed(ctx, DefaultMinKeep)
	require.NoError(t, err)

	_, deleted, err := g.Delete(ctx)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Equal(t, int64(DefaultMinKeep), count(t, mem))

	_, err = g.Insert(ctx)
	require.NoError(t, err)

	id, deleted, err := g.Delete(ctx)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, int64(DefaultMinKeep), count(t, mem))

	ids, _ := mem.ListResourceIDs(ctx)
	assert.NotContains(t, ids, id)
}

func TestSimulateUsage(t *testing.T) {
	g, mem := newGenerator(t)
	ctx := context.Background()

	n, err := g.SimulateUsage(ctx, 3)
	require.NoError(t, err)
	assert.Zero(t, n)

	id, err := g.Insert(ctx)
	require.NoError(t, err)

	n, err = g.SimulateUsage(ctx, 3)
	require.NoError(t, err)
	assert.Zero(t, n, "no users yet")

	require.NoError(t, mem.SeedUser(ctx, "admin@example.com", "admin"))

	n, err = g.SimulateUsage(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, int64(4), mem.Usage(id, "admin@example.com"))
}

func TestRunOnce_FollowsWeights(t *testing.T) {
	ctx := context.Background()

	g, mem := newGenerator(t, WithWeights(Weights{Insert: 1}))
	for i := 0; i < 5; i++ {
		op, err := g.RunOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, OpInsert, op)
	}
	assert.Equal(t, int64(5), count(t, mem))

	g, mem = newGenerator(t, WithWeights(Weights{Delete: 1}), WithMinKeep(2))
	_, err := g.EnsureSeed(ctx, 4)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		op, err := g.RunOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, OpDelete, op)
	}
	assert.Equal(t, int64(2), count(t, mem))
}

func TestRunOnce_DefaultWeightsMix(t *testing.T) {
	g, _ := newGenerator(t)
	ctx := context.Background()

	seen := map[Op]int{}
	for i := 0; i < 300; i++ {
		op, err := g.RunOnce(ctx)
		require.NoError(t, err)
		seen[op]++
	}

	assert.Greater(t, seen[OpInsert], seen[OpUpdate])
	assert.Greater(t, seen[OpUpdate], seen[OpDelete])
	assert.Positive(t, seen[OpDelete])
}

func TestRun_Burst(t *testing.T) {
	g, mem := newGenerator(t, WithWeights(Weights{Insert: 1}))

	done, err := g.Run(context.Background(), RunConfig{Mode: ModeBurst, Ops: 7})
	require.NoError(t, err)
	assert.Equal(t, 7, done)
	assert.Equal(t, int64(DefaultMinSeed+7), count(t, mem))
}

func TestRun_ContinuousStopsOnCancel(t *testing.T) {
	g, _ := newGenerator(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done, err := g.Run(ctx, RunConfig{Mode: ModeContinuous, Sleep: 5 * time.Millisecond})
	require.NoError(t, err)
	assert.Positive(t, done)
}

type brokenStore struct {
	*storage.MemoryStorage
}

func (brokenStore) CountResources(context.Context) (int64, error) {
	return 0, errors.New("connection reset")
}

func TestRun_PropagatesStoreErrors(t *testing.T) {
	mem := storage.NewMemoryStorage()
	g := New(brokenStore{mem}, mem, slog.New(slog.NewTextHandler(io.Discard, nil)), WithSeed(1))

	_, err := g.Run(context.Background(), RunConfig{Mode: ModeBurst, Ops: 1})
	require.ErrorContains(t, err, "connection reset")
}

type missingUsers struct{}

func (missingUsers) ListEmails(context.Context) ([]string, error) {
	return nil, errors.New(`ERROR: relation "users" does not exist (SQLSTATE 42P01)`)
}

func TestRun_SkipsUsageWhenUsersUnavailable(t *testing.T) {
	mem := storage.NewMemoryStorage()
	g := New(mem, missingUsers{}, slog.New(slog.NewTextHandler(io.Discard, nil)), WithSeed(7))

	done, err := g.Run(context.Background(), RunConfig{Mode: ModeBurst, Ops: 50})
	require.NoError(t, err)
	assert.Equal(t, 50, done)

	n, err := g.SimulateUsage(context.Background(), 3)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("burst")
	require.NoError(t, err)
	assert.Equal(t, ModeBurst, m)

	m, err = ParseMode("continuous")
	require.NoError(t, err)
	assert.Equal(t, ModeContinuous, m)

	_, err = ParseMode("forever")
	require.Error(t, err)
}
