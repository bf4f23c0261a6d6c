package products

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRepo struct {
	gets     int
	products map[int64]*Product
}

func (r *countingRepo) Get(_ context.Context, id int64) (*Product, error) {
	r.gets++
	p, ok := r.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *countingRepo) List(context.Context, string, int, int) ([]Product, int, error) {
	return nil, 0, nil
}

func newCacheFixture(t *testing.T) (*CachedRepository, *countingRepo) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	inner := &countingRepo{products: map[int64]*Product{
		10: {ID: 10, Code: "WID-10", Name: "Widget", UOM: "pcs", UnitPrice: 100, IsActive: true},
	}}
	return NewCachedRepository(inner, client, time.Minute, nil), inner
}

func TestCachedRepositoryGet(t *testing.T) {
	cached, inner := newCacheFixture(t)
	ctx := context.Background()

	p, err := cached.Get(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "WID-10", p.Code)
	assert.Equal(t, 1, inner.gets)

	p, err = cached.Get(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "Widget", p.Name)
	assert.Equal(t, 1, inner.gets, "second read is served from cache")
}

func TestCachedRepositoryMissNotCached(t *testing.T) {
	cached, inner := newCacheFixture(t)
	ctx := context.Background()

	_, err := cached.Get(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = cached.Get(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 2, inner.gets, "misses are not cached")
}

func TestCachedRepositoryInvalidate(t *testing.T) {
	cached, inner := newCacheFixture(t)
	ctx := context.Background()

	_, err := cached.Get(ctx, 10)
	require.NoError(t, err)

	cached.Invalidate(ctx, 10)

	_, err = cached.Get(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.gets)
}
