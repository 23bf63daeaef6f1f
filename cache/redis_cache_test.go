package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"community-blog-api/models"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := New(mr.Addr(), 0, 60)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestPostRoundTripAndInvalidate(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	_, err := c.GetPost(ctx, 1)
	assert.ErrorIs(t, err, ErrMiss)

	p := &models.Post{ID: 1, Title: "t", Categories: []string{"a"}, Tags: []string{}, Comments: []models.Comment{}}
	require.NoError(t, c.SetPost(ctx, p))
	assert.Equal(t, 60*time.Second, mr.TTL("post:1"))

	got, err := c.GetPost(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	require.NoError(t, c.InvalidatePost(ctx, 1))
	_, err = c.GetPost(ctx, 1)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestGetPostCorruptEntryIsMiss(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set("post:2", "{not json"))

	_, err := c.GetPost(context.Background(), 2)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestEntriesExpire(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", "v"))

	mr.FastForward(61 * time.Second)
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}
