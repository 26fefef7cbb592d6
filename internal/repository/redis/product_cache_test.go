package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moni-del/dragon-d/internal/domain"
)

func TestProductCache_MissSetHitInvalidate(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewProductCache(client, time.Minute)
	ctx := context.Background()

	got, err := cache.Get(ctx, "1")
	require.NoError(t, err)
	assert.Nil(t, got)

	p := &domain.Product{ID: "1", Name: "Dragon Flame Car", Price: 29.99, Rarity: domain.RarityLegendary}
	require.NoError(t, cache.Set(ctx, p))
	assert.Equal(t, time.Minute, mr.TTL("catalog:product:1"))

	got, err = cache.Get(ctx, "1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, p.Price, got.Price)

	require.NoError(t, cache.Invalidate(ctx, "1"))
	got, err = cache.Get(ctx, "1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestProductCache_CorruptEntry(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewProductCache(client, time.Minute)
	require.NoError(t, mr.Set("catalog:product:7", "garbage"))

	_, err := cache.Get(context.Background(), "7")
	assert.Error(t, err)
}
