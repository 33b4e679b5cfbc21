package subsites

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/mapas-backend/pkg/db/dbtest"
	"github.com/angelmondragon/mapas-backend/pkg/db/models"
	"github.com/angelmondragon/mapas-backend/pkg/enums"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	values map[string]string
	sets   int
}

func (m *memoryCache) Get(ctx context.Context, key string) (string, error) {
	value, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (m *memoryCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.sets++
	m.values[key] = value.(string)
	return nil
}

func (m *memoryCache) SubsiteKey(host string) string { return "subsite:" + host }

type countingRepo struct {
	Repository
	calls int
}

func (c *countingRepo) FindEnabledByHost(ctx context.Context, host string) (*models.Subsite, error) {
	c.calls++
	return c.Repository.FindEnabledByHost(ctx, host)
}

func TestResolverLooksUpAndCaches(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()
	cultura := models.Subsite{Name: "Cultura", URL: "cultura.example.org", Status: enums.StatusEnabled}
	require.NoError(t, conn.Create(&cultura).Error)
	require.NoError(t, conn.Create(&models.Subsite{Name: "Off", URL: "off.example.org", Status: enums.StatusDraft}).Error)

	repo := &countingRepo{Repository: NewRepository(conn)}
	cache := &memoryCache{values: map[string]string{}}
	resolver, err := NewResolver(repo, cache, time.Minute)
	require.NoError(t, err)

	id, err := resolver.Resolve(ctx, "Cultura.Example.org:443")
	require.NoError(t, err)
	require.NotNil(t, id)
	require.Equal(t, cultura.ID, *id)

	id, err = resolver.Resolve(ctx, "cultura.example.org")
	require.NoError(t, err)
	require.Equal(t, cultura.ID, *id)
	require.Equal(t, 1, repo.calls)

	id, err = resolver.Resolve(ctx, "off.example.org")
	require.NoError(t, err)
	require.Nil(t, id)
	require.Equal(t, mainSite, cache.values["subsite:off.example.org"])

	id, err = resolver.Resolve(ctx, "off.example.org")
	require.NoError(t, err)
	require.Nil(t, id)
	require.Equal(t, 2, repo.calls)
}

func TestResolverWithoutCache(t *testing.T) {
	conn := dbtest.Open(t)
	repo := &countingRepo{Repository: NewRepository(conn)}
	resolver, err := NewResolver(repo, nil, 0)
	require.NoError(t, err)

	for range 2 {
		id, err := resolver.Resolve(context.Background(), "mapa.example.org")
		require.NoError(t, err)
		require.Nil(t, id)
	}
	require.Equal(t, 2, repo.calls)

	id, err := resolver.Resolve(context.Background(), "  ")
	require.NoError(t, err)
	require.Nil(t, id)
	require.Equal(t, 2, repo.calls)
}

type brokenCache struct{ memoryCache }

func (b *brokenCache) Get(ctx context.Context, key string) (string, error) {
	return "", errors.New("connection refused")
}

func TestResolverFallsBackWhenCacheFails(t *testing.T) {
	conn := dbtest.Open(t)
	cultura := models.Subsite{Name: "Cultura", URL: "cultura.example.org", Status: enums.StatusEnabled}
	require.NoError(t, conn.Create(&cultura).Error)

	resolver, err := NewResolver(NewRepository(conn), &brokenCache{}, time.Minute)
	require.NoError(t, err)

	id, err := resolver.Resolve(context.Background(), "cultura.example.org")
	require.ErrorIs(t, err, ErrCache)
	require.NotNil(t, id)
	require.Equal(t, cultura.ID, *id)
}
