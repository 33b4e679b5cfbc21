// Package subsites maps request hosts onto subsite ids.
package subsites

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/mapas-backend/pkg/db/models"
	"github.com/angelmondragon/mapas-backend/pkg/enums"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// mainSite is cached for hosts that serve no subsite.
const mainSite = "0"

// ErrCache marks a Redis failure; the returned id is still valid.
var ErrCache = errors.New("subsite cache unavailable")

// Repository looks subsites up by host.
type Repository interface {
	FindEnabledByHost(ctx context.Context, host string) (*models.Subsite, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a subsite repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindEnabledByHost(ctx context.Context, host string) (*models.Subsite, error) {
	var subsite models.Subsite
	err := r.db.WithContext(ctx).
		Where("LOWER(url) = ? AND status = ?", strings.ToLower(host), enums.StatusEnabled).
		First(&subsite).Error
	if err != nil {
		return nil, err
	}
	return &subsite, nil
}

type cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SubsiteKey(host string) string
}

// Resolver resolves hosts through a Redis cache in front of the repository.
type Resolver struct {
	repo  Repository
	cache cache
	ttl   time.Duration
}

// NewResolver builds a resolver; a nil cache or non-positive ttl disables
// caching.
func NewResolver(repo Repository, c cache, ttl time.Duration) (*Resolver, error) {
	if repo == nil {
		return nil, fmt.Errorf("subsite repository is required")
	}
	return &Resolver{repo: repo, cache: c, ttl: ttl}, nil
}

// Resolve returns the id of the subsite served at host, or nil for the main
// site. Cache failures fall back to the database and are reported as
// ErrCache alongside the resolved id.
func (r *Resolver) Resolve(ctx context.Context, host string) (*int64, error) {
	host = normalizeHost(host)
	if host == "" {
		return nil, nil
	}

	var cacheErr error
	if r.caching() {
		cached, err := r.cache.Get(ctx, r.cache.SubsiteKey(host))
		switch {
		case err == nil:
			return decode(cached), nil
		case !errors.Is(err, redis.Nil):
			cacheErr = fmt.Errorf("%w: read: %v", ErrCache, err)
		}
	}

	var id *int64
	subsite, err := r.repo.FindEnabledByHost(ctx, host)
	switch {
	case err == nil:
		id = &subsite.ID
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("lookup subsite %s: %w", host, err)
	}

	if r.caching() && cacheErr == nil {
		if err := r.cache.Set(ctx, r.cache.SubsiteKey(host), encode(id), r.ttl); err != nil {
			cacheErr = fmt.Errorf("%w: write: %v", ErrCache, err)
		}
	}
	return id, cacheErr
}

func (r *Resolver) caching() bool {
	return r.cache != nil && r.ttl > 0
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.TrimSuffix(host, ".")
}

func encode(id *int64) string {
	if id == nil {
		return mainSite
	}
	return strconv.FormatInt(*id, 10)
}

func decode(value string) *int64 {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}
