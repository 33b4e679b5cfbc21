package cron

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/angelmondragon/mapas-backend/internal/notifications"
	"github.com/angelmondragon/mapas-backend/pkg/db/models"
	"github.com/angelmondragon/mapas-backend/pkg/logger"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

type fakeUserSource struct {
	ids    []int64
	pages  []int64
	listMu sync.Mutex
}

func (f *fakeUserSource) ListActiveIDs(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	f.listMu.Lock()
	f.pages = append(f.pages, afterID)
	f.listMu.Unlock()
	var out []int64
	for _, id := range f.ids {
		if id > afterID && len(out) < limit {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakeUserSource) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return &models.User{ID: id}, nil
}

type recordingGenerator struct {
	mu     sync.Mutex
	users  []int64
	parts  []notifications.Parts
	failOn int64
}

func (r *recordingGenerator) Generate(ctx context.Context, req notifications.Request) (notifications.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, req.User.ID)
	r.parts = append(r.parts, req.Parts)
	if req.User.ID == r.failOn {
		return notifications.Result{}, errors.New("seal lookup failed")
	}
	return notifications.Result{Created: 1}, nil
}

func newEntityJob(t *testing.T, users activeUserSource, gen notificationGenerator, batch int) Job {
	t.Helper()
	job, err := NewEntityNotificationsJob(EntityNotificationsJobParams{
		Logger:      logger.New(logger.Options{ServiceName: "test"}),
		Users:       users,
		Generator:   gen,
		BatchSize:   batch,
		Concurrency: 2,
	})
	require.NoError(t, err)
	return job
}

func TestEntityNotificationsJobPagesThroughUsers(t *testing.T) {
	users := &fakeUserSource{ids: []int64{1, 2, 3, 5, 8}}
	gen := &recordingGenerator{}
	job := newEntityJob(t, users, gen, 2)

	require.NoError(t, job.Run(context.Background()))

	sort.Slice(gen.users, func(i, k int) bool { return gen.users[i] < gen.users[k] })
	require.Equal(t, []int64{1, 2, 3, 5, 8}, gen.users)
	require.Equal(t, []int64{0, 2, 5}, users.pages)
	for _, parts := range gen.parts {
		require.Equal(t, notifications.PartStaleEntities|notifications.PartSealExpiry, parts)
	}
}

func TestEntityNotificationsJobContinuesPastFailures(t *testing.T) {
	users := &fakeUserSource{ids: []int64{1, 2, 3}}
	gen := &recordingGenerator{failOn: 2}
	job := newEntityJob(t, users, gen, 10)

	err := job.Run(context.Background())
	require.Error(t, err)
	require.Len(t, multierr.Errors(err), 1)
	require.Contains(t, err.Error(), "user 2")
	require.Len(t, gen.users, 3)
}

func TestEntityNotificationsJobRequiresDependencies(t *testing.T) {
	_, err := NewEntityNotificationsJob(EntityNotificationsJobParams{Logger: logger.New(logger.Options{})})
	require.Error(t, err)
}
