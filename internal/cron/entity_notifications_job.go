package cron

import (
	"context"
	"fmt"
	"sync"

	"github.com/angelmondragon/mapas-backend/internal/notifications"
	"github.com/angelmondragon/mapas-backend/pkg/db/models"
	"github.com/angelmondragon/mapas-backend/pkg/logger"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const (
	defaultBatchSize   = 200
	defaultConcurrency = 4
)

type activeUserSource interface {
	ListActiveIDs(ctx context.Context, afterID int64, limit int) ([]int64, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

type notificationGenerator interface {
	Generate(ctx context.Context, req notifications.Request) (notifications.Result, error)
}

// EntityNotificationsJobParams configures the batch reminder job.
type EntityNotificationsJobParams struct {
	Logger      *logger.Logger
	Users       activeUserSource
	Generator   notificationGenerator
	BatchSize   int
	Concurrency int
}

// NewEntityNotificationsJob builds the job that checks every active user for
// stale agents and spaces and expiring seals. The last-access reminder only
// runs at login since it compares against the login being recorded.
func NewEntityNotificationsJob(params EntityNotificationsJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if params.Generator == nil {
		return nil, fmt.Errorf("notification generator required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	concurrency := params.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &entityNotificationsJob{
		logg:        params.Logger,
		users:       params.Users,
		generator:   params.Generator,
		batch:       batch,
		concurrency: concurrency,
	}, nil
}

type entityNotificationsJob struct {
	logg        *logger.Logger
	users       activeUserSource
	generator   notificationGenerator
	batch       int
	concurrency int
}

func (j *entityNotificationsJob) Name() string { return "stale-entity-notifications" }

func (j *entityNotificationsJob) Run(ctx context.Context) error {
	var (
		mu        sync.Mutex
		errs      error
		processed int
		created   int
		afterID   int64
	)
	for {
		ids, err := j.users.ListActiveIDs(ctx, afterID, j.batch)
		if err != nil {
			return fmt.Errorf("list active users after %d: %w", afterID, err)
		}
		if len(ids) == 0 {
			break
		}

		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(j.concurrency)
		for _, id := range ids {
			group.Go(func() error {
				n, err := j.generateFor(groupCtx, id)
				mu.Lock()
				defer mu.Unlock()
				processed++
				created += n
				if err != nil {
					errs = multierr.Append(errs, fmt.Errorf("user %d: %w", id, err))
				}
				return groupCtx.Err()
			})
		}
		if err := group.Wait(); err != nil {
			return err
		}

		afterID = ids[len(ids)-1]
		if len(ids) < j.batch {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"users_processed":       processed,
		"notifications_created": created,
		"users_failed":          len(multierr.Errors(errs)),
	})
	j.logg.Info(logCtx, "stale entity notifications complete")
	return errs
}

func (j *entityNotificationsJob) generateFor(ctx context.Context, userID int64) (int, error) {
	user, err := j.users.FindByID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("load user: %w", err)
	}
	result, err := j.generator.Generate(ctx, notifications.Request{
		User:  user,
		Parts: notifications.PartStaleEntities | notifications.PartSealExpiry,
	})
	return result.Created, err
}
