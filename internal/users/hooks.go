package users

import (
	"context"
	"time"

	"github.com/angelmondragon/mapas-backend/pkg/db"
	"github.com/angelmondragon/mapas-backend/pkg/db/models"
	"github.com/angelmondragon/mapas-backend/pkg/logger"
)

const entityName = "User"

// RegisterHooks stamps creation times on new users.
func RegisterHooks(hooks *db.Hooks, now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	hooks.On(db.EventName(entityName, db.ActionInsert, db.PhaseBefore), func(_ context.Context, model any) error {
		if user, ok := model.(*models.User); ok && user.CreateTimestamp.IsZero() {
			user.CreateTimestamp = now().UTC()
		}
		return nil
	})
}

// RegisterAuditHooks logs completed user writes.
func RegisterAuditHooks(hooks *db.Hooks, logg *logger.Logger) {
	if logg == nil {
		return
	}
	for _, action := range []string{db.ActionInsert, db.ActionUpdate, db.ActionRemove} {
		event := db.EventName(entityName, action, db.PhaseAfter)
		hooks.On(event, func(ctx context.Context, model any) error {
			fields := map[string]any{"event": event}
			if user, ok := model.(*models.User); ok && user.ID > 0 {
				fields["target_user_id"] = user.ID
			}
			logg.Info(logg.WithFields(ctx, fields), "user entity changed")
			return nil
		})
	}
}
