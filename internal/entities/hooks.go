package entities

import (
	"context"
	"time"

	"github.com/angelmondragon/mapas-backend/pkg/db"
	"github.com/angelmondragon/mapas-backend/pkg/db/models"
)

// RegisterHooks stamps creation times on new cultural entities.
func RegisterHooks(hooks *db.Hooks, now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	stamp := func(_ context.Context, model any) error {
		ts := now().UTC()
		switch m := model.(type) {
		case *models.Agent:
			if m.CreateTimestamp.IsZero() {
				m.CreateTimestamp = ts
			}
		case *models.Space:
			touch(&m.OwnedEntity, ts)
		case *models.Event:
			touch(&m.OwnedEntity, ts)
		case *models.Project:
			touch(&m.OwnedEntity, ts)
		case *models.Seal:
			touch(&m.OwnedEntity, ts)
		}
		return nil
	}
	for _, entity := range []string{"Agent", "Space", "Event", "Project", "Seal"} {
		hooks.On(db.EventName(entity, db.ActionInsert, db.PhaseBefore), stamp)
	}
}

func touch(e *models.OwnedEntity, ts time.Time) {
	if e.CreateTimestamp.IsZero() {
		e.CreateTimestamp = ts
	}
}
