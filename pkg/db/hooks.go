package db

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"
)

// HookFunc handles a lifecycle event. Returning an error aborts the
// statement for before-phase events.
type HookFunc func(ctx context.Context, model any) error

const (
	ActionInsert = "insert"
	ActionUpdate = "update"
	ActionRemove = "remove"

	PhaseBefore = "before"
	PhaseAfter  = "after"
)

// EventName builds the hook key for an entity lifecycle event, for example
// entity(User).insert:before.
func EventName(entity, action, phase string) string {
	return fmt.Sprintf("entity(%s).%s:%s", entity, action, phase)
}

// Hooks dispatches gorm lifecycle callbacks to registered handlers.
type Hooks struct {
	mu       sync.RWMutex
	handlers map[string][]HookFunc
}

func NewHooks() *Hooks {
	return &Hooks{handlers: map[string][]HookFunc{}}
}

// On registers fn for the given event name.
func (h *Hooks) On(event string, fn HookFunc) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[event] = append(h.handlers[event], fn)
}

// Emit runs every handler registered for event in registration order and
// stops at the first error.
func (h *Hooks) Emit(ctx context.Context, event string, model any) error {
	h.mu.RLock()
	handlers := append([]HookFunc(nil), h.handlers[event]...)
	h.mu.RUnlock()

	for _, fn := range handlers {
		if err := fn(ctx, model); err != nil {
			return fmt.Errorf("%s: %w", event, err)
		}
	}
	return nil
}

// Register installs the dispatching callbacks on conn.
func (h *Hooks) Register(conn *gorm.DB) error {
	cb := conn.Callback()
	steps := []struct {
		name string
		err  error
	}{
		{"insert:before", cb.Create().Before("gorm:create").Register("mapas:insert_before", h.dispatch(ActionInsert, PhaseBefore))},
		{"insert:after", cb.Create().After("gorm:create").Register("mapas:insert_after", h.dispatch(ActionInsert, PhaseAfter))},
		{"update:before", cb.Update().Before("gorm:update").Register("mapas:update_before", h.dispatch(ActionUpdate, PhaseBefore))},
		{"update:after", cb.Update().After("gorm:update").Register("mapas:update_after", h.dispatch(ActionUpdate, PhaseAfter))},
		{"remove:before", cb.Delete().Before("gorm:delete").Register("mapas:remove_before", h.dispatch(ActionRemove, PhaseBefore))},
		{"remove:after", cb.Delete().After("gorm:delete").Register("mapas:remove_after", h.dispatch(ActionRemove, PhaseAfter))},
	}
	for _, step := range steps {
		if step.err != nil {
			return fmt.Errorf("%s: %w", step.name, step.err)
		}
	}
	return nil
}

func (h *Hooks) dispatch(action, phase string) func(*gorm.DB) {
	return func(tx *gorm.DB) {
		if tx.Statement == nil || tx.Statement.Schema == nil {
			return
		}
		if phase == PhaseAfter && tx.Error != nil {
			return
		}
		model := tx.Statement.Model
		if model == nil {
			model = tx.Statement.Dest
		}
		event := EventName(tx.Statement.Schema.Name, action, phase)
		if err := h.Emit(tx.Statement.Context, event, model); err != nil {
			_ = tx.AddError(err)
		}
	}
}
