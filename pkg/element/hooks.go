package element

import (
	"context"
)

// Hook runs around element persistence. An error from a before-hook stops
// the operation.
type Hook func(ctx context.Context, e *Element) error

type hooks struct {
	beforeSave, afterSave       []Hook
	beforeDestroy, afterDestroy []Hook
}

// BeforeSave registers a hook run before validation on every save.
func (m *Model) BeforeSave(h Hook) { m.hooks.beforeSave = append(m.hooks.beforeSave, h) }

// AfterSave registers a hook run after a successful save.
func (m *Model) AfterSave(h Hook) { m.hooks.afterSave = append(m.hooks.afterSave, h) }

// BeforeDestroy registers a hook run before a persisted element is
// destroyed.
func (m *Model) BeforeDestroy(h Hook) { m.hooks.beforeDestroy = append(m.hooks.beforeDestroy, h) }

// AfterDestroy registers a hook run after a successful destroy.
func (m *Model) AfterDestroy(h Hook) { m.hooks.afterDestroy = append(m.hooks.afterDestroy, h) }

func runHooks(ctx context.Context, e *Element, hs []Hook) error {
	for _, h := range hs {
		if err := h(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
