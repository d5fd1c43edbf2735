package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/veloship/leadrelay/internal/db"
)

// SettingsStore is the single read-only settings contract the engine
// depends on. Absence of configuration is reported as (nil, nil), never
// as an error.
type SettingsStore interface {
	GlobalSettings(ctx context.Context) (*db.GlobalSettings, error)
	FormSettings(ctx context.Context, formType string) (*db.FormSettings, error)
}

// Resolver merges global and per-form notification settings into the
// final recipient set for one event. Settings are fetched fresh on every
// call; nothing is cached or held as ambient state.
type Resolver struct {
	store  SettingsStore
	logger *zap.Logger
}

// NewResolver creates a resolver over the given settings store.
func NewResolver(store SettingsStore, logger *zap.Logger) *Resolver {
	return &Resolver{
		store:  store,
		logger: logger,
	}
}

// Resolve returns the validated, deduplicated recipient set for formType.
// An empty result means the event is suppressed (notifications disabled
// or nothing configured) and is not an error. A non-nil error means the
// settings store itself was unreachable.
func (r *Resolver) Resolve(ctx context.Context, formType string) ([]string, error) {
	global, err := r.store.GlobalSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load global settings: %w", err)
	}

	var globalRecipients []string
	if global != nil && global.Enabled {
		globalRecipients = Normalize(global.Addresses)
	}

	// Global disabled, absent, or configured with no usable address:
	// fall through to per-form resolution only.
	if len(globalRecipients) == 0 {
		form, err := r.store.FormSettings(ctx, formType)
		if err != nil {
			return nil, fmt.Errorf("load form settings for %s: %w", formType, err)
		}
		if form == nil || !form.Enabled {
			r.logger.Debug("notifications suppressed",
				zap.String("form_type", formType),
			)
			return nil, nil
		}
		return Normalize(form.Addresses), nil
	}

	// Global wins outright when the override flag is set; the per-form
	// row is not even consulted.
	if global.OverridesPerForm {
		return globalRecipients, nil
	}

	form, err := r.store.FormSettings(ctx, formType)
	if err != nil {
		return nil, fmt.Errorf("load form settings for %s: %w", formType, err)
	}

	recipients := globalRecipients
	if form != nil && form.Enabled {
		recipients = append(recipients, form.Addresses...)
	}

	// Final normalize pass covers the union as a safety net.
	return Normalize(recipients), nil
}
