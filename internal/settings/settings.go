// Package settings persists the active backend settings.
package settings

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stupiduntilnot/reportchat/internal/model"
	"github.com/stupiduntilnot/reportchat/internal/store"
)

// Repository reads and writes Settings under one key. Defaults are returned
// until settings are saved.
type Repository struct {
	KV       store.KV
	Key      string
	Defaults model.Settings
}

// Load returns the persisted settings, or the defaults when none exist.
func (r *Repository) Load(ctx context.Context) (model.Settings, error) {
	raw, ok, err := r.KV.Get(ctx, r.Key)
	if err != nil {
		return r.Defaults, fmt.Errorf("load settings: %w", err)
	}
	if !ok {
		return r.Defaults, nil
	}
	var s model.Settings
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return r.Defaults, fmt.Errorf("decode settings: %w", err)
	}
	return s, nil
}

// Save overwrites the persisted settings. The provider must exist in the
// catalog; completeness is checked only when a request is sent.
func (r *Repository) Save(ctx context.Context, s model.Settings) error {
	if _, ok := model.Lookup(s.LLMProvider); !ok {
		return fmt.Errorf("%w: %q", model.ErrUnknownProvider, s.LLMProvider)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := r.KV.Set(ctx, r.Key, string(data)); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
