package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
)

// Preferences persists key/value settings.
type Preferences interface {
	GetPreference(ctx context.Context, key string) (string, bool, error)
	SetPreference(ctx context.Context, key, value string) error
}

// ColumnPreferences are the visible columns and their widths for one role.
type ColumnPreferences struct {
	Visible []Column       `json:"visible"`
	Widths  map[Column]int `json:"widths,omitempty"`
}

// ColumnsKey is the preference key holding the column layout of role.
func ColumnsKey(role Role) string {
	return "browser.columns." + string(role)
}

// Columns returns the stored column layout of the controller's role, or the
// role defaults when nothing usable is stored.
func (c *Controller) Columns(ctx context.Context) (ColumnPreferences, error) {
	defaults := ColumnPreferences{Visible: slices.Clone(c.defaults.Columns)}
	if c.cfg.Preferences == nil {
		return defaults, nil
	}

	raw, ok, err := c.cfg.Preferences.GetPreference(ctx, ColumnsKey(c.cfg.Role))
	if err != nil {
		return defaults, fmt.Errorf("failed to read column preferences: %w", err)
	}
	if !ok {
		return defaults, nil
	}

	var prefs ColumnPreferences
	if err := json.Unmarshal([]byte(raw), &prefs); err != nil {
		c.log.Warn("Ignoring malformed column preferences for %s: %v", c.cfg.Role, err)
		return defaults, nil
	}

	prefs.Visible = slices.DeleteFunc(prefs.Visible, func(col Column) bool {
		return !slices.Contains(AllColumns, col)
	})
	if len(prefs.Visible) == 0 {
		prefs.Visible = defaults.Visible
	}
	return prefs, nil
}

// SaveColumns stores the column layout of the controller's role.
func (c *Controller) SaveColumns(ctx context.Context, prefs ColumnPreferences) error {
	if c.cfg.Preferences == nil {
		return fmt.Errorf("no preference store configured")
	}

	for _, col := range prefs.Visible {
		if !slices.Contains(AllColumns, col) {
			return fmt.Errorf("unknown column %q", col)
		}
	}
	for col, width := range prefs.Widths {
		if width < 0 {
			return fmt.Errorf("column %q has negative width %d", col, width)
		}
	}

	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to encode column preferences: %w", err)
	}
	return c.cfg.Preferences.SetPreference(ctx, ColumnsKey(c.cfg.Role), string(data))
}
