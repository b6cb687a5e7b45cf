// Package prefs handles ludex user preferences persistence.
// Preferences are stored in ~/.config/ludex/prefs.toml.
package prefs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/ludexapp/ludex/internal/catalog"
)

// Prefs holds user preferences.
type Prefs struct {
	Theme string `toml:"theme"`
	// Order maps a view name to its default sort, written "key:asc" or
	// "key:desc".
	Order map[string]string `toml:"order,omitempty"`
}

const (
	defaultPrefsPath = "~/.config/ludex/prefs.toml"
	defaultTheme     = "Nightfox"
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// DefaultOrder returns the saved sort for view, if any.
func (p Prefs) DefaultOrder(view string) (string, catalog.Direction, bool) {
	raw := strings.TrimSpace(p.Order[view])
	if raw == "" {
		return "", "", false
	}
	key, dirText, _ := strings.Cut(raw, ":")
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", false
	}
	dir, err := catalog.ParseDirection(dirText)
	if err != nil {
		return "", "", false
	}
	if dir == "" {
		dir = catalog.Asc
	}
	return key, dir, true
}

// SetOrder records the default sort for view. An empty key clears it.
func (p *Prefs) SetOrder(view, key string, dir catalog.Direction) {
	if key == "" || dir == "" {
		delete(p.Order, view)
		return
	}
	if p.Order == nil {
		p.Order = map[string]string{}
	}
	p.Order[view] = key + ":" + string(dir)
}

// Load reads preferences from the given path, falling back to defaults if missing.
func Load(path string) (Prefs, error) {
	prefs := Prefs{Theme: defaultTheme}

	resolved, err := resolvePath(path)
	if err != nil {
		return prefs, nil
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return prefs, nil
		}
		return prefs, nil // Graceful degradation
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return prefs, nil // Graceful degradation
	}

	if err := toml.Unmarshal(bytes, &prefs); err != nil {
		return Prefs{Theme: defaultTheme}, nil // Graceful degradation
	}

	if strings.TrimSpace(prefs.Theme) == "" {
		prefs.Theme = defaultTheme
	}

	return prefs, nil
}

// Save writes preferences to the given path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	bytes, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := os.WriteFile(resolved, bytes, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}

	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultPrefsPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
