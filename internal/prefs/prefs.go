// Package prefs handles durable local storage for the storefront client.
// Preferences are stored in ~/.config/shopaura/prefs.toml.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/shopaura/internal/api"
)

// Prefs holds user preferences. User is the serialized identity of the last
// session, kept as JSON text under a single key.
type Prefs struct {
	Theme string `toml:"theme"`
	User  string `toml:"user,omitempty"`
}

const (
	defaultPrefsPath = "~/.config/shopaura/prefs.toml"
	defaultTheme     = "Dracula"
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Load reads preferences from the given path, falling back to defaults if missing.
func Load(path string) (Prefs, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Prefs{Theme: defaultTheme}, nil
	}

	prefs := Prefs{Theme: defaultTheme}

	file, err := os.Open(resolved)
	if err != nil {
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

	// The file may carry an identity, so keep it private.
	if err := os.WriteFile(resolved, bytes, 0o600); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}

	return nil
}

// File is a prefs file shared by the theme switcher and the session store.
// Every write re-reads the file so neither side clobbers the other.
type File struct {
	path string
	mu   sync.Mutex
}

// Open returns a File for path (default location when empty).
func Open(path string) *File {
	return &File{path: path}
}

// Path returns the configured path.
func (f *File) Path() string { return f.path }

// Theme returns the saved theme name.
func (f *File) Theme() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, _ := Load(f.path)
	return p.Theme
}

// SetTheme persists the theme name.
func (f *File) SetTheme(name string) error {
	return f.update(func(p *Prefs) { p.Theme = name })
}

// LoadUser returns the stored identity, or nil when none is stored.
func (f *File) LoadUser() (*api.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, _ := Load(f.path)
	if strings.TrimSpace(p.User) == "" {
		return nil, nil
	}
	var u api.User
	if err := json.Unmarshal([]byte(p.User), &u); err != nil {
		return nil, fmt.Errorf("decode stored user: %w", err)
	}
	if u.ID == "" {
		return nil, errors.New("decode stored user: missing id")
	}
	return &u, nil
}

// SaveUser stores the identity.
func (f *File) SaveUser(u api.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return f.update(func(p *Prefs) { p.User = string(data) })
}

// ClearUser removes the stored identity.
func (f *File) ClearUser() error {
	return f.update(func(p *Prefs) { p.User = "" })
}

func (f *File) update(fn func(*Prefs)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, _ := Load(f.path)
	fn(&p)
	return Save(f.path, p)
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
