package hook

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/ayusman/visionlink/internal/gesture"
)

// ErrHookNotFound is returned when a requested hook cannot be found.
var ErrHookNotFound = errors.New("hook not found")

// Manager manages hook discovery and lookup.
type Manager struct {
	hookDir string
	hooks   map[string]*Hook
	mu      sync.RWMutex
}

// NewManager creates a new hook Manager with the given hook directory.
func NewManager(hookDir string) *Manager {
	return &Manager{
		hookDir: hookDir,
		hooks:   make(map[string]*Hook),
	}
}

// Discover scans the hook directory for hook.json files and loads them.
// Each subdirectory is expected to be one hook. Unreadable or invalid
// manifests are skipped.
func (m *Manager) Discover() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hooks = make(map[string]*Hook)

	if m.hookDir == "" {
		return nil
	}
	info, err := os.Stat(m.hookDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}

	entries, err := os.ReadDir(m.hookDir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		hookPath := filepath.Join(m.hookDir, entry.Name())
		data, err := os.ReadFile(filepath.Join(hookPath, ManifestFile))
		if err != nil {
			continue
		}

		var manifest Manifest
		if err := json.Unmarshal(data, &manifest); err != nil {
			continue
		}
		if manifest.Name == "" || manifest.Executable == "" {
			continue
		}

		m.hooks[manifest.Name] = &Hook{
			Manifest:   manifest,
			Path:       hookPath,
			Executable: filepath.Join(hookPath, manifest.Executable),
		}
	}

	return nil
}

// Get returns a hook by name.
// Returns ErrHookNotFound if the hook does not exist.
func (m *Manager) Get(name string) (*Hook, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.hooks[name]
	if !ok {
		return nil, ErrHookNotFound
	}
	return h, nil
}

// List returns all discovered hooks sorted by name.
func (m *Manager) List() []*Hook {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hooks := make([]*Hook, 0, len(m.hooks))
	for _, h := range m.hooks {
		hooks = append(hooks, h)
	}
	sort.Slice(hooks, func(i, j int) bool {
		return hooks[i].Manifest.Name < hooks[j].Manifest.Name
	})
	return hooks
}

// For returns the hooks subscribed to g, sorted by name.
func (m *Manager) For(g gesture.Gesture) []*Hook {
	var out []*Hook
	for _, h := range m.List() {
		if h.Subscribes(g) {
			out = append(out, h)
		}
	}
	return out
}

// HookDir returns the hook directory path.
func (m *Manager) HookDir() string {
	return m.hookDir
}
