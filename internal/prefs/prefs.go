// Package prefs persists the small bits of client state that live outside the
// task store: the signed-in user and the last successful sync time.
package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/existflow/tasksync/internal/config"
	"github.com/existflow/tasksync/internal/logger"
	"github.com/existflow/tasksync/internal/model"
	"github.com/existflow/tasksync/internal/observe"
	"github.com/fsnotify/fsnotify"
)

const fileName = "prefs.json"

// state is the on-disk layout of prefs.json
type state struct {
	UserID   string `json:"user_id,omitempty"`
	Email    string `json:"email,omitempty"`
	Token    string `json:"token,omitempty"`
	LastSync int64  `json:"last_sync"` // Epoch millis, 0 = never
}

// Prefs is a file-backed preference store
type Prefs struct {
	path  string
	mu    sync.Mutex
	state state
	token *observe.Subject[string]
}

// DefaultPath returns prefs.json inside the tasksync home directory
func DefaultPath() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// Open loads preferences from path. A missing file yields empty preferences.
func Open(path string) (*Prefs, error) {
	p := &Prefs{path: path}
	if err := p.load(); err != nil {
		return nil, err
	}
	p.token = observe.New(p.state.Token)
	return p, nil
}

// OpenDefault opens preferences at the default path
func OpenDefault() (*Prefs, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return Open(path)
}

// Path returns the backing file
func (p *Prefs) Path() string {
	return p.path
}

func (p *Prefs) load() error {
	data, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		p.state = state{}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read preferences: %w", err)
	}

	var s state
	if len(data) > 0 {
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("failed to parse preferences: %w", err)
		}
	}
	p.state = s
	return nil
}

// save writes the current state. Caller holds the lock.
func (p *Prefs) save() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0755); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}

	data, err := json.MarshalIndent(p.state, "", "  ")
	if err != nil {
		return err
	}

	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	return os.Rename(tmp, p.path)
}

// LastSyncTime returns the last successful sync instant, zero if never synced
func (p *Prefs) LastSyncTime() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state.LastSync == 0 {
		return time.Time{}
	}
	return time.UnixMilli(p.state.LastSync).UTC()
}

// SetLastSyncTime persists t. The zero time resets to "never synced".
func (p *Prefs) SetLastSyncTime(t time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if t.IsZero() {
		p.state.LastSync = 0
	} else {
		p.state.LastSync = t.UnixMilli()
	}
	return p.save()
}

// Token returns the bearer credential, empty when signed out
func (p *Prefs) Token() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Token
}

// User returns the signed-in user, nil when signed out
func (p *Prefs) User() *model.User {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state.Token == "" {
		return nil
	}
	return &model.User{ID: p.state.UserID, Email: p.state.Email, Token: p.state.Token}
}

// SaveUser stores the credential of a signed-in user
func (p *Prefs) SaveUser(u model.User) error {
	p.mu.Lock()
	p.state.UserID = u.ID
	p.state.Email = u.Email
	p.state.Token = u.Token
	err := p.save()
	p.mu.Unlock()

	if err != nil {
		return err
	}
	p.token.Publish(u.Token)
	return nil
}

// ClearUser signs out
func (p *Prefs) ClearUser() error {
	return p.SaveUser(model.User{})
}

// ObserveToken emits the current token and every change after it
func (p *Prefs) ObserveToken() (<-chan string, func()) {
	return p.token.Subscribe()
}

// Watch reloads the file whenever another process rewrites it, until ctx is
// done. The parent directory is watched because saves replace the file.
func (p *Prefs) Watch(ctx context.Context) error {
	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(p.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			p.reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Preferences watcher error", logger.F("error", err))
		}
	}
}

func (p *Prefs) reload() {
	p.mu.Lock()
	err := p.load()
	token := p.state.Token
	p.mu.Unlock()

	if err != nil {
		// Partially written file; the next event will carry the full content
		logger.Debug("Preferences reload skipped", logger.F("error", err))
		return
	}
	if token != p.token.Value() {
		p.token.Publish(token)
	}
}
