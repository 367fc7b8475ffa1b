// Package identity resolves principals from a TOML roster file that is
// reloaded when it changes.
package identity

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/workclock/internal/domain"
	"github.com/bft-labs/workclock/internal/ports"
	"github.com/bft-labs/workclock/pkg/log"
)

// rosterFile is the on-disk layout:
//
//	[[principals]]
//	id = "alice"
//	name = "Alice Martin"
//	admin = true
type rosterFile struct {
	Principals []domain.Principal `toml:"principals"`
}

// Roster holds the known principals.
type Roster struct {
	path   string
	logger ports.Logger

	mu         sync.RWMutex
	principals map[string]domain.Principal
	debounce   *time.Timer
}

// LoadRoster reads path. A missing file yields an empty roster.
func LoadRoster(path string, logger ports.Logger) (*Roster, error) {
	r := &Roster{path: path, logger: log.OrNoop(logger), principals: map[string]domain.Principal{}}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads the roster file. On error the previous contents stay.
func (r *Roster) Reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			r.replace(map[string]domain.Principal{})
			return nil
		}
		return fmt.Errorf("read roster: %w", err)
	}

	var f rosterFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse roster %s: %w", r.path, err)
	}
	principals := make(map[string]domain.Principal, len(f.Principals))
	for i, p := range f.Principals {
		if p.ID == "" {
			return fmt.Errorf("parse roster %s: principal %d has no id", r.path, i)
		}
		principals[p.ID] = p
	}
	r.replace(principals)
	return nil
}

func (r *Roster) replace(principals map[string]domain.Principal) {
	r.mu.Lock()
	r.principals = principals
	r.mu.Unlock()
}

// Lookup returns the principal with id.
func (r *Roster) Lookup(id string) (domain.Principal, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.principals[id]
	return p, ok
}

// Len returns the number of principals.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.principals)
}

// As returns a provider acting as id. The roster is consulted on every
// call, so reloads take effect immediately.
func (r *Roster) As(id string) ports.IdentityProvider {
	return rosterIdentity{roster: r, id: id}
}

type rosterIdentity struct {
	roster *Roster
	id     string
}

func (ri rosterIdentity) Current(context.Context) (domain.Principal, error) {
	if ri.id == "" {
		return domain.Principal{}, domain.E(domain.ErrAuthenticationRequired, "identity", "no principal selected")
	}
	p, ok := ri.roster.Lookup(ri.id)
	if !ok {
		return domain.Principal{}, domain.E(domain.ErrAuthenticationRequired, "identity", fmt.Sprintf("unknown principal %q", ri.id))
	}
	return p, nil
}

// Watch reloads the roster whenever its file changes, until ctx is done.
func (r *Roster) Watch(ctx context.Context, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch roster: %w", err)
	}
	// Editors replace files by rename, so watch the directory.
	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch roster: %w", err)
	}

	go func() {
		defer watcher.Close()
		r.watchLoop(ctx, watcher, debounce)
	}()
	return nil
}

func (r *Roster) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, debounce time.Duration) {
	name := filepath.Base(r.path)
	for {
		select {
		case <-ctx.Done():
			r.mu.Lock()
			if r.debounce != nil {
				r.debounce.Stop()
			}
			r.mu.Unlock()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			r.debounceReload(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn("roster watcher error", log.Err(err))
		}
	}
}

func (r *Roster) debounceReload(delay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.debounce != nil {
		r.debounce.Stop()
	}
	r.debounce = time.AfterFunc(delay, func() {
		if err := r.Reload(); err != nil {
			r.logger.Error("roster reload failed", log.String("path", r.path), log.Err(err))
			return
		}
		r.logger.Info("roster reloaded", log.String("path", r.path), log.Int("principals", r.Len()))
	})
}
