package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/workclock/internal/ports"
	"github.com/bft-labs/workclock/pkg/log"
)

// DefaultDebounce is the quiet period before changes are delivered.
const DefaultDebounce = 100 * time.Millisecond

// Change reports a document written in a watched collection.
type Change struct {
	Collection string
	ID         string
}

// Watch delivers changes to documents of collection until ctx is done,
// then closes the channel. Bursts of writes to the same document within
// debounce are delivered once.
func (s *Store) Watch(ctx context.Context, collection string, debounce time.Duration, logger ports.Logger) (<-chan Change, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger = log.OrNoop(logger)

	dir, err := s.collectionDir(collection)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("fs watch: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fs watch: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("fs watch %s: %w", dir, err)
	}

	out := make(chan Change)
	go func() {
		defer close(out)
		defer watcher.Close()
		watchLoop(ctx, watcher, collection, debounce, logger, out)
	}()
	return out, nil
}

func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, collection string, debounce time.Duration, logger ports.Logger, out chan<- Change) {
	pending := map[string]bool{}
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			if !strings.HasSuffix(name, docExt) {
				continue
			}
			pending[strings.TrimSuffix(name, docExt)] = true
			timer.Reset(debounce)

		case <-timer.C:
			ids := make([]string, 0, len(pending))
			for id := range pending {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			pending = map[string]bool{}
			for _, id := range ids {
				select {
				case out <- Change{Collection: collection, ID: id}:
				case <-ctx.Done():
					return
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("document watcher error", log.String("collection", collection), log.Err(err))
		}
	}
}
