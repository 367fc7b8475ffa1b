// Package fs provides a DocumentStore keeping one JSON file per document,
// and change notification for it.
package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/bft-labs/workclock/internal/domain"
	"github.com/bft-labs/workclock/internal/ports"
)

const (
	docExt       = ".json"
	tmpExt       = ".tmp"
	countersFile = "counters.json"
)

// Store implements ports.DocumentStore and ports.Counter under a root
// directory: <root>/<collection>/<id>.json.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a store rooted at dir. The directory is created on first
// write.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Get implements ports.DocumentStore.
func (s *Store) Get(ctx context.Context, collection, id string) (ports.Document, error) {
	path, err := s.docPath(collection, id)
	if err != nil {
		return ports.Document{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ports.Document{}, domain.E(domain.ErrNotFound, "fs get", collection+"/"+id)
		}
		return ports.Document{}, fmt.Errorf("fs get: %w", err)
	}
	return ports.Document{ID: id, Data: data}, nil
}

// Query implements ports.DocumentStore. Documents come back in id order,
// which is creation order.
func (s *Store) Query(ctx context.Context, collection string, filter ports.Filter) ([]ports.Document, error) {
	ids, err := s.list(collection)
	if err != nil {
		return nil, err
	}
	var out []ports.Document
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := s.Get(ctx, collection, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		ok, err := filter.Match(doc.Data)
		if err != nil {
			return nil, domain.Wrap(domain.ErrPermanentStore, "fs query "+collection+"/"+id, err)
		}
		if ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

// Count implements ports.DocumentStore.
func (s *Store) Count(ctx context.Context, collection string) (int64, error) {
	ids, err := s.list(collection)
	if err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

// Create implements ports.DocumentStore.
func (s *Store) Create(ctx context.Context, collection string, data []byte) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("fs create: %w", err)
	}
	path, err := s.docPath(collection, id.String())
	if err != nil {
		return "", err
	}
	if err := writeAtomic(path, data); err != nil {
		return "", fmt.Errorf("fs create: %w", err)
	}
	return id.String(), nil
}

// Update implements ports.DocumentStore.
func (s *Store) Update(ctx context.Context, collection, id string, data []byte) error {
	path, err := s.docPath(collection, id)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return domain.E(domain.ErrNotFound, "fs update", collection+"/"+id)
		}
		return fmt.Errorf("fs update: %w", err)
	}
	if err := writeAtomic(path, data); err != nil {
		return fmt.Errorf("fs update: %w", err)
	}
	return nil
}

// Increment implements ports.Counter. Counters live in one file guarded by
// the store mutex, so they are atomic within a process only.
func (s *Store) Increment(ctx context.Context, name string, seed func(ctx context.Context) (int64, error)) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, countersFile)
	counters := map[string]int64{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &counters); err != nil {
			return 0, domain.Wrap(domain.ErrPermanentStore, "fs counters", err)
		}
	case !os.IsNotExist(err):
		return 0, fmt.Errorf("fs counters: %w", err)
	}

	cur, ok := counters[name]
	if !ok && seed != nil {
		if cur, err = seed(ctx); err != nil {
			return 0, err
		}
	}
	cur++
	counters[name] = cur

	data, err = json.MarshalIndent(counters, "", "  ")
	if err != nil {
		return 0, err
	}
	if err := writeAtomic(path, data); err != nil {
		return 0, fmt.Errorf("fs counters: %w", err)
	}
	return cur, nil
}

func (s *Store) collectionDir(collection string) (string, error) {
	if !validName(collection) {
		return "", domain.E(domain.ErrValidationFailed, "fs", fmt.Sprintf("invalid collection %q", collection))
	}
	return filepath.Join(s.dir, collection), nil
}

func (s *Store) docPath(collection, id string) (string, error) {
	dir, err := s.collectionDir(collection)
	if err != nil {
		return "", err
	}
	if !validName(id) {
		return "", domain.E(domain.ErrNotFound, "fs", fmt.Sprintf("invalid id %q", id))
	}
	return filepath.Join(dir, id+docExt), nil
}

func (s *Store) list(collection string) ([]string, error) {
	dir, err := s.collectionDir(collection)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("fs list: %w", err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, docExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, docExt))
	}
	sort.Strings(ids)
	return ids, nil
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

// writeAtomic writes to a uniquely named temp file next to path, then
// renames it over path. Concurrent writers of one document never share a
// temp file; the last rename wins.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, filepath.Base(path)+".*"+tmpExt)
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
