// Package sqlstore implements ports.DocumentStore over database/sql. The
// sqlite and postgres packages supply the dialects.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"

	"github.com/bft-labs/workclock/internal/domain"
	"github.com/bft-labs/workclock/internal/ports"
)

// Dialect holds what differs between SQL engines.
type Dialect struct {
	// Name is used in error messages.
	Name string

	// Schema is executed once when the store opens.
	Schema []string

	// Bind returns the placeholder for the n-th argument, starting at 1.
	Bind func(n int) string

	// Field returns an expression yielding the text of a top-level JSON
	// field of the data column. field is already validated.
	Field func(field string) string

	// Classify maps driver errors onto domain kinds, marking retryable ones
	// with domain.Transient.
	Classify func(err error) error
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is a DocumentStore keeping every collection in one documents table.
// It implements ports.Transactor and ports.Counter.
type Store struct {
	db      *sql.DB
	q       querier
	dialect Dialect
	newID   func() string
}

var (
	_ ports.DocumentStore = (*Store)(nil)
	_ ports.Transactor    = (*Store)(nil)
	_ ports.Counter       = (*Store)(nil)
)

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// New applies the dialect schema to db and returns a store over it.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	for _, stmt := range dialect.Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("%s: apply schema: %w", dialect.Name, err)
		}
	}
	return &Store{db: db, q: db, dialect: dialect, newID: newID}, nil
}

func newID() string {
	// v7 ids sort by creation time, which gives Query its insertion order.
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// DB exposes the underlying sql.DB.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Get implements ports.DocumentStore.
func (s *Store) Get(ctx context.Context, collection, id string) (ports.Document, error) {
	query := fmt.Sprintf(`SELECT data FROM documents WHERE collection = %s AND id = %s`, s.bind(1), s.bind(2))
	var data []byte
	if err := s.q.QueryRowContext(ctx, query, collection, id).Scan(&data); err != nil {
		return ports.Document{}, s.fail("get", err)
	}
	return ports.Document{ID: id, Data: data}, nil
}

// Query implements ports.DocumentStore. Values compare against the text
// form of the field.
func (s *Store) Query(ctx context.Context, collection string, filter ports.Filter) ([]ports.Document, error) {
	query := fmt.Sprintf(`SELECT id, data FROM documents WHERE collection = %s`, s.bind(1))
	args := []any{collection}
	if filter.Field != "" {
		if !fieldName.MatchString(filter.Field) {
			return nil, domain.E(domain.ErrValidationFailed, s.dialect.Name+" query", fmt.Sprintf("invalid field %q", filter.Field))
		}
		query += fmt.Sprintf(` AND %s = %s`, s.dialect.Field(filter.Field), s.bind(2))
		args = append(args, filter.Value)
	}
	query += ` ORDER BY id`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.fail("query", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ports.Document
	for rows.Next() {
		var d ports.Document
		if err := rows.Scan(&d.ID, &d.Data); err != nil {
			return nil, s.fail("scan", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("iterate", err)
	}
	return out, nil
}

// Count implements ports.DocumentStore.
func (s *Store) Count(ctx context.Context, collection string) (int64, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM documents WHERE collection = %s`, s.bind(1))
	var n int64
	if err := s.q.QueryRowContext(ctx, query, collection).Scan(&n); err != nil {
		return 0, s.fail("count", err)
	}
	return n, nil
}

// Create implements ports.DocumentStore.
func (s *Store) Create(ctx context.Context, collection string, data []byte) (string, error) {
	id := s.newID()
	query := fmt.Sprintf(`INSERT INTO documents (collection, id, data) VALUES (%s, %s, %s)`, s.bind(1), s.bind(2), s.bind(3))
	if _, err := s.q.ExecContext(ctx, query, collection, id, string(data)); err != nil {
		return "", s.fail("create", err)
	}
	return id, nil
}

// Update implements ports.DocumentStore.
func (s *Store) Update(ctx context.Context, collection, id string, data []byte) error {
	query := fmt.Sprintf(`UPDATE documents SET data = %s WHERE collection = %s AND id = %s`, s.bind(1), s.bind(2), s.bind(3))
	res, err := s.q.ExecContext(ctx, query, string(data), collection, id)
	if err != nil {
		return s.fail("update", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.E(domain.ErrNotFound, s.dialect.Name+" update", collection+"/"+id)
	}
	return nil
}

// Increment implements ports.Counter.
func (s *Store) Increment(ctx context.Context, name string, seed func(ctx context.Context) (int64, error)) (int64, error) {
	var current int64
	query := fmt.Sprintf(`SELECT value FROM counters WHERE name = %s`, s.bind(1))
	err := s.q.QueryRowContext(ctx, query, name).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if seed != nil {
			if current, err = seed(ctx); err != nil {
				return 0, err
			}
		}
	case err != nil:
		return 0, s.fail("read counter", err)
	}

	upsert := fmt.Sprintf(`INSERT INTO counters (name, value) VALUES (%s, %s)
		ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
		RETURNING value`, s.bind(1), s.bind(2))
	var next int64
	if err := s.q.QueryRowContext(ctx, upsert, name, current+1).Scan(&next); err != nil {
		return 0, s.fail("increment counter", err)
	}
	return next, nil
}

// RunInTx implements ports.Transactor.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx ports.DocumentStore) error) error {
	if _, nested := s.q.(*sql.Tx); nested {
		return fn(ctx, s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.fail("begin", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(ctx, &Store{db: s.db, q: tx, dialect: s.dialect, newID: s.newID}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return s.fail("commit", err)
	}
	committed = true
	return nil
}

func (s *Store) bind(n int) string {
	return s.dialect.Bind(n)
}

func (s *Store) fail(op string, err error) error {
	op = s.dialect.Name + " " + op
	if errors.Is(err, sql.ErrNoRows) {
		return domain.E(domain.ErrNotFound, op, "no such document")
	}
	if s.dialect.Classify != nil {
		err = s.dialect.Classify(err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
