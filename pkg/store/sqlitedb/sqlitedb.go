// Package sqlitedb stores the topology in a single SQLite file.
//
// Every row lives in one entity_rows table keyed by (tbl, id) with its fields as JSON,
// mirroring the hash-per-row layout of the Redis backend.
package sqlitedb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/newtron-network/ixtopo/pkg/store"
	"github.com/newtron-network/ixtopo/pkg/util"
)

// Backend is a store.Backend on a SQLite database.
type Backend struct {
	db   *sql.DB
	path string
}

// New opens (creating if needed) the database at path. ":memory:" gives a
// private in-memory database.
func New(path string) (*Backend, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: SQLite serializes writers anyway and an in-memory
	// database exists per connection.
	db.SetMaxOpenConns(1)

	b := &Backend{db: db, path: path}
	if err := b.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	util.WithBackend(b.Name()).Debugf("Opened %s", path)
	return b, nil
}

func (b *Backend) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entity_rows (
		tbl TEXT NOT NULL,
		id INTEGER NOT NULL,
		fields JSON NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (tbl, id)
	);
	`
	_, err := b.db.Exec(schema)
	return err
}

// Name implements store.Backend
func (b *Backend) Name() string { return "sqlite" }

// Path returns the database path
func (b *Backend) Path() string { return b.path }

// Close implements store.Backend
func (b *Backend) Close() error {
	return b.db.Close()
}

// Load implements store.Backend. Rows of unknown tables are skipped.
func (b *Backend) Load(ctx context.Context) (store.Snapshot, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT tbl, id, fields FROM entity_rows ORDER BY tbl, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rows: %w", err)
	}
	defer rows.Close()

	snap := store.NewSnapshot()
	for rows.Next() {
		var (
			tbl    string
			id     int64
			fields string
		)
		if err := rows.Scan(&tbl, &id, &fields); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		t := store.Table(tbl)
		if _, ok := snap[t]; !ok {
			continue
		}
		row, err := unmarshalRow(fields)
		if err != nil {
			return nil, fmt.Errorf("%s|%d: %w", tbl, id, err)
		}
		snap[t][id] = row
	}
	return snap, rows.Err()
}

// Apply implements store.Backend. The changes run in one transaction;
// a modified or deleted row that no longer holds its old value, or an
// added row that already exists, aborts with util.ErrConflict.
func (b *Backend) Apply(ctx context.Context, changes []store.Change) error {
	if len(changes) == 0 {
		return nil
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, c := range changes {
		if err := applyChange(ctx, tx, c); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func applyChange(ctx context.Context, tx *sql.Tx, c store.Change) error {
	if c.Type != store.ChangeAdd {
		var fields string
		err := tx.QueryRowContext(ctx, `SELECT fields FROM entity_rows WHERE tbl = ? AND id = ?`, string(c.Table), c.Key).Scan(&fields)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s does not exist: %w", c.RedisKey(), util.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", c.RedisKey(), err)
		}
		current, err := unmarshalRow(fields)
		if err != nil {
			return fmt.Errorf("%s: %w", c.RedisKey(), err)
		}
		if !current.Equal(c.OldValue) {
			return fmt.Errorf("%s changed since load: %w", c.RedisKey(), util.ErrConflict)
		}
	}

	switch c.Type {
	case store.ChangeDelete:
		if _, err := tx.ExecContext(ctx, `DELETE FROM entity_rows WHERE tbl = ? AND id = ?`, string(c.Table), c.Key); err != nil {
			return fmt.Errorf("failed to delete %s: %w", c.RedisKey(), err)
		}
	case store.ChangeModify:
		data, err := json.Marshal(c.NewValue)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE entity_rows SET fields = ?, updated_at = CURRENT_TIMESTAMP
			WHERE tbl = ? AND id = ?
		`, string(data), string(c.Table), c.Key); err != nil {
			return fmt.Errorf("failed to update %s: %w", c.RedisKey(), err)
		}
	case store.ChangeAdd:
		data, err := json.Marshal(c.NewValue)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO entity_rows (tbl, id, fields) VALUES (?, ?, ?)`,
			string(c.Table), c.Key, string(data)); err != nil {
			if isConstraintError(err) {
				return fmt.Errorf("%s already exists: %w", c.RedisKey(), util.ErrConflict)
			}
			return fmt.Errorf("failed to insert %s: %w", c.RedisKey(), err)
		}
	default:
		return fmt.Errorf("%s: unknown change type %q", c.RedisKey(), c.Type)
	}
	return nil
}

func unmarshalRow(fields string) (store.Row, error) {
	row := store.Row{}
	if fields == "" {
		return row, nil
	}
	if err := json.Unmarshal([]byte(fields), &row); err != nil {
		return nil, fmt.Errorf("invalid fields JSON: %w", err)
	}
	return row, nil
}

func isConstraintError(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "PRIMARY KEY")
}

var _ store.Backend = (*Backend)(nil)
