// store/store.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package store persists map items in a sqlite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/tacmap/mapcore/log"
	"github.com/tacmap/mapcore/mapitem"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"
)

var ErrClosed = errors.New("Store is closed")

const schema = `
CREATE TABLE IF NOT EXISTS items (
	uid     TEXT PRIMARY KEY,
	path    TEXT NOT NULL,
	kind    INTEGER NOT NULL,
	record  BLOB NOT NULL,
	updated INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS items_path ON items(path);
`

// Store holds item records keyed by UID, along with the path of the
// group each item was in when it was saved.
type Store struct {
	db *sql.DB
	lg *log.Logger
}

// Open opens or creates the database at path. The special path
// ":memory:" gives a private in-memory database.
func Open(path string, lg *log.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if path == ":memory:" {
		// Each connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	lg.Info("opened item store", slog.String("path", path))
	return &Store{db: db, lg: lg}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return ErrClosed
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Save writes the current state of item, replacing any earlier record
// with the same UID. A replaced record keeps its original position in
// the load order.
func (s *Store) Save(ctx context.Context, item mapitem.Item) error {
	if s.db == nil {
		return ErrClosed
	}

	r, err := mapitem.ToRecord(item)
	if err != nil {
		return err
	}
	b, err := msgpack.Marshal(r)
	if err != nil {
		return fmt.Errorf("%s: %w", r.UID, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO items (uid, path, kind, record, updated) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(uid) DO UPDATE SET path = excluded.path, kind = excluded.kind,
		     record = excluded.record, updated = excluded.updated`,
		r.UID, strings.Join(r.GroupPath, "/"), int(r.Kind), b, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("%s: %w", r.UID, err)
	}
	s.lg.Debug("saved item", slog.String("uid", r.UID), slog.Int("bytes", len(b)))
	return nil
}

// Delete removes the record for uid; deleting a record that does not
// exist is not an error.
func (s *Store) Delete(ctx context.Context, uid string) error {
	if s.db == nil {
		return ErrClosed
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE uid = ?`, uid); err != nil {
		return fmt.Errorf("%s: %w", uid, err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	if s.db == nil {
		return 0, ErrClosed
	}
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n)
	return n, err
}

// UIDs returns the UIDs of the stored items whose group path is path,
// which is given as in mapitem.Group.Path.
func (s *Store) UIDs(ctx context.Context, path ...string) ([]string, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx, `SELECT uid FROM items WHERE path = ? ORDER BY uid`, strings.Join(path, "/"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var uids []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		uids = append(uids, uid)
	}
	return uids, rows.Err()
}

// Load creates an item for each stored record and adds it to the group
// under root given by the record's path, creating groups as needed.
// Records are decoded in parallel but items are added to the tree in
// the order they were first saved. It returns the number of items
// loaded.
func (s *Store) Load(ctx context.Context, root *mapitem.Group) (int, error) {
	if s.db == nil {
		return 0, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, `SELECT record FROM items ORDER BY rowid`)
	if err != nil {
		return 0, err
	}
	var blobs [][]byte
	for rows.Next() {
		var b []byte
		if err := rows.Scan(&b); err != nil {
			rows.Close()
			return 0, err
		}
		blobs = append(blobs, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	records := make([]mapitem.Record, len(blobs))
	items := make([]mapitem.Item, len(blobs))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.NumCPU())
	for i, b := range blobs {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := msgpack.Unmarshal(b, &records[i]); err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
			item, err := mapitem.FromRecord(records[i], s.lg)
			if err != nil {
				return err
			}
			items[i] = item
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, err
	}

	for i, item := range items {
		root.FindOrCreatePath(records[i].GroupPath...).AddItem(item)
	}
	s.lg.Info("loaded items", slog.Int("count", len(items)))
	return len(items), nil
}
