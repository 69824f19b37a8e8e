package store

import (
	"database/sql"
	"os"

	"github.com/agentic-research/trisort/internal/octree"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	_ "modernc.org/sqlite"
)

// ErrTypeStore marks failures reading or writing an index database.
const ErrTypeStore = "index-store"

const schema = `
CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS nodes (
	level INTEGER NOT NULL,
	code INTEGER NOT NULL,
	x INTEGER NOT NULL,
	y INTEGER NOT NULL,
	z INTEGER NOT NULL,
	PRIMARY KEY (level, code)
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS buckets (
	level INTEGER NOT NULL,
	code INTEGER NOT NULL,
	refs BLOB NOT NULL,
	PRIMARY KEY (level, code)
) WITHOUT ROWID;
`

// Writer persists one tree into a SQLite database inside a single
// transaction. Close commits.
type Writer struct {
	db         *sql.DB
	tx         *sql.Tx
	stmtNode   *sql.Stmt
	stmtBucket *sql.Stmt
}

// NewWriter creates the database file and schema.
func NewWriter(dbPath string) (*Writer, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, storeErr("open sqlite", dbPath, err)
	}

	// Bulk insert tuning; the file is rewritten from scratch on every save.
	for _, pragma := range []string{"PRAGMA synchronous = OFF", "PRAGMA journal_mode = MEMORY"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, storeErr("apply pragma", dbPath, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, storeErr("create schema", dbPath, err)
	}

	w := &Writer{db: db}
	if w.tx, err = db.Begin(); err != nil {
		_ = db.Close()
		return nil, storeErr("begin", dbPath, err)
	}
	w.stmtNode, err = w.tx.Prepare(`INSERT OR REPLACE INTO nodes (level, code, x, y, z) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		_ = w.tx.Rollback()
		_ = db.Close()
		return nil, storeErr("prepare nodes", dbPath, err)
	}
	w.stmtBucket, err = w.tx.Prepare(`INSERT OR REPLACE INTO buckets (level, code, refs) VALUES (?, ?, ?)`)
	if err != nil {
		_ = w.tx.Rollback()
		_ = db.Close()
		return nil, storeErr("prepare buckets", dbPath, err)
	}
	return w, nil
}

// WriteTree stores every node of t and the payload of every node that has
// one, together with the depth and bucket level.
func (w *Writer) WriteTree(t *octree.Tree, bucketLevel int) error {
	meta := map[string]int{"levels": t.Levels(), "bucket_level": bucketLevel}
	for k, v := range meta {
		if _, err := w.tx.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return storeErr("write meta", k, err)
		}
	}

	var refs []byte
	for n := range t.All() {
		code := int64(n.Code())
		if _, err := w.stmtNode.Exec(n.Level, code, n.Offset[0], n.Offset[1], n.Offset[2]); err != nil {
			return storeErr("insert node", n.Address.String(), err)
		}
		if len(n.TriIDs) == 0 {
			continue
		}
		refs = octree.AppendRefs(refs[:0], n.TriIDs)
		if _, err := w.stmtBucket.Exec(n.Level, code, refs); err != nil {
			return storeErr("insert bucket", n.Address.String(), err)
		}
	}
	return nil
}

// Close commits the transaction and closes the database.
func (w *Writer) Close() error {
	_ = w.stmtNode.Close()
	_ = w.stmtBucket.Close()
	if err := w.tx.Commit(); err != nil {
		_ = w.db.Close()
		return storeErr("commit", "", err)
	}
	return w.db.Close()
}

// Save replaces dbPath with a database holding t.
func Save(dbPath string, t *octree.Tree, bucketLevel int) error {
	if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
		return storeErr("remove previous index", dbPath, err)
	}
	w, err := NewWriter(dbPath)
	if err != nil {
		return err
	}
	if err := w.WriteTree(t, bucketLevel); err != nil {
		_ = w.tx.Rollback()
		_ = w.db.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	logs.WithTag("path", dbPath).
		WithTag("nodes", t.Len()).
		WithTag("buckets", t.CountAt(bucketLevel)).
		Info("index stored")
	return nil
}

func storeErr(msg, what string, err error) error {
	return errors.New(msg).
		WithType(ErrTypeStore).
		WithTag("target", what).
		Wrap(err)
}
