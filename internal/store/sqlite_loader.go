package store

import (
	"database/sql"
	"os"

	"github.com/agentic-research/trisort/internal/octree"
	"github.com/aukilabs/go-tooling/pkg/errors"
	_ "modernc.org/sqlite"
)

// Meta is the build metadata stored next to the tree.
type Meta struct {
	Levels      int
	BucketLevel int
}

// Load reads an index database written by Save.
func Load(dbPath string) (*octree.Tree, Meta, error) {
	// sql.Open would create an empty database for a missing path.
	if _, err := os.Stat(dbPath); err != nil {
		return nil, Meta{}, storeErr("stat index", dbPath, err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, Meta{}, storeErr("open sqlite", dbPath, err)
	}
	defer func() { _ = db.Close() }() // safe to ignore

	meta, err := readMeta(db)
	if err != nil {
		return nil, Meta{}, err
	}
	b := octree.NewBuilder(meta.Levels)

	if err := streamRows(db, `SELECT level, code FROM nodes`, func(rows *sql.Rows) error {
		var level int
		var code int64
		if err := rows.Scan(&level, &code); err != nil {
			return err
		}
		return b.Insert(octree.AddressFromCode(level, uint64(code)))
	}); err != nil {
		return nil, Meta{}, storeErr("load nodes", dbPath, err)
	}

	if err := streamRows(db, `SELECT level, code, refs FROM buckets ORDER BY level, code`, func(rows *sql.Rows) error {
		var level int
		var code int64
		var raw []byte
		if err := rows.Scan(&level, &code, &raw); err != nil {
			return err
		}
		refs, err := octree.DecodeRefs(raw)
		if err != nil {
			return err
		}
		return b.Insert(octree.AddressFromCode(level, uint64(code)), refs...)
	}); err != nil {
		return nil, Meta{}, storeErr("load buckets", dbPath, err)
	}

	return b.Tree(), meta, nil
}

func readMeta(db *sql.DB) (Meta, error) {
	var meta Meta
	found := 0
	err := streamRows(db, `SELECT key, value FROM meta`, func(rows *sql.Rows) error {
		var key string
		var value int
		if err := rows.Scan(&key, &value); err != nil {
			return err
		}
		switch key {
		case "levels":
			meta.Levels = value
			found++
		case "bucket_level":
			meta.BucketLevel = value
			found++
		}
		return nil
	})
	if err != nil {
		return Meta{}, storeErr("read meta", "meta", err)
	}
	if found != 2 || meta.Levels < 1 || meta.Levels > octree.MaxLevels {
		return Meta{}, errors.New("index metadata missing or invalid").
			WithType(ErrTypeStore).
			WithTag("levels", meta.Levels)
	}
	return meta, nil
}

func streamRows(db *sql.DB, query string, fn func(*sql.Rows) error) error {
	rows, err := db.Query(query)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
