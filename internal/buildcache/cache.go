// Package buildcache is a content-addressed cache for the early pipeline
// stages: given a source file's hash, it can return a previously computed
// token dump, pretty-printed AST, or semantic-check verdict without
// re-running the lexer/parser/analyzer, so repeated batch invocations over
// a mostly-unchanged file set skip redundant work.
//
// Stage output is stored in a single embedded sqlite database opened once
// per process, keyed by (source hash, stage name). modernc.org/sqlite is
// a pure-Go, cgo-free driver, so the cache needs no system SQL server.
package buildcache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	_ "modernc.org/sqlite"
)

// Cache wraps a single sqlite-backed store of stage outputs keyed by
// source hash and stage name.
type Cache struct {
	db *sql.DB
}

// Open creates or reuses the sqlite database at path, migrating its
// schema if necessary. path may be ":memory:" for a process-local cache.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("buildcache: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("buildcache: ping %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers anyway

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("buildcache: migrate %s: %w", path, err)
	}
	return &Cache{db: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS stage_output (
	hash       TEXT NOT NULL,
	stage      TEXT NOT NULL,
	output     TEXT NOT NULL,
	failed     INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (hash, stage)
);
`

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Hash returns the cache key for source: its hex-encoded SHA-256 digest.
func Hash(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// Lookup returns the cached output for (hash, stage), whether the
// recorded run failed (in which case output is the error message), and
// whether an entry was found at all.
func (c *Cache) Lookup(hash, stage string) (output string, failed bool, found bool, err error) {
	row := c.db.QueryRow(
		`SELECT output, failed FROM stage_output WHERE hash = ? AND stage = ?`,
		hash, stage,
	)
	var failedInt int
	switch err := row.Scan(&output, &failedInt); err {
	case nil:
		return output, failedInt != 0, true, nil
	case sql.ErrNoRows:
		return "", false, false, nil
	default:
		return "", false, false, fmt.Errorf("buildcache: lookup %s/%s: %w", hash, stage, err)
	}
}

// Store records stage's output for hash, overwriting any prior entry.
// failed marks output as an error message rather than a successful
// result, so a cached failure is not mistaken for cached success.
func (c *Cache) Store(hash, stage, output string, failed bool) error {
	_, err := c.db.Exec(
		`INSERT INTO stage_output (hash, stage, output, failed, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (hash, stage) DO UPDATE SET output = excluded.output, failed = excluded.failed, created_at = excluded.created_at`,
		hash, stage, output, boolToInt(failed), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("buildcache: store %s/%s: %w", hash, stage, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Stats summarizes the cache's current size for diagnostics.
type Stats struct {
	Entries   int
	SizeBytes int64
}

// String renders s using human-readable byte units rather than a raw
// counter.
func (s Stats) String() string {
	return fmt.Sprintf("%d entries, %s", s.Entries, humanize.Bytes(uint64(s.SizeBytes)))
}

// Stats reports how many entries are cached and an estimate of their
// total on-disk footprint.
func (c *Cache) Stats() (Stats, error) {
	var entries int
	var size int64
	err := c.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(LENGTH(output)), 0) FROM stage_output`).Scan(&entries, &size)
	if err != nil {
		return Stats{}, fmt.Errorf("buildcache: stats: %w", err)
	}
	return Stats{Entries: entries, SizeBytes: size}, nil
}
