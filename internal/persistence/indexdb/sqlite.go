package indexdb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"chunkfield.dev/internal/persistence/snapshot"
	"chunkfield.dev/internal/sim/world"
)

// SQLiteIndex is a secondary index over the op audit trail and snapshot
// metadata. Writes are queued to a single writer goroutine so the world
// loop never blocks on the database.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqOp reqKind = iota + 1
	reqSnapshot
	reqFlush
)

type req struct {
	kind reqKind

	op    world.OpEntry
	snap  snapshotRow
	flush chan struct{}
}

type snapshotRow struct {
	Ops       uint64
	Path      string
	Seed      int64
	ChunkSize int
	Chunks    int
	Digest    string
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		// Buffered: bursty write storms must not stall the world loop.
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ops (
			seq INTEGER PRIMARY KEY,
			session TEXT NOT NULL,
			op TEXT NOT NULL,
			x INTEGER,
			y INTEGER,
			value INTEGER,
			chunk_x INTEGER,
			chunk_y INTEGER,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_ops_session ON ops(session, seq);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			ops INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			seed INTEGER NOT NULL,
			chunk_size INTEGER NOT NULL,
			chunks INTEGER NOT NULL,
			digest TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// WriteOp implements world.OpSink. Entries are dropped rather than
// blocking when the indexer falls behind.
func (s *SQLiteIndex) WriteOp(e world.OpEntry) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqOp, op: e}:
	default:
	}
}

// RecordSnapshot queues snapshot metadata for indexing.
func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1, digest string) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		Ops:       snap.Header.Ops,
		Path:      path,
		Seed:      snap.Seed,
		ChunkSize: snap.ChunkSize,
		Chunks:    len(snap.Chunks),
		Digest:    digest,
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snap: r}:
	default:
	}
}

// Flush waits until every queued write before the call has been applied.
func (s *SQLiteIndex) Flush() {
	if s == nil || s.closed.Load() {
		return
	}
	done := make(chan struct{})
	s.ch <- req{kind: reqFlush, flush: done}
	<-done
}

// LatestSnapshot returns the path of the newest indexed snapshot.
func (s *SQLiteIndex) LatestSnapshot() (string, bool, error) {
	var path string
	err := s.db.QueryRow(`SELECT path FROM snapshots ORDER BY ops DESC LIMIT 1`).Scan(&path)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return path, true, nil
}

// OpCount returns the number of indexed audit entries.
func (s *SQLiteIndex) OpCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM ops`).Scan(&n)
	return n, err
}

func (s *SQLiteIndex) loop() {
	for r := range s.ch {
		switch r.kind {
		case reqOp:
			s.applyOp(r.op)
		case reqSnapshot:
			s.applySnapshot(r.snap)
		case reqFlush:
			close(r.flush)
		}
	}
}

func (s *SQLiteIndex) applyOp(e world.OpEntry) {
	raw, _ := json.Marshal(e)
	var x, y, v, cx, cy any
	if e.Pos != nil {
		x, y = e.Pos[0], e.Pos[1]
	}
	if e.Value != nil {
		v = int(*e.Value)
	}
	if e.Chunk != nil {
		cx, cy = e.Chunk[0], e.Chunk[1]
	}
	_, _ = s.db.Exec(
		`INSERT OR REPLACE INTO ops (seq, session, op, x, y, value, chunk_x, chunk_y, raw_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Seq, e.Session, e.Op, x, y, v, cx, cy, string(raw),
	)
}

func (s *SQLiteIndex) applySnapshot(r snapshotRow) {
	_, _ = s.db.Exec(
		`INSERT OR REPLACE INTO snapshots (ops, path, seed, chunk_size, chunks, digest, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Ops, r.Path, r.Seed, r.ChunkSize, r.Chunks, r.Digest,
		time.Now().UTC().Format(time.RFC3339),
	)
}
