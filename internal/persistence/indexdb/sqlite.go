package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"areastate.ai/internal/areastate"
	"areastate.ai/internal/geom"
)

// SQLiteIndex is a queryable secondary index of discovery events. The zstd
// journal stays the source of truth; the index may drop under load.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan areastate.Event
	wg   sync.WaitGroup
	once sync.Once

	closed    atomic.Bool
	dropTotal atomic.Uint64
}

type Stats struct {
	QueueDepth    int
	QueueCapacity int
	DropTotal     uint64
}

type InstanceRow struct {
	Instance  areastate.InstanceKey
	AreaID    string
	FirstSeen time.Time
	Locations int
	Chests    int
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, 65536)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
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
		ch: make(chan areastate.Event, queue),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
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
		`CREATE TABLE IF NOT EXISTS instances (
			instance INTEGER PRIMARY KEY,
			area_id TEXT NOT NULL,
			first_seen INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS locations (
			instance INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			loc_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			at INTEGER NOT NULL,
			PRIMARY KEY (instance, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_locations_name ON locations(name, instance);`,
		`CREATE TABLE IF NOT EXISTS containers (
			instance INTEGER NOT NULL,
			container_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			metadata TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			state TEXT NOT NULL,
			identified INTEGER NOT NULL,
			corrupted INTEGER NOT NULL,
			raw_json TEXT NOT NULL,
			at INTEGER NOT NULL,
			PRIMARY KEY (instance, container_id)
		);`,
		`INSERT OR IGNORE INTO meta(key,value) VALUES('schema_version','1');`,
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

// Record queues ev for indexing without blocking.
func (s *SQLiteIndex) Record(ev areastate.Event) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- ev:
	default:
		s.dropTotal.Add(1)
	}
}

// Notify lets the index sit directly behind an areastate listener.
func (s *SQLiteIndex) Notify(ev areastate.Event) { s.Record(ev) }

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{QueueDepth: len(s.ch), QueueCapacity: cap(s.ch), DropTotal: s.dropTotal.Load()}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertInstance, _ := s.db.Prepare(`INSERT OR IGNORE INTO instances(instance,area_id,first_seen) VALUES(?,?,?)`)
	insertLocation, _ := s.db.Prepare(`INSERT INTO locations(instance,seq,loc_id,name,x,y,at)
		VALUES(?, (SELECT COALESCE(MAX(seq),0)+1 FROM locations WHERE instance=?), ?,?,?,?,?)`)
	upsertContainer, _ := s.db.Prepare(`INSERT OR REPLACE INTO containers(instance,container_id,name,metadata,x,y,state,identified,corrupted,raw_json,at) VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertInstance, insertLocation, upsertContainer} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		// Discovery events are sparse; commit whenever the queue runs dry.
		if len(s.ch) == 0 || opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for ev := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		at := ev.At.UnixMilli()
		key := int64(ev.Instance)
		if insertInstance != nil {
			if _, err := tx.Stmt(insertInstance).Exec(key, ev.AreaID, at); err != nil {
				rollback()
				continue
			}
		}
		switch ev.Kind {
		case areastate.EventLocationAdded:
			l := ev.Location
			if l == nil || insertLocation == nil {
				break
			}
			if _, err := tx.Stmt(insertLocation).Exec(key, key, l.ID, l.Name, l.Position.X, l.Position.Y, at); err != nil {
				rollback()
				continue
			}
			opCount++

		case areastate.EventContainerAdded:
			c := ev.Container
			if c == nil || upsertContainer == nil {
				break
			}
			raw, _ := json.Marshal(c)
			if _, err := tx.Stmt(upsertContainer).Exec(
				key, c.ID, c.Name, c.Metadata, c.Position.X, c.Position.Y,
				c.State.String(), boolInt(c.IsIdentified), boolInt(c.IsCorrupted), string(raw), at,
			); err != nil {
				rollback()
				continue
			}
			opCount++
		}
		flushIfNeeded()
	}

	commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Locations returns the recorded locations of one instance in discovery order.
func (s *SQLiteIndex) Locations(ctx context.Context, key areastate.InstanceKey) ([]areastate.Location, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT loc_id,name,x,y FROM locations WHERE instance=? ORDER BY seq`, int64(key))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []areastate.Location
	for rows.Next() {
		var l areastate.Location
		var x, y int
		if err := rows.Scan(&l.ID, &l.Name, &x, &y); err != nil {
			return nil, err
		}
		l.Position = geom.Pt(x, y)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) Containers(ctx context.Context, key areastate.InstanceKey) ([]areastate.ContainerRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT raw_json FROM containers WHERE instance=? ORDER BY container_id`, int64(key))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []areastate.ContainerRecord
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var c areastate.ContainerRecord
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Instances lists every indexed instance with its discovery counts.
func (s *SQLiteIndex) Instances(ctx context.Context) ([]InstanceRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.instance, i.area_id, i.first_seen,
			(SELECT COUNT(*) FROM locations l WHERE l.instance=i.instance),
			(SELECT COUNT(*) FROM containers c WHERE c.instance=i.instance)
		FROM instances i ORDER BY i.first_seen, i.instance`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []InstanceRow
	for rows.Next() {
		var r InstanceRow
		var key, first int64
		if err := rows.Scan(&key, &r.AreaID, &first, &r.Locations, &r.Chests); err != nil {
			return nil, err
		}
		r.Instance = areastate.InstanceKey(key)
		r.FirstSeen = time.UnixMilli(first).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}
