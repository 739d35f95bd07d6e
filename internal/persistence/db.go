// Package persistence provides SQLite-based farm state storage.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/valley-farm/internal/farm"
)

// metaLastFarm names the farm the service last saved.
const metaLastFarm = "last_farm"

// ErrNotFound means no saved farm matched.
var ErrNotFound = errors.New("no saved farm")

// DB wraps a SQLite connection for farm state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS farms (
		id TEXT PRIMARY KEY,
		soil TEXT NOT NULL,
		tick INTEGER NOT NULL,
		coins INTEGER NOT NULL,
		snapshot_json TEXT NOT NULL,
		saved_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		farm_id TEXT NOT NULL,
		revision INTEGER NOT NULL,
		kind TEXT NOT NULL,
		plot TEXT NOT NULL,
		message TEXT NOT NULL,
		at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS farm_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_farm ON events(farm_id, id);
	CREATE INDEX IF NOT EXISTS idx_farms_saved ON farms(saved_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// FarmRecord is a saved farm row.
type FarmRecord struct {
	ID       string `db:"id"`
	Soil     string `db:"soil"`
	Tick     uint64 `db:"tick"`
	Coins    int    `db:"coins"`
	Snapshot string `db:"snapshot_json"`
	SavedAt  int64  `db:"saved_at"`
}

// SaveFarm writes the farm snapshot along with the engine tick (full replace).
func (db *DB) SaveFarm(snap farm.Snapshot, tick uint64) error {
	data, err := snap.Encode()
	if err != nil {
		return err
	}
	savedAt := snap.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}
	_, err = db.conn.NamedExec(`INSERT OR REPLACE INTO farms
		(id, soil, tick, coins, snapshot_json, saved_at)
		VALUES (:id, :soil, :tick, :coins, :snapshot_json, :saved_at)`,
		FarmRecord{
			ID:       snap.ID,
			Soil:     snap.SoilType,
			Tick:     tick,
			Coins:    snap.Resources.Coins,
			Snapshot: string(data),
			SavedAt:  savedAt.UnixMilli(),
		})
	if err != nil {
		return fmt.Errorf("save farm %s: %w", snap.ID, err)
	}
	slog.Debug("farm saved", "id", snap.ID, "tick", tick, "bytes", len(data))
	return nil
}

// LoadFarm reads a farm snapshot and its saved tick.
func (db *DB) LoadFarm(id string) (farm.Snapshot, uint64, error) {
	var rec FarmRecord
	err := db.conn.Get(&rec, "SELECT * FROM farms WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return farm.Snapshot{}, 0, ErrNotFound
	}
	if err != nil {
		return farm.Snapshot{}, 0, fmt.Errorf("load farm %s: %w", id, err)
	}
	snap, err := farm.DecodeSnapshot([]byte(rec.Snapshot))
	if err != nil {
		return farm.Snapshot{}, 0, fmt.Errorf("load farm %s: %w", id, err)
	}
	return snap, rec.Tick, nil
}

// LatestFarmID returns the farm named by the last_farm meta key when it is
// still stored, otherwise the most recently saved farm.
func (db *DB) LatestFarmID() (string, error) {
	last, err := db.GetMeta(metaLastFarm)
	switch {
	case err == nil && last != "":
		var n int
		if err := db.conn.Get(&n, "SELECT COUNT(*) FROM farms WHERE id = ?", last); err != nil {
			return "", fmt.Errorf("check last farm: %w", err)
		}
		if n > 0 {
			return last, nil
		}
		slog.Warn("last farm missing from store, using newest save", "id", last)
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return "", fmt.Errorf("read last farm: %w", err)
	}

	var id string
	err = db.conn.Get(&id, "SELECT id FROM farms ORDER BY saved_at DESC LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return id, err
}

// ListFarms returns saved farms without their snapshots, newest first.
func (db *DB) ListFarms() ([]FarmRecord, error) {
	var recs []FarmRecord
	err := db.conn.Select(&recs,
		"SELECT id, soil, tick, coins, '' AS snapshot_json, saved_at FROM farms ORDER BY saved_at DESC")
	return recs, err
}

// EventRecord is an archived farm event.
type EventRecord struct {
	FarmID   string `db:"farm_id"`
	Revision uint64 `db:"revision"`
	Kind     string `db:"kind"`
	Plot     string `db:"plot"`
	Message  string `db:"message"`
	At       int64  `db:"at"`
}

// SaveEvents appends farm events to the archive.
func (db *DB) SaveEvents(farmID string, events []farm.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (farm_id, revision, kind, plot, message, at) VALUES (?, ?, ?, ?, ?, ?)",
			farmID, e.Revision, string(e.Kind), e.Plot, e.Message, e.At.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}

	return tx.Commit()
}

// RecentEvents returns the most recent N events of a farm, newest first.
func (db *DB) RecentEvents(farmID string, limit int) ([]farm.Event, error) {
	var recs []EventRecord
	err := db.conn.Select(&recs,
		"SELECT farm_id, revision, kind, plot, message, at FROM events WHERE farm_id = ? ORDER BY id DESC LIMIT ?",
		farmID, limit,
	)
	if err != nil {
		return nil, err
	}
	events := make([]farm.Event, 0, len(recs))
	for _, r := range recs {
		events = append(events, farm.Event{
			Kind:     farm.EventKind(r.Kind),
			Plot:     r.Plot,
			Message:  r.Message,
			At:       time.UnixMilli(r.At),
			Revision: r.Revision,
		})
	}
	return events, nil
}

// SaveMeta stores a key-value pair in farm metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO farm_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM farm_meta WHERE key = ?", key)
	return value, err
}

// SaveFarmState performs a full save of the farm and its pending events.
func (db *DB) SaveFarmState(f *farm.Farm, tick uint64, events []farm.Event) error {
	snap := f.Snapshot()
	slog.Info("saving farm state", "id", snap.ID, "plots", len(snap.Plots), "events", len(events))

	if err := db.SaveFarm(snap, tick); err != nil {
		return err
	}
	if err := db.SaveEvents(snap.ID, events); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	if err := db.SaveMeta(metaLastFarm, snap.ID); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	return nil
}
