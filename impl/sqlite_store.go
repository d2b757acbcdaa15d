package impl

import (
	"database/sql"

	"github.com/emberlink/ember/state"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists transport state in sqlite, for gateway and repeater
// class hosts where the routing table can grow to the whole network.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS meta (
		key VARCHAR(32) PRIMARY KEY,
		value INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS routes (
		dest INTEGER PRIMARY KEY,
		next INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) getMeta(key string, def uint8) (uint8, error) {
	var v uint8
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = ?;`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	return v, nil
}

func (s *SQLiteStore) setMeta(key string, v uint8) error {
	_, err := s.db.Exec(`INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value;`, key, v)
	return err
}

func (s *SQLiteStore) LoadNodeID() (uint8, error) {
	return s.getMeta("node_id", state.AutoAddress)
}

func (s *SQLiteStore) StoreNodeID(id uint8) error {
	return s.setMeta("node_id", id)
}

func (s *SQLiteStore) LoadParent() (uint8, uint8, error) {
	id, err := s.getMeta("parent", state.AutoAddress)
	if err != nil {
		return state.AutoAddress, state.DistanceInvalid, err
	}
	d, err := s.getMeta("distance", state.DistanceInvalid)
	if err != nil {
		return state.AutoAddress, state.DistanceInvalid, err
	}
	return id, d, nil
}

func (s *SQLiteStore) StoreParent(id, distance uint8) error {
	if err := s.setMeta("parent", id); err != nil {
		return err
	}
	return s.setMeta("distance", distance)
}

func (s *SQLiteStore) LoadRoute(dest uint8) (uint8, bool, error) {
	var next uint8
	err := s.db.QueryRow(`SELECT next FROM routes WHERE dest = ?;`, dest).Scan(&next)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return next, true, nil
}

func (s *SQLiteStore) StoreRoute(dest, next uint8) error {
	_, err := s.db.Exec(`INSERT INTO routes (dest, next) VALUES (?, ?)
		ON CONFLICT(dest) DO UPDATE SET next = excluded.next;`, dest, next)
	return err
}

func (s *SQLiteStore) ClearRoutes() error {
	_, err := s.db.Exec(`DELETE FROM routes;`)
	return err
}

func (s *SQLiteStore) Routes() (map[uint8]uint8, error) {
	rows, err := s.db.Query(`SELECT dest, next FROM routes;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint8]uint8)
	for rows.Next() {
		var dest, next uint8
		if err := rows.Scan(&dest, &next); err != nil {
			return nil, err
		}
		out[dest] = next
	}
	return out, rows.Err()
}
