package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/leaguemesh/protocol"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists snapshots in a SQLite database. WAL mode allows the
// coordinator's writes to proceed alongside concurrent standings queries.
// Documents are stored as JSON payloads; atomicity comes from SQLite
// transactions rather than file renames.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and initializes the
// schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS standings (
		league_id  TEXT PRIMARY KEY,
		payload    TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS results (
		seq        INTEGER PRIMARY KEY AUTOINCREMENT,
		league_id  TEXT NOT NULL,
		match_id   TEXT NOT NULL,
		payload    TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE (league_id, match_id)
	);

	CREATE INDEX IF NOT EXISTS idx_results_league ON results(league_id, seq);

	CREATE TABLE IF NOT EXISTS rosters (
		league_id  TEXT PRIMARY KEY,
		payload    TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// SaveStandings replaces the standings snapshot in one statement.
func (s *SQLiteStore) SaveStandings(leagueID string, snap protocol.StandingsSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal standings: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO standings (league_id, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(league_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		leagueID, string(payload), protocol.UTCTimestamp())
	if err != nil {
		return fmt.Errorf("save standings: %w", err)
	}
	return nil
}

// LoadStandings returns the last saved snapshot or ErrNotFound.
func (s *SQLiteStore) LoadStandings(leagueID string) (protocol.StandingsSnapshot, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM standings WHERE league_id = ?`, leagueID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return protocol.StandingsSnapshot{}, ErrNotFound
	}
	if err != nil {
		return protocol.StandingsSnapshot{}, fmt.Errorf("load standings: %w", err)
	}
	var snap protocol.StandingsSnapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return protocol.StandingsSnapshot{}, fmt.Errorf("unmarshal standings: %w", err)
	}
	return snap, nil
}

// AppendResult appends an accepted result; the autoincrement sequence
// preserves submission order.
func (s *SQLiteStore) AppendResult(leagueID string, rec protocol.MatchRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO results (league_id, match_id, payload, created_at) VALUES (?, ?, ?, ?)`,
		leagueID, rec.MatchID, string(payload), protocol.UTCTimestamp())
	if err != nil {
		return fmt.Errorf("append result: %w", err)
	}
	return nil
}

// LoadResults returns all accepted results in submission order.
func (s *SQLiteStore) LoadResults(leagueID string) ([]protocol.MatchRecord, error) {
	rows, err := s.db.Query(`SELECT payload FROM results WHERE league_id = ? ORDER BY seq`, leagueID)
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}
	defer rows.Close()

	var results []protocol.MatchRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		var rec protocol.MatchRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

// SaveRoster persists the frozen roster.
func (s *SQLiteStore) SaveRoster(leagueID string, playerIDs []string) error {
	payload, err := json.Marshal(playerIDs)
	if err != nil {
		return fmt.Errorf("marshal roster: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO rosters (league_id, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(league_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		leagueID, string(payload), protocol.UTCTimestamp())
	if err != nil {
		return fmt.Errorf("save roster: %w", err)
	}
	return nil
}

// LoadRoster returns the frozen roster or ErrNotFound.
func (s *SQLiteStore) LoadRoster(leagueID string) ([]string, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM rosters WHERE league_id = ?`, leagueID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	var roster []string
	if err := json.Unmarshal([]byte(payload), &roster); err != nil {
		return nil, fmt.Errorf("unmarshal roster: %w", err)
	}
	return roster, nil
}
