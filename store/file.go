package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/hupe1980/leaguemesh/protocol"
)

// FileStore persists snapshots as JSON documents under a root directory:
//
//	<root>/leagues/<league_id>/standings.json
//	<root>/leagues/<league_id>/results.json
//	<root>/leagues/<league_id>/roster.json
//
// Every write is atomic: the document is written to a temp file in the same
// directory, fsynced, then renamed over the target. A crash mid-write leaves
// the previous document intact.
type FileStore struct {
	mu   sync.Mutex
	root string
}

// NewFileStore constructs a file store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}
	return &FileStore{root: dir}, nil
}

func (s *FileStore) leagueDir(leagueID string) string {
	return filepath.Join(s.root, "leagues", leagueID)
}

// writeAtomic marshals v and atomically replaces path with it.
func writeAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", filepath.Base(path), err)
	}
	return nil
}

// SaveStandings atomically replaces the standings snapshot.
func (s *FileStore) SaveStandings(leagueID string, snap protocol.StandingsSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeAtomic(filepath.Join(s.leagueDir(leagueID), "standings.json"), snap)
}

// LoadStandings returns the last saved snapshot or ErrNotFound.
func (s *FileStore) LoadStandings(leagueID string) (protocol.StandingsSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var snap protocol.StandingsSnapshot
	if err := readJSON(filepath.Join(s.leagueDir(leagueID), "standings.json"), &snap); err != nil {
		return protocol.StandingsSnapshot{}, err
	}
	return snap, nil
}

// AppendResult appends to the ordered result log, rewriting it atomically.
func (s *FileStore) AppendResult(leagueID string, rec protocol.MatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := filepath.Join(s.leagueDir(leagueID), "results.json")

	var results []protocol.MatchRecord
	if err := readJSON(path, &results); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	results = append(results, rec)
	return writeAtomic(path, results)
}

// LoadResults returns all accepted results in submission order.
func (s *FileStore) LoadResults(leagueID string) ([]protocol.MatchRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var results []protocol.MatchRecord
	if err := readJSON(filepath.Join(s.leagueDir(leagueID), "results.json"), &results); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return results, nil
}

// SaveRoster persists the frozen roster.
func (s *FileStore) SaveRoster(leagueID string, playerIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeAtomic(filepath.Join(s.leagueDir(leagueID), "roster.json"), playerIDs)
}

// LoadRoster returns the frozen roster or ErrNotFound.
func (s *FileStore) LoadRoster(leagueID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var roster []string
	if err := readJSON(filepath.Join(s.leagueDir(leagueID), "roster.json"), &roster); err != nil {
		return nil, err
	}
	return roster, nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error { return nil }
