package store

import (
	"sync"

	"github.com/hupe1980/leaguemesh/protocol"
)

// MemoryStore is a volatile Store implementation keeping everything in process
// local maps. It is safe for concurrent access and best suited for tests or
// ephemeral demo leagues.
type MemoryStore struct {
	mu        sync.RWMutex
	standings map[string]protocol.StandingsSnapshot
	results   map[string][]protocol.MatchRecord
	rosters   map[string][]string
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		standings: make(map[string]protocol.StandingsSnapshot),
		results:   make(map[string][]protocol.MatchRecord),
		rosters:   make(map[string][]string),
	}
}

// SaveStandings replaces the standings snapshot.
func (s *MemoryStore) SaveStandings(leagueID string, snap protocol.StandingsSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.standings[leagueID] = snap
	return nil
}

// LoadStandings returns the last saved snapshot or ErrNotFound.
func (s *MemoryStore) LoadStandings(leagueID string) (protocol.StandingsSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.standings[leagueID]
	if !ok {
		return protocol.StandingsSnapshot{}, ErrNotFound
	}
	return snap, nil
}

// AppendResult appends an accepted result to the log.
func (s *MemoryStore) AppendResult(leagueID string, rec protocol.MatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[leagueID] = append(s.results[leagueID], rec)
	return nil
}

// LoadResults returns all accepted results in submission order.
func (s *MemoryStore) LoadResults(leagueID string) ([]protocol.MatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]protocol.MatchRecord, len(s.results[leagueID]))
	copy(out, s.results[leagueID])
	return out, nil
}

// SaveRoster persists the frozen roster.
func (s *MemoryStore) SaveRoster(leagueID string, playerIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]string, len(playerIDs))
	copy(cp, playerIDs)
	s.rosters[leagueID] = cp
	return nil
}

// LoadRoster returns the frozen roster or ErrNotFound.
func (s *MemoryStore) LoadRoster(leagueID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roster, ok := s.rosters[leagueID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]string, len(roster))
	copy(out, roster)
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
