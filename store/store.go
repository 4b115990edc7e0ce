package store

import (
	"errors"

	"github.com/hupe1980/leaguemesh/protocol"
)

// ErrNotFound is returned when no snapshot exists for the given league.
var ErrNotFound = errors.New("snapshot not found")

// Store defines the durable persistence contract consumed by the coordinator.
// Implementations must be safe for concurrent use and must write atomically:
// a snapshot write succeeds entirely or not at all, never leaving a partially
// updated document behind.
//
// The accepted-result log is append-only and preserves submission order; the
// coordinator replays it to rebuild standings, so ordering is part of the
// contract.
type Store interface {
	// SaveStandings atomically replaces the standings snapshot.
	SaveStandings(leagueID string, snap protocol.StandingsSnapshot) error
	// LoadStandings returns the last saved snapshot or ErrNotFound.
	LoadStandings(leagueID string) (protocol.StandingsSnapshot, error)

	// AppendResult appends an accepted terminal match result to the log.
	AppendResult(leagueID string, rec protocol.MatchRecord) error
	// LoadResults returns all accepted results in submission order.
	LoadResults(leagueID string) ([]protocol.MatchRecord, error)

	// SaveRoster persists the frozen roster so the schedule can be
	// regenerated deterministically after a crash.
	SaveRoster(leagueID string, playerIDs []string) error
	// LoadRoster returns the frozen roster or ErrNotFound.
	LoadRoster(leagueID string) ([]string, error)

	// Close releases any underlying resources.
	Close() error
}
