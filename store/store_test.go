package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/leaguemesh/protocol"
)

// Interface compliance (compile-time assertions)
var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*FileStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)

func testSnapshot() protocol.StandingsSnapshot {
	return protocol.StandingsSnapshot{
		SchemaVersion:   "1.0.0",
		LeagueID:        "league-2026",
		LastUpdated:     "2026-08-28T10:00:00Z",
		RoundsCompleted: 1,
		Standings: []protocol.StandingRow{
			{Rank: 1, PlayerID: "P01", Played: 1, Wins: 1, Points: 3},
			{Rank: 2, PlayerID: "P02", Played: 1, Losses: 1, Points: 0},
		},
	}
}

func testRecord(matchID string) protocol.MatchRecord {
	return protocol.MatchRecord{
		MatchID:     matchID,
		RoundID:     1,
		PlayerAID:   "P01",
		PlayerBID:   "P02",
		Status:      protocol.GameWin,
		WinnerID:    "P01",
		DrawnNumber: 8,
		Choices:     map[string]protocol.Parity{"P01": protocol.ParityEven, "P02": protocol.ParityOdd},
		Timestamp:   "2026-08-28T10:00:00Z",
	}
}

// exerciseStore runs the shared contract against any Store implementation.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	const league = "league-2026"

	_, err := s.LoadStandings(league)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.LoadRoster(league)
	require.ErrorIs(t, err, ErrNotFound)

	results, err := s.LoadResults(league)
	require.NoError(t, err)
	assert.Empty(t, results)

	require.NoError(t, s.SaveStandings(league, testSnapshot()))
	snap, err := s.LoadStandings(league)
	require.NoError(t, err)
	assert.Equal(t, testSnapshot(), snap)

	// Overwrite is a full replacement.
	updated := testSnapshot()
	updated.RoundsCompleted = 2
	require.NoError(t, s.SaveStandings(league, updated))
	snap, err = s.LoadStandings(league)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.RoundsCompleted)

	// Result log preserves submission order.
	require.NoError(t, s.AppendResult(league, testRecord("R1M1")))
	require.NoError(t, s.AppendResult(league, testRecord("R1M2")))
	results, err = s.LoadResults(league)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "R1M1", results[0].MatchID)
	assert.Equal(t, "R1M2", results[1].MatchID)

	roster := []string{"P01", "P02", "P03"}
	require.NoError(t, s.SaveRoster(league, roster))
	got, err := s.LoadRoster(league)
	require.NoError(t, err)
	assert.Equal(t, roster, got)

	require.NoError(t, s.Close())
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "league.db"))
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.SaveStandings("league-2026", testSnapshot()))
	require.NoError(t, s.SaveRoster("league-2026", []string{"P01", "P02"}))
	require.NoError(t, s.Close())

	reopened, err := NewFileStore(dir)
	require.NoError(t, err)
	snap, err := reopened.LoadStandings("league-2026")
	require.NoError(t, err)
	assert.Equal(t, testSnapshot(), snap)

	roster, err := reopened.LoadRoster("league-2026")
	require.NoError(t, err)
	assert.Equal(t, []string{"P01", "P02"}, roster)
}
