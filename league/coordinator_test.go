package league

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/leaguemesh/auth"
	"github.com/hupe1980/leaguemesh/match"
	"github.com/hupe1980/leaguemesh/protocol"
	"github.com/hupe1980/leaguemesh/schedule"
	"github.com/hupe1980/leaguemesh/store"
)

func newTestCoordinator(t *testing.T, players int) (*Coordinator, auth.Identity, []auth.Identity) {
	t.Helper()

	c := New("league-test")

	ref, err := c.RegisterReferee(protocol.AgentMeta{DisplayName: "Ref"})
	require.NoError(t, err)

	ids := make([]auth.Identity, 0, players)
	for i := 0; i < players; i++ {
		id, err := c.RegisterPlayer(protocol.AgentMeta{DisplayName: "Player"})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return c, ref, ids
}

func TestCoordinatorRegistration(t *testing.T) {
	c, ref, players := newTestCoordinator(t, 3)

	assert.Equal(t, "REF01", ref.AgentID)
	assert.Equal(t, "P01", players[0].AgentID)
	assert.Equal(t, "P03", players[2].AgentID)

	for _, id := range players {
		assert.True(t, c.Authenticate(id.AgentID, id.AuthToken))
	}
	assert.False(t, c.Authenticate(players[0].AgentID, players[1].AuthToken))
}

func TestCoordinatorLateRegistrationRejected(t *testing.T) {
	c, _, _ := newTestCoordinator(t, 2)

	_, err := c.CreateSchedule()
	require.NoError(t, err)

	var serr *schedule.SchedulingError
	_, err = c.RegisterPlayer(protocol.AgentMeta{DisplayName: "Latecomer"})
	require.ErrorAs(t, err, &serr)

	_, err = c.RegisterReferee(protocol.AgentMeta{DisplayName: "Latecomer"})
	require.ErrorAs(t, err, &serr)
}

func TestCoordinatorCreateScheduleValidation(t *testing.T) {
	t.Run("too few players", func(t *testing.T) {
		c, _, _ := newTestCoordinator(t, 1)
		_, err := c.CreateSchedule()
		var serr *schedule.SchedulingError
		require.ErrorAs(t, err, &serr)
	})

	t.Run("no referees", func(t *testing.T) {
		c := New("league-test")
		_, err := c.RegisterPlayer(protocol.AgentMeta{DisplayName: "A"})
		require.NoError(t, err)
		_, err = c.RegisterPlayer(protocol.AgentMeta{DisplayName: "B"})
		require.NoError(t, err)

		_, err = c.CreateSchedule()
		var serr *schedule.SchedulingError
		require.ErrorAs(t, err, &serr)
	})

	t.Run("duplicate", func(t *testing.T) {
		c, _, _ := newTestCoordinator(t, 2)
		_, err := c.CreateSchedule()
		require.NoError(t, err)

		_, err = c.CreateSchedule()
		var serr *schedule.SchedulingError
		require.ErrorAs(t, err, &serr)
	})
}

func TestCoordinatorAssignsEveryMatchAReferee(t *testing.T) {
	c, ref, _ := newTestCoordinator(t, 5)
	sched, err := c.CreateSchedule()
	require.NoError(t, err)

	for _, m := range sched.Matches() {
		assert.Equal(t, ref.AgentID, m.RefereeID)
	}
}

func TestCoordinatorReportMatchResult(t *testing.T) {
	c, ref, players := newTestCoordinator(t, 2)
	sched, err := c.CreateSchedule()
	require.NoError(t, err)

	m := sched.Matches()[0]
	rec := protocol.MatchRecord{
		MatchID:   m.MatchID,
		RoundID:   m.RoundID,
		PlayerAID: m.PlayerAID,
		PlayerBID: m.PlayerBID,
		Status:    protocol.GameWin,
		WinnerID:  players[0].AgentID,
		Timestamp: protocol.UTCTimestamp(),
	}
	require.NoError(t, c.ReportMatchResult(ref.AgentID, rec))

	snap := c.Standings()
	assert.Equal(t, SnapshotSchemaVersion, snap.SchemaVersion)
	assert.Equal(t, 1, snap.RoundsCompleted)
	require.Len(t, snap.Standings, 2)
	assert.Equal(t, players[0].AgentID, snap.Standings[0].PlayerID)
	assert.Equal(t, 3, snap.Standings[0].Points)
	assert.True(t, c.Completed())
}

func TestCoordinatorDuplicateReportRejected(t *testing.T) {
	c, ref, players := newTestCoordinator(t, 2)
	sched, err := c.CreateSchedule()
	require.NoError(t, err)

	m := sched.Matches()[0]
	rec := protocol.MatchRecord{
		MatchID:   m.MatchID,
		RoundID:   m.RoundID,
		PlayerAID: m.PlayerAID,
		PlayerBID: m.PlayerBID,
		Status:    protocol.GameWin,
		WinnerID:  players[1].AgentID,
		Timestamp: protocol.UTCTimestamp(),
	}
	require.NoError(t, c.ReportMatchResult(ref.AgentID, rec))
	before := c.Standings().Standings

	var sterr *match.StateError
	err = c.ReportMatchResult(ref.AgentID, rec)
	require.ErrorAs(t, err, &sterr)
	assert.Equal(t, match.StateReported, sterr.From)

	assert.Equal(t, before, c.Standings().Standings)
}

func TestCoordinatorReportValidation(t *testing.T) {
	c, ref, players := newTestCoordinator(t, 3)
	sched, err := c.CreateSchedule()
	require.NoError(t, err)
	m := sched.Matches()[0]

	base := protocol.MatchRecord{
		MatchID:   m.MatchID,
		RoundID:   m.RoundID,
		PlayerAID: m.PlayerAID,
		PlayerBID: m.PlayerBID,
		Status:    protocol.GameWin,
		WinnerID:  m.PlayerAID,
		Timestamp: protocol.UTCTimestamp(),
	}

	var sterr *match.StateError

	t.Run("unknown match", func(t *testing.T) {
		rec := base
		rec.MatchID = "R9M9"
		require.ErrorAs(t, c.ReportMatchResult(ref.AgentID, rec), &sterr)
	})

	t.Run("wrong referee", func(t *testing.T) {
		require.ErrorAs(t, c.ReportMatchResult("REF99", base), &sterr)
	})

	t.Run("players mismatch", func(t *testing.T) {
		rec := base
		rec.PlayerBID = players[2].AgentID
		if rec.PlayerBID == m.PlayerBID {
			rec.PlayerBID = players[0].AgentID
		}
		require.ErrorAs(t, c.ReportMatchResult(ref.AgentID, rec), &sterr)
	})

	t.Run("draw with winner", func(t *testing.T) {
		rec := base
		rec.Status = protocol.GameDraw
		require.ErrorAs(t, c.ReportMatchResult(ref.AgentID, rec), &sterr)
	})

	t.Run("winner outside match", func(t *testing.T) {
		rec := base
		rec.WinnerID = "P99"
		require.ErrorAs(t, c.ReportMatchResult(ref.AgentID, rec), &sterr)
	})

	t.Run("invalid status", func(t *testing.T) {
		rec := base
		rec.Status = "MAYBE"
		require.ErrorAs(t, c.ReportMatchResult(ref.AgentID, rec), &sterr)
	})
}

func TestCoordinatorRecover(t *testing.T) {
	dir := t.TempDir()
	st, err := store.NewFileStore(dir)
	require.NoError(t, err)

	registry := auth.NewRegistry()
	c := New("league-test", func(o *Options) {
		o.Store = st
		o.Registry = registry
	})

	ref, err := c.RegisterReferee(protocol.AgentMeta{DisplayName: "Ref"})
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		_, err := c.RegisterPlayer(protocol.AgentMeta{DisplayName: "Player"})
		require.NoError(t, err)
	}

	sched, err := c.CreateSchedule()
	require.NoError(t, err)

	m := sched.Matches()[0]
	rec := protocol.MatchRecord{
		MatchID:   m.MatchID,
		RoundID:   m.RoundID,
		PlayerAID: m.PlayerAID,
		PlayerBID: m.PlayerBID,
		Status:    protocol.GameDraw,
		Timestamp: protocol.UTCTimestamp(),
	}
	require.NoError(t, c.ReportMatchResult(ref.AgentID, rec))
	want := c.Standings().Standings

	// A fresh coordinator over the same store must rebuild the identical
	// schedule and ledger.
	c2 := New("league-test", func(o *Options) {
		o.Store = st
		o.Registry = registry
	})
	require.NoError(t, c2.Recover())

	sched2, ok := c2.Schedule()
	require.True(t, ok)
	assert.Equal(t, sched, sched2)
	assert.Equal(t, want, c2.Standings().Standings)

	// The replayed match stays idempotent after recovery.
	var sterr *match.StateError
	require.ErrorAs(t, c2.ReportMatchResult(ref.AgentID, rec), &sterr)
}

func TestCoordinatorRecoverEmptyRun(t *testing.T) {
	dir := t.TempDir()
	st, err := store.NewFileStore(dir)
	require.NoError(t, err)

	c := New("league-test", func(o *Options) { o.Store = st })
	require.NoError(t, c.Recover())
	_, ok := c.Schedule()
	assert.False(t, ok)
}

func TestCoordinatorPlayerStats(t *testing.T) {
	c, ref, players := newTestCoordinator(t, 2)
	sched, err := c.CreateSchedule()
	require.NoError(t, err)

	m := sched.Matches()[0]
	require.NoError(t, c.ReportMatchResult(ref.AgentID, protocol.MatchRecord{
		MatchID:   m.MatchID,
		RoundID:   m.RoundID,
		PlayerAID: m.PlayerAID,
		PlayerBID: m.PlayerBID,
		Status:    protocol.GameWin,
		WinnerID:  players[0].AgentID,
		Timestamp: protocol.UTCTimestamp(),
	}))

	assert.Equal(t, map[string]int{"wins": 1, "draws": 0, "losses": 0}, c.PlayerStats(players[0].AgentID))
	assert.Equal(t, map[string]int{"wins": 0, "draws": 0, "losses": 1}, c.PlayerStats(players[1].AgentID))
	assert.Equal(t, map[string]int{"wins": 0, "draws": 0, "losses": 0}, c.PlayerStats("P99"))
}
