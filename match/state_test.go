package match

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/leaguemesh/game"
	"github.com/hupe1980/leaguemesh/protocol"
	"github.com/hupe1980/leaguemesh/schedule"
)

func testDesc() schedule.Match {
	return schedule.Match{MatchID: "R1M1", RoundID: 1, PlayerAID: "P01", PlayerBID: "P02", RefereeID: "REF01"}
}

func TestHappyPath(t *testing.T) {
	m := New(testDesc())
	assert.Equal(t, StatePending, m.State())

	require.NoError(t, m.Invite())
	assert.Equal(t, StateInvited, m.State())

	require.NoError(t, m.Join("P01"))
	assert.Equal(t, StateInvited, m.State())
	require.NoError(t, m.Join("P02"))
	assert.Equal(t, StateAwaitingChoices, m.State())

	require.NoError(t, m.RecordChoice("P01", protocol.ParityEven))
	require.NoError(t, m.RecordChoice("P02", protocol.ParityOdd))

	res := game.Resolve("P01", "P02", protocol.ParityEven, protocol.ParityOdd, 8)
	require.NoError(t, m.Resolve(res))
	assert.Equal(t, StateResolved, m.State())

	rec, err := m.Record()
	require.NoError(t, err)
	assert.Equal(t, "R1M1", rec.MatchID)
	assert.Equal(t, "P01", rec.WinnerID)
	assert.Equal(t, 8, rec.DrawnNumber)

	require.NoError(t, m.MarkReported())
	assert.Equal(t, StateReported, m.State())
	assert.True(t, m.State().Terminal())
}

func TestForfeitFromInvited(t *testing.T) {
	m := New(testDesc())
	require.NoError(t, m.Invite())
	require.NoError(t, m.Join("P01"))

	res := game.TechnicalLoss("P01", "P02", "join timeout")
	require.NoError(t, m.Forfeit(res))
	assert.Equal(t, StateForfeited, m.State())

	require.NoError(t, m.MarkReported())
}

func TestForfeitFromAwaitingChoices(t *testing.T) {
	m := New(testDesc())
	require.NoError(t, m.Invite())
	require.NoError(t, m.Join("P01"))
	require.NoError(t, m.Join("P02"))
	require.NoError(t, m.RecordChoice("P01", protocol.ParityOdd))

	res := game.TechnicalLoss("P01", "P02", "choice timeout")
	require.NoError(t, m.Forfeit(res))
	assert.Equal(t, StateForfeited, m.State())
}

func TestIllegalTransitions(t *testing.T) {
	m := New(testDesc())

	var serr *StateError

	// Cannot resolve or report from PENDING.
	err := m.Resolve(protocol.GameResult{})
	require.ErrorAs(t, err, &serr)
	err = m.MarkReported()
	require.ErrorAs(t, err, &serr)

	// Cannot forfeit before invitations are out.
	err = m.Forfeit(protocol.GameResult{})
	require.ErrorAs(t, err, &serr)

	// Join before invite is out of order.
	err = m.Join("P01")
	require.ErrorAs(t, err, &serr)
}

func TestJoinRejectsStranger(t *testing.T) {
	m := New(testDesc())
	require.NoError(t, m.Invite())

	var serr *StateError
	require.ErrorAs(t, m.Join("P99"), &serr)
}

func TestRecordChoiceValidation(t *testing.T) {
	m := New(testDesc())
	require.NoError(t, m.Invite())
	require.NoError(t, m.Join("P01"))
	require.NoError(t, m.Join("P02"))

	var serr *StateError
	require.ErrorAs(t, m.RecordChoice("P99", protocol.ParityEven), &serr)
	require.ErrorAs(t, m.RecordChoice("P01", protocol.Parity("prime")), &serr)
}

func TestFailIsTerminal(t *testing.T) {
	m := New(testDesc())
	cause := errors.New("auth token rejected mid-match")
	require.NoError(t, m.Fail(cause))
	assert.Equal(t, StateFailed, m.State())
	assert.True(t, m.State().Terminal())
	assert.Equal(t, cause, m.Failure())

	// No way out of FAILED, not even reporting.
	var serr *StateError
	require.ErrorAs(t, m.MarkReported(), &serr)
	require.ErrorAs(t, m.Invite(), &serr)
}

func TestRecordRequiresResult(t *testing.T) {
	m := New(testDesc())
	_, err := m.Record()

	var serr *StateError
	require.ErrorAs(t, err, &serr)
}
