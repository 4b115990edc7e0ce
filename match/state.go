package match

import (
	"fmt"
	"sync"

	"github.com/hupe1980/leaguemesh/protocol"
	"github.com/hupe1980/leaguemesh/schedule"
)

// State is one node of the match lifecycle.
type State string

const (
	// StatePending means the match is assigned but no invitations were sent.
	StatePending State = "PENDING"
	// StateInvited means invitations are out and the join deadline is running.
	StateInvited State = "INVITED"
	// StateAwaitingChoices means both players joined and the choice deadline is running.
	StateAwaitingChoices State = "AWAITING_CHOICES"
	// StateResolved means the outcome is determined but not yet reported.
	StateResolved State = "RESOLVED"
	// StateReported means the coordinator accepted the terminal result.
	StateReported State = "REPORTED"
	// StateForfeited means a deadline expired and a technical loss was assigned.
	StateForfeited State = "FORFEITED"
	// StateFailed means an unrecoverable protocol or auth error ended the match.
	StateFailed State = "FAILED"
)

// Terminal reports whether no further transitions are allowed out of s, other
// than the RESOLVED/FORFEITED -> REPORTED bookkeeping step.
func (s State) Terminal() bool {
	return s == StateReported || s == StateFailed
}

// StateError reports an out-of-order transition or a duplicate/unknown match
// report. Not retryable; logged for manual reconciliation.
type StateError struct {
	MatchID string
	From    State
	Msg     string
}

// Error implements the error interface.
func (e *StateError) Error() string {
	return fmt.Sprintf("state error: match %s in %s: %s", e.MatchID, e.From, e.Msg)
}

// transitions is the legal edge set of the lifecycle.
var transitions = map[State][]State{
	StatePending:         {StateInvited, StateFailed},
	StateInvited:         {StateAwaitingChoices, StateForfeited, StateFailed},
	StateAwaitingChoices: {StateResolved, StateForfeited, StateFailed},
	StateResolved:        {StateReported, StateFailed},
	StateForfeited:       {StateReported, StateFailed},
}

// Match is the runtime state of one scheduled match. All mutation goes through
// transition methods which enforce the lifecycle; illegal transitions return a
// *StateError.
type Match struct {
	mu sync.Mutex

	desc    schedule.Match
	state   State
	joined  map[string]bool
	choices map[string]protocol.Parity
	result  *protocol.GameResult
	failure error
}

// New creates a match in PENDING for the given descriptor.
func New(desc schedule.Match) *Match {
	return &Match{
		desc:    desc,
		state:   StatePending,
		joined:  make(map[string]bool),
		choices: make(map[string]protocol.Parity),
	}
}

// ID returns the match identifier.
func (m *Match) ID() string { return m.desc.MatchID }

// Descriptor returns the scheduled pairing this match runs.
func (m *Match) Descriptor() schedule.Match { return m.desc }

// State returns the current lifecycle state.
func (m *Match) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Match) transitionLocked(to State) error {
	for _, allowed := range transitions[m.state] {
		if allowed == to {
			m.state = to
			return nil
		}
	}
	return &StateError{MatchID: m.desc.MatchID, From: m.state, Msg: "cannot transition to " + string(to)}
}

// Invite moves PENDING -> INVITED as the invitations go out.
func (m *Match) Invite() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitionLocked(StateInvited)
}

// Join records a player's invitation acknowledgment. Once both assigned
// players have joined the match moves to AWAITING_CHOICES.
func (m *Match) Join(playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateInvited {
		return &StateError{MatchID: m.desc.MatchID, From: m.state, Msg: "join ack outside invite window"}
	}
	if playerID != m.desc.PlayerAID && playerID != m.desc.PlayerBID {
		return &StateError{MatchID: m.desc.MatchID, From: m.state, Msg: "player " + playerID + " not assigned"}
	}
	m.joined[playerID] = true
	if m.joined[m.desc.PlayerAID] && m.joined[m.desc.PlayerBID] {
		return m.transitionLocked(StateAwaitingChoices)
	}
	return nil
}

// RecordChoice stores a player's parity choice while AWAITING_CHOICES.
func (m *Match) RecordChoice(playerID string, choice protocol.Parity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateAwaitingChoices {
		return &StateError{MatchID: m.desc.MatchID, From: m.state, Msg: "choice outside collection window"}
	}
	if playerID != m.desc.PlayerAID && playerID != m.desc.PlayerBID {
		return &StateError{MatchID: m.desc.MatchID, From: m.state, Msg: "player " + playerID + " not assigned"}
	}
	if !choice.Valid() {
		return &StateError{MatchID: m.desc.MatchID, From: m.state, Msg: fmt.Sprintf("invalid parity %q", choice)}
	}
	m.choices[playerID] = choice
	return nil
}

// Choices returns a copy of the committed choices.
func (m *Match) Choices() map[string]protocol.Parity {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]protocol.Parity, len(m.choices))
	for k, v := range m.choices {
		out[k] = v
	}
	return out
}

// Resolve moves AWAITING_CHOICES -> RESOLVED with the rule outcome.
func (m *Match) Resolve(result protocol.GameResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.transitionLocked(StateResolved); err != nil {
		return err
	}
	m.result = &result
	return nil
}

// Forfeit moves INVITED or AWAITING_CHOICES -> FORFEITED with a technical
// loss outcome. Deadline expiry is handled here, never surfaced as an error to
// the caller.
func (m *Match) Forfeit(result protocol.GameResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.transitionLocked(StateForfeited); err != nil {
		return err
	}
	m.result = &result
	return nil
}

// Fail moves the match to FAILED, recording the unrecoverable cause. FAILED is
// terminal and requires operator-level rescheduling.
func (m *Match) Fail(cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.transitionLocked(StateFailed); err != nil {
		return err
	}
	m.failure = cause
	return nil
}

// Failure returns the recorded unrecoverable cause, if any.
func (m *Match) Failure() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failure
}

// MarkReported moves RESOLVED or FORFEITED -> REPORTED once the coordinator
// accepted the result. The match is immutable afterwards.
func (m *Match) MarkReported() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitionLocked(StateReported)
}

// Result returns the terminal outcome, or false if the match has not resolved.
func (m *Match) Result() (protocol.GameResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.result == nil {
		return protocol.GameResult{}, false
	}
	return *m.result, true
}

// Record builds the durable match record for reporting. Valid once the match
// is RESOLVED or FORFEITED.
func (m *Match) Record() (protocol.MatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.result == nil {
		return protocol.MatchRecord{}, &StateError{MatchID: m.desc.MatchID, From: m.state, Msg: "no result to record"}
	}
	return protocol.MatchRecord{
		MatchID:     m.desc.MatchID,
		RoundID:     m.desc.RoundID,
		PlayerAID:   m.desc.PlayerAID,
		PlayerBID:   m.desc.PlayerBID,
		Status:      m.result.Status,
		WinnerID:    m.result.WinnerID,
		DrawnNumber: m.result.DrawnNumber,
		Choices:     m.result.Choices,
		Reason:      m.result.Reason,
		Timestamp:   protocol.UTCTimestamp(),
	}, nil
}
