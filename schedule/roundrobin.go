// Package schedule provides the pure round-robin pairing algorithm used by the
// league coordinator. Generation is deterministic for a fixed roster order so
// a schedule can always be reproduced from a persisted roster.
package schedule

import "fmt"

// SchedulingError reports an invalid scheduling request: roster too small,
// duplicate schedule creation or late registration. The operator must correct
// and resubmit.
type SchedulingError struct {
	Reason string
}

// Error implements the error interface.
func (e *SchedulingError) Error() string { return "scheduling error: " + e.Reason }

// NewSchedulingError constructs a SchedulingError.
func NewSchedulingError(format string, args ...any) *SchedulingError {
	return &SchedulingError{Reason: fmt.Sprintf(format, args...)}
}

// Match is one scheduled pairing. RefereeID is assigned by the coordinator
// after generation.
type Match struct {
	MatchID   string `json:"match_id"`
	RoundID   int    `json:"round_id"`
	PlayerAID string `json:"player_a_id"`
	PlayerBID string `json:"player_b_id"`
	RefereeID string `json:"referee_id,omitempty"`
}

// Round is one set of simultaneous matches. Bye names the player sitting out,
// if any.
type Round struct {
	RoundID int     `json:"round_id"`
	Matches []Match `json:"matches"`
	Bye     string  `json:"bye,omitempty"`
}

// Schedule is the ordered sequence of rounds for one league run. Immutable
// once generated.
type Schedule struct {
	Rounds []Round `json:"rounds"`
}

// TotalMatches returns the number of matches across all rounds.
func (s Schedule) TotalMatches() int {
	n := 0
	for _, r := range s.Rounds {
		n += len(r.Matches)
	}
	return n
}

// Matches returns all matches flattened in round order.
func (s Schedule) Matches() []Match {
	out := make([]Match, 0, s.TotalMatches())
	for _, r := range s.Rounds {
		out = append(out, r.Matches...)
	}
	return out
}

// Lookup returns the match with the given identifier.
func (s Schedule) Lookup(matchID string) (Match, bool) {
	for _, r := range s.Rounds {
		for _, m := range r.Matches {
			if m.MatchID == matchID {
				return m, true
			}
		}
	}
	return Match{}, false
}

// byeSlot is the synthetic roster slot inserted for odd rosters. It consumes
// one rotation position and produces no match.
const byeSlot = ""

// GenerateRoundRobin produces a round-robin schedule from an ordered roster
// using the circle method: the first slot stays fixed while the remainder
// rotates each round. Every unordered pair of distinct players appears in
// exactly one match across the whole schedule. Deterministic for a fixed input
// order.
func GenerateRoundRobin(playerIDs []string) (Schedule, error) {
	if len(playerIDs) < 2 {
		return Schedule{}, NewSchedulingError("need at least 2 players, got %d", len(playerIDs))
	}

	slots := make([]string, len(playerIDs))
	copy(slots, playerIDs)
	if len(slots)%2 != 0 {
		slots = append(slots, byeSlot)
	}

	n := len(slots)
	sched := Schedule{Rounds: make([]Round, 0, n-1)}
	matchNum := 1

	for roundID := 1; roundID < n; roundID++ {
		round := Round{RoundID: roundID}
		for i := 0; i < n/2; i++ {
			a, b := slots[i], slots[n-1-i]
			if a == byeSlot {
				round.Bye = b
				continue
			}
			if b == byeSlot {
				round.Bye = a
				continue
			}
			round.Matches = append(round.Matches, Match{
				MatchID:   fmt.Sprintf("R%dM%d", roundID, matchNum),
				RoundID:   roundID,
				PlayerAID: a,
				PlayerBID: b,
			})
			matchNum++
		}
		sched.Rounds = append(sched.Rounds, round)

		// Rotate all slots but the first one position clockwise.
		rotated := make([]string, n)
		rotated[0] = slots[0]
		rotated[1] = slots[n-1]
		copy(rotated[2:], slots[1:n-1])
		slots = rotated
	}

	return sched, nil
}
