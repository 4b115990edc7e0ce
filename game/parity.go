// Package game implements the even/odd game rules: the random draw, the
// deterministic resolution function and the scoring contract (win=3, draw=1,
// loss=0).
package game

import (
	"fmt"
	"math/rand"

	"github.com/hupe1980/leaguemesh/protocol"
)

// Draw range for the random number.
const (
	DrawMin = 1
	DrawMax = 10
)

// Points awarded per outcome.
const (
	PointsWin  = 3
	PointsDraw = 1
	PointsLoss = 0
)

// Drawer produces the random number for a game. Seedable for reproducibility.
type Drawer struct {
	rng *rand.Rand
}

// NewDrawer constructs a Drawer from a rand source. A nil source falls back to
// the shared global generator.
func NewDrawer(rng *rand.Rand) *Drawer {
	return &Drawer{rng: rng}
}

// Draw returns one uniformly random integer in [DrawMin, DrawMax].
func (d *Drawer) Draw() int {
	if d.rng != nil {
		return DrawMin + d.rng.Intn(DrawMax-DrawMin+1)
	}
	return DrawMin + rand.Intn(DrawMax-DrawMin+1)
}

// ParityOf reports whether a number is even or odd.
func ParityOf(n int) protocol.Parity {
	if n%2 == 0 {
		return protocol.ParityEven
	}
	return protocol.ParityOdd
}

// Resolve applies the rule table to two committed choices and a drawn number:
// the player whose choice matches the drawn number's parity wins; identical
// choices produce a draw. The result is deterministic given its inputs.
func Resolve(playerAID, playerBID string, choiceA, choiceB protocol.Parity, number int) protocol.GameResult {
	parity := ParityOf(number)
	choices := map[string]protocol.Parity{playerAID: choiceA, playerBID: choiceB}

	if choiceA == choiceB {
		return protocol.GameResult{
			Status:       protocol.GameDraw,
			DrawnNumber:  number,
			NumberParity: parity,
			Choices:      choices,
			Score:        map[string]int{playerAID: PointsDraw, playerBID: PointsDraw},
			Reason:       fmt.Sprintf("both chose %s, number was %d (%s)", choiceA, number, parity),
		}
	}

	winner, loser := playerAID, playerBID
	if choiceB == parity {
		winner, loser = playerBID, playerAID
	}
	return protocol.GameResult{
		Status:       protocol.GameWin,
		WinnerID:     winner,
		DrawnNumber:  number,
		NumberParity: parity,
		Choices:      choices,
		Score:        map[string]int{winner: PointsWin, loser: PointsLoss},
		Reason:       fmt.Sprintf("%s chose %s, number was %d (%s)", winner, parity, number, parity),
	}
}

// TechnicalLoss builds the forfeiture outcome for a player that missed a
// deadline: the opponent is awarded a win without any number being drawn.
func TechnicalLoss(winnerID, forfeiterID, reason string) protocol.GameResult {
	return protocol.GameResult{
		Status:   protocol.GameTechnicalLoss,
		WinnerID: winnerID,
		Score:    map[string]int{winnerID: PointsWin, forfeiterID: PointsLoss},
		Reason:   reason,
	}
}
