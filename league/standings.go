package league

import (
	"sort"

	"github.com/hupe1980/leaguemesh/game"
	"github.com/hupe1980/leaguemesh/protocol"
)

// ComputeStandings derives the full standings table by replaying accepted
// terminal results in submission order. Every roster player gets a row even
// with zero matches played. Rank order: points descending, wins descending,
// then player_id ascending — stable and free of randomness.
func ComputeStandings(roster []string, displayNames map[string]string, results []protocol.MatchRecord) []protocol.StandingRow {
	rows := make(map[string]*protocol.StandingRow, len(roster))
	for _, id := range roster {
		rows[id] = &protocol.StandingRow{PlayerID: id, DisplayName: displayNames[id]}
	}

	for _, rec := range results {
		a, okA := rows[rec.PlayerAID]
		b, okB := rows[rec.PlayerBID]
		if !okA || !okB {
			continue
		}
		a.Played++
		b.Played++

		switch {
		case rec.WinnerID == "":
			a.Draws++
			b.Draws++
			a.Points += game.PointsDraw
			b.Points += game.PointsDraw
		case rec.WinnerID == rec.PlayerAID:
			a.Wins++
			a.Points += game.PointsWin
			b.Losses++
		default:
			b.Wins++
			b.Points += game.PointsWin
			a.Losses++
		}
	}

	out := make([]protocol.StandingRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		if out[i].Wins != out[j].Wins {
			return out[i].Wins > out[j].Wins
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
