package leaguemesh

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/leaguemesh/config"
	"github.com/hupe1980/leaguemesh/player"
)

func fastRun(o *Options) {
	o.JoinTimeout = 500 * time.Millisecond
	o.ChoiceTimeout = 500 * time.Millisecond
}

func TestLeagueRunsToCompletion(t *testing.T) {
	l := New("league-test", fastRun)
	l.AddReferee("Main")
	l.AddReferee("Backup")
	l.AddPlayer("Alice", player.StrategyCounter)
	l.AddPlayer("Bob", player.StrategyAlwaysEven)
	l.AddPlayer("Carol", player.StrategyAlwaysOdd)
	l.AddPlayer("Dave", player.StrategyAlternating)
	l.AddPlayer("Erin", player.StrategyRandom)

	snap, err := l.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Standings, 5)
	assert.Equal(t, 5, snap.RoundsCompleted)
	for i, row := range snap.Standings {
		assert.Equal(t, i+1, row.Rank)
		assert.Equal(t, 4, row.Played)
		assert.Equal(t, row.Wins+row.Draws+row.Losses, row.Played)
	}

	// 5 players round-robin: C(5,2) matches, each distributing 2 or 3 points.
	total := 0
	for _, row := range snap.Standings {
		total += row.Points
	}
	assert.GreaterOrEqual(t, total, 20)
	assert.LessOrEqual(t, total, 30)
}

func TestLeagueSeededRunsAreReproducible(t *testing.T) {
	run := func() []string {
		l := New("league-test", fastRun, func(o *Options) {
			o.Seed = 99
			o.MaxConcurrentMatches = 1
		})
		l.AddReferee("Main")
		l.AddPlayer("Alice", player.StrategyRandom)
		l.AddPlayer("Bob", player.StrategyBiasedEven)
		l.AddPlayer("Carol", player.StrategyBiasedOdd)

		snap, err := l.Run(context.Background())
		require.NoError(t, err)

		order := make([]string, 0, len(snap.Standings))
		for _, row := range snap.Standings {
			order = append(order, row.PlayerID)
		}
		return order
	}

	assert.Equal(t, run(), run())
}

func TestLeagueRequiresRoster(t *testing.T) {
	l := New("league-test")
	_, err := l.Run(context.Background())
	require.Error(t, err)

	l.AddReferee("Main")
	l.AddPlayer("Alone", player.StrategyRandom)
	_, err = l.Run(context.Background())
	require.Error(t, err)
}

func TestFromDefinition(t *testing.T) {
	lf := config.LeagueFile{
		LeagueID: "league-2026",
		Seed:     7,
		Players: []config.PlayerSpec{
			{Name: "Alice", Strategy: "counter"},
			{Name: "Bob", Strategy: "always_odd"},
			{Name: "Carol"},
		},
		Referees: []config.RefereeSpec{{Name: "Main"}},
	}

	l, err := FromDefinition(lf, fastRun)
	require.NoError(t, err)

	snap, err := l.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "league-2026", snap.LeagueID)
	assert.Len(t, snap.Standings, 3)
}

func TestFromDefinitionRejectsUnknownStrategy(t *testing.T) {
	lf := config.LeagueFile{
		LeagueID: "league-2026",
		Players: []config.PlayerSpec{
			{Name: "Alice", Strategy: "psychic"},
			{Name: "Bob"},
		},
		Referees: []config.RefereeSpec{{Name: "Main"}},
	}
	_, err := FromDefinition(lf)
	require.Error(t, err)
}
