package player

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/leaguemesh/protocol"
)

func seeded(seed int64) func(o *StrategyOptions) {
	return func(o *StrategyOptions) { o.Rand = rand.New(rand.NewSource(seed)) }
}

func TestParseStrategyKind(t *testing.T) {
	for _, kind := range StrategyKinds() {
		parsed, err := ParseStrategyKind(string(kind))
		require.NoError(t, err)
		assert.Equal(t, kind, parsed)
	}

	_, err := ParseStrategyKind("clairvoyant")
	require.Error(t, err)
}

func TestStrategyFixedChoices(t *testing.T) {
	even := NewStrategy(StrategyAlwaysEven)
	odd := NewStrategy(StrategyAlwaysOdd)
	for i := 0; i < 5; i++ {
		assert.Equal(t, protocol.ParityEven, even.Choose(nil))
		assert.Equal(t, protocol.ParityOdd, odd.Choose(nil))
	}
}

func TestStrategyAlternating(t *testing.T) {
	s := NewStrategy(StrategyAlternating)
	want := []protocol.Parity{
		protocol.ParityEven, protocol.ParityOdd,
		protocol.ParityEven, protocol.ParityOdd,
	}
	for i, w := range want {
		assert.Equal(t, w, s.Choose(nil), "choice %d", i)
	}
}

func TestStrategyRandomProducesBothParities(t *testing.T) {
	s := NewStrategy(StrategyRandom, seeded(1))
	seen := map[protocol.Parity]int{}
	for i := 0; i < 200; i++ {
		choice := s.Choose(nil)
		require.True(t, choice.Valid())
		seen[choice]++
	}
	assert.Positive(t, seen[protocol.ParityEven])
	assert.Positive(t, seen[protocol.ParityOdd])
}

func TestStrategyBiasedLeansTowardPreference(t *testing.T) {
	const n = 1000

	evens := 0
	s := NewStrategy(StrategyBiasedEven, seeded(42))
	for i := 0; i < n; i++ {
		if s.Choose(nil) == protocol.ParityEven {
			evens++
		}
	}
	assert.Greater(t, evens, n/2)

	odds := 0
	s = NewStrategy(StrategyBiasedOdd, seeded(42))
	for i := 0; i < n; i++ {
		if s.Choose(nil) == protocol.ParityOdd {
			odds++
		}
	}
	assert.Greater(t, odds, n/2)
}

func TestStrategyCounter(t *testing.T) {
	s := NewStrategy(StrategyCounter)

	tests := []struct {
		name    string
		history []protocol.Parity
		want    protocol.Parity
	}{
		{name: "no history ties toward even", history: nil, want: protocol.ParityEven},
		{name: "opponent favors even", history: []protocol.Parity{protocol.ParityEven, protocol.ParityEven, protocol.ParityOdd}, want: protocol.ParityOdd},
		{name: "opponent favors odd", history: []protocol.Parity{protocol.ParityOdd, protocol.ParityOdd, protocol.ParityEven}, want: protocol.ParityEven},
		{name: "balanced history ties toward even", history: []protocol.Parity{protocol.ParityEven, protocol.ParityOdd}, want: protocol.ParityEven},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Choose(tt.history))
		})
	}
}
