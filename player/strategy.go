package player

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/hupe1980/leaguemesh/protocol"
)

// StrategyKind names one of the built-in choice strategies.
type StrategyKind string

const (
	// StrategyRandom picks even or odd uniformly at random.
	StrategyRandom StrategyKind = "random"
	// StrategyAlwaysEven always picks even.
	StrategyAlwaysEven StrategyKind = "always_even"
	// StrategyAlwaysOdd always picks odd.
	StrategyAlwaysOdd StrategyKind = "always_odd"
	// StrategyAlternating flips its choice each match, starting with even.
	StrategyAlternating StrategyKind = "alternating"
	// StrategyBiasedEven picks even with probability 0.7.
	StrategyBiasedEven StrategyKind = "biased_even"
	// StrategyBiasedOdd picks odd with probability 0.7.
	StrategyBiasedOdd StrategyKind = "biased_odd"
	// StrategyCounter picks the parity the current opponent has used least
	// often so far, ties broken toward even.
	StrategyCounter StrategyKind = "counter"
)

// StrategyKinds returns every built-in strategy kind.
func StrategyKinds() []StrategyKind {
	return []StrategyKind{
		StrategyRandom,
		StrategyAlwaysEven,
		StrategyAlwaysOdd,
		StrategyAlternating,
		StrategyBiasedEven,
		StrategyBiasedOdd,
		StrategyCounter,
	}
}

// ParseStrategyKind maps a configuration string to a strategy kind.
func ParseStrategyKind(name string) (StrategyKind, error) {
	for _, kind := range StrategyKinds() {
		if string(kind) == name {
			return kind, nil
		}
	}
	return "", fmt.Errorf("unknown strategy %q", name)
}

// biasedProbability is the chance the biased strategies pick their preferred
// parity.
const biasedProbability = 0.7

// StrategyOptions configures a Strategy instance.
type StrategyOptions struct {
	// Rand drives the randomized strategies. Defaults to the shared global
	// generator; supply a seeded source for reproducible runs.
	Rand *rand.Rand
}

// Strategy produces parity choices for one player. Safe for concurrent use;
// a player can be invited to several matches of the same round at once.
type Strategy struct {
	kind StrategyKind

	mu   sync.Mutex
	rng  *rand.Rand
	last protocol.Parity
}

// NewStrategy constructs a strategy of the given kind with optional overrides.
func NewStrategy(kind StrategyKind, optFns ...func(o *StrategyOptions)) *Strategy {
	opts := StrategyOptions{}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Strategy{kind: kind, rng: opts.Rand}
}

// Kind returns the strategy kind.
func (s *Strategy) Kind() StrategyKind { return s.kind }

// Choose commits a parity choice. opponentHistory holds the choices the
// current opponent has been observed making, oldest first.
func (s *Strategy) Choose(opponentHistory []protocol.Parity) protocol.Parity {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.kind {
	case StrategyAlwaysEven:
		return protocol.ParityEven
	case StrategyAlwaysOdd:
		return protocol.ParityOdd
	case StrategyAlternating:
		if s.last == "" || s.last == protocol.ParityOdd {
			s.last = protocol.ParityEven
		} else {
			s.last = protocol.ParityOdd
		}
		return s.last
	case StrategyBiasedEven:
		if s.float() < biasedProbability {
			return protocol.ParityEven
		}
		return protocol.ParityOdd
	case StrategyBiasedOdd:
		if s.float() < biasedProbability {
			return protocol.ParityOdd
		}
		return protocol.ParityEven
	case StrategyCounter:
		return counterChoice(opponentHistory)
	default:
		if s.float() < 0.5 {
			return protocol.ParityEven
		}
		return protocol.ParityOdd
	}
}

func (s *Strategy) float() float64 {
	if s.rng != nil {
		return s.rng.Float64()
	}
	return rand.Float64()
}

// counterChoice picks the parity the opponent has used least often, ties
// broken toward even.
func counterChoice(history []protocol.Parity) protocol.Parity {
	evens, odds := 0, 0
	for _, p := range history {
		if p == protocol.ParityEven {
			evens++
		} else {
			odds++
		}
	}
	if odds < evens {
		return protocol.ParityOdd
	}
	return protocol.ParityEven
}
