// Package leaguemesh provides a high-level façade over the coordinator,
// referee and player actors, enabling a complete league run inside one
// process. Most applications interact with this package by:
//  1. Creating a League via New() (optionally overriding store, logger and deadlines)
//  2. Adding players with a strategy and at least one referee
//  3. Calling Run() to play the full round-robin and collect the standings
//
// Actors communicate only through the protocol envelope over an in-process
// bus, so the semantics match a distributed deployment over HTTP. All defaults
// are safe for local development and testing; production deployments typically
// run each actor as its own process with a durable store behind the
// coordinator.
package leaguemesh

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/hupe1980/leaguemesh/config"
	"github.com/hupe1980/leaguemesh/game"
	"github.com/hupe1980/leaguemesh/league"
	"github.com/hupe1980/leaguemesh/logging"
	"github.com/hupe1980/leaguemesh/player"
	"github.com/hupe1980/leaguemesh/protocol"
	"github.com/hupe1980/leaguemesh/referee"
	"github.com/hupe1980/leaguemesh/store"
	"github.com/hupe1980/leaguemesh/transport"
)

// coordinatorEndpoint is the bus address of the coordinator actor.
const coordinatorEndpoint = "coordinator"

// Options configures the League instance.
type Options struct {
	// Store persists the coordinator's standings, result log and roster.
	// Defaults to an in-memory store.
	Store store.Store

	// JoinTimeout bounds invitation acknowledgment.
	JoinTimeout time.Duration

	// ChoiceTimeout bounds parity choice collection.
	ChoiceTimeout time.Duration

	// MaxConcurrentMatches bounds how many matches each referee drives at
	// once.
	MaxConcurrentMatches int

	// Seed makes the whole run reproducible: draws and randomized strategies
	// derive their generators from it. Zero keeps the shared generator.
	Seed int64

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// League is the high-level façade aggregating one coordinator and the actors
// playing under it.
type League struct {
	leagueID string
	opts     Options
	bus      *transport.Bus
	coord    *league.Coordinator

	players  []*player.Player
	referees []*referee.Referee
}

// New creates a League with optional overrides. Any unset service is
// initialized with an in-memory implementation.
func New(leagueID string, optFns ...func(o *Options)) *League {
	opts := Options{
		Store:                store.NewMemoryStore(),
		JoinTimeout:          referee.DefaultJoinTimeout,
		ChoiceTimeout:        referee.DefaultChoiceTimeout,
		MaxConcurrentMatches: referee.DefaultMaxConcurrentMatches,
		Logger:               logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	bus := transport.NewBus()
	coord := league.New(leagueID, func(o *league.Options) {
		o.Store = opts.Store
		o.Logger = opts.Logger
	})
	bus.Register(coordinatorEndpoint, league.NewHandler(coord))

	return &League{leagueID: leagueID, opts: opts, bus: bus, coord: coord}
}

// Coordinator exposes the underlying coordinator for queries and recovery.
func (l *League) Coordinator() *league.Coordinator { return l.coord }

// AddPlayer adds a player with the given strategy. Must be called before Run.
func (l *League) AddPlayer(name string, kind player.StrategyKind) *player.Player {
	endpoint := fmt.Sprintf("player-%d", len(l.players)+1)

	var strategyFns []func(o *player.StrategyOptions)
	if l.opts.Seed != 0 {
		seed := l.opts.Seed + int64(len(l.players)) + 1
		strategyFns = append(strategyFns, func(o *player.StrategyOptions) {
			o.Rand = rand.New(rand.NewSource(seed))
		})
	}

	p := player.New(name, func(o *player.Options) {
		o.Endpoint = endpoint
		o.Strategy = player.NewStrategy(kind, strategyFns...)
		o.Logger = l.opts.Logger
	})
	l.bus.Register(endpoint, p)
	l.players = append(l.players, p)
	return p
}

// AddReferee adds a referee. At least one is required before Run.
func (l *League) AddReferee(name string) *referee.Referee {
	endpoint := fmt.Sprintf("referee-%d", len(l.referees)+1)

	var drawer *game.Drawer
	if l.opts.Seed != 0 {
		drawer = game.NewDrawer(rand.New(rand.NewSource(l.opts.Seed - int64(len(l.referees)) - 1)))
	} else {
		drawer = game.NewDrawer(nil)
	}

	r := referee.New(name, l.bus, coordinatorEndpoint, func(o *referee.Options) {
		o.Endpoint = endpoint
		o.JoinTimeout = l.opts.JoinTimeout
		o.ChoiceTimeout = l.opts.ChoiceTimeout
		o.MaxConcurrentMatches = l.opts.MaxConcurrentMatches
		o.Drawer = drawer
		o.Logger = l.opts.Logger
	})
	l.referees = append(l.referees, r)
	return r
}

// Run registers every actor, freezes the schedule and plays all rounds to
// completion, returning the final standings.
func (l *League) Run(ctx context.Context) (protocol.StandingsSnapshot, error) {
	if len(l.referees) == 0 {
		return protocol.StandingsSnapshot{}, fmt.Errorf("league %s: no referees added", l.leagueID)
	}
	if len(l.players) < 2 {
		return protocol.StandingsSnapshot{}, fmt.Errorf("league %s: need at least 2 players, got %d", l.leagueID, len(l.players))
	}

	for _, r := range l.referees {
		if err := r.Register(ctx); err != nil {
			return protocol.StandingsSnapshot{}, err
		}
	}
	for _, p := range l.players {
		if err := p.Register(ctx, l.bus, coordinatorEndpoint); err != nil {
			return protocol.StandingsSnapshot{}, err
		}
	}

	if _, err := l.coord.CreateSchedule(); err != nil {
		return protocol.StandingsSnapshot{}, err
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	for _, r := range l.referees {
		wg.Add(1)
		go func(r *referee.Referee) {
			defer wg.Done()
			if err := r.RunAssigned(ctx); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(r)
	}
	wg.Wait()

	if firstErr != nil {
		return protocol.StandingsSnapshot{}, firstErr
	}
	if !l.coord.Completed() {
		return protocol.StandingsSnapshot{}, fmt.Errorf("league %s: not all matches reported", l.leagueID)
	}
	return l.coord.Standings(), nil
}

// FromDefinition builds a League from a declarative league file.
func FromDefinition(lf config.LeagueFile, optFns ...func(o *Options)) (*League, error) {
	l := New(lf.LeagueID, func(o *Options) {
		o.Seed = lf.Seed
		for _, fn := range optFns {
			fn(o)
		}
	})

	for _, spec := range lf.Players {
		kind := player.StrategyRandom
		if spec.Strategy != "" {
			parsed, err := player.ParseStrategyKind(spec.Strategy)
			if err != nil {
				return nil, fmt.Errorf("player %s: %w", spec.Name, err)
			}
			kind = parsed
		}
		l.AddPlayer(spec.Name, kind)
	}
	for _, spec := range lf.Referees {
		l.AddReferee(spec.Name)
	}
	return l, nil
}
