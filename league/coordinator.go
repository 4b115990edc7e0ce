package league

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/leaguemesh/auth"
	"github.com/hupe1980/leaguemesh/logging"
	"github.com/hupe1980/leaguemesh/match"
	"github.com/hupe1980/leaguemesh/protocol"
	"github.com/hupe1980/leaguemesh/schedule"
	"github.com/hupe1980/leaguemesh/store"
)

// SnapshotSchemaVersion tags persisted standings documents.
const SnapshotSchemaVersion = "1.0.0"

// Options configures a Coordinator instance.
type Options struct {
	// Store persists standings snapshots, the accepted-result log and the
	// frozen roster. Defaults to an in-memory store.
	Store store.Store

	// Registry issues and validates agent identities. Defaults to a fresh
	// registry; supply one to share identities with an embedding process.
	Registry *auth.Registry

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// Coordinator owns the roster, schedule and standings ledger for one league
// run. All mutation happens through its serialized methods; other actors reach
// it only through the protocol envelope.
type Coordinator struct {
	leagueID string
	registry *auth.Registry
	store    store.Store
	logger   logging.Logger
	convs    *protocol.ConversationTracker

	mu           sync.Mutex
	roster       []string // player ids in registration order, frozen at schedule creation
	displayNames map[string]string
	sched        *schedule.Schedule
	results      []protocol.MatchRecord // accepted results in submission order
	reported     map[string]bool        // match_id -> accepted
}

// New creates a coordinator for the given league run with optional overrides.
func New(leagueID string, optFns ...func(o *Options)) *Coordinator {
	opts := Options{
		Store:    store.NewMemoryStore(),
		Registry: auth.NewRegistry(),
		Logger:   logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Coordinator{
		leagueID:     leagueID,
		registry:     opts.Registry,
		store:        opts.Store,
		logger:       opts.Logger,
		convs:        protocol.NewConversationTracker(),
		displayNames: make(map[string]string),
		reported:     make(map[string]bool),
	}
}

// LeagueID returns the league run identifier.
func (c *Coordinator) LeagueID() string { return c.leagueID }

// Registry exposes the identity registry for embedding processes.
func (c *Coordinator) Registry() *auth.Registry { return c.registry }

// Authenticate reports whether the token belongs to the given agent. Used by
// every protected method before business logic runs.
func (c *Coordinator) Authenticate(agentID, token string) bool {
	return c.registry.Authenticate(agentID, token)
}

// RegisterReferee issues a referee identity. Registration closes once the
// schedule is generated.
func (c *Coordinator) RegisterReferee(meta protocol.AgentMeta) (auth.Identity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sched != nil {
		return auth.Identity{}, schedule.NewSchedulingError("registration closed: schedule already generated")
	}
	id, err := c.registry.Register(protocol.AgentTypeReferee, meta.DisplayName, meta.ContactEndpoint)
	if err != nil {
		return auth.Identity{}, err
	}
	c.logger.Info("referee registered", "referee_id", id.AgentID, "display_name", id.DisplayName)
	return id, nil
}

// RegisterPlayer issues a player identity and a zeroed standings row. Late
// registration after schedule generation is rejected with a scheduling error.
func (c *Coordinator) RegisterPlayer(meta protocol.AgentMeta) (auth.Identity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sched != nil {
		return auth.Identity{}, schedule.NewSchedulingError("registration closed: schedule already generated")
	}
	id, err := c.registry.Register(protocol.AgentTypePlayer, meta.DisplayName, meta.ContactEndpoint)
	if err != nil {
		return auth.Identity{}, err
	}
	c.roster = append(c.roster, id.AgentID)
	c.displayNames[id.AgentID] = id.DisplayName
	c.logger.Info("player registered", "player_id", id.AgentID, "display_name", id.DisplayName)
	return id, nil
}

// CreateSchedule freezes the roster and generates the round-robin schedule,
// assigning matches to registered referees round-robin. Fails if called twice
// for the same league run, with fewer than 2 players or without a referee.
func (c *Coordinator) CreateSchedule() (schedule.Schedule, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sched != nil {
		return schedule.Schedule{}, schedule.NewSchedulingError("schedule already generated for league %s", c.leagueID)
	}
	refIDs := c.registry.AgentIDs(protocol.AgentTypeReferee)
	if len(refIDs) == 0 {
		return schedule.Schedule{}, schedule.NewSchedulingError("no referees registered")
	}

	sched, err := schedule.GenerateRoundRobin(c.roster)
	if err != nil {
		return schedule.Schedule{}, err
	}
	assignReferees(&sched, refIDs)

	if err := c.store.SaveRoster(c.leagueID, c.roster); err != nil {
		return schedule.Schedule{}, fmt.Errorf("persist roster: %w", err)
	}
	c.sched = &sched

	if err := c.persistStandingsLocked(); err != nil {
		return schedule.Schedule{}, err
	}
	c.logger.Info("schedule generated", "league_id", c.leagueID,
		"players", len(c.roster), "rounds", len(sched.Rounds), "matches", sched.TotalMatches())
	return sched, nil
}

// assignReferees distributes matches across referees round-robin, keeping the
// assignment deterministic for a fixed registration order.
func assignReferees(sched *schedule.Schedule, refIDs []string) {
	i := 0
	for r := range sched.Rounds {
		for m := range sched.Rounds[r].Matches {
			sched.Rounds[r].Matches[m].RefereeID = refIDs[i%len(refIDs)]
			i++
		}
	}
}

// Schedule returns the generated schedule, if any.
func (c *Coordinator) Schedule() (schedule.Schedule, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sched == nil {
		return schedule.Schedule{}, false
	}
	return *c.sched, true
}

// ReportMatchResult validates and folds a terminal result into the standings
// ledger: the record is appended to the durable log, the table is recomputed
// by full replay and the snapshot is persisted atomically. Idempotent by
// match_id — a duplicate report is rejected with a state error and does not
// alter standings.
func (c *Coordinator) ReportMatchResult(refereeID string, rec protocol.MatchRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sched == nil {
		return &match.StateError{MatchID: rec.MatchID, Msg: "no schedule generated"}
	}
	desc, ok := c.sched.Lookup(rec.MatchID)
	if !ok {
		return &match.StateError{MatchID: rec.MatchID, Msg: "unknown match"}
	}
	if desc.RefereeID != refereeID {
		return &match.StateError{MatchID: rec.MatchID,
			Msg: fmt.Sprintf("referee %s does not own this match (owner %s)", refereeID, desc.RefereeID)}
	}
	if c.reported[rec.MatchID] {
		return &match.StateError{MatchID: rec.MatchID, From: match.StateReported, Msg: "duplicate report"}
	}
	if rec.PlayerAID != desc.PlayerAID || rec.PlayerBID != desc.PlayerBID {
		return &match.StateError{MatchID: rec.MatchID, Msg: "players do not match schedule"}
	}
	switch rec.Status {
	case protocol.GameDraw:
		if rec.WinnerID != "" {
			return &match.StateError{MatchID: rec.MatchID, Msg: "draw with winner"}
		}
	case protocol.GameWin, protocol.GameTechnicalLoss:
		if rec.WinnerID != desc.PlayerAID && rec.WinnerID != desc.PlayerBID {
			return &match.StateError{MatchID: rec.MatchID, Msg: "winner not assigned to match"}
		}
	default:
		return &match.StateError{MatchID: rec.MatchID, Msg: fmt.Sprintf("invalid status %q", rec.Status)}
	}

	// Durably commit the record before it becomes visible; replaying the log
	// after a crash reproduces the same ledger.
	if err := c.store.AppendResult(c.leagueID, rec); err != nil {
		return fmt.Errorf("persist result: %w", err)
	}
	c.results = append(c.results, rec)
	c.reported[rec.MatchID] = true

	if err := c.persistStandingsLocked(); err != nil {
		return err
	}
	c.logger.Info("result accepted", "match_id", rec.MatchID, "status", string(rec.Status), "winner_id", rec.WinnerID)
	return nil
}

func (c *Coordinator) persistStandingsLocked() error {
	snap := c.snapshotLocked()
	if err := c.store.SaveStandings(c.leagueID, snap); err != nil {
		return fmt.Errorf("persist standings: %w", err)
	}
	return nil
}

func (c *Coordinator) snapshotLocked() protocol.StandingsSnapshot {
	return protocol.StandingsSnapshot{
		SchemaVersion:   SnapshotSchemaVersion,
		LeagueID:        c.leagueID,
		LastUpdated:     protocol.UTCTimestamp(),
		RoundsCompleted: c.roundsCompletedLocked(),
		Standings:       ComputeStandings(c.roster, c.displayNames, c.results),
	}
}

func (c *Coordinator) roundsCompletedLocked() int {
	if c.sched == nil {
		return 0
	}
	completed := 0
	for _, round := range c.sched.Rounds {
		done := true
		for _, m := range round.Matches {
			if !c.reported[m.MatchID] {
				done = false
				break
			}
		}
		if done {
			completed++
		}
	}
	return completed
}

// Standings returns the current standings snapshot. Read-only and safe to
// call concurrently with any other operation.
func (c *Coordinator) Standings() protocol.StandingsSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Completed reports whether every scheduled match has been reported.
func (c *Coordinator) Completed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sched != nil && len(c.reported) == c.sched.TotalMatches()
}

// PlayerStats returns the win/draw/loss counters for one player, for
// inclusion in parity call context.
func (c *Coordinator) PlayerStats(playerID string) map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, row := range ComputeStandings(c.roster, c.displayNames, c.results) {
		if row.PlayerID == playerID {
			return map[string]int{"wins": row.Wins, "draws": row.Draws, "losses": row.Losses}
		}
	}
	return map[string]int{"wins": 0, "draws": 0, "losses": 0}
}

// Recover rebuilds coordinator state from the durable store after a crash:
// the frozen roster regenerates the identical schedule (generation is
// deterministic) and the accepted-result log is replayed into the ledger.
// A league that never froze its roster recovers to an empty run.
func (c *Coordinator) Recover() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	roster, err := c.store.LoadRoster(c.leagueID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load roster: %w", err)
	}
	c.roster = roster

	sched, err := schedule.GenerateRoundRobin(roster)
	if err != nil {
		return fmt.Errorf("regenerate schedule: %w", err)
	}
	if refIDs := c.registry.AgentIDs(protocol.AgentTypeReferee); len(refIDs) > 0 {
		assignReferees(&sched, refIDs)
	}
	c.sched = &sched

	results, err := c.store.LoadResults(c.leagueID)
	if err != nil {
		return fmt.Errorf("load results: %w", err)
	}
	c.results = results
	c.reported = make(map[string]bool, len(results))
	for _, rec := range results {
		c.reported[rec.MatchID] = true
	}
	c.logger.Info("state recovered", "league_id", c.leagueID, "players", len(roster), "results", len(results))
	return nil
}
