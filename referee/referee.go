package referee

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/leaguemesh/game"
	"github.com/hupe1980/leaguemesh/logging"
	"github.com/hupe1980/leaguemesh/match"
	"github.com/hupe1980/leaguemesh/protocol"
	"github.com/hupe1980/leaguemesh/schedule"
	"github.com/hupe1980/leaguemesh/transport"
)

// Default deadlines and concurrency for match driving.
const (
	DefaultJoinTimeout          = 5 * time.Second
	DefaultChoiceTimeout        = 30 * time.Second
	DefaultMaxConcurrentMatches = 3
)

// Options configures a Referee instance.
type Options struct {
	// Endpoint is the address other agents use to reach this referee. It is
	// announced at registration.
	Endpoint string

	// JoinTimeout bounds how long players get to acknowledge an invitation.
	JoinTimeout time.Duration

	// ChoiceTimeout bounds how long players get to commit a parity choice.
	ChoiceTimeout time.Duration

	// MaxConcurrentMatches bounds how many matches the referee drives at once.
	MaxConcurrentMatches int

	// Drawer produces the random number. Defaults to the shared generator;
	// supply a seeded one for reproducible runs.
	Drawer *game.Drawer

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// Referee drives matches end to end against the coordinator and the assigned
// players. Safe for concurrent use once registered.
type Referee struct {
	displayName string
	caller      transport.Caller
	coordinator string
	opts        Options
	drawer      *game.Drawer
	logger      logging.Logger

	mu      sync.Mutex
	agentID string
	token   string
}

// New creates a referee actor talking to the coordinator endpoint through the
// given caller.
func New(displayName string, caller transport.Caller, coordinatorEndpoint string, optFns ...func(o *Options)) *Referee {
	opts := Options{
		JoinTimeout:          DefaultJoinTimeout,
		ChoiceTimeout:        DefaultChoiceTimeout,
		MaxConcurrentMatches: DefaultMaxConcurrentMatches,
		Drawer:               game.NewDrawer(nil),
		Logger:               logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Referee{
		displayName: displayName,
		caller:      caller,
		coordinator: coordinatorEndpoint,
		opts:        opts,
		drawer:      opts.Drawer,
		logger:      opts.Logger,
	}
}

// AgentID returns the identity issued at registration, empty before.
func (r *Referee) AgentID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.agentID
}

func (r *Referee) identity() (string, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.agentID, r.token
}

// Register obtains an identity and auth token from the coordinator.
func (r *Referee) Register(ctx context.Context) error {
	req := protocol.RegisterRequest{
		Envelope: protocol.NewEnvelope(protocol.MsgRefereeRegisterRequest, protocol.AgentTypeReferee, "pending"),
		Meta: protocol.AgentMeta{
			DisplayName:          r.displayName,
			GameTypes:            []string{"even_odd"},
			ContactEndpoint:      r.opts.Endpoint,
			MaxConcurrentMatches: r.opts.MaxConcurrentMatches,
		},
	}

	raw, err := r.caller.Call(ctx, r.coordinator, protocol.MethodRegisterReferee, req)
	if err != nil {
		return fmt.Errorf("register referee: %w", err)
	}

	var resp protocol.RegisterResponse
	if err := transport.DecodeResult(raw, &resp); err != nil {
		return err
	}
	if resp.Status != protocol.StatusAccepted {
		return fmt.Errorf("registration rejected: %s", resp.Reason)
	}

	r.mu.Lock()
	r.agentID = resp.AgentID
	r.token = resp.AuthToken
	r.mu.Unlock()

	r.logger.Info("referee registered", "referee_id", resp.AgentID,
		"display_name", r.displayName, "token", logging.RedactToken(resp.AuthToken))
	return nil
}

// Assignments queries the schedule and returns the matches assigned to this
// referee in round order.
func (r *Referee) Assignments(ctx context.Context) ([]protocol.MatchInfo, error) {
	agentID, token := r.identity()

	env := protocol.NewEnvelope(protocol.MsgLeagueQuery, protocol.AgentTypeReferee, agentID)
	env.AuthToken = token
	raw, err := r.caller.Call(ctx, r.coordinator, protocol.MethodLeagueQuery,
		protocol.QueryRequest{Envelope: env, Query: protocol.QuerySchedule})
	if err != nil {
		return nil, fmt.Errorf("query schedule: %w", err)
	}

	var resp protocol.QueryResponse
	if err := transport.DecodeResult(raw, &resp); err != nil {
		return nil, err
	}

	var mine []protocol.MatchInfo
	for _, m := range resp.Schedule {
		if m.RefereeID == agentID {
			mine = append(mine, m)
		}
	}
	return mine, nil
}

// RunAssigned drives every match assigned to this referee, round by round.
// Matches within a round run concurrently, bounded by MaxConcurrentMatches.
// The first unrecoverable match failure is returned after the sweep finishes.
func (r *Referee) RunAssigned(ctx context.Context) error {
	assigned, err := r.Assignments(ctx)
	if err != nil {
		return err
	}

	rounds := make(map[int][]protocol.MatchInfo)
	var order []int
	for _, m := range assigned {
		if _, ok := rounds[m.RoundID]; !ok {
			order = append(order, m.RoundID)
		}
		rounds[m.RoundID] = append(rounds[m.RoundID], m)
	}

	sem := make(chan struct{}, r.opts.MaxConcurrentMatches)
	var firstErr error
	var errMu sync.Mutex

	for _, roundID := range order {
		var wg sync.WaitGroup
		for _, info := range rounds[roundID] {
			wg.Add(1)
			sem <- struct{}{}
			go func(info protocol.MatchInfo) {
				defer wg.Done()
				defer func() { <-sem }()
				if _, err := r.RunMatch(ctx, info); err != nil {
					errMu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					errMu.Unlock()
				}
			}(info)
		}
		wg.Wait()
	}
	return firstErr
}

// RunMatch drives one assigned match through its full lifecycle and returns
// the reported record.
func (r *Referee) RunMatch(ctx context.Context, info protocol.MatchInfo) (protocol.MatchRecord, error) {
	m := match.New(schedule.Match{
		MatchID:   info.MatchID,
		RoundID:   info.RoundID,
		PlayerAID: info.PlayerAID,
		PlayerBID: info.PlayerBID,
		RefereeID: info.RefereeID,
	})
	endpoints := map[string]string{
		info.PlayerAID: info.PlayerAEndpoint,
		info.PlayerBID: info.PlayerBEndpoint,
	}

	if err := m.Invite(); err != nil {
		return protocol.MatchRecord{}, err
	}
	r.logger.Info("match started", "match_id", m.ID(), "round_id", info.RoundID,
		"player_a", info.PlayerAID, "player_b", info.PlayerBID)

	joinErrs := r.invitePhase(ctx, m, endpoints)
	if len(joinErrs) == 2 {
		err := fmt.Errorf("both players failed to join %s: %v / %v",
			m.ID(), joinErrs[info.PlayerAID], joinErrs[info.PlayerBID])
		_ = m.Fail(err)
		r.logger.Error("match failed", "match_id", m.ID(), "error", err.Error())
		return protocol.MatchRecord{}, err
	}
	if len(joinErrs) == 1 {
		return r.forfeit(ctx, m, endpoints, soleKey(joinErrs), "did not acknowledge invitation in time")
	}

	choiceErrs := r.choicePhase(ctx, m, endpoints)
	if len(choiceErrs) == 2 {
		err := fmt.Errorf("both players failed to choose in %s: %v / %v",
			m.ID(), choiceErrs[info.PlayerAID], choiceErrs[info.PlayerBID])
		_ = m.Fail(err)
		r.logger.Error("match failed", "match_id", m.ID(), "error", err.Error())
		return protocol.MatchRecord{}, err
	}
	if len(choiceErrs) == 1 {
		return r.forfeit(ctx, m, endpoints, soleKey(choiceErrs), "did not commit a choice in time")
	}

	choices := m.Choices()
	number := r.drawer.Draw()
	result := game.Resolve(info.PlayerAID, info.PlayerBID,
		choices[info.PlayerAID], choices[info.PlayerBID], number)
	if err := m.Resolve(result); err != nil {
		return protocol.MatchRecord{}, err
	}
	r.logger.Info("match resolved", "match_id", m.ID(), "drawn_number", number,
		"status", string(result.Status), "winner_id", result.WinnerID)

	r.notify(ctx, m, endpoints, result)
	return r.report(ctx, m)
}

// invitePhase sends both invitations concurrently under the join deadline and
// returns the per-player failures.
func (r *Referee) invitePhase(ctx context.Context, m *match.Match, endpoints map[string]string) map[string]error {
	agentID, token := r.identity()
	desc := m.Descriptor()
	deadline := time.Now().UTC().Add(r.opts.JoinTimeout).Format(protocol.TimestampFormat)

	failures := make(map[string]error)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for playerID, opponentID := range pairings(desc.PlayerAID, desc.PlayerBID) {
		wg.Add(1)
		go func(playerID, opponentID string) {
			defer wg.Done()

			env := protocol.NewEnvelope(protocol.MsgGameInvitation, protocol.AgentTypeReferee, agentID)
			env.AuthToken = token
			env.RoundID = desc.RoundID
			env.MatchID = desc.MatchID
			inv := protocol.Invitation{
				Envelope:     env,
				GameType:     "even_odd",
				OpponentID:   opponentID,
				JoinDeadline: deadline,
			}

			raw, err := r.callWithDeadline(ctx, r.opts.JoinTimeout, endpoints[playerID], protocol.MethodGameInvitation, inv)
			if err == nil {
				var ack protocol.JoinAck
				if derr := transport.DecodeResult(raw, &ack); derr != nil {
					err = derr
				} else if !ack.Accepted {
					err = fmt.Errorf("player %s declined", playerID)
				}
			}
			if err == nil {
				err = m.Join(playerID)
			}
			if err != nil {
				mu.Lock()
				failures[playerID] = err
				mu.Unlock()
				r.logger.Warn("join failed", "match_id", desc.MatchID, "player_id", playerID, "error", err.Error())
			}
		}(playerID, opponentID)
	}
	wg.Wait()
	return failures
}

// choicePhase collects both parity choices concurrently under the choice
// deadline and returns the per-player failures.
func (r *Referee) choicePhase(ctx context.Context, m *match.Match, endpoints map[string]string) map[string]error {
	agentID, token := r.identity()
	desc := m.Descriptor()
	deadline := time.Now().UTC().Add(r.opts.ChoiceTimeout).Format(protocol.TimestampFormat)
	standings := r.standings(ctx)

	failures := make(map[string]error)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for playerID, opponentID := range pairings(desc.PlayerAID, desc.PlayerBID) {
		wg.Add(1)
		go func(playerID, opponentID string) {
			defer wg.Done()

			env := protocol.NewEnvelope(protocol.MsgChooseParityCall, protocol.AgentTypeReferee, agentID)
			env.AuthToken = token
			env.RoundID = desc.RoundID
			env.MatchID = desc.MatchID
			call := protocol.ParityCall{
				Envelope: env,
				Context: protocol.PlayerContext{
					OpponentID:    opponentID,
					RoundID:       desc.RoundID,
					YourStandings: standings[playerID],
				},
				Deadline: deadline,
			}

			raw, err := r.callWithDeadline(ctx, r.opts.ChoiceTimeout, endpoints[playerID], protocol.MethodChooseParity, call)
			if err == nil {
				var resp protocol.ParityResponse
				if derr := transport.DecodeResult(raw, &resp); derr != nil {
					err = derr
				} else {
					err = m.RecordChoice(playerID, resp.Choice)
				}
			}
			if err != nil {
				mu.Lock()
				failures[playerID] = err
				mu.Unlock()
				r.logger.Warn("choice failed", "match_id", desc.MatchID, "player_id", playerID, "error", err.Error())
			}
		}(playerID, opponentID)
	}
	wg.Wait()
	return failures
}

// standings fetches the current table, keyed per player as win/draw/loss
// counters. Best effort: an unreachable coordinator yields empty context.
func (r *Referee) standings(ctx context.Context) map[string]map[string]int {
	agentID, token := r.identity()
	env := protocol.NewEnvelope(protocol.MsgLeagueQuery, protocol.AgentTypeReferee, agentID)
	env.AuthToken = token

	raw, err := r.caller.Call(ctx, r.coordinator, protocol.MethodLeagueQuery,
		protocol.QueryRequest{Envelope: env, Query: protocol.QueryStandings})
	if err != nil {
		r.logger.Warn("standings query failed", "error", err.Error())
		return nil
	}
	var resp protocol.QueryResponse
	if err := transport.DecodeResult(raw, &resp); err != nil || resp.Standings == nil {
		return nil
	}

	out := make(map[string]map[string]int, len(resp.Standings.Standings))
	for _, row := range resp.Standings.Standings {
		out[row.PlayerID] = map[string]int{"wins": row.Wins, "draws": row.Draws, "losses": row.Losses}
	}
	return out
}

// forfeit assigns a technical loss against the offending player, notifies both
// and reports the result.
func (r *Referee) forfeit(ctx context.Context, m *match.Match, endpoints map[string]string, offender, cause string) (protocol.MatchRecord, error) {
	desc := m.Descriptor()
	winner := desc.PlayerAID
	if offender == desc.PlayerAID {
		winner = desc.PlayerBID
	}

	result := game.TechnicalLoss(winner, offender, fmt.Sprintf("%s %s", offender, cause))
	if err := m.Forfeit(result); err != nil {
		return protocol.MatchRecord{}, err
	}
	r.logger.Warn("match forfeited", "match_id", desc.MatchID, "offender", offender, "winner_id", winner)

	r.notify(ctx, m, endpoints, result)
	return r.report(ctx, m)
}

// notify delivers GAME_OVER to both players. Best effort: a player that cannot
// be reached already has its outcome in the coordinator's ledger.
func (r *Referee) notify(ctx context.Context, m *match.Match, endpoints map[string]string, result protocol.GameResult) {
	agentID, token := r.identity()
	desc := m.Descriptor()

	var wg sync.WaitGroup
	for _, playerID := range []string{desc.PlayerAID, desc.PlayerBID} {
		wg.Add(1)
		go func(playerID string) {
			defer wg.Done()

			env := protocol.NewEnvelope(protocol.MsgGameOver, protocol.AgentTypeReferee, agentID)
			env.AuthToken = token
			env.RoundID = desc.RoundID
			env.MatchID = desc.MatchID

			if _, err := r.callWithDeadline(ctx, r.opts.JoinTimeout, endpoints[playerID],
				protocol.MethodNotifyMatchResult, protocol.GameOver{Envelope: env, Result: result}); err != nil {
				r.logger.Warn("outcome notification failed", "match_id", desc.MatchID,
					"player_id", playerID, "error", err.Error())
			}
		}(playerID)
	}
	wg.Wait()
}

// report submits the terminal result to the coordinator exactly once. A
// duplicate rejection means the result is already in the ledger and counts as
// success.
func (r *Referee) report(ctx context.Context, m *match.Match) (protocol.MatchRecord, error) {
	agentID, token := r.identity()
	rec, err := m.Record()
	if err != nil {
		return protocol.MatchRecord{}, err
	}

	env := protocol.NewEnvelope(protocol.MsgMatchResultReport, protocol.AgentTypeReferee, agentID)
	env.AuthToken = token
	env.RoundID = rec.RoundID
	env.MatchID = rec.MatchID

	_, err = r.caller.Call(ctx, r.coordinator, protocol.MethodReportMatchResult,
		protocol.ReportRequest{Envelope: env, Result: rec})
	if err != nil {
		var rpcErr *protocol.RPCError
		if errors.As(err, &rpcErr) && rpcErr.Code == protocol.RPCCodeState {
			r.logger.Warn("result already in ledger", "match_id", rec.MatchID)
		} else {
			return protocol.MatchRecord{}, fmt.Errorf("report match %s: %w", rec.MatchID, err)
		}
	}

	if err := m.MarkReported(); err != nil {
		return protocol.MatchRecord{}, err
	}
	r.logger.Info("result reported", "match_id", rec.MatchID, "status", string(rec.Status))
	return rec, nil
}

// callWithDeadline bounds a call by the given deadline even when the carrier
// itself would block longer.
func (r *Referee) callWithDeadline(ctx context.Context, timeout time.Duration, endpoint, method string, params any) (json.RawMessage, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		raw json.RawMessage
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		raw, err := r.caller.Call(callCtx, endpoint, method, params)
		ch <- outcome{raw: raw, err: err}
	}()

	select {
	case out := <-ch:
		return out.raw, out.err
	case <-callCtx.Done():
		return nil, &transport.TransportError{Endpoint: endpoint, Err: callCtx.Err()}
	}
}

// pairings maps each player of a match to its opponent.
func pairings(a, b string) map[string]string {
	return map[string]string{a: b, b: a}
}

// soleKey returns the only key of a single-entry map.
func soleKey(m map[string]error) string {
	for k := range m {
		return k
	}
	return ""
}
