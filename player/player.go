package player

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/leaguemesh/logging"
	"github.com/hupe1980/leaguemesh/protocol"
	"github.com/hupe1980/leaguemesh/transport"
)

// Options configures a Player instance.
type Options struct {
	// Strategy produces parity choices. Defaults to the random strategy.
	Strategy *Strategy

	// Endpoint is the address other agents use to reach this player. It is
	// announced at registration.
	Endpoint string

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// Player is the player actor. It holds no league state beyond its own
// identity, joined matches and the opponent behavior it has observed.
type Player struct {
	displayName string
	endpoint    string
	strategy    *Strategy
	logger      logging.Logger

	mu       sync.Mutex
	agentID  string
	token    string
	matches  map[string]string            // match_id -> opponent id
	observed map[string][]protocol.Parity // opponent id -> their choices, oldest first
}

// New creates a player actor with optional overrides.
func New(displayName string, optFns ...func(o *Options)) *Player {
	opts := Options{
		Strategy: NewStrategy(StrategyRandom),
		Logger:   logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Player{
		displayName: displayName,
		endpoint:    opts.Endpoint,
		strategy:    opts.Strategy,
		logger:      opts.Logger,
		matches:     make(map[string]string),
		observed:    make(map[string][]protocol.Parity),
	}
}

// SetEndpoint updates the announced endpoint. Must be called before Register;
// useful when the listen address is only known after binding.
func (p *Player) SetEndpoint(endpoint string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.endpoint = endpoint
}

// AgentID returns the identity issued at registration, empty before.
func (p *Player) AgentID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.agentID
}

// Strategy returns the player's choice strategy.
func (p *Player) Strategy() *Strategy { return p.strategy }

func (p *Player) senderID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.agentID == "" {
		return "pending"
	}
	return p.agentID
}

// Register obtains an identity and auth token from the coordinator. It must
// complete before the schedule is generated.
func (p *Player) Register(ctx context.Context, caller transport.Caller, coordinatorEndpoint string) error {
	p.mu.Lock()
	endpoint := p.endpoint
	p.mu.Unlock()

	req := protocol.RegisterRequest{
		Envelope: protocol.NewEnvelope(protocol.MsgLeagueRegisterRequest, protocol.AgentTypePlayer, p.senderID()),
		Meta: protocol.AgentMeta{
			DisplayName:     p.displayName,
			GameTypes:       []string{"even_odd"},
			ContactEndpoint: endpoint,
		},
	}

	raw, err := caller.Call(ctx, coordinatorEndpoint, protocol.MethodRegisterPlayer, req)
	if err != nil {
		return fmt.Errorf("register player: %w", err)
	}

	var resp protocol.RegisterResponse
	if err := transport.DecodeResult(raw, &resp); err != nil {
		return err
	}
	if resp.Status != protocol.StatusAccepted {
		return fmt.Errorf("registration rejected: %s", resp.Reason)
	}

	p.mu.Lock()
	p.agentID = resp.AgentID
	p.token = resp.AuthToken
	p.mu.Unlock()

	p.logger.Info("player registered", "player_id", resp.AgentID,
		"display_name", p.displayName, "token", logging.RedactToken(resp.AuthToken))
	return nil
}

// Handle implements the transport handler contract for referee-originated
// calls: invitations, parity requests and outcome notifications.
func (p *Player) Handle(ctx context.Context, req protocol.Request) protocol.Response {
	switch req.Method {
	case protocol.MethodGameInvitation:
		return p.handleInvitation(req)
	case protocol.MethodChooseParity:
		return p.handleChooseParity(req)
	case protocol.MethodNotifyMatchResult:
		return p.handleNotify(req)
	default:
		return transport.Fault(req.ID, protocol.RPCCodeMethod,
			protocol.NewProtocolError(protocol.CodeMissingField, "method", "unknown method "+req.Method), nil)
	}
}

// checkEnvelope validates the envelope and requires a referee sender; only
// referees drive matches.
func (p *Player) checkEnvelope(env protocol.Envelope) error {
	if err := env.Validate(); err != nil {
		return err
	}
	senderType, senderID, err := protocol.ParseSender(env.Sender)
	if err != nil {
		return err
	}
	if senderType != protocol.AgentTypeReferee {
		return protocol.NewAuthError(protocol.CodeRefereeUnknown, senderID, "only referees may drive matches")
	}
	return nil
}

func (p *Player) fault(id int, err error) protocol.Response {
	if _, ok := err.(*protocol.AuthError); ok {
		return transport.Fault(id, protocol.RPCCodeAuth, err, nil)
	}
	return transport.Fault(id, protocol.RPCCodeProtocol, err, nil)
}

func (p *Player) handleInvitation(req protocol.Request) protocol.Response {
	var inv protocol.Invitation
	if err := transport.DecodeParams(req, &inv); err != nil {
		return p.fault(req.ID, err)
	}
	if err := p.checkEnvelope(inv.Envelope); err != nil {
		return p.fault(req.ID, err)
	}
	if inv.MatchID == "" {
		return p.fault(req.ID, protocol.NewProtocolError(protocol.CodeMissingField, "match_id", "missing"))
	}

	p.mu.Lock()
	p.matches[inv.MatchID] = inv.OpponentID
	agentID := p.agentID
	p.mu.Unlock()

	p.logger.Info("invitation accepted", "player_id", agentID,
		"match_id", inv.MatchID, "opponent_id", inv.OpponentID)

	return transport.Result(req.ID, protocol.JoinAck{
		Envelope: inv.Reply(protocol.MsgGameJoinAck, protocol.AgentTypePlayer, agentID),
		Accepted: true,
	})
}

func (p *Player) handleChooseParity(req protocol.Request) protocol.Response {
	var call protocol.ParityCall
	if err := transport.DecodeParams(req, &call); err != nil {
		return p.fault(req.ID, err)
	}
	if err := p.checkEnvelope(call.Envelope); err != nil {
		return p.fault(req.ID, err)
	}

	opponentID := call.Context.OpponentID
	p.mu.Lock()
	if opponentID == "" {
		opponentID = p.matches[call.MatchID]
	}
	history := append([]protocol.Parity(nil), p.observed[opponentID]...)
	agentID := p.agentID
	p.mu.Unlock()

	choice := p.strategy.Choose(history)
	p.logger.Info("parity chosen", "player_id", agentID, "match_id", call.MatchID,
		"opponent_id", opponentID, "choice", string(choice))

	return transport.Result(req.ID, protocol.ParityResponse{
		Envelope: call.Reply(protocol.MsgChooseParityResponse, protocol.AgentTypePlayer, agentID),
		Choice:   choice,
	})
}

// handleNotify folds the opponent's revealed choice into the observation log
// so adaptive strategies can use it in later rounds.
func (p *Player) handleNotify(req protocol.Request) protocol.Response {
	var over protocol.GameOver
	if err := transport.DecodeParams(req, &over); err != nil {
		return p.fault(req.ID, err)
	}
	if err := p.checkEnvelope(over.Envelope); err != nil {
		return p.fault(req.ID, err)
	}

	p.mu.Lock()
	agentID := p.agentID
	if opponentID, ok := p.matches[over.MatchID]; ok {
		if choice, revealed := over.Result.Choices[opponentID]; revealed {
			p.observed[opponentID] = append(p.observed[opponentID], choice)
		}
		delete(p.matches, over.MatchID)
	}
	p.mu.Unlock()

	p.logger.Info("match outcome received", "player_id", agentID,
		"match_id", over.MatchID, "status", string(over.Result.Status), "winner_id", over.Result.WinnerID)

	return transport.Result(req.ID, protocol.Ack{
		Envelope: over.Reply(protocol.MsgGameOverAck, protocol.AgentTypePlayer, agentID),
		Status:   "OK",
	})
}

// Observed returns the choices seen from one opponent, oldest first.
func (p *Player) Observed(opponentID string) []protocol.Parity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]protocol.Parity(nil), p.observed[opponentID]...)
}

var _ transport.Handler = (*Player)(nil)
