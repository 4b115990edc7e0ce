package league

import (
	"context"
	"errors"

	"github.com/hupe1980/leaguemesh/match"
	"github.com/hupe1980/leaguemesh/protocol"
	"github.com/hupe1980/leaguemesh/schedule"
	"github.com/hupe1980/leaguemesh/transport"
)

// Handler adapts the coordinator to the wire: it validates envelopes, enforces
// token possession on protected methods and dispatches to coordinator
// operations. Registration methods are the only unprotected calls.
type Handler struct {
	coord *Coordinator
}

// NewHandler wraps a coordinator.
func NewHandler(c *Coordinator) *Handler {
	return &Handler{coord: c}
}

var _ transport.Handler = (*Handler)(nil)

// Handle implements the transport handler contract.
func (h *Handler) Handle(ctx context.Context, req protocol.Request) protocol.Response {
	switch req.Method {
	case protocol.MethodRegisterReferee:
		return h.handleRegister(req, protocol.AgentTypeReferee)
	case protocol.MethodRegisterPlayer:
		return h.handleRegister(req, protocol.AgentTypePlayer)
	case protocol.MethodCreateSchedule:
		return h.handleCreateSchedule(req)
	case protocol.MethodReportMatchResult:
		return h.handleReport(req)
	case protocol.MethodLeagueQuery:
		return h.handleQuery(req)
	default:
		return transport.Fault(req.ID, protocol.RPCCodeMethod,
			protocol.NewProtocolError(protocol.CodeMissingField, "method", "unknown method "+req.Method), nil)
	}
}

// checkEnvelope validates the inbound envelope and conversation uniqueness.
func (h *Handler) checkEnvelope(env protocol.Envelope) error {
	if err := env.Validate(); err != nil {
		return err
	}
	// An exchange is identified by its opening sender and message type;
	// reusing a conversation id for an unrelated exchange is a violation.
	return h.coord.convs.Begin(env.ConversationID, env.Sender+"/"+env.MessageType)
}

// authorize enforces token possession for protected methods. The token must
// belong to the envelope's sender.
func (h *Handler) authorize(env protocol.Envelope) error {
	if env.AuthToken == "" {
		return protocol.NewAuthError(protocol.CodeAuthMissing, env.SenderID(), "auth token required")
	}
	if !h.coord.Authenticate(env.SenderID(), env.AuthToken) {
		return protocol.NewAuthError(protocol.CodeAuthInvalid, env.SenderID(), "auth token rejected")
	}
	return nil
}

func (h *Handler) fault(id int, err error) protocol.Response {
	var perr *protocol.ProtocolError
	var aerr *protocol.AuthError
	var serr *schedule.SchedulingError
	var sterr *match.StateError
	switch {
	case errors.As(err, &perr):
		return transport.Fault(id, protocol.RPCCodeProtocol, err, nil)
	case errors.As(err, &aerr):
		return transport.Fault(id, protocol.RPCCodeAuth, err, nil)
	case errors.As(err, &serr):
		return transport.Fault(id, protocol.RPCCodeScheduling, err, nil)
	case errors.As(err, &sterr):
		return transport.Fault(id, protocol.RPCCodeState, err, nil)
	default:
		return transport.Fault(id, protocol.RPCCodeInternal, err, nil)
	}
}

func (h *Handler) handleRegister(req protocol.Request, agentType protocol.AgentType) protocol.Response {
	var reg protocol.RegisterRequest
	if err := transport.DecodeParams(req, &reg); err != nil {
		return h.fault(req.ID, err)
	}
	if err := h.checkEnvelope(reg.Envelope); err != nil {
		return h.fault(req.ID, err)
	}

	respType := protocol.MsgLeagueRegisterResponse
	register := h.coord.RegisterPlayer
	if agentType == protocol.AgentTypeReferee {
		respType = protocol.MsgRefereeRegisterResponse
		register = h.coord.RegisterReferee
	}

	env := reg.Reply(respType, protocol.AgentTypeCoordinator, h.coord.leagueID)
	env.LeagueID = h.coord.leagueID

	id, err := register(reg.Meta)
	if err != nil {
		var serr *schedule.SchedulingError
		if errors.As(err, &serr) {
			// Late registration is answered, not faulted, so the agent can
			// tell rejection from delivery failure.
			return transport.Result(req.ID, protocol.RegisterResponse{
				Envelope: env,
				Status:   protocol.StatusRejected,
				Reason:   serr.Reason,
			})
		}
		return h.fault(req.ID, err)
	}

	return transport.Result(req.ID, protocol.RegisterResponse{
		Envelope:  env,
		Status:    protocol.StatusAccepted,
		AgentID:   id.AgentID,
		AuthToken: id.AuthToken,
	})
}

func (h *Handler) handleCreateSchedule(req protocol.Request) protocol.Response {
	var csr protocol.CreateScheduleRequest
	if err := transport.DecodeParams(req, &csr); err != nil {
		return h.fault(req.ID, err)
	}
	if err := h.checkEnvelope(csr.Envelope); err != nil {
		return h.fault(req.ID, err)
	}

	sched, err := h.coord.CreateSchedule()
	if err != nil {
		return h.fault(req.ID, err)
	}

	env := csr.Reply(protocol.MsgScheduleResponse, protocol.AgentTypeCoordinator, h.coord.leagueID)
	env.LeagueID = h.coord.leagueID
	return transport.Result(req.ID, protocol.CreateScheduleResponse{
		Envelope:     env,
		Status:       protocol.StatusAccepted,
		TotalRounds:  len(sched.Rounds),
		TotalMatches: sched.TotalMatches(),
		Matches:      h.scheduleWire(sched),
	})
}

func (h *Handler) handleReport(req protocol.Request) protocol.Response {
	var report protocol.ReportRequest
	if err := transport.DecodeParams(req, &report); err != nil {
		return h.fault(req.ID, err)
	}
	if err := h.checkEnvelope(report.Envelope); err != nil {
		return h.fault(req.ID, err)
	}
	if err := h.authorize(report.Envelope); err != nil {
		return h.fault(req.ID, err)
	}
	senderType, senderID, err := protocol.ParseSender(report.Sender)
	if err != nil {
		return h.fault(req.ID, err)
	}
	if senderType != protocol.AgentTypeReferee {
		return h.fault(req.ID, protocol.NewAuthError(protocol.CodeRefereeUnknown, senderID, "only referees report results"))
	}

	if err := h.coord.ReportMatchResult(senderID, report.Result); err != nil {
		return h.fault(req.ID, err)
	}

	env := report.Reply(protocol.MsgMatchResultAck, protocol.AgentTypeCoordinator, h.coord.leagueID)
	env.LeagueID = h.coord.leagueID
	return transport.Result(req.ID, protocol.ReportResponse{Envelope: env, Status: protocol.StatusAccepted})
}

func (h *Handler) handleQuery(req protocol.Request) protocol.Response {
	var query protocol.QueryRequest
	if err := transport.DecodeParams(req, &query); err != nil {
		return h.fault(req.ID, err)
	}
	if err := h.checkEnvelope(query.Envelope); err != nil {
		return h.fault(req.ID, err)
	}
	if err := h.authorize(query.Envelope); err != nil {
		return h.fault(req.ID, err)
	}

	env := query.Reply(protocol.MsgLeagueQueryResponse, protocol.AgentTypeCoordinator, h.coord.leagueID)
	env.LeagueID = h.coord.leagueID
	resp := protocol.QueryResponse{Envelope: env}

	switch query.Query {
	case protocol.QuerySchedule:
		if sched, ok := h.coord.Schedule(); ok {
			resp.Schedule = h.scheduleWire(sched)
		}
	case protocol.QueryStandings, "":
		snap := h.coord.Standings()
		resp.Standings = &snap
	default:
		return h.fault(req.ID, protocol.NewProtocolError(protocol.CodeMissingField, "query", "unknown query "+query.Query))
	}
	return transport.Result(req.ID, resp)
}

// scheduleWire converts the schedule to wire form, resolving player endpoints
// so the assigned referee can contact both players.
func (h *Handler) scheduleWire(sched schedule.Schedule) []protocol.MatchInfo {
	out := make([]protocol.MatchInfo, 0, sched.TotalMatches())
	for _, m := range sched.Matches() {
		info := protocol.MatchInfo{
			MatchID:   m.MatchID,
			RoundID:   m.RoundID,
			GameType:  "even_odd",
			PlayerAID: m.PlayerAID,
			PlayerBID: m.PlayerBID,
			RefereeID: m.RefereeID,
		}
		if id, ok := h.coord.Registry().Get(m.PlayerAID); ok {
			info.PlayerAEndpoint = id.Endpoint
		}
		if id, ok := h.coord.Registry().Get(m.PlayerBID); ok {
			info.PlayerBEndpoint = id.Endpoint
		}
		out = append(out, info)
	}
	return out
}
