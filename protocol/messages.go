package protocol

import "encoding/json"

// Method names for every call in the league protocol (caller -> callee noted
// in each payload's documentation).
const (
	MethodRegisterReferee   = "register_referee"
	MethodRegisterPlayer    = "register_player"
	MethodCreateSchedule    = "create_schedule"
	MethodReportMatchResult = "report_match_result"
	MethodLeagueQuery       = "league_query"
	MethodGameInvitation    = "game_invitation"
	MethodChooseParity      = "choose_parity"
	MethodNotifyMatchResult = "notify_match_result"
)

// Message type constants carried in the envelope. Request/response pairs share
// a conversation identifier.
const (
	MsgRefereeRegisterRequest  = "REFEREE_REGISTER_REQUEST"
	MsgRefereeRegisterResponse = "REFEREE_REGISTER_RESPONSE"
	MsgLeagueRegisterRequest   = "LEAGUE_REGISTER_REQUEST"
	MsgLeagueRegisterResponse  = "LEAGUE_REGISTER_RESPONSE"
	MsgScheduleRequest         = "SCHEDULE_REQUEST"
	MsgScheduleResponse        = "SCHEDULE_RESPONSE"
	MsgGameInvitation          = "GAME_INVITATION"
	MsgGameJoinAck             = "GAME_JOIN_ACK"
	MsgChooseParityCall        = "CHOOSE_PARITY_CALL"
	MsgChooseParityResponse    = "CHOOSE_PARITY_RESPONSE"
	MsgGameOver                = "GAME_OVER"
	MsgGameOverAck             = "GAME_OVER_ACK"
	MsgMatchResultReport       = "MATCH_RESULT_REPORT"
	MsgMatchResultAck          = "MATCH_RESULT_ACK"
	MsgLeagueQuery             = "LEAGUE_QUERY"
	MsgLeagueQueryResponse     = "LEAGUE_QUERY_RESPONSE"
	MsgLeagueError             = "LEAGUE_ERROR"
	MsgGameError               = "GAME_ERROR"
)

// Registration status values.
const (
	StatusAccepted = "ACCEPTED"
	StatusRejected = "REJECTED"
)

// Parity is the even/odd choice a player commits to before the random draw.
type Parity string

const (
	// ParityEven is the "even" choice.
	ParityEven Parity = "even"
	// ParityOdd is the "odd" choice.
	ParityOdd Parity = "odd"
)

// Valid reports whether the parity value is one of the two legal choices.
func (p Parity) Valid() bool { return p == ParityEven || p == ParityOdd }

// Opposite returns the other parity.
func (p Parity) Opposite() Parity {
	if p == ParityEven {
		return ParityOdd
	}
	return ParityEven
}

// GameStatus classifies a terminal match outcome.
type GameStatus string

const (
	// GameWin indicates one player won through normal rule resolution.
	GameWin GameStatus = "WIN"
	// GameDraw indicates identical choices; both players score a draw.
	GameDraw GameStatus = "DRAW"
	// GameTechnicalLoss indicates a deadline forfeiture by one player.
	GameTechnicalLoss GameStatus = "TECHNICAL_LOSS"
)

// AgentMeta carries registration metadata for a referee or player.
// MaxConcurrentMatches is only meaningful for referees.
type AgentMeta struct {
	DisplayName          string   `json:"display_name"`
	Version              string   `json:"version,omitempty"`
	GameTypes            []string `json:"game_types,omitempty"`
	ContactEndpoint      string   `json:"contact_endpoint,omitempty"`
	MaxConcurrentMatches int      `json:"max_concurrent_matches,omitempty"`
}

// RegisterRequest (agent -> coordinator) asks for an agent_id and auth token.
type RegisterRequest struct {
	Envelope
	Meta AgentMeta `json:"meta"`
}

// RegisterResponse (coordinator -> agent) carries the issued identity, or a
// rejection with reason.
type RegisterResponse struct {
	Envelope
	Status    string `json:"status"`
	AgentID   string `json:"agent_id,omitempty"`
	AuthToken string `json:"auth_token,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// MatchInfo is the wire form of a scheduled match descriptor. Player endpoints
// are included so the assigned referee can reach both players directly.
type MatchInfo struct {
	MatchID         string `json:"match_id"`
	RoundID         int    `json:"round_id"`
	GameType        string `json:"game_type"`
	PlayerAID       string `json:"player_a_id"`
	PlayerBID       string `json:"player_b_id"`
	RefereeID       string `json:"referee_id,omitempty"`
	PlayerAEndpoint string `json:"player_a_endpoint,omitempty"`
	PlayerBEndpoint string `json:"player_b_endpoint,omitempty"`
}

// CreateScheduleRequest (operator -> coordinator) freezes the roster and
// generates the round-robin schedule.
type CreateScheduleRequest struct {
	Envelope
}

// CreateScheduleResponse (coordinator -> operator) summarizes the generated
// schedule.
type CreateScheduleResponse struct {
	Envelope
	Status       string      `json:"status"`
	TotalRounds  int         `json:"total_rounds"`
	TotalMatches int         `json:"total_matches"`
	Matches      []MatchInfo `json:"matches,omitempty"`
	Reason       string      `json:"reason,omitempty"`
}

// Invitation (referee -> player) starts a match and begins the join deadline.
type Invitation struct {
	Envelope
	GameType     string `json:"game_type"`
	OpponentID   string `json:"opponent_id"`
	JoinDeadline string `json:"join_deadline"`
}

// JoinAck (player -> referee) acknowledges an invitation within the join
// deadline. Correlated by the invitation's conversation identifier.
type JoinAck struct {
	Envelope
	Accepted bool `json:"accepted"`
}

// PlayerContext is provided to a player with each parity request so strategies
// can consult match context.
type PlayerContext struct {
	OpponentID    string         `json:"opponent_id"`
	RoundID       int            `json:"round_id"`
	YourStandings map[string]int `json:"your_standings,omitempty"`
}

// ParityCall (referee -> player) requests a parity choice under a deadline.
type ParityCall struct {
	Envelope
	Context  PlayerContext `json:"context"`
	Deadline string        `json:"deadline"`
}

// ParityResponse (player -> referee) commits the player's choice.
type ParityResponse struct {
	Envelope
	Choice Parity `json:"choice"`
}

// GameResult describes a resolved game for notification and reporting.
type GameResult struct {
	Status       GameStatus        `json:"status"`
	WinnerID     string            `json:"winner_id,omitempty"`
	DrawnNumber  int               `json:"drawn_number,omitempty"`
	NumberParity Parity            `json:"number_parity,omitempty"`
	Choices      map[string]Parity `json:"choices,omitempty"`
	Score        map[string]int    `json:"score"`
	Reason       string            `json:"reason,omitempty"`
}

// GameOver (referee -> player) delivers the terminal outcome of a match.
type GameOver struct {
	Envelope
	Result GameResult `json:"result"`
}

// Ack is a minimal acknowledgment payload for notifications.
type Ack struct {
	Envelope
	Status string `json:"status"`
}

// MatchRecord is the durable record of one terminal, reported match result.
type MatchRecord struct {
	MatchID     string            `json:"match_id"`
	RoundID     int               `json:"round_id"`
	PlayerAID   string            `json:"player_a_id"`
	PlayerBID   string            `json:"player_b_id"`
	Status      GameStatus        `json:"status"`
	WinnerID    string            `json:"winner_id,omitempty"`
	DrawnNumber int               `json:"drawn_number,omitempty"`
	Choices     map[string]Parity `json:"choices,omitempty"`
	Reason      string            `json:"reason,omitempty"`
	Timestamp   string            `json:"timestamp"`
}

// ReportRequest (referee -> coordinator) submits a terminal match result.
// Idempotent by match_id: a duplicate report is rejected without altering
// standings.
type ReportRequest struct {
	Envelope
	Result MatchRecord `json:"result"`
}

// ReportResponse (coordinator -> referee) acknowledges or rejects a report.
type ReportResponse struct {
	Envelope
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Query kinds accepted by league_query.
const (
	QueryStandings = "standings"
	QuerySchedule  = "schedule"
)

// QueryRequest (any -> coordinator) reads the current standings or schedule
// snapshot. Never mutates state.
type QueryRequest struct {
	Envelope
	Query string `json:"query"`
}

// StandingRow is one ranked entry in a standings snapshot.
type StandingRow struct {
	Rank        int    `json:"rank"`
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name,omitempty"`
	Played      int    `json:"played"`
	Wins        int    `json:"wins"`
	Draws       int    `json:"draws"`
	Losses      int    `json:"losses"`
	Points      int    `json:"points"`
}

// StandingsSnapshot is the persisted and queryable standings document.
type StandingsSnapshot struct {
	SchemaVersion   string        `json:"schema_version"`
	LeagueID        string        `json:"league_id"`
	LastUpdated     string        `json:"last_updated"`
	RoundsCompleted int           `json:"rounds_completed"`
	Standings       []StandingRow `json:"standings"`
}

// QueryResponse (coordinator -> any) carries the requested snapshot.
type QueryResponse struct {
	Envelope
	Standings *StandingsSnapshot `json:"standings,omitempty"`
	Schedule  []MatchInfo        `json:"schedule,omitempty"`
}

// JSON-RPC numeric error codes used alongside the stable league error codes.
const (
	RPCCodeParse      = -32700
	RPCCodeProtocol   = -32600
	RPCCodeMethod     = -32601
	RPCCodeInternal   = -32603
	RPCCodeAuth       = -32001
	RPCCodeScheduling = -32002
	RPCCodeState      = -32003
	RPCCodeTransport  = -32004
)

// Request is the JSON-RPC 2.0 request wrapper used on the wire.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      int             `json:"id"`
}

// Response is the JSON-RPC 2.0 response wrapper used on the wire.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	ID      int             `json:"id"`
}

// RPCError is the JSON-RPC 2.0 error object, carrying the stable league error
// code in Data under "error_code".
type RPCError struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *RPCError) Error() string { return e.Message }

// NewRequest wraps a typed payload into a JSON-RPC request.
func NewRequest(method string, params any, id int) (Request, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return Request{}, err
	}
	return Request{JSONRPC: "2.0", Method: method, Params: raw, ID: id}, nil
}
