package protocol

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Version is the protocol version spoken by every leaguemesh agent. Envelopes
// carrying any other version are rejected before reaching business logic.
const Version = "league.v2"

// AgentType categorizes the actor behind a sender address.
type AgentType string

const (
	// AgentTypeCoordinator identifies the league coordinator.
	AgentTypeCoordinator AgentType = "coordinator"
	// AgentTypeReferee identifies a match referee.
	AgentTypeReferee AgentType = "referee"
	// AgentTypePlayer identifies a player.
	AgentTypePlayer AgentType = "player"
)

// TimestampFormat is the wire format for envelope timestamps (ISO-8601 UTC).
const TimestampFormat = "2006-01-02T15:04:05Z"

// UTCTimestamp returns the current UTC time in the wire format.
func UTCTimestamp() string {
	return time.Now().UTC().Format(TimestampFormat)
}

// NewConversationID generates a unique correlation identifier for one logical
// exchange. Reusing an identifier across unrelated exchanges is a protocol
// violation.
func NewConversationID() string {
	return "conv-" + uuid.NewString()
}

// Envelope is the structured header wrapping every inter-agent call. After
// construction it should be treated as immutable. It captures:
//
//   - Versioning (Protocol)
//   - Identity (Sender in "type:id" form, optional AuthToken)
//   - Timing (Timestamp, UTC, monotonically non-decreasing per conversation)
//   - Correlation (ConversationID, optional RoundID / MatchID)
//
// AuthToken is optional for registration calls and required for all protected
// methods thereafter.
type Envelope struct {
	Protocol       string `json:"protocol"`
	MessageType    string `json:"message_type"`
	Sender         string `json:"sender"`
	Timestamp      string `json:"timestamp"`
	ConversationID string `json:"conversation_id"`
	AuthToken      string `json:"auth_token,omitempty"`
	LeagueID       string `json:"league_id,omitempty"`
	RoundID        int    `json:"round_id,omitempty"`
	MatchID        string `json:"match_id,omitempty"`
}

// NewEnvelope creates an envelope authored by the given agent, stamped with
// the current UTC time and a fresh conversation identifier.
func NewEnvelope(messageType string, agentType AgentType, agentID string) Envelope {
	return Envelope{
		Protocol:       Version,
		MessageType:    messageType,
		Sender:         FormatSender(agentType, agentID),
		Timestamp:      UTCTimestamp(),
		ConversationID: NewConversationID(),
	}
}

// Reply creates an envelope correlated to an inbound one: same conversation,
// fresh timestamp, new message type and sender.
func (e Envelope) Reply(messageType string, agentType AgentType, agentID string) Envelope {
	r := NewEnvelope(messageType, agentType, agentID)
	r.ConversationID = e.ConversationID
	r.LeagueID = e.LeagueID
	r.RoundID = e.RoundID
	r.MatchID = e.MatchID
	return r
}

// FormatSender renders the canonical "type:id" sender address.
func FormatSender(agentType AgentType, agentID string) string {
	return fmt.Sprintf("%s:%s", agentType, agentID)
}

// ParseSender splits a "type:id" sender address into its parts.
func ParseSender(sender string) (AgentType, string, error) {
	parts := strings.SplitN(sender, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", NewProtocolError(CodeMissingField, "sender", "expected \"type:id\"")
	}
	switch AgentType(parts[0]) {
	case AgentTypeCoordinator, AgentTypeReferee, AgentTypePlayer:
		return AgentType(parts[0]), parts[1], nil
	default:
		return "", "", NewProtocolError(CodeMissingField, "sender", "unknown agent type "+parts[0])
	}
}

// SenderID returns the agent identifier portion of the sender address, or the
// empty string if the address is malformed.
func (e Envelope) SenderID() string {
	_, id, err := ParseSender(e.Sender)
	if err != nil {
		return ""
	}
	return id
}

// Validate checks the envelope contract: required fields present, protocol
// version matches, sender is well formed and the timestamp parses as UTC.
// The first violation is returned as a *ProtocolError naming the field.
func (e Envelope) Validate() error {
	if e.Protocol == "" {
		return NewProtocolError(CodeMissingField, "protocol", "missing")
	}
	if e.Protocol != Version {
		return NewProtocolError(CodeVersionMismatch, "protocol", fmt.Sprintf("got %q, want %q", e.Protocol, Version))
	}
	if e.MessageType == "" {
		return NewProtocolError(CodeMissingField, "message_type", "missing")
	}
	if e.ConversationID == "" {
		return NewProtocolError(CodeMissingField, "conversation_id", "missing")
	}
	if _, _, err := ParseSender(e.Sender); err != nil {
		return err
	}
	if e.Timestamp == "" {
		return NewProtocolError(CodeMissingField, "timestamp", "missing")
	}
	ts, err := time.Parse(time.RFC3339, e.Timestamp)
	if err != nil {
		return NewProtocolError(CodeInvalidTimestamp, "timestamp", err.Error())
	}
	if _, offset := ts.Zone(); offset != 0 {
		return NewProtocolError(CodeInvalidTimestamp, "timestamp", "not UTC")
	}
	return nil
}

// ConversationTracker enforces conversation identifier uniqueness across
// unrelated exchanges. It is safe for concurrent use.
type ConversationTracker struct {
	mu   sync.Mutex
	seen map[string]string // conversation_id -> message_type that opened it
}

// NewConversationTracker constructs an empty tracker.
func NewConversationTracker() *ConversationTracker {
	return &ConversationTracker{seen: make(map[string]string)}
}

// Begin records a conversation identifier for a fresh logical exchange.
// Reuse of an identifier already bound to a different message type is a
// protocol violation.
func (t *ConversationTracker) Begin(conversationID, messageType string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if opened, ok := t.seen[conversationID]; ok && opened != messageType {
		return NewProtocolError(CodeConversationDup, "conversation_id",
			fmt.Sprintf("%s already used by %s", conversationID, opened))
	}
	t.seen[conversationID] = messageType
	return nil
}
