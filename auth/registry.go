// Package auth implements the identity and auth registry owned by the league
// coordinator. It issues per-agent identities with opaque, server generated
// tokens and validates token possession on every protected call.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/hupe1980/leaguemesh/protocol"
)

// Identity describes one registered agent. The token is opaque, generated
// server-side and immutable for the agent's lifetime.
type Identity struct {
	AgentType   protocol.AgentType `json:"agent_type"`
	AgentID     string             `json:"agent_id"`
	DisplayName string             `json:"display_name"`
	AuthToken   string             `json:"auth_token"`
	Endpoint    string             `json:"endpoint,omitempty"`
}

// Registry issues and validates agent identities. It is safe for concurrent
// use; identifier generation never surfaces a duplicate.
type Registry struct {
	mu       sync.RWMutex
	agents   map[string]Identity // agent_id -> identity
	tokens   map[string]string   // token -> agent_id
	counters map[protocol.AgentType]int
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		agents:   make(map[string]Identity),
		tokens:   make(map[string]string),
		counters: make(map[protocol.AgentType]int),
	}
}

// Register issues a fresh identity for the given agent type. The generated
// agent identifier is unique per call; on collision generation retries
// internally.
func (r *Registry) Register(agentType protocol.AgentType, displayName, endpoint string) (Identity, error) {
	switch agentType {
	case protocol.AgentTypeReferee, protocol.AgentTypePlayer:
	default:
		return Identity{}, protocol.NewAuthError(protocol.CodeAuthInvalid, "", fmt.Sprintf("cannot register agent type %q", agentType))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var agentID string
	for {
		r.counters[agentType]++
		agentID = formatAgentID(agentType, r.counters[agentType])
		if _, taken := r.agents[agentID]; !taken {
			break
		}
	}

	token, err := newToken()
	if err != nil {
		return Identity{}, fmt.Errorf("generate token: %w", err)
	}

	id := Identity{
		AgentType:   agentType,
		AgentID:     agentID,
		DisplayName: displayName,
		AuthToken:   token,
		Endpoint:    endpoint,
	}
	r.agents[agentID] = id
	r.tokens[token] = agentID
	return id, nil
}

// Authenticate reports whether the token belongs to the given agent.
func (r *Registry) Authenticate(agentID, token string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.tokens[token]
	return ok && owner == agentID
}

// Resolve returns the agent identifier owning the token.
func (r *Registry) Resolve(token string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.tokens[token]
	return id, ok
}

// Get returns the identity registered under the given agent identifier.
func (r *Registry) Get(agentID string) (Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.agents[agentID]
	return id, ok
}

// AgentIDs returns the identifiers of all registered agents of one type in
// registration order.
func (r *Registry) AgentIDs(agentType protocol.AgentType) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := r.counters[agentType]
	ids := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		agentID := formatAgentID(agentType, i)
		if _, ok := r.agents[agentID]; ok {
			ids = append(ids, agentID)
		}
	}
	return ids
}

func formatAgentID(agentType protocol.AgentType, n int) string {
	if agentType == protocol.AgentTypeReferee {
		return fmt.Sprintf("REF%02d", n)
	}
	return fmt.Sprintf("P%02d", n)
}

// newToken generates an opaque possession token. Not cryptographically bound
// to the agent; possession is the whole scheme.
func newToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "tok-" + hex.EncodeToString(buf), nil
}
