package auth

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/leaguemesh/protocol"
)

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()

	p1, err := r.Register(protocol.AgentTypePlayer, "Alice", "")
	require.NoError(t, err)
	p2, err := r.Register(protocol.AgentTypePlayer, "Bob", "")
	require.NoError(t, err)
	ref, err := r.Register(protocol.AgentTypeReferee, "Ref", "")
	require.NoError(t, err)

	assert.Equal(t, "P01", p1.AgentID)
	assert.Equal(t, "P02", p2.AgentID)
	assert.Equal(t, "REF01", ref.AgentID)
	assert.NotEqual(t, p1.AuthToken, p2.AuthToken)
	assert.Contains(t, p1.AuthToken, "tok-")
}

func TestRegistryRejectsCoordinator(t *testing.T) {
	r := NewRegistry()
	_, err := r.Register(protocol.AgentTypeCoordinator, "Boss", "")
	require.Error(t, err)

	var aerr *protocol.AuthError
	require.ErrorAs(t, err, &aerr)
}

func TestRegistryAuthenticate(t *testing.T) {
	r := NewRegistry()
	id, err := r.Register(protocol.AgentTypePlayer, "Alice", "")
	require.NoError(t, err)

	assert.True(t, r.Authenticate(id.AgentID, id.AuthToken))
	assert.False(t, r.Authenticate(id.AgentID, "tok-bogus"))
	assert.False(t, r.Authenticate("P99", id.AuthToken))

	owner, ok := r.Resolve(id.AuthToken)
	require.True(t, ok)
	assert.Equal(t, id.AgentID, owner)
}

func TestRegistryConcurrentRegistration(t *testing.T) {
	r := NewRegistry()

	const n = 32
	ids := make([]Identity, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := r.Register(protocol.AgentTypePlayer, "P", "")
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, id := range ids {
		assert.False(t, seen[id.AgentID], "duplicate agent id %s", id.AgentID)
		seen[id.AgentID] = true
	}
	assert.Len(t, r.AgentIDs(protocol.AgentTypePlayer), n)
}
