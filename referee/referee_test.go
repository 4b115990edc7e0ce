package referee

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/leaguemesh/game"
	"github.com/hupe1980/leaguemesh/league"
	"github.com/hupe1980/leaguemesh/player"
	"github.com/hupe1980/leaguemesh/protocol"
	"github.com/hupe1980/leaguemesh/transport"
)

const coordinatorEndpoint = "coordinator"

func fastOptions(o *Options) {
	o.JoinTimeout = 200 * time.Millisecond
	o.ChoiceTimeout = 200 * time.Millisecond
	o.Drawer = game.NewDrawer(rand.New(rand.NewSource(7)))
}

func setupLeague(t *testing.T, playerCount int) (*transport.Bus, *league.Coordinator, *Referee) {
	t.Helper()

	bus := transport.NewBus()
	coord := league.New("league-test")
	bus.Register(coordinatorEndpoint, league.NewHandler(coord))

	ref := New("Ref", bus, coordinatorEndpoint, fastOptions)
	require.NoError(t, ref.Register(context.Background()))

	for i := 0; i < playerCount; i++ {
		endpoint := string(rune('a' + i))
		p := player.New("Player", func(o *player.Options) {
			o.Endpoint = endpoint
			o.Strategy = player.NewStrategy(player.StrategyRandom, func(so *player.StrategyOptions) {
				so.Rand = rand.New(rand.NewSource(int64(i)))
			})
		})
		require.NoError(t, p.Register(context.Background(), bus, coordinatorEndpoint))
		bus.Register(endpoint, p)
	}
	return bus, coord, ref
}

func TestRefereeRunsFullLeague(t *testing.T) {
	_, coord, ref := setupLeague(t, 4)
	_, err := coord.CreateSchedule()
	require.NoError(t, err)

	require.NoError(t, ref.RunAssigned(context.Background()))
	assert.True(t, coord.Completed())

	snap := coord.Standings()
	require.Len(t, snap.Standings, 4)
	assert.Equal(t, 3, snap.RoundsCompleted)
	for _, row := range snap.Standings {
		assert.Equal(t, 3, row.Played)
	}
}

func TestRefereeAssignmentsFilterOwnMatches(t *testing.T) {
	_, coord, ref := setupLeague(t, 3)
	_, err := coord.CreateSchedule()
	require.NoError(t, err)

	assigned, err := ref.Assignments(context.Background())
	require.NoError(t, err)
	require.Len(t, assigned, 3)
	for _, m := range assigned {
		assert.Equal(t, ref.AgentID(), m.RefereeID)
		assert.NotEmpty(t, m.PlayerAEndpoint)
		assert.NotEmpty(t, m.PlayerBEndpoint)
	}
}

// decliner acknowledges invitations with accepted=false.
type decliner struct{}

func (d decliner) Handle(_ context.Context, req protocol.Request) protocol.Response {
	var inv protocol.Invitation
	if err := transport.DecodeParams(req, &inv); err != nil {
		return transport.Fault(req.ID, protocol.RPCCodeProtocol, err, nil)
	}
	return transport.Result(req.ID, protocol.JoinAck{
		Envelope: inv.Reply(protocol.MsgGameJoinAck, protocol.AgentTypePlayer, "P99"),
		Accepted: false,
	})
}

// sleeper joins but never answers the parity call in time.
type sleeper struct {
	delay time.Duration
}

func (s sleeper) Handle(_ context.Context, req protocol.Request) protocol.Response {
	switch req.Method {
	case protocol.MethodGameInvitation:
		var inv protocol.Invitation
		if err := transport.DecodeParams(req, &inv); err != nil {
			return transport.Fault(req.ID, protocol.RPCCodeProtocol, err, nil)
		}
		return transport.Result(req.ID, protocol.JoinAck{
			Envelope: inv.Reply(protocol.MsgGameJoinAck, protocol.AgentTypePlayer, "P99"),
			Accepted: true,
		})
	case protocol.MethodChooseParity:
		time.Sleep(s.delay)
		var call protocol.ParityCall
		if err := transport.DecodeParams(req, &call); err != nil {
			return transport.Fault(req.ID, protocol.RPCCodeProtocol, err, nil)
		}
		return transport.Result(req.ID, protocol.ParityResponse{
			Envelope: call.Reply(protocol.MsgChooseParityResponse, protocol.AgentTypePlayer, "P99"),
			Choice:   protocol.ParityEven,
		})
	default:
		return transport.Result(req.ID, protocol.Ack{Status: "OK"})
	}
}

func runSingleMatch(t *testing.T, misbehaving transport.Handler) (protocol.MatchRecord, *league.Coordinator, error) {
	t.Helper()

	bus := transport.NewBus()
	coord := league.New("league-test")
	bus.Register(coordinatorEndpoint, league.NewHandler(coord))

	ref := New("Ref", bus, coordinatorEndpoint, fastOptions)
	require.NoError(t, ref.Register(context.Background()))

	good := player.New("Good", func(o *player.Options) { o.Endpoint = "good" })
	require.NoError(t, good.Register(context.Background(), bus, coordinatorEndpoint))
	bus.Register("good", good)

	bad := player.New("Bad", func(o *player.Options) { o.Endpoint = "bad" })
	require.NoError(t, bad.Register(context.Background(), bus, coordinatorEndpoint))
	if misbehaving != nil {
		bus.Register("bad", misbehaving)
	} else {
		bus.Register("bad", bad)
	}

	_, err := coord.CreateSchedule()
	require.NoError(t, err)

	assigned, err := ref.Assignments(context.Background())
	require.NoError(t, err)
	require.Len(t, assigned, 1)

	rec, err := ref.RunMatch(context.Background(), assigned[0])
	return rec, coord, err
}

func TestRefereeForfeitsDecliningPlayer(t *testing.T) {
	rec, coord, err := runSingleMatch(t, decliner{})
	require.NoError(t, err)

	assert.Equal(t, protocol.GameTechnicalLoss, rec.Status)
	assert.Equal(t, "P01", rec.WinnerID)
	assert.True(t, coord.Completed())
}

func TestRefereeForfeitsSilentChooser(t *testing.T) {
	rec, coord, err := runSingleMatch(t, sleeper{delay: 2 * time.Second})
	require.NoError(t, err)

	assert.Equal(t, protocol.GameTechnicalLoss, rec.Status)
	assert.Equal(t, "P01", rec.WinnerID)
	assert.True(t, coord.Completed())
}

func TestRefereeFailsWhenBothPlayersUnreachable(t *testing.T) {
	bus := transport.NewBus()
	coord := league.New("league-test")
	bus.Register(coordinatorEndpoint, league.NewHandler(coord))

	ref := New("Ref", bus, coordinatorEndpoint, fastOptions)
	require.NoError(t, ref.Register(context.Background()))

	// Both players register but never listen on their endpoints.
	for _, endpoint := range []string{"ghost-1", "ghost-2"} {
		p := player.New("Ghost", func(o *player.Options) { o.Endpoint = endpoint })
		require.NoError(t, p.Register(context.Background(), bus, coordinatorEndpoint))
	}

	_, err := coord.CreateSchedule()
	require.NoError(t, err)

	assigned, err := ref.Assignments(context.Background())
	require.NoError(t, err)
	require.Len(t, assigned, 1)

	_, err = ref.RunMatch(context.Background(), assigned[0])
	require.Error(t, err)
	assert.False(t, coord.Completed())
}

func TestRefereeResolvedMatchIsReportedOnce(t *testing.T) {
	rec, coord, err := runSingleMatch(t, nil)
	require.NoError(t, err)

	assert.Contains(t, []protocol.GameStatus{protocol.GameWin, protocol.GameDraw}, rec.Status)
	assert.True(t, coord.Completed())

	snap := coord.Standings()
	total := 0
	for _, row := range snap.Standings {
		total += row.Points
	}
	if rec.Status == protocol.GameDraw {
		assert.Equal(t, 2, total)
	} else {
		assert.Equal(t, 3, total)
	}
}
