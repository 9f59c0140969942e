package room_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kestrel-games/waygate/internal/game/room"
	"github.com/kestrel-games/waygate/internal/game/ruleset"
	"github.com/kestrel-games/waygate/internal/game/world"
	"github.com/kestrel-games/waygate/internal/protocol"
)

// zeroSource always returns 0, making every random choice deterministic:
// first mover is the lexicographically first team, damage rolls are the
// range minimum, and AI always attacks.
type zeroSource struct{}

func (zeroSource) Intn(int) int { return 0 }

// recorder captures published responses. Safe for concurrent use because
// timer callbacks publish from their own goroutine.
type recorder struct {
	mu        sync.Mutex
	responses []protocol.Response
}

func (rec *recorder) publish(_ []string, resp protocol.Response) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.responses = append(rec.responses, resp)
}

func (rec *recorder) byType(typ string) []protocol.Response {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	var out []protocol.Response
	for _, r := range rec.responses {
		if r.Type == typ {
			out = append(out, r)
		}
	}
	return out
}

func newTestRoom(t *testing.T, timeout time.Duration) (*room.Room, *recorder) {
	t.Helper()
	rec := &recorder{}
	r := room.New(room.Config{
		Code:        "TEST01",
		Map:         world.DefaultMap(),
		Ruleset:     ruleset.DefaultRegistry(),
		Source:      zeroSource{},
		Logger:      zap.NewNop(),
		Publish:     rec.publish,
		TurnTimeout: timeout,
	})
	return r, rec
}

// seatTwoTeams joins two players, gives each a class and a solo team, and
// readies both, starting the game. With zeroSource team-1 moves first.
func seatTwoTeams(t *testing.T, r *room.Room) {
	t.Helper()
	for _, id := range []string{"p1", "p2"} {
		_, err := r.Join(id)
		require.NoError(t, err)
		_, err = r.SelectClass(id, "warrior")
		require.NoError(t, err)
	}
	_, err := r.CreateTeam("p1", "Alpha")
	require.NoError(t, err)
	_, err = r.CreateTeam("p2", "Bravo")
	require.NoError(t, err)
	_, err = r.SetReady("p1", true)
	require.NoError(t, err)
	_, err = r.SetReady("p2", true)
	require.NoError(t, err)
	require.Equal(t, room.Playing, r.State())
	require.Equal(t, "team-1", r.CurrentTurn())
}

// TestJoin_AnnouncesOccupancy verifies joining replies with the room code
// and broadcasts the new player count.
func TestJoin_AnnouncesOccupancy(t *testing.T) {
	r, rec := newTestRoom(t, 0)

	resp, err := r.Join("p1")
	require.NoError(t, err)
	assert.Equal(t, protocol.RespJoinedRoom, resp.Type)
	assert.Equal(t, "TEST01", resp.RoomCode)
	assert.Equal(t, 1, resp.PlayerCount)

	_, err = r.Join("p2")
	require.NoError(t, err)

	joined := rec.byType(protocol.RespPlayerJoined)
	require.Len(t, joined, 2)
	assert.Equal(t, 2, joined[1].PlayerCount)
}

// TestJoin_RejectsDuplicateAndMidGame verifies a session cannot join twice
// and nobody can join once the game has started.
func TestJoin_RejectsDuplicateAndMidGame(t *testing.T) {
	r, _ := newTestRoom(t, 0)

	_, err := r.Join("p1")
	require.NoError(t, err)
	_, err = r.Join("p1")
	assert.Error(t, err)

	seatTwoTeamsFromCold(t, r)
	_, err = r.Join("late")
	assert.ErrorIs(t, err, room.ErrWrongState)
}

// seatTwoTeamsFromCold finishes lobby setup for a room that already has p1.
func seatTwoTeamsFromCold(t *testing.T, r *room.Room) {
	t.Helper()
	_, err := r.Join("p2")
	require.NoError(t, err)
	for _, id := range []string{"p1", "p2"} {
		_, err = r.SelectClass(id, "warrior")
		require.NoError(t, err)
	}
	_, err = r.CreateTeam("p1", "Alpha")
	require.NoError(t, err)
	_, err = r.CreateTeam("p2", "Bravo")
	require.NoError(t, err)
	_, err = r.SetReady("p1", true)
	require.NoError(t, err)
	_, err = r.SetReady("p2", true)
	require.NoError(t, err)
}

// TestCreateTeam_RequiresClass verifies team creation is gated on having
// selected a class.
func TestCreateTeam_RequiresClass(t *testing.T) {
	r, _ := newTestRoom(t, 0)
	_, err := r.Join("p1")
	require.NoError(t, err)

	_, err = r.CreateTeam("p1", "Alpha")
	assert.ErrorIs(t, err, room.ErrNoClass)

	_, err = r.SelectClass("p1", "warrior")
	require.NoError(t, err)
	resp, err := r.CreateTeam("p1", "Alpha")
	require.NoError(t, err)
	assert.Equal(t, "team-1", resp.TeamID)
}

// TestSelectClass_UnknownClass verifies an unknown class id is rejected.
func TestSelectClass_UnknownClass(t *testing.T) {
	r, _ := newTestRoom(t, 0)
	_, err := r.Join("p1")
	require.NoError(t, err)

	_, err = r.SelectClass("p1", "paladin")
	assert.ErrorIs(t, err, room.ErrUnknownClass)
}

// TestJoinTeam_EnforcesCap verifies the fifth member is rejected while the
// first four are admitted.
func TestJoinTeam_EnforcesCap(t *testing.T) {
	r, _ := newTestRoom(t, 0)
	players := []string{"p1", "p2", "p3", "p4", "p5"}
	for _, id := range players {
		_, err := r.Join(id)
		require.NoError(t, err)
		_, err = r.SelectClass(id, "rogue")
		require.NoError(t, err)
	}
	_, err := r.CreateTeam("p1", "Alpha")
	require.NoError(t, err)

	for _, id := range players[1:4] {
		_, err = r.JoinTeam(id, "team-1")
		require.NoError(t, err)
	}
	_, err = r.JoinTeam("p5", "team-1")
	assert.ErrorIs(t, err, room.ErrTeamFull)
}

// TestSetReady_StartsWhenAllReady verifies the game starts only once at
// least two teams exist and every team is ready.
func TestSetReady_StartsWhenAllReady(t *testing.T) {
	r, rec := newTestRoom(t, 0)
	_, err := r.Join("p1")
	require.NoError(t, err)
	_, err = r.SelectClass("p1", "mage")
	require.NoError(t, err)
	_, err = r.CreateTeam("p1", "Solo")
	require.NoError(t, err)

	// A single ready team is not enough.
	_, err = r.SetReady("p1", true)
	require.NoError(t, err)
	assert.Equal(t, room.Lobby, r.State())
	assert.Empty(t, rec.byType(protocol.RespGameStarted))

	_, err = r.Join("p2")
	require.NoError(t, err)
	_, err = r.SelectClass("p2", "mage")
	require.NoError(t, err)
	_, err = r.CreateTeam("p2", "Duo")
	require.NoError(t, err)
	_, err = r.SetReady("p2", true)
	require.NoError(t, err)

	assert.Equal(t, room.Playing, r.State())
	started := rec.byType(protocol.RespGameStarted)
	require.Len(t, started, 1)
	assert.Equal(t, r.CurrentTurn(), started[0].CurrentTurn)
}

// TestSetReady_UnreadyBlocksStart verifies toggling a team back to unready
// keeps the lobby open.
func TestSetReady_UnreadyBlocksStart(t *testing.T) {
	r, _ := newTestRoom(t, 0)
	for _, id := range []string{"p1", "p2"} {
		_, err := r.Join(id)
		require.NoError(t, err)
		_, err = r.SelectClass(id, "warrior")
		require.NoError(t, err)
	}
	_, err := r.CreateTeam("p1", "Alpha")
	require.NoError(t, err)
	_, err = r.CreateTeam("p2", "Bravo")
	require.NoError(t, err)

	_, err = r.SetReady("p1", true)
	require.NoError(t, err)
	_, err = r.SetReady("p1", false)
	require.NoError(t, err)
	_, err = r.SetReady("p2", true)
	require.NoError(t, err)
	assert.Equal(t, room.Lobby, r.State())
	assert.False(t, r.CanStartGame())
}

// TestMoveTeam_TurnEnforcement verifies only the current team may move and
// moves must follow waypoint links.
func TestMoveTeam_TurnEnforcement(t *testing.T) {
	r, _ := newTestRoom(t, 0)
	seatTwoTeams(t, r)

	// team-2 is not up.
	_, err := r.MoveTeam("p2", "meadow")
	assert.ErrorIs(t, err, room.ErrNotYourTurn)

	// start does not link to goal directly.
	_, err = r.MoveTeam("p1", "goal")
	assert.ErrorIs(t, err, room.ErrNotLinked)

	_, err = r.MoveTeam("p1", "nowhere")
	assert.ErrorIs(t, err, room.ErrUnknownWaypoint)

	resp, err := r.MoveTeam("p1", "meadow")
	require.NoError(t, err)
	assert.Equal(t, "meadow", resp.Waypoint)
	assert.Equal(t, "team-2", r.CurrentTurn())
}

// TestMoveTeam_RoundRobin verifies the turn rotates through all teams and
// wraps around.
func TestMoveTeam_RoundRobin(t *testing.T) {
	r, _ := newTestRoom(t, 0)
	seatTwoTeams(t, r)

	// Safe back-and-forth moves avoiding the thicket hazard.
	steps := []struct {
		player   string
		waypoint string
		next     string
	}{
		{"p1", "meadow", "team-2"},
		{"p2", "meadow", "team-1"},
		{"p1", "crossing", "team-2"},
		{"p2", "crossing", "team-1"},
	}
	for _, s := range steps {
		_, err := r.MoveTeam(s.player, s.waypoint)
		require.NoError(t, err)
		assert.Equal(t, s.next, r.CurrentTurn())
	}
}

// TestMoveTeam_GoalWinsImmediately verifies reaching the goal ends the game
// without consuming a turn or starting a battle.
func TestMoveTeam_GoalWinsImmediately(t *testing.T) {
	r, rec := newTestRoom(t, 0)
	seatTwoTeams(t, r)

	_, err := r.MoveTeam("p1", "meadow")
	require.NoError(t, err)
	_, err = r.MoveTeam("p2", "meadow")
	require.NoError(t, err)
	_, err = r.MoveTeam("p1", "crossing")
	require.NoError(t, err)
	_, err = r.MoveTeam("p2", "crossing")
	require.NoError(t, err)

	_, err = r.MoveTeam("p1", "goal")
	require.NoError(t, err)

	assert.Equal(t, room.Finished, r.State())
	assert.Equal(t, "team-1", r.Winner())
	won := rec.byType(protocol.RespGameWon)
	require.Len(t, won, 1)
	assert.Equal(t, "team-1", won[0].TeamID)

	// No further moves are accepted.
	_, err = r.MoveTeam("p2", "goal")
	assert.ErrorIs(t, err, room.ErrWrongState)
}

// TestMoveTeam_HazardStartsBattle verifies entering a hazard waypoint opens
// a battle instead of passing the turn.
func TestMoveTeam_HazardStartsBattle(t *testing.T) {
	r, rec := newTestRoom(t, 0)
	seatTwoTeams(t, r)

	_, err := r.MoveTeam("p1", "thicket")
	require.NoError(t, err)

	assert.Equal(t, room.InBattle, r.State())
	started := rec.byType(protocol.RespBattleStarted)
	require.Len(t, started, 1)
	assert.Equal(t, "team-1", started[0].TeamID)
	assert.Contains(t, started[0].Participants, "team-1")
	assert.Contains(t, started[0].Participants, "enemy-1")
	assert.Equal(t, 100, started[0].Health["enemy-1"])
	// Pooled team health: one warrior at level 1.
	assert.Equal(t, 120, started[0].Health["team-1"])
}

// TestBattle_FullExchangeToVictory plays a whole encounter with the zero
// source: every attack deals the 10 minimum, so ten player attacks fell the
// 100-health wolf while the wolf lands nine, and the game resumes with the
// turn passed to the other team.
func TestBattle_FullExchangeToVictory(t *testing.T) {
	r, rec := newTestRoom(t, 0)
	seatTwoTeams(t, r)

	_, err := r.MoveTeam("p1", "thicket")
	require.NoError(t, err)
	require.Equal(t, room.InBattle, r.State())

	for i := 0; i < 10; i++ {
		resp, err := r.SubmitBattleAction("p1", protocol.BattleAction{
			Type:     "Attack",
			TargetID: "enemy-1",
		})
		require.NoError(t, err)
		require.NotNil(t, resp.ActionResult)
		assert.Equal(t, 10, resp.ActionResult.Damage)
	}

	assert.Equal(t, room.Playing, r.State())
	assert.Equal(t, "team-2", r.CurrentTurn())

	ended := rec.byType(protocol.RespBattleEnded)
	require.Len(t, ended, 1)
	assert.Equal(t, "team-1", ended[0].TeamID)
	assert.Equal(t, 0, ended[0].Health["enemy-1"])
	assert.Equal(t, 30, ended[0].Health["team-1"])

	// Battle submissions are rejected once the encounter is settled.
	_, err = r.SubmitBattleAction("p1", protocol.BattleAction{Type: "Attack", TargetID: "enemy-1"})
	assert.ErrorIs(t, err, room.ErrBattleInactive)
}

// TestBattle_CaseInsensitiveActionAndInvalidTurn verifies action type
// matching ignores case and the non-acting team cannot submit.
func TestBattle_CaseInsensitiveActionAndInvalidTurn(t *testing.T) {
	r, _ := newTestRoom(t, 0)
	seatTwoTeams(t, r)
	_, err := r.MoveTeam("p1", "thicket")
	require.NoError(t, err)

	_, err = r.SubmitBattleAction("p2", protocol.BattleAction{Type: "Attack", TargetID: "enemy-1"})
	assert.ErrorIs(t, err, room.ErrNotYourTurn)

	resp, err := r.SubmitBattleAction("p1", protocol.BattleAction{Type: "aTTaCk", TargetID: "enemy-1"})
	require.NoError(t, err)
	assert.True(t, resp.ActionResult.Success)
}

// TestBattle_InvalidActionKeepsTurn verifies a rejected action does not
// consume the turn: the same team may immediately retry.
func TestBattle_InvalidActionKeepsTurn(t *testing.T) {
	r, _ := newTestRoom(t, 0)
	seatTwoTeams(t, r)
	_, err := r.MoveTeam("p1", "thicket")
	require.NoError(t, err)

	_, err = r.SubmitBattleAction("p1", protocol.BattleAction{Type: "dance"})
	assert.Error(t, err)
	_, err = r.SubmitBattleAction("p1", protocol.BattleAction{Type: "Attack", TargetID: "team-1"})
	assert.Error(t, err)

	resp, err := r.SubmitBattleAction("p1", protocol.BattleAction{Type: "Attack", TargetID: "enemy-1"})
	require.NoError(t, err)
	assert.True(t, resp.ActionResult.Success)
}

// TestBattle_TurnTimerSkips verifies an idle human turn is skipped when the
// timer expires and the enemy still gets its swing in.
func TestBattle_TurnTimerSkips(t *testing.T) {
	r, rec := newTestRoom(t, 20*time.Millisecond)
	seatTwoTeams(t, r)
	_, err := r.MoveTeam("p1", "thicket")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		for _, resp := range rec.byType(protocol.RespBattleAction) {
			if resp.ActionResult != nil && !resp.ActionResult.Success {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond, "expected a timeout skip broadcast")

	require.Eventually(t, func() bool {
		for _, resp := range rec.byType(protocol.RespBattleAction) {
			if h, ok := resp.Health["team-1"]; ok && h < 120 {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond, "expected the enemy to act after the skip")
}

// TestLeave_EmptyRoom verifies Leave reports when the last member departs.
func TestLeave_EmptyRoom(t *testing.T) {
	r, _ := newTestRoom(t, 0)
	_, err := r.Join("p1")
	require.NoError(t, err)
	_, err = r.Join("p2")
	require.NoError(t, err)

	assert.False(t, r.Leave("p1"))
	assert.True(t, r.Leave("p2"))
}

// TestLeave_MidGameEliminatesTeam verifies a team whose last member
// disconnects mid-game is dropped from the rotation, handing victory to the
// sole remaining team.
func TestLeave_MidGameEliminatesTeam(t *testing.T) {
	r, rec := newTestRoom(t, 0)
	seatTwoTeams(t, r)

	r.Leave("p2")

	assert.Equal(t, room.Finished, r.State())
	assert.Equal(t, "team-1", r.Winner())
	won := rec.byType(protocol.RespGameWon)
	require.Len(t, won, 1)
	assert.Equal(t, "team-1", won[0].TeamID)
}

// TestLeave_MidGameRepairsRotation verifies that with three teams, removing
// a team other than the current one keeps the current team's turn intact.
func TestLeave_MidGameRepairsRotation(t *testing.T) {
	r, _ := newTestRoom(t, 0)
	players := []string{"p1", "p2", "p3"}
	for _, id := range players {
		_, err := r.Join(id)
		require.NoError(t, err)
		_, err = r.SelectClass(id, "rogue")
		require.NoError(t, err)
	}
	for i, id := range players {
		_, err := r.CreateTeam(id, "Team"+string(rune('A'+i)))
		require.NoError(t, err)
	}
	for _, id := range players {
		_, err := r.SetReady(id, true)
		require.NoError(t, err)
	}
	require.Equal(t, room.Playing, r.State())
	require.Equal(t, "team-1", r.CurrentTurn())

	// team-3 leaves; team-1 is still up and team-2 follows.
	r.Leave("p3")
	assert.Equal(t, room.Playing, r.State())
	assert.Equal(t, "team-1", r.CurrentTurn())

	_, err := r.MoveTeam("p1", "meadow")
	require.NoError(t, err)
	assert.Equal(t, "team-2", r.CurrentTurn())
	_, err = r.MoveTeam("p2", "meadow")
	require.NoError(t, err)
	assert.Equal(t, "team-1", r.CurrentTurn())
}

// forceEncounter forces or suppresses encounters regardless of the map.
type forceEncounter struct{ fire bool }

func (f forceEncounter) OnEnter(_, _ string, _ bool) (bool, error) {
	return f.fire, nil
}

// TestTriggerHook_OverridesHazard verifies a trigger hook can veto a hazard
// and force an encounter on a safe waypoint.
func TestTriggerHook_OverridesHazard(t *testing.T) {
	rec := &recorder{}
	r := room.New(room.Config{
		Code:    "HOOK01",
		Map:     world.DefaultMap(),
		Ruleset: ruleset.DefaultRegistry(),
		Source:  zeroSource{},
		Logger:  zap.NewNop(),
		Publish: rec.publish,
		Trigger: forceEncounter{fire: false},
	})
	seatTwoTeams(t, r)

	// Hazard vetoed: moving into the thicket is a plain move.
	_, err := r.MoveTeam("p1", "thicket")
	require.NoError(t, err)
	assert.Equal(t, room.Playing, r.State())
	assert.Empty(t, rec.byType(protocol.RespBattleStarted))
}
