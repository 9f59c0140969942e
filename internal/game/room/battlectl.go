package room

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/kestrel-games/waygate/internal/game/battle"
	"github.com/kestrel-games/waygate/internal/game/world"
	"github.com/kestrel-games/waygate/internal/protocol"
)

// defaultEncounter is used when a trigger hook raises an encounter on a
// waypoint that defines none.
var defaultEncounter = world.Encounter{
	Type:       world.EncounterEnemy,
	Difficulty: 1,
	Enemies:    []string{"lurker"},
}

// startBattleLocked transitions Playing → InBattle and spawns the encounter
// at the waypoint the team just entered. Each human team fights as a single
// pooled participant whose health is the sum of its members' health.
func (r *Room) startBattleLocked(team *Team, wp *world.Waypoint) {
	enc := wp.Encounter
	if enc == nil {
		enc = &defaultEncounter
	}

	participants := []*battle.Participant{r.teamParticipantLocked(team)}
	kind := battle.PlayerVsEnemy

	switch enc.Type {
	case world.EncounterTeamVsTeam:
		opponent := r.randomOpponentLocked(team.ID)
		if opponent == nil {
			// Nobody left to fight: the move resolves as a plain move.
			r.advanceTurnLocked()
			return
		}
		kind = battle.TeamVsTeam
		participants = append(participants, r.teamParticipantLocked(opponent))
	default:
		for i, name := range enc.Enemies {
			participants = append(participants, &battle.Participant{
				ID:        fmt.Sprintf("enemy-%d", i+1),
				Name:      name,
				AI:        true,
				Health:    r.enemyHealth,
				MaxHealth: r.enemyHealth,
			})
		}
		if len(participants) == 1 {
			participants = append(participants, &battle.Participant{
				ID:        "enemy-1",
				Name:      defaultEncounter.Enemies[0],
				AI:        true,
				Health:    r.enemyHealth,
				MaxHealth: r.enemyHealth,
			})
		}
	}

	r.battle = battle.New(kind, participants, enc.Difficulty, r.src)
	r.battleTeam = team.ID
	r.state = InBattle

	cur := r.battle.Current()
	currentID := ""
	if cur != nil {
		currentID = cur.ID
	}
	r.publish(r.memberSnapshot(), protocol.Response{
		Type:         protocol.RespBattleStarted,
		Success:      true,
		RoomCode:     r.code,
		TeamID:       team.ID,
		Waypoint:     wp.ID,
		Participants: r.battle.Order(),
		Health:       r.battle.HealthSnapshot(),
		CurrentTurn:  currentID,
	})
	r.logger.Info("battle started",
		zap.String("team", team.ID),
		zap.String("waypoint", wp.ID),
		zap.Strings("order", r.battle.Order()),
	)

	r.runBattleLocked()
}

// teamParticipantLocked builds the pooled battle participant for a team.
func (r *Room) teamParticipantLocked(team *Team) *battle.Participant {
	health, maxHealth := 0, 0
	for _, memberID := range team.Members {
		if p, ok := r.players[memberID]; ok {
			health += p.Stats.Health
			maxHealth += p.Stats.MaxHealth
		}
	}
	return &battle.Participant{
		ID:        team.ID,
		Name:      team.Name,
		Health:    health,
		MaxHealth: maxHealth,
	}
}

// randomOpponentLocked picks a uniformly random surviving team other than
// teamID, or nil when none exists.
func (r *Room) randomOpponentLocked(teamID string) *Team {
	var candidates []*Team
	for _, id := range r.turnOrder {
		if id == teamID {
			continue
		}
		if t, ok := r.teams[id]; ok {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	return candidates[r.src.Intn(len(candidates))]
}

// runBattleLocked drives the battle forward: AI turns resolve immediately;
// the loop parks on the first human turn, arming the turn timer, and resumes
// from SubmitBattleAction or a timer expiry.
func (r *Room) runBattleLocked() {
	for r.battle != nil && r.battle.Active() {
		cur := r.battle.Current()
		if cur == nil {
			return
		}
		if !cur.AI {
			r.armTurnTimerLocked()
			return
		}

		act, ok := r.battle.ChooseAIAction(cur.ID, r.rules, r.src)
		if ok {
			res := r.battle.Resolve(cur.ID, act, r.rules, r.src)
			r.broadcastActionLocked(cur.ID, res)
		}
		if r.checkBattleEndLocked() {
			return
		}
		r.battle.Advance()
	}
}

// armTurnTimerLocked starts the turn timer for the current human turn. The
// callback captures the battle epoch so a fire that loses the race with the
// player's own action detects the turn was already consumed.
func (r *Room) armTurnTimerLocked() {
	if r.turnTimeout <= 0 {
		return
	}
	epoch := r.battle.Epoch()
	r.turnTimer = battle.NewTurnTimer(r.turnTimeout, func() {
		r.forceSkip(epoch)
	})
}

// forceSkip is the turn-timer callback: it skips the current human turn if
// and only if the turn the timer guarded is still pending.
func (r *Room) forceSkip(epoch uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != InBattle || r.battle == nil || !r.battle.Active() {
		return
	}
	if r.battle.Epoch() != epoch {
		return
	}
	cur := r.battle.Current()
	if cur == nil || cur.AI {
		return
	}

	r.logger.Info("turn timed out", zap.String("participant", cur.ID))
	r.publish(r.memberSnapshot(), protocol.Response{
		Type:     protocol.RespBattleAction,
		Success:  true,
		RoomCode: r.code,
		PlayerID: cur.ID,
		ActionResult: &protocol.ActionResult{
			Success: false,
			Message: fmt.Sprintf("%s ran out of time; turn skipped", cur.Name),
		},
		Health: r.battle.HealthSnapshot(),
	})
	r.battle.Advance()
	r.runBattleLocked()
}

// SubmitBattleAction resolves the acting team's combat move. The acting
// player must belong to the team whose battle turn it is; any member of that
// team may submit.
//
// Postcondition: On success the turn is consumed and the battle advances
// (including any following AI turns). A failed action does not consume the
// turn and the timer is re-armed.
func (r *Room) SubmitBattleAction(playerID string, act protocol.BattleAction) (protocol.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != InBattle || r.battle == nil || !r.battle.Active() {
		return protocol.Response{}, ErrBattleInactive
	}
	p, ok := r.players[playerID]
	if !ok {
		return protocol.Response{}, ErrNotMember
	}
	cur := r.battle.Current()
	if cur == nil || cur.AI || p.TeamID != cur.ID {
		return protocol.Response{}, ErrNotYourTurn
	}

	parsed := battle.Action{
		Type:     battle.ParseActionType(act.Type),
		TargetID: act.TargetID,
		SkillID:  act.SkillID,
	}

	if r.turnTimer != nil {
		r.turnTimer.Stop()
		r.turnTimer = nil
	}

	res := r.battle.Resolve(cur.ID, parsed, r.rules, r.src)
	if !res.Success {
		// Invalid action: the turn is not consumed.
		r.armTurnTimerLocked()
		return protocol.Response{}, fmt.Errorf("battle action rejected: %s", res.Message)
	}

	r.broadcastActionLocked(cur.ID, res)

	reply := protocol.Response{
		Type:    protocol.RespBattleAction,
		Success: true,
		ActionResult: &protocol.ActionResult{
			Success: res.Success,
			Damage:  res.Damage,
			Message: res.Message,
		},
	}

	if r.checkBattleEndLocked() {
		return reply, nil
	}
	r.battle.Advance()
	r.runBattleLocked()
	return reply, nil
}

// broadcastActionLocked publishes one resolved action with a fresh health
// snapshot.
func (r *Room) broadcastActionLocked(actorID string, res battle.Result) {
	r.publish(r.memberSnapshot(), protocol.Response{
		Type:     protocol.RespBattleAction,
		Success:  true,
		RoomCode: r.code,
		PlayerID: actorID,
		ActionResult: &protocol.ActionResult{
			Success: res.Success,
			Damage:  res.Damage,
			Message: res.Message,
		},
		Health: r.battle.HealthSnapshot(),
	})
}

// checkBattleEndLocked evaluates the battle end condition and, when the
// battle is over, settles the outcome back into the map game.
func (r *Room) checkBattleEndLocked() bool {
	outcome, over := r.battle.CheckEnd()
	if !over {
		return false
	}
	r.settleBattleLocked(outcome)
	return true
}

// settleBattleLocked applies a concluded battle to the room: surviving teams
// get their pooled health written back to members, defeated teams are
// eliminated from the rotation, and the map turn advances unless the game
// ended.
func (r *Room) settleBattleLocked(outcome battle.Outcome) {
	if r.turnTimer != nil {
		r.turnTimer.Stop()
		r.turnTimer = nil
	}

	b := r.battle
	triggering := r.battleTeam
	r.battle = nil
	r.battleTeam = ""
	r.state = Playing

	var eliminated []string
	for _, id := range b.Order() {
		part, _ := b.Participant(id)
		team, isTeam := r.teams[id]
		if !isTeam {
			continue
		}
		if part.IsDead() {
			eliminated = append(eliminated, id)
		} else {
			r.writeBackHealthLocked(team, part)
		}
	}

	r.publish(r.memberSnapshot(), protocol.Response{
		Type:     protocol.RespBattleEnded,
		Success:  true,
		RoomCode: r.code,
		TeamID:   outcome.VictorID,
		Health:   b.HealthSnapshot(),
		Message:  battleSummary(b.Kind(), outcome, triggering),
	})
	r.logger.Info("battle ended",
		zap.String("victor", outcome.VictorID),
		zap.Bool("players_won", outcome.PlayersWon),
		zap.Strings("eliminated", eliminated),
	)

	for _, id := range eliminated {
		r.eliminateTeamLocked(id)
	}
	if r.state == Playing {
		r.advanceTurnLocked()
	}
}

// battleSummary renders the outcome line broadcast at battle end.
func battleSummary(kind battle.Kind, outcome battle.Outcome, triggering string) string {
	if kind == battle.TeamVsTeam {
		if outcome.VictorID == "" {
			return "the battle ended with no survivors"
		}
		return fmt.Sprintf("%s won the battle", outcome.VictorID)
	}
	if outcome.PlayersWon {
		return fmt.Sprintf("%s cleared the encounter", triggering)
	}
	return fmt.Sprintf("%s was defeated", triggering)
}

// writeBackHealthLocked distributes a surviving pooled participant's health
// back to the team's members, proportional to each member's max health. A
// living pool never rounds a member down to zero.
func (r *Room) writeBackHealthLocked(team *Team, part *battle.Participant) {
	if part.MaxHealth <= 0 {
		return
	}
	for _, memberID := range team.Members {
		p, ok := r.players[memberID]
		if !ok {
			continue
		}
		scaled := p.Stats.MaxHealth * part.Health / part.MaxHealth
		if scaled < 1 && part.Health > 0 {
			scaled = 1
		}
		p.Stats.Health = scaled
	}
}

// forfeitBattleLocked kills teamID's participant in the active battle, if
// any, after the team emptied out. The battle either concludes or resumes
// with the remaining participants.
func (r *Room) forfeitBattleLocked(teamID string) {
	if r.state != InBattle || r.battle == nil || !r.battle.Active() {
		return
	}
	part, ok := r.battle.Participant(teamID)
	if !ok || part.IsDead() {
		return
	}
	part.ApplyDamage(part.Health)
	if r.turnTimer != nil {
		r.turnTimer.Stop()
		r.turnTimer = nil
	}
	if !r.checkBattleEndLocked() {
		r.runBattleLocked()
	}
}

// eliminateTeamLocked removes a defeated team from the game: members lose
// their team assignment and the rotation is repaired.
func (r *Room) eliminateTeamLocked(teamID string) {
	team, ok := r.teams[teamID]
	if !ok {
		return
	}
	for _, memberID := range team.Members {
		if p, ok := r.players[memberID]; ok {
			p.TeamID = ""
		}
	}
	r.removeTeamLocked(teamID)
}
