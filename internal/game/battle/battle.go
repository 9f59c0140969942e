// Package battle implements the authoritative combat engine: participant
// turn ordering, action resolution, and win/loss determination for one
// encounter.
package battle

import (
	"sort"

	"github.com/kestrel-games/waygate/internal/game/dice"
)

// Kind distinguishes the two battle forms.
type Kind int

const (
	// PlayerVsEnemy pits human-controlled teams against AI entities.
	PlayerVsEnemy Kind = iota
	// TeamVsTeam pits human-controlled teams against each other.
	TeamVsTeam
)

// basePriorityRange is the half-open range of the random base priority draw.
const basePriorityRange = 100

// aiDifficultyBonus is the additive priority bonus per difficulty level for
// AI-controlled participants.
const aiDifficultyBonus = 10

// Participant represents one entity with health taking part in a battle:
// a human-controlled team or an AI-controlled enemy.
type Participant struct {
	ID   string
	Name string
	// AI is true for server-controlled participants.
	AI        bool
	Health    int
	MaxHealth int
}

// IsDead reports whether the participant is out of the fight.
func (p *Participant) IsDead() bool { return p.Health <= 0 }

// ApplyDamage reduces Health by amount, flooring at zero.
//
// Precondition: amount >= 0.
// Postcondition: Health >= 0.
func (p *Participant) ApplyDamage(amount int) {
	p.Health -= amount
	if p.Health < 0 {
		p.Health = 0
	}
}

// Heal restores Health by amount, capped at MaxHealth. Healing a dead
// participant has no effect.
//
// Precondition: amount >= 0.
func (p *Participant) Heal(amount int) {
	if p.IsDead() {
		return
	}
	p.Health += amount
	if p.Health > p.MaxHealth {
		p.Health = p.MaxHealth
	}
}

// status is an applied status effect with its remaining duration in turns.
type status struct {
	name      string
	remaining int
}

// Battle holds the live state of one encounter. Battle is not synchronized;
// the owning room serializes all access, including timer callbacks.
type Battle struct {
	kind         Kind
	order        []string
	participants map[string]*Participant
	turnIndex    int
	active       bool

	// epoch increments every time a turn is consumed. The turn timer
	// captures it when armed so a late fire can detect that the turn it
	// guarded has already been taken.
	epoch uint64

	// statuses maps participant id to its active status effects.
	statuses map[string][]status
	// taunts maps participant id to the id of the participant currently
	// taunting it.
	taunts map[string]string
}

// New creates a Battle over the given participants and builds the turn
// sequence: every participant draws a random base priority in
// [0, basePriorityRange); AI participants add difficulty*aiDifficultyBonus;
// the sequence is sorted ascending by that score, ties resolved by the draw
// itself with no secondary key.
//
// Precondition: at least 2 participants; src must be non-nil; difficulty >= 0.
// Postcondition: The battle is active and Order() contains every participant
// exactly once.
func New(kind Kind, participants []*Participant, difficulty int, src dice.Source) *Battle {
	type scored struct {
		id    string
		score int
	}
	draws := make([]scored, 0, len(participants))
	index := make(map[string]*Participant, len(participants))
	for _, p := range participants {
		score := src.Intn(basePriorityRange)
		if p.AI {
			score += difficulty * aiDifficultyBonus
		}
		draws = append(draws, scored{id: p.ID, score: score})
		index[p.ID] = p
	}
	sort.SliceStable(draws, func(i, j int) bool { return draws[i].score < draws[j].score })

	order := make([]string, len(draws))
	for i, d := range draws {
		order[i] = d.id
	}

	return &Battle{
		kind:         kind,
		order:        order,
		participants: index,
		active:       true,
		statuses:     make(map[string][]status),
		taunts:       make(map[string]string),
	}
}

// Kind returns the battle form.
func (b *Battle) Kind() Kind { return b.kind }

// Active reports whether the battle is still undecided.
func (b *Battle) Active() bool { return b.active }

// Epoch returns the current turn epoch. See the epoch field.
func (b *Battle) Epoch() uint64 { return b.epoch }

// Order returns the turn sequence of participant ids.
func (b *Battle) Order() []string {
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// Participant returns the participant with the given id.
//
// Postcondition: Returns (participant, true) if found, or (nil, false).
func (b *Battle) Participant(id string) (*Participant, bool) {
	p, ok := b.participants[id]
	return p, ok
}

// HealthSnapshot returns a copy of every participant's current health.
func (b *Battle) HealthSnapshot() map[string]int {
	out := make(map[string]int, len(b.participants))
	for id, p := range b.participants {
		out[id] = p.Health
	}
	return out
}

// Current returns the participant whose turn it is, advancing past dead
// participants. The scan is bounded by the turn-sequence length; if every
// participant is dead it returns nil (end-condition checks normally catch
// this before it can occur).
//
// Postcondition: Returns a living participant, or nil if none remain.
func (b *Battle) Current() *Participant {
	for range b.order {
		p := b.participants[b.order[b.turnIndex]]
		if !p.IsDead() {
			return p
		}
		b.turnIndex = (b.turnIndex + 1) % len(b.order)
	}
	return nil
}

// Advance consumes the current turn: expires the actor's statuses by one
// turn, moves to the next participant in the sequence, and bumps the epoch.
func (b *Battle) Advance() {
	b.tickStatuses(b.order[b.turnIndex])
	b.turnIndex = (b.turnIndex + 1) % len(b.order)
	b.epoch++
}

// tickStatuses decrements the remaining duration of id's statuses and drops
// the expired ones, including any taunt aimed at id.
func (b *Battle) tickStatuses(id string) {
	var kept []status
	for _, s := range b.statuses[id] {
		s.remaining--
		if s.remaining > 0 {
			kept = append(kept, s)
		} else if s.name == tauntStatus {
			delete(b.taunts, id)
		}
	}
	if len(kept) == 0 {
		delete(b.statuses, id)
	} else {
		b.statuses[id] = kept
	}
}

// HasStatus reports whether the participant currently has the named status.
func (b *Battle) HasStatus(id, name string) bool {
	for _, s := range b.statuses[id] {
		if s.name == name {
			return true
		}
	}
	return false
}

// TauntedBy returns the id of the participant taunting id, if any.
func (b *Battle) TauntedBy(id string) (string, bool) {
	by, ok := b.taunts[id]
	return by, ok
}

// ValidTargets returns the participants actor may aim an action at: never
// itself, never a dead participant; in player-vs-enemy battles only the
// opposing side (human vs AI); in team-vs-team battles any other survivor.
//
// Postcondition: Every returned id names a living participant != actor.
func (b *Battle) ValidTargets(actorID string) []string {
	actor, ok := b.participants[actorID]
	if !ok {
		return nil
	}
	var targets []string
	for _, id := range b.order {
		p := b.participants[id]
		if id == actorID || p.IsDead() {
			continue
		}
		if b.kind == PlayerVsEnemy && p.AI == actor.AI {
			continue
		}
		targets = append(targets, id)
	}
	return targets
}

// ValidAllies returns the participants actor may aim a supportive action at:
// itself, plus every living participant on its own side in player-vs-enemy
// battles. In team-vs-team battles each participant is its own side, so the
// actor alone qualifies.
//
// Postcondition: Every returned id names a living participant; the actor is
// always included.
func (b *Battle) ValidAllies(actorID string) []string {
	actor, ok := b.participants[actorID]
	if !ok {
		return nil
	}
	var allies []string
	for _, id := range b.order {
		p := b.participants[id]
		if p.IsDead() {
			continue
		}
		if id == actorID || (b.kind == PlayerVsEnemy && p.AI == actor.AI) {
			allies = append(allies, id)
		}
	}
	return allies
}

// Outcome is the result of a concluded battle.
type Outcome struct {
	// VictorID names the winning participant or side.
	VictorID string
	// PlayersWon is true when the human-controlled side prevailed.
	PlayersWon bool
}

// CheckEnd evaluates the end condition. In player-vs-enemy battles the
// battle ends when every AI participant is dead (victory) or every human
// participant is dead (defeat); in team-vs-team battles when at most one
// participant survives. On end the battle becomes inactive.
//
// Postcondition: Returns (outcome, true) and Active() == false when the
// battle is over, or (Outcome{}, false) otherwise.
func (b *Battle) CheckEnd() (Outcome, bool) {
	if !b.active {
		return Outcome{}, false
	}
	switch b.kind {
	case PlayerVsEnemy:
		aiAlive, humanAlive := false, false
		var lastHuman, lastAI string
		for id, p := range b.participants {
			if p.IsDead() {
				continue
			}
			if p.AI {
				aiAlive = true
				lastAI = id
			} else {
				humanAlive = true
				lastHuman = id
			}
		}
		if !aiAlive {
			b.active = false
			return Outcome{VictorID: lastHuman, PlayersWon: true}, true
		}
		if !humanAlive {
			b.active = false
			return Outcome{VictorID: lastAI, PlayersWon: false}, true
		}
	case TeamVsTeam:
		var survivors []string
		for _, id := range b.order {
			if !b.participants[id].IsDead() {
				survivors = append(survivors, id)
			}
		}
		if len(survivors) <= 1 {
			b.active = false
			out := Outcome{}
			if len(survivors) == 1 {
				out.VictorID = survivors[0]
				out.PlayersWon = !b.participants[survivors[0]].AI
			}
			return out, true
		}
	}
	return Outcome{}, false
}
