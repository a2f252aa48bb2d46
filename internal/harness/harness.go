// internal/harness/harness.go

// Package harness drives the public command surface with synthetic
// clients so a single developer can exercise a full round. It is wired
// in only when debug mode is on and never touches session internals.
package harness

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codepics/codepics/internal/cafe"
	"github.com/codepics/codepics/internal/game"
)

type bot struct {
	id        uuid.UUID
	name      string
	team      game.Team
	spymaster bool
}

// Harness manages synthetic clients per session. Bots go through the
// same cafe methods as real clients, so every rule guard applies to
// them too.
type Harness struct {
	logger *logrus.Logger
	cafe   *cafe.Cafe

	mu   sync.Mutex
	bots map[int][]bot
}

func New(logger *logrus.Logger, c *cafe.Cafe) *Harness {
	return &Harness{
		logger: logger,
		cafe:   c,
		bots:   make(map[int][]bot),
	}
}

// Handle consumes debug commands from a raw frame. Returns false for
// anything that is not a debug command so the caller can dispatch it
// normally.
func (h *Harness) Handle(raw []byte) bool {
	var frame struct {
		Type   string `json:"type"`
		GameID int    `json:"game_id"`
	}
	if err := json.Unmarshal(raw, &frame); err != nil {
		return false
	}
	if !strings.HasPrefix(frame.Type, "debug_") {
		return false
	}

	h.logger.WithFields(logrus.Fields{
		"type":    frame.Type,
		"game_id": frame.GameID,
	}).Info("Harness command")

	switch frame.Type {
	case "debug_fill_game":
		h.FillGame(frame.GameID)
	case "debug_give_hint":
		h.GiveHint(frame.GameID)
	case "debug_vote":
		h.VoteCard(frame.GameID)
	case "debug_reveal_card":
		h.RevealCard(frame.GameID)
	case "debug_leave_all":
		h.LeaveAll(frame.GameID)
	default:
		h.logger.Warnf("Unknown harness command %q", frame.Type)
	}
	return true
}

// FillGame joins four bots and spreads them over both teams. Spymaster
// claims follow the first-claim-wins rule, so a human already holding a
// slot keeps it and the bot stays an agent.
func (h *Harness) FillGame(gameID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.bots[gameID]; ok {
		return
	}

	bots := []bot{
		{uuid.New(), "Kafka", game.TeamBlue, true},
		{uuid.New(), "Blade", game.TeamBlue, false},
		{uuid.New(), "David", game.TeamRed, true},
		{uuid.New(), "Smith", game.TeamRed, false},
	}
	for _, b := range bots {
		h.cafe.Join(b.id, gameID, b.name)
		h.cafe.SwitchTeam(b.id, gameID, b.team, b.spymaster)
	}
	h.bots[gameID] = bots
}

// GiveHint has the acting team's bot spymaster hint. A no-op when a
// human holds that slot.
func (h *Harness) GiveHint(gameID int) {
	state, ok := h.cafe.PlayState(gameID)
	if !ok {
		return
	}
	st, ok := state.(game.SpymasterTurn)
	if !ok {
		h.logger.Warnf("debug_give_hint outside a spymaster turn (%s)", state)
		return
	}

	for _, b := range h.botsFor(gameID) {
		if b.team == st.Team && b.spymaster {
			h.cafe.GiveHint(b.id, gameID, "machine", 2)
			return
		}
	}
}

// VoteCard has an acting-team bot agent vote for the first card the
// rules allow.
func (h *Harness) VoteCard(gameID int) {
	h.agentAct(gameID, func(b bot, idx int) bool {
		return h.cafe.Vote(b.id, gameID, idx)
	})
}

// RevealCard has an acting-team bot agent reveal the first card the
// rules allow.
func (h *Harness) RevealCard(gameID int) {
	h.agentAct(gameID, func(b bot, idx int) bool {
		return h.cafe.RevealCard(b.id, gameID, idx)
	})
}

// LeaveAll disconnects every bot in the session.
func (h *Harness) LeaveAll(gameID int) {
	h.mu.Lock()
	bots := h.bots[gameID]
	delete(h.bots, gameID)
	h.mu.Unlock()

	for _, b := range bots {
		h.cafe.Disconnect(b.id)
	}
}

func (h *Harness) botsFor(gameID int) []bot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bots[gameID]
}

// agentAct probes card indices through the public surface until one
// passes the board guards. act reports rejection.
func (h *Harness) agentAct(gameID int, act func(b bot, idx int) bool) {
	state, ok := h.cafe.PlayState(gameID)
	if !ok {
		return
	}
	at, ok := state.(game.AgentTurn)
	if !ok {
		h.logger.Warnf("harness agent action outside an agent turn (%s)", state)
		return
	}

	for _, b := range h.botsFor(gameID) {
		if b.team != at.Team || b.spymaster {
			continue
		}
		for idx := 0; idx < game.DeckSize; idx++ {
			if !act(b, idx) {
				return
			}
		}
		return
	}
}
