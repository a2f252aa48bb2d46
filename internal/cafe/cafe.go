// internal/cafe/cafe.go

// Package cafe is the session registry: it issues lobby ids, creates
// sessions lazily on first join, tracks which sessions each client
// occupies, routes validated commands to the target session's mutators
// and pushes per-recipient view projections through a Broadcaster.
package cafe

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codepics/codepics/internal/game"
	"github.com/codepics/codepics/internal/images"
	"github.com/codepics/codepics/internal/monitor"
	"github.com/codepics/codepics/internal/protocol"
)

// Broadcaster delivers one event to one client. Sends are
// fire-and-forget from the cafe's perspective; a slow or gone client is
// the transport's problem.
type Broadcaster interface {
	Send(client uuid.UUID, event string, payload map[string]interface{})
}

// Cafe is the session registry. Its mutex guards only the registry
// structures (id counter, session map, membership map); each session
// serializes its own commands through game.Mu. The cafe acquires a
// session lock while holding its own, never the reverse.
type Cafe struct {
	logger  *logrus.Logger
	library *images.Library
	bc      Broadcaster
	metrics *monitor.Metrics

	mu          sync.Mutex
	games       map[int]*game.Game
	clientGames map[uuid.UUID]map[int]bool
	nextID      int
}

// New builds an empty registry. metrics may be nil.
func New(logger *logrus.Logger, library *images.Library, bc Broadcaster, metrics *monitor.Metrics) *Cafe {
	return &Cafe{
		logger:      logger,
		library:     library,
		bc:          bc,
		metrics:     metrics,
		games:       make(map[int]*game.Game),
		clientGames: make(map[uuid.UUID]map[int]bool),
	}
}

// Dispatch routes one validated command from a client. Rule violations
// are converted to error events for that client only; they never
// propagate to the transport as failures.
func (c *Cafe) Dispatch(client uuid.UUID, cmd protocol.Command) {
	rejected := false
	switch cmd := cmd.(type) {
	case protocol.ReserveLobby:
		id := c.ReserveLobby()
		c.bc.Send(client, "lobby_reserved", map[string]interface{}{"game_id": id})
	case protocol.Join:
		c.Join(client, cmd.GameID, cmd.Name)
	case protocol.Leave:
		c.Disconnect(client)
	case protocol.SetName:
		rejected = c.SetName(client, cmd.GameID, cmd.Name)
	case protocol.SwitchTeam:
		rejected = c.SwitchTeam(client, cmd.GameID, game.Team(cmd.Team), cmd.AsSpymaster)
	case protocol.SwitchCollection:
		rejected = c.SwitchCollection(client, cmd.GameID, cmd.Collection)
	case protocol.StartGame:
		rejected = c.StartGame(client, cmd.GameID)
	case protocol.ResetGame:
		rejected = c.ResetGame(client, cmd.GameID)
	case protocol.GiveHint:
		rejected = c.GiveHint(client, cmd.GameID, cmd.Hint, cmd.Count)
	case protocol.Vote:
		rejected = c.Vote(client, cmd.GameID, cmd.Card)
	case protocol.RevealCard:
		rejected = c.RevealCard(client, cmd.GameID, cmd.Card)
	case protocol.EndGuessing:
		rejected = c.EndGuessing(client, cmd.GameID)
	}
	c.metrics.CommandHandled(rejected)
}

// ReserveLobby issues the next session id. No session exists until the
// first join; the id is monotonic and never reissued.
func (c *Cafe) ReserveLobby() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.logger.WithField("game_id", id).Info("Reserved lobby")
	return id
}

// Join adds the client to a reserved session, creating it on first
// join. Joins naming an id the counter has not issued yet are silently
// ignored.
func (c *Cafe) Join(client uuid.UUID, gameID int, name string) {
	c.mu.Lock()
	if gameID >= c.nextID || gameID < 0 {
		c.mu.Unlock()
		c.logger.WithFields(logrus.Fields{
			"client":  client,
			"game_id": gameID,
		}).Debug("Ignoring join to unreserved lobby")
		return
	}

	g, ok := c.games[gameID]
	if !ok {
		g = game.NewGame(gameID)
		c.games[gameID] = g
		c.metrics.SessionCreated(1)
		c.logger.WithField("game_id", gameID).Info("Created game session")
	}
	if c.clientGames[client] == nil {
		c.clientGames[client] = make(map[int]bool)
	}
	c.clientGames[client][gameID] = true

	g.Mu.Lock()
	c.mu.Unlock()

	g.JoinGame(client, name)
	c.broadcastGame(g, "update_game", nil)
	c.broadcastHost(g)
	g.Mu.Unlock()
}

// Disconnect removes the client from every session it occupies,
// destroying sessions whose roster drains. Idempotent: disconnecting an
// untracked client is a no-op.
func (c *Cafe) Disconnect(client uuid.UUID) {
	c.mu.Lock()
	ids := make([]int, 0, len(c.clientGames[client]))
	for id := range c.clientGames[client] {
		ids = append(ids, id)
	}
	delete(c.clientGames, client)
	c.mu.Unlock()

	for _, id := range ids {
		c.mu.Lock()
		g, ok := c.games[id]
		if !ok {
			c.mu.Unlock()
			continue
		}

		g.Mu.Lock()
		g.LeaveGame(client)
		empty := g.NumPlayers() == 0
		if empty {
			delete(c.games, id)
			c.metrics.SessionCreated(-1)
		}
		c.mu.Unlock()

		if empty {
			c.logger.WithField("game_id", id).Info("Destroyed empty game session")
		} else {
			c.broadcastGame(g, "update_game", nil)
			c.broadcastHost(g)
		}
		g.Mu.Unlock()
	}
}

// SetName renames the client in one session.
func (c *Cafe) SetName(client uuid.UUID, gameID int, name string) bool {
	g, rejected := c.lookup(client, gameID)
	if g == nil {
		return rejected
	}
	defer g.Mu.Unlock()

	g.UpdateName(client, name)
	c.broadcastGame(g, "update_game", nil)
	return false
}

// SwitchTeam moves the client between teams or roles.
func (c *Cafe) SwitchTeam(client uuid.UUID, gameID int, team game.Team, asSpymaster bool) bool {
	g, rejected := c.lookup(client, gameID)
	if g == nil {
		return rejected
	}
	defer g.Mu.Unlock()

	g.JoinTeam(client, team, asSpymaster)
	c.broadcastGame(g, "update_teams", nil)
	return false
}

// SwitchCollection repoints the session at another asset collection.
// The board is untouched; the new pool applies on the next deal.
func (c *Cafe) SwitchCollection(client uuid.UUID, gameID int, collection string) bool {
	g, rejected := c.lookup(client, gameID)
	if g == nil {
		return rejected
	}
	defer g.Mu.Unlock()

	g.Collection = collection
	c.broadcastGame(g, "update_game", nil)
	return false
}

// StartGame deals a fresh board from the session's collection and opens
// the first spymaster turn.
func (c *Cafe) StartGame(client uuid.UUID, gameID int) bool {
	g, rejected := c.lookup(client, gameID)
	if g == nil {
		return rejected
	}
	defer g.Mu.Unlock()

	assets, ok := c.library.Get(g.Collection)
	if !ok {
		return c.reject(client, g, game.SetupError{Reason: "unknown card collection " + g.Collection})
	}

	first := game.RandomFirstTeam()
	cards, err := game.GenerateCards(first, assets)
	if err != nil {
		return c.reject(client, g, err)
	}
	if err := g.StartGame(first, cards); err != nil {
		return c.reject(client, g, err)
	}

	c.logger.WithFields(logrus.Fields{
		"game_id":    gameID,
		"first_team": first,
	}).Info("Started game")
	c.broadcastGame(g, "update_game", nil)
	return false
}

// ResetGame abandons the round and returns the session to matchmaking.
func (c *Cafe) ResetGame(client uuid.UUID, gameID int) bool {
	g, rejected := c.lookup(client, gameID)
	if g == nil {
		return rejected
	}
	defer g.Mu.Unlock()

	g.Reset()
	c.broadcastGame(g, "update_game", nil)
	return false
}

// GiveHint opens the agent turn for the hinting spymaster's team.
func (c *Cafe) GiveHint(client uuid.UUID, gameID int, hint string, count int) bool {
	g, rejected := c.lookup(client, gameID)
	if g == nil {
		return rejected
	}
	defer g.Mu.Unlock()

	if err := g.GiveHint(client, hint, count); err != nil {
		return c.reject(client, g, err)
	}
	c.broadcastGame(g, "new_turn", nil)
	return false
}

// Vote toggles the client's vote for a card.
func (c *Cafe) Vote(client uuid.UUID, gameID, card int) bool {
	g, rejected := c.lookup(client, gameID)
	if g == nil {
		return rejected
	}
	defer g.Mu.Unlock()

	if err := g.Vote(client, card); err != nil {
		return c.reject(client, g, err)
	}
	c.broadcastGame(g, "update_vote", nil)
	return false
}

// RevealCard flips a card and applies the turn transition. The flipped
// index rides along so clients can animate the reveal.
func (c *Cafe) RevealCard(client uuid.UUID, gameID, card int) bool {
	g, rejected := c.lookup(client, gameID)
	if g == nil {
		return rejected
	}
	defer g.Mu.Unlock()

	if err := g.RevealCard(client, card); err != nil {
		return c.reject(client, g, err)
	}
	c.broadcastGame(g, "update_card", map[string]interface{}{"chosen_card": card})
	return false
}

// EndGuessing voluntarily cedes the turn.
func (c *Cafe) EndGuessing(client uuid.UUID, gameID int) bool {
	g, rejected := c.lookup(client, gameID)
	if g == nil {
		return rejected
	}
	defer g.Mu.Unlock()

	if err := g.EndGuessing(client); err != nil {
		return c.reject(client, g, err)
	}
	c.broadcastGame(g, "new_turn", nil)
	return false
}

// ListGames snapshots lobby metadata for the query surface.
func (c *Cafe) ListGames() []map[string]interface{} {
	c.mu.Lock()
	games := make([]*game.Game, 0, len(c.games))
	for _, g := range c.games {
		games = append(games, g)
	}
	c.mu.Unlock()

	infos := make([]map[string]interface{}, 0, len(games))
	for _, g := range games {
		g.Mu.Lock()
		infos = append(infos, lobbyInfo(g))
		g.Mu.Unlock()
	}
	return infos
}

// ListCollections returns the available collection names, sorted.
func (c *Cafe) ListCollections() []string {
	return c.library.Names()
}

// PlayState reports the current turn state of a session.
func (c *Cafe) PlayState(gameID int) (game.PlayState, bool) {
	c.mu.Lock()
	g, ok := c.games[gameID]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.State, true
}

// lookup resolves a session id to its live session with its lock held.
// Unreserved ids are silently ignored; a reserved id with no live
// session gets an error event since the session has since drained. The
// second return reports whether the miss counts as a rejection.
func (c *Cafe) lookup(client uuid.UUID, gameID int) (*game.Game, bool) {
	c.mu.Lock()
	g, ok := c.games[gameID]
	if !ok {
		reserved := gameID >= 0 && gameID < c.nextID
		c.mu.Unlock()
		if reserved {
			c.bc.Send(client, "error", map[string]interface{}{
				"message": "game no longer exists",
			})
		}
		return nil, reserved
	}
	g.Mu.Lock()
	c.mu.Unlock()
	return g, false
}

// reject reports a rule violation to the offending client only. The
// session state is unchanged; the other members see nothing.
func (c *Cafe) reject(client uuid.UUID, g *game.Game, err error) bool {
	c.logger.WithFields(logrus.Fields{
		"client":  client,
		"game_id": g.ID,
	}).Warnf("Rejected command: %v", err)
	c.bc.Send(client, "error", map[string]interface{}{"message": err.Error()})
	return true
}

// broadcastGame sends a per-recipient projection of the session to
// every member. Callers hold g.Mu.
func (c *Cafe) broadcastGame(g *game.Game, event string, extra map[string]interface{}) {
	for member := range g.Names {
		c.bc.Send(member, event, gamePayload(g, member, extra))
	}
}

// broadcastHost tells each member whether it currently holds the host
// slot. Callers hold g.Mu.
func (c *Cafe) broadcastHost(g *game.Game) {
	for member := range g.Names {
		c.bc.Send(member, "who_is_host", map[string]interface{}{
			"is_host": member == g.Host,
		})
	}
}
