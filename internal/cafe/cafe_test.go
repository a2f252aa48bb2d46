// internal/cafe/cafe_test.go
package cafe

import (
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codepics/codepics/internal/game"
	"github.com/codepics/codepics/internal/images"
	"github.com/codepics/codepics/internal/protocol"
)

type sentEvent struct {
	client  uuid.UUID
	name    string
	payload map[string]interface{}
}

// mockBroadcaster records every event per recipient so tests can assert
// on exactly what each client would have seen.
type mockBroadcaster struct {
	mu     sync.Mutex
	events []sentEvent
}

func (m *mockBroadcaster) Send(client uuid.UUID, name string, payload map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, sentEvent{client: client, name: name, payload: payload})
}

// last returns the most recent event of the given name sent to client.
func (m *mockBroadcaster) last(client uuid.UUID, name string) map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.events) - 1; i >= 0; i-- {
		e := m.events[i]
		if e.client == client && e.name == name {
			return e.payload
		}
	}
	return nil
}

func (m *mockBroadcaster) count(client uuid.UUID, name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e.client == client && e.name == name {
			n++
		}
	}
	return n
}

func (m *mockBroadcaster) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

func testAssets(n int) []string {
	assets := make([]string, n)
	for i := range assets {
		assets[i] = fmt.Sprintf("img_%02d.png", i)
	}
	return assets
}

func newTestCafe() (*Cafe, *mockBroadcaster) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	lib := images.NewLibrary(map[string][]string{
		game.DefaultCollection: testAssets(25),
	})
	bc := &mockBroadcaster{}
	return New(logger, lib, bc, nil), bc
}

type testClients struct {
	blueSpy, blueAgent, redSpy, redAgent uuid.UUID
}

// setupLobby reserves a lobby and fills it with a ready two-versus-two
// roster.
func setupLobby(t *testing.T, c *Cafe) (int, testClients) {
	t.Helper()
	id := c.ReserveLobby()

	tc := testClients{
		blueSpy:   uuid.New(),
		blueAgent: uuid.New(),
		redSpy:    uuid.New(),
		redAgent:  uuid.New(),
	}
	c.Join(tc.blueSpy, id, "Kafka")
	c.Join(tc.blueAgent, id, "Blade")
	c.Join(tc.redSpy, id, "David")
	c.Join(tc.redAgent, id, "Smith")

	require.False(t, c.SwitchTeam(tc.blueSpy, id, game.TeamBlue, true))
	require.False(t, c.SwitchTeam(tc.blueAgent, id, game.TeamBlue, false))
	require.False(t, c.SwitchTeam(tc.redSpy, id, game.TeamRed, true))
	require.False(t, c.SwitchTeam(tc.redAgent, id, game.TeamRed, false))
	return id, tc
}

// actingSide resolves which of the test clients hold the acting team's
// spymaster and agent slots for the current round.
func actingSide(t *testing.T, c *Cafe, id int, tc testClients) (team game.Team, spy, agent uuid.UUID) {
	t.Helper()
	state, ok := c.PlayState(id)
	require.True(t, ok)
	st, ok := state.(game.SpymasterTurn)
	require.True(t, ok, "round must open on a spymaster turn, got %s", state)

	if st.Team == game.TeamBlue {
		return game.TeamBlue, tc.blueSpy, tc.blueAgent
	}
	return game.TeamRed, tc.redSpy, tc.redAgent
}

func TestReserveLobbyMonotonic(t *testing.T) {
	c, _ := newTestCafe()
	assert.Equal(t, 0, c.ReserveLobby())
	assert.Equal(t, 1, c.ReserveLobby())
	assert.Equal(t, 2, c.ReserveLobby())
}

func TestJoinUnreservedIgnored(t *testing.T) {
	c, bc := newTestCafe()
	client := uuid.New()

	c.Join(client, 5, "Kafka")
	c.Join(client, -1, "Kafka")

	assert.Empty(t, bc.events)
	assert.Empty(t, c.ListGames())
}

func TestJoinCreatesSession(t *testing.T) {
	c, bc := newTestCafe()
	id := c.ReserveLobby()
	assert.Empty(t, c.ListGames(), "reservation alone creates no session")

	first, second := uuid.New(), uuid.New()
	c.Join(first, id, "Kafka")
	c.Join(second, id, "Blade")

	games := c.ListGames()
	require.Len(t, games, 1)
	assert.Equal(t, id, games[0]["id"])
	assert.Equal(t, 2, games[0]["players"])
	assert.Equal(t, "waiting", games[0]["state"])

	assert.Equal(t, map[string]interface{}{"is_host": true}, bc.last(first, "who_is_host"))
	assert.Equal(t, map[string]interface{}{"is_host": false}, bc.last(second, "who_is_host"))
}

func TestCommandOnDrainedSession(t *testing.T) {
	c, bc := newTestCafe()
	id := c.ReserveLobby()
	client := uuid.New()
	c.Join(client, id, "Kafka")
	c.Disconnect(client)
	bc.reset()

	assert.True(t, c.StartGame(client, id), "reserved but drained id is a rejection")
	require.NotNil(t, bc.last(client, "error"))

	assert.False(t, c.StartGame(client, id+10), "unreserved id stays silent")
	assert.Equal(t, 1, bc.count(client, "error"))
}

func TestDisconnect(t *testing.T) {
	c, bc := newTestCafe()
	id := c.ReserveLobby()
	host, other := uuid.New(), uuid.New()
	c.Join(host, id, "Kafka")
	c.Join(other, id, "Blade")
	bc.reset()

	c.Disconnect(host)
	assert.Equal(t, map[string]interface{}{"is_host": true}, bc.last(other, "who_is_host"),
		"remaining member is promoted to host")

	games := c.ListGames()
	require.Len(t, games, 1)
	assert.Equal(t, 1, games[0]["players"])

	c.Disconnect(other)
	assert.Empty(t, c.ListGames(), "empty session is destroyed")

	c.Disconnect(other) // idempotent
	c.Disconnect(uuid.New())
}

func TestDisconnectSpansSessions(t *testing.T) {
	c, _ := newTestCafe()
	a, b := c.ReserveLobby(), c.ReserveLobby()
	roamer, stayer := uuid.New(), uuid.New()
	c.Join(roamer, a, "Kafka")
	c.Join(roamer, b, "Kafka")
	c.Join(stayer, b, "Blade")

	c.Disconnect(roamer)

	games := c.ListGames()
	require.Len(t, games, 1)
	assert.Equal(t, b, games[0]["id"])
}

func TestStartGameUnknownCollection(t *testing.T) {
	c, bc := newTestCafe()
	id, tc := setupLobby(t, c)
	require.False(t, c.SwitchCollection(tc.blueSpy, id, "nope"))

	assert.True(t, c.StartGame(tc.blueSpy, id))
	require.NotNil(t, bc.last(tc.blueSpy, "error"))

	state, ok := c.PlayState(id)
	require.True(t, ok)
	assert.IsType(t, game.Matchmaking{}, state, "a rejected start leaves matchmaking untouched")
}

func TestStartGameNotReady(t *testing.T) {
	c, bc := newTestCafe()
	id := c.ReserveLobby()
	alone := uuid.New()
	c.Join(alone, id, "Kafka")
	bc.reset()

	assert.True(t, c.StartGame(alone, id))
	require.NotNil(t, bc.last(alone, "error"))
	assert.Nil(t, bc.last(alone, "update_game"), "no broadcast on rejection")
}

func TestFullRound(t *testing.T) {
	c, bc := newTestCafe()
	id, tc := setupLobby(t, c)
	bc.reset()

	require.False(t, c.StartGame(tc.blueSpy, id))
	team, spy, agent := actingSide(t, c, id, tc)

	// Spymasters see every card's team; agents only the revealed ones.
	spyView := bc.last(tc.blueSpy, "update_game")["game"].(map[string]interface{})
	agentView := bc.last(tc.blueAgent, "update_game")["game"].(map[string]interface{})
	for _, card := range spyView["cards"].([]map[string]interface{}) {
		assert.NotNil(t, card["team"])
		assert.Equal(t, true, card["hidden"])
	}
	for _, card := range agentView["cards"].([]map[string]interface{}) {
		assert.Nil(t, card["team"])
	}

	blueTeams := spyView["teams"].(map[string]interface{})["blue"].(map[string]interface{})
	assert.Contains(t, blueTeams, "cards_left")

	// Agents may not hint; the acting spymaster may.
	assert.True(t, c.GiveHint(agent, id, "ocean", 2))
	require.False(t, c.GiveHint(spy, id, "ocean", 2))

	turn := bc.last(agent, "new_turn")["game"].(map[string]interface{})
	assert.Equal(t, string(team)+"_agents", turn["play_state"])
	assert.Equal(t, "ocean", turn["hint"])
	assert.Equal(t, 3, turn["max_guesses"])

	// Vote for an innocent card found via the spymaster's view, then
	// reveal it: the turn cedes to the other side.
	innocent := -1
	for i, card := range spyView["cards"].([]map[string]interface{}) {
		if card["team"] == string(game.TeamInnocent) {
			innocent = i
			break
		}
	}
	require.NotEqual(t, -1, innocent)

	require.False(t, c.Vote(agent, id, innocent))
	votes := bc.last(agent, "update_vote")["game"].(map[string]interface{})["votes"].(map[string]interface{})
	require.Len(t, votes, 1)

	require.False(t, c.RevealCard(agent, id, innocent))
	payload := bc.last(agent, "update_card")
	assert.Equal(t, innocent, payload["chosen_card"])

	flipped := payload["game"].(map[string]interface{})["cards"].([]map[string]interface{})[innocent]
	assert.Equal(t, false, flipped["hidden"])
	assert.Equal(t, string(game.TeamInnocent), flipped["team"],
		"revealed cards are visible to non-spymasters")

	state, ok := c.PlayState(id)
	require.True(t, ok)
	assert.Equal(t, game.SpymasterTurn{Team: team.Opponent()}, state)
}

func TestRejectionReachesOffenderOnly(t *testing.T) {
	c, bc := newTestCafe()
	id, tc := setupLobby(t, c)
	require.False(t, c.StartGame(tc.blueSpy, id))
	_, _, agent := actingSide(t, c, id, tc)
	bc.reset()

	assert.True(t, c.RevealCard(agent, id, 3), "reveal before any hint")
	assert.Equal(t, 1, bc.count(agent, "error"))
	for _, other := range []uuid.UUID{tc.blueSpy, tc.blueAgent, tc.redSpy, tc.redAgent} {
		if other == agent {
			continue
		}
		assert.Equal(t, 0, bc.count(other, "error"))
	}
}

func TestSetNameBroadcasts(t *testing.T) {
	c, bc := newTestCafe()
	id := c.ReserveLobby()
	client := uuid.New()
	c.Join(client, id, "Kafka")
	bc.reset()

	require.False(t, c.SetName(client, id, "Franz"))
	view := bc.last(client, "update_game")["game"].(map[string]interface{})
	blue := view["teams"].(map[string]interface{})["blue"].(map[string]interface{})
	assert.Empty(t, blue["agents"], "renaming does not move anyone onto a team")
}

func TestDispatch(t *testing.T) {
	c, bc := newTestCafe()
	client := uuid.New()

	c.Dispatch(client, protocol.ReserveLobby{})
	reserved := bc.last(client, "lobby_reserved")
	require.NotNil(t, reserved)
	id := reserved["game_id"].(int)

	c.Dispatch(client, protocol.Join{GameID: id, Name: "Kafka"})
	require.NotNil(t, bc.last(client, "update_game"))

	c.Dispatch(client, protocol.Leave{})
	assert.Empty(t, c.ListGames())
}

func TestListCollections(t *testing.T) {
	c, _ := newTestCafe()
	assert.Equal(t, []string{game.DefaultCollection}, c.ListCollections())
}
