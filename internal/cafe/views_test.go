// internal/cafe/views_test.go
package cafe

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codepics/codepics/internal/game"
)

// orderedCards deals a deterministic board: blue 0-7, red 8-14,
// innocent 15-18, assassin 19.
func orderedCards() []game.Card {
	cards := make([]game.Card, 0, game.DeckSize)
	add := func(team game.Team, n int) {
		for i := 0; i < n; i++ {
			cards = append(cards, game.Card{
				Team:   team,
				Asset:  fmt.Sprintf("img_%02d.png", len(cards)),
				Hidden: true,
			})
		}
	}
	add(game.TeamBlue, 8)
	add(game.TeamRed, 7)
	add(game.TeamInnocent, 4)
	add(game.TeamAssassin, 1)
	return cards
}

func viewTestGame(t *testing.T) (*game.Game, testClients) {
	t.Helper()
	g := game.NewGame(0)
	tc := testClients{
		blueSpy:   uuid.New(),
		blueAgent: uuid.New(),
		redSpy:    uuid.New(),
		redAgent:  uuid.New(),
	}
	g.JoinGame(tc.blueSpy, "Kafka")
	g.JoinGame(tc.blueAgent, "Blade")
	g.JoinGame(tc.redSpy, "David")
	g.JoinGame(tc.redAgent, "Smith")
	g.JoinTeam(tc.blueSpy, game.TeamBlue, true)
	g.JoinTeam(tc.blueAgent, game.TeamBlue, false)
	g.JoinTeam(tc.redSpy, game.TeamRed, true)
	g.JoinTeam(tc.redAgent, game.TeamRed, false)
	return g, tc
}

func TestLobbyInfo(t *testing.T) {
	g, _ := viewTestGame(t)
	info := lobbyInfo(g)
	assert.Equal(t, "waiting", info["state"])
	assert.Equal(t, 4, info["players"])

	require.NoError(t, g.StartGame(game.TeamBlue, orderedCards()))
	assert.Equal(t, "playing", lobbyInfo(g)["state"])
}

func TestTeamInfoSplitsRoster(t *testing.T) {
	g, tc := viewTestGame(t)

	blue := teamInfo(g, game.TeamBlue, tc.blueAgent)
	spymaster := blue["spymaster"].(map[string]interface{})
	assert.Equal(t, "Kafka", spymaster["name"])
	assert.Equal(t, false, spymaster["is_self"])

	agents := blue["agents"].([]map[string]interface{})
	require.Len(t, agents, 1)
	assert.Equal(t, "Blade", agents[0]["name"])
	assert.Equal(t, true, agents[0]["is_self"])

	assert.NotContains(t, blue, "cards_left", "no board yet")

	g.LeaveTeams(tc.blueSpy)
	assert.Nil(t, teamInfo(g, game.TeamBlue, tc.blueAgent)["spymaster"])
}

func TestGameViewRedaction(t *testing.T) {
	g, tc := viewTestGame(t)
	require.NoError(t, g.StartGame(game.TeamBlue, orderedCards()))
	require.NoError(t, g.GiveHint(tc.blueSpy, "ocean", 1))
	require.NoError(t, g.RevealCard(tc.blueAgent, 0))

	for _, spy := range []uuid.UUID{tc.blueSpy, tc.redSpy} {
		cards := gameView(g, spy)["cards"].([]map[string]interface{})
		for i, card := range cards {
			assert.NotNil(t, card["team"], "spymasters see card %d", i)
		}
	}

	cards := gameView(g, tc.redAgent)["cards"].([]map[string]interface{})
	assert.Equal(t, string(game.TeamBlue), cards[0]["team"], "revealed card is public")
	for _, card := range cards[1:] {
		assert.Nil(t, card["team"])
		assert.Equal(t, true, card["hidden"])
	}
}

func TestGameViewAgentTurnFields(t *testing.T) {
	g, tc := viewTestGame(t)
	require.NoError(t, g.StartGame(game.TeamRed, orderedCards()))

	view := gameView(g, tc.redAgent)
	assert.NotContains(t, view, "votes", "no vote data outside an agent turn")
	assert.NotContains(t, view, "hint")

	require.NoError(t, g.GiveHint(tc.redSpy, "metal", 2))
	require.NoError(t, g.Vote(tc.redAgent, 9))

	view = gameView(g, tc.blueAgent)
	assert.Equal(t, "metal", view["hint"])
	assert.Equal(t, 0, view["guesses"])
	votes := view["votes"].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"9": []string{"Smith"}}, votes)
}

func TestGameViewCardsLeft(t *testing.T) {
	g, tc := viewTestGame(t)
	require.NoError(t, g.StartGame(game.TeamBlue, orderedCards()))
	require.NoError(t, g.GiveHint(tc.blueSpy, "ocean", 2))
	require.NoError(t, g.RevealCard(tc.blueAgent, 0))

	teams := gameView(g, tc.blueAgent)["teams"].(map[string]interface{})
	assert.Equal(t, 7, teams["blue"].(map[string]interface{})["cards_left"])
	assert.Equal(t, 7, teams["red"].(map[string]interface{})["cards_left"])
}
