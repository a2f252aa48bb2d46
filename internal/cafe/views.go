// internal/cafe/views.go
package cafe

import (
	"sort"
	"strconv"

	"github.com/google/uuid"

	"github.com/codepics/codepics/internal/game"
)

// lobbyInfo is the query-surface summary of one session.
func lobbyInfo(g *game.Game) map[string]interface{} {
	state := "playing"
	if _, ok := g.State.(game.Matchmaking); ok {
		state = "waiting"
	}
	return map[string]interface{}{
		"id":         g.ID,
		"players":    g.NumPlayers(),
		"state":      state,
		"collection": g.Collection,
	}
}

func playerInfo(g *game.Game, player, recipient uuid.UUID) map[string]interface{} {
	return map[string]interface{}{
		"name":    g.Names[player],
		"is_self": player == recipient,
	}
}

// teamInfo splits one roster into agents and spymaster for the
// recipient. Agents are sorted by name so repeated projections of the
// same state compare equal.
func teamInfo(g *game.Game, team game.Team, recipient uuid.UUID) map[string]interface{} {
	td := g.Teams[team]

	agents := make([]map[string]interface{}, 0, len(td.Members))
	for member := range td.Members {
		if member == td.Spymaster {
			continue
		}
		agents = append(agents, playerInfo(g, member, recipient))
	}
	sort.Slice(agents, func(i, j int) bool {
		return agents[i]["name"].(string) < agents[j]["name"].(string)
	})

	var spymaster interface{}
	if td.Spymaster != uuid.Nil {
		spymaster = playerInfo(g, td.Spymaster, recipient)
	}

	info := map[string]interface{}{
		"agents":    agents,
		"spymaster": spymaster,
	}
	if len(g.Cards) > 0 {
		info["cards_left"] = g.CardsLeft(team)
	}
	return info
}

// cardInfo redacts the card's team while it is face down, unless the
// projection is for a spymaster.
func cardInfo(c game.Card, spymasterView bool) map[string]interface{} {
	var team interface{}
	if !c.Hidden || spymasterView {
		team = string(c.Team)
	}
	return map[string]interface{}{
		"team":   team,
		"asset":  c.Asset,
		"hidden": c.Hidden,
	}
}

// voteInfo maps card index (stringified for JSON object keys) to the
// sorted names of its current voters.
func voteInfo(g *game.Game, actions *game.AgentActions) map[string]interface{} {
	votes := make(map[string]interface{}, len(actions.Votes))
	for idx, voters := range actions.Votes {
		names := make([]string, 0, len(voters))
		for voter := range voters {
			names = append(names, g.Names[voter])
		}
		sort.Strings(names)
		votes[strconv.Itoa(idx)] = names
	}
	return votes
}

// gameView projects the full session for one recipient. The board's
// hidden teams are visible only when the recipient holds a spymaster
// slot; every other recipient gets a redacted board on every path.
func gameView(g *game.Game, recipient uuid.UUID) map[string]interface{} {
	view := map[string]interface{}{
		"id":         g.ID,
		"collection": g.Collection,
		"play_state": g.State.String(),
		"teams": map[string]interface{}{
			"blue": teamInfo(g, game.TeamBlue, recipient),
			"red":  teamInfo(g, game.TeamRed, recipient),
		},
	}

	if len(g.Cards) > 0 {
		spymasterView := g.IsSpymaster(recipient)
		cards := make([]map[string]interface{}, len(g.Cards))
		for i, c := range g.Cards {
			cards[i] = cardInfo(c, spymasterView)
		}
		view["cards"] = cards
	}

	if at, ok := g.State.(game.AgentTurn); ok {
		view["hint"] = at.Actions.Hint
		view["max_guesses"] = at.Actions.MaxGuesses
		view["guesses"] = at.Actions.Guesses
		view["votes"] = voteInfo(g, at.Actions)
	}
	return view
}

// gamePayload wraps a recipient's game view, merging any event-specific
// extras alongside it.
func gamePayload(g *game.Game, recipient uuid.UUID, extra map[string]interface{}) map[string]interface{} {
	payload := map[string]interface{}{"game": gameView(g, recipient)}
	for k, v := range extra {
		payload[k] = v
	}
	return payload
}
