// internal/game/game.go
package game

import (
	"sync"

	"github.com/google/uuid"
)

// Team identifies a card affiliation. Blue and red are the two player
// teams; innocent and assassin exist only on cards.
type Team string

const (
	TeamBlue     Team = "blue"
	TeamRed      Team = "red"
	TeamInnocent Team = "innocent"
	TeamAssassin Team = "assassin"
)

// Playable reports whether the team can have members.
func (t Team) Playable() bool {
	return t == TeamBlue || t == TeamRed
}

// Opponent returns the opposing player team. Only meaningful for
// playable teams.
func (t Team) Opponent() Team {
	if t == TeamBlue {
		return TeamRed
	}
	return TeamBlue
}

// Card is one board position: its true affiliation, the asset shown to
// players, and whether it is still face down.
type Card struct {
	Team   Team   `json:"team"`
	Asset  string `json:"asset"`
	Hidden bool   `json:"hidden"`
}

// TeamData tracks one player team's roster. The spymaster, when
// assigned, is also present in Members.
type TeamData struct {
	Members   map[uuid.UUID]bool
	Spymaster uuid.UUID // uuid.Nil when unassigned
}

func newTeamData() *TeamData {
	return &TeamData{Members: make(map[uuid.UUID]bool)}
}

// Ready reports whether the team can start a round: a spymaster plus at
// least one agent.
func (td *TeamData) Ready() bool {
	return td.Spymaster != uuid.Nil && len(td.Members) >= 2
}

// AgentActions is the transient per-turn payload created on every hint
// and discarded on every turn transition.
type AgentActions struct {
	Hint       string
	MaxGuesses int
	Guesses    int
	// Votes maps card index -> set of clients currently voting for it.
	Votes map[int]map[uuid.UUID]bool
}

// NewAgentActions builds the payload for a fresh agent turn. The team
// is granted one guess beyond the declared count.
func NewAgentActions(hint string, count int) *AgentActions {
	return &AgentActions{
		Hint:       hint,
		MaxGuesses: count + 1,
		Votes:      make(map[int]map[uuid.UUID]bool),
	}
}

// PlayState is a closed union over the four turn states. Every
// transition replaces the value wholesale; a retired state is never
// mutated afterwards.
type PlayState interface {
	isPlayState()
	String() string
}

// Matchmaking is the initial state and the target of every reset.
type Matchmaking struct{}

// SpymasterTurn awaits a hint from the team's spymaster.
type SpymasterTurn struct {
	Team Team
}

// AgentTurn lets the team's agents vote, reveal cards, or cede the turn.
type AgentTurn struct {
	Team    Team
	Actions *AgentActions
}

// Win ends the round; Team is the winner.
type Win struct {
	Team Team
}

func (Matchmaking) isPlayState()   {}
func (SpymasterTurn) isPlayState() {}
func (AgentTurn) isPlayState()     {}
func (Win) isPlayState()           {}

func (Matchmaking) String() string     { return "matchmaking" }
func (s SpymasterTurn) String() string { return string(s.Team) + "_spymaster" }
func (s AgentTurn) String() string     { return string(s.Team) + "_agents" }
func (s Win) String() string           { return string(s.Team) + "_win" }

// DefaultCollection is the asset collection a new session points at
// until switch_collection changes it.
const DefaultCollection = "classic"

// Game is the authoritative state of one session: roster, teams, board,
// play state and action history.
//
// Game performs no locking of its own. Callers serialize access through
// Mu; the cafe holds it for the full span of a command so no command
// ever observes a partially mutated session.
type Game struct {
	ID         int
	Collection string

	Names map[uuid.UUID]string
	Host  uuid.UUID

	Teams map[Team]*TeamData
	Cards []Card
	State PlayState

	History []HistoryEntry

	Mu sync.Mutex
}

// NewGame builds an empty session in matchmaking.
func NewGame(id int) *Game {
	return &Game{
		ID:         id,
		Collection: DefaultCollection,
		Names:      make(map[uuid.UUID]string),
		State:      Matchmaking{},
		Teams: map[Team]*TeamData{
			TeamBlue: newTeamData(),
			TeamRed:  newTeamData(),
		},
	}
}

// NumPlayers returns the size of the roster.
func (g *Game) NumPlayers() int {
	return len(g.Names)
}

// HasPlayer reports whether the client has joined this session.
func (g *Game) HasPlayer(client uuid.UUID) bool {
	_, ok := g.Names[client]
	return ok
}

// UpdateName renames a joined client. Unknown clients are ignored.
func (g *Game) UpdateName(client uuid.UUID, name string) {
	if _, ok := g.Names[client]; ok {
		g.Names[client] = name
	}
}

// JoinGame adds the client to the roster. The first joiner becomes host.
func (g *Game) JoinGame(client uuid.UUID, name string) {
	g.Names[client] = name
	if g.Host == uuid.Nil {
		g.Host = client
	}
}

// LeaveGame removes the client from the roster and both teams. If the
// leaver was host, an arbitrary remaining member is promoted, or the
// host slot is cleared when the roster is empty.
func (g *Game) LeaveGame(client uuid.UUID) {
	g.LeaveTeams(client)
	delete(g.Names, client)

	if client == g.Host {
		g.Host = uuid.Nil
		for c := range g.Names {
			g.Host = c
			break
		}
	}
}

// JoinTeam moves a joined client onto a player team. The client is
// first removed from both teams and any spymaster slot it held. With
// asSpymaster set, the slot is claimed only if unoccupied: the first
// claim wins and a later claimant stays a plain agent.
func (g *Game) JoinTeam(client uuid.UUID, team Team, asSpymaster bool) {
	if !g.HasPlayer(client) || !team.Playable() {
		return
	}

	g.LeaveTeams(client)

	td := g.Teams[team]
	td.Members[client] = true
	if asSpymaster && td.Spymaster == uuid.Nil {
		td.Spymaster = client
	}
}

// LeaveTeams clears the client's membership and spymaster claim on both
// teams.
func (g *Game) LeaveTeams(client uuid.UUID) {
	for _, td := range g.Teams {
		delete(td.Members, client)
		if td.Spymaster == client {
			td.Spymaster = uuid.Nil
		}
	}
}

// TeamOf returns the player team the client belongs to.
func (g *Game) TeamOf(client uuid.UUID) (Team, bool) {
	for t, td := range g.Teams {
		if td.Members[client] {
			return t, true
		}
	}
	return "", false
}

// IsSpymaster reports whether the client holds either spymaster slot.
func (g *Game) IsSpymaster(client uuid.UUID) bool {
	if client == uuid.Nil {
		return false
	}
	return g.Teams[TeamBlue].Spymaster == client || g.Teams[TeamRed].Spymaster == client
}

// CardsLeft counts the team's cards still face down.
func (g *Game) CardsLeft(team Team) int {
	n := 0
	for _, c := range g.Cards {
		if c.Team == team && c.Hidden {
			n++
		}
	}
	return n
}

// StartGame activates a dealt board and opens the first spymaster turn.
// Only legal from matchmaking or a finished round, with both teams
// ready and a deck matching the 8/7/4/1 split for firstTeam.
func (g *Game) StartGame(firstTeam Team, cards []Card) error {
	switch g.State.(type) {
	case Matchmaking, Win:
	default:
		return SetupError{Reason: "game already in progress"}
	}

	if !g.Teams[TeamBlue].Ready() || !g.Teams[TeamRed].Ready() {
		return SetupError{Reason: "both teams need a spymaster and at least two members"}
	}
	if err := checkDeck(firstTeam, cards); err != nil {
		return err
	}

	g.Cards = cards
	g.State = SpymasterTurn{Team: firstTeam}
	return nil
}

// checkDeck re-validates the deck generator's contract before a board
// goes live.
func checkDeck(firstTeam Team, cards []Card) error {
	if !firstTeam.Playable() {
		return SetupError{Reason: "first team must be blue or red"}
	}
	if len(cards) != DeckSize {
		return SetupError{Reason: "board must hold exactly 20 cards"}
	}
	counts := make(map[Team]int)
	for _, c := range cards {
		counts[c.Team]++
	}
	if counts[firstTeam] != firstTeamCards ||
		counts[firstTeam.Opponent()] != secondTeamCards ||
		counts[TeamInnocent] != innocentCards ||
		counts[TeamAssassin] != assassinCards {
		return SetupError{Reason: "malformed deck: expected an 8/7/4/1 split"}
	}
	return nil
}

// Reset abandons any round in progress and returns to matchmaking.
func (g *Game) Reset() {
	g.Cards = nil
	g.State = Matchmaking{}
}

// GiveHint opens the agent turn for the hinting spymaster's team.
func (g *Game) GiveHint(client uuid.UUID, hint string, count int) error {
	st, ok := g.State.(SpymasterTurn)
	if !ok {
		return TurnError{Expected: "spymaster turn", State: g.State}
	}
	if g.Teams[st.Team].Spymaster != client {
		return ActionError{Reason: "only the acting team's spymaster may give a hint"}
	}

	g.State = AgentTurn{Team: st.Team, Actions: NewAgentActions(hint, count)}
	g.record(client, "gave a hint", map[string]interface{}{"hint": hint, "count": count}, st.Team)
	return nil
}

// agentGuard enforces the membership, role and board checks shared by
// vote and reveal_card.
func (g *Game) agentGuard(client uuid.UUID, cardIdx int) (AgentTurn, error) {
	st, ok := g.State.(AgentTurn)
	if !ok {
		return AgentTurn{}, TurnError{Expected: "agent turn", State: g.State}
	}
	if !g.Teams[st.Team].Members[client] {
		return AgentTurn{}, TurnError{Expected: "acting team membership", State: g.State}
	}
	if g.Teams[st.Team].Spymaster == client {
		return AgentTurn{}, ActionError{Reason: "the spymaster may not act as an agent"}
	}
	if cardIdx < 0 || cardIdx >= len(g.Cards) {
		return AgentTurn{}, ActionError{Reason: "card index out of range"}
	}
	if !g.Cards[cardIdx].Hidden {
		return AgentTurn{}, ActionError{Reason: "card is already revealed"}
	}
	return st, nil
}

// Vote toggles the client's vote for a card. Votes coordinate agents
// and carry no authority; they never change the play state.
func (g *Game) Vote(client uuid.UUID, cardIdx int) error {
	st, err := g.agentGuard(client, cardIdx)
	if err != nil {
		return err
	}

	voters, ok := st.Actions.Votes[cardIdx]
	if !ok {
		voters = make(map[uuid.UUID]bool)
		st.Actions.Votes[cardIdx] = voters
	}
	if voters[client] {
		delete(voters, client)
		if len(voters) == 0 {
			delete(st.Actions.Votes, cardIdx)
		}
	} else {
		voters[client] = true
	}
	return nil
}

// RevealCard flips a card face up and applies the transition table.
// The assassin ends the round against the revealing team regardless of
// the remaining guess budget; a foreign or innocent card cedes the
// turn; an own-team card consumes one guess and cedes the turn once the
// budget (declared count plus one) is exhausted.
func (g *Game) RevealCard(client uuid.UUID, cardIdx int) error {
	st, err := g.agentGuard(client, cardIdx)
	if err != nil {
		return err
	}

	card := &g.Cards[cardIdx]
	card.Hidden = false
	delete(st.Actions.Votes, cardIdx)
	g.record(client, "revealed a card", map[string]interface{}{"card": cardIdx}, card.Team)

	switch card.Team {
	case TeamAssassin:
		g.State = Win{Team: st.Team.Opponent()}
	case st.Team:
		st.Actions.Guesses++
		if st.Actions.Guesses > st.Actions.MaxGuesses {
			g.State = SpymasterTurn{Team: st.Team.Opponent()}
		} else {
			g.State = st
		}
	default: // innocent bystander or the other team's card
		g.State = SpymasterTurn{Team: st.Team.Opponent()}
	}
	return nil
}

// EndGuessing voluntarily cedes the turn to the other team's spymaster.
func (g *Game) EndGuessing(client uuid.UUID) error {
	st, ok := g.State.(AgentTurn)
	if !ok {
		return TurnError{Expected: "agent turn", State: g.State}
	}
	if !g.Teams[st.Team].Members[client] {
		return TurnError{Expected: "acting team membership", State: g.State}
	}
	if g.Teams[st.Team].Spymaster == client {
		return ActionError{Reason: "the spymaster may not act as an agent"}
	}

	g.State = SpymasterTurn{Team: st.Team.Opponent()}
	g.record(client, "ended guessing", nil, st.Team)
	return nil
}
