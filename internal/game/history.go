// internal/game/history.go
package game

import "github.com/google/uuid"

// HistoryEntry is one line of a session's append-only audit trail:
// hints given, cards revealed, turns ceded.
type HistoryEntry struct {
	Actor       string                 `json:"actor"`
	ActorTeam   Team                   `json:"actor_team"`
	Description string                 `json:"description"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	SubjectTeam Team                   `json:"subject_team"`
}

// record appends an audit entry for an action the client just performed.
func (g *Game) record(client uuid.UUID, description string, payload map[string]interface{}, subject Team) {
	actorTeam, _ := g.TeamOf(client)
	g.History = append(g.History, HistoryEntry{
		Actor:       g.Names[client],
		ActorTeam:   actorTeam,
		Description: description,
		Payload:     payload,
		SubjectTeam: subject,
	})
}
