// internal/protocol/commands.go

// Package protocol decodes and schema-checks inbound client commands
// before they reach any session or registry mutator. Validation is a
// single explicit pass: raw JSON in, either a typed command or a
// per-field error list out.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Command is a schema-validated inbound message.
type Command interface{ isCommand() }

type Join struct {
	GameID int
	Name   string
}

// Leave removes the client from every session it occupies, same as a
// transport disconnect.
type Leave struct{}

type SetName struct {
	GameID int
	Name   string
}

type SwitchTeam struct {
	GameID      int
	Team        string
	AsSpymaster bool
}

type SwitchCollection struct {
	GameID     int
	Collection string
}

type StartGame struct {
	GameID int
}

type ResetGame struct {
	GameID int
}

type GiveHint struct {
	GameID int
	Hint   string
	Count  int
}

type Vote struct {
	GameID int
	Card   int
}

type RevealCard struct {
	GameID int
	Card   int
}

type EndGuessing struct {
	GameID int
}

// ReserveLobby asks the registry to issue the next session id without
// creating a session.
type ReserveLobby struct{}

func (Join) isCommand()             {}
func (Leave) isCommand()            {}
func (SetName) isCommand()          {}
func (SwitchTeam) isCommand()       {}
func (SwitchCollection) isCommand() {}
func (StartGame) isCommand()        {}
func (ResetGame) isCommand()        {}
func (GiveHint) isCommand()         {}
func (Vote) isCommand()             {}
func (RevealCard) isCommand()       {}
func (EndGuessing) isCommand()      {}
func (ReserveLobby) isCommand()     {}

// ErrUnknownCommand is returned for a well-formed frame whose type the
// engine does not speak.
var ErrUnknownCommand = errors.New("unknown command type")

// ValidationError lists every field that failed its schema check.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid payload: " + strings.Join(parts, ", ")
}

type kind int

const (
	kindInt kind = iota
	kindString
	kindBool
	kindTeam // string restricted to "blue" or "red"
)

type schema map[string]kind

var schemas = map[string]schema{
	"join":              {"game_id": kindInt, "name": kindString},
	"leave":             {},
	"set_name":          {"game_id": kindInt, "name": kindString},
	"switch_team":       {"game_id": kindInt, "team": kindTeam, "as_spymaster": kindBool},
	"switch_collection": {"game_id": kindInt, "collection": kindString},
	"start_game":        {"game_id": kindInt},
	"reset_game":        {"game_id": kindInt},
	"give_hint":         {"game_id": kindInt, "hint": kindString, "count": kindInt},
	"vote":              {"game_id": kindInt, "card": kindInt},
	"reveal_card":       {"game_id": kindInt, "card": kindInt},
	"end_guessing":      {"game_id": kindInt},
	"reserve_lobby":     {},
}

// Parse decodes a raw frame and validates it against the schema for its
// type. The returned error is a *ValidationError for schema failures,
// ErrUnknownCommand for an unrecognized type, or a plain error for
// malformed JSON.
func Parse(data []byte) (Command, error) {
	var frame map[string]interface{}
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}

	typ, _ := frame["type"].(string)
	sch, ok := schemas[typ]
	if !ok {
		return nil, ErrUnknownCommand
	}

	parsed, verr := validate(sch, frame)
	if verr != nil {
		return nil, verr
	}
	return build(typ, parsed), nil
}

// validate checks every schema field against the frame, collecting all
// failures rather than stopping at the first.
func validate(sch schema, frame map[string]interface{}) (map[string]interface{}, *ValidationError) {
	parsed := make(map[string]interface{}, len(sch))
	fields := make(map[string]string)

	for key, k := range sch {
		val, ok := frame[key]
		if !ok {
			fields[key] = "missing field"
			continue
		}

		switch k {
		case kindString, kindTeam:
			s, ok := val.(string)
			if !ok {
				fields[key] = "not a string"
			} else if s == "" {
				fields[key] = "empty string"
			} else if k == kindTeam && s != "blue" && s != "red" {
				fields[key] = `must be "blue" or "red"`
			} else {
				parsed[key] = s
			}
		case kindInt:
			n, err := toInt(val)
			if err != nil {
				fields[key] = "not an integer"
			} else {
				parsed[key] = n
			}
		case kindBool:
			b, ok := val.(bool)
			if !ok {
				fields[key] = "not a boolean"
			} else {
				parsed[key] = b
			}
		}
	}

	if len(fields) != 0 {
		return nil, &ValidationError{Fields: fields}
	}
	return parsed, nil
}

// toInt accepts JSON numbers with no fractional part and decimal
// strings.
func toInt(val interface{}) (int, error) {
	switch v := val.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, errors.New("not integral")
		}
		return int(v), nil
	case string:
		return strconv.Atoi(v)
	default:
		return 0, errors.New("not numeric")
	}
}

func build(typ string, p map[string]interface{}) Command {
	switch typ {
	case "join":
		return Join{GameID: p["game_id"].(int), Name: p["name"].(string)}
	case "leave":
		return Leave{}
	case "set_name":
		return SetName{GameID: p["game_id"].(int), Name: p["name"].(string)}
	case "switch_team":
		return SwitchTeam{GameID: p["game_id"].(int), Team: p["team"].(string), AsSpymaster: p["as_spymaster"].(bool)}
	case "switch_collection":
		return SwitchCollection{GameID: p["game_id"].(int), Collection: p["collection"].(string)}
	case "start_game":
		return StartGame{GameID: p["game_id"].(int)}
	case "reset_game":
		return ResetGame{GameID: p["game_id"].(int)}
	case "give_hint":
		return GiveHint{GameID: p["game_id"].(int), Hint: p["hint"].(string), Count: p["count"].(int)}
	case "vote":
		return Vote{GameID: p["game_id"].(int), Card: p["card"].(int)}
	case "reveal_card":
		return RevealCard{GameID: p["game_id"].(int), Card: p["card"].(int)}
	case "end_guessing":
		return EndGuessing{GameID: p["game_id"].(int)}
	case "reserve_lobby":
		return ReserveLobby{}
	}
	return nil
}
