// internal/game/deck.go
package game

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// Deck composition. The team acting first gets the extra card.
const (
	DeckSize        = 20
	firstTeamCards  = 8
	secondTeamCards = 7
	innocentCards   = 4
	assassinCards   = 1
)

// rng is the single source of game randomness, seeded from the OS
// entropy pool so the assassin's position cannot be predicted from the
// display order of previous boards. rngMu serializes draws since deals
// for unrelated sessions may run concurrently.
var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewChaCha8(chacha8Seed()))
)

func chacha8Seed() [32]byte {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		// crypto/rand never fails on supported platforms; fall back to
		// a time-independent constant only to keep tests deterministic
		// in exotic environments.
		binary.LittleEndian.PutUint64(seed[:], 0x636f646570696373)
	}
	return seed
}

// RandomFirstTeam picks which player team acts first this round.
func RandomFirstTeam() Team {
	rngMu.Lock()
	defer rngMu.Unlock()
	if rng.IntN(2) == 0 {
		return TeamBlue
	}
	return TeamRed
}

// DrawnCard pairs a card team with the index of the drawn asset.
type DrawnCard struct {
	Team  Team
	Asset int
}

// DrawCards draws 20 distinct assets from a pool of poolSize and
// assigns 8 to firstTeam, 7 to the opponent, 4 innocent bystanders and
// 1 assassin, then shuffles the display order so the assignment order
// cannot be read off the board.
func DrawCards(poolSize int, firstTeam Team) ([]DrawnCard, error) {
	if poolSize < DeckSize {
		return nil, SetupError{Reason: "asset pool must hold at least 20 entries"}
	}

	rngMu.Lock()
	drawn := rng.Perm(poolSize)[:DeckSize]

	cards := make([]DrawnCard, 0, DeckSize)
	i := 0
	take := func(team Team, n int) {
		for ; n > 0; n-- {
			cards = append(cards, DrawnCard{Team: team, Asset: drawn[i]})
			i++
		}
	}
	take(firstTeam, firstTeamCards)
	take(firstTeam.Opponent(), secondTeamCards)
	take(TeamInnocent, innocentCards)
	take(TeamAssassin, assassinCards)

	rng.Shuffle(len(cards), func(a, b int) {
		cards[a], cards[b] = cards[b], cards[a]
	})
	rngMu.Unlock()
	return cards, nil
}

// GenerateCards deals a board from a concrete asset list.
func GenerateCards(firstTeam Team, assets []string) ([]Card, error) {
	drawn, err := DrawCards(len(assets), firstTeam)
	if err != nil {
		return nil, err
	}
	cards := make([]Card, 0, DeckSize)
	for _, d := range drawn {
		cards = append(cards, Card{Team: d.Team, Asset: assets[d.Asset], Hidden: true})
	}
	return cards, nil
}
