// internal/game/deck_test.go
package game

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrawCardsComposition(t *testing.T) {
	for _, firstTeam := range []Team{TeamBlue, TeamRed} {
		t.Run(string(firstTeam), func(t *testing.T) {
			for i := 0; i < 50; i++ {
				cards, err := DrawCards(40, firstTeam)
				require.NoError(t, err)
				require.Len(t, cards, DeckSize)

				counts := make(map[Team]int)
				seen := make(map[int]bool)
				for _, c := range cards {
					counts[c.Team]++
					assert.False(t, seen[c.Asset], "asset %d drawn twice", c.Asset)
					seen[c.Asset] = true
					assert.GreaterOrEqual(t, c.Asset, 0)
					assert.Less(t, c.Asset, 40)
				}
				assert.Equal(t, 8, counts[firstTeam])
				assert.Equal(t, 7, counts[firstTeam.Opponent()])
				assert.Equal(t, 4, counts[TeamInnocent])
				assert.Equal(t, 1, counts[TeamAssassin])
			}
		})
	}
}

func TestDrawCardsPoolTooSmall(t *testing.T) {
	_, err := DrawCards(19, TeamBlue)
	assert.ErrorAs(t, err, &SetupError{})

	_, err = DrawCards(0, TeamBlue)
	assert.ErrorAs(t, err, &SetupError{})

	_, err = DrawCards(20, TeamBlue)
	assert.NoError(t, err)
}

func TestGenerateCards(t *testing.T) {
	assets := make([]string, 25)
	for i := range assets {
		assets[i] = fmt.Sprintf("img_%02d.jpg", i)
	}

	cards, err := GenerateCards(TeamRed, assets)
	require.NoError(t, err)
	require.Len(t, cards, DeckSize)

	seen := make(map[string]bool)
	for _, c := range cards {
		assert.True(t, c.Hidden)
		assert.Contains(t, assets, c.Asset)
		assert.False(t, seen[c.Asset])
		seen[c.Asset] = true
	}

	_, err = GenerateCards(TeamRed, assets[:10])
	assert.ErrorAs(t, err, &SetupError{})
}

func TestRandomFirstTeamIsPlayable(t *testing.T) {
	seen := make(map[Team]bool)
	for i := 0; i < 200; i++ {
		team := RandomFirstTeam()
		require.True(t, team.Playable())
		seen[team] = true
	}
	// 200 flips landing on one side only is a broken generator.
	assert.Len(t, seen, 2)
}
