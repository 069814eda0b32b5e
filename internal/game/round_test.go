// internal/game/round_test.go
package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyatikantrop/pyatikantrop/internal/deck"
)

// assertConservation verifies that the union of draw pile, discard pile and
// both hands is the full 36-card deck, each card exactly once.
func assertConservation(t *testing.T, r *Round) {
	t.Helper()
	seen := make(map[deck.Card]int)
	for _, c := range r.Draw {
		seen[c]++
	}
	for _, c := range r.Discard {
		seen[c]++
	}
	for _, c := range r.Hands[0] {
		seen[c]++
	}
	for _, c := range r.Hands[1] {
		seen[c]++
	}
	require.Len(t, seen, 36, "cards lost or duplicated")
	for c, n := range seen {
		require.Equal(t, 1, n, "card %s appears %d times", c, n)
	}
}

func TestStartRoundDeterminism(t *testing.T) {
	a := StartRound(nil, 7)
	b := StartRound(nil, 7)
	assert.Equal(t, a, b, "identical seeds must deal identical rounds")
	assertConservation(t, a)

	c := StartRound(nil, 8)
	assert.NotEqual(t, a.Hands, c.Hands)
}

func TestStartRoundFresh(t *testing.T) {
	r := StartRound(nil, 3) // seed 3 reveals a plain 8♣ upcard
	assert.Equal(t, Seat0, r.Starter)
	assert.Equal(t, Seat0, r.Current)
	assert.Equal(t, [2]int{0, 0}, r.Banks)
	assert.Len(t, r.Hands[0], HandSize)
	assert.Len(t, r.Hands[1], HandSize)
	assert.Len(t, r.Discard, 1)
	assert.Equal(t, card(deck.Eight, deck.Clubs), *r.TopCard())
	assert.False(t, r.MustChooseSuit)
	assert.Nil(t, r.Chain)
	assertConservation(t, r)
}

func TestStartRoundSixUpcard(t *testing.T) {
	// Seed 1 reveals 6♥: the starter's opponent draws two right away and the
	// turn stays with the starter.
	r := StartRound(nil, 1)
	require.Equal(t, card(deck.Six, deck.Hearts), *r.TopCard())
	assert.Len(t, r.Hands[0], HandSize)
	assert.Len(t, r.Hands[1], HandSize+2)
	assert.Equal(t, Seat0, r.Current)
	assert.Nil(t, r.Chain, "a starting 6 draws immediately, it does not open a chain")
	assertConservation(t, r)
}

func TestStartRoundSevenUpcard(t *testing.T) {
	// Seed 2 reveals 7♦.
	r := StartRound(nil, 2)
	require.Equal(t, card(deck.Seven, deck.Diamonds), *r.TopCard())
	assert.Len(t, r.Hands[1], HandSize+1)
	assert.Equal(t, Seat0, r.Current)
	assertConservation(t, r)
}

func TestStartRoundNineUpcard(t *testing.T) {
	// Seed 5 reveals 9♥: the starter must declare a suit before anything else.
	r := StartRound(nil, 5)
	require.Equal(t, card(deck.Nine, deck.Hearts), *r.TopCard())
	require.True(t, r.MustChooseSuit)
	assert.Equal(t, Seat0, r.Current)

	// Nothing moves until the choice is committed.
	assert.False(t, r.PlayCard(Seat0, r.Hands[0][0]))
	assert.False(t, r.DrawIfNoMove(Seat0))
	assert.False(t, r.ConfirmSuit(Seat0), "confirm requires a declared suit")

	assert.True(t, r.ChooseSuit(Seat0, deck.Diamonds))
	assert.True(t, r.MustChooseSuit, "choice stays open until confirmed")
	assert.True(t, r.ChooseSuit(Seat0, deck.Clubs), "re-picking is allowed")
	assert.True(t, r.ConfirmSuit(Seat0))
	assert.False(t, r.MustChooseSuit)
	assert.Equal(t, deck.Clubs, r.ChosenSuit)
	assert.Equal(t, Seat1, r.Current)
	assertConservation(t, r)
}

func TestChosenSuitClearedByPlay(t *testing.T) {
	r := StartRound(nil, 5) // 9♥ upcard
	require.True(t, r.ChooseSuit(Seat0, deck.Diamonds))
	require.True(t, r.ConfirmSuit(Seat0))

	// Seat 1 holds 10♦ (seed 5) and must follow the chosen suit.
	ten := card(deck.Ten, deck.Diamonds)
	require.Contains(t, r.Hands[1], ten)
	require.False(t, r.PlayCard(Seat1, card(deck.Eight, deck.Hearts)), "top suit no longer matches")
	require.True(t, r.PlayCard(Seat1, ten))
	assert.Equal(t, deck.Suit(""), r.ChosenSuit, "restriction lifts once followed")
	assert.Equal(t, Seat0, r.Current)
	assertConservation(t, r)
}

func TestScriptedChainRound(t *testing.T) {
	// Seed 3: seat0 holds 10♥ 10♦ J♠ 8♥ J♦, seat1 holds A♥ 6♥ K♠ 6♣ 9♠,
	// upcard 8♣, next draws off the pile are 10♣ then J♥.
	r := StartRound(nil, 3)

	// Out-of-turn and illegal intents are silent no-ops.
	require.False(t, r.PlayCard(Seat1, card(deck.Ace, deck.Hearts)))
	require.False(t, r.PlayCard(Seat0, card(deck.Jack, deck.Spades)), "J♠ matches neither suit nor rank")
	require.False(t, r.DrawPenalty(Seat0), "no chain active")

	// Seat 0 answers the 8♣ with 8♥ by rank.
	require.True(t, r.PlayCard(Seat0, card(deck.Eight, deck.Hearts)))
	assert.Equal(t, Seat1, r.Current)

	// Seat 1 opens a 6-chain with 6♥.
	require.True(t, r.PlayCard(Seat1, card(deck.Six, deck.Hearts)))
	require.NotNil(t, r.Chain)
	assert.Equal(t, deck.Six, r.Chain.Rank)
	assert.Equal(t, 1, r.Chain.Count)
	assert.Equal(t, Seat0, r.Current)

	// Under the chain only sixes are playable.
	require.False(t, r.PlayCard(Seat0, card(deck.Ten, deck.Hearts)))
	require.False(t, r.DrawIfNoMove(Seat0), "the single-card draw is not an escape from a chain")

	// Seat 0 holds no 6 and takes the penalty: two cards, chain clears.
	before := len(r.Hands[0])
	require.True(t, r.DrawPenalty(Seat0))
	assert.Len(t, r.Hands[0], before+2)
	assert.Contains(t, r.Hands[0], card(deck.Ten, deck.Clubs))
	assert.Contains(t, r.Hands[0], card(deck.Jack, deck.Hearts))
	assert.Nil(t, r.Chain)
	assert.Equal(t, Seat1, r.Current)
	assertConservation(t, r)
}

func TestSevenChainAcrossBothSeats(t *testing.T) {
	// Two sevens played back to back by alternating seats stack into one
	// chain; the penalty is one card per seven.
	r := &Round{
		Draw:    []deck.Card{card(deck.Ten, deck.Clubs), card(deck.King, deck.Hearts), card(deck.Nine, deck.Diamonds)},
		Discard: []deck.Card{card(deck.Seven, deck.Spades)},
		Hands: [2][]deck.Card{
			{card(deck.Seven, deck.Hearts), card(deck.Ace, deck.Clubs)},
			{card(deck.Seven, deck.Diamonds), card(deck.King, deck.Clubs)},
		},
		Current: Seat0,
	}

	require.True(t, r.PlayCard(Seat0, card(deck.Seven, deck.Hearts)))
	require.True(t, r.PlayCard(Seat1, card(deck.Seven, deck.Diamonds)))
	require.NotNil(t, r.Chain)
	assert.Equal(t, deck.Seven, r.Chain.Rank)
	assert.Equal(t, 2, r.Chain.Count)
	assert.Equal(t, Seat0, r.Current)

	before := len(r.Hands[0])
	require.True(t, r.DrawPenalty(Seat0))
	assert.Len(t, r.Hands[0], before+2, "7-chain of two owes exactly two cards")
	assert.Nil(t, r.Chain)
	assert.Equal(t, Seat1, r.Current)
}

func TestDrawPenaltyExhaustedPile(t *testing.T) {
	r := &Round{
		Draw:    nil,
		Discard: []deck.Card{card(deck.Six, deck.Spades)},
		Hands: [2][]deck.Card{
			{card(deck.King, deck.Hearts)},
			{card(deck.Nine, deck.Clubs), card(deck.Ten, deck.Clubs)},
		},
		Chain:   &Chain{Rank: deck.Six, Count: 2},
		Current: Seat0,
	}
	require.True(t, r.DrawPenalty(Seat0))
	assert.Len(t, r.Hands[0], 1, "drawing from an empty pile is a no-op per card")
	assert.Nil(t, r.Chain)
	assert.Equal(t, Seat1, r.Current, "the turn still passes")
}

func TestAceBonus(t *testing.T) {
	r := &Round{
		Draw:    []deck.Card{card(deck.Ten, deck.Clubs)},
		Discard: []deck.Card{card(deck.Eight, deck.Hearts)},
		Hands: [2][]deck.Card{
			{card(deck.Ace, deck.Hearts), card(deck.Nine, deck.Hearts), card(deck.Six, deck.Clubs)},
			{card(deck.King, deck.Diamonds), card(deck.Queen, deck.Clubs)},
		},
		Current: Seat0,
	}

	require.True(t, r.PlayCard(Seat0, card(deck.Ace, deck.Hearts)))
	assert.True(t, r.AceBonus)
	assert.Equal(t, Seat0, r.Current, "the ace grants the same seat one more play")

	// The bonus play is pinned to the top card's suit.
	require.False(t, r.PlayCard(Seat0, card(deck.Six, deck.Clubs)))

	// A 9 played under the bonus just spends it; no suit choice triggers.
	require.True(t, r.PlayCard(Seat0, card(deck.Nine, deck.Hearts)))
	assert.False(t, r.AceBonus)
	assert.False(t, r.MustChooseSuit)
	assert.Equal(t, Seat1, r.Current)
}

func TestAceBonusDeadlockDraw(t *testing.T) {
	// A seat holding no card of the required suit may still draw-and-pass,
	// which clears the unsatisfiable bonus.
	r := &Round{
		Draw:    []deck.Card{card(deck.Ten, deck.Clubs)},
		Discard: []deck.Card{card(deck.Ace, deck.Hearts)},
		Hands: [2][]deck.Card{
			{card(deck.Six, deck.Clubs), card(deck.Nine, deck.Diamonds)},
			{card(deck.King, deck.Diamonds)},
		},
		AceBonus: true,
		Current:  Seat0,
	}
	require.True(t, r.DrawIfNoMove(Seat0))
	assert.False(t, r.AceBonus)
	assert.Len(t, r.Hands[0], 3)
	assert.Equal(t, Seat1, r.Current)
}

func TestRoundOverScoring(t *testing.T) {
	r := &Round{
		Discard: []deck.Card{card(deck.Eight, deck.Clubs)},
		Hands: [2][]deck.Card{
			{card(deck.Eight, deck.Hearts)},
			{card(deck.King, deck.Spades), card(deck.Ace, deck.Spades)},
		},
		Banks:   [2]int{10, 20},
		Current: Seat0,
	}
	require.True(t, r.PlayCard(Seat0, card(deck.Eight, deck.Hearts)))
	assert.True(t, r.RoundOver)
	assert.Equal(t, 20+4+11, r.Banks[1], "loser collects the penalty sum")
	assert.Equal(t, 10, r.Banks[0])
	assert.False(t, r.GameOver.Done())

	// RoundOver is latched: further intents are no-ops.
	assert.False(t, r.PlayCard(Seat1, card(deck.King, deck.Spades)))
	assert.False(t, r.DrawIfNoMove(Seat1))
}

func TestRoundOverQueensDeduction(t *testing.T) {
	r := &Round{
		Discard: []deck.Card{card(deck.Eight, deck.Clubs)},
		Hands: [2][]deck.Card{
			{card(deck.Eight, deck.Hearts)},
			{card(deck.Queen, deck.Spades)},
		},
		Banks:   [2]int{0, 50},
		Current: Seat0,
	}
	require.True(t, r.PlayCard(Seat0, card(deck.Eight, deck.Hearts)))
	assert.True(t, r.RoundOver)
	assert.Equal(t, 50-40, r.Banks[1], "Queens-only hands are deducted")
}

func TestGameOverAtBankLimit(t *testing.T) {
	r := &Round{
		Discard: []deck.Card{card(deck.Eight, deck.Clubs)},
		Hands: [2][]deck.Card{
			{card(deck.Eight, deck.Hearts)},
			{card(deck.Jack, deck.Clubs)},
		},
		Banks:   [2]int{0, 110},
		Current: Seat0,
	}
	require.True(t, r.PlayCard(Seat0, card(deck.Eight, deck.Hearts)))
	require.True(t, r.RoundOver)
	require.True(t, r.GameOver.Done())
	assert.Equal(t, Seat0, *r.GameOver.Winner)
	assert.Equal(t, Seat1, *r.GameOver.Loser)
	assert.Equal(t, "opponent reached 120", r.GameOver.Reason)

	// Terminal: no next round.
	assert.Nil(t, r.NextRound())
}

func TestGameOverQueensInstantWin(t *testing.T) {
	r := &Round{
		Discard: []deck.Card{card(deck.Eight, deck.Clubs)},
		Hands: [2][]deck.Card{
			{card(deck.Eight, deck.Hearts)},
			{card(deck.Queen, deck.Spades)},
		},
		Banks:   [2]int{0, -90},
		Current: Seat0,
	}
	require.True(t, r.PlayCard(Seat0, card(deck.Eight, deck.Hearts)))
	require.True(t, r.GameOver.Done())
	assert.Equal(t, Seat1, *r.GameOver.Winner, "reaching -120 through Queens wins instantly")
	assert.Equal(t, "reached -120 via Queens", r.GameOver.Reason)
}

func TestNextRound(t *testing.T) {
	r := StartRound(nil, 3)
	assert.Nil(t, r.NextRound(), "no-op before the round is over")

	r.RoundOver = true
	r.Banks = [2]int{15, 30}
	next := r.NextRound()
	require.NotNil(t, next)
	assert.Equal(t, r.Seed+1, next.Seed)
	assert.Equal(t, r.Starter.Other(), next.Starter, "starter alternates")
	assert.Equal(t, r.Banks, next.Banks, "banks carry across rounds")
	assert.False(t, next.RoundOver)
	assertConservation(t, next)
}

func TestConservationAcrossTransitions(t *testing.T) {
	r := StartRound(nil, 3)
	assertConservation(t, r)
	require.True(t, r.PlayCard(Seat0, card(deck.Eight, deck.Hearts)))
	assertConservation(t, r)
	require.True(t, r.PlayCard(Seat1, card(deck.Six, deck.Hearts)))
	assertConservation(t, r)
	require.True(t, r.DrawPenalty(Seat0))
	assertConservation(t, r)
	require.True(t, r.DrawIfNoMove(Seat1))
	assertConservation(t, r)
}
