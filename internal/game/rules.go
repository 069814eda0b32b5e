// internal/game/rules.go
package game

import "github.com/pyatikantrop/pyatikantrop/internal/deck"

// Chain is an active 6- or 7-penalty chain. While one is set, only cards of
// its rank are playable; the alternative is accepting the cumulative penalty
// draw. Sixes and sevens never mix into one chain.
type Chain struct {
	Rank  deck.Rank `json:"rank"`
	Count int       `json:"count"`
}

// PenaltyDraws is the number of cards the chain currently forces: two per six
// in a 6-chain, one per seven in a 7-chain.
func (c *Chain) PenaltyDraws() int {
	if c == nil {
		return 0
	}
	if c.Rank == deck.Six {
		return 2 * c.Count
	}
	return c.Count
}

// IsLegalPlay reports whether card may be placed on top of the discard pile.
// Precedence is strict and mutually exclusive: an active chain overrides a
// pending ace bonus, which overrides a chosen suit, which overrides the
// default suit-or-rank match. With no top card any play is legal.
func IsLegalPlay(card deck.Card, top *deck.Card, chosenSuit deck.Suit, chain *Chain, aceBonus bool) bool {
	if top == nil {
		return true
	}
	if chain != nil {
		return card.Rank == chain.Rank
	}
	if aceBonus {
		return card.Suit == top.Suit
	}
	if chosenSuit != "" {
		return card.Suit == chosenSuit || card.Rank == top.Rank
	}
	return card.Suit == top.Suit || card.Rank == top.Rank
}

// PenaltyValue is the end-of-round cost of holding a card of the given rank.
func PenaltyValue(r deck.Rank) int {
	switch r {
	case deck.Ace:
		return 11
	case deck.Ten:
		return 10
	case deck.King:
		return 4
	case deck.Jack:
		return 25
	case deck.Queen:
		return 3
	default:
		return 0
	}
}

// QueensOnly reports whether a non-empty hand consists entirely of Queens.
// Such hands score under the inverted rule and are subtracted from the
// holder's bank instead of added.
func QueensOnly(hand []deck.Card) bool {
	if len(hand) == 0 {
		return false
	}
	for _, c := range hand {
		if c.Rank != deck.Queen {
			return false
		}
	}
	return true
}

// HandScore scores a hand left over at round end. A Queens-only hand is worth
// a flat 80 for all four Queens, otherwise 20 per Queen plus 20 when Q♠ is
// among them. Any other hand sums the per-card penalty values.
func HandScore(hand []deck.Card) int {
	if len(hand) == 0 {
		return 0
	}
	if QueensOnly(hand) {
		if len(hand) == 4 {
			return 80
		}
		score := 20 * len(hand)
		for _, c := range hand {
			if c.Suit == deck.Spades {
				score += 20
				break
			}
		}
		return score
	}
	total := 0
	for _, c := range hand {
		total += PenaltyValue(c.Rank)
	}
	return total
}
