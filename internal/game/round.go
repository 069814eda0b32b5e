// internal/game/round.go
package game

import (
	"fmt"

	"github.com/pyatikantrop/pyatikantrop/internal/deck"
)

// Seat identifies one of the two players in a room.
type Seat int

const (
	Seat0 Seat = 0
	Seat1 Seat = 1
)

// Other returns the opposing seat.
func (s Seat) Other() Seat {
	if s == Seat0 {
		return Seat1
	}
	return Seat0
}

func (s Seat) valid() bool {
	return s == Seat0 || s == Seat1
}

// HandSize is the number of cards dealt to each player.
const HandSize = 5

// BankLimit ends the match once either bank crosses it: reaching +BankLimit
// loses, reaching -BankLimit (only possible through Queens-only deductions)
// wins instantly.
const BankLimit = 120

// GameOver marks a finished match. Winner and Loser stay nil while the match
// is live; once set no further intents mutate state.
type GameOver struct {
	Winner *Seat  `json:"winner"`
	Loser  *Seat  `json:"loser"`
	Reason string `json:"reason,omitempty"`
}

// Done reports whether the match has ended.
func (g GameOver) Done() bool {
	return g.Winner != nil
}

// Round is the authoritative state of one hand of Pyatikantrop plus the
// cross-round banks. It is the "game" field of the shared room document. All
// mutating methods re-validate turn and legality and silently no-op on bad
// input, because remote state can race with a stale client UI.
type Round struct {
	Seed    int64          `json:"seed"`
	Draw    []deck.Card    `json:"draw"`
	Discard []deck.Card    `json:"discard"`
	Hands   [2][]deck.Card `json:"hands"`
	Current Seat           `json:"current"`
	Starter Seat           `json:"starter"`

	ChosenSuit     deck.Suit `json:"chosenSuit,omitempty"`
	Chain          *Chain    `json:"chain,omitempty"`
	AceBonus       bool      `json:"aceBonus,omitempty"`
	MustChooseSuit bool      `json:"mustChooseSuit,omitempty"`

	Banks     [2]int   `json:"banks"`
	RoundOver bool     `json:"roundOver"`
	Message   string   `json:"message,omitempty"`
	GameOver  GameOver `json:"gameOver"`
}

// StartRound deals a fresh hand. It is a pure function of (prev.Banks,
// prev.Starter, seed): both clients derive the identical round from the seed
// alone. The starter alternates between rounds; a fresh match starts at seat
// 0. Round-start upcard effects mirror the in-round ones: a 6 makes the
// opponent draw two, a 7 one, a 9 puts the starter on suit choice.
func StartRound(prev *Round, seed int64) *Round {
	rng := deck.NewRand(seed)
	cards := deck.Shuffle(deck.New(), rng)

	r := &Round{Seed: seed, Starter: Seat0}
	if prev != nil {
		r.Starter = prev.Starter.Other()
		r.Banks = prev.Banks
	}
	r.Hands[0] = append([]deck.Card(nil), cards[:HandSize]...)
	r.Hands[1] = append([]deck.Card(nil), cards[HandSize:2*HandSize]...)
	r.Draw = append([]deck.Card(nil), cards[2*HandSize:]...)

	up := r.popDraw()
	r.Discard = []deck.Card{*up}
	r.Current = r.Starter
	r.Message = fmt.Sprintf("Round started, upcard %s", up)

	opp := r.Starter.Other()
	switch up.Rank {
	case deck.Six:
		r.drawInto(opp, 2)
		r.Message += ", starting 6: opponent draws 2"
	case deck.Seven:
		r.drawInto(opp, 1)
		r.Message += ", starting 7: opponent draws 1"
	case deck.Nine:
		r.MustChooseSuit = true
		r.Message += ", starting 9: choose a suit"
	}
	return r
}

// TopCard returns the top of the discard pile, nil when empty.
func (r *Round) TopCard() *deck.Card {
	if len(r.Discard) == 0 {
		return nil
	}
	return &r.Discard[len(r.Discard)-1]
}

// popDraw takes the top card off the draw pile, nil when exhausted.
func (r *Round) popDraw() *deck.Card {
	if len(r.Draw) == 0 {
		return nil
	}
	c := r.Draw[len(r.Draw)-1]
	r.Draw = r.Draw[:len(r.Draw)-1]
	return &c
}

// drawInto moves up to n cards from the draw pile into seat's hand and
// returns how many were actually drawn. An exhausted pile is not an error.
func (r *Round) drawInto(seat Seat, n int) int {
	drawn := 0
	for i := 0; i < n; i++ {
		c := r.popDraw()
		if c == nil {
			break
		}
		r.Hands[seat] = append(r.Hands[seat], *c)
		drawn++
	}
	return drawn
}

func (r *Round) live(seat Seat) bool {
	return seat.valid() && !r.RoundOver && !r.GameOver.Done() && seat == r.Current
}

// PlayCard places one of seat's cards on the discard pile and applies its
// effect. Returns false without mutating when the play is out of turn,
// illegal, the card is not in hand, or a suit choice is still pending.
func (r *Round) PlayCard(seat Seat, card deck.Card) bool {
	if !r.live(seat) || r.MustChooseSuit {
		return false
	}
	if !IsLegalPlay(card, r.TopCard(), r.ChosenSuit, r.Chain, r.AceBonus) {
		return false
	}
	idx := -1
	for i, c := range r.Hands[seat] {
		if c == card {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	r.Hands[seat] = append(r.Hands[seat][:idx], r.Hands[seat][idx+1:]...)
	r.Discard = append(r.Discard, card)
	r.ChosenSuit = ""
	r.Message = fmt.Sprintf("Seat %d played %s", seat, card)

	switch {
	case r.Chain != nil:
		// Legality already pinned the rank; the chain grows and passes on.
		r.Chain = &Chain{Rank: r.Chain.Rank, Count: r.Chain.Count + 1}
		r.Current = seat.Other()
		r.Message += fmt.Sprintf(", chain %s x%d", r.Chain.Rank, r.Chain.Count)
	case r.AceBonus:
		r.AceBonus = false
		r.Current = seat.Other()
		r.Message += ", ace bonus spent"
	default:
		switch card.Rank {
		case deck.Six:
			r.Chain = &Chain{Rank: deck.Six, Count: 1}
			r.Current = seat.Other()
			r.Message += ", 6-chain (+2)"
		case deck.Seven:
			r.Chain = &Chain{Rank: deck.Seven, Count: 1}
			r.Current = seat.Other()
			r.Message += ", 7-chain (+1)"
		case deck.Nine:
			r.MustChooseSuit = true
			r.Message += ", choose a suit"
		case deck.Ace:
			r.AceBonus = true
			r.Message += ", ace: one more card of the same suit"
		default:
			r.Current = seat.Other()
		}
	}

	r.checkRoundOver()
	return true
}

// DrawPenalty accepts the cumulative chain penalty: seat draws the owed cards
// (fewer if the pile runs dry), all modifiers clear and the turn passes.
func (r *Round) DrawPenalty(seat Seat) bool {
	if !r.live(seat) || r.Chain == nil {
		return false
	}
	took := r.drawInto(seat, r.Chain.PenaltyDraws())
	r.Chain = nil
	r.ChosenSuit = ""
	r.AceBonus = false
	r.MustChooseSuit = false
	r.Current = seat.Other()
	r.Message = fmt.Sprintf("Seat %d took %d penalty card(s) and passed", seat, took)
	return true
}

// DrawIfNoMove is the no-move escape hatch: draw a single card (if any) and
// pass. Blocked while a chain is active or a suit choice is pending; allowed
// while an ace bonus is pending, which it clears — otherwise a player holding
// no card of the required suit would be stuck.
func (r *Round) DrawIfNoMove(seat Seat) bool {
	if !r.live(seat) || r.Chain != nil || r.MustChooseSuit {
		return false
	}
	took := r.drawInto(seat, 1)
	r.ChosenSuit = ""
	r.AceBonus = false
	r.Current = seat.Other()
	r.Message = fmt.Sprintf("Seat %d took %d card(s) and passed", seat, took)
	return true
}

// ChooseSuit declares the suit restriction after a 9. The choice stays open
// for re-picking until ConfirmSuit commits it.
func (r *Round) ChooseSuit(seat Seat, suit deck.Suit) bool {
	if !r.live(seat) || !r.MustChooseSuit {
		return false
	}
	ok := false
	for _, s := range deck.Suits() {
		if s == suit {
			ok = true
			break
		}
	}
	if !ok {
		return false
	}
	r.ChosenSuit = suit
	r.Message = fmt.Sprintf("Suit set to %s", suit)
	return true
}

// ConfirmSuit commits the declared suit and passes the turn. A suit must have
// been chosen first.
func (r *Round) ConfirmSuit(seat Seat) bool {
	if !r.live(seat) || !r.MustChooseSuit || r.ChosenSuit == "" {
		return false
	}
	r.MustChooseSuit = false
	r.Current = seat.Other()
	r.Message = fmt.Sprintf("Suit %s confirmed", r.ChosenSuit)
	return true
}

// NextRound deals the following hand, alternating the starter and carrying
// the banks. Returns nil unless the round is over and the match is still
// live.
func (r *Round) NextRound() *Round {
	if !r.RoundOver || r.GameOver.Done() {
		return nil
	}
	return StartRound(r, r.Seed+1)
}

// checkRoundOver runs after every state-producing transition. The first empty
// hand wins the round; the loser's leftovers are scored into their bank,
// subtracted for a Queens-only hand, added otherwise.
func (r *Round) checkRoundOver() {
	if r.RoundOver {
		return
	}
	var winner Seat
	switch {
	case len(r.Hands[0]) == 0:
		winner = Seat0
	case len(r.Hands[1]) == 0:
		winner = Seat1
	default:
		return
	}
	loser := winner.Other()
	pts := HandScore(r.Hands[loser])
	if QueensOnly(r.Hands[loser]) {
		r.Banks[loser] -= pts
		r.Message = fmt.Sprintf("Round over, seat %d is deducted %d for Queens", loser, pts)
	} else {
		r.Banks[loser] += pts
		r.Message = fmt.Sprintf("Round over, seat %d collects %d", loser, pts)
	}
	r.RoundOver = true
	r.checkGameOver()
}

// checkGameOver runs immediately after a bank update.
func (r *Round) checkGameOver() {
	if r.GameOver.Done() {
		return
	}
	for _, s := range []Seat{Seat0, Seat1} {
		if r.Banks[s] >= BankLimit {
			loser, winner := s, s.Other()
			r.GameOver = GameOver{Winner: &winner, Loser: &loser, Reason: "opponent reached 120"}
			return
		}
	}
	for _, s := range []Seat{Seat0, Seat1} {
		if r.Banks[s] <= -BankLimit {
			winner, loser := s, s.Other()
			r.GameOver = GameOver{Winner: &winner, Loser: &loser, Reason: "reached -120 via Queens"}
			return
		}
	}
}
