// internal/game/toss.go
package game

import (
	"fmt"

	"github.com/pyatikantrop/pyatikantrop/internal/deck"
)

// TossMode says whether the higher or the lower drawn card wins the toss.
type TossMode string

const (
	TossHigher TossMode = "higher"
	TossLower  TossMode = "lower"
)

// Toss is the pre-match draw deciding who makes the first move. Each seat
// draws one card off its own shuffled deck; once both cards are present the
// toss resolves and the winner becomes the starter of the room's round.
type Toss struct {
	Mode    TossMode      `json:"mode"`
	Cards   [2]*deck.Card `json:"cards"`
	Decided bool          `json:"decided"`
}

// NewToss returns an undecided toss in higher-card-wins mode.
func NewToss() *Toss {
	return &Toss{Mode: TossHigher}
}

// SetMode switches between higher/lower. Locked once the toss is decided.
func (t *Toss) SetMode(mode TossMode) bool {
	if t.Decided || (mode != TossHigher && mode != TossLower) {
		return false
	}
	t.Mode = mode
	return true
}

// DrawFor gives seat its toss card, drawn off a deck shuffled from seed.
// No-op once the seat has drawn or the toss is decided.
func (t *Toss) DrawFor(seat Seat, seed int64) bool {
	if !seat.valid() || t.Decided || t.Cards[seat] != nil {
		return false
	}
	cards := deck.Shuffle(deck.New(), deck.NewRand(seed))
	c := cards[len(cards)-1]
	t.Cards[seat] = &c
	return true
}

// Winner resolves the toss once both cards are drawn. Rank ties go to seat 1.
func (t *Toss) Winner() (Seat, bool) {
	if t.Cards[0] == nil || t.Cards[1] == nil {
		return Seat0, false
	}
	i0 := rankIndex(t.Cards[0].Rank)
	i1 := rankIndex(t.Cards[1].Rank)
	p0Wins := i0 > i1
	if t.Mode == TossLower {
		p0Wins = i0 < i1
	}
	if p0Wins {
		return Seat0, true
	}
	return Seat1, true
}

// Decide fixes the toss outcome onto the round: the winner becomes starter
// and takes the current turn.
func (t *Toss) Decide(r *Round) bool {
	if t.Decided || r == nil {
		return false
	}
	w, ok := t.Winner()
	if !ok {
		return false
	}
	t.Decided = true
	r.Starter = w
	r.Current = w
	r.Message = fmt.Sprintf("Toss: %s vs %s, seat %d starts", t.Cards[0], t.Cards[1], w)
	return true
}

func rankIndex(r deck.Rank) int {
	for i, rank := range deck.Ranks() {
		if rank == r {
			return i
		}
	}
	return -1
}
