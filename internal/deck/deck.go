// internal/deck/deck.go
package deck

// Suit is one of the four card suits, stored as its unicode symbol so the
// shared room document stays human-readable.
type Suit string

const (
	Spades   Suit = "♠"
	Hearts   Suit = "♥"
	Diamonds Suit = "♦"
	Clubs    Suit = "♣"
)

// Rank is a card rank in the 36-card deck (6 through Ace).
type Rank string

const (
	Six   Rank = "6"
	Seven Rank = "7"
	Eight Rank = "8"
	Nine  Rank = "9"
	Ten   Rank = "10"
	Jack  Rank = "J"
	Queen Rank = "Q"
	King  Rank = "K"
	Ace   Rank = "A"
)

// Suits returns the four suits in canonical deck order.
func Suits() []Suit {
	return []Suit{Spades, Hearts, Diamonds, Clubs}
}

// Ranks returns the nine ranks in ascending order.
func Ranks() []Rank {
	return []Rank{Six, Seven, Eight, Nine, Ten, Jack, Queen, King, Ace}
}

// Card is an immutable playing card. Identity is the (rank, suit) pair; the
// full deck holds each combination exactly once.
type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

func (c Card) String() string {
	return string(c.Rank) + string(c.Suit)
}

// New builds the full 36-card deck in fixed suit-major, rank-minor order.
// Deterministic, no randomness involved.
func New() []Card {
	cards := make([]Card, 0, 36)
	for _, s := range Suits() {
		for _, r := range Ranks() {
			cards = append(cards, Card{Rank: r, Suit: s})
		}
	}
	return cards
}

// Rand is a deterministic xorshift32 generator. Two clients that share a seed
// compute identical shuffles, which is what lets a round be transmitted as a
// single integer instead of a full deck order.
type Rand struct {
	x uint32
}

// NewRand seeds a generator. A zero seed falls back to the generator's
// default state so the stream is never all zeros.
func NewRand(seed int64) *Rand {
	x := uint32(seed)
	if x == 0 {
		x = 88675123
	}
	return &Rand{x: x}
}

// Float64 returns the next value in [0, 1).
func (r *Rand) Float64() float64 {
	r.x ^= r.x << 13
	r.x ^= r.x >> 17
	r.x ^= r.x << 5
	return float64(r.x%1000000) / 1000000
}

// Shuffle returns a Fisher–Yates permutation of cards driven by r. The input
// slice is not mutated.
func Shuffle(cards []Card, r *Rand) []Card {
	out := make([]Card, len(cards))
	copy(out, cards)
	for i := len(out) - 1; i > 0; i-- {
		j := int(r.Float64() * float64(i+1))
		out[i], out[j] = out[j], out[i]
	}
	return out
}
