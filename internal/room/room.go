// internal/room/room.go

// Package room models the shared room document and its lifecycle: 6-digit
// codes, seat assignment by session id, and the service that keeps the
// document in a shared store.
package room

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"regexp"

	"github.com/pyatikantrop/pyatikantrop/internal/game"
)

// ErrRoomFull is returned when both seats are held by other sessions.
var ErrRoomFull = errors.New("room: already has two players")

var codeRe = regexp.MustCompile(`^[0-9]{6}$`)

// Player is one seat's occupant, identified by the opaque session id its
// client generated at first launch and holds across reconnects.
type Player struct {
	SessionID string `json:"sid"`
}

// Players maps the two room seats to their occupants. Seat1 stays nil until
// someone joins (or the creator self-joins to play both sides).
type Players struct {
	Seat0 *Player `json:"p0"`
	Seat1 *Player `json:"p1"`
}

// Document is the full shared room state both clients subscribe to. The
// engine owns Game; Toss decides the first starter; timestamps are unix
// milliseconds maintained by the service.
type Document struct {
	Game      *game.Round `json:"game"`
	Players   Players     `json:"players"`
	Toss      *game.Toss  `json:"toss,omitempty"`
	CreatedAt int64       `json:"createdAt"`
	UpdatedAt int64       `json:"updatedAt"`
}

// Clone deep-copies the document through JSON so a caller can mutate a copy
// without touching the shared mirror.
func (d *Document) Clone() *Document {
	data, err := json.Marshal(d)
	if err != nil {
		return nil
	}
	var out Document
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return &out
}

// Seat resolves which seat a session currently holds.
func (d *Document) Seat(sessionID string) (game.Seat, bool) {
	if d.Players.Seat0 != nil && d.Players.Seat0.SessionID == sessionID {
		return game.Seat0, true
	}
	if d.Players.Seat1 != nil && d.Players.Seat1.SessionID == sessionID {
		return game.Seat1, true
	}
	return game.Seat0, false
}

// Assign seats a joining session. A session that already holds a seat is
// re-attached to it; otherwise the first empty seat is claimed; with both
// seats held by others the room is full.
func (d *Document) Assign(sessionID string) (game.Seat, error) {
	if seat, ok := d.Seat(sessionID); ok {
		return seat, nil
	}
	if d.Players.Seat0 == nil {
		d.Players.Seat0 = &Player{SessionID: sessionID}
		return game.Seat0, nil
	}
	if d.Players.Seat1 == nil {
		d.Players.Seat1 = &Player{SessionID: sessionID}
		return game.Seat1, nil
	}
	return game.Seat0, ErrRoomFull
}

// ClaimSeat1 lets the creator occupy seat 1 with the same session id and play
// both sides from one client. Reports whether the seat was newly claimed.
func (d *Document) ClaimSeat1(sessionID string) bool {
	if d.Players.Seat1 != nil {
		return false
	}
	d.Players.Seat1 = &Player{SessionID: sessionID}
	return true
}

// NewCode returns a fresh 6-digit room code.
func NewCode() string {
	return fmt.Sprintf("%06d", 100000+rand.Intn(900000))
}

// ValidCode reports whether code is a well-formed 6-digit room code.
func ValidCode(code string) bool {
	return codeRe.MatchString(code)
}
