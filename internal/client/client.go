// internal/client/client.go

// Package client is the in-process game client used by the websocket gateway.
// It mirrors the shared room document, applies intents to a local copy through
// the rules engine, and publishes the result under optimistic concurrency: a
// stale write is dropped and the mirror reconciled from the subscription feed.
package client

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/pyatikantrop/pyatikantrop/internal/deck"
	"github.com/pyatikantrop/pyatikantrop/internal/game"
	"github.com/pyatikantrop/pyatikantrop/internal/room"
	"github.com/pyatikantrop/pyatikantrop/internal/store"
)

// ErrNoRoom is returned by intents issued before the client is attached.
var ErrNoRoom = errors.New("client: not attached to a room")

// Client is one player's live view of a room. All intents go through the
// mirror: clone, mutate via the engine, publish at the observed version.
type Client struct {
	svc     *room.Service
	session string
	log     *logrus.Logger

	// OnChange, when set before Run, is invoked with each accepted document.
	OnChange func(*room.Document)

	mu      sync.Mutex
	code    string
	seat    game.Seat
	solo    bool
	doc     *room.Document
	version int64
	offline bool
}

// New returns a detached client for the given session.
func New(svc *room.Service, sessionID string, log *logrus.Logger) *Client {
	return &Client{svc: svc, session: sessionID, log: log}
}

// CreateRoom provisions a new room with this client on seat 0.
func (c *Client) CreateRoom(ctx context.Context, seed int64) (string, error) {
	code, doc, err := c.svc.Create(ctx, c.session, seed)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.code = code
	c.seat = game.Seat0
	c.doc = doc
	c.version = 1
	c.solo = false
	c.offline = false
	c.mu.Unlock()
	return code, nil
}

// JoinRoom attaches to an existing room under whichever seat the session
// resolves to.
func (c *Client) JoinRoom(ctx context.Context, code string) (game.Seat, error) {
	seat, doc, err := c.svc.Join(ctx, code, c.session)
	if err != nil {
		return game.Seat0, err
	}
	_, version, err := c.svc.Get(ctx, code)
	if err != nil {
		return game.Seat0, err
	}
	c.mu.Lock()
	c.code = code
	c.seat = seat
	c.doc = doc
	c.version = version
	c.solo = false
	c.offline = false
	c.mu.Unlock()
	return seat, nil
}

// SelfJoin claims seat 1 for this same session so the client plays both sides
// of its own room. Intents then act for whichever seat holds the turn.
func (c *Client) SelfJoin(ctx context.Context) error {
	c.mu.Lock()
	code := c.code
	c.mu.Unlock()
	if code == "" {
		return ErrNoRoom
	}
	if _, err := c.svc.SelfJoin(ctx, code, c.session); err != nil {
		return err
	}
	doc, version, err := c.svc.Get(ctx, code)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.solo = true
	c.doc = doc
	c.version = version
	c.mu.Unlock()
	return nil
}

// StartLocalMatch provisions a fresh room with this session on both seats,
// for hot-seat play on a single device.
func (c *Client) StartLocalMatch(ctx context.Context, seed int64) (string, error) {
	code, err := c.CreateRoom(ctx, seed)
	if err != nil {
		return "", err
	}
	if err := c.SelfJoin(ctx); err != nil {
		return "", err
	}
	return code, nil
}

// Seat returns the seat this client holds.
func (c *Client) Seat() game.Seat {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seat
}

// Document returns the current mirror.
func (c *Client) Document() *room.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc
}

// Offline reports whether the last publish failed on transport and the mirror
// is running ahead of the store.
func (c *Client) Offline() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offline
}

// Run consumes the room's subscription feed until ctx is done, replacing the
// mirror wholesale with each accepted document. Every received update also
// clears the offline flag.
func (c *Client) Run(ctx context.Context) error {
	c.mu.Lock()
	code := c.code
	c.mu.Unlock()
	if code == "" {
		return ErrNoRoom
	}
	updates, cancel, err := c.svc.Watch(ctx, code)
	if err != nil {
		return err
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			c.mu.Lock()
			c.doc = u.Doc
			c.version = u.Version
			c.offline = false
			onChange := c.OnChange
			c.mu.Unlock()
			if onChange != nil {
				onChange(u.Doc)
			}
		}
	}
}

// PlayCard plays a card from the acting seat's hand.
func (c *Client) PlayCard(ctx context.Context, card deck.Card) (bool, error) {
	return c.intent(ctx, func(doc *room.Document, seat game.Seat) bool {
		return doc.Game.PlayCard(seat, card)
	})
}

// DrawPenalty takes the pending chain penalty.
func (c *Client) DrawPenalty(ctx context.Context) (bool, error) {
	return c.intent(ctx, func(doc *room.Document, seat game.Seat) bool {
		return doc.Game.DrawPenalty(seat)
	})
}

// DrawIfNoMove draws one card and passes when the seat has no legal play.
func (c *Client) DrawIfNoMove(ctx context.Context) (bool, error) {
	return c.intent(ctx, func(doc *room.Document, seat game.Seat) bool {
		return doc.Game.DrawIfNoMove(seat)
	})
}

// ChooseSuit declares the suit demanded after a 9.
func (c *Client) ChooseSuit(ctx context.Context, suit deck.Suit) (bool, error) {
	return c.intent(ctx, func(doc *room.Document, seat game.Seat) bool {
		return doc.Game.ChooseSuit(seat, suit)
	})
}

// ConfirmSuit locks the declared suit in and passes the turn.
func (c *Client) ConfirmSuit(ctx context.Context) (bool, error) {
	return c.intent(ctx, func(doc *room.Document, seat game.Seat) bool {
		return doc.Game.ConfirmSuit(seat)
	})
}

// NextRound deals the following round once the current one is over.
func (c *Client) NextRound(ctx context.Context) (bool, error) {
	return c.intent(ctx, func(doc *room.Document, seat game.Seat) bool {
		if doc.Game == nil || !doc.Game.RoundOver || doc.Game.GameOver.Done() {
			return false
		}
		doc.Game = doc.Game.NextRound()
		return true
	})
}

// TossMode switches the starter toss between higher/lower-card-wins.
func (c *Client) TossMode(ctx context.Context, mode game.TossMode) (bool, error) {
	return c.intent(ctx, func(doc *room.Document, seat game.Seat) bool {
		if doc.Toss == nil {
			return false
		}
		return doc.Toss.SetMode(mode)
	})
}

// TossDraw draws this seat's toss card off a deck shuffled from seed, and
// resolves the toss onto the round once both cards are present.
func (c *Client) TossDraw(ctx context.Context, seed int64) (bool, error) {
	return c.intent(ctx, func(doc *room.Document, seat game.Seat) bool {
		if doc.Toss == nil || !doc.Toss.DrawFor(seat, seed) {
			return false
		}
		doc.Toss.Decide(doc.Game)
		return true
	})
}

// intent runs one engine mutation against a clone of the mirror and publishes
// the result. A version conflict means another client won the write: the local
// change is discarded and the subscription feed will deliver theirs. A
// transport failure keeps the mutated clone as the local truth so play can
// continue; the next received update reconciles.
func (c *Client) intent(ctx context.Context, apply func(*room.Document, game.Seat) bool) (bool, error) {
	c.mu.Lock()
	if c.code == "" || c.doc == nil {
		c.mu.Unlock()
		return false, ErrNoRoom
	}
	next := c.doc.Clone()
	if next == nil || next.Game == nil {
		c.mu.Unlock()
		return false, ErrNoRoom
	}
	seat := c.seat
	if c.solo {
		seat = next.Game.Current
	}
	code, version := c.code, c.version
	c.mu.Unlock()

	if !apply(next, seat) {
		return false, nil
	}

	newVersion, err := c.svc.Publish(ctx, code, next, version)
	switch {
	case errors.Is(err, store.ErrConflict):
		c.log.WithFields(logrus.Fields{"room": code, "version": version}).
			Info("intent lost the write race, waiting for the winning state")
		return false, nil
	case err != nil:
		c.mu.Lock()
		c.doc = next
		c.offline = true
		c.mu.Unlock()
		c.log.WithError(err).WithField("room", code).
			Warn("publish failed, continuing on local state")
		return true, nil
	}

	c.mu.Lock()
	c.doc = next
	c.version = newVersion
	c.mu.Unlock()
	return true, nil
}
