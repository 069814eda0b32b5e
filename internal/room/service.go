// internal/room/service.go
package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pyatikantrop/pyatikantrop/internal/game"
	"github.com/pyatikantrop/pyatikantrop/internal/store"
)

// ErrNotFound is returned when no room exists under a code.
var ErrNotFound = errors.New("room: not found")

// createAttempts bounds retries on room-code collisions.
const createAttempts = 5

// Update is one decoded observation of a room document, tagged with the store
// version a subsequent Publish must present.
type Update struct {
	Doc     *Document
	Version int64
}

// Service performs room lifecycle operations against a document store.
type Service struct {
	store store.Store
	log   *logrus.Logger
	now   func() int64
}

// NewService binds the room model to a store.
func NewService(st store.Store, log *logrus.Logger) *Service {
	return &Service{
		store: st,
		log:   log,
		now:   func() int64 { return time.Now().UnixMilli() },
	}
}

// Create provisions a fresh room: a new code, a dealt round with the creator
// on seat 0, and an open starter toss. Code collisions are retried.
func (s *Service) Create(ctx context.Context, sessionID string, seed int64) (string, *Document, error) {
	now := s.now()
	doc := &Document{
		Game:      game.StartRound(nil, seed),
		Players:   Players{Seat0: &Player{SessionID: sessionID}},
		Toss:      game.NewToss(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", nil, fmt.Errorf("room: encode document: %w", err)
	}

	for i := 0; i < createAttempts; i++ {
		code := NewCode()
		err := s.store.Create(ctx, code, data)
		if errors.Is(err, store.ErrExists) {
			continue
		}
		if err != nil {
			return "", nil, err
		}
		s.log.WithFields(logrus.Fields{"room": code, "seed": seed}).Info("room created")
		return code, doc, nil
	}
	return "", nil, fmt.Errorf("room: could not allocate a free code after %d attempts", createAttempts)
}

// Join attaches a session to the room: re-attach to a held seat, else claim
// the empty one. The seat write retries on version conflicts since another
// client may be joining at the same moment.
func (s *Service) Join(ctx context.Context, code, sessionID string) (game.Seat, *Document, error) {
	if !ValidCode(code) {
		return game.Seat0, nil, ErrNotFound
	}
	for {
		doc, version, err := s.Get(ctx, code)
		if err != nil {
			return game.Seat0, nil, err
		}
		if seat, ok := doc.Seat(sessionID); ok {
			return seat, doc, nil
		}
		seat, err := doc.Assign(sessionID)
		if err != nil {
			return game.Seat0, nil, err
		}
		_, err = s.Publish(ctx, code, doc, version)
		if errors.Is(err, store.ErrConflict) {
			continue
		}
		if err != nil {
			return game.Seat0, nil, err
		}
		s.log.WithFields(logrus.Fields{"room": code, "seat": int(seat)}).Info("player joined room")
		return seat, doc, nil
	}
}

// SelfJoin claims seat 1 for the creator's own session so one client plays
// both sides.
func (s *Service) SelfJoin(ctx context.Context, code, sessionID string) (*Document, error) {
	for {
		doc, version, err := s.Get(ctx, code)
		if err != nil {
			return nil, err
		}
		if !doc.ClaimSeat1(sessionID) {
			return doc, nil
		}
		_, err = s.Publish(ctx, code, doc, version)
		if errors.Is(err, store.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return doc, nil
	}
}

// Get reads and decodes the current room document.
func (s *Service) Get(ctx context.Context, code string) (*Document, int64, error) {
	snap, err := s.store.Read(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, err
	}
	var doc Document
	if err := json.Unmarshal(snap.Value, &doc); err != nil {
		return nil, 0, fmt.Errorf("room: decode document: %w", err)
	}
	return &doc, snap.Version, nil
}

// Publish writes a new document state observed at the given version. Stale
// writers get store.ErrConflict and must reconcile from the subscription.
func (s *Service) Publish(ctx context.Context, code string, doc *Document, expect int64) (int64, error) {
	doc.UpdatedAt = s.now()
	data, err := json.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("room: encode document: %w", err)
	}
	return s.store.Update(ctx, code, data, expect)
}

// Watch subscribes to the room and decodes each observed document. Malformed
// payloads are logged and skipped rather than tearing the stream down.
func (s *Service) Watch(ctx context.Context, code string) (<-chan Update, func(), error) {
	snaps, cancel, err := s.store.Subscribe(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	out := make(chan Update, 16)
	go func() {
		defer close(out)
		for snap := range snaps {
			var doc Document
			if err := json.Unmarshal(snap.Value, &doc); err != nil {
				s.log.WithError(err).WithField("room", code).Warn("dropping undecodable room document")
				continue
			}
			select {
			case out <- Update{Doc: &doc, Version: snap.Version}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, cancel, nil
}
