// internal/handlers/room_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/pyatikantrop/pyatikantrop/internal/client"
	"github.com/pyatikantrop/pyatikantrop/internal/deck"
	"github.com/pyatikantrop/pyatikantrop/internal/game"
	"github.com/pyatikantrop/pyatikantrop/internal/room"
)

// inboundMsg is one client intent off the wire.
type inboundMsg struct {
	Type string        `json:"type"`
	Card *deck.Card    `json:"card,omitempty"`
	Suit deck.Suit     `json:"suit,omitempty"`
	Mode game.TossMode `json:"mode,omitempty"`
	Seed int64         `json:"seed,omitempty"`
}

// outboundMsg is one server-to-client frame.
type outboundMsg struct {
	Type    string         `json:"type"`
	Seat    *int           `json:"seat,omitempty"`
	Room    *room.Document `json:"room,omitempty"`
	Message string         `json:"message,omitempty"`
}

// handleRoomWS upgrades the connection and binds it to a room client. Every
// accepted document lands on the socket as a room_state frame; every inbound
// frame becomes an intent against the shared document.
func (s *Server) handleRoomWS(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimPrefix(r.URL.Path, "/room/ws/")
	if !room.ValidCode(code) {
		http.Error(w, "invalid room code", http.StatusBadRequest)
		return
	}
	sid, err := s.ensureSession(w, r)
	if err != nil {
		http.Error(w, "session error", http.StatusInternalServerError)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.Log.WithError(err).Warn("websocket accept failed")
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	cl := client.New(s.Rooms, sid, s.Log)
	seat, err := cl.JoinRoom(ctx, code)
	if err != nil {
		switch {
		case errors.Is(err, room.ErrNotFound):
			c.Close(websocket.StatusPolicyViolation, "room not found")
		case errors.Is(err, room.ErrRoomFull):
			c.Close(websocket.StatusPolicyViolation, "room is full")
		default:
			s.Log.WithError(err).WithField("room", code).Warn("websocket join failed")
			c.Close(websocket.StatusInternalError, "join failed")
		}
		return
	}
	if r.URL.Query().Get("solo") == "1" {
		if err := cl.SelfJoin(ctx); err != nil {
			s.Log.WithError(err).WithField("room", code).Warn("solo claim failed")
		}
	}

	s.Log.WithFields(logrus.Fields{
		"room": code, "seat": int(seat), "remote": r.RemoteAddr,
	}).Info("websocket connected")

	out := make(chan outboundMsg, 16)
	seatNum := int(seat)
	out <- outboundMsg{Type: "joined", Seat: &seatNum}
	cl.OnChange = func(doc *room.Document) {
		select {
		case out <- outboundMsg{Type: "room_state", Room: doc}:
		default:
			// A slow socket drops intermediate states; the next one supersedes.
		}
	}

	go s.writePump(ctx, c, out)
	go func() {
		if err := cl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.Log.WithError(err).WithField("room", code).Warn("room watch ended")
		}
		cancel()
	}()

	s.readPump(ctx, c, cl, out)
	s.Log.WithFields(logrus.Fields{"room": code, "seat": seatNum}).Info("websocket disconnected")
}

// readPump decodes inbound frames and applies them until the socket closes.
func (s *Server) readPump(ctx context.Context, c *websocket.Conn, cl *client.Client, out chan<- outboundMsg) {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			continue
		}
		var msg inboundMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			out <- outboundMsg{Type: "error", Message: "invalid json"}
			continue
		}

		ok, err := s.applyIntent(ctx, cl, msg)
		if err != nil {
			out <- outboundMsg{Type: "error", Message: "intent failed"}
			continue
		}
		if !ok {
			out <- outboundMsg{Type: "rejected", Message: msg.Type}
		}
	}
}

func (s *Server) applyIntent(ctx context.Context, cl *client.Client, msg inboundMsg) (bool, error) {
	switch msg.Type {
	case "play_card":
		if msg.Card == nil {
			return false, nil
		}
		return cl.PlayCard(ctx, *msg.Card)
	case "draw_penalty":
		return cl.DrawPenalty(ctx)
	case "draw_no_move":
		return cl.DrawIfNoMove(ctx)
	case "choose_suit":
		return cl.ChooseSuit(ctx, msg.Suit)
	case "confirm_suit":
		return cl.ConfirmSuit(ctx)
	case "next_round":
		return cl.NextRound(ctx)
	case "toss_mode":
		return cl.TossMode(ctx, msg.Mode)
	case "toss_draw":
		seed := msg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		return cl.TossDraw(ctx, seed)
	default:
		return false, nil
	}
}

// writePump serializes outbound frames and keeps the connection alive with
// periodic pings.
func (s *Server) writePump(ctx context.Context, c *websocket.Conn, out <-chan outboundMsg) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-out:
			data, err := json.Marshal(msg)
			if err != nil {
				s.Log.WithError(err).Warn("marshal outbound frame")
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
