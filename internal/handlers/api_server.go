// internal/handlers/api_server.go

// Package handlers is the HTTP surface: room create/join endpoints plus the
// websocket gateway each client keeps open for the life of a room.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pyatikantrop/pyatikantrop/internal/auth"
	"github.com/pyatikantrop/pyatikantrop/internal/room"
)

// sessionCookie carries the signed session token across requests and the
// websocket upgrade.
const sessionCookie = "session_token"

// Server routes the REST endpoints and the room websocket.
type Server struct {
	Rooms *room.Service
	Log   *logrus.Logger
	mux   *http.ServeMux
}

// NewServer wires the routes.
func NewServer(rooms *room.Service, log *logrus.Logger) *Server {
	s := &Server{Rooms: rooms, Log: log, mux: http.NewServeMux()}
	s.mux.HandleFunc("/", s.handlePing)
	s.mux.HandleFunc("/room/create", s.handleCreate)
	s.mux.HandleFunc("/room/join", s.handleJoin)
	s.mux.HandleFunc("/room/ws/", s.handleRoomWS)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createRequest struct {
	Seed int64 `json:"seed"`
}

type createResponse struct {
	Code string         `json:"code"`
	Room *room.Document `json:"room"`
}

// handleCreate provisions a room with the caller on seat 0. A zero seed means
// the server picks one.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sid, err := s.ensureSession(w, r)
	if err != nil {
		http.Error(w, "session error", http.StatusInternalServerError)
		return
	}

	var req createRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Seed == 0 {
		req.Seed = time.Now().UnixNano()
	}

	code, doc, err := s.Rooms.Create(r.Context(), sid, req.Seed)
	if err != nil {
		s.Log.WithError(err).Error("room create failed")
		http.Error(w, "could not create room", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, createResponse{Code: code, Room: doc})
}

type joinRequest struct {
	Code string `json:"code"`
	Self bool   `json:"self"`
}

type joinResponse struct {
	Seat int            `json:"seat"`
	Room *room.Document `json:"room"`
}

// handleJoin seats the caller in an existing room. With "self" set the caller
// claims the second seat of their own room and plays both sides.
func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sid, err := s.ensureSession(w, r)
	if err != nil {
		http.Error(w, "session error", http.StatusInternalServerError)
		return
	}

	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if req.Self {
		doc, err := s.Rooms.SelfJoin(r.Context(), req.Code, sid)
		if err != nil {
			s.joinError(w, req.Code, err)
			return
		}
		writeJSON(w, http.StatusOK, joinResponse{Seat: 1, Room: doc})
		return
	}

	seat, doc, err := s.Rooms.Join(r.Context(), req.Code, sid)
	if err != nil {
		s.joinError(w, req.Code, err)
		return
	}
	writeJSON(w, http.StatusOK, joinResponse{Seat: int(seat), Room: doc})
}

func (s *Server) joinError(w http.ResponseWriter, code string, err error) {
	switch {
	case errors.Is(err, room.ErrNotFound):
		http.Error(w, "room not found", http.StatusNotFound)
	case errors.Is(err, room.ErrRoomFull):
		http.Error(w, "room is full", http.StatusConflict)
	default:
		s.Log.WithError(err).WithField("room", code).Error("room join failed")
		http.Error(w, "could not join room", http.StatusInternalServerError)
	}
}

// ensureSession resolves the caller's session id from the cookie, minting a
// fresh session and setting the cookie when absent or invalid.
func (s *Server) ensureSession(w http.ResponseWriter, r *http.Request) (string, error) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if sid, err := auth.VerifyToken(c.Value); err == nil {
			return sid, nil
		}
	}

	sid := auth.NewSessionID()
	token, err := auth.CreateToken(sid)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sid, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
