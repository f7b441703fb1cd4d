package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"neural_chat/internal/session"
)

type sessionCreateRequest struct {
	Title     string `json:"title,omitempty"`
	ModelUsed string `json:"model_used,omitempty"`
}

// handleSessions serves /api/chat/sessions: POST creates a session, GET
// lists the caller's active sessions.
func (d *Dependencies) handleSessions(w http.ResponseWriter, r *http.Request) {
	user, err := d.Identity.CurrentActiveUser(r)
	if err != nil {
		writeJSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	switch r.Method {
	case http.MethodPost:
		var req sessionCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		sess, err := d.Sessions.CreateSession(r.Context(), user.ID, req.Title, req.ModelUsed)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to create session")
			return
		}
		writeJSON(w, http.StatusOK, sess)
	case http.MethodGet:
		sessions, err := d.Sessions.ListSessions(r.Context(), user.ID)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to list sessions")
			return
		}
		if sessions == nil {
			sessions = []*session.Session{}
		}
		writeJSON(w, http.StatusOK, sessions)
	default:
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleSessionByID serves /api/chat/sessions/{id} and
// /api/chat/sessions/{id}/messages.
func (d *Dependencies) handleSessionByID(w http.ResponseWriter, r *http.Request) {
	user, err := d.Identity.CurrentActiveUser(r)
	if err != nil {
		writeJSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/chat/sessions/")
	parts := strings.SplitN(rest, "/", 2)
	sessionID := parts[0]
	if sessionID == "" {
		writeJSONError(w, http.StatusBadRequest, "missing session id")
		return
	}

	if len(parts) == 2 {
		if parts[1] != "messages" || r.Method != http.MethodGet {
			writeJSONError(w, http.StatusNotFound, "not found")
			return
		}
		d.handleSessionMessages(w, r, sessionID, user.ID)
		return
	}

	switch r.Method {
	case http.MethodGet:
		sess, err := d.Sessions.FindActiveSession(r.Context(), sessionID, user.ID)
		if err != nil {
			writeJSONError(w, http.StatusNotFound, "session not found")
			return
		}
		writeJSON(w, http.StatusOK, sess)
	case http.MethodPut:
		var req sessionCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		sess, err := d.Sessions.RenameSession(r.Context(), sessionID, user.ID, req.Title)
		if err != nil {
			writeJSONError(w, http.StatusNotFound, "session not found")
			return
		}
		writeJSON(w, http.StatusOK, sess)
	case http.MethodDelete:
		if err := d.Sessions.DeactivateSession(r.Context(), sessionID, user.ID); err != nil {
			writeJSONError(w, http.StatusNotFound, "session not found")
			return
		}
		writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "session deleted"})
	default:
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (d *Dependencies) handleSessionMessages(w http.ResponseWriter, r *http.Request, sessionID, userID string) {
	// Ownership check before exposing the transcript.
	if _, err := d.Sessions.FindActiveSession(r.Context(), sessionID, userID); err != nil {
		writeJSONError(w, http.StatusNotFound, "session not found")
		return
	}

	msgs, err := d.Sessions.ListMessages(r.Context(), sessionID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}
	if msgs == nil {
		msgs = []session.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}
