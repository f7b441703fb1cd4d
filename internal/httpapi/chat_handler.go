package httpapi

import (
	"encoding/json"
	"net/http"

	"neural_chat/internal/chat"
	"neural_chat/internal/providers"
)

// chatRequestBody is the wire form of a chat invocation.
type chatRequestBody struct {
	Messages  []providers.Message `json:"messages"`
	Model     string              `json:"model,omitempty"`
	Provider  string              `json:"provider,omitempty"`
	SessionID string              `json:"session_id,omitempty"`
	MaxTokens int                 `json:"max_tokens,omitempty"`
}

func (d *Dependencies) decodeChatRequest(r *http.Request) (*chat.Request, error) {
	var body chatRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, err
	}

	req := &chat.Request{
		SessionID: body.SessionID,
		Provider:  body.Provider,
		Model:     body.Model,
		Messages:  body.Messages,
		MaxTokens: body.MaxTokens,
	}

	// Optional identity: unauthenticated chat streams without persistence.
	if user := d.Identity.CurrentUser(r); user != nil {
		req.UserID = user.ID
	}
	return req, nil
}

// handleChatStream serves POST /api/chat/stream as Server-Sent Events. The
// frame order is: at most one session event, content events in upstream
// arrival order, then exactly one end event.
func (d *Dependencies) handleChatStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	req, err := d.decodeChatRequest(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for event := range d.Proxy.Stream(r.Context(), *req) {
		data, err := json.Marshal(event)
		if err != nil {
			continue
		}
		if _, err := w.Write([]byte("data: ")); err != nil {
			return
		}
		if _, err := w.Write(data); err != nil {
			return
		}
		if _, err := w.Write([]byte("\n\n")); err != nil {
			return
		}
		flusher.Flush()
	}
}

// handleChat serves POST /api/chat, the non-streaming variant.
func (d *Dependencies) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	req, err := d.decodeChatRequest(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	writeJSON(w, http.StatusOK, d.Proxy.Complete(r.Context(), *req))
}
