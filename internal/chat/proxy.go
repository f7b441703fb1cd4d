package chat

import (
	"context"
	"strings"
	"time"

	"neural_chat/internal/logging"
	"neural_chat/internal/providers"
	"neural_chat/internal/registry"
	"neural_chat/internal/session"
)

// temperature is fixed for the whole chat pipeline.
const temperature = 0.7

// Event types on the caller-facing stream.
const (
	EventSession = "session"
	EventContent = "content"
	EventEnd     = "end"
)

// Event is one frame of the caller-facing stream. Per stream: at most one
// session event first, zero or more content events, then exactly one end
// event.
type Event struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

// Request describes one chat invocation.
type Request struct {
	UserID    string // empty means unauthenticated: stream but never persist
	SessionID string // optional; ignored when unauthenticated
	Provider  string // empty means the active provider
	Model     string // empty means the active model
	Messages  []providers.Message
	MaxTokens int
}

// Upstream is the slice of the provider client the proxy needs.
type Upstream interface {
	ChatCompletion(ctx context.Context, req providers.ChatRequest) (*providers.Completion, error)
	StreamChatCompletion(ctx context.Context, req providers.ChatRequest) (providers.Stream, error)
}

// Options configures a Proxy.
type Options struct {
	Workers      int           // max concurrent upstream calls
	StreamBuffer int           // event channel buffer per stream
	Timeout      time.Duration // upstream request timeout
}

// Proxy brokers chat requests to upstream providers, relays streamed tokens
// to the caller and records the conversation.
type Proxy struct {
	registry *registry.Registry
	store    session.Store
	opts     Options

	// sem bounds concurrent upstream calls so blocking provider I/O cannot
	// exhaust the process.
	sem chan struct{}

	// newUpstream builds a client for a resolved provider; replaced in tests.
	newUpstream func(cfg registry.EffectiveConfig) Upstream
}

// New creates a chat proxy.
func New(reg *registry.Registry, store session.Store, opts Options) *Proxy {
	if opts.Workers <= 0 {
		opts.Workers = 16
	}
	if opts.StreamBuffer <= 0 {
		opts.StreamBuffer = 64
	}

	return &Proxy{
		registry: reg,
		store:    store,
		opts:     opts,
		sem:      make(chan struct{}, opts.Workers),
		newUpstream: func(cfg registry.EffectiveConfig) Upstream {
			return providers.NewClient(providers.Config{
				BaseURL: cfg.BaseURL,
				APIKey:  cfg.APIKey,
				Timeout: opts.Timeout,
			})
		},
	}
}

// selection applies the active default to unqualified requests. The snapshot
// is taken once; concurrent reconfiguration never affects this request.
func (p *Proxy) selection(req *Request) {
	active := p.registry.Active()
	if req.Provider == "" {
		req.Provider = active.Provider
	}
	if req.Model == "" {
		req.Model = active.Model
	}
}

// resolveSession returns the session for an authenticated request, creating
// one when the caller supplied no usable session ID. resumed reports whether
// an existing transcript was picked up. Unauthenticated requests get no
// session; a store failure degrades the same way.
func (p *Proxy) resolveSession(ctx context.Context, req *Request) (sess *session.Session, resumed bool) {
	if req.UserID == "" {
		return nil, false
	}

	if req.SessionID != "" {
		sess, err := p.store.FindActiveSession(ctx, req.SessionID, req.UserID)
		if err == nil {
			return sess, true
		}
		if err != session.ErrNotFound {
			logging.Errorf("chat: session lookup failed: %v", err)
		}
	}

	created, err := p.store.CreateSession(ctx, req.UserID, session.DefaultTitle, req.Model)
	if err != nil {
		logging.Errorf("chat: session creation failed, continuing without persistence: %v", err)
		return nil, false
	}
	return created, false
}

// persistUserMessage records the triggering user message before upstream
// dispatch, so it survives an immediate upstream failure.
func (p *Proxy) persistUserMessage(ctx context.Context, sess *session.Session, req *Request) {
	if sess == nil || len(req.Messages) == 0 {
		return
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != session.RoleUser {
		return
	}
	if err := p.store.AppendMessage(ctx, sess.ID, last.Role, last.Content, req.Model); err != nil {
		logging.Errorf("chat: failed to persist user message: %v", err)
	}
}

// history returns the messages to send upstream: the stored transcript for a
// resumed session, the caller-supplied list otherwise. A fresh session's
// transcript holds only the just-persisted user message, so the caller's
// list (which may carry a system prompt) is the fuller picture.
func (p *Proxy) history(ctx context.Context, sess *session.Session, resumed bool, req *Request) []providers.Message {
	if sess == nil || !resumed {
		return req.Messages
	}

	stored, err := p.store.ListMessages(ctx, sess.ID)
	if err != nil || len(stored) == 0 {
		if err != nil {
			logging.Errorf("chat: failed to load transcript, using request messages: %v", err)
		}
		return req.Messages
	}

	msgs := make([]providers.Message, 0, len(stored))
	for _, m := range stored {
		msgs = append(msgs, providers.Message{Role: m.Role, Content: m.Content})
	}
	return msgs
}

// Stream runs one streaming chat invocation and returns the event channel.
// The channel is closed after the trailing end event. An upstream failure is
// converted into a readable content event; the stream protocol always
// completes cleanly.
func (p *Proxy) Stream(ctx context.Context, req Request) <-chan Event {
	p.selection(&req)

	events := make(chan Event, p.opts.StreamBuffer)

	go func() {
		defer close(events)

		sess, resumed := p.resolveSession(ctx, &req)
		if sess != nil {
			if !p.emit(ctx, events, Event{Type: EventSession, SessionID: sess.ID}) {
				return
			}
			p.persistUserMessage(ctx, sess, &req)
		}

		accumulated := p.relay(ctx, events, sess, resumed, &req)

		p.finalize(ctx, sess, &req, accumulated)

		p.emit(ctx, events, Event{Type: EventEnd})
	}()

	return events
}

// relay opens the upstream stream and forwards fragments until completion,
// returning everything emitted. Failures become a single readable content
// event.
func (p *Proxy) relay(ctx context.Context, events chan<- Event, sess *session.Session, resumed bool, req *Request) string {
	// Bounded worker slot for the blocking upstream call.
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ""
	}
	defer func() { <-p.sem }()

	cfg, err := p.registry.Resolve(req.Provider)
	if err != nil {
		p.emit(ctx, events, Event{Type: EventContent, Content: errorText(err)})
		return ""
	}

	stream, err := p.newUpstream(cfg).StreamChatCompletion(ctx, providers.ChatRequest{
		Model:       req.Model,
		Messages:    p.history(ctx, sess, resumed, req),
		Temperature: temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		p.emit(ctx, events, Event{Type: EventContent, Content: errorText(err)})
		return ""
	}
	defer stream.Close()

	var b strings.Builder
	for {
		fragment, finished, err := stream.Recv()
		if err != nil {
			// Mid-stream failure: surface what we have plus the reason,
			// then complete the protocol normally.
			p.emit(ctx, events, Event{Type: EventContent, Content: errorText(err)})
			return b.String()
		}
		if fragment != "" {
			b.WriteString(fragment)
			if !p.emit(ctx, events, Event{Type: EventContent, Content: fragment}) {
				// Caller is gone; stop relaying. Persisted state up to the
				// last emitted chunk is retained.
				return b.String()
			}
		}
		if finished {
			return b.String()
		}
	}
}

// finalize persists the assistant message and bumps the session timestamp.
// Zero accumulated content is valid and persists nothing.
func (p *Proxy) finalize(ctx context.Context, sess *session.Session, req *Request, accumulated string) {
	if sess == nil {
		return
	}
	content := strings.TrimSpace(accumulated)
	if content == "" {
		return
	}

	if err := p.store.AppendMessage(ctx, sess.ID, session.RoleAssistant, content, req.Model); err != nil {
		logging.Errorf("chat: failed to persist assistant message: %v", err)
		return
	}
	if err := p.store.TouchSession(ctx, sess.ID); err != nil {
		logging.Errorf("chat: failed to touch session: %v", err)
	}
}

// emit sends one event, honoring cancellation. Returns false when the caller
// disconnected.
func (p *Proxy) emit(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// Completion is the non-streaming result.
type Completion struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// Complete runs a non-streaming chat invocation with the same dispatch and
// error-to-text policy as Stream. No session handling on this path.
func (p *Proxy) Complete(ctx context.Context, req Request) *Completion {
	p.selection(&req)

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return &Completion{Content: errorText(ctx.Err()), Model: req.Model}
	}
	defer func() { <-p.sem }()

	cfg, err := p.registry.Resolve(req.Provider)
	if err != nil {
		return &Completion{Content: errorText(err), Model: req.Model}
	}

	result, err := p.newUpstream(cfg).ChatCompletion(ctx, providers.ChatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return &Completion{Content: errorText(err), Model: req.Model}
	}

	finish := result.FinishReason
	if finish == "" {
		finish = "stop"
	}
	return &Completion{Content: result.Content, Model: req.Model, FinishReason: finish}
}

// errorText renders an upstream or configuration failure as transcript text.
func errorText(err error) string {
	return "Error: " + err.Error()
}
