// Package server exposes the turn orchestrator over HTTP for the browser
// chat UI: blocking JSON at /api/chat and SSE streaming at /api/chat/stream.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hrkit/interviewbot/chat"
	"github.com/hrkit/interviewbot/interview"
	"github.com/hrkit/interviewbot/provider"
	"github.com/hrkit/interviewbot/session"
)

// Turner produces the assistant's reply for one user turn.
// *chat.Orchestrator is the production implementation.
type Turner interface {
	ProcessMessage(ctx context.Context, message string, history []provider.Message, onChunk chat.ChunkFunc) (*chat.TurnResult, error)
}

// Server is the HTTP front of the interview backend.
type Server struct {
	turner   Turner
	sessions *session.Store
	logger   *slog.Logger
	srv      *http.Server
}

// ChatRequest is an incoming chat message. An empty SessionID starts a
// new interview session.
type ChatRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message"`
}

// ChatResponse is the reply for one turn.
type ChatResponse struct {
	SessionID string          `json:"sessionId"`
	Content   string          `json:"content"`
	ToolCalls []chat.ToolCall `json:"toolCalls,omitempty"`
	Done      bool            `json:"done"`
}

// New creates a server over the given orchestrator and session store.
func New(turner Turner, sessions *session.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		turner:   turner,
		sessions: sessions,
		logger:   logger,
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/api/chat", s.handleChat)
	r.Post("/api/chat/stream", s.handleChatStream)
	r.Get("/healthz", s.handleHealth)
	return r
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start(addr string) error {
	s.srv = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}

	s.logger.Info("starting server", "addr", addr)
	if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// resolveSession loads the request's session, creating one if no ID was
// provided.
func (s *Server) resolveSession(req *ChatRequest) (*session.Session, error) {
	if req.SessionID == "" {
		return s.sessions.Create(), nil
	}
	return s.sessions.Get(req.SessionID)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	sess, err := s.resolveSession(&req)
	if err != nil {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	start := time.Now()
	result, err := s.turner.ProcessMessage(r.Context(), req.Message, sess.History(), nil)
	if err != nil {
		s.logger.Error("turn failed", "session", sess.ID(), "err", err)
		http.Error(w, "failed to process message", http.StatusBadGateway)
		return
	}
	s.logger.Info("turn completed",
		"session", sess.ID(),
		"toolCalls", len(result.ToolCalls),
		"duration", time.Since(start))

	s.recordTurn(sess, req.Message, result.Content)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(ChatResponse{
		SessionID: sess.ID(),
		Content:   result.Content,
		ToolCalls: result.ToolCalls,
		Done:      sess.Concluded(),
	})
}

// streamEvent is one SSE payload. Delta events carry a fragment; the
// final event carries the whole turn.
type streamEvent struct {
	SessionID string          `json:"sessionId,omitempty"`
	Delta     string          `json:"delta,omitempty"`
	Content   string          `json:"content,omitempty"`
	ToolCalls []chat.ToolCall `json:"toolCalls,omitempty"`
	Done      bool            `json:"done,omitempty"`
	Error     string          `json:"error,omitempty"`
	Final     bool            `json:"final,omitempty"`
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	sess, err := s.resolveSession(&req)
	if err != nil {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	writeEvent := func(ev streamEvent) {
		data, err := json.Marshal(ev)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	result, err := s.turner.ProcessMessage(r.Context(), req.Message, sess.History(), func(delta string) {
		writeEvent(streamEvent{Delta: delta})
	})
	if err != nil {
		s.logger.Error("streaming turn failed", "session", sess.ID(), "err", err)
		writeEvent(streamEvent{Error: "failed to process message", Final: true})
		return
	}

	s.recordTurn(sess, req.Message, result.Content)

	writeEvent(streamEvent{
		SessionID: sess.ID(),
		Content:   result.Content,
		ToolCalls: result.ToolCalls,
		Done:      sess.Concluded(),
		Final:     true,
	})
}

// recordTurn appends the turn to the transcript and flags the session once
// the reply carries a role's concluding sentence.
func (s *Server) recordTurn(sess *session.Session, message, content string) {
	sess.Append(
		provider.Message{Role: provider.RoleUser, Content: message},
		provider.Message{Role: provider.RoleAssistant, Content: content},
	)
	if interview.Concluded(content) {
		sess.MarkConcluded()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
