// Package server exposes the chatbot over HTTP: a chat endpoint backed by
// the orchestrator, the per-conversation chat log and a health probe.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/clearcoat/paintdesk/history"
	"github.com/clearcoat/paintdesk/orchestrator"
	"github.com/clearcoat/paintdesk/pkg/logging"
)

// Responder handles one customer turn. *orchestrator.Orchestrator satisfies
// it.
type Responder interface {
	Respond(ctx context.Context, userText, conversationID string) *orchestrator.Response
}

// ChatLog records and lists per-conversation messages. *history.Store
// satisfies it.
type ChatLog interface {
	Save(ctx context.Context, conversationID, role, content string) error
	List(ctx context.Context, conversationID string, limit int) ([]history.Entry, error)
}

// Config holds HTTP server configuration.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns default HTTP server configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:            ":8080",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    150 * time.Second, // must cover a full agent invocation
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server is the HTTP front of the chatbot.
type Server struct {
	responder Responder
	chatLog   ChatLog // nil disables history persistence
	config    *Config
	logger    *slog.Logger
	httpSrv   *http.Server
}

// New creates a server. chatLog may be nil; history is then not persisted
// and the history endpoint returns empty lists.
func New(responder Responder, chatLog ChatLog, config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	s := &Server{
		responder: responder,
		chatLog:   chatLog,
		config:    config,
		logger:    logging.WithComponent("server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/chat/{conversation}/history", s.handleHistory)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.httpSrv = &http.Server{
		Addr:         config.Addr,
		Handler:      mux,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return s
}

// Handler returns the HTTP handler; mainly useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// ListenAndServe blocks serving HTTP until Shutdown or a listener error.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", "addr", s.config.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	return s.httpSrv.Shutdown(ctx)
}

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message cannot be empty")
		return
	}

	principal := principalFromHeaders(r.Header)
	s.logger.Info("chat turn",
		"conversation", req.ConversationID, "principal", principal.ID)

	s.saveHistory(r.Context(), req.ConversationID, "user", req.Message)

	resp := s.responder.Respond(r.Context(), req.Message, req.ConversationID)

	s.saveHistory(r.Context(), req.ConversationID, "assistant", resp.Text)

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	conversationID := r.PathValue("conversation")

	entries := []history.Entry{}
	if s.chatLog != nil {
		loaded, err := s.chatLog.List(r.Context(), conversationID, 0)
		if err != nil {
			s.logger.Error("failed to load chat history",
				"conversation", conversationID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load history")
			return
		}
		if loaded != nil {
			entries = loaded
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"conversation_id": conversationID,
		"messages":        entries,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// saveHistory is best-effort: a failing chat log never fails the turn.
func (s *Server) saveHistory(ctx context.Context, conversationID, role, content string) {
	if s.chatLog == nil || conversationID == "" || content == "" {
		return
	}
	if err := s.chatLog.Save(ctx, conversationID, role, content); err != nil {
		s.logger.Error("failed to save chat history",
			"conversation", conversationID, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
