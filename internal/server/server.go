// Package server exposes the chat stream over HTTP: a websocket endpoint
// producing ordered turn events, plus title generation and stats.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lorekeep/lorekeep/internal/chat"
	"github.com/lorekeep/lorekeep/internal/metrics"
	"github.com/lorekeep/lorekeep/internal/stream"
)

// Generator is the LLM surface the server needs. *llm.Model satisfies it.
type Generator interface {
	StreamAnswer(ctx context.Context, prompt string, onToken func(token string) error) (string, error)
	GenerateTitle(ctx context.Context, text string) (string, error)
}

// Server handles chat stream connections.
type Server struct {
	gen      Generator
	metrics  *metrics.Collector
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// New creates a server around the given generator.
func New(gen Generator, mc *metrics.Collector, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		gen:     gen,
		metrics: mc,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // same-origin enforcement is the proxy's job
			},
		},
	}
}

// Handler returns the HTTP handler with all routes mounted.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/title", s.handleTitle)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	return mux
}

// handleChat upgrades to a websocket and serves turns: each ask frame from
// the client produces an ordered event sequence ending in done or error.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	for {
		var ask stream.Ask
		if err := conn.ReadJSON(&ask); err != nil {
			// Client hung up or sent garbage; either way the connection is done.
			s.logger.Debug("chat connection closed", "error", err)
			return
		}
		if ask.ChatID == "" {
			_ = conn.WriteJSON(chat.ErrorEvent("", "chat_id is required"))
			continue
		}

		s.serveTurn(ctx, conn, ask)
	}
}

// serveTurn runs one assistant turn, writing events in order. Write failures
// abort the turn silently: the client is gone and late events must not be
// retried out of order.
func (s *Server) serveTurn(ctx context.Context, conn *websocket.Conn, ask stream.Ask) {
	start := time.Now()
	s.logger.Debug("turn started", "chat_id", ask.ChatID)

	if err := conn.WriteJSON(chat.StatusEvent(ask.ChatID, chat.PhaseThinking, "Thinking")); err != nil {
		return
	}

	writing := false
	_, err := s.gen.StreamAnswer(ctx, ask.Prompt, func(token string) error {
		if !writing {
			writing = true
			if err := conn.WriteJSON(chat.StatusEvent(ask.ChatID, chat.PhaseWriting, "Writing")); err != nil {
				return err
			}
		}
		return conn.WriteJSON(chat.TokenEvent(ask.ChatID, token))
	})
	if err != nil {
		s.logger.Warn("turn failed", "chat_id", ask.ChatID, "error", err)
		_ = conn.WriteJSON(chat.ErrorEvent(ask.ChatID, err.Error()))
		return
	}

	if err := conn.WriteJSON(chat.DoneEvent(ask.ChatID)); err != nil {
		return
	}

	if s.metrics != nil {
		s.metrics.RecordTiming(metrics.OpTurn, time.Since(start))
	}
	s.logger.Debug("turn completed", "chat_id", ask.ChatID, "duration_ms", time.Since(start).Milliseconds())
}

// TitleRequest is the payload for POST /title.
type TitleRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// TitleResponse is the response for POST /title.
type TitleResponse struct {
	Title string `json:"title"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleTitle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req TitleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	title, err := s.gen.GenerateTitle(r.Context(), req.Text)
	if err != nil {
		s.logger.Warn("title generation failed", "chat_id", req.ChatID, "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, TitleResponse{Title: title})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		writeJSON(w, http.StatusOK, metrics.Snapshot{})
		return
	}
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Message: msg})
}
