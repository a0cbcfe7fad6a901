package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sideffect263/netviz-backend/internal/config"
	"github.com/sideffect263/netviz-backend/internal/conversations"
	"github.com/sideffect263/netviz-backend/internal/intel"
	"github.com/sideffect263/netviz-backend/internal/models"
	"github.com/sideffect263/netviz-backend/internal/session"
)

// ViewSource is what the API serves: consistent snapshots of every derived
// view plus the handful of commands the dashboard can issue.
type ViewSource interface {
	SessionView() session.View
	AnalysisFeed() []models.AnalysisEntry
	IntelSnapshot() *models.IntelSnapshot
	TargetDetail(key string) (*models.Target, []intel.QuickAction, bool)
	SubmitCommand(ctx context.Context, command string) error
	SetFocus(key string)
	ClearFocus()
	FocusedTarget() string

	ListConversations(ctx context.Context) ([]conversations.Conversation, error)
	LoadConversation(ctx context.Context, id string) error
	RenameConversation(ctx context.Context, id, title string) error
	DeleteConversation(ctx context.Context, id string) error
}

type Server struct {
	cfg    *config.Config
	source ViewSource
	hub    *Hub
	server *http.Server
	log    zerolog.Logger
}

func NewServer(cfg *config.Config, source ViewSource, log zerolog.Logger) *Server {
	hub := NewHub(log)
	go hub.Run()

	return &Server{
		cfg:    cfg,
		source: source,
		hub:    hub,
		log:    log.With().Str("component", "web").Logger(),
	}
}

// Hub exposes the broadcast side so the app can push view updates.
func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Web.ListenAddr,
		Handler:      s.handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.log.Info().Str("addr", s.cfg.Web.ListenAddr).Msg("dashboard API listening")
	return s.server.ListenAndServe()
}

func (s *Server) handler() http.Handler {
	mux := http.NewServeMux()

	// API endpoints
	mux.HandleFunc("/api/session", s.handleSession)
	mux.HandleFunc("/api/analysis", s.handleAnalysis)
	mux.HandleFunc("/api/intel", s.handleIntel)
	mux.HandleFunc("/api/intel/targets/", s.handleTarget)
	mux.HandleFunc("/api/command", s.handleCommand)
	mux.HandleFunc("/api/focus", s.handleFocus)
	mux.HandleFunc("/api/conversations", s.handleConversations)
	mux.HandleFunc("/api/conversations/", s.handleConversation)

	// WebSocket endpoint
	mux.HandleFunc("/ws", s.hub.ServeWS)

	// Health check
	mux.HandleFunc(
		"/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{
				"status":  "ok",
				"service": "netviz-backend",
			})
		},
	)

	return corsMiddleware(mux)
}

func (s *Server) Stop() error {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	}
	return nil
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.source.SessionView())
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.source.AnalysisFeed())
}

func (s *Server) handleIntel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.source.IntelSnapshot())
}

type targetDetail struct {
	Target       *models.Target      `json:"target"`
	QuickActions []intel.QuickAction `json:"quickActions"`
	Focused      bool                `json:"focused"`
}

func (s *Server) handleTarget(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	key := strings.TrimPrefix(r.URL.Path, "/api/intel/targets/")
	if key == "" {
		http.Error(w, `{"error": "target key is required"}`, http.StatusBadRequest)
		return
	}

	target, actions, ok := s.source.TargetDetail(key)
	if !ok {
		http.Error(w, `{"error": "target not found"}`, http.StatusNotFound)
		return
	}

	writeJSON(w, targetDetail{
		Target:       target,
		QuickActions: actions,
		Focused:      s.source.FocusedTarget() == key,
	})
}

type commandRequest struct {
	Command string `json:"command"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid request body"}`, http.StatusBadRequest)
		return
	}

	if err := s.source.SubmitCommand(r.Context(), req.Command); err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, session.ErrEmptyCommand):
			status = http.StatusBadRequest
		case errors.Is(err, session.ErrBusy):
			status = http.StatusConflict
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

type focusRequest struct {
	Key string `json:"key"`
}

func (s *Server) handleFocus(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req focusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
			http.Error(w, `{"error": "target key is required"}`, http.StatusBadRequest)
			return
		}
		s.source.SetFocus(req.Key)
		w.WriteHeader(http.StatusNoContent)

	case http.MethodDelete:
		s.source.ClearFocus()
		w.WriteHeader(http.StatusNoContent)

	case http.MethodGet:
		writeJSON(w, map[string]string{"focused": s.source.FocusedTarget()})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	list, err := s.source.ListConversations(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, list)
}

type renameRequest struct {
	Title string `json:"title"`
}

// handleConversation covers /api/conversations/{id} and the load action
// /api/conversations/{id}/load.
func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/conversations/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		http.Error(w, `{"error": "conversation id is required"}`, http.StatusBadRequest)
		return
	}

	switch {
	case action == "load" && r.Method == http.MethodPost:
		if err := s.source.LoadConversation(r.Context(), id); err != nil {
			writeError(w, http.StatusBadGateway, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case action == "" && r.Method == http.MethodPut:
		var req renameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
			http.Error(w, `{"error": "title is required"}`, http.StatusBadRequest)
			return
		}
		if err := s.source.RenameConversation(r.Context(), id, req.Title); err != nil {
			writeError(w, http.StatusBadGateway, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case action == "" && r.Method == http.MethodDelete:
		if err := s.source.DeleteConversation(r.Context(), id); err != nil {
			writeError(w, http.StatusBadGateway, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
