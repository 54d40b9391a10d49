package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"flowmeter-agent/internal/adopt"
	"flowmeter-agent/internal/agent"
	"flowmeter-agent/internal/telemetry"
)

// Reporter is the part of the agent the admin server drives.
type Reporter interface {
	Status() agent.Status
	SubmitConfig(payload []byte) error
	SubmitCommand(payload []byte) error
}

// Options wires the server.
type Options struct {
	Reporter  Reporter
	Adopt     func() adopt.Document
	Recent    *agent.RecentRows
	Hub       *Hub
	JWTSecret string
	Logger    *slog.Logger
}

// Server exposes the agent over HTTP.
type Server struct {
	opts Options
	tpl  *template.Template
	mux  *http.ServeMux
	log  *slog.Logger
}

//go:embed templates/index.html
var content embed.FS

const maxBody = 4096

// NewServer builds the server and its routes.
func NewServer(o Options) *Server {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Hub == nil {
		o.Hub = NewHub(o.Logger)
	}
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	s := &Server{opts: o, tpl: tpl, mux: http.NewServeMux(), log: o.Logger}
	s.routes()
	return s
}

func (s *Server) routes() {
	auth := RequireToken(s.opts.JWTSecret)
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /adopt", s.handleAdopt)
	s.mux.HandleFunc("GET /status", s.handleStatus)
	s.mux.HandleFunc("GET /telemetry", s.handleTelemetry)
	s.mux.HandleFunc("GET /ws", s.opts.Hub.ServeWS)
	s.mux.Handle("POST /config", auth(http.HandlerFunc(s.handleConfig)))
	s.mux.Handle("POST /command", auth(http.HandlerFunc(s.handleCommand)))
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.mux }

// Start serves on addr until ctx is cancelled. ready, when non-nil, is
// called once the listener is up.
func (s *Server) Start(ctx context.Context, addr string, ready func(bool)) error {
	srv := &http.Server{Addr: addr, Handler: s.mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("admin server listening", "addr", addr)
	if ready != nil {
		ready(true)
		defer ready(false)
	}
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Status agent.Status
		Rows   []telemetry.Row
	}{Status: s.opts.Reporter.Status()}
	if s.opts.Recent != nil {
		data.Rows = s.opts.Recent.Rows()
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tpl.Execute(w, data); err != nil {
		s.log.Error("render index failed", "err", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAdopt(w http.ResponseWriter, r *http.Request) {
	if s.opts.Adopt == nil {
		http.Error(w, "adoption not available", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.opts.Adopt())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Reporter.Status())
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	rows := []telemetry.Row{}
	if s.opts.Recent != nil {
		rows = s.opts.Recent.Rows()
	}
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n >= 0 && n < len(rows) {
		rows = rows[len(rows)-n:]
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, s.opts.Reporter.SubmitConfig)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, s.opts.Reporter.SubmitCommand)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, fn func([]byte) error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	if err := fn(body); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, agent.ErrInboxFull) {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"accepted": true})
}
