package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"novella/internal/affection"
	"novella/internal/config"
	"novella/internal/loader"
	"novella/internal/logging"
	"novella/internal/playback"
	"novella/internal/presentation"
	"novella/internal/saves"
	"novella/internal/scenario"
)

const maxBodyBytes = 1 << 16

// Server is the HTTP front end.
type Server struct {
	cfg      *config.Config
	loader   *loader.Loader
	saves    saves.Backend
	base     *slog.Logger
	logger   *slog.Logger
	sessions registry
	now      func() time.Time
	handler  http.Handler

	listener   net.Listener
	httpServer *http.Server
}

// New wires the routes. backend may be nil, in which case save and load
// answer 409 and autosave is off.
func New(cfg *config.Config, ld *loader.Loader, backend saves.Backend, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		loader: ld,
		saves:  backend,
		base:   logger,
		logger: logging.NewComponentLogger(logger, "server"),
		now:    time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	api := http.NewServeMux()
	api.HandleFunc("POST /api/sessions", s.handleCreate)
	api.HandleFunc("GET /api/sessions/{id}", s.handleGet)
	api.HandleFunc("DELETE /api/sessions/{id}", s.handleDelete)
	api.HandleFunc("POST /api/sessions/{id}/{action}", s.handleAction)
	mux.Handle("/api/", authMiddleware(cfg.Server.Token, api))

	s.handler = logRequests(s.logger, mux)
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured bind address and serves until ctx ends.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Server.Bind)
	if err != nil {
		return fmt.Errorf("server listen: %w", err)
	}
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "server error", "server_failed", logging.Error(err))
		}
	}()
	go s.evictLoop(ctx)
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the listening address once Start has run.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() {
	if s.httpServer == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.httpServer.Shutdown(shutdownCtx)
}

// Evict drops sessions idle for longer than the session TTL.
func (s *Server) Evict() int {
	ttl := s.cfg.SessionTTL()
	if ttl <= 0 {
		return 0
	}
	evicted := s.sessions.evict(s.now().Add(-ttl))
	for _, id := range evicted {
		s.logger.Info("session evicted", logging.String(logging.FieldSessionID, id))
	}
	return len(evicted)
}

// Sessions reports how many sessions are live.
func (s *Server) Sessions() int {
	return s.sessions.count()
}

func (s *Server) evictLoop(ctx context.Context) {
	interval := s.cfg.SessionTTL() / 2
	if interval <= 0 {
		return
	}
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Evict()
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]any{"status": "ok", "sessions": s.Sessions()})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	candidate, err := s.candidate(r.URL.Query().Get("scenario"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.loader.Load(r.Context(), candidate)
	if err != nil {
		s.logger.WarnContext(r.Context(), "session scenario failed to load",
			logging.String("candidate", candidate),
			logging.Error(err),
		)
		s.writeError(w, http.StatusBadRequest, "scenario could not be loaded")
		return
	}

	id := uuid.NewString()
	ctx := logging.WithSessionID(r.Context(), id)
	rec := presentation.NewRecorder()
	opts := playback.OptionsFromConfig(s.cfg, nil)
	if s.saves != nil {
		opts.Saves = s.saves
		opts.SaveSlot = sessionSlot(s.cfg.Playback.SaveSlot, id)
	} else {
		opts.Autosave = false
	}
	sessionLogger := logging.WithContext(ctx, s.base)
	e := &entry{
		id:       id,
		title:    res.Scenario.Meta.Title,
		origin:   res.Origin,
		session:  playback.New(scenario.NewStore(res.Scenario), affection.NewLedger(), rec, sessionLogger, opts),
		recorder: rec,
		lastUsed: s.now(),
	}
	if err := e.session.Start(ctx); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.sessions.add(e)
	s.logger.InfoContext(ctx, "session created",
		logging.String("origin", res.Origin),
		logging.String("title", e.title),
	)
	writeJSON(w, s.logger, http.StatusCreated, e.frame(rec.Drain()))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(_ context.Context, e *entry) (int, error) {
		return http.StatusOK, nil
	}, false)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.sessions.remove(id) {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	s.logger.InfoContext(logging.WithSessionID(r.Context(), id), "session deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var run func(ctx context.Context, e *entry) (int, error)
	switch r.PathValue("action") {
	case "advance":
		run = func(ctx context.Context, e *entry) (int, error) {
			return http.StatusOK, e.session.Advance(ctx)
		}
	case "tap":
		run = func(ctx context.Context, e *entry) (int, error) {
			e.session.Tap(ctx)
			return http.StatusOK, nil
		}
	case "restart":
		run = func(ctx context.Context, e *entry) (int, error) {
			return http.StatusOK, e.session.Restart(ctx)
		}
	case "choose":
		var req ChooseRequest
		if err := decodeBody(r, &req); err != nil || req.Index == nil {
			s.writeError(w, http.StatusBadRequest, `body must be {"index": n}`)
			return
		}
		run = func(ctx context.Context, e *entry) (int, error) {
			return http.StatusOK, e.session.Choose(ctx, *req.Index)
		}
	case "save", "load":
		var req SlotRequest
		if err := decodeBody(r, &req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid body")
			return
		}
		load := r.PathValue("action") == "load"
		run = func(ctx context.Context, e *entry) (int, error) {
			if load {
				return http.StatusOK, e.session.Load(ctx, req.Slot)
			}
			return http.StatusOK, e.session.Save(ctx, req.Slot)
		}
	default:
		s.writeError(w, http.StatusNotFound, "unknown action")
		return
	}
	s.withSession(w, r, run, true)
}

// withSession runs fn under the session lock and answers with a frame. When
// drain is set the frame carries the commands recorded since the last drain.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(context.Context, *entry) (int, error), drain bool) {
	id := r.PathValue("id")
	e, ok := s.sessions.get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "session not found")
		return
	}
	ctx := logging.WithSessionID(r.Context(), id)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastUsed = s.now()
	status, err := fn(ctx, e)
	if err != nil {
		status = statusFor(err)
		if status >= http.StatusInternalServerError {
			logging.ErrorWithContext(logging.WithContext(ctx, s.logger), "session request failed", "session_request_failed", logging.Error(err))
		}
		s.writeError(w, status, err.Error())
		return
	}
	var commands []presentation.Command
	if drain {
		commands = e.recorder.Drain()
	}
	writeJSON(w, s.logger, status, e.frame(commands))
}

// candidate limits the scenario query parameter to URLs on an allowed host
// and relative paths next to the configured scenario.
func (s *Server) candidate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw, nil
	}
	if config.IsRemote(raw) {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return "", errors.New("scenario URL is not valid")
		}
		if !slices.Contains(s.cfg.RemoteHosts(), strings.ToLower(u.Host)) {
			return "", fmt.Errorf("scenario host %q is not allowed", u.Host)
		}
		return raw, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(raw))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", errors.New("scenario must be a URL or a relative path")
	}
	base := s.cfg.Scenario.Location
	if base == "" || config.IsRemote(base) {
		return "", errors.New("local scenarios are not served")
	}
	return filepath.Join(filepath.Dir(base), cleaned), nil
}

func sessionSlot(base, id string) string {
	return base + "." + id
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, playback.ErrInvalidChoice):
		return http.StatusBadRequest
	case errors.Is(err, saves.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, saves.ErrInvalidSlot):
		return http.StatusBadRequest
	case errors.Is(err, playback.ErrNotAwaitingAdvance),
		errors.Is(err, playback.ErrNotAwaitingChoice),
		errors.Is(err, playback.ErrNotStarted),
		errors.Is(err, playback.ErrNoSaves),
		errors.Is(err, saves.ErrCorrupt):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, s.logger, status, errorBody{Error: message})
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil && logger != nil {
		logger.Error("failed to encode response", logging.Error(err))
	}
}
