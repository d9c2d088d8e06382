// Package service exposes vehicle tracking over HTTP.
package service

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/LdDl/vehicletrack/config"
	"github.com/LdDl/vehicletrack/session"
	"github.com/LdDl/vehicletrack/store"
)

const (
	paramBoxes     = "list_frame_contour"
	paramFramePath = "frame_path"
	paramThreshold = "detection_threshold"
	paramMemory    = "memory_frames_number"

	headerSessionID = "X-Session-ID"
)

// ReportStore persists reports of finished sessions
type ReportStore interface {
	Save(ctx context.Context, id uuid.UUID, report *session.Report) error
	Load(ctx context.Context, id uuid.UUID) (*session.Report, error)
	List(ctx context.Context) ([]store.Summary, error)
}

// Server handles tracking requests. Every request runs its own session.
type Server struct {
	cfg    config.Config
	store  ReportStore
	logger *zap.SugaredLogger
}

// NewServer creates server. Store may be nil: reports are not kept then.
func NewServer(cfg config.Config, reports ReportStore, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Server{
		cfg:    cfg,
		store:  reports,
		logger: logger,
	}
}

// Handler returns HTTP routes
func (srv *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/Track/", srv.handleTrack)
	mux.HandleFunc("GET /sessions", srv.handleSessions)
	mux.HandleFunc("GET /sessions/{id}", srv.handleSession)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, srv.logger, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

// ListenAndServe serves until ctx is done
func (srv *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		srv.logger.Infow("listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return errors.Wrap(err, "http server stopped")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

func (srv *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeJSONError(w, srv.logger, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	boxes := r.FormValue(paramBoxes)
	framePath := r.FormValue(paramFramePath)
	if boxes == "" || framePath == "" {
		writeJSONError(w, srv.logger, http.StatusBadRequest, paramBoxes+" and "+paramFramePath+" are required")
		return
	}
	cfg, err := srv.requestConfig(r)
	if err != nil {
		writeJSONError(w, srv.logger, http.StatusBadRequest, err.Error())
		return
	}

	s, err := session.New(cfg, session.ParseBoxSource(boxes), session.DirFrameSource{Dir: framePath}, session.WithLogger(srv.logger))
	if err != nil {
		writeJSONError(w, srv.logger, http.StatusBadRequest, err.Error())
		return
	}
	started := time.Now()
	report, err := s.Run(r.Context())
	if err != nil {
		srv.writeSessionError(w, s.ID(), err)
		return
	}
	if srv.store != nil {
		if err := srv.store.Save(r.Context(), s.ID(), report); err != nil {
			srv.logger.Errorw("can't store report", "session", s.ID().String(), "error", err)
			writeJSONError(w, srv.logger, http.StatusInternalServerError, "can't store report")
			return
		}
	}
	srv.logger.Infow("tracking request served", "session", s.ID().String(), "frames", report.Len(), "elapsed", time.Since(started))
	w.Header().Set(headerSessionID, s.ID().String())
	writeJSON(w, srv.logger, http.StatusOK, report)
}

// requestConfig applies optional request overrides on top of server configuration
func (srv *Server) requestConfig(r *http.Request) (config.Config, error) {
	cfg := srv.cfg
	if raw := r.FormValue(paramThreshold); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return cfg, errors.Errorf("%s must be a number", paramThreshold)
		}
		cfg.DetectionThreshold = value
	}
	if raw := r.FormValue(paramMemory); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			return cfg, errors.Errorf("%s must be an integer", paramMemory)
		}
		cfg.MemoryFramesNumber = value
	}
	return cfg, cfg.Validate()
}

func (srv *Server) writeSessionError(w http.ResponseWriter, id uuid.UUID, err error) {
	var userErr *session.UserError
	switch {
	case errors.As(err, &userErr):
		writeJSONError(w, srv.logger, http.StatusBadRequest, userErr.Message)
	case session.IsInputError(err):
		writeJSONError(w, srv.logger, http.StatusBadRequest, err.Error())
	default:
		srv.logger.Errorw("tracking failed", "session", id.String(), "error", err)
		writeJSONError(w, srv.logger, http.StatusInternalServerError, "tracking failed")
	}
}

func (srv *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if srv.store == nil {
		writeJSONError(w, srv.logger, http.StatusNotFound, "reports are not stored")
		return
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSONError(w, srv.logger, http.StatusBadRequest, "bad session id")
		return
	}
	report, err := srv.store.Load(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSONError(w, srv.logger, http.StatusNotFound, "unknown session")
		return
	}
	if err != nil {
		srv.logger.Errorw("can't load report", "session", id.String(), "error", err)
		writeJSONError(w, srv.logger, http.StatusInternalServerError, "can't load report")
		return
	}
	writeJSON(w, srv.logger, http.StatusOK, report)
}

func (srv *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if srv.store == nil {
		writeJSONError(w, srv.logger, http.StatusNotFound, "reports are not stored")
		return
	}
	summaries, err := srv.store.List(r.Context())
	if err != nil {
		srv.logger.Errorw("can't list reports", "error", err)
		writeJSONError(w, srv.logger, http.StatusInternalServerError, "can't list reports")
		return
	}
	writeJSON(w, srv.logger, http.StatusOK, summaries)
}
