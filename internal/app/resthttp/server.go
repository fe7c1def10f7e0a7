package resthttp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sir_venger/chunkload/internal/config"
	"github.com/sir_venger/chunkload/internal/models"
	meta "github.com/sir_venger/chunkload/internal/repo"
	"github.com/sir_venger/chunkload/internal/usecase/sessionsvc"
	s3backend "github.com/sir_venger/chunkload/internal/usecase/sessionsvc/adapters/s3"
	adapters "github.com/sir_venger/chunkload/internal/usecase/sessionsvc/adapters/storage"
	"github.com/sir_venger/chunkload/pkg/storageclient"
	"github.com/sir_venger/chunkload/pkg/storageproto"
)

// SessionService: операции над сессиями загрузок, которые обслуживает API.
type SessionService interface {
	Initiate(ctx context.Context, in sessionsvc.InitiateInput) (models.UploadSession, error)
	Complete(ctx context.Context, in sessionsvc.CompleteInput) (models.Session, error)
	Abort(ctx context.Context, uploadID, key string) error
	Open(ctx context.Context, key string) (io.ReadCloser, models.Session, error)
}

type Server struct {
	Sessions SessionService
	// Router есть только у node-бэкенда.
	Router *sessionsvc.Router
	Cfg    *config.Config
	Logger *slog.Logger

	closers []func()
}

type addStoragesRequest struct {
	Storages []string `json:"storages"`
}

// NewServer конструктор: поднимает хранилище сессий, бэкенд и маршруты.
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (http.Handler, *Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := meta.Open(ctx, cfg.MetaDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open meta store: %w", err)
	}

	srv := &Server{Cfg: cfg, Logger: logger, closers: []func(){store.Close}}

	backend, err := srv.buildBackend(ctx)
	if err != nil {
		srv.Close()
		return nil, nil, err
	}

	srv.Sessions = sessionsvc.New(sessionsvc.Deps{
		Sessions:  store,
		Backend:   backend,
		KeyPrefix: cfg.KeyPrefix,
		URLTTL:    cfg.URLTTL,
		MaxParts:  cfg.MaxParts,
		Logger:    logger,
	})

	return srv.Routes(), srv, nil
}

func (s *Server) buildBackend(ctx context.Context) (sessionsvc.Backend, error) {
	switch s.Cfg.Backend {
	case config.BackendS3:
		return s3backend.FromConfig(ctx, s.Cfg.S3)
	case config.BackendNode:
		adapter := adapters.NewHealthAdapter(s.Cfg.MaxStorageLoadBytes)
		adapter.Logger = s.Logger
		s.Router = sessionsvc.NewRouter(adapter)
		s.Router.Set(s.Cfg.Storages)
		return sessionsvc.NewNodeBackend(s.Router, storageclient.New(), s.Cfg.SigningSecret), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", s.Cfg.Backend)
	}
}

// Routes собирает chi-роутер API.
func (s *Server) Routes() http.Handler {
	rtr := chi.NewRouter()
	rtr.Use(middleware.RequestID, middleware.Recoverer, s.logRequests)

	rtr.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	rtr.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Post(storageproto.APIInitiatePath, s.initiate)
		r.Post(storageproto.APICompletePath, s.complete)
		r.Post(storageproto.APIAbortPath, s.abort)
		r.Get(storageproto.APIObjectPrefix+"*", s.getObject)

		r.Get("/admin/config", func(w http.ResponseWriter, _ *http.Request) { writeJSON(w, http.StatusOK, s.Cfg) })
		r.Get("/admin/storages", s.listStorages)
		r.Post("/admin/storages", s.addStorages)
	})

	return rtr
}

// Close освобождает хранилище сессий.
func (s *Server) Close() {
	for _, c := range s.closers {
		c()
	}
	s.closers = nil
}

func (s *Server) listStorages(w http.ResponseWriter, _ *http.Request) {
	if s.Router == nil {
		http.Error(w, "storage nodes are not used by "+s.Cfg.Backend+" backend", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, addStoragesRequest{Storages: s.Router.Storages()})
}

func (s *Server) addStorages(w http.ResponseWriter, r *http.Request) {
	if s.Router == nil {
		http.Error(w, "storage nodes are not used by "+s.Cfg.Backend+" backend", http.StatusNotFound)
		return
	}

	var payload addStoragesRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(payload.Storages) == 0 {
		http.Error(w, "storages list is empty", http.StatusBadRequest)
		return
	}

	s.Router.Add(payload.Storages...)
	s.Logger.Info("storages added", "storages", payload.Storages)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
