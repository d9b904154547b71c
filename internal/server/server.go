// Package server exposes enriched records and their assets over HTTP.
//
// Routes:
//
//	GET /healthz
//	GET /records
//	GET /records/{id}
//	GET /records/{id}/social-image    asset whose origin URL is the record's socialImage
//	GET /records/{id}/project-image   asset named by the record's projectImage
//	GET /files/{name}
//
// socialImage and projectImage are soft links: they are resolved on every
// request and answer 404 when nothing matches.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/scmenrich/pkg/assets"
	"github.com/matzehuels/scmenrich/pkg/buildinfo"
	scmerrors "github.com/matzehuels/scmenrich/pkg/errors"
	"github.com/matzehuels/scmenrich/pkg/graph"
)

type config struct {
	addr   string
	logger *log.Logger
}

// Option configures a [Server].
type Option func(*config)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(c *config) { c.addr = addr }
}

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(c *config) { c.logger = l }
}

// Server is the read API.
type Server struct {
	*http.Server

	graph  graph.Store
	assets assets.Store
	logger *log.Logger
}

// New creates a server over records in g and bytes in store.
func New(g graph.Store, store assets.Store, opts ...Option) *Server {
	cfg := &config{addr: "localhost:8080", logger: log.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &Server{graph: g, assets: store, logger: cfg.logger}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(s.logRequests)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", s.handleHealth)
	router.Route("/records", func(r chi.Router) {
		r.Get("/", s.handleRecords)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleRecord)
			r.Get("/social-image", s.handleSocialImage)
			r.Get("/project-image", s.handleProjectImage)
		})
	})
	router.Get("/files/{name}", s.handleFile)

	s.Server = &http.Server{
		Addr:              cfg.addr,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
	}
	return s
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			s.logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()))
		}()
		next.ServeHTTP(ww, r)
	})
}

type health struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, health{Status: "healthy", Service: "scmenrich", Version: buildinfo.Version})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	recs, err := s.graph.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.graph.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSocialImage(w http.ResponseWriter, r *http.Request) {
	rec, err := s.graph.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if rec.SocialImage == "" {
		s.writeError(w, scmerrors.New(scmerrors.ErrCodeNotFound, "record %s has no social image", rec.ID))
		return
	}
	a, err := s.assets.FindByURL(r.Context(), rec.SocialImage)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.serveAsset(w, r, a)
}

func (s *Server) handleProjectImage(w http.ResponseWriter, r *http.Request) {
	rec, err := s.graph.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if rec.ProjectImage == "" {
		s.writeError(w, scmerrors.New(scmerrors.ErrCodeNotFound, "record %s has no project image", rec.ID))
		return
	}
	a, err := s.assets.FindByName(r.Context(), rec.ProjectImage)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.serveAsset(w, r, a)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	a, err := s.assets.FindByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.serveAsset(w, r, a)
}

func (s *Server) serveAsset(w http.ResponseWriter, r *http.Request, a *assets.Asset) {
	data, err := s.assets.Read(r.Context(), a)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", a.MediaType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("ETag", strconv.Quote(a.Digest))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write(data)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, graph.ErrNotFound), errors.Is(err, assets.ErrNotFound), scmerrors.Is(err, scmerrors.ErrCodeNotFound):
		status = http.StatusNotFound
	case scmerrors.Is(err, scmerrors.ErrCodeInvalidInput):
		status = http.StatusBadRequest
	default:
		s.logger.Error("request failed", "err", err)
	}
	s.writeJSON(w, status, map[string]string{"error": scmerrors.UserMessage(err)})
}
