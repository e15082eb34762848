// Package api exposes the sealing service over HTTP: sealing and verifying
// uploads, the public verification view and file downloads.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dharsanguruparan/SealDrop/internal/config"
	"github.com/dharsanguruparan/SealDrop/internal/keys"
	"github.com/dharsanguruparan/SealDrop/internal/links"
	"github.com/dharsanguruparan/SealDrop/internal/queue"
	"github.com/dharsanguruparan/SealDrop/internal/repository"
	"github.com/dharsanguruparan/SealDrop/internal/seal"
	"github.com/dharsanguruparan/SealDrop/internal/storage"
)

// Deps are the collaborators of a Server. Auditor may be nil.
type Deps struct {
	Sealer    *seal.Sealer
	Keys      *keys.Pair
	Store     storage.Store
	Ledger    repository.Ledger
	Auditor   queue.Auditor
	Links     *links.Signer
	BrandMark []byte
	Logger    *zap.Logger
}

// Presigner is implemented by stores that can hand out direct download URLs.
// Downloads from such stores redirect instead of streaming through the API.
type Presigner interface {
	PresignURL(ctx context.Context, key, downloadName string, ttl time.Duration) (string, error)
}

// Server exposes HTTP endpoints for sealing and verification.
type Server struct {
	cfg     *config.Config
	sealer  *seal.Sealer
	keys    *keys.Pair
	store   storage.Store
	ledger  repository.Ledger
	auditor queue.Auditor
	links   *links.Signer
	brand   []byte
	logger  *zap.Logger

	handler http.Handler
	server  *http.Server
	once    sync.Once
}

// New constructs a Server.
func New(cfg *config.Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	linkSigner := deps.Links
	if linkSigner == nil {
		linkSigner = links.NewSigner(cfg.LinkSecret)
	}
	s := &Server{
		cfg:     cfg,
		sealer:  deps.Sealer,
		keys:    deps.Keys,
		store:   deps.Store,
		ledger:  deps.Ledger,
		auditor: deps.Auditor,
		links:   linkSigner,
		brand:   deps.BrandMark,
		logger:  logger.With(zap.String("component", "api")),
	}
	s.handler = corsMiddleware(s.loggingMiddleware(s.routes()))
	return s
}

// Handler returns the fully wrapped route table.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.once.Do(func() {
		s.server = &http.Server{
			Addr:              s.cfg.Address,
			Handler:           s.handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
	})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()
	s.logger.Info("api listening", zap.String("addr", s.cfg.Address))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/sign", s.handleSign)
	mux.HandleFunc("/verify", s.handleVerify)
	mux.HandleFunc("/v/", s.handleDocumentRoute(s.handleView))
	mux.HandleFunc("/file/", s.handleDocumentRoute(s.handleFile))
	mux.HandleFunc("/download/", s.handleDocumentRoute(s.handleDownload))
	mux.HandleFunc("/static/brand.png", s.handleBrandMark)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleDocumentRoute extracts the document id from "/{prefix}/{id}" and
// rejects ids that cannot name a stored object.
func (s *Server) handleDocumentRoute(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		path := strings.TrimPrefix(r.URL.Path, "/")
		parts := strings.Split(path, "/")
		if len(parts) != 2 || parts[1] == "" {
			http.NotFound(w, r)
			return
		}
		id := parts[1]
		if err := storage.ValidateKey(storage.ObjectKey(id)); err != nil {
			http.NotFound(w, r)
			return
		}
		next(w, r, id)
	}
}

func (s *Server) handleBrandMark(w http.ResponseWriter, r *http.Request) {
	if len(s.brand) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(s.brand)
}

// baseURL is the prefix document ids are appended to in verification links.
func (s *Server) baseURL(r *http.Request) string {
	if s.cfg.BaseURL != "" {
		base := s.cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		return base
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	return scheme + "://" + r.Host + "/v/"
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("encode response", zap.Error(err))
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Int("bytes", rec.bytes),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
