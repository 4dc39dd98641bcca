// Package api exposes the payoff engine, template catalog, combination
// scanner and saved-strategy store over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/halpert/bigtuna/internal/catalog"
	"github.com/halpert/bigtuna/internal/chain"
	"github.com/halpert/bigtuna/internal/models"
	"github.com/halpert/bigtuna/internal/payoff"
	"github.com/halpert/bigtuna/internal/scanner"
	"github.com/halpert/bigtuna/internal/storage"
)

const expirationLayout = "2006-01-02"

type Server struct {
	router    *chi.Mux
	server    *http.Server
	engine    *payoff.Engine
	catalog   *catalog.Catalog
	scanner   *scanner.Scanner
	provider  chain.Provider
	storage   storage.Interface
	logger    *logrus.Logger
	listen    string
	authToken string
	symbol    string
}

type Config struct {
	Listen       string
	AuthToken    string
	Symbol       string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func NewServer(cfg Config, engine *payoff.Engine, cat *catalog.Catalog, scan *scanner.Scanner,
	provider chain.Provider, store storage.Interface, logger *logrus.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		engine:    engine,
		catalog:   cat,
		scanner:   scan,
		provider:  provider,
		storage:   store,
		logger:    logger,
		listen:    cfg.Listen,
		authToken: cfg.AuthToken,
		symbol:    cfg.Symbol,
	}

	s.server = &http.Server{
		Addr:         cfg.Listen,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	if s.authToken != "" {
		s.router.Use(s.authMiddleware)
	}

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/scan", s.handleScan)
		r.Get("/templates", s.handleTemplates)
		r.Get("/expirations", s.handleExpirations)

		r.Route("/strategies", func(r chi.Router) {
			r.Post("/", s.handleSaveStrategy)
			r.Get("/", s.handleListStrategies)
			r.Get("/{id}", s.handleGetStrategy)
			r.Delete("/{id}", s.handleDeleteStrategy)
		})
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		token := r.Header.Get("X-Auth-Token")
		if token == "" {
			token = r.URL.Query().Get("token")
		}

		if token != s.authToken {
			s.writeError(w, http.StatusUnauthorized, fmt.Errorf("unauthorized"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) Start() error {
	s.logger.Infof("Starting API server on %s", s.listen)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler { return s.router }

// handleAnalyze evaluates a strategy's payoff at expiration.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var strategy models.Strategy
	if err := decodeJSON(r, &strategy); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	analysis, err := s.engine.Evaluate(&strategy)
	if err != nil {
		s.writeEvaluationError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, analysis)
}

type scanRequest struct {
	Template       string  `json:"template"`
	Symbol         string  `json:"symbol,omitempty"`
	Expiration     string  `json:"expiration"`
	Spot           float64 `json:"spot,omitempty"`
	TopN           int     `json:"top_n,omitempty"`
	MaxEvaluations int     `json:"max_evaluations,omitempty"`
}

// handleScan fetches the chain for the requested expiration and runs a
// combination scan over it.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Template == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("template is required"))
		return
	}
	expiration, err := time.Parse(expirationLayout, req.Expiration)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("expiration must be YYYY-MM-DD: %w", err))
		return
	}
	symbol := req.Symbol
	if symbol == "" {
		symbol = s.symbol
	}

	snapshot, err := s.provider.GetSnapshot(r.Context(), symbol, req.Expiration)
	if err != nil {
		s.logger.WithError(err).Error("Failed to fetch chain snapshot")
		s.writeError(w, http.StatusBadGateway, fmt.Errorf("fetching chain for %s: %w", symbol, err))
		return
	}

	resp, err := s.scanner.Scan(r.Context(), scanner.Request{
		Template:       req.Template,
		Snapshot:       snapshot,
		Expiration:     expiration,
		Spot:           req.Spot,
		TopN:           req.TopN,
		MaxEvaluations: req.MaxEvaluations,
	})
	if err != nil {
		if errors.Is(err, catalog.ErrUnknownTemplate) {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

type templateView struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Slots       int    `json:"slots"`
	Structure   string `json:"structure"`
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	names := s.catalog.Names()
	views := make([]templateView, 0, len(names))
	for _, name := range names {
		tmpl, err := s.catalog.Get(name)
		if err != nil {
			continue
		}
		views = append(views, templateView{
			Name:        tmpl.Name,
			Description: tmpl.Description,
			Slots:       tmpl.Slots,
			Structure:   string(tmpl.Structure),
		})
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleExpirations(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		symbol = s.symbol
	}

	expirations, err := s.provider.GetExpirations(r.Context(), symbol)
	if err != nil {
		s.logger.WithError(err).Error("Failed to fetch expirations")
		s.writeError(w, http.StatusBadGateway, fmt.Errorf("fetching expirations for %s: %w", symbol, err))
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{"symbol": symbol, "expirations": expirations})
}

func (s *Server) handleSaveStrategy(w http.ResponseWriter, r *http.Request) {
	var strategy models.Strategy
	if err := decodeJSON(r, &strategy); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	id, err := s.storage.SaveStrategy(&strategy)
	if err != nil {
		s.writeEvaluationError(w, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleListStrategies(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.storage.ListStrategies())
}

func (s *Server) handleGetStrategy(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	strategy, err := s.storage.GetStrategyByID(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, http.StatusOK, strategy)
}

func (s *Server) handleDeleteStrategy(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.storage.DeleteStrategy(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

// writeEvaluationError maps validation problems to 400 responses that
// identify the offending leg; anything else is a 500.
func (s *Server) writeEvaluationError(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":     verr.Error(),
			"leg_index": verr.LegIndex,
		})
		return
	}
	s.logger.WithError(err).Error("Evaluation failed")
	s.writeError(w, http.StatusInternalServerError, err)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("parsing request body: %w", err)
	}
	return nil
}
