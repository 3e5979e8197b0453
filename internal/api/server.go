package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"

	"sift/internal/analysis"
	"sift/internal/breaker"
	"sift/internal/logging"
	"sift/internal/pipeline"
	"sift/internal/services"
	"sift/internal/store"
)

const (
	maxBodyBytes    = 10 * 1024 * 1024
	requestIDHeader = "X-Request-ID"
	kindNotFound    = "NotFound"
	kindBadRequest  = "BadRequest"
)

// Analyzer runs and persists one analysis.
type Analyzer interface {
	AnalyzeAndStore(ctx context.Context, raw string, meta store.Metadata) (store.Record, *analysis.Result, error)
}

// Repository reads and deletes stored analyses.
type Repository interface {
	Get(ctx context.Context, id string) (*store.Stored, error)
	List(ctx context.Context, limit int) ([]store.Summary, error)
	Delete(ctx context.Context, id string) error
}

// Options wires the server collaborators.
type Options struct {
	Analyzer Analyzer
	Store    Repository
	Breakers *breaker.Registry
	Logger   *slog.Logger
}

// Server exposes the analysis pipeline over HTTP.
type Server struct {
	app      *fiber.App
	analyzer Analyzer
	store    Repository
	breakers *breaker.Registry
	logger   *slog.Logger
}

// NewServer builds the fiber application and registers routes.
func NewServer(opts Options) *Server {
	s := &Server{
		analyzer: opts.Analyzer,
		store:    opts.Store,
		breakers: opts.Breakers,
		logger:   logging.NewComponentLogger(opts.Logger, "api"),
	}
	app := fiber.New(fiber.Config{
		AppName:               "sift",
		BodyLimit:             maxBodyBytes,
		ReadTimeout:           15 * time.Second,
		IdleTimeout:           60 * time.Second,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleFiberError,
	})
	app.Use(recover.New())
	app.Use(s.requestContext)

	app.Get("/healthz", s.handleHealth)
	v1 := app.Group("/v1")
	v1.Post("/analyses", s.handleCreate)
	v1.Get("/analyses", s.handleList)
	v1.Get("/analyses/:id", s.handleGet)
	v1.Delete("/analyses/:id", s.handleDelete)

	s.app = app
	return s
}

// App returns the underlying fiber application, used by tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Serve listens on bind until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, bind string) error {
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}

	go func() {
		<-ctx.Done()
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			s.logger.Warn("api shutdown incomplete", logging.Error(err))
		}
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	if err := s.app.Listener(listener); err != nil && ctx.Err() == nil {
		return fmt.Errorf("api serve: %w", err)
	}
	return nil
}

func (s *Server) requestContext(c *fiber.Ctx) error {
	requestID := strings.TrimSpace(c.Get(requestIDHeader))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDHeader, requestID)
	ctx := services.WithRequestID(c.UserContext(), requestID)
	c.SetUserContext(ctx)

	started := time.Now()
	err := c.Next()
	logging.WithContext(ctx, s.logger).Info("request handled",
		logging.String("method", c.Method()),
		logging.String("path", c.Path()),
		logging.Int("status", c.Response().StatusCode()),
		logging.Duration("elapsed", time.Since(started)),
	)
	return err
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	resp := HealthResponse{Status: "ok", Breakers: []breaker.Snapshot{}}
	if s.breakers != nil {
		resp.Breakers = s.breakers.Snapshots()
	}
	for _, snap := range resp.Breakers {
		if snap.State == breaker.StateOpen {
			resp.Status = "degraded"
		}
	}
	return c.JSON(resp)
}

func (s *Server) handleCreate(c *fiber.Ctx) error {
	if s.analyzer == nil {
		return s.writeError(c, &pipeline.Error{Kind: pipeline.KindConfiguration, Message: "analyzer not configured"})
	}
	raw := string(c.Body())
	meta := store.Metadata{
		ProjectID:  c.Query("project_id"),
		UserID:     c.Query("user_id"),
		SourceName: c.Query("source", "http"),
	}
	ctx := services.WithSource(c.UserContext(), meta.SourceName)
	record, result, err := s.analyzer.AnalyzeAndStore(ctx, raw, meta)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(AnalysisResponse{
		ID:        record.ID,
		CreatedAt: FormatTime(record.CreatedAt),
		Result:    result,
	})
}

func (s *Server) handleList(c *fiber.Ctx) error {
	limit := store.DefaultListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return writeStatus(c, fiber.StatusBadRequest, kindBadRequest, "limit must be a positive integer")
		}
		limit = parsed
	}
	summaries, err := s.store.List(c.UserContext(), limit)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(ListResponse{Analyses: FromSummaries(summaries)})
}

func (s *Server) handleGet(c *fiber.Ctx) error {
	stored, err := s.store.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(AnalysisResponse{
		ID:        stored.ID,
		CreatedAt: FormatTime(stored.CreatedAt),
		Result:    stored.Result,
	})
}

func (s *Server) handleDelete(c *fiber.Ctx) error {
	if err := s.store.Delete(c.UserContext(), c.Params("id")); err != nil {
		return s.writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// writeError maps err onto the stable {kind, message} body.
func (s *Server) writeError(c *fiber.Ctx, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return writeStatus(c, fiber.StatusNotFound, kindNotFound, "analysis not found")
	}
	kind := pipeline.KindOf(err)
	status := pipeline.HTTPStatus(kind)
	logger := logging.WithContext(c.UserContext(), s.logger)
	if status >= fiber.StatusInternalServerError {
		logging.ErrorWithContext(logger, "request failed", "request_failed",
			logging.String("kind", string(kind)),
			logging.Error(err),
		)
	} else {
		logger.Info("request rejected", logging.String("kind", string(kind)), logging.Error(err))
	}
	return writeStatus(c, status, string(kind), pipeline.MessageOf(err))
}

func (s *Server) handleFiberError(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		kind := kindBadRequest
		if fiberErr.Code == fiber.StatusNotFound {
			kind = kindNotFound
		}
		return writeStatus(c, fiberErr.Code, kind, fiberErr.Message)
	}
	return s.writeError(c, err)
}

func writeStatus(c *fiber.Ctx, status int, kind, message string) error {
	return c.Status(status).JSON(ErrorResponse{Kind: kind, Message: message})
}
