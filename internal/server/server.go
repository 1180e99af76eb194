// Package server exposes the planner over HTTP with gin.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kingrea/coursenobi/internal/apperrors"
	"github.com/kingrea/coursenobi/internal/catalog"
	"github.com/kingrea/coursenobi/internal/planner"
	"github.com/kingrea/coursenobi/internal/planner/engine"
	"github.com/kingrea/coursenobi/internal/render"
)

const shutdownTimeout = 10 * time.Second

// Server wires the HTTP routes to an engine.
type Server struct {
	engine *engine.Engine
	router *gin.Engine
	log    zerolog.Logger
	addr   string
	http   *http.Server
}

// Option customizes the server.
type Option func(*Server)

// WithLogger sets the logger used for request and lifecycle logs.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.log = logger
	}
}

// WithAddr sets the listen address used by Run.
func WithAddr(addr string) Option {
	return func(s *Server) {
		if addr != "" {
			s.addr = addr
		}
	}
}

// New builds the router. The engine's catalog backs the lookup routes and
// is the default for schedule requests that carry none.
func New(eng *engine.Engine, opts ...Option) *Server {
	s := &Server{engine: eng, log: zerolog.Nop(), addr: ":8080"}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())
	router.GET("/healthz", s.health)
	router.GET("/departments", s.listDepartments)
	router.GET("/departments/:dept/courses", s.listCourses)
	router.GET("/courses/:id", s.getCourse)
	router.POST("/schedule", s.schedule)
	router.GET("/runs/:id", s.getRun)
	s.router = router
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.http = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.http.Addr).Int("courses", s.engine.Catalog().Len()).Msg("HTTP server listening")
		serverErrors <- s.http.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: listen: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.log.Info().Msg("shutting down HTTP server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	s.log.Info().Msg("HTTP server stopped")
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) health(c *gin.Context) {
	c.PureJSON(http.StatusOK, gin.H{"status": "ok", "courses": s.engine.Catalog().Len()})
}

func (s *Server) listDepartments(c *gin.Context) {
	cat, ok := s.requireCatalog(c)
	if !ok {
		return
	}
	c.PureJSON(http.StatusOK, gin.H{"departments": cat.Departments()})
}

func (s *Server) listCourses(c *gin.Context) {
	cat, ok := s.requireCatalog(c)
	if !ok {
		return
	}
	dept := c.Param("dept")
	records := cat.CoursesIn(dept)
	if len(records) == 0 {
		writeError(c, apperrors.New(apperrors.KindUnknownCourse, dept, "department has no courses in the catalog"), "")
		return
	}
	c.PureJSON(http.StatusOK, gin.H{"department": cat.DepartmentTable().Canonical(dept), "courses": records})
}

func (s *Server) getCourse(c *gin.Context) {
	cat, ok := s.requireCatalog(c)
	if !ok {
		return
	}
	id := cat.DepartmentTable().NormalizeID(c.Param("id"))
	rec, found := cat.Lookup(id)
	if !found {
		writeError(c, apperrors.New(apperrors.KindUnknownCourse, string(id), "course is not in the catalog"), "")
		return
	}
	c.PureJSON(http.StatusOK, rec)
}

func (s *Server) schedule(c *gin.Context) {
	var req planner.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.New(apperrors.KindInvalidRequest, "body", "could not decode request: %v", err), "")
		return
	}
	result, err := s.engine.Run(c.Request.Context(), req)
	if err != nil {
		writeError(c, err, result.RunID)
		return
	}
	c.PureJSON(http.StatusOK, result)
}

func (s *Server) getRun(c *gin.Context) {
	result, err := s.engine.Lookup(c.Param("id"))
	if err != nil {
		if errors.Is(err, engine.ErrResultNotFound) {
			c.PureJSON(http.StatusNotFound, errorResponse{
				Error: apperrors.Error{Kind: "not-found", Subject: c.Param("id"), Message: "no stored run with this id"},
			})
			return
		}
		writeError(c, err, "")
		return
	}
	c.PureJSON(http.StatusOK, result)
}

func (s *Server) requireCatalog(c *gin.Context) (*catalog.Catalog, bool) {
	cat := s.engine.Catalog()
	if cat == nil {
		c.PureJSON(http.StatusServiceUnavailable, errorResponse{
			Error: apperrors.Error{Kind: apperrors.KindInvalidRequest, Message: "no catalog loaded"},
		})
		return nil, false
	}
	return cat, true
}

type errorResponse struct {
	Error apperrors.Error `json:"error"`
	RunID string          `json:"run_id,omitempty"`
}

func writeError(c *gin.Context, err error, runID string) {
	body := render.ErrorBody(err)
	c.PureJSON(StatusFor(err), errorResponse{Error: body, RunID: runID})
}

// StatusFor maps an error to an HTTP status: malformed input is 400, unknown
// departments and courses are 404 and failures to schedule are 422.
func StatusFor(err error) int {
	switch apperrors.KindOf(err) {
	case apperrors.KindInvalidRequest,
		apperrors.KindAmbiguousOperator,
		apperrors.KindInvalidToken,
		apperrors.KindMalformedExpression,
		apperrors.KindDuplicateCourse,
		apperrors.KindSelfReference:
		return http.StatusBadRequest
	case apperrors.KindUnknownCourse:
		return http.StatusNotFound
	case apperrors.KindUnsatisfiable,
		apperrors.KindEnumerationTooLarge,
		apperrors.KindCapacityExceeded,
		apperrors.KindDependencyCycle:
		return http.StatusUnprocessableEntity
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
