// Package api serves the engine over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alucardeht/may-la-specs/internal/logger"
	"github.com/alucardeht/may-la-specs/internal/spec"
	"github.com/alucardeht/may-la-specs/pkg/specs"
	"github.com/alucardeht/may-la-specs/pkg/version"
)

var log = logger.ForComponent("api")

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// SearchRequest is accepted as query parameters or as a JSON body. Q is a
// short alias for Query.
type SearchRequest struct {
	Query  string `json:"query" form:"query"`
	Q      string `json:"q" form:"q"`
	Limit  string `json:"-" form:"limit"`
	Status string `json:"status" form:"status"`
}

type Handlers struct {
	svc specs.Service
}

func NewHandlers(svc specs.Service) *Handlers {
	return &Handlers{svc: svc}
}

// NewRouter returns a gin engine with every route registered.
func NewRouter(svc specs.Service) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger())
	RegisterRoutes(router, NewHandlers(svc))
	return router
}

func RegisterRoutes(router gin.IRouter, h *Handlers) {
	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/health", h.HandleHealth)
		apiGroup.GET("/context", h.HandleContext)
		apiGroup.GET("/search", h.HandleSearch)
		apiGroup.POST("/search", h.HandleSearch)
		apiGroup.GET("/specs/:id", h.HandleGetSpec)
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// HandleHealth handles GET /api/health. It always answers 200.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: version.Resolve(),
	})
}

// HandleContext handles GET /api/context.
//
//	200 OK: ProjectContext
//	500 Internal Server Error: ErrorResponse
func (h *Handlers) HandleContext(c *gin.Context) {
	pc, err := h.svc.Context(c.Request.Context())
	if err != nil {
		log.Error("context failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, pc)
}

// HandleSearch handles GET and POST /api/search. Malformed input never
// produces a 4xx: an unreadable body or limit falls back to defaults and an
// empty query returns [].
func (h *Handlers) HandleSearch(c *gin.Context) {
	var req SearchRequest
	_ = c.ShouldBindQuery(&req)

	if c.Request.Method == http.MethodPost && c.Request.ContentLength != 0 {
		var body struct {
			SearchRequest
			Limit any `json:"limit"`
		}
		if err := c.ShouldBindJSON(&body); err == nil {
			req = merge(req, body.SearchRequest)
			if body.Limit != nil {
				req.Limit = strings.TrimSpace(toString(body.Limit))
			}
		} else {
			log.Debug("ignoring unreadable search body", "error", err)
		}
	}

	q := req.Query
	if q == "" {
		q = req.Q
	}
	if strings.TrimSpace(q) == "" {
		c.JSON(http.StatusOK, []specs.SearchResult{})
		return
	}

	limit, _ := strconv.Atoi(req.Limit)
	results, err := h.svc.Search(c.Request.Context(), q, specs.SearchOptions{
		Limit:  limit,
		Status: specs.Status(strings.ToLower(strings.TrimSpace(req.Status))),
	})
	if err != nil {
		log.Error("search failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	if results == nil {
		results = []specs.SearchResult{}
	}
	c.JSON(http.StatusOK, results)
}

// HandleGetSpec handles GET /api/specs/:id.
//
//	200 OK: Spec
//	404 Not Found: ErrorResponse
//	500 Internal Server Error: ErrorResponse
func (h *Handlers) HandleGetSpec(c *gin.Context) {
	s, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, spec.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case err != nil:
		log.Error("get spec failed", "id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusOK, s)
	}
}

func merge(base, override SearchRequest) SearchRequest {
	if override.Query != "" {
		base.Query = override.Query
	}
	if override.Q != "" {
		base.Q = override.Q
	}
	if override.Status != "" {
		base.Status = override.Status
	}
	return base
}

func toString(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return x
	default:
		return ""
	}
}

// RequestIDHeader is echoed back on every response, generated when the
// caller did not send one.
const RequestIDHeader = "X-Request-ID"

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDHeader, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			"id", c.GetString(RequestIDHeader),
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// Server runs the router on addr until Shutdown. Responses are gzipped for
// clients that accept it once they pass gzhttp's minimum size.
type Server struct {
	srv *http.Server
}

func NewServer(addr string, handler http.Handler) *Server {
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           gzhttp.GzipHandler(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

func (s *Server) Addr() string {
	return s.srv.Addr
}

// ListenAndServe blocks until the server stops. A graceful shutdown is not
// an error.
func (s *Server) ListenAndServe() error {
	log.Info("http server listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
