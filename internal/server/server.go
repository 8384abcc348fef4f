// Package server exposes the report and settings over a local HTTP
// listener.
package server

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/marcin-skalski/jobcheck/internal/badge"
	"github.com/marcin-skalski/jobcheck/internal/checker"
	"github.com/marcin-skalski/jobcheck/internal/report"
	"github.com/marcin-skalski/jobcheck/internal/settings"
)

// Inspector is the subset of checker.Inspector the handlers call.
type Inspector interface {
	Inspect(ctx context.Context) (*report.Report, error)
	RefreshIdentity(ctx context.Context) (string, error)
	SaveSettings(ctx context.Context, u settings.Update) (string, error)
	SetWindow(ctx context.Context, hours string) (string, error)
	SetSortOrder(ctx context.Context, order string) (string, error)
}

type Server struct {
	addr      string
	engine    *gin.Engine
	server    *http.Server
	inspector Inspector
	badge     *badge.Badge
	loc       *time.Location
	logger    *slog.Logger
}

// Response is the JSON envelope of every non-HTML endpoint.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// SettingsRequest is accepted as JSON or as a form.
type SettingsRequest struct {
	ServerURL   string `json:"serverUrl" form:"serverUrl"`
	WindowHours string `json:"windowHours" form:"windowHours"`
	SortOrder   string `json:"sortOrder" form:"sortOrder"`
}

func New(addr string, inspector Inspector, b *badge.Badge, loc *time.Location, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		addr:      addr,
		engine:    gin.New(),
		inspector: inspector,
		badge:     b,
		loc:       loc,
		logger:    logger.With("component", "server"),
	}
	s.engine.Use(gin.Recovery())
	s.engine.Use(s.loggingMiddleware())
	s.registerRoutes()
	return s
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/popup", s.handlePopup)
	s.engine.GET("/badge", s.handleBadge)
	s.engine.POST("/identity", s.handleIdentity)

	st := s.engine.Group("/settings")
	{
		st.POST("", s.handleSaveSettings)
		st.POST("/window", s.handleSetWindow)
		st.POST("/sort", s.handleSetSort)
	}
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// Start blocks serving until Stop is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("http server listening", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) success(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, Response{Code: http.StatusOK, Message: message, Data: data})
}

func (s *Server) error(c *gin.Context, code int, err error) {
	c.JSON(code, Response{Code: code, Message: err.Error()})
}

// statusFor maps checker errors to HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, checker.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, checker.ErrConfigurationMissing):
		return http.StatusPreconditionFailed
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	s.success(c, "ok", gin.H{"status": "healthy"})
}

var popupPage = template.Must(template.New("popup").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>jobcheck</title></head>
<body>
{{if .Status}}<p class="status">{{.Status}}</p>
{{end}}<div id="jobs">
{{.Body}}</div>
</body>
</html>
`))

type popupData struct {
	Status string
	Body   template.HTML
}

func (s *Server) handlePopup(c *gin.Context) {
	r, err := s.inspector.Inspect(c.Request.Context())
	if err != nil {
		s.renderPopup(c, statusFor(err), popupData{Status: err.Error()})
		return
	}

	var body bytes.Buffer
	if err := report.RenderHTML(&body, r, s.loc); err != nil {
		s.error(c, http.StatusInternalServerError, err)
		return
	}

	data := popupData{Body: template.HTML(body.String())}
	switch {
	case r.Notice != "":
		data.Status = r.Notice
	case !r.Empty():
		data.Status = checker.StatusFetched
	}
	s.renderPopup(c, http.StatusOK, data)
}

func (s *Server) renderPopup(c *gin.Context, code int, data popupData) {
	var page bytes.Buffer
	if err := popupPage.Execute(&page, data); err != nil {
		s.error(c, http.StatusInternalServerError, err)
		return
	}
	c.Data(code, "text/html; charset=utf-8", page.Bytes())
}

func (s *Server) handleBadge(c *gin.Context) {
	st := s.badge.State()
	s.success(c, "ok", gin.H{
		"text":       st.Text,
		"color":      st.Color,
		"updated_at": st.UpdatedAt,
	})
}

func (s *Server) handleIdentity(c *gin.Context) {
	name, err := s.inspector.RefreshIdentity(c.Request.Context())
	if err != nil {
		s.error(c, statusFor(err), err)
		return
	}
	s.success(c, checker.StatusIdentityFetched, gin.H{"userId": name})
}

func (s *Server) handleSaveSettings(c *gin.Context) {
	var req SettingsRequest
	if err := c.ShouldBind(&req); err != nil {
		s.error(c, http.StatusBadRequest, err)
		return
	}

	status, err := s.inspector.SaveSettings(c.Request.Context(), settings.Update{
		ServerURL:   req.ServerURL,
		WindowHours: req.WindowHours,
		SortOrder:   req.SortOrder,
	})
	switch {
	case err == nil:
		s.success(c, status, nil)
	case status != "":
		// Saved, but the identity lookup failed.
		s.success(c, status, gin.H{"identityError": err.Error()})
	default:
		s.error(c, http.StatusBadRequest, err)
	}
}

func (s *Server) handleSetWindow(c *gin.Context) {
	var req SettingsRequest
	if err := c.ShouldBind(&req); err != nil {
		s.error(c, http.StatusBadRequest, err)
		return
	}
	status, err := s.inspector.SetWindow(c.Request.Context(), req.WindowHours)
	if err != nil {
		s.error(c, http.StatusBadRequest, err)
		return
	}
	s.success(c, status, nil)
}

func (s *Server) handleSetSort(c *gin.Context) {
	var req SettingsRequest
	if err := c.ShouldBind(&req); err != nil {
		s.error(c, http.StatusBadRequest, err)
		return
	}
	status, err := s.inspector.SetSortOrder(c.Request.Context(), req.SortOrder)
	if err != nil {
		s.error(c, http.StatusBadRequest, err)
		return
	}
	s.success(c, status, nil)
}
