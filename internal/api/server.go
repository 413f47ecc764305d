// Package api is the local HTTP surface: it plays the page caller for
// browsers and scripts, opening views, serving media handles, and exposing
// the local story store.
package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/roach88/taleweaver/internal/feed"
	"github.com/roach88/taleweaver/internal/media"
	"github.com/roach88/taleweaver/internal/store"
	"github.com/roach88/taleweaver/internal/story"
)

const (
	// DefaultMaxBodyBytes caps a saved story document, photo included.
	DefaultMaxBodyBytes = 8 << 20

	// DefaultMaxViews caps the views open at once.
	DefaultMaxViews = 256
)

// Server serves the views, the media handles and the local store.
type Server struct {
	stories      *store.Stories
	rec          *feed.Reconciler
	registry     *media.Registry
	logger       *slog.Logger
	newID        func() string
	maxBodyBytes int64
	maxViews     int

	mu    sync.Mutex
	views map[string]feed.View
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithViewIDs sets the view id generator. Defaults to UUIDv7.
func WithViewIDs(gen func() string) Option {
	return func(s *Server) { s.newID = gen }
}

// WithMaxBodyBytes caps request bodies. Non-positive keeps the default.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithMaxViews caps open views; opening one more answers 429 until a view
// is closed. Non-positive keeps the default.
func WithMaxViews(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxViews = n
		}
	}
}

// NewServer returns a server over the given store, reconciler and registry.
func NewServer(stories *store.Stories, rec *feed.Reconciler, registry *media.Registry, opts ...Option) *Server {
	s := &Server{
		stories:      stories,
		rec:          rec,
		registry:     registry,
		logger:       slog.Default(),
		newID:        func() string { return uuid.Must(uuid.NewV7()).String() },
		maxBodyBytes: DefaultMaxBodyBytes,
		maxViews:     DefaultMaxViews,
		views:        make(map[string]feed.View),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())

	engine.GET("/healthz", s.handleHealthz)

	engine.POST("/api/views/home", s.handleOpenHome)
	engine.POST("/api/views/tales", s.handleOpenTales)
	engine.GET("/api/views/:id", s.handleRenderView)
	engine.DELETE("/api/views/:id", s.handleCloseView)
	engine.DELETE("/api/views/:id/stories/:story", s.handleViewDelete)

	engine.GET("/api/stories", s.handleListStories)
	engine.POST("/api/stories", s.handleSaveStory)
	engine.DELETE("/api/stories/:id", s.handleDeleteStory)

	engine.GET("/media/*handle", s.handleMedia)
	return engine
}

// Close tears down every open view, releasing their media handles.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, v := range s.views {
		v.Close()
		delete(s.views, id)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
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

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleOpenHome(c *gin.Context) {
	s.openView(c, func() feed.View { return feed.NewHomeView(s.rec, s.registry) })
}

func (s *Server) handleOpenTales(c *gin.Context) {
	s.openView(c, func() feed.View { return feed.NewTalesView(s.stories, s.registry, s.logger) })
}

func (s *Server) openView(c *gin.Context, newView func() feed.View) {
	s.mu.Lock()
	if len(s.views) >= s.maxViews {
		s.mu.Unlock()
		s.logger.Warn("view limit reached", "open", s.maxViews)
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many open views"})
		return
	}
	id := s.newID()
	v := newView()
	s.views[id] = v
	s.mu.Unlock()

	s.logger.Info("view opened", "view_id", id, "view", v.Name())
	c.JSON(http.StatusCreated, gin.H{"view_id": id, "view": v.Name()})
}

func (s *Server) view(id string) (feed.View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[id]
	return v, ok
}

func (s *Server) handleRenderView(c *gin.Context) {
	v, ok := s.view(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "view not found"})
		return
	}

	page, err := v.Render(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// handleCloseView is teardown; closing an unknown view succeeds.
func (s *Server) handleCloseView(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	v, ok := s.views[id]
	delete(s.views, id)
	s.mu.Unlock()

	if ok {
		v.Close()
		s.logger.Info("view closed", "view_id", id)
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleViewDelete(c *gin.Context) {
	v, ok := s.view(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "view not found"})
		return
	}
	tales, ok := v.(*feed.TalesView)
	if !ok {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "view does not support delete"})
		return
	}

	page, err := tales.Delete(c.Request.Context(), c.Param("story"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// storySummary is a stored record without its photo bytes.
type storySummary struct {
	ID          int64    `json:"id"`
	Description string   `json:"description"`
	HasPhoto    bool     `json:"hasPhoto"`
	PhotoURL    *string  `json:"photoUrl,omitempty"`
	Name        *string  `json:"name,omitempty"`
	Lat         *float64 `json:"lat,omitempty"`
	Lon         *float64 `json:"lon,omitempty"`
	CreatedAt   string   `json:"createdAt"`
	Synced      *bool    `json:"synced,omitempty"`
	OriginalID  *string  `json:"originalId,omitempty"`
}

func summarize(r story.Record) storySummary {
	return storySummary{
		ID:          r.ID,
		Description: r.Description,
		HasPhoto:    len(r.Photo) > 0,
		PhotoURL:    r.PhotoURL,
		Name:        r.Name,
		Lat:         r.Lat,
		Lon:         r.Lon,
		CreatedAt:   r.CreatedAt,
		Synced:      r.Synced,
		OriginalID:  r.OriginalID,
	}
}

func (s *Server) handleListStories(c *gin.Context) {
	records, err := s.stories.GetAll(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}

	out := make([]storySummary, 0, len(records))
	for _, r := range records {
		out = append(out, summarize(r))
	}
	c.JSON(http.StatusOK, gin.H{"stories": out})
}

func (s *Server) handleSaveStory(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "story document too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	id, err := s.stories.SaveJSON(c.Request.Context(), body)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *Server) handleDeleteStory(c *gin.Context) {
	if err := s.stories.DeleteByID(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleMedia(c *gin.Context) {
	handle := strings.TrimPrefix(c.Param("handle"), "/")

	ref, err := s.registry.Resolve(handle)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown or released handle"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, ref.ContentType, ref.Payload)
}

// writeError maps store errors onto status codes.
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case store.IsValidation(err):
		status = http.StatusBadRequest
	case store.IsConstraint(err):
		status = http.StatusConflict
	case errors.Is(err, feed.ErrViewClosed):
		status = http.StatusGone
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Request.URL.Path, "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
