package server

import (
	"context"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZacxDev/video-captioner/internal/caption"
	"github.com/ZacxDev/video-captioner/internal/config"
	"github.com/ZacxDev/video-captioner/internal/metrics"
	"github.com/ZacxDev/video-captioner/internal/render"
	"github.com/ZacxDev/video-captioner/pkg/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
)

// Renderer runs one render job.
type Renderer interface {
	Render(ctx context.Context, req render.Request, deliver render.DeliverFunc) (*render.Result, error)
}

// Server is the HTTP boundary of the captioner.
type Server struct {
	cfg      config.ServerConfig
	renderer Renderer
	metrics  *metrics.Metrics
	logger   hclog.Logger
	engine   *gin.Engine
}

func New(cfg config.ServerConfig, renderer Renderer, m *metrics.Metrics, logger hclog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		renderer: renderer,
		metrics:  m,
		logger:   logger.Named("http"),
		engine:   gin.New(),
	}
	s.engine.Use(Recovery(s.logger), RequestLogger(s.logger))
	s.engine.POST("/merge", s.handleMerge)
	s.engine.GET("/health", s.handleHealth)
	if m != nil {
		s.engine.GET("/metrics", gin.WrapH(m.Handler()))
	}
	return s
}

// Handler returns the routes as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "server failed")
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return errors.Wrap(srv.Shutdown(shutdownCtx), "failed to shut down server")
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"strategies": caption.SupportedStrategies(),
	})
}

// handleMerge accepts video, audio and an optional image plus caption text
// and responds with the rendered mp4.
func (s *Server) handleMerge(c *gin.Context) {
	if s.cfg.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)
	}

	video, _ := c.FormFile("video")
	audio, _ := c.FormFile("audio")
	image, _ := c.FormFile("image")

	text := c.PostForm("caption")
	price, hasPrice := c.GetPostForm("price")
	if text == "" {
		text = price
	}
	strategy := types.CaptionStrategy(c.PostForm("strategy"))

	var missing []string
	if video == nil {
		missing = append(missing, "video")
	}
	// A price overlay may reuse the video's own soundtrack.
	if audio == nil && !hasPrice {
		missing = append(missing, "audio")
	}
	if len(missing) > 0 {
		c.String(http.StatusBadRequest, "missing required file: %s", strings.Join(missing, ", "))
		return
	}

	jobID := uuid.NewString()
	req := render.Request{JobID: jobID, Caption: text, Strategy: strategy}
	if audio == nil && strategy == "" {
		req.Strategy = types.CaptionStrategyStatic
	}

	uploads := []struct {
		field string
		fh    *multipart.FileHeader
		dst   *string
	}{
		{"video", video, &req.VideoPath},
		{"audio", audio, &req.AudioPath},
		{"image", image, &req.ImagePath},
	}
	for _, u := range uploads {
		if u.fh == nil {
			continue
		}
		path, err := s.save(c, jobID, u.field, u.fh)
		req.Owned = append(req.Owned, path)
		if err != nil {
			// Ownership has not passed to a job yet.
			s.discard(req.Owned)
			s.logger.Error("failed to store upload", "job_id", jobID, "error", err)
			c.String(http.StatusInternalServerError, "failed to store upload")
			return
		}
		*u.dst = path
	}
	if req.AudioPath == "" {
		req.AudioPath = req.VideoPath
	}

	_, err := s.renderer.Render(c.Request.Context(), req, func(_ context.Context, res *render.Result) error {
		c.Header("Content-Type", "video/mp4")
		c.File(res.OutputPath)
		return nil
	})
	if err == nil {
		return
	}

	var rerr *render.Error
	switch {
	case errors.As(err, &rerr) && rerr.Kind == render.ValidationFailure:
		c.String(http.StatusBadRequest, "%s", rerr.Diagnostic)
	case errors.As(err, &rerr):
		c.String(http.StatusInternalServerError, "%s", rerr.Diagnostic)
	case !c.Writer.Written():
		c.String(http.StatusInternalServerError, "%s", err.Error())
	default:
		s.logger.Warn("response interrupted", "job_id", jobID, "error", err)
	}
}

func (s *Server) save(c *gin.Context, jobID, field string, fh *multipart.FileHeader) (string, error) {
	path := render.ScratchPath(s.cfg.ScratchDir, jobID, field+strings.ToLower(filepath.Ext(fh.Filename)))
	if err := c.SaveUploadedFile(fh, path); err != nil {
		return path, errors.Wrapf(err, "failed to save %s upload", field)
	}
	return path, nil
}

func (s *Server) discard(paths []string) {
	set := render.NewScratchSet(s.cfg.ScratchDir, "")
	set.Adopt(paths...)
	for _, err := range set.Release() {
		s.logger.Warn("cleanup failed", "error", err)
	}
}
