package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/emilythestrangee/paperboard/backend/internal/config"
	"github.com/emilythestrangee/paperboard/backend/internal/database"
	"github.com/emilythestrangee/paperboard/backend/internal/handlers"
	"github.com/emilythestrangee/paperboard/backend/internal/middleware"
	"github.com/emilythestrangee/paperboard/backend/internal/ratelimit"
)

type Server struct {
	cfg     *config.Config
	db      database.Service
	handler *handlers.Handler
	tokens  middleware.TokenParser
	limiter *ratelimit.Limiter
	logger  *zap.Logger
}

// New assembles a server. limiter may be nil to disable rate limiting.
func New(
	cfg *config.Config,
	db database.Service,
	handler *handlers.Handler,
	tokens middleware.TokenParser,
	limiter *ratelimit.Limiter,
	logger *zap.Logger,
) *Server {
	return &Server{cfg: cfg, db: db, handler: handler, tokens: tokens, limiter: limiter, logger: logger}
}

// HTTPServer wraps the router with tracing and the usual timeouts.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         "0.0.0.0:" + s.cfg.Port,
		Handler:      otelhttp.NewHandler(s.RegisterRoutes(), "paperboard"),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := s.HTTPServer()
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	if !s.cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog(s.logger), middleware.Metrics())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "X-RateLimit-Remaining"},
		AllowCredentials: !allowsAny(s.cfg.CORSOrigins),
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		stats := s.db.Health()
		status := http.StatusOK
		if stats["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, stats)
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := s.handler
	limit := middleware.RateLimit(s.limiter, s.logger)

	api := r.Group("/api")
	{
		api.GET("/config/polling", handlers.PollingConfig)

		// Auth routes (public)
		api.POST("/register", limit, h.Auth.Register)
		api.POST("/login", limit, h.Auth.Login)
		api.POST("/auth/google", limit, h.Auth.GoogleLogin)

		// Paper routes (public reads)
		api.GET("/papers", h.Paper.SearchPapers)
		api.GET("/papers/facets", h.Paper.Facets)
		api.GET("/papers/:id", h.Paper.GetPaper)
		api.GET("/papers/:id/download", h.Paper.DownloadPaper)

		api.GET("/hashtags/trending", h.Post.TrendingHashtags)

		// Reads that personalise for a signed-in viewer
		viewer := api.Group("")
		viewer.Use(middleware.OptionalAuth(s.tokens))
		{
			viewer.GET("/posts", h.Post.GetPosts)
			viewer.GET("/posts/new", h.Post.GetNewPosts)
			viewer.GET("/posts/:id", h.Post.GetPost)
			viewer.GET("/posts/:id/comments", h.Comment.GetComments)
			viewer.GET("/posts/:id/comments/new", h.Comment.GetNewComments)
			viewer.GET("/users/:id", h.User.GetUserProfile)
			viewer.GET("/users/:id/posts", h.Post.GetUserPosts)
		}

		// Protected routes (authentication required)
		protected := api.Group("")
		protected.Use(middleware.RequireAuth(s.tokens))
		{
			protected.GET("/me", h.Auth.GetMe)
			protected.GET("/me/profile", h.User.GetProfile)
			protected.PUT("/me/profile", limit, h.User.UpdateProfile)
			protected.POST("/me/avatar", limit, h.User.UploadAvatar)

			protected.POST("/papers", limit, h.Paper.CreatePaper)
			protected.POST("/papers/upload", limit, h.Paper.UploadPDF)
			protected.DELETE("/papers/:id", limit, h.Paper.DeletePaper)

			protected.GET("/posts/latest", h.Post.GetLatest)
			protected.POST("/posts", limit, h.Post.CreatePost)
			protected.DELETE("/posts/:id", limit, h.Post.DeletePost)
			protected.POST("/posts/:id/like", limit, h.Post.LikePost)
			protected.POST("/posts/:id/retweet", limit, h.Post.RetweetPost)
			protected.POST("/posts/:id/bookmark", limit, h.Post.BookmarkPost)
			protected.POST("/posts/:id/comments", limit, h.Comment.CreateComment)
			protected.GET("/bookmarks", h.Post.GetBookmarks)
			protected.POST("/uploads/images", limit, h.Upload.UploadPostImages)

			protected.GET("/notifications", h.Notification.GetNotifications)
			protected.POST("/notifications/read", h.Notification.MarkRead)
		}
	}

	return r
}

func allowsAny(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
