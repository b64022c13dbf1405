// Package httpapi exposes the annotation service over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"imageAnnotation/internal/auth"
	"imageAnnotation/internal/config"
	"imageAnnotation/internal/progress"
	"imageAnnotation/repository"
)

// Deps are the services the handlers are built from.
type Deps struct {
	Users     repository.UserRepositoryI
	Batches   repository.BatchRepositoryI
	Labels    repository.LabelRepositoryI
	Images    repository.ImageRepositoryI
	Issuer    *auth.Issuer
	Progress  *progress.Reporter
	UsersFile *config.UsersFile
}

// NewRouter wires middleware and routes. It does not touch gin's global mode.
func NewRouter(cfg *config.Config, d Deps, logger *slog.Logger) *gin.Engine {
	secret := cfg.Auth.JWTSecret

	r := gin.New()
	r.Use(recovery(logger))
	r.Use(requestID())
	r.Use(accessLog(logger))
	r.Use(cors(cfg.HTTP.AllowedOrigins))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authH := NewAuthHandler(d.Issuer, logger)
	imageH := NewImageHandler(d.Batches, d.Labels, d.Images, logger)
	labelH := NewLabelHandler(d.Batches, d.Labels, logger)
	adminH := NewAdminHandler(d.Users, d.Progress, d.UsersFile, logger)

	api := r.Group("/api")
	api.POST("/login", authH.Login)

	protected := api.Group("")
	protected.Use(requireToken(secret, logger))
	{
		protected.GET("/images/:batch_id", imageH.List)
		protected.POST("/labels/:batch_id", labelH.Save)
		protected.GET("/config", adminH.Config)
		protected.GET("/admin/progress", adminH.Progress)
	}

	// <img> tags cannot send headers, so image bytes authenticate with ?token=.
	r.GET("/images/:batch_id/*filename", queryToken(secret, logger), imageH.Serve)

	return r
}

// StartHTTP starts the HTTP server on cfg.HTTP and returns a shutdown function.
func StartHTTP(cfg *config.Config, d Deps, logger *slog.Logger) (func(context.Context) error, error) {
	if cfg == nil {
		panic("config is required")
	}
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Address(),
		Handler:           NewRouter(cfg, d, logger),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	lis, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", srv.Addr, err)
	}

	go func() {
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped", "error", err)
		}
	}()
	logger.Info("http server listening", "addr", lis.Addr().String())

	return srv.Shutdown, nil
}
