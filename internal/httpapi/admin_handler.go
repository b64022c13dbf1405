package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"imageAnnotation/internal/auth"
	"imageAnnotation/internal/config"
	"imageAnnotation/internal/progress"
	"imageAnnotation/repository"
)

type AdminHandler struct {
	users     repository.UserRepositoryI
	progress  *progress.Reporter
	usersFile *config.UsersFile
	logger    *slog.Logger
}

func NewAdminHandler(users repository.UserRepositoryI, reporter *progress.Reporter, usersFile *config.UsersFile, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{users: users, progress: reporter, usersFile: usersFile, logger: logger}
}

// Progress returns labeling progress for every (user, batch) pair.
func (h *AdminHandler) Progress(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	recs, err := h.progress.All(c.Request.Context())
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"progress": recs})
}

// Config returns the users configuration with password material removed.
func (h *AdminHandler) Config(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	if h.usersFile == nil {
		c.JSON(http.StatusOK, config.UsersFile{Users: []config.UserEntry{}})
		return
	}
	c.JSON(http.StatusOK, h.usersFile.Redacted())
}

func (h *AdminHandler) requireAdmin(c *gin.Context) bool {
	p, err := auth.RequireAdmin(c.Request.Context(), h.users)
	if err == nil {
		return true
	}
	if errors.Is(err, auth.ErrForbidden) {
		user := ""
		if p != nil {
			user = p.Username
		}
		h.logger.Warn("admin access denied", "request_id", c.GetString(requestIDKey), "user", user, "path", c.Request.URL.Path)
		abortMessage(c, http.StatusForbidden, "Admin access required")
		return false
	}
	fail(c, h.logger, err)
	return false
}
