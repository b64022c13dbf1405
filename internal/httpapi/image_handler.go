package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"imageAnnotation/internal/auth"
	"imageAnnotation/models"
	"imageAnnotation/repository"
)

type ImageHandler struct {
	batches repository.BatchRepositoryI
	labels  repository.LabelRepositoryI
	images  repository.ImageRepositoryI
	logger  *slog.Logger
}

func NewImageHandler(batches repository.BatchRepositoryI, labels repository.LabelRepositoryI, images repository.ImageRepositoryI, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{batches: batches, labels: labels, images: images, logger: logger}
}

// List returns the images of a batch with their labeled flags and the label mapping.
func (h *ImageHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	_, b, err := auth.AuthorizeBatch(ctx, h.batches, c.Param("batch_id"))
	if err != nil {
		h.deny(c, err, "Unauthorized access to batch")
		return
	}

	labels, err := h.labels.Load(ctx, b.ID)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	images, err := h.images.List(ctx, b, labels)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	if images == nil {
		images = []models.Image{}
	}
	c.JSON(http.StatusOK, gin.H{"images": images, "labels": labels})
}

// Serve streams one image file of a batch.
func (h *ImageHandler) Serve(c *gin.Context) {
	ctx := c.Request.Context()
	p, b, err := auth.AuthorizeBatch(ctx, h.batches, c.Param("batch_id"))
	if err != nil {
		h.deny(c, err, "Unauthorized access to image")
		return
	}

	filename := c.Param("filename")
	f, fi, err := h.images.Open(b, filename)
	if err != nil {
		if errors.Is(err, repository.ErrForbiddenPath) {
			h.logger.Warn("image path rejected", "request_id", c.GetString(requestIDKey),
				"user", p.Username, "batch_id", b.ID, "filename", filename)
		}
		fail(c, h.logger, err)
		return
	}
	defer f.Close()

	h.logger.Debug("serving image", "batch_id", b.ID, "filename", fi.Name())
	http.ServeContent(c.Writer, c.Request, fi.Name(), fi.ModTime(), f)
}

func (h *ImageHandler) deny(c *gin.Context, err error, message string) {
	if errors.Is(err, auth.ErrForbidden) {
		abortMessage(c, http.StatusForbidden, message)
		return
	}
	fail(c, h.logger, err)
}
