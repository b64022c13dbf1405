package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"imageAnnotation/internal/auth"
	"imageAnnotation/repository"
)

type LabelHandler struct {
	batches repository.BatchRepositoryI
	labels  repository.LabelRepositoryI
	logger  *slog.Logger
}

func NewLabelHandler(batches repository.BatchRepositoryI, labels repository.LabelRepositoryI, logger *slog.Logger) *LabelHandler {
	return &LabelHandler{batches: batches, labels: labels, logger: logger}
}

type saveLabelRequest struct {
	ImageName string `json:"image_name"`
	LabelText string `json:"label_text"`
}

// Save upserts one image's label in the batch, authored by the caller.
func (h *LabelHandler) Save(c *gin.Context) {
	ctx := c.Request.Context()
	p, b, err := auth.AuthorizeBatch(ctx, h.batches, c.Param("batch_id"))
	if err != nil {
		if errors.Is(err, auth.ErrForbidden) {
			abortMessage(c, http.StatusForbidden, "Unauthorized access to batch")
			return
		}
		fail(c, h.logger, err)
		return
	}

	var req saveLabelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortMessage(c, http.StatusBadRequest, "Missing required fields")
		return
	}
	if _, err := h.labels.Save(ctx, b.ID, req.ImageName, req.LabelText, p.Username); err != nil {
		fail(c, h.logger, err)
		return
	}
	h.logger.Info("label saved", "request_id", c.GetString(requestIDKey),
		"user", p.Username, "batch_id", b.ID, "image", req.ImageName)
	c.JSON(http.StatusOK, gin.H{"message": "Label saved successfully"})
}
