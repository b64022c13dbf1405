package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"imageAnnotation/internal/auth"
)

type AuthHandler struct {
	issuer *auth.Issuer
	logger *slog.Logger
}

func NewAuthHandler(issuer *auth.Issuer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{issuer: issuer, logger: logger}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string   `json:"token"`
	Username string   `json:"username"`
	Batches  []string `json:"batches"`
	IsAdmin  bool     `json:"is_admin"`
	Role     string   `json:"role"`
}

// Login verifies credentials and returns a signed token with the user's batches.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortMessage(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		abortMessage(c, http.StatusUnauthorized, "Could not verify")
		return
	}

	token, u, err := h.issuer.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.logger.Info("login rejected", "request_id", c.GetString(requestIDKey), "username", req.Username, "error", err)
		fail(c, h.logger, err)
		return
	}

	batches := u.Batches
	if batches == nil {
		batches = []string{}
	}
	c.JSON(http.StatusOK, loginResponse{
		Token:    token,
		Username: u.Username,
		Batches:  batches,
		IsAdmin:  u.IsAdmin,
		Role:     u.Role,
	})
}
