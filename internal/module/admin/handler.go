package admin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/thevvip/server/internal/module/profile"
	"github.com/thevvip/server/internal/shared/response"
)

// Handler exposes the admin verification endpoints.
type Handler struct {
	service *Service
	log     *zap.Logger
}

// NewHandler creates the admin handler.
func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// RegisterRoutes registers admin routes. The group must already carry
// authentication and admin-role middleware.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/verification-image/:userId", h.VerificationImage)
	rg.POST("/verification", h.Decide)
}

func (h *Handler) VerificationImage(c *gin.Context) {
	url, err := h.service.VerificationImageURL(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

type decideRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Action string `json:"action" binding:"required"`
	Reason string `json:"reason"`
}

func (h *Handler) Decide(c *gin.Context) {
	var req decideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "user_id and action are required")
		return
	}

	if err := h.service.Decide(c.Request.Context(), req.UserID, req.Action, req.Reason); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, profile.ErrNotFound):
		response.NotFound(c, "profile not found")
	case errors.Is(err, ErrNoDocument):
		response.NotFound(c, "no verification document on file")
	case errors.Is(err, ErrInvalidAction):
		response.BadRequest(c, "action must be approve or reject")
	default:
		h.log.Error("admin request failed", zap.Error(err))
		response.InternalError(c, "")
	}
}
