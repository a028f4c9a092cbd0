package profile

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/thevvip/server/internal/shared/middleware"
	"github.com/thevvip/server/internal/shared/response"
	"github.com/thevvip/server/internal/shared/storage"
)

// Identity documents upload straight to the bucket; the API only hands
// out short-lived presigned URLs.
const uploadURLExpiry = 15 * time.Minute

var allowedDocTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
}

// Handler exposes the member-facing profile endpoints.
type Handler struct {
	repo  Repository
	store storage.ObjectStore
	log   *zap.Logger
}

// NewHandler creates the profile handler.
func NewHandler(repo Repository, store storage.ObjectStore, log *zap.Logger) *Handler {
	return &Handler{repo: repo, store: store, log: log}
}

// RegisterRoutes registers profile routes. The group must already carry
// authentication middleware.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/profile/verification/upload-url", h.VerificationUploadURL)
}

type uploadURLRequest struct {
	ContentType string `json:"content_type" binding:"required"`
}

// VerificationUploadURL issues a presigned PUT for an identity document
// and records the document key on the profile.
func (h *Handler) VerificationUploadURL(c *gin.Context) {
	var req uploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "content_type is required")
		return
	}

	ext, ok := allowedDocTypes[req.ContentType]
	if !ok {
		response.BadRequest(c, "content_type must be image/jpeg or image/png")
		return
	}

	userID := middleware.UserID(c)
	key := fmt.Sprintf("verification/%s/%s.%s", userID, uuid.NewString(), ext)

	url, err := h.store.PresignPut(c.Request.Context(), key, req.ContentType, uploadURLExpiry)
	if err != nil {
		h.log.Error("presign verification upload", zap.String("user_id", userID), zap.Error(err))
		response.InternalError(c, "")
		return
	}

	if err := h.repo.SetVerificationDoc(c.Request.Context(), userID, key); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "profile not found")
			return
		}
		h.log.Error("record verification document", zap.String("user_id", userID), zap.Error(err))
		response.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"upload_url": url,
		"key":        key,
		"expires_in": int(uploadURLExpiry.Seconds()),
	})
}
