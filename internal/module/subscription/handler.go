package subscription

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/thevvip/server/internal/module/payment"
	"github.com/thevvip/server/internal/module/plan"
	"github.com/thevvip/server/internal/module/profile"
	"github.com/thevvip/server/internal/shared/config"
	"github.com/thevvip/server/internal/shared/middleware"
	"github.com/thevvip/server/internal/shared/response"
)

// Handler exposes subscription commands over HTTP.
type Handler struct {
	service   *Service
	stripeCfg *config.StripeConfig
	log       *zap.Logger
}

// NewHandler creates the subscription handler.
func NewHandler(service *Service, stripeCfg *config.StripeConfig, log *zap.Logger) *Handler {
	return &Handler{service: service, stripeCfg: stripeCfg, log: log}
}

// RegisterRoutes registers authenticated subscription routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	sub := rg.Group("/subscription")
	sub.POST("", h.Create)
	sub.POST("/record-payment", h.RecordPayment)
	sub.GET("/status", h.Status)
	sub.POST("/change", h.Change)
	sub.POST("/cancel", h.Cancel)
}

// RegisterPublicRoutes registers routes that need no authentication.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/billing/config", h.BillingConfig)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "plan_id and payment_method_id are required")
		return
	}

	result, err := h.service.Create(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) RecordPayment(c *gin.Context) {
	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "plan_id and subscription_id are required")
		return
	}

	result, err := h.service.RecordPayment(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) Status(c *gin.Context) {
	result, err := h.service.Status(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) Change(c *gin.Context) {
	var req ChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "plan_id is required")
		return
	}

	result, err := h.service.Change(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) Cancel(c *gin.Context) {
	if err := h.service.Cancel(c.Request.Context(), middleware.UserID(c)); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "canceled"})
}

// BillingConfig serves the processor publishable key. Clients never
// supply their own key; this endpoint is the only source.
func (h *Handler) BillingConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"configured":      h.stripeCfg.Configured(),
		"publishable_key": h.stripeCfg.PublishableKey,
		"live_mode":       h.stripeCfg.LiveMode(),
	})
}

func (h *Handler) handleError(c *gin.Context, err error) {
	var commitment *CommitmentActiveError
	var decline *payment.DeclineError

	switch {
	case errors.As(err, &commitment):
		response.ErrorWithDetails(c, http.StatusForbidden, "commitment_active",
			"cancellation is not available during the minimum commitment period",
			CommitmentDetails{
				RemainingDays:   commitment.RemainingDays,
				CommitmentUntil: commitment.CommitmentUntil,
			})
	case errors.As(err, &decline):
		response.PaymentRequired(c, decline.Error())
	case errors.Is(err, ErrNotConfigured), errors.Is(err, payment.ErrUnavailable):
		response.ServiceUnavailable(c, "payment system unavailable")
	case errors.Is(err, ErrInvalidPlan), errors.Is(err, plan.ErrUnknownPlan):
		response.ErrorWithCode(c, http.StatusBadRequest, "invalid_plan", "invalid plan")
	case errors.Is(err, ErrSamePlan):
		response.ErrorWithCode(c, http.StatusBadRequest, "same_plan", "already on this plan")
	case errors.Is(err, ErrNoActiveSubscription):
		response.ErrorWithCode(c, http.StatusBadRequest, "no_active_subscription", "no active subscription")
	case errors.Is(err, profile.ErrNotFound):
		response.NotFound(c, "profile not found")
	case errors.Is(err, plan.ErrPriceNotConfigured):
		h.log.Error("plan price not configured", zap.Error(err))
		response.InternalError(c, "plan is not available for purchase")
	default:
		h.log.Error("subscription request failed", zap.Error(err))
		response.InternalError(c, "")
	}
}
