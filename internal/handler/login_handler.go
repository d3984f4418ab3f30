package handler

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/acmeid/login-orchestrator/internal/infrastructure/otp"
	"github.com/acmeid/login-orchestrator/internal/orchestration"
	"github.com/acmeid/login-orchestrator/internal/pkg/apperror"
	"github.com/acmeid/login-orchestrator/internal/pkg/response"
	"github.com/acmeid/login-orchestrator/internal/workflow"
)

// StartRateLimiter caps login-start volume per username. nil disables
// the check.
type StartRateLimiter interface {
	Allow(ctx context.Context, username string) (bool, error)
}

type LoginHandler struct {
	runtime *orchestration.Runtime
	limiter StartRateLimiter
}

func NewLoginHandler(runtime *orchestration.Runtime, limiter StartRateLimiter) *LoginHandler {
	return &LoginHandler{runtime: runtime, limiter: limiter}
}

type startLoginRequest struct {
	Username string `json:"username" binding:"required"`
}

type startLoginResponse struct {
	InstanceID string `json:"instance_id"`
}

type submitCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// Start schedules a new login orchestration and returns its instance ID.
// The outcome is not known yet; callers poll Status for the terminal result.
func (h *LoginHandler) Start(c *gin.Context) {
	var req startLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.ValidationError(
			"Invalid login request",
			"Provide a username",
		).WithErrors(map[string]string{
			"username": "username is required",
		}))
		return
	}

	username := strings.TrimSpace(req.Username)

	if h.limiter != nil {
		allowed, err := h.limiter.Allow(c.Request.Context(), username)
		if err != nil {
			slog.Warn("Rate limiter unavailable, allowing request", slog.Any("error", err))
		} else if !allowed {
			response.Error(c, apperror.RateLimitError())
			return
		}
	}

	instanceID, err := h.runtime.Start(c.Request.Context(), workflow.WorkflowLogin, username)
	if err != nil {
		response.ErrorFromErr(c, err)
		return
	}

	response.Accepted(c, startLoginResponse{InstanceID: instanceID})
}

// SubmitCode raises the MfaCode event against a running instance.
func (h *LoginHandler) SubmitCode(c *gin.Context) {
	instanceID := c.Param("id")

	var req submitCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil || !otp.IsValidFormat(req.Code) {
		response.Error(c, apperror.ValidationError(
			"Invalid code",
			"Provide the 6-digit code that was sent to you",
		).WithErrors(map[string]string{
			"code": "code must be exactly 6 digits",
		}))
		return
	}

	if err := h.runtime.RaiseEvent(c.Request.Context(), instanceID, workflow.EventMfaCode, req.Code); err != nil {
		switch {
		case errors.Is(err, orchestration.ErrInstanceNotFound):
			response.Error(c, apperror.NotFoundError("Login attempt"))
		case errors.Is(err, orchestration.ErrInstanceTerminal):
			response.Error(c, apperror.ConflictError(
				"This login attempt has already finished",
				"Start a new login",
			))
		default:
			response.ErrorFromErr(c, err)
		}
		return
	}

	status, err := h.runtime.Status(c.Request.Context(), instanceID)
	if err != nil {
		response.ErrorFromErr(c, err)
		return
	}
	response.Success(c, status)
}

// Status reports the instance's current state and, once terminal, its result.
func (h *LoginHandler) Status(c *gin.Context) {
	status, err := h.runtime.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, orchestration.ErrInstanceNotFound) {
			response.Error(c, apperror.NotFoundError("Login attempt"))
			return
		}
		response.ErrorFromErr(c, err)
		return
	}
	response.Success(c, status)
}
