package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yanqian/faq-chat/internal/domain/chat"
	"github.com/yanqian/faq-chat/internal/domain/knowledge"
	apperrors "github.com/yanqian/faq-chat/pkg/errors"
)

// Handler wires the HTTP transport to the conversation engine.
type Handler struct {
	chatSvc chat.Service
	cache   *knowledge.Cache
	logger  *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(chatSvc chat.Service, cache *knowledge.Cache, logger *slog.Logger) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		cache:   cache,
		logger:  logger.With("component", "http.handler"),
	}
}

type chatRequest struct {
	TenantID    string `json:"tenantId" binding:"required"`
	SessionID   string `json:"sessionId"`
	Message     string `json:"message" binding:"required"`
	ForceReload bool   `json:"forceReload"`
}

// Chat answers one conversation turn. A missing session id starts a new
// conversation; the generated id comes back in the response.
func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	resp, err := h.chatSvc.Answer(c.Request.Context(), chat.Request{
		TenantID:    req.TenantID,
		SessionID:   req.SessionID,
		Message:     req.Message,
		ForceReload: req.ForceReload,
	})
	if err != nil {
		status := http.StatusInternalServerError
		code := "chat_failed"
		if apperrors.IsCode(err, "invalid_input") {
			status = http.StatusBadRequest
			code = "invalid_request"
		}
		abortWithError(c, NewHTTPError(status, code, errMessage(err), err))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ReloadTenant drops the tenant's cached knowledge base so the next question
// rebuilds it from the content store.
func (h *Handler) ReloadTenant(c *gin.Context) {
	tenantID := c.Param("tenantId")
	if tenantID == "" {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "tenantId cannot be empty", nil))
		return
	}

	h.cache.Invalidate(tenantID)
	h.logger.Info("tenant knowledge base invalidated", "tenant", tenantID)
	c.JSON(http.StatusAccepted, gin.H{"tenantId": tenantID, "status": "reload_scheduled"})
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
