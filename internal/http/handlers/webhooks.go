package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"astrovani.com/app/internal/http/middleware"
	"astrovani.com/app/internal/modules/payments"
)

const maxWebhookBody = 1 << 20 // 1 MiB

type WebhookHandler struct {
	verifier *payments.Verifier
	service  *payments.WebhookService
	logger   *slog.Logger
}

func NewWebhookHandler(v *payments.Verifier, s *payments.WebhookService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{verifier: v, service: s, logger: logger}
}

// Receive acknowledges every delivery with 200 so the gateway does not
// retry-storm us. The signature outcome is recorded, not enforced, and
// no business action runs here: polling is authoritative for payment
// state.
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "webhook body read failed",
			"request_id", middleware.GetRequestID(c), "err", err)
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	signature := c.GetHeader("x-webhook-signature")
	timestamp := c.GetHeader("x-webhook-timestamp")
	verified := h.verifier.Verify(body, signature, timestamp)
	if !verified {
		h.logger.WarnContext(c.Request.Context(), "webhook signature not verified",
			"request_id", middleware.GetRequestID(c), "client_ip", c.ClientIP())
	}

	if err := h.service.Record(c.Request.Context(), body, verified); err != nil {
		h.logger.ErrorContext(c.Request.Context(), "webhook record failed",
			"request_id", middleware.GetRequestID(c), "err", err)
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
