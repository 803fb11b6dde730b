package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ujjwal0117/CDAC-PROJECT/internal/modules/payments"
)

type WebhookHandler struct {
	Logger *slog.Logger
	Svc    *payments.WebhookService
}

func NewWebhookHandler(logger *slog.Logger, svc *payments.WebhookService) *WebhookHandler {
	return &WebhookHandler{Logger: logger, Svc: svc}
}

// POST /webhooks/razorpay
// Body is the raw JSON event; the signature header is verified against it.
func (h *WebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	signature := c.GetHeader("X-Razorpay-Signature")
	eventID := c.GetHeader("X-Razorpay-Event-Id")

	if err := h.Svc.Handle(c.Request.Context(), body, signature, eventID); err != nil {
		switch {
		case errors.Is(err, payments.ErrInvalidWebhookSignature):
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid signature"})
		case errors.Is(err, payments.ErrMalformedWebhook):
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "malformed payload"})
		default:
			// 500 so the gateway retries the delivery.
			h.Logger.Error("webhook apply failed", "event_id", eventID, "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
