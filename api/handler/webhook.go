package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/imageboard/models"
	"github.com/use-agent/imageboard/webhook"
)

const maxWebhookBody = 1 << 20

// Webhook returns a handler for POST /api/v1/webhooks/cms.
func Webhook(r *webhook.Receiver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.Enabled() {
			respondError(c, models.NewAppError(models.ErrCodeNotFound, "webhook is not configured", nil))
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			respondError(c, models.NewAppError(models.ErrCodeInvalidInput, "failed to read body", err))
			return
		}

		event, err := r.Handle(body, c.GetHeader(webhook.SignatureHeader), c.GetHeader("Authorization"))
		if err != nil {
			if errors.Is(err, webhook.ErrUnauthorized) {
				slog.Warn("rejected webhook", "client_ip", c.ClientIP())
				respondError(c, models.NewAppError(models.ErrCodeUnauthorized, "invalid webhook signature", err))
				return
			}
			respondError(c, models.NewAppError(models.ErrCodeInvalidInput, err.Error(), err))
			return
		}

		c.JSON(http.StatusOK, models.APIResponse{
			Success: true,
			Data:    gin.H{"event": event.Event, "invalidated": event.AffectsFeed()},
		})
	}
}
