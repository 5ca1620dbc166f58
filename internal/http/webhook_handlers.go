package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	apperrors "shoplink-backend/internal/common/errors"
	"shoplink-backend/internal/common/middleware"
	dm "shoplink-backend/internal/domain/messenger"
	"shoplink-backend/internal/observability"
	"shoplink-backend/internal/service/webhook"
	"shoplink-backend/internal/workers"
)

// AckBody is the fixed acknowledgment for accepted deliveries.
const AckBody = "EVENT_RECEIVED"

// EventProcessor handles one normalized event.
type EventProcessor interface {
	Process(ctx context.Context, ev dm.InboundEvent)
}

// TaskSubmitter schedules work that outlives the request.
type TaskSubmitter interface {
	Submit(name string, task workers.Task) error
}

// WebhookHandlers serves the platform's webhook endpoint.
type WebhookHandlers struct {
	verifier  *webhook.Verifier
	processor EventProcessor
	tasks     TaskSubmitter
	metrics   *observability.Metrics
}

func NewWebhookHandlers(verifier *webhook.Verifier, processor EventProcessor, tasks TaskSubmitter, metrics *observability.Metrics) *WebhookHandlers {
	return &WebhookHandlers{verifier: verifier, processor: processor, tasks: tasks, metrics: metrics}
}

func (h *WebhookHandlers) Register(r gin.IRoutes) {
	r.GET("/webhook", h.verify)
	r.POST("/webhook", h.receive)
}

// verify answers the subscription handshake.
func (h *WebhookHandlers) verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	switch h.verifier.Verify(mode, token) {
	case webhook.VerdictAccepted:
		log.Info().Msg("WEBHOOK_VERIFIED")
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(challenge))
	case webhook.VerdictForbidden:
		log.Warn().Str("mode", mode).Msg("Webhook verification failed")
		c.AbortWithStatus(http.StatusForbidden)
	default:
		c.AbortWithStatus(http.StatusBadRequest)
	}
}

// receive acknowledges a delivery and schedules one task per entry. The
// response never waits for storage or the send API.
func (h *WebhookHandlers) receive(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		h.reject(c, err)
		return
	}
	delivery, err := webhook.ParseDelivery(body)
	if err != nil {
		h.reject(c, err)
		return
	}
	events, err := webhook.Normalize(delivery)
	if err != nil {
		h.reject(c, err)
		return
	}
	h.metrics.DeliveryReceived(observability.ResultOK)

	requestID := c.GetString(middleware.RequestIDKey)
	for _, ee := range events {
		ev := ee.Event
		log.Info().Str("request_id", requestID).Str("entry_id", ee.EntryID).Str("sender_id", ev.SenderID).Msg("Event received")
		err := h.tasks.Submit("entry:"+ee.EntryID, func(ctx context.Context) {
			h.processor.Process(ctx, ev)
		})
		if err != nil {
			log.Warn().Err(err).Str("sender_id", ev.SenderID).Msg("Event dropped")
		}
	}

	c.String(http.StatusOK, AckBody)
}

func (h *WebhookHandlers) reject(c *gin.Context, err error) {
	appErr := apperrors.NewValidationError("Webhook delivery rejected", err)
	log.Warn().
		Err(appErr).
		Str("request_id", c.GetString(middleware.RequestIDKey)).
		Msg("Webhook delivery rejected")
	h.metrics.DeliveryReceived(observability.ResultRejected)
	c.AbortWithStatus(http.StatusNotFound)
}
