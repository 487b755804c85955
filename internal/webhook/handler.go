package webhook

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"uniapply/internal/common/errors"
	"uniapply/internal/common/logger"
	"uniapply/internal/common/metrics"
	"uniapply/internal/registry"
	"uniapply/internal/sinks"
)

// Handler terminates partner webhook deliveries: signature verification,
// payload normalization, and delivery to the status and notification sinks.
type Handler struct {
	registry *registry.Registry
	status   sinks.StatusSink
	notifier sinks.NotificationSink
	logger   logger.Logger
}

func NewHandler(reg *registry.Registry, status sinks.StatusSink, notifier sinks.NotificationSink, log logger.Logger) *Handler {
	return &Handler{
		registry: reg,
		status:   status,
		notifier: notifier,
		logger:   log,
	}
}

// Register mounts the webhook routes.
func (h *Handler) Register(router gin.IRouter) {
	router.POST("/webhooks/:partner", h.handleDelivery)
	router.GET("/webhooks/:partner", h.handleVerification)
}

func (h *Handler) handleDelivery(c *gin.Context) {
	partnerCode := c.Param("partner")

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		metrics.WebhookRejections.WithLabelValues(partnerCode, "unreadable_body").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook processing failed"})
		return
	}

	partner, _ := h.registry.Lookup(partnerCode)

	signature := c.GetHeader(SignatureHeader(partnerCode, partner.Webhook.SignatureHeader))
	if signature == "" {
		metrics.WebhookRejections.WithLabelValues(partnerCode, "missing_signature").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing signature"})
		return
	}

	if err := Verify(partnerCode, body, signature, partner.Webhook.Secret); err != nil {
		switch errors.CodeOf(err) {
		case errors.ErrCodeSignature:
			metrics.WebhookRejections.WithLabelValues(partnerCode, "invalid_signature").Inc()
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		default:
			// Unknown partner or missing secret. Fail closed; the details
			// stay in the logs.
			h.logger.WithError(err).Error("webhook verification misconfigured", map[string]interface{}{
				"partner": partnerCode,
			})
			metrics.WebhookRejections.WithLabelValues(partnerCode, "misconfigured").Inc()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook processing failed"})
		}
		return
	}

	update, err := Process(partnerCode, body)
	if err != nil {
		h.logger.WithError(err).Error("webhook payload rejected", map[string]interface{}{
			"partner": partnerCode,
		})
		metrics.WebhookRejections.WithLabelValues(partnerCode, "bad_payload").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook processing failed"})
		return
	}

	if update.NeedsReview {
		h.logger.Warn("unmapped partner status flagged for review", map[string]interface{}{
			"partner":       update.PartnerCode,
			"applicationId": update.ApplicationID,
			"nativeStatus":  update.RawStatus,
		})
	}

	if err := h.status.Apply(c.Request.Context(), update); err != nil {
		h.logger.WithError(err).Error("failed to persist status update", map[string]interface{}{
			"partner":       update.PartnerCode,
			"applicationId": update.ApplicationID,
		})
		metrics.WebhookRejections.WithLabelValues(partnerCode, "sink_failure").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook processing failed"})
		return
	}

	// Notification failures never fail the delivery: the status is already
	// persisted and the partner should not retry.
	if err := h.notifier.Notify(c.Request.Context(), update); err != nil {
		h.logger.WithError(err).Warn("status notification failed", map[string]interface{}{
			"partner":       update.PartnerCode,
			"applicationId": update.ApplicationID,
		})
	}

	metrics.WebhookEvents.WithLabelValues(update.PartnerCode, string(update.Status)).Inc()
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Webhook processed successfully"})
}

// handleVerification answers subscription handshakes. Partners that do one
// (UCT) send hub.challenge and hub.verify_token; the challenge is echoed
// back only on a token match.
func (h *Handler) handleVerification(c *gin.Context) {
	partnerCode := c.Param("partner")
	challenge := c.Query("hub.challenge")
	verifyToken := c.Query("hub.verify_token")

	partner, ok := h.registry.Lookup(partnerCode)
	if !ok || partner.Webhook.VerifyToken == "" {
		c.String(http.StatusForbidden, "Forbidden")
		return
	}

	if challenge != "" && verifyToken == partner.Webhook.VerifyToken {
		c.String(http.StatusOK, challenge)
		return
	}
	c.String(http.StatusForbidden, "Forbidden")
}
