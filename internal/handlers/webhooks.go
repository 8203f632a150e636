package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/deskroute/deskroute/internal/models"
)

// InboundPublisher queues inbound events for the worker pool.
// *kafka.Producer implements it.
type InboundPublisher interface {
	PublishInbound(ctx context.Context, key string, event any) error
}

// WhatsAppWebhook handles POST /webhooks/whatsapp. Providers post
// form-encoded payloads; the event is queued and processed by a worker so
// the webhook always answers within the provider's timeout.
func (h *Handler) WhatsAppWebhook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid form payload")
		return
	}

	from := strings.TrimPrefix(r.PostFormValue("From"), "whatsapp:")
	body := r.PostFormValue("Body")
	messageSID := r.PostFormValue("MessageSid")
	profileName := sanitizeName(r.PostFormValue("ProfileName"))

	if !isValidPhone(from) {
		h.Error(w, http.StatusBadRequest, "invalid sender")
		return
	}
	if strings.TrimSpace(body) == "" {
		h.Error(w, http.StatusBadRequest, "empty message body")
		return
	}

	ev := &models.InboundEvent{
		EventID:          webhookEventID(messageSID),
		Channel:          models.ChannelWhatsApp,
		CustomerPhone:    from,
		CustomerName:     profileName,
		Content:          body,
		ChannelMessageID: messageSID,
		ReceivedAt:       time.Now().UTC(),
	}

	if err := h.inbound.PublishInbound(r.Context(), from, ev); err != nil {
		h.Error(w, http.StatusServiceUnavailable, "queueing failed")
		return
	}

	h.JSON(w, http.StatusAccepted, map[string]string{
		"status":   "queued",
		"event_id": ev.EventID,
	})
}

// webhookEventID derives a stable event id from the provider message id
// so provider retries dedupe to one processed event.
func webhookEventID(messageSID string) string {
	if messageSID != "" {
		return "wa-" + messageSID
	}
	return ulid.Make().String()
}
