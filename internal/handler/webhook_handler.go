// internal/handler/webhook_handler.go
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	appErrors "github.com/unclebandit/partnerline/internal/errors"
	"github.com/unclebandit/partnerline/internal/model"
	"github.com/unclebandit/partnerline/internal/service"
)

// emptyTwiML acknowledges an inbound message without sending an automatic reply.
const emptyTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response />`

type InboundReceiver interface {
	HandleInbound(ctx context.Context, in service.InboundMessage) (service.InboundResult, error)
	ApplyStatus(ctx context.Context, transportID, status string) (bool, error)
}

// WebhookHandler receives the SMS provider's form posts.
type WebhookHandler struct {
	Inbound InboundReceiver
	Log     zerolog.Logger
}

func (h *WebhookHandler) Routes(r chi.Router) {
	r.Post("/webhooks/incoming", h.Incoming)
	r.Post("/webhooks/status", h.Status)
}

// Incoming records a message sent to us. Only the first attachment is kept.
func (h *WebhookHandler) Incoming(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	in := service.InboundMessage{
		From: r.PostForm.Get("From"),
		Body: r.PostForm.Get("Body"),
	}
	if n, _ := strconv.Atoi(r.PostForm.Get("NumMedia")); n > 0 {
		if url := strings.TrimSpace(r.PostForm.Get("MediaUrl0")); url != "" {
			in.Media = &model.Media{
				URL:  url,
				Type: model.MediaTypeFromContentType(r.PostForm.Get("MediaContentType0")),
			}
		}
	}

	res, err := h.Inbound.HandleInbound(r.Context(), in)
	if err != nil {
		if errors.Is(err, appErrors.ErrInvalidInput) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.Log.Error().Err(err).Msg("handle inbound message")
		http.Error(w, "failed to record message", http.StatusInternalServerError)
		return
	}
	h.Log.Debug().
		Int64("partner_id", res.PartnerID).
		Int64("message_id", res.MessageID).
		Bool("partner_created", res.PartnerCreated).
		Bool("opted_out", res.OptedOut).
		Msg("inbound message stored")

	w.Header().Set("Content-Type", "application/xml")
	_, _ = w.Write([]byte(emptyTwiML))
}

// Status applies a delivery report. Reports for unknown messages are acknowledged and dropped.
func (h *WebhookHandler) Status(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}
	sid, status := r.PostForm.Get("MessageSid"), r.PostForm.Get("MessageStatus")
	updated, err := h.Inbound.ApplyStatus(r.Context(), sid, status)
	if err != nil {
		h.Log.Error().Err(err).Str("transport_id", sid).Msg("apply delivery status")
		http.Error(w, "failed to apply status", http.StatusInternalServerError)
		return
	}
	if !updated {
		h.Log.Debug().Str("transport_id", sid).Str("status", status).Msg("status for unknown message")
	}
	w.WriteHeader(http.StatusOK)
}
