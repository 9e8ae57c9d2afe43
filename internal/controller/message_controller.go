// internal/controller/message_controller.go
package controller

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	appErrors "github.com/unclebandit/partnerline/internal/errors"
	"github.com/unclebandit/partnerline/internal/model"
	"github.com/unclebandit/partnerline/internal/service"
)

type Dispatcher interface {
	SendSingle(ctx context.Context, partnerID int64, template string, media *model.Media) service.SendResult
	SendBroadcast(ctx context.Context, partnerIDs []int64, template string, media *model.Media) []service.SendResult
}

type ConversationReader interface {
	Conversation(ctx context.Context, partnerID int64) (*service.Conversation, error)
}

type MessageController struct {
	Dispatch      Dispatcher
	Conversations ConversationReader
	Log           zerolog.Logger
}

func (c *MessageController) Routes(r chi.Router) {
	r.Post("/api/send", c.Send)
	r.Post("/api/broadcast", c.Broadcast)
	r.Get("/api/messages/{partnerID}", c.Conversation)
}

type sendRequest struct {
	PartnerID int64  `json:"partner_id"`
	Message   string `json:"message"`
	MediaURL  string `json:"media_url"`
	MediaType string `json:"media_type"`
}

// Send delivers one personalised message. The outcome is in the body; only an
// unknown partner changes the status code.
func (c *MessageController) Send(w http.ResponseWriter, r *http.Request) {
	var body sendRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, c.Log, err)
		return
	}
	if body.PartnerID <= 0 {
		writeError(w, c.Log, appErrors.InvalidInput("partner_id is required"))
		return
	}
	if strings.TrimSpace(body.Message) == "" {
		writeError(w, c.Log, appErrors.InvalidInput("message cannot be empty"))
		return
	}

	res := c.Dispatch.SendSingle(r.Context(), body.PartnerID, body.Message, mediaFrom(body.MediaURL, body.MediaType))
	if res.Kind == service.SendNotFound {
		writeError(w, c.Log, appErrors.NewPartnerNotFound(body.PartnerID))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type broadcastRequest struct {
	PartnerIDs []int64 `json:"partner_ids"`
	Message    string  `json:"message"`
	MediaURL   string  `json:"media_url"`
	MediaType  string  `json:"media_type"`
}

// Broadcast sends to each distinct partner id on the request context. A client
// that disconnects mid-run cancels it and the remaining partners report failed.
func (c *MessageController) Broadcast(w http.ResponseWriter, r *http.Request) {
	var body broadcastRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, c.Log, err)
		return
	}
	ids := service.UniquePartnerIDs(body.PartnerIDs)
	if len(ids) == 0 {
		writeError(w, c.Log, appErrors.InvalidInput("partner_ids cannot be empty"))
		return
	}
	if strings.TrimSpace(body.Message) == "" {
		writeError(w, c.Log, appErrors.InvalidInput("message cannot be empty"))
		return
	}

	results := c.Dispatch.SendBroadcast(r.Context(), ids, body.Message, mediaFrom(body.MediaURL, body.MediaType))
	sent := 0
	for _, res := range results {
		if res.Kind == service.SendSent {
			sent++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sent":    sent,
		"results": results,
	})
}

// Conversation returns the partner's history and marks their inbound messages read.
func (c *MessageController) Conversation(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "partnerID")
	if err != nil {
		writeError(w, c.Log, err)
		return
	}
	conv, err := c.Conversations.Conversation(r.Context(), id)
	if err != nil {
		writeError(w, c.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}
