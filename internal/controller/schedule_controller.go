// internal/controller/schedule_controller.go
package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	appErrors "github.com/unclebandit/partnerline/internal/errors"
	"github.com/unclebandit/partnerline/internal/model"
	"github.com/unclebandit/partnerline/internal/service"
)

type Schedules interface {
	Schedule(ctx context.Context, req service.ScheduleRequest) (*model.ScheduledMessage, error)
	ListPending(ctx context.Context) ([]service.ScheduledView, error)
	Cancel(ctx context.Context, id int64) error
}

type ScheduleController struct {
	Schedules Schedules
	Log       zerolog.Logger
}

func (c *ScheduleController) Routes(r chi.Router) {
	r.Get("/api/scheduled", c.List)
	r.Post("/api/scheduled", c.Create)
	r.Delete("/api/scheduled/{id}", c.Cancel)
}

func (c *ScheduleController) List(w http.ResponseWriter, r *http.Request) {
	views, err := c.Schedules.ListPending(r.Context())
	if err != nil {
		writeError(w, c.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

type scheduleRequest struct {
	PartnerIDs    []int64 `json:"partner_ids"`
	Message       string  `json:"message"`
	ScheduledTime string  `json:"scheduled_time"`
	MediaURL      string  `json:"media_url"`
	MediaType     string  `json:"media_type"`
}

func (c *ScheduleController) Create(w http.ResponseWriter, r *http.Request) {
	var body scheduleRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, c.Log, err)
		return
	}
	at, err := time.Parse(time.RFC3339, body.ScheduledTime)
	if err != nil {
		writeError(w, c.Log, appErrors.InvalidInput("scheduled_time must be RFC3339"))
		return
	}

	sm, err := c.Schedules.Schedule(r.Context(), service.ScheduleRequest{
		PartnerIDs:    body.PartnerIDs,
		Template:      body.Message,
		ScheduledTime: at,
		Media:         mediaFrom(body.MediaURL, body.MediaType),
	})
	if err != nil {
		writeError(w, c.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "id": sm.ID})
}

func (c *ScheduleController) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, c.Log, err)
		return
	}
	if err := c.Schedules.Cancel(r.Context(), id); err != nil {
		writeError(w, c.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
