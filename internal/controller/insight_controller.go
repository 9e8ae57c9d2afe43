// internal/controller/insight_controller.go
package controller

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/unclebandit/partnerline/internal/insight"
)

type Insights interface {
	Stats(ctx context.Context) (insight.Stats, error)
	BestTime(ctx context.Context, partnerID int64) (insight.BestTime, error)
	Ghosts(ctx context.Context) ([]insight.GhostCandidate, error)
	NextActions(ctx context.Context) (insight.NextActions, error)
	Suggestions(ctx context.Context, partnerID int64) (insight.Suggestions, error)
	Sentiment(ctx context.Context, partnerID int64) (insight.SentimentResult, error)
	Summary(ctx context.Context, partnerID int64) (string, error)
	Compose(ctx context.Context, request string, partnerID int64) (string, error)
}

// InsightController serves the analytics and AI helper endpoints.
type InsightController struct {
	Insights Insights
	Log      zerolog.Logger
}

func (c *InsightController) Routes(r chi.Router) {
	r.Get("/api/stats", c.Stats)
	r.Route("/api/insights", func(r chi.Router) {
		r.Get("/best-time/{partnerID}", c.BestTime)
		r.Get("/ghosts", c.Ghosts)
		r.Get("/next-actions", c.NextActions)
	})
	r.Route("/api/ai", func(r chi.Router) {
		r.Post("/suggestions/{partnerID}", c.Suggestions)
		r.Get("/sentiment/{partnerID}", c.Sentiment)
		r.Get("/summary/{partnerID}", c.Summary)
		r.Post("/compose", c.Compose)
	})
}

func (c *InsightController) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := c.Insights.Stats(r.Context())
	if err != nil {
		writeError(w, c.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (c *InsightController) BestTime(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "partnerID")
	if err != nil {
		writeError(w, c.Log, err)
		return
	}
	bt, err := c.Insights.BestTime(r.Context(), id)
	if err != nil {
		writeError(w, c.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, bt)
}

func (c *InsightController) Ghosts(w http.ResponseWriter, r *http.Request) {
	ghosts, err := c.Insights.Ghosts(r.Context())
	if err != nil {
		writeError(w, c.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ghosts": ghosts,
		"count":  len(ghosts),
	})
}

func (c *InsightController) NextActions(w http.ResponseWriter, r *http.Request) {
	res, err := c.Insights.NextActions(r.Context())
	if err != nil {
		writeError(w, c.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (c *InsightController) Suggestions(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "partnerID")
	if err != nil {
		writeError(w, c.Log, err)
		return
	}
	res, err := c.Insights.Suggestions(r.Context(), id)
	if err != nil {
		writeError(w, c.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (c *InsightController) Sentiment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "partnerID")
	if err != nil {
		writeError(w, c.Log, err)
		return
	}
	res, err := c.Insights.Sentiment(r.Context(), id)
	if err != nil {
		writeError(w, c.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (c *InsightController) Summary(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "partnerID")
	if err != nil {
		writeError(w, c.Log, err)
		return
	}
	summary, err := c.Insights.Summary(r.Context(), id)
	if err != nil {
		writeError(w, c.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

type composeRequest struct {
	Prompt    string `json:"prompt"`
	PartnerID int64  `json:"partner_id"`
}

func (c *InsightController) Compose(w http.ResponseWriter, r *http.Request) {
	var body composeRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, c.Log, err)
		return
	}
	msg, err := c.Insights.Compose(r.Context(), body.Prompt, body.PartnerID)
	if err != nil {
		writeError(w, c.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}
