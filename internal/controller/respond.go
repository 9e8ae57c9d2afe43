// internal/controller/respond.go
package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/unclebandit/partnerline/internal/ai"
	appErrors "github.com/unclebandit/partnerline/internal/errors"
	"github.com/unclebandit/partnerline/internal/model"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeError maps domain errors onto status codes. Anything unrecognised is
// logged and reported as a bare 500.
func writeError(w http.ResponseWriter, log zerolog.Logger, err error) {
	switch {
	case errors.Is(err, appErrors.ErrInvalidInput):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case appErrors.IsNotFound(err):
		writeMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, appErrors.ErrNotCancellable):
		writeMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, ai.ErrNotConfigured):
		writeMessage(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		writeMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return appErrors.InvalidInput("invalid body")
	}
	return nil
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.InvalidInput("invalid " + name)
	}
	return id, nil
}

// mediaFrom returns nil unless a URL was supplied.
func mediaFrom(url, mediaType string) *model.Media {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil
	}
	return &model.Media{URL: url, Type: mediaType}
}
