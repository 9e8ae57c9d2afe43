// Package notify tells the operator when a partner replies. Delivery is best effort.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Alert describes one inbound message worth surfacing.
type Alert struct {
	PartnerID   int64     `json:"partner_id"`
	PartnerName string    `json:"partner_name"`
	Phone       string    `json:"phone"`
	Body        string    `json:"body"`
	MediaURL    string    `json:"media_url,omitempty"`
	ReceivedAt  time.Time `json:"received_at"`
}

type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// Multi fans an alert out to every channel. A failing channel does not stop the others.
type Multi struct {
	Channels []Notifier
	Log      zerolog.Logger
}

func (m *Multi) Notify(ctx context.Context, a Alert) error {
	var errs []error
	for _, ch := range m.Channels {
		if err := ch.Notify(ctx, a); err != nil {
			m.Log.Warn().Err(err).Int64("partner_id", a.PartnerID).Msg("notification channel failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Excerpt returns at most n runes of s.
func Excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
