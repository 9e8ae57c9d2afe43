// Package insight derives engagement signals from the message log: best time
// to contact, ghost detection and next-action ranking. Everything except
// Service is pure.
package insight

import (
	"sort"
	"time"

	"github.com/unclebandit/partnerline/internal/model"
)

// PartnerHistory is a partner with their whole conversation.
type PartnerHistory struct {
	Partner  model.Partner
	Messages []model.Message
}

// chronological returns a copy of msgs ordered by (CreatedAt, ID).
func chronological(msgs []model.Message) []model.Message {
	out := append([]model.Message(nil), msgs...)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func excerpt(body string, n int) string {
	if body == "" {
		return "[Media]"
	}
	r := []rune(body)
	if len(r) <= n {
		return body
	}
	return string(r[:n])
}

func hoursBetween(from, to time.Time) float64 {
	return to.Sub(from).Hours()
}
