package insight

import (
	"math"
	"sort"
	"time"

	"github.com/unclebandit/partnerline/internal/model"
)

const (
	// FallbackResponseHours stands in for a partner with no usable reply samples.
	FallbackResponseHours = 48.0
	minGhostHours         = 48.0
	maxSampleHours        = 168.0

	UrgencyHigh   = "high"
	UrgencyMedium = "medium"
	UrgencyLow    = "low"
)

// ResponseTimeSample is the latency of one reply to our nearest preceding message.
type ResponseTimeSample struct {
	OutboundAt time.Time `json:"outbound_at"`
	InboundAt  time.Time `json:"inbound_at"`
	Hours      float64   `json:"hours"`
}

type GhostCandidate struct {
	PartnerID        int64     `json:"partner_id"`
	Name             string    `json:"name"`
	Company          string    `json:"company"`
	Phone            string    `json:"phone"`
	LastMessage      string    `json:"last_message"`
	LastMessageAt    time.Time `json:"last_message_date"`
	HoursWaiting     float64   `json:"hours_waiting"`
	DaysWaiting      int       `json:"days_waiting"`
	AvgResponseHours float64   `json:"avg_response_hours"`
	Urgency          string    `json:"urgency"`
	SuggestedMessage string    `json:"suggested_message,omitempty"`
}

// ResponseSamples pairs every inbound message with the nearest earlier
// outbound one. Pairs outside (0, 168] hours are discarded.
func ResponseSamples(msgs []model.Message) []ResponseTimeSample {
	ordered := chronological(msgs)
	var (
		samples      []ResponseTimeSample
		lastOutbound *time.Time
	)
	for i := range ordered {
		m := ordered[i]
		switch m.Direction {
		case model.Outbound:
			at := m.CreatedAt
			lastOutbound = &at
		case model.Inbound:
			if lastOutbound == nil {
				continue
			}
			h := hoursBetween(*lastOutbound, m.CreatedAt)
			if h > 0 && h <= maxSampleHours {
				samples = append(samples, ResponseTimeSample{OutboundAt: *lastOutbound, InboundAt: m.CreatedAt, Hours: h})
			}
		}
	}
	return samples
}

// AverageResponseHours is the mean sample latency, or FallbackResponseHours without samples.
func AverageResponseHours(samples []ResponseTimeSample) float64 {
	if len(samples) == 0 {
		return FallbackResponseHours
	}
	var sum float64
	for _, s := range samples {
		sum += s.Hours
	}
	return sum / float64(len(samples))
}

// DetectGhosts flags active partners whose last message is ours and who have
// been silent past ghostThreshold. Most overdue first.
func DetectGhosts(now time.Time, histories []PartnerHistory) []GhostCandidate {
	ghosts := []GhostCandidate{}
	for _, h := range histories {
		if !h.Partner.Active() || len(h.Messages) == 0 {
			continue
		}
		ordered := chronological(h.Messages)
		last := ordered[len(ordered)-1]
		if last.Direction != model.Outbound {
			continue
		}

		samples := ResponseSamples(ordered)
		avg := AverageResponseHours(samples)
		waiting := hoursBetween(last.CreatedAt, now)
		if waiting <= ghostThreshold(avg, len(samples)) {
			continue
		}

		days := int(math.Floor(waiting / 24))
		ghosts = append(ghosts, GhostCandidate{
			PartnerID:        h.Partner.ID,
			Name:             h.Partner.FullName(),
			Company:          h.Partner.Company,
			Phone:            h.Partner.Phone,
			LastMessage:      excerpt(last.Body, 100),
			LastMessageAt:    last.CreatedAt,
			HoursWaiting:     math.Round(waiting*10) / 10,
			DaysWaiting:      days,
			AvgResponseHours: math.Round(avg*10) / 10,
			Urgency:          urgencyFor(days),
		})
	}
	sort.SliceStable(ghosts, func(i, j int) bool { return ghosts[i].DaysWaiting > ghosts[j].DaysWaiting })
	return ghosts
}

// ghostThreshold is max(2x avg, 48h) for an observed cadence. Without samples
// the fallback average is not doubled, so silence beyond 48h is enough.
func ghostThreshold(avg float64, samples int) float64 {
	if samples == 0 {
		return minGhostHours
	}
	return math.Max(2*avg, minGhostHours)
}

func urgencyFor(days int) string {
	switch {
	case days > 7:
		return UrgencyHigh
	case days > 3:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}
