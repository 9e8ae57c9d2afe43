package insight

import (
	"fmt"
	"time"

	"github.com/unclebandit/partnerline/internal/model"
)

const (
	ConfidenceInsufficient = "insufficient"
	ConfidenceLow          = "low"
	ConfidenceMedium       = "medium"
	ConfidenceHigh         = "high"

	minBestTimeSamples = 2
	insufficientNote   = "Not enough data yet. Need more responses to analyze patterns."
)

// BestTime is when a partner tends to reply.
type BestTime struct {
	Sufficient    bool    `json:"sufficient"`
	BestHour      int     `json:"best_hour"`
	BestTime      string  `json:"best_time,omitempty"`
	BestDay       string  `json:"best_day,omitempty"`
	ResponseCount int     `json:"response_count"`
	Confidence    string  `json:"confidence"`
	HourHistogram [24]int `json:"hour_breakdown"`
	DayHistogram  [7]int  `json:"day_breakdown"`
	Message       string  `json:"message,omitempty"`
}

// AnalyzeBestTime histograms inbound timestamps in loc (UTC when nil) and
// picks the busiest hour and weekday, lowest bucket winning ties. Weekdays
// are indexed from Sunday. Outbound messages in the input are ignored.
func AnalyzeBestTime(msgs []model.Message, loc *time.Location) BestTime {
	if loc == nil {
		loc = time.UTC
	}
	var bt BestTime
	for _, m := range msgs {
		if m.Direction != model.Inbound {
			continue
		}
		t := m.CreatedAt.In(loc)
		bt.HourHistogram[t.Hour()]++
		bt.DayHistogram[t.Weekday()]++
		bt.ResponseCount++
	}

	if bt.ResponseCount < minBestTimeSamples {
		bt.Confidence = ConfidenceInsufficient
		bt.Message = insufficientNote
		return bt
	}

	bt.Sufficient = true
	bt.BestHour = argmax(bt.HourHistogram[:])
	bt.BestTime = HourLabel(bt.BestHour)
	bt.BestDay = time.Weekday(argmax(bt.DayHistogram[:])).String()
	bt.Confidence = confidenceFor(bt.ResponseCount)
	return bt
}

func argmax(buckets []int) int {
	best := 0
	for i, n := range buckets {
		if n > buckets[best] {
			best = i
		}
	}
	return best
}

func confidenceFor(n int) string {
	switch {
	case n >= 10:
		return ConfidenceHigh
	case n >= 5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// HourLabel formats an hour of day as "3:00 PM".
func HourLabel(hour int) string {
	switch {
	case hour == 0:
		return "12:00 AM"
	case hour < 12:
		return fmt.Sprintf("%d:00 AM", hour)
	case hour == 12:
		return "12:00 PM"
	default:
		return fmt.Sprintf("%d:00 PM", hour-12)
	}
}
