// internal/model/scheduled_message.go
package model

import "time"

const (
	ScheduledPending    = "pending"
	ScheduledProcessing = "processing"
	ScheduledSent       = "sent"
	ScheduledCancelled  = "cancelled"
)

type ScheduledMessage struct {
	ID            int64      `db:"id" json:"id"`
	Template      string     `db:"template" json:"message"`
	PartnerIDs    []int64    `db:"partner_ids" json:"partner_ids"` // frozen at creation
	MediaURL      string     `db:"media_url" json:"media_url,omitempty"`
	MediaType     string     `db:"media_type" json:"media_type,omitempty"`
	ScheduledTime time.Time  `db:"scheduled_time" json:"scheduled_time"`
	Status        string     `db:"status" json:"status"`
	ClaimedAt     *time.Time `db:"claimed_at" json:"claimed_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// Media returns the attachment, or nil when the batch has none.
func (s *ScheduledMessage) Media() *Media {
	if s == nil || s.MediaURL == "" {
		return nil
	}
	return &Media{URL: s.MediaURL, Type: s.MediaType}
}
