// internal/model/message.go
package model

import (
	"strings"
	"time"
)

type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

// Statuses written by the core. Transport callbacks may overwrite with any provider value.
const (
	MessageStatusReceived = "received"
	MessageStatusRead     = "read"
	MessageStatusFailed   = "failed"
)

type Message struct {
	ID          int64     `db:"id" json:"id"`
	PartnerID   int64     `db:"partner_id" json:"partner_id"`
	Direction   Direction `db:"direction" json:"direction"`
	Body        string    `db:"body" json:"body"`
	MediaURL    string    `db:"media_url" json:"media_url,omitempty"`
	MediaType   string    `db:"media_type" json:"media_type,omitempty"`
	Status      string    `db:"status" json:"status"` // queued, sent, delivered, failed, received, read
	TransportID string    `db:"transport_id" json:"transport_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Media is an optional attachment reference for an outbound send.
type Media struct {
	URL  string `json:"media_url"`
	Type string `json:"media_type"`
}

// MediaTypeFromContentType maps a MIME type onto image, video or audio.
func MediaTypeFromContentType(contentType string) string {
	switch {
	case strings.Contains(contentType, "image"):
		return "image"
	case strings.Contains(contentType, "video"):
		return "video"
	case strings.Contains(contentType, "audio"):
		return "audio"
	}
	return ""
}
