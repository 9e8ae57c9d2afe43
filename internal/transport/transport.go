// Package transport delivers SMS/MMS through a provider.
package transport

import "context"

// Receipt is what the provider reports for an accepted message.
type Receipt struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Sender sends one message. An error means the provider did not accept it.
type Sender interface {
	Send(ctx context.Context, to, body string, mediaURLs []string) (Receipt, error)
}
