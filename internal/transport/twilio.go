package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// Twilio sends through the Twilio Messages REST resource.
type Twilio struct {
	From           string
	StatusCallback string

	messages messageCreator
}

func NewTwilio(accountSID, authToken, from, statusCallback string) *Twilio {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &Twilio{From: from, StatusCallback: statusCallback, messages: client.Api}
}

func (t *Twilio) Send(ctx context.Context, to, body string, mediaURLs []string) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.From)
	params.SetBody(body)
	var media []string
	for _, m := range mediaURLs {
		if strings.TrimSpace(m) != "" {
			media = append(media, m)
		}
	}
	if len(media) > 0 {
		params.SetMediaUrl(media)
	}
	if t.StatusCallback != "" {
		params.SetStatusCallback(t.StatusCallback)
	}

	resp, err := t.messages.CreateMessage(params)
	if err != nil {
		var rest *twclient.TwilioRestError
		if errors.As(err, &rest) {
			return Receipt{}, fmt.Errorf("twilio rejected message (%d, code %d): %s", rest.Status, rest.Code, rest.Message)
		}
		return Receipt{}, fmt.Errorf("send via twilio: %w", err)
	}
	if resp == nil || resp.Sid == nil || *resp.Sid == "" {
		return Receipt{}, fmt.Errorf("twilio response missing sid")
	}
	status := "queued"
	if resp.Status != nil && *resp.Status != "" {
		status = *resp.Status
	}
	return Receipt{ID: *resp.Sid, Status: status}, nil
}

var _ Sender = (*Twilio)(nil)
