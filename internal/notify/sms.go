package notify

import (
	"context"
	"fmt"

	"github.com/unclebandit/partnerline/internal/transport"
)

// SMS forwards a short alert to the operator's phone through the regular transport.
type SMS struct {
	Sender transport.Sender
	To     string
}

func (s *SMS) Notify(ctx context.Context, a Alert) error {
	body := fmt.Sprintf("Reply from %s: %s", a.PartnerName, Excerpt(a.Body, 100))
	if _, err := s.Sender.Send(ctx, s.To, body, nil); err != nil {
		return fmt.Errorf("send sms notification: %w", err)
	}
	return nil
}
