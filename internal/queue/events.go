package queue

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/unclebandit/partnerline/internal/notify"
)

const TopicMessageInbound = "message.inbound"

// StartNotificationSubscriber turns message.inbound events into operator alerts.
// Notification failures are logged and dropped; they never trigger a redelivery.
func StartNotificationSubscriber(q Queue, n notify.Notifier, log zerolog.Logger) error {
	log = log.With().Str("component", "notifications").Logger()
	return q.Subscribe(TopicMessageInbound, func(ctx context.Context, env Envelope) error {
		var alert notify.Alert
		if err := env.Decode(&alert); err != nil {
			log.Warn().Err(err).Str("id", env.ID).Msg("dropping malformed inbound event")
			return nil
		}
		if err := n.Notify(ctx, alert); err != nil {
			log.Warn().Err(err).Int64("partner_id", alert.PartnerID).Msg("notification failed")
		}
		return nil
	})
}
