package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	appErrors "github.com/unclebandit/partnerline/internal/errors"
	"github.com/unclebandit/partnerline/internal/model"
	"github.com/unclebandit/partnerline/internal/notify"
	"github.com/unclebandit/partnerline/internal/queue"
	"github.com/unclebandit/partnerline/internal/repository"
)

const autoCreatedNote = "Auto-created from incoming message"

// InboundMessage is a provider-neutral inbound SMS/MMS.
type InboundMessage struct {
	From  string
	Body  string
	Media *model.Media
}

type InboundResult struct {
	PartnerID      int64 `json:"partner_id"`
	MessageID      int64 `json:"message_id"`
	PartnerCreated bool  `json:"partner_created"`
	OptedOut       bool  `json:"opted_out"`
}

// Conversation is one partner's message history.
type Conversation struct {
	Partner  *model.Partner  `json:"partner"`
	Messages []model.Message `json:"messages"`
}

// InboundService records what partners send us and what the provider reports back.
type InboundService struct {
	Partners repository.PartnerRepositoryInterface
	Messages repository.MessageRepositoryInterface
	Gate     ComplianceGate
	Queue    queue.Queue
	Now      func() time.Time
	Log      zerolog.Logger
}

func (s *InboundService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now()
}

// HandleInbound stores an inbound message, creating the partner for an unknown
// number, applies opt-out keywords and publishes a message.inbound event.
func (s *InboundService) HandleInbound(ctx context.Context, in InboundMessage) (InboundResult, error) {
	from := strings.TrimSpace(in.From)
	if from == "" {
		return InboundResult{}, appErrors.InvalidInput("sender phone is required")
	}

	var res InboundResult
	p, err := s.Partners.GetByPhone(ctx, from)
	if err != nil {
		return res, err
	}
	if p == nil {
		p = &model.Partner{FirstName: from, Phone: from, Notes: autoCreatedNote, CreatedAt: s.now()}
		if err := s.Partners.Create(ctx, p); err != nil {
			return res, err
		}
		res.PartnerCreated = true
		s.Log.Info().Int64("partner_id", p.ID).Msg("created partner for unknown sender")
	}
	res.PartnerID = p.ID

	if s.Gate.IsOptOut(in.Body) {
		if err := s.Partners.SetOptedOut(ctx, p.ID, true); err != nil {
			return res, err
		}
		p.OptedOut = true
		res.OptedOut = true
		s.Log.Info().Int64("partner_id", p.ID).Msg("partner opted out")
	}

	msg := &model.Message{
		PartnerID: p.ID,
		Direction: model.Inbound,
		Body:      in.Body,
		Status:    model.MessageStatusReceived,
		CreatedAt: s.now(),
	}
	if in.Media != nil {
		msg.MediaURL, msg.MediaType = in.Media.URL, in.Media.Type
	}
	if err := s.Messages.Append(ctx, msg); err != nil {
		return res, err
	}
	res.MessageID = msg.ID

	if s.Queue != nil {
		alert := notify.Alert{
			PartnerID:   p.ID,
			PartnerName: p.FullName(),
			Phone:       p.Phone,
			Body:        msg.Body,
			MediaURL:    msg.MediaURL,
			ReceivedAt:  msg.CreatedAt,
		}
		if err := s.Queue.Publish(ctx, queue.TopicMessageInbound, alert); err != nil {
			s.Log.Warn().Err(err).Int64("message_id", msg.ID).Msg("publish inbound event")
		}
	}
	return res, nil
}

// ApplyStatus overwrites the status of the message the provider knows as
// transportID. Unknown ids are ignored.
func (s *InboundService) ApplyStatus(ctx context.Context, transportID, status string) (bool, error) {
	transportID, status = strings.TrimSpace(transportID), strings.TrimSpace(status)
	if transportID == "" || status == "" {
		return false, nil
	}
	return s.Messages.UpdateStatusByTransportID(ctx, transportID, status)
}

// Conversation returns the partner's messages oldest first and marks inbound ones read.
func (s *InboundService) Conversation(ctx context.Context, partnerID int64) (*Conversation, error) {
	p, err := s.Partners.GetByID(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, appErrors.NewPartnerNotFound(partnerID)
	}
	if _, err := s.Messages.MarkRead(ctx, partnerID); err != nil {
		return nil, err
	}
	msgs, err := s.Messages.ListByPartner(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	return &Conversation{Partner: p, Messages: msgs}, nil
}
