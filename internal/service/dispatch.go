package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/unclebandit/partnerline/internal/model"
	"github.com/unclebandit/partnerline/internal/repository"
	"github.com/unclebandit/partnerline/internal/transport"
)

type SendKind string

const (
	SendSent     SendKind = "sent"
	SendOptedOut SendKind = "opted_out"
	SendFailed   SendKind = "failed"
	SendNotFound SendKind = "not_found"
)

// SendResult is the outcome for one partner.
type SendResult struct {
	PartnerID   int64    `json:"partner_id"`
	Kind        SendKind `json:"result"`
	MessageID   int64    `json:"message_id,omitempty"`
	TransportID string   `json:"transport_id,omitempty"`
	Status      string   `json:"status,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// BatchOutcome reports one scheduled batch processed by RunDueBatches.
type BatchOutcome struct {
	ScheduledID int64        `json:"scheduled_id"`
	Results     []SendResult `json:"results"`
	Marked      bool         `json:"marked"`
}

type BatchReport struct {
	Batches []BatchOutcome `json:"batches"`
}

// Counts tallies result kinds across every batch.
func (r BatchReport) Counts() map[SendKind]int {
	out := map[SendKind]int{}
	for _, b := range r.Batches {
		for _, res := range b.Results {
			out[res.Kind]++
		}
	}
	return out
}

// DispatchPipeline sends rendered messages through the compliance gate and the transport.
type DispatchPipeline struct {
	Partners  repository.PartnerRepositoryInterface
	Messages  repository.MessageRepositoryInterface
	Scheduled repository.ScheduledMessageRepositoryInterface
	Sender    transport.Sender
	Gate      ComplianceGate
	Limiter   *rate.Limiter
	LeaseTTL  time.Duration
	Now       func() time.Time
	Log       zerolog.Logger
}

// NewDispatchPipeline paces transport calls at ratePerSec; zero or less means unlimited.
func NewDispatchPipeline(
	partners repository.PartnerRepositoryInterface,
	messages repository.MessageRepositoryInterface,
	scheduled repository.ScheduledMessageRepositoryInterface,
	sender transport.Sender,
	ratePerSec float64,
	leaseTTL time.Duration,
	log zerolog.Logger,
) *DispatchPipeline {
	limit := rate.Inf
	if ratePerSec > 0 {
		limit = rate.Limit(ratePerSec)
	}
	return &DispatchPipeline{
		Partners:  partners,
		Messages:  messages,
		Scheduled: scheduled,
		Sender:    sender,
		Limiter:   rate.NewLimiter(limit, 1),
		LeaseTTL:  leaseTTL,
		Now:       func() time.Time { return time.Now().UTC() },
		Log:       log.With().Str("component", "dispatch").Logger(),
	}
}

func (d *DispatchPipeline) now() time.Time {
	if d.Now == nil {
		return time.Now().UTC()
	}
	return d.Now()
}

// SendSingle renders template for one partner and sends it. The pacing wait
// comes first and the partner row is re-read after it, so an opt-out that
// lands while the send is queued is honoured.
func (d *DispatchPipeline) SendSingle(ctx context.Context, partnerID int64, template string, media *model.Media) SendResult {
	res := SendResult{PartnerID: partnerID}
	log := d.Log.With().Int64("partner_id", partnerID).Logger()

	if d.Limiter != nil {
		if err := d.Limiter.Wait(ctx); err != nil {
			res.Kind, res.Error = SendFailed, err.Error()
			return res
		}
	}

	p, err := d.Partners.GetByID(ctx, partnerID)
	if err != nil {
		log.Error().Err(err).Msg("load partner")
		res.Kind, res.Error = SendFailed, err.Error()
		return res
	}
	if p == nil {
		res.Kind, res.Error = SendNotFound, "partner not found"
		return res
	}
	if dec := d.Gate.Admit(p); dec.Denied() {
		log.Info().Str("reason", dec.Reason).Msg("send blocked")
		res.Kind = SendOptedOut
		return res
	}

	body := Render(template, p)
	var mediaURLs []string
	msg := &model.Message{PartnerID: p.ID, Direction: model.Outbound, Body: body}
	if media != nil && media.URL != "" {
		mediaURLs = []string{media.URL}
		msg.MediaURL, msg.MediaType = media.URL, media.Type
	}

	receipt, sendErr := d.Sender.Send(ctx, p.Phone, body, mediaURLs)
	msg.CreatedAt = d.now()
	if sendErr != nil {
		log.Warn().Err(sendErr).Msg("transport failed")
		msg.Status = model.MessageStatusFailed
		res.Kind, res.Status, res.Error = SendFailed, model.MessageStatusFailed, sendErr.Error()
	} else {
		msg.Status, msg.TransportID = receipt.Status, receipt.ID
		res.Kind, res.Status, res.TransportID = SendSent, receipt.Status, receipt.ID
	}

	if err := d.Messages.Append(ctx, msg); err != nil {
		log.Error().Err(err).Str("transport_id", msg.TransportID).Msg("append message")
		if res.Error == "" {
			res.Error = err.Error()
		}
	} else {
		res.MessageID = msg.ID
	}

	if sendErr == nil {
		if err := d.Partners.TouchLastContacted(ctx, p.ID, msg.CreatedAt); err != nil {
			log.Error().Err(err).Msg("update last_contacted")
		}
	}
	return res
}

// SendBroadcast sends to every distinct partner in order. No single outcome
// stops the loop, but a cancelled ctx fails every send still waiting on the limiter.
func (d *DispatchPipeline) SendBroadcast(ctx context.Context, partnerIDs []int64, template string, media *model.Media) []SendResult {
	ids := UniquePartnerIDs(partnerIDs)
	results := make([]SendResult, 0, len(ids))
	for _, id := range ids {
		results = append(results, d.SendSingle(ctx, id, template, media))
	}
	return results
}

// RunDueBatches claims every due batch, sends it, and marks it sent whatever
// the per-partner outcomes were. The lease is renewed before each partner; a
// run that finds its lease taken over stops and leaves the batch to the new
// holder. A batch whose holder died is sent again in full once the lease
// expires, so a crash between claim and mark can duplicate messages.
func (d *DispatchPipeline) RunDueBatches(ctx context.Context, now time.Time) (BatchReport, error) {
	report := BatchReport{Batches: []BatchOutcome{}}
	started := d.now()

	claimed, err := d.Scheduled.ClaimDue(ctx, now, d.LeaseTTL)
	if err != nil && len(claimed) == 0 {
		return report, err
	}

	for _, s := range claimed {
		log := d.Log.With().Int64("scheduled_id", s.ID).Int("targets", len(s.PartnerIDs)).Logger()
		log.Info().Time("scheduled_time", s.ScheduledTime).Msg("sending scheduled batch")

		out := BatchOutcome{ScheduledID: s.ID, Results: []SendResult{}}
		lease := now
		if s.ClaimedAt != nil {
			lease = *s.ClaimedAt
		}

		held := true
		for _, id := range UniquePartnerIDs(s.PartnerIDs) {
			beat := now.Add(d.now().Sub(started))
			ok, hbErr := d.Scheduled.Heartbeat(ctx, s.ID, lease, beat)
			if hbErr != nil {
				log.Error().Err(hbErr).Msg("renew batch lease")
			}
			if !ok {
				log.Warn().Int("sent", len(out.Results)).Msg("batch lease lost, stopping")
				held = false
				break
			}
			lease = beat
			out.Results = append(out.Results, d.SendSingle(ctx, id, s.Template, s.Media()))
		}

		if held {
			marked, markErr := d.Scheduled.MarkSent(ctx, s.ID, lease)
			switch {
			case markErr != nil:
				log.Error().Err(markErr).Msg("mark batch sent")
			case !marked:
				log.Warn().Msg("batch left processing before it was marked sent")
			}
			out.Marked = marked
		}
		report.Batches = append(report.Batches, out)
	}
	return report, err
}
