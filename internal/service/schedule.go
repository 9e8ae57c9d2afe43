package service

import (
	"context"
	"strings"
	"time"

	appErrors "github.com/unclebandit/partnerline/internal/errors"
	"github.com/unclebandit/partnerline/internal/model"
	"github.com/unclebandit/partnerline/internal/repository"
)

type ScheduleRequest struct {
	PartnerIDs    []int64
	Template      string
	ScheduledTime time.Time
	Media         *model.Media
}

// ScheduledView is a pending batch as listed to the operator.
type ScheduledView struct {
	model.ScheduledMessage
	PartnerCount int `json:"partner_count"`
}

type ScheduleService struct {
	Scheduled repository.ScheduledMessageRepositoryInterface
}

// UniquePartnerIDs drops non-positive and repeated ids, keeping first-seen order.
func UniquePartnerIDs(in []int64) []int64 {
	seen := make(map[int64]bool, len(in))
	ids := make([]int64, 0, len(in))
	for _, id := range in {
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// Schedule freezes the target list and stores the batch as pending. Duplicate
// ids are dropped; a time in the past fires on the next scheduler tick.
func (s *ScheduleService) Schedule(ctx context.Context, req ScheduleRequest) (*model.ScheduledMessage, error) {
	if strings.TrimSpace(req.Template) == "" {
		return nil, appErrors.InvalidInput("message cannot be empty")
	}
	if req.ScheduledTime.IsZero() {
		return nil, appErrors.InvalidInput("scheduled_time is required")
	}

	ids := UniquePartnerIDs(req.PartnerIDs)
	if len(ids) == 0 {
		return nil, appErrors.InvalidInput("at least one partner is required")
	}

	sm := &model.ScheduledMessage{
		Template:      req.Template,
		PartnerIDs:    ids,
		ScheduledTime: req.ScheduledTime.UTC(),
		Status:        model.ScheduledPending,
	}
	if req.Media != nil {
		sm.MediaURL, sm.MediaType = req.Media.URL, req.Media.Type
	}
	if err := s.Scheduled.Create(ctx, sm); err != nil {
		return nil, err
	}
	return sm, nil
}

func (s *ScheduleService) ListPending(ctx context.Context) ([]ScheduledView, error) {
	pending, err := s.Scheduled.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]ScheduledView, 0, len(pending))
	for _, sm := range pending {
		views = append(views, ScheduledView{ScheduledMessage: sm, PartnerCount: len(sm.PartnerIDs)})
	}
	return views, nil
}

// Cancel succeeds only while the batch is pending.
func (s *ScheduleService) Cancel(ctx context.Context, id int64) error {
	return s.Scheduled.Cancel(ctx, id)
}
