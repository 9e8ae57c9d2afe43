package controller_test

import (
	"context"

	"github.com/unclebandit/partnerline/internal/insight"
	"github.com/unclebandit/partnerline/internal/model"
	"github.com/unclebandit/partnerline/internal/service"
)

// --- Mock services ---

type MockDispatcher struct {
	single    func(id int64) service.SendResult
	template  string
	media     *model.Media
	broadcast []int64
}

func (m *MockDispatcher) SendSingle(_ context.Context, id int64, template string, media *model.Media) service.SendResult {
	m.template, m.media = template, media
	return m.single(id)
}

func (m *MockDispatcher) SendBroadcast(_ context.Context, ids []int64, template string, media *model.Media) []service.SendResult {
	m.broadcast, m.template, m.media = ids, template, media
	out := make([]service.SendResult, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.single(id))
	}
	return out
}

type MockConversations struct {
	conv *service.Conversation
	err  error
}

func (m *MockConversations) Conversation(context.Context, int64) (*service.Conversation, error) {
	return m.conv, m.err
}

type MockSchedules struct {
	req       service.ScheduleRequest
	createErr error
	pending   []service.ScheduledView
	cancelErr error
	cancelled int64
}

func (m *MockSchedules) Schedule(_ context.Context, req service.ScheduleRequest) (*model.ScheduledMessage, error) {
	m.req = req
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &model.ScheduledMessage{ID: 12, ScheduledTime: req.ScheduledTime, Status: model.ScheduledPending}, nil
}

func (m *MockSchedules) ListPending(context.Context) ([]service.ScheduledView, error) {
	return m.pending, nil
}

func (m *MockSchedules) Cancel(_ context.Context, id int64) error {
	m.cancelled = id
	return m.cancelErr
}

type MockInsights struct {
	err        error
	composeReq string
	composeFor int64
}

func (m *MockInsights) Stats(context.Context) (insight.Stats, error) {
	return insight.Stats{TotalPartners: 4, ResponseRate: 50}, m.err
}

func (m *MockInsights) BestTime(_ context.Context, id int64) (insight.BestTime, error) {
	return insight.BestTime{Sufficient: true, BestHour: 14, BestTime: "2:00 PM", BestDay: "Tuesday"}, m.err
}

func (m *MockInsights) Ghosts(context.Context) ([]insight.GhostCandidate, error) {
	return []insight.GhostCandidate{{PartnerID: 3, DaysWaiting: 4, Urgency: "medium"}}, m.err
}

func (m *MockInsights) NextActions(context.Context) (insight.NextActions, error) {
	return insight.NextActions{Recommendations: []insight.ActionRecommendation{{PartnerID: 1, Priority: "high"}}, FallbackUsed: true, PoolSize: 1}, m.err
}

func (m *MockInsights) Suggestions(context.Context, int64) (insight.Suggestions, error) {
	return insight.Suggestions{Suggestions: []string{"a", "b", "c"}}, m.err
}

func (m *MockInsights) Sentiment(context.Context, int64) (insight.SentimentResult, error) {
	return insight.SentimentResult{}, m.err
}

func (m *MockInsights) Summary(context.Context, int64) (string, error) {
	return "They want a demo.", m.err
}

func (m *MockInsights) Compose(_ context.Context, req string, id int64) (string, error) {
	m.composeReq, m.composeFor = req, id
	return "Hi {{first_name}}!", m.err
}
