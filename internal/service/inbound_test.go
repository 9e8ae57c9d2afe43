package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/partnerline/internal/errors"
	"github.com/unclebandit/partnerline/internal/logx"
	"github.com/unclebandit/partnerline/internal/model"
	"github.com/unclebandit/partnerline/internal/notify"
	"github.com/unclebandit/partnerline/internal/queue"
	"github.com/unclebandit/partnerline/internal/service"
)

func newInbound(f *fixture, q queue.Queue) *service.InboundService {
	return &service.InboundService{
		Partners: f.partners,
		Messages: f.messages,
		Queue:    q,
		Now:      f.pipeline.Now,
		Log:      logx.Nop(),
	}
}

func TestHandleInbound_UnknownSenderCreatesPartner(t *testing.T) {
	f := newFixture(t)
	q := &recordingQueue{}
	svc := newInbound(f, q)
	ctx := context.Background()

	res, err := svc.HandleInbound(ctx, service.InboundMessage{
		From:  " +15557770000 ",
		Body:  "who is this?",
		Media: &model.Media{URL: "https://media/1", Type: "image"},
	})
	require.NoError(t, err)
	assert.True(t, res.PartnerCreated)
	assert.False(t, res.OptedOut)

	p, err := f.partners.GetByPhone(ctx, "+15557770000")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "+15557770000", p.FirstName)
	assert.Equal(t, "Auto-created from incoming message", p.Notes)

	msgs, err := f.messages.ListByPartner(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, model.Inbound, msgs[0].Direction)
	assert.Equal(t, model.MessageStatusReceived, msgs[0].Status)
	assert.Equal(t, "image", msgs[0].MediaType)

	require.Len(t, q.published, 1)
	assert.Equal(t, queue.TopicMessageInbound, q.published[0].topic)
	alert, ok := q.published[0].payload.(notify.Alert)
	require.True(t, ok)
	assert.Equal(t, p.ID, alert.PartnerID)
	assert.Equal(t, "who is this?", alert.Body)
}

func TestHandleInbound_StopOptsOut(t *testing.T) {
	f := newFixture(t)
	svc := newInbound(f, &recordingQueue{})
	ctx := context.Background()
	p := f.partner(t, "Sam", "+15550001111")

	res, err := svc.HandleInbound(ctx, service.InboundMessage{From: p.Phone, Body: " STOP "})
	require.NoError(t, err)
	assert.True(t, res.OptedOut)
	assert.False(t, res.PartnerCreated)

	got, err := f.partners.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.OptedOut)
	assert.True(t, service.ComplianceGate{}.Admit(got).Denied())

	send := f.pipeline.SendSingle(ctx, p.ID, "Hi", nil)
	assert.Equal(t, service.SendOptedOut, send.Kind)

	// A later ordinary message does not opt the partner back in.
	_, err = svc.HandleInbound(ctx, service.InboundMessage{From: p.Phone, Body: "start"})
	require.NoError(t, err)
	got, err = f.partners.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.OptedOut)
}

func TestHandleInbound_PublishFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	svc := newInbound(f, &recordingQueue{err: errors.New("broker down")})

	res, err := svc.HandleInbound(context.Background(), service.InboundMessage{From: "+1", Body: "hi"})
	require.NoError(t, err)
	assert.NotZero(t, res.MessageID)
}

func TestHandleInbound_RequiresSender(t *testing.T) {
	f := newFixture(t)
	svc := newInbound(f, nil)
	_, err := svc.HandleInbound(context.Background(), service.InboundMessage{From: "  ", Body: "hi"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidInput)
}

func TestApplyStatus(t *testing.T) {
	f := newFixture(t)
	svc := newInbound(f, nil)
	ctx := context.Background()
	p := f.partner(t, "Sam", "+15550001111")

	res := f.pipeline.SendSingle(ctx, p.ID, "Hi", nil)
	require.Equal(t, service.SendSent, res.Kind)

	ok, err := svc.ApplyStatus(ctx, res.TransportID, "delivered")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.ApplyStatus(ctx, "", "delivered")
	require.NoError(t, err)
	assert.False(t, ok)

	msgs, err := f.messages.ListByPartner(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "delivered", msgs[0].Status)
}

func TestConversationMarksRead(t *testing.T) {
	f := newFixture(t)
	svc := newInbound(f, nil)
	ctx := context.Background()
	p := f.partner(t, "Sam", "+15550001111")

	_, err := svc.HandleInbound(ctx, service.InboundMessage{From: p.Phone, Body: "hello"})
	require.NoError(t, err)

	conv, err := svc.Conversation(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, conv.Partner.ID)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, model.MessageStatusRead, conv.Messages[0].Status)

	_, err = svc.Conversation(ctx, 4040)
	assert.True(t, appErrors.IsNotFound(err))
}
