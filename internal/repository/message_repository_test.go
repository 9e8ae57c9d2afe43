package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/partnerline/internal/model"
	"github.com/unclebandit/partnerline/internal/repository"
)

func TestMessageRepository_ConversationOrder(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	partners := &repository.PartnerRepository{DB: conn}
	messages := &repository.MessageRepository{DB: conn}

	p := &model.Partner{FirstName: "Sam", Phone: "+15550001111"}
	require.NoError(t, partners.Create(ctx, p))

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	bodies := []string{"first", "second-same-ts", "third"}
	stamps := []time.Time{base, base, base.Add(time.Hour)}
	for i, body := range bodies {
		require.NoError(t, messages.Append(ctx, &model.Message{
			PartnerID: p.ID, Direction: model.Outbound, Body: body, Status: "sent", CreatedAt: stamps[i],
		}))
	}

	conv, err := messages.ListByPartner(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, conv, 3)
	assert.Equal(t, "first", conv[0].Body)
	assert.Equal(t, "second-same-ts", conv[1].Body)
	assert.Equal(t, "third", conv[2].Body)

	recent, err := messages.ListRecent(ctx, p.ID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "third", recent[0].Body)
	assert.Equal(t, "second-same-ts", recent[1].Body)
}

func TestMessageRepository_StatusAndRead(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	partners := &repository.PartnerRepository{DB: conn}
	messages := &repository.MessageRepository{DB: conn}

	p := &model.Partner{FirstName: "Sam", Phone: "+15550001111"}
	require.NoError(t, partners.Create(ctx, p))

	out := &model.Message{PartnerID: p.ID, Direction: model.Outbound, Body: "hi", Status: "queued", TransportID: "SM123"}
	require.NoError(t, messages.Append(ctx, out))
	in := &model.Message{PartnerID: p.ID, Direction: model.Inbound, Body: "hello", Status: model.MessageStatusReceived}
	require.NoError(t, messages.Append(ctx, in))

	ok, err := messages.UpdateStatusByTransportID(ctx, "SM123", "delivered")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = messages.UpdateStatusByTransportID(ctx, "SM-unknown", "delivered")
	require.NoError(t, err)
	assert.False(t, ok)

	unread, err := messages.CountUnread(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	n, err := messages.MarkRead(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	conv, err := messages.ListByPartner(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "delivered", conv[0].Status)
	assert.Equal(t, model.MessageStatusRead, conv[1].Status)

	inbound, err := messages.ListInbound(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, inbound, 1)
	assert.Equal(t, "hello", inbound[0].Body)
}

func TestMessageRepository_Counts(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	partners := &repository.PartnerRepository{DB: conn}
	messages := &repository.MessageRepository{DB: conn}

	a := &model.Partner{FirstName: "A", Phone: "+1"}
	b := &model.Partner{FirstName: "B", Phone: "+2"}
	require.NoError(t, partners.Create(ctx, a))
	require.NoError(t, partners.Create(ctx, b))

	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	old := since.Add(-time.Hour)
	for _, m := range []*model.Message{
		{PartnerID: a.ID, Direction: model.Outbound, CreatedAt: old},
		{PartnerID: a.ID, Direction: model.Outbound, CreatedAt: since},
		{PartnerID: b.ID, Direction: model.Outbound, CreatedAt: since.Add(time.Minute)},
		{PartnerID: a.ID, Direction: model.Inbound, CreatedAt: since.Add(time.Hour)},
	} {
		require.NoError(t, messages.Append(ctx, m))
	}

	all, err := messages.CountSince(ctx, since, "")
	require.NoError(t, err)
	assert.Equal(t, 3, all)
	out, err := messages.CountSince(ctx, since, model.Outbound)
	require.NoError(t, err)
	assert.Equal(t, 2, out)
	messaged, err := messages.CountPartnersSince(ctx, since, model.Outbound)
	require.NoError(t, err)
	assert.Equal(t, 2, messaged)
	replied, err := messages.CountPartnersSince(ctx, since, model.Inbound)
	require.NoError(t, err)
	assert.Equal(t, 1, replied)
}
