package transport

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

type fakeMessages struct {
	params *openapi.CreateMessageParams
	resp   *openapi.ApiV2010Message
	err    error
}

func (f *fakeMessages) CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error) {
	f.params = params
	return f.resp, f.err
}

func strPtr(s string) *string { return &s }

func TestTwilioSend(t *testing.T) {
	fake := &fakeMessages{resp: &openapi.ApiV2010Message{Sid: strPtr("SM42"), Status: strPtr("queued")}}
	tw := NewTwilio("AC1", "secret", "+15559990000", "https://hooks.example/status")
	tw.messages = fake

	r, err := tw.Send(context.Background(), "+15550001111", "hello", []string{"https://cdn.example/a.jpg", ""})
	require.NoError(t, err)
	assert.Equal(t, Receipt{ID: "SM42", Status: "queued"}, r)

	require.NotNil(t, fake.params)
	assert.Equal(t, "+15550001111", *fake.params.To)
	assert.Equal(t, "+15559990000", *fake.params.From)
	assert.Equal(t, "hello", *fake.params.Body)
	require.NotNil(t, fake.params.MediaUrl)
	assert.Equal(t, []string{"https://cdn.example/a.jpg"}, *fake.params.MediaUrl)
	assert.Equal(t, "https://hooks.example/status", *fake.params.StatusCallback)
}

func TestTwilioSendDefaultsStatusAndOmitsEmptyOptions(t *testing.T) {
	fake := &fakeMessages{resp: &openapi.ApiV2010Message{Sid: strPtr("SM7")}}
	tw := NewTwilio("AC1", "secret", "+1", "")
	tw.messages = fake

	r, err := tw.Send(context.Background(), "+2", "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "queued", r.Status)
	assert.Nil(t, fake.params.MediaUrl)
	assert.Nil(t, fake.params.StatusCallback)
}

func TestTwilioSendRejected(t *testing.T) {
	fake := &fakeMessages{err: &twclient.TwilioRestError{Code: 21211, Message: "Invalid 'To' Phone Number", Status: 400}}
	tw := NewTwilio("AC1", "secret", "+1", "")
	tw.messages = fake

	_, err := tw.Send(context.Background(), "bogus", "hello", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "21211")
}

func TestTwilioSendMissingSid(t *testing.T) {
	tw := NewTwilio("AC1", "secret", "+1", "")
	tw.messages = &fakeMessages{resp: &openapi.ApiV2010Message{}}

	_, err := tw.Send(context.Background(), "+2", "hello", nil)
	assert.Error(t, err)
}

func TestMock(t *testing.T) {
	m := NewMock()
	m.FailFor("+2")

	r, err := m.Send(context.Background(), "+1", "a", nil)
	require.NoError(t, err)
	assert.Equal(t, "MOCK-1", r.ID)

	_, err = m.Send(context.Background(), "+2", "b", nil)
	assert.True(t, errors.Is(err, ErrMockFailure))

	r, err = m.Send(context.Background(), "+3", "c", []string{"u"})
	require.NoError(t, err)
	assert.Equal(t, "MOCK-2", r.ID)

	sent := m.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "+3", sent[1].To)
	assert.Equal(t, []string{"u"}, sent[1].MediaURLs)
}
