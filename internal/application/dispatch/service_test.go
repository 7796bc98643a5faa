package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otp-relay/internal/domain"
	"github.com/otp-relay/internal/infrastructure/telegram"
	"github.com/otp-relay/internal/pkg/country"
)

type fakeSender struct {
	sent    []telegram.SendMessageParams
	failFor map[int64]error
	nextID  int64
}

func (f *fakeSender) SendMessage(_ context.Context, p telegram.SendMessageParams) (*telegram.Message, error) {
	if err, ok := f.failFor[p.ChatID]; ok {
		return nil, err
	}
	f.sent = append(f.sent, p)
	f.nextID++
	return &telegram.Message{MessageID: f.nextID}, nil
}

type fakeDocs struct {
	groups *domain.GroupSet
	err    error
}

func (f *fakeDocs) Load(_ context.Context, name string, v interface{}) error {
	if f.err != nil {
		return f.err
	}
	if name == domain.TableGroups && f.groups != nil {
		*(v.(*domain.GroupSet)) = *f.groups
		return nil
	}
	return domain.ErrNotFound
}

type fakeSubs struct {
	requests []domain.SubscriberRequest
	err      error
}

func (f *fakeSubs) List(_ context.Context) ([]domain.SubscriberRequest, error) {
	return f.requests, f.err
}

type fakeDeliveries struct {
	records []domain.DeliveryRecord
	err     error
}

func (f *fakeDeliveries) Put(_ context.Context, d *domain.DeliveryRecord) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, *d)
	return nil
}

func record() *domain.OTPRecord {
	return &domain.OTPRecord{
		RecordID:   "01J0TEST",
		Phone:      "628111222333",
		Message:    "Your WhatsApp code is 552-910",
		Service:    "WhatsApp",
		Country:    "Indonesia",
		OTP:        "552-910",
		ReceivedAt: time.Now().UTC(),
	}
}

func newTestService(sender *fakeSender, docs *fakeDocs, subs *fakeSubs, dels *fakeDeliveries) *Service {
	return NewService(sender, docs, subs, dels, country.Default(), Links{
		Owner:   "https://t.me/owner",
		Channel: "https://t.me/channel",
		Bot:     "https://t.me/relaybot",
	})
}

func TestBroadcast_GroupsAndMatchingSubscribers(t *testing.T) {
	sender := &fakeSender{}
	docs := &fakeDocs{groups: &domain.GroupSet{Groups: []int64{-100111, -100222}}}
	subs := &fakeSubs{requests: []domain.SubscriberRequest{
		{UserID: 500, Numbers: []string{"628111222333"}},
		{UserID: 501, Numbers: []string{"15550001111"}},
	}}
	dels := &fakeDeliveries{}

	res := newTestService(sender, docs, subs, dels).Broadcast(context.Background(), record())

	assert.Equal(t, 2, res.GroupsDelivered)
	assert.Equal(t, 1, res.UsersDelivered)
	assert.Zero(t, res.GroupsFailed)
	assert.Zero(t, res.UsersFailed)
	require.Len(t, sender.sent, 3)

	// Groups see a masked number, never the raw one or the body.
	groupText := sender.sent[0].Text
	assert.NotContains(t, groupText, "628111222333")
	assert.Contains(t, groupText, "6281•⁕⁕•2333")
	assert.NotContains(t, groupText, "552-910")
	assert.Contains(t, groupText, "#Indonesia")
	assert.Contains(t, groupText, "#WS")

	// The matching subscriber gets the full number and message body.
	userText := sender.sent[2].Text
	assert.Equal(t, int64(500), sender.sent[2].ChatID)
	assert.Contains(t, userText, "+628111222333")
	assert.Contains(t, userText, "Your WhatsApp code is 552-910")

	// One delivery record per group message, for the autodelete sweeper.
	require.Len(t, dels.records, 2)
	assert.Equal(t, int64(-100111), dels.records[0].ChatID)
	assert.Equal(t, int64(-100222), dels.records[1].ChatID)
}

func TestBroadcast_CopyButtonCarriesCode(t *testing.T) {
	sender := &fakeSender{}
	docs := &fakeDocs{groups: &domain.GroupSet{Groups: []int64{-100111}}}
	svc := newTestService(sender, docs, &fakeSubs{}, &fakeDeliveries{})

	svc.Broadcast(context.Background(), record())

	require.Len(t, sender.sent, 1)
	markup := sender.sent[0].ReplyMarkup
	require.NotNil(t, markup)
	require.NotEmpty(t, markup.InlineKeyboard)
	btn := markup.InlineKeyboard[0][0]
	assert.Equal(t, "552-910", btn.Text)
	require.NotNil(t, btn.CopyText)
	assert.Equal(t, "552-910", btn.CopyText.Text)
}

func TestBroadcast_NoCopyButtonWhenNoCode(t *testing.T) {
	sender := &fakeSender{}
	docs := &fakeDocs{groups: &domain.GroupSet{Groups: []int64{-100111}}}
	svc := newTestService(sender, docs, &fakeSubs{}, &fakeDeliveries{})

	rec := record()
	rec.OTP = domain.OTPNotFound
	svc.Broadcast(context.Background(), rec)

	require.Len(t, sender.sent, 1)
	assert.Nil(t, sender.sent[0].ReplyMarkup)
}

func TestBroadcast_OneFailureDoesNotAbortRest(t *testing.T) {
	sender := &fakeSender{failFor: map[int64]error{
		-100111: errors.New("telegram: Forbidden: bot was kicked"),
		500:     errors.New("telegram: Forbidden: user blocked the bot"),
	}}
	docs := &fakeDocs{groups: &domain.GroupSet{Groups: []int64{-100111, -100222}}}
	subs := &fakeSubs{requests: []domain.SubscriberRequest{
		{UserID: 500, Numbers: []string{"628111222333"}},
		{UserID: 501, Numbers: []string{"628111222333"}},
	}}

	res := newTestService(sender, docs, subs, &fakeDeliveries{}).Broadcast(context.Background(), record())

	assert.Equal(t, 1, res.GroupsDelivered)
	assert.Equal(t, 1, res.GroupsFailed)
	assert.Equal(t, 1, res.UsersDelivered)
	assert.Equal(t, 1, res.UsersFailed)
}

func TestBroadcast_NoGroupsRegistered(t *testing.T) {
	sender := &fakeSender{}
	res := newTestService(sender, &fakeDocs{}, &fakeSubs{}, &fakeDeliveries{}).Broadcast(context.Background(), record())
	assert.Zero(t, res.GroupsDelivered)
	assert.Empty(t, sender.sent)
}

func TestBroadcast_UnknownCountryUsesGlobePlaceholder(t *testing.T) {
	sender := &fakeSender{}
	docs := &fakeDocs{groups: &domain.GroupSet{Groups: []int64{-100111}}}
	svc := newTestService(sender, docs, &fakeSubs{}, &fakeDeliveries{})

	rec := record()
	rec.Phone = "9990000111222"
	rec.Country = "Unknown"
	svc.Broadcast(context.Background(), rec)

	require.Len(t, sender.sent, 1)
	assert.True(t, strings.Contains(sender.sent[0].Text, "🌐"))
}
