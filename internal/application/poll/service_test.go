package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otp-relay/internal/application/dispatch"
	"github.com/otp-relay/internal/domain"
	"github.com/otp-relay/internal/infrastructure/provider"
	"github.com/otp-relay/internal/pkg/country"
)

type fakeFetcher struct {
	messages []provider.Message
	err      error
	calls    int
}

func (f *fakeFetcher) FetchRecent(context.Context) ([]provider.Message, error) {
	f.calls++
	return f.messages, f.err
}

type fakeLedger struct {
	seen map[string]bool
}

func (f *fakeLedger) CheckAndRecord(_ context.Context, phone, ts string) bool {
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	key := phone + "_" + ts
	if f.seen[key] {
		return true
	}
	f.seen[key] = true
	return false
}

type fakeDispatcher struct {
	records []*domain.OTPRecord
}

func (f *fakeDispatcher) Broadcast(_ context.Context, rec *domain.OTPRecord) dispatch.Result {
	f.records = append(f.records, rec)
	return dispatch.Result{GroupsDelivered: 1}
}

type fakeOTPStore struct {
	records []*domain.OTPRecord
	err     error
}

func (f *fakeOTPStore) Put(_ context.Context, rec *domain.OTPRecord) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

type fakeStats struct {
	records []*domain.OTPRecord
	err     error
}

func (f *fakeStats) Record(_ context.Context, rec *domain.OTPRecord) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

func whatsappRow() provider.Message {
	return provider.Message{
		Phone:    "628111222333",
		Datetime: "2026-08-29T09:00:00.000Z",
		SenderID: "WhatsApp",
		Message:  "Your WhatsApp code is 552-910",
	}
}

func newTestPoller(f *fakeFetcher, store *fakeOTPStore, disp *fakeDispatcher, stats *fakeStats) *Poller {
	p := NewPoller(f, &fakeLedger{}, disp, store, stats, country.Default(), 10*time.Second, 30*time.Second)
	p.now = func() time.Time { return time.Date(2026, 8, 29, 9, 0, 5, 0, time.UTC) }
	return p
}

func TestCycle_ExtractsAndDispatchesNewestRow(t *testing.T) {
	fetcher := &fakeFetcher{messages: []provider.Message{whatsappRow()}}
	store := &fakeOTPStore{}
	disp := &fakeDispatcher{}
	stats := &fakeStats{}

	err := newTestPoller(fetcher, store, disp, stats).Cycle(context.Background())
	require.NoError(t, err)

	require.Len(t, store.records, 1)
	rec := store.records[0]
	assert.NotEmpty(t, rec.RecordID)
	assert.Equal(t, "628111222333", rec.Phone)
	assert.Equal(t, "552-910", rec.OTP)
	assert.Equal(t, "Indonesia", rec.Country)
	assert.Equal(t, "WhatsApp", rec.Service)
	assert.Equal(t, "2026-08-29", rec.Day)
	assert.Equal(t, rec.ReceivedAt.Add(24*time.Hour).Unix(), rec.ExpiresAt)

	require.Len(t, disp.records, 1)
	assert.Same(t, rec, disp.records[0])
	require.Len(t, stats.records, 1)
}

func TestCycle_SameRowTwiceDispatchesOnce(t *testing.T) {
	fetcher := &fakeFetcher{messages: []provider.Message{whatsappRow()}}
	store := &fakeOTPStore{}
	disp := &fakeDispatcher{}
	p := newTestPoller(fetcher, store, disp, &fakeStats{})

	require.NoError(t, p.Cycle(context.Background()))
	require.NoError(t, p.Cycle(context.Background()))

	assert.Len(t, store.records, 1)
	assert.Len(t, disp.records, 1)
}

func TestCycle_LedgerCatchesRepeatAfterRestart(t *testing.T) {
	fetcher := &fakeFetcher{messages: []provider.Message{whatsappRow()}}
	store := &fakeOTPStore{}
	disp := &fakeDispatcher{}
	ledger := &fakeLedger{}

	first := NewPoller(fetcher, ledger, disp, store, &fakeStats{}, country.Default(), time.Second, time.Second)
	require.NoError(t, first.Cycle(context.Background()))

	// A restarted poller loses lastSeenID but shares the durable ledger.
	second := NewPoller(fetcher, ledger, disp, store, &fakeStats{}, country.Default(), time.Second, time.Second)
	require.NoError(t, second.Cycle(context.Background()))

	assert.Len(t, store.records, 1)
	assert.Len(t, disp.records, 1)
}

func TestCycle_OnlyNewestRowIsConsidered(t *testing.T) {
	older := whatsappRow()
	older.Datetime = "2026-08-29T08:00:00.000Z"
	older.Message = "Your Telegram code: 77777"
	fetcher := &fakeFetcher{messages: []provider.Message{whatsappRow(), older}}
	store := &fakeOTPStore{}
	disp := &fakeDispatcher{}

	require.NoError(t, newTestPoller(fetcher, store, disp, &fakeStats{}).Cycle(context.Background()))

	require.Len(t, store.records, 1)
	assert.Equal(t, "552-910", store.records[0].OTP)
	assert.Len(t, disp.records, 1)
}

func TestCycle_UnknownPrefixStoredAsUnknown(t *testing.T) {
	row := whatsappRow()
	row.Phone = "9990001112223"
	fetcher := &fakeFetcher{messages: []provider.Message{row}}
	store := &fakeOTPStore{}

	require.NoError(t, newTestPoller(fetcher, store, &fakeDispatcher{}, &fakeStats{}).Cycle(context.Background()))

	require.Len(t, store.records, 1)
	assert.Equal(t, "Unknown", store.records[0].Country)
}

func TestCycle_NoCodeStillDispatchedWithSentinel(t *testing.T) {
	row := whatsappRow()
	row.Message = "Thank you for your order"
	fetcher := &fakeFetcher{messages: []provider.Message{row}}
	store := &fakeOTPStore{}
	disp := &fakeDispatcher{}

	require.NoError(t, newTestPoller(fetcher, store, disp, &fakeStats{}).Cycle(context.Background()))

	require.Len(t, store.records, 1)
	assert.Equal(t, domain.OTPNotFound, store.records[0].OTP)
	assert.Len(t, disp.records, 1)
}

func TestCycle_FetchErrorPropagates(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("provider unreachable")}
	err := newTestPoller(fetcher, &fakeOTPStore{}, &fakeDispatcher{}, &fakeStats{}).Cycle(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch recent")
}

func TestCycle_PersistFailureSkipsDispatch(t *testing.T) {
	fetcher := &fakeFetcher{messages: []provider.Message{whatsappRow()}}
	store := &fakeOTPStore{err: errors.New("dynamo down")}
	disp := &fakeDispatcher{}

	err := newTestPoller(fetcher, store, disp, &fakeStats{}).Cycle(context.Background())
	require.Error(t, err)
	assert.Empty(t, disp.records)
}

func TestCycle_StatsFailureDoesNotBlockDispatch(t *testing.T) {
	fetcher := &fakeFetcher{messages: []provider.Message{whatsappRow()}}
	disp := &fakeDispatcher{}

	err := newTestPoller(fetcher, &fakeOTPStore{}, disp, &fakeStats{err: errors.New("doc write failed")}).Cycle(context.Background())
	require.NoError(t, err)
	assert.Len(t, disp.records, 1)
}

func TestCycle_EmptyFetchIsClean(t *testing.T) {
	fetcher := &fakeFetcher{}
	require.NoError(t, newTestPoller(fetcher, &fakeOTPStore{}, &fakeDispatcher{}, &fakeStats{}).Cycle(context.Background()))
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	fetcher := &fakeFetcher{}
	p := NewPoller(fetcher, &fakeLedger{}, &fakeDispatcher{}, &fakeOTPStore{}, &fakeStats{}, country.Default(), 5*time.Millisecond, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancel")
	}
	assert.GreaterOrEqual(t, fetcher.calls, 1)
}
