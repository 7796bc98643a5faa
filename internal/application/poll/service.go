// Package poll drives the provider polling loop. Each cycle fetches the most
// recent delivery report, gates it through the duplicate ledger, extracts the
// one-time code and fans the result out.
package poll

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/otp-relay/internal/application/dispatch"
	"github.com/otp-relay/internal/domain"
	"github.com/otp-relay/internal/infrastructure/provider"
	"github.com/otp-relay/internal/pkg/country"
	"github.com/otp-relay/internal/pkg/id"
	"github.com/otp-relay/internal/pkg/otp"
)

// Fetcher pulls recent delivery reports from the SMS provider.
type Fetcher interface {
	FetchRecent(ctx context.Context) ([]provider.Message, error)
}

// Ledger is the durable duplicate gate.
type Ledger interface {
	CheckAndRecord(ctx context.Context, phone, timestamp string) bool
}

// Dispatcher fans a persisted record out to groups and subscribers.
type Dispatcher interface {
	Broadcast(ctx context.Context, rec *domain.OTPRecord) dispatch.Result
}

// OTPStore persists extracted records.
type OTPStore interface {
	Put(ctx context.Context, rec *domain.OTPRecord) error
}

// StatsRecorder rolls the record into the daily counters.
type StatsRecorder interface {
	Record(ctx context.Context, rec *domain.OTPRecord) error
}

const otpRetention = 24 * time.Hour

// Poller owns the polling loop. lastSeenID is a cheap in-memory gate in
// front of the durable ledger; it resets on restart, which is safe because
// the ledger catches anything it misses.
type Poller struct {
	fetcher    Fetcher
	ledger     Ledger
	dispatcher Dispatcher
	otps       OTPStore
	stats      StatsRecorder
	countries  *country.Table

	interval     time.Duration
	errorBackoff time.Duration

	lastSeenID string
	now        func() time.Time
}

func NewPoller(fetcher Fetcher, ledger Ledger, dispatcher Dispatcher, otps OTPStore, stats StatsRecorder, countries *country.Table, interval, errorBackoff time.Duration) *Poller {
	return &Poller{
		fetcher:      fetcher,
		ledger:       ledger,
		dispatcher:   dispatcher,
		otps:         otps,
		stats:        stats,
		countries:    countries,
		interval:     interval,
		errorBackoff: errorBackoff,
		now:          time.Now,
	}
}

// Run polls until ctx is cancelled. A failed cycle backs off longer than a
// clean one but never stops the loop.
func (p *Poller) Run(ctx context.Context) {
	slog.Info("poller started", "interval", p.interval)
	for {
		wait := p.interval
		if err := p.Cycle(ctx); err != nil {
			slog.Warn("poll cycle failed", "err", err)
			wait = p.errorBackoff
		}
		select {
		case <-ctx.Done():
			slog.Info("poller stopped")
			return
		case <-time.After(wait):
		}
	}
}

// Cycle runs one fetch-inspect-dispatch pass. Only the newest report is
// considered; the provider returns rows newest first.
func (p *Poller) Cycle(ctx context.Context) error {
	messages, err := p.fetcher.FetchRecent(ctx)
	if err != nil {
		return fmt.Errorf("fetch recent: %w", err)
	}
	if len(messages) == 0 {
		return nil
	}

	newest := messages[0]
	key := newest.Key()
	if key == p.lastSeenID {
		return nil
	}
	p.lastSeenID = key

	if p.ledger.CheckAndRecord(ctx, newest.Phone, newest.Datetime) {
		return nil
	}

	rec := p.buildRecord(&newest)
	if err := p.otps.Put(ctx, rec); err != nil {
		return fmt.Errorf("persist record: %w", err)
	}
	if err := p.stats.Record(ctx, rec); err != nil {
		slog.Warn("stats update failed", "record_id", rec.RecordID, "err", err)
	}

	res := p.dispatcher.Broadcast(ctx, rec)
	slog.Info("record dispatched",
		"record_id", rec.RecordID,
		"country", rec.Country,
		"service", rec.Service,
		"groups", res.GroupsDelivered,
		"users", res.UsersDelivered,
		"failed", res.GroupsFailed+res.UsersFailed,
	)
	return nil
}

func (p *Poller) buildRecord(msg *provider.Message) *domain.OTPRecord {
	now := p.now().UTC()
	countryName := "Unknown"
	if info := p.countries.Lookup(msg.Phone); info != nil {
		countryName = info.Name
	}
	return &domain.OTPRecord{
		RecordID:   id.New(),
		Phone:      msg.Phone,
		Message:    msg.Message,
		Service:    msg.SenderID,
		Country:    countryName,
		OTP:        otp.Extract(msg.Message),
		Day:        now.Format("2006-01-02"),
		ReceivedAt: now,
		ExpiresAt:  now.Add(otpRetention).Unix(),
	}
}
