// Package stats maintains daily traffic counters and builds the owner's
// traffic reports.
package stats

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/otp-relay/internal/domain"
)

// DocumentStore persists the daily counter document.
type DocumentStore interface {
	Load(ctx context.Context, name string, v interface{}) error
	Save(ctx context.Context, name string, v interface{}) error
}

// OTPStore reads back a day's records for the detailed breakdown.
type OTPStore interface {
	ListByDay(ctx context.Context, day string) ([]domain.OTPRecord, error)
}

// Service rolls every dispatched record into per-day counters. The counter
// document is read-modify-write, so Record is serialized with a mutex; the
// poller is the only writer but the bot reads concurrently.
type Service struct {
	mu   sync.Mutex
	docs DocumentStore
	otps OTPStore
	now  func() time.Time
}

func NewService(docs DocumentStore, otps OTPStore) *Service {
	return &Service{docs: docs, otps: otps, now: time.Now}
}

// Record increments the day's total plus the country and service buckets.
func (s *Service) Record(ctx context.Context, rec *domain.OTPRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	daily, err := s.load(ctx)
	if err != nil {
		return err
	}
	day := daily.Days[rec.Day]
	if day.Countries == nil {
		day.Countries = map[string]int{}
	}
	if day.Services == nil {
		day.Services = map[string]int{}
	}
	day.Total++
	day.Countries[rec.Country]++
	day.Services[canonicalService(rec.Service)]++
	if daily.Days == nil {
		daily.Days = map[string]domain.DayStats{}
	}
	daily.Days[rec.Day] = day

	if err := s.docs.Save(ctx, domain.TableDailyStats, daily); err != nil {
		return fmt.Errorf("save daily stats: %w", err)
	}
	return nil
}

// Today returns the current UTC day's counters, zero-valued when none exist.
func (s *Service) Today(ctx context.Context) (domain.DayStats, error) {
	daily, err := s.load(ctx)
	if err != nil {
		return domain.DayStats{}, err
	}
	return daily.Days[s.today()], nil
}

// TrafficForDays aggregates the last n UTC days, today included.
func (s *Service) TrafficForDays(ctx context.Context, n int) (domain.TrafficSummary, error) {
	daily, err := s.load(ctx)
	if err != nil {
		return domain.TrafficSummary{}, err
	}
	summary := domain.TrafficSummary{
		Countries: map[string]int{},
		Services:  map[string]int{},
	}
	now := s.now().UTC()
	for i := 0; i < n; i++ {
		date := now.AddDate(0, 0, -i).Format("2006-01-02")
		day, ok := daily.Days[date]
		if !ok {
			continue
		}
		summary.Total += day.Total
		summary.Dates = append(summary.Dates, date)
		mergeCounts(summary.Countries, day.Countries)
		mergeCounts(summary.Services, day.Services)
	}
	sort.Strings(summary.Dates)
	return summary, nil
}

// AllTime aggregates every day ever recorded.
func (s *Service) AllTime(ctx context.Context) (domain.TrafficSummary, error) {
	daily, err := s.load(ctx)
	if err != nil {
		return domain.TrafficSummary{}, err
	}
	summary := domain.TrafficSummary{
		Countries: map[string]int{},
		Services:  map[string]int{},
	}
	for date, day := range daily.Days {
		summary.Total += day.Total
		summary.Dates = append(summary.Dates, date)
		mergeCounts(summary.Countries, day.Countries)
		mergeCounts(summary.Services, day.Services)
	}
	sort.Strings(summary.Dates)
	return summary, nil
}

// TodayByServiceAndCountry recounts today's persisted records per
// service-country pair, for the owner's detailed report.
func (s *Service) TodayByServiceAndCountry(ctx context.Context) (map[string]map[string]int, error) {
	records, err := s.otps.ListByDay(ctx, s.today())
	if err != nil {
		return nil, fmt.Errorf("list today's records: %w", err)
	}
	out := map[string]map[string]int{}
	for i := range records {
		svc := canonicalService(records[i].Service)
		if out[svc] == nil {
			out[svc] = map[string]int{}
		}
		out[svc][records[i].Country]++
	}
	return out, nil
}

func (s *Service) load(ctx context.Context) (*domain.DailyStats, error) {
	var daily domain.DailyStats
	if err := s.docs.Load(ctx, domain.TableDailyStats, &daily); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &domain.DailyStats{Days: map[string]domain.DayStats{}}, nil
		}
		return nil, fmt.Errorf("load daily stats: %w", err)
	}
	if daily.Days == nil {
		daily.Days = map[string]domain.DayStats{}
	}
	return &daily, nil
}

func (s *Service) today() string {
	return s.now().UTC().Format("2006-01-02")
}

// canonicalService folds sender id casing so "whatsapp", "WhatsApp" and
// "WHATSAPP" share one bucket: first rune upper, rest lower.
func canonicalService(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Unknown"
	}
	first, size := utf8.DecodeRuneInString(name)
	return string(unicode.ToUpper(first)) + strings.ToLower(name[size:])
}

func mergeCounts(dst, src map[string]int) {
	for k, v := range src {
		dst[k] += v
	}
}
