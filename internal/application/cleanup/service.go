// Package cleanup deletes delivered group notices after the configured
// autodelete window elapses.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/otp-relay/internal/domain"
)

// DocumentStore persists the autodelete settings document.
type DocumentStore interface {
	Load(ctx context.Context, name string, v interface{}) error
	Save(ctx context.Context, name string, v interface{}) error
}

// DeliveryStore tracks delivered group messages.
type DeliveryStore interface {
	ListOlderThan(ctx context.Context, cutoff time.Time) ([]domain.DeliveryRecord, error)
	Delete(ctx context.Context, chatID, messageID int64) error
}

// Deleter removes messages from Telegram.
type Deleter interface {
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
}

// Sweeper periodically removes group notices older than the owner's
// autodelete window.
type Sweeper struct {
	docs       DocumentStore
	deliveries DeliveryStore
	deleter    Deleter
	interval   time.Duration
	now        func() time.Time
}

func NewSweeper(docs DocumentStore, deliveries DeliveryStore, deleter Deleter, interval time.Duration) *Sweeper {
	return &Sweeper{
		docs:       docs,
		deliveries: deliveries,
		deleter:    deleter,
		interval:   interval,
		now:        time.Now,
	}
}

// Run sweeps on a fixed interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	slog.Info("autodelete sweeper started", "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("autodelete sweeper stopped")
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				slog.Warn("sweep failed", "err", err)
			}
		}
	}
}

// Sweep deletes every tracked message older than the window. Disabled
// settings make it a no-op. A Telegram delete failure still drops the
// tracking record; the message is likely already gone.
func (s *Sweeper) Sweep(ctx context.Context) error {
	settings, err := s.Settings(ctx)
	if err != nil {
		return err
	}
	if !settings.Enabled || settings.Minutes <= 0 {
		return nil
	}

	cutoff := s.now().UTC().Add(-time.Duration(settings.Minutes) * time.Minute)
	expired, err := s.deliveries.ListOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list expired deliveries: %w", err)
	}
	for _, d := range expired {
		if err := s.deleter.DeleteMessage(ctx, d.ChatID, d.MessageID); err != nil {
			slog.Warn("message delete failed", "chat_id", d.ChatID, "message_id", d.MessageID, "err", err)
		}
		if err := s.deliveries.Delete(ctx, d.ChatID, d.MessageID); err != nil {
			slog.Warn("delivery record delete failed", "chat_id", d.ChatID, "message_id", d.MessageID, "err", err)
		}
	}
	return nil
}

// SetMinutes enables autodelete with the given window; zero disables it.
func (s *Sweeper) SetMinutes(ctx context.Context, minutes int) error {
	if minutes < 0 {
		return fmt.Errorf("minutes must not be negative: %w", domain.ErrBadRequest)
	}
	settings := domain.AutoDeleteSettings{Enabled: minutes > 0, Minutes: minutes}
	if err := s.docs.Save(ctx, domain.TableAutoDelete, &settings); err != nil {
		return fmt.Errorf("save autodelete settings: %w", err)
	}
	return nil
}

// Settings returns the stored configuration, disabled when never set.
func (s *Sweeper) Settings(ctx context.Context) (domain.AutoDeleteSettings, error) {
	var settings domain.AutoDeleteSettings
	if err := s.docs.Load(ctx, domain.TableAutoDelete, &settings); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.AutoDeleteSettings{}, nil
		}
		return domain.AutoDeleteSettings{}, fmt.Errorf("load autodelete settings: %w", err)
	}
	return settings, nil
}
