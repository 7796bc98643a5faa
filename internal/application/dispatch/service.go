// Package dispatch fans a completed OTP record out to every subscribed
// group chat and every matching subscriber request.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/otp-relay/internal/domain"
	"github.com/otp-relay/internal/infrastructure/telegram"
	"github.com/otp-relay/internal/pkg/country"
	"github.com/otp-relay/internal/pkg/format"
)

// Sender is the outbound messaging surface the dispatcher needs.
type Sender interface {
	SendMessage(ctx context.Context, p telegram.SendMessageParams) (*telegram.Message, error)
}

// DocumentStore loads the group registry.
type DocumentStore interface {
	Load(ctx context.Context, name string, v interface{}) error
}

// SubscriptionStore lists active subscriber requests.
type SubscriptionStore interface {
	List(ctx context.Context) ([]domain.SubscriberRequest, error)
}

// DeliveryStore records group deliveries for later cleanup.
type DeliveryStore interface {
	Put(ctx context.Context, d *domain.DeliveryRecord) error
}

// Links are the promotional links embedded in notices.
type Links struct {
	Owner   string
	Channel string
	Bot     string // t.me link to the bot itself, resolved at startup
}

// Result is the aggregate outcome of one fan-out.
type Result struct {
	GroupsDelivered int
	GroupsFailed    int
	UsersDelivered  int
	UsersFailed     int
}

// Service delivers OTP notices. Every destination is attempted
// independently; one failure never aborts the rest.
type Service struct {
	sender        Sender
	docs          DocumentStore
	subscriptions SubscriptionStore
	deliveries    DeliveryStore
	countries     *country.Table
	links         Links
}

func NewService(sender Sender, docs DocumentStore, subscriptions SubscriptionStore, deliveries DeliveryStore, countries *country.Table, links Links) *Service {
	return &Service{
		sender:        sender,
		docs:          docs,
		subscriptions: subscriptions,
		deliveries:    deliveries,
		countries:     countries,
		links:         links,
	}
}

// Broadcast sends the record to all registered groups and to every
// subscriber request watching the record's phone number. The OTP record is
// already persisted when this runs; failures here are delivery-only.
func (s *Service) Broadcast(ctx context.Context, rec *domain.OTPRecord) Result {
	var res Result

	info := s.countries.Lookup(rec.Phone)
	keyboard := s.codeKeyboard(rec.OTP)

	var groups domain.GroupSet
	if err := s.docs.Load(ctx, domain.TableGroups, &groups); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			slog.Warn("group registry load failed, skipping group fan-out", "err", err)
		}
	}
	for _, chatID := range groups.Groups {
		msg, err := s.sender.SendMessage(ctx, telegram.SendMessageParams{
			ChatID:             chatID,
			Text:               s.groupNotice(rec, info),
			ParseMode:          "HTML",
			ReplyMarkup:        keyboard,
			DisableLinkPreview: true,
		})
		if err != nil {
			res.GroupsFailed++
			slog.Warn("group delivery failed", "chat_id", chatID, "err", err)
			continue
		}
		res.GroupsDelivered++
		if err := s.deliveries.Put(ctx, &domain.DeliveryRecord{
			ChatID:      chatID,
			MessageID:   msg.MessageID,
			DeliveredAt: time.Now().UTC(),
		}); err != nil {
			slog.Warn("delivery record write failed", "chat_id", chatID, "message_id", msg.MessageID, "err", err)
		}
	}

	requests, err := s.subscriptions.List(ctx)
	if err != nil {
		slog.Warn("subscriber request list failed, skipping user fan-out", "err", err)
		return res
	}
	for i := range requests {
		req := &requests[i]
		if !req.Watches(rec.Phone) {
			continue
		}
		_, err := s.sender.SendMessage(ctx, telegram.SendMessageParams{
			ChatID:             req.UserID,
			Text:               s.userNotice(rec, info),
			ParseMode:          "HTML",
			ReplyMarkup:        keyboard,
			DisableLinkPreview: true,
		})
		if err != nil {
			res.UsersFailed++
			slog.Warn("user delivery failed", "user_id", req.UserID, "err", err)
			continue
		}
		res.UsersDelivered++
	}

	return res
}

// codeKeyboard returns a copy-to-clipboard button for the code, or nil when
// extraction found nothing.
func (s *Service) codeKeyboard(code string) *telegram.InlineKeyboardMarkup {
	if code == "" || code == domain.OTPNotFound {
		return nil
	}
	rows := [][]telegram.InlineKeyboardButton{
		{{Text: code, CopyText: &telegram.CopyTextButton{Text: code}}},
	}
	var row []telegram.InlineKeyboardButton
	if s.links.Bot != "" {
		row = append(row, telegram.InlineKeyboardButton{Text: "🔧 Panel", URL: s.links.Bot})
	}
	if s.links.Channel != "" {
		row = append(row, telegram.InlineKeyboardButton{Text: "📢 Info", URL: s.links.Channel})
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// groupNotice hides the full number and message body; groups only see that
// a code arrived for a masked number.
func (s *Service) groupNotice(rec *domain.OTPRecord, info *country.Info) string {
	flag, short := "🌐", "XX"
	if info != nil {
		flag, short = info.Flag, info.ShortName
	}
	return fmt.Sprintf(
		"<blockquote>🚨 New SMS received 🚨</blockquote>\n<b>%s #%s #%s  %s</b>\n<blockquote><a href=\"%s\">Powered by the relay team</a></blockquote>",
		flag, short, format.ServiceAbbr(rec.Service), format.MaskPhone(rec.Phone), s.links.Owner,
	)
}

// userNotice goes to the subscriber who registered this exact number, so it
// includes the full number and message body.
func (s *Service) userNotice(rec *domain.OTPRecord, info *country.Info) string {
	flag, name := "🌐", "Unknown"
	if info != nil {
		flag, name = info.Flag, info.Name
	}
	return fmt.Sprintf(
		"<blockquote>🚨 New SMS received 🚨</blockquote>\n\n» Details: %s <b>%s</b> · %s\n» Number: <code>+%s</code>\n» Message:\n<pre>%s</pre>",
		flag, name, rec.Service, rec.Phone, format.EscapeHTML(rec.Message),
	)
}
