// Package bot runs the Telegram long-poll loop and routes commands to the
// application services.
package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/otp-relay/internal/application/broadcast"
	"github.com/otp-relay/internal/application/cleanup"
	"github.com/otp-relay/internal/application/inventory"
	"github.com/otp-relay/internal/application/stats"
	"github.com/otp-relay/internal/application/subscription"
	"github.com/otp-relay/internal/application/verify"
	"github.com/otp-relay/internal/domain"
	"github.com/otp-relay/internal/infrastructure/telegram"
)

// Telegram is the slice of the Bot API the router needs.
type Telegram interface {
	GetUpdates(ctx context.Context, offset int64, timeout int) ([]telegram.Update, error)
	SendMessage(ctx context.Context, p telegram.SendMessageParams) (*telegram.Message, error)
	SendDocument(ctx context.Context, chatID int64, filename string, content io.Reader, caption string) (*telegram.Message, error)
}

// DocumentStore persists the group registry.
type DocumentStore interface {
	Load(ctx context.Context, name string, v interface{}) error
	Save(ctx context.Context, name string, v interface{}) error
}

// Links are the promotional links shown in the welcome screen.
type Links struct {
	Owner   string
	Channel string
	Support string
	Group   string
}

// Bot owns the update loop. Only message updates are consumed; the offset
// advances past every update whether or not handling succeeded, so a
// poisoned update cannot wedge the loop.
type Bot struct {
	tg            Telegram
	docs          DocumentStore
	subscriptions *subscription.Service
	verifier      *verify.Service
	traffic       *stats.Service
	sweeper       *cleanup.Sweeper
	stock         *inventory.Service
	announcer     *broadcast.Service

	ownerID int64
	links   Links
	offset  int64
}

type Deps struct {
	Telegram      Telegram
	Documents     DocumentStore
	Subscriptions *subscription.Service
	Verifier      *verify.Service
	Traffic       *stats.Service
	Sweeper       *cleanup.Sweeper
	Stock         *inventory.Service
	Announcer     *broadcast.Service
	OwnerID       int64
	Links         Links
}

func New(d Deps) *Bot {
	return &Bot{
		tg:            d.Telegram,
		docs:          d.Documents,
		subscriptions: d.Subscriptions,
		verifier:      d.Verifier,
		traffic:       d.Traffic,
		sweeper:       d.Sweeper,
		stock:         d.Stock,
		announcer:     d.Announcer,
		ownerID:       d.OwnerID,
		links:         d.Links,
	}
}

// Run long-polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	slog.Info("bot update loop started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("bot update loop stopped")
			return
		default:
		}
		updates, err := b.tg.GetUpdates(ctx, b.offset, 30)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("bot update loop stopped")
				return
			}
			slog.Warn("get updates failed", "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}
		for i := range updates {
			b.offset = updates[i].UpdateID + 1
			b.HandleUpdate(ctx, &updates[i])
		}
	}
}

// HandleUpdate routes a single update. Errors are reported to the chat and
// logged, never returned; the loop must keep going.
func (b *Bot) HandleUpdate(ctx context.Context, upd *telegram.Update) {
	msg := upd.Message
	if msg == nil || msg.From == nil || msg.Text == "" {
		return
	}
	cmd, args := splitCommand(msg.Text)

	if msg.Chat.Type == "group" || msg.Chat.Type == "supergroup" {
		if cmd == "/start" {
			b.handleGroupStart(ctx, msg)
		}
		return
	}
	if msg.Chat.Type != "private" {
		return
	}

	var err error
	switch cmd {
	case "/start":
		err = b.handleStart(ctx, msg)
	case "/fastotps":
		err = b.handleFastOTPs(ctx, msg, args)
	case "/cancelfast":
		err = b.handleCancelFast(ctx, msg)
	case "/traffic":
		err = b.handleTraffic(ctx, msg)
	case "/cfd":
		err = b.ownerOnly(ctx, msg, func(ctx context.Context, m *telegram.Message) error {
			return b.handleBroadcastUsers(ctx, m, args)
		})
	case "/fwd":
		err = b.ownerOnly(ctx, msg, func(ctx context.Context, m *telegram.Message) error {
			return b.handleBroadcastGroups(ctx, m, args)
		})
	case "/report":
		err = b.ownerOnly(ctx, msg, b.handleDetailedReport)
	case "/autodelmsg":
		err = b.ownerOnly(ctx, msg, func(ctx context.Context, m *telegram.Message) error {
			return b.handleAutoDelete(ctx, m, args)
		})
	case "/verification":
		err = b.ownerOnly(ctx, msg, func(ctx context.Context, m *telegram.Message) error {
			return b.handleVerification(ctx, m, args)
		})
	case "/ranges":
		err = b.ownerOnly(ctx, msg, b.handleRanges)
	case "/getrange":
		err = b.ownerOnly(ctx, msg, func(ctx context.Context, m *telegram.Message) error {
			return b.handleGetRange(ctx, m, args)
		})
	case "/delrange":
		err = b.ownerOnly(ctx, msg, func(ctx context.Context, m *telegram.Message) error {
			return b.handleDelRange(ctx, m, args)
		})
	default:
		return
	}
	if err != nil {
		slog.Warn("command failed", "command", cmd, "user_id", msg.From.ID, "err", err)
		b.reply(ctx, msg.Chat.ID, "Something went wrong, please try again later.")
	}
}

// handleGroupStart registers the group for OTP fan-out and tells the owner.
func (b *Bot) handleGroupStart(ctx context.Context, msg *telegram.Message) {
	var groups domain.GroupSet
	if err := b.docs.Load(ctx, domain.TableGroups, &groups); err != nil && !errors.Is(err, domain.ErrNotFound) {
		slog.Warn("group registry load failed", "err", err)
		return
	}
	if groups.Contains(msg.Chat.ID) {
		b.reply(ctx, msg.Chat.ID, "This group is already receiving OTPs.")
		return
	}
	groups.Groups = append(groups.Groups, msg.Chat.ID)
	if err := b.docs.Save(ctx, domain.TableGroups, &groups); err != nil {
		slog.Warn("group registry save failed", "err", err)
		return
	}
	b.reply(ctx, msg.Chat.ID, "✅ This group will now receive OTPs.")
	b.reply(ctx, b.ownerID, fmt.Sprintf("New group registered: <b>%s</b> (<code>%d</code>)", msg.Chat.Title, msg.Chat.ID))
	slog.Info("group registered", "chat_id", msg.Chat.ID, "title", msg.Chat.Title)
}

func (b *Bot) handleStart(ctx context.Context, msg *telegram.Message) error {
	userID := msg.From.ID
	if err := b.verifier.AddUser(ctx, userID); err != nil {
		return err
	}
	ok, err := b.verifier.Verify(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return b.sendJoinPrompt(ctx, msg.Chat.ID)
	}
	return b.sendWelcome(ctx, msg.Chat.ID)
}

func (b *Bot) sendJoinPrompt(ctx context.Context, chatID int64) error {
	channels, err := b.verifier.Channels(ctx)
	if err != nil {
		return err
	}
	var rows [][]telegram.InlineKeyboardButton
	links := make([]string, 0, len(channels))
	for link := range channels {
		links = append(links, link)
	}
	sort.Strings(links)
	for _, link := range links {
		rows = append(rows, []telegram.InlineKeyboardButton{{Text: "📢 Join channel", URL: link}})
	}
	_, err = b.tg.SendMessage(ctx, telegram.SendMessageParams{
		ChatID:             chatID,
		Text:               "⛔ You must join the required channels first, then send /start again.",
		ParseMode:          "HTML",
		ReplyMarkup:        &telegram.InlineKeyboardMarkup{InlineKeyboard: rows},
		DisableLinkPreview: true,
	})
	return err
}

func (b *Bot) sendWelcome(ctx context.Context, chatID int64) error {
	var rows [][]telegram.InlineKeyboardButton
	var row []telegram.InlineKeyboardButton
	if b.links.Group != "" {
		row = append(row, telegram.InlineKeyboardButton{Text: "📡 OTP Group", URL: b.links.Group})
	}
	if b.links.Channel != "" {
		row = append(row, telegram.InlineKeyboardButton{Text: "📢 Channel", URL: b.links.Channel})
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	if b.links.Support != "" {
		rows = append(rows, []telegram.InlineKeyboardButton{{Text: "🛟 Support", URL: b.links.Support}})
	}
	var markup *telegram.InlineKeyboardMarkup
	if len(rows) > 0 {
		markup = &telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
	}
	text := "👋 <b>Welcome!</b>\n\n" +
		"This bot relays incoming OTPs in real time.\n\n" +
		"» /fastotps <code>number1 number2 ...</code> to watch up to " + strconv.Itoa(domain.MaxSubscriberNumbers) + " numbers\n" +
		"» /cancelfast to stop watching\n" +
		"» /traffic for today's volume"
	_, err := b.tg.SendMessage(ctx, telegram.SendMessageParams{
		ChatID:             chatID,
		Text:               text,
		ParseMode:          "HTML",
		ReplyMarkup:        markup,
		DisableLinkPreview: true,
	})
	return err
}

func (b *Bot) handleFastOTPs(ctx context.Context, msg *telegram.Message, args string) error {
	verified, err := b.verifier.IsVerified(ctx, msg.From.ID)
	if err != nil {
		return err
	}
	if !verified {
		return b.sendJoinPrompt(ctx, msg.Chat.ID)
	}
	numbers, err := b.subscriptions.Register(ctx, msg.From.ID, args)
	if err != nil {
		if errors.Is(err, domain.ErrBadRequest) {
			b.reply(ctx, msg.Chat.ID, "Send the numbers after the command, e.g.\n<code>/fastotps 628111222333 628111222334</code>")
			return nil
		}
		return err
	}
	b.reply(ctx, msg.Chat.ID, fmt.Sprintf("✅ Watching <b>%d</b> number(s). You will receive their OTPs here.", len(numbers)))
	return nil
}

func (b *Bot) handleCancelFast(ctx context.Context, msg *telegram.Message) error {
	if err := b.subscriptions.Cancel(ctx, msg.From.ID); err != nil {
		return err
	}
	b.reply(ctx, msg.Chat.ID, "🛑 Watch list cleared.")
	return nil
}

func (b *Bot) handleTraffic(ctx context.Context, msg *telegram.Message) error {
	today, err := b.traffic.Today(ctx)
	if err != nil {
		return err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 <b>Today's traffic</b>\n\nTotal: <b>%d</b>\n", today.Total)
	if len(today.Countries) > 0 {
		sb.WriteString("\nBy country:\n")
		writeCounts(&sb, today.Countries)
	}
	if len(today.Services) > 0 {
		sb.WriteString("\nBy service:\n")
		writeCounts(&sb, today.Services)
	}
	b.reply(ctx, msg.Chat.ID, sb.String())
	return nil
}

// handleDetailedReport is the owner's per-service, per-country breakdown of
// today's records.
func (b *Bot) handleDetailedReport(ctx context.Context, msg *telegram.Message) error {
	breakdown, err := b.traffic.TodayByServiceAndCountry(ctx)
	if err != nil {
		return err
	}
	if len(breakdown) == 0 {
		b.reply(ctx, msg.Chat.ID, "No records yet today.")
		return nil
	}
	services := make([]string, 0, len(breakdown))
	for svc := range breakdown {
		services = append(services, svc)
	}
	sort.Strings(services)

	var sb strings.Builder
	sb.WriteString("📈 <b>Today by service and country</b>\n")
	for _, svc := range services {
		fmt.Fprintf(&sb, "\n<b>%s</b>\n", svc)
		writeCounts(&sb, breakdown[svc])
	}
	b.reply(ctx, msg.Chat.ID, sb.String())
	return nil
}

func (b *Bot) handleBroadcastUsers(ctx context.Context, msg *telegram.Message, args string) error {
	if strings.TrimSpace(args) == "" {
		b.reply(ctx, msg.Chat.ID, "Usage: /cfd <code>message</code>")
		return nil
	}
	res, err := b.announcer.ToUsers(ctx, args)
	if err != nil {
		return err
	}
	b.reply(ctx, msg.Chat.ID, fmt.Sprintf("✅ Broadcast completed! Delivered to %d user(s), %d failed.", res.Delivered, res.Failed))
	return nil
}

func (b *Bot) handleBroadcastGroups(ctx context.Context, msg *telegram.Message, args string) error {
	if strings.TrimSpace(args) == "" {
		b.reply(ctx, msg.Chat.ID, "Usage: /fwd <code>message</code>")
		return nil
	}
	res, err := b.announcer.ToGroups(ctx, args)
	if err != nil {
		return err
	}
	b.reply(ctx, msg.Chat.ID, fmt.Sprintf("✅ Broadcast completed! Delivered to %d group(s), %d failed.", res.Delivered, res.Failed))
	return nil
}

func (b *Bot) handleAutoDelete(ctx context.Context, msg *telegram.Message, args string) error {
	minutes, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil {
		b.reply(ctx, msg.Chat.ID, "Usage: /autodelmsg <code>minutes</code> (0 disables)")
		return nil
	}
	if err := b.sweeper.SetMinutes(ctx, minutes); err != nil {
		if errors.Is(err, domain.ErrBadRequest) {
			b.reply(ctx, msg.Chat.ID, "Minutes must be zero or more.")
			return nil
		}
		return err
	}
	if minutes == 0 {
		b.reply(ctx, msg.Chat.ID, "🗑 Autodelete disabled.")
	} else {
		b.reply(ctx, msg.Chat.ID, fmt.Sprintf("🗑 Group notices will be deleted after %d minute(s).", minutes))
	}
	return nil
}

func (b *Bot) handleVerification(ctx context.Context, msg *telegram.Message, args string) error {
	fields := strings.Fields(args)
	usage := "Usage:\n/verification add <code>link</code> <code>chat_id</code>\n/verification del <code>link</code>\n/verification list"
	if len(fields) == 0 {
		b.reply(ctx, msg.Chat.ID, usage)
		return nil
	}
	switch fields[0] {
	case "add":
		if len(fields) < 3 {
			b.reply(ctx, msg.Chat.ID, usage)
			return nil
		}
		if err := b.verifier.AddChannel(ctx, fields[1], fields[2]); err != nil {
			return err
		}
		b.reply(ctx, msg.Chat.ID, "✅ Required channel added.")
	case "del":
		if len(fields) < 2 {
			b.reply(ctx, msg.Chat.ID, usage)
			return nil
		}
		if err := b.verifier.RemoveChannel(ctx, fields[1]); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				b.reply(ctx, msg.Chat.ID, "No such channel link.")
				return nil
			}
			return err
		}
		b.reply(ctx, msg.Chat.ID, "✅ Required channel removed.")
	case "list":
		channels, err := b.verifier.Channels(ctx)
		if err != nil {
			return err
		}
		if len(channels) == 0 {
			b.reply(ctx, msg.Chat.ID, "No required channels configured.")
			return nil
		}
		var sb strings.Builder
		sb.WriteString("Required channels:\n")
		links := make([]string, 0, len(channels))
		for link := range channels {
			links = append(links, link)
		}
		sort.Strings(links)
		for _, link := range links {
			fmt.Fprintf(&sb, "» %s (<code>%s</code>)\n", link, channels[link].ChatID)
		}
		b.reply(ctx, msg.Chat.ID, sb.String())
	default:
		b.reply(ctx, msg.Chat.ID, usage)
	}
	return nil
}

func (b *Bot) handleRanges(ctx context.Context, msg *telegram.Message) error {
	ranges, err := b.stock.List(ctx)
	if err != nil {
		return err
	}
	if len(ranges) == 0 {
		b.reply(ctx, msg.Chat.ID, "No number ranges in stock.")
		return nil
	}
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].UploadedAt.Before(ranges[j].UploadedAt) })
	total := 0
	var sb strings.Builder
	sb.WriteString("📦 <b>Number ranges</b>\n\n")
	for i := range ranges {
		nr := &ranges[i]
		total += nr.Capacity
		fmt.Fprintf(&sb, "%s <b>%s</b> · %s · %d numbers\n<code>%s</code>\n\n", nr.Flag, nr.Country, nr.Service, nr.Capacity, nr.RangeID)
	}
	fmt.Fprintf(&sb, "Total: <b>%d</b> numbers", total)
	b.reply(ctx, msg.Chat.ID, sb.String())
	return nil
}

func (b *Bot) handleGetRange(ctx context.Context, msg *telegram.Message, args string) error {
	rangeID := strings.TrimSpace(args)
	if rangeID == "" {
		b.reply(ctx, msg.Chat.ID, "Usage: /getrange <code>range_id</code>")
		return nil
	}
	nr, rc, err := b.stock.RangeFile(ctx, rangeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			b.reply(ctx, msg.Chat.ID, "No such range.")
			return nil
		}
		return err
	}
	defer rc.Close()
	caption := fmt.Sprintf("%s %s · %s · %d numbers", nr.Flag, nr.Country, nr.Service, nr.Capacity)
	_, err = b.tg.SendDocument(ctx, msg.Chat.ID, nr.RangeID+".txt", rc, caption)
	return err
}

func (b *Bot) handleDelRange(ctx context.Context, msg *telegram.Message, args string) error {
	rangeID := strings.TrimSpace(args)
	if rangeID == "" {
		b.reply(ctx, msg.Chat.ID, "Usage: /delrange <code>range_id</code>")
		return nil
	}
	if err := b.stock.Remove(ctx, rangeID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			b.reply(ctx, msg.Chat.ID, "No such range.")
			return nil
		}
		return err
	}
	b.reply(ctx, msg.Chat.ID, "🗑 Range removed.")
	return nil
}

func (b *Bot) ownerOnly(ctx context.Context, msg *telegram.Message, fn func(context.Context, *telegram.Message) error) error {
	if msg.From.ID != b.ownerID {
		b.reply(ctx, msg.Chat.ID, "This command is reserved for the owner.")
		return nil
	}
	return fn(ctx, msg)
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	_, err := b.tg.SendMessage(ctx, telegram.SendMessageParams{
		ChatID:             chatID,
		Text:               text,
		ParseMode:          "HTML",
		DisableLinkPreview: true,
	})
	if err != nil {
		slog.Warn("reply failed", "chat_id", chatID, "err", err)
	}
}

// splitCommand separates "/cmd@BotName rest" into "/cmd" and "rest".
func splitCommand(text string) (cmd, args string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	cmd = text
	if i := strings.IndexAny(text, " \n"); i >= 0 {
		cmd, args = text[:i], strings.TrimSpace(text[i+1:])
	}
	if at := strings.Index(cmd, "@"); at >= 0 {
		cmd = cmd[:at]
	}
	return cmd, args
}

func writeCounts(sb *strings.Builder, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	for _, k := range keys {
		fmt.Fprintf(sb, "» %s: <b>%d</b>\n", k, counts[k])
	}
}
