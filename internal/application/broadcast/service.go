// Package broadcast sends owner announcements to every known user or group.
package broadcast

import (
	"context"
	"errors"
	"log/slog"

	"github.com/otp-relay/internal/domain"
	"github.com/otp-relay/internal/infrastructure/telegram"
)

// Sender delivers one message per destination.
type Sender interface {
	SendMessage(ctx context.Context, p telegram.SendMessageParams) (*telegram.Message, error)
}

// DocumentStore loads the group registry.
type DocumentStore interface {
	Load(ctx context.Context, name string, v interface{}) error
}

// UserLister enumerates every known user id.
type UserLister interface {
	AllUsers(ctx context.Context) ([]int64, error)
}

// Result counts the outcome of one announcement run.
type Result struct {
	Delivered int
	Failed    int
}

type Service struct {
	sender Sender
	docs   DocumentStore
	users  UserLister
}

func NewService(sender Sender, docs DocumentStore, users UserLister) *Service {
	return &Service{sender: sender, docs: docs, users: users}
}

// ToUsers sends text to every known user. Blocked or deleted accounts fail
// individually without stopping the run.
func (s *Service) ToUsers(ctx context.Context, text string) (Result, error) {
	ids, err := s.users.AllUsers(ctx)
	if err != nil {
		return Result{}, err
	}
	return s.fanOut(ctx, ids, text), nil
}

// ToGroups sends text to every registered group chat.
func (s *Service) ToGroups(ctx context.Context, text string) (Result, error) {
	var groups domain.GroupSet
	if err := s.docs.Load(ctx, domain.TableGroups, &groups); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return Result{}, err
		}
	}
	return s.fanOut(ctx, groups.Groups, text), nil
}

func (s *Service) fanOut(ctx context.Context, ids []int64, text string) Result {
	var res Result
	for _, chatID := range ids {
		_, err := s.sender.SendMessage(ctx, telegram.SendMessageParams{
			ChatID:    chatID,
			Text:      text,
			ParseMode: "HTML",
		})
		if err != nil {
			res.Failed++
			slog.Warn("announcement delivery failed", "chat_id", chatID, "err", err)
			continue
		}
		res.Delivered++
	}
	return res
}
