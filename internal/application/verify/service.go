// Package verify gates private-chat access behind mandatory channel
// membership and tracks which users have passed the gate.
package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/otp-relay/internal/domain"
)

// DocumentStore persists the channel list and the user registry.
type DocumentStore interface {
	Load(ctx context.Context, name string, v interface{}) error
	Save(ctx context.Context, name string, v interface{}) error
}

// MemberChecker queries Telegram for a user's membership in a chat.
type MemberChecker interface {
	GetChatMember(ctx context.Context, chatID, userID int64) (member bool, err error)
}

type Service struct {
	docs    DocumentStore
	checker MemberChecker
}

func NewService(docs DocumentStore, checker MemberChecker) *Service {
	return &Service{docs: docs, checker: checker}
}

// Verify checks the user against every required channel and moves them into
// the verified set when all memberships hold. With no channels configured
// everyone passes. A membership lookup failure counts as not joined; the
// user can retry once the channel is reachable.
func (s *Service) Verify(ctx context.Context, userID int64) (bool, error) {
	channels, err := s.Channels(ctx)
	if err != nil {
		return false, err
	}
	for link, ch := range channels {
		chatID, ok := parseChatID(ch.ChatID)
		if !ok {
			slog.Warn("verification channel has unusable chat id", "link", link, "chat_id", ch.ChatID)
			continue
		}
		member, err := s.checker.GetChatMember(ctx, chatID, userID)
		if err != nil {
			slog.Warn("membership lookup failed", "chat_id", chatID, "user_id", userID, "err", err)
			return false, nil
		}
		if !member {
			return false, nil
		}
	}
	if err := s.promote(ctx, userID); err != nil {
		return false, err
	}
	return true, nil
}

// IsVerified reports whether the user already passed the gate.
func (s *Service) IsVerified(ctx context.Context, userID int64) (bool, error) {
	users, err := s.loadUsers(ctx)
	if err != nil {
		return false, err
	}
	return users.IsVerified(userID), nil
}

// AddUser registers a first-time user as not yet verified.
func (s *Service) AddUser(ctx context.Context, userID int64) error {
	users, err := s.loadUsers(ctx)
	if err != nil {
		return err
	}
	if users.IsVerified(userID) || contains(users.NotVerified, userID) {
		return nil
	}
	users.NotVerified = append(users.NotVerified, userID)
	return s.saveUsers(ctx, users)
}

// AllUsers returns every known user id, verified or not.
func (s *Service) AllUsers(ctx context.Context) ([]int64, error) {
	users, err := s.loadUsers(ctx)
	if err != nil {
		return nil, err
	}
	return append(append([]int64{}, users.Verified...), users.NotVerified...), nil
}

// AddChannel registers a required channel by invite link and chat id.
func (s *Service) AddChannel(ctx context.Context, link, chatID string) error {
	link = strings.TrimSpace(link)
	if link == "" {
		return fmt.Errorf("empty channel link: %w", domain.ErrBadRequest)
	}
	set, err := s.loadChannels(ctx)
	if err != nil {
		return err
	}
	if set.Channels == nil {
		set.Channels = map[string]domain.VerificationChannel{}
	}
	set.Channels[link] = domain.VerificationChannel{Link: link, ChatID: strings.TrimSpace(chatID)}
	return s.saveChannels(ctx, set)
}

// RemoveChannel drops a required channel. Removing an unknown link is an
// ErrNotFound so the owner sees the typo.
func (s *Service) RemoveChannel(ctx context.Context, link string) error {
	set, err := s.loadChannels(ctx)
	if err != nil {
		return err
	}
	if _, ok := set.Channels[link]; !ok {
		return fmt.Errorf("channel %s: %w", link, domain.ErrNotFound)
	}
	delete(set.Channels, link)
	return s.saveChannels(ctx, set)
}

// Channels returns the configured required channels, empty when none.
func (s *Service) Channels(ctx context.Context) (map[string]domain.VerificationChannel, error) {
	set, err := s.loadChannels(ctx)
	if err != nil {
		return nil, err
	}
	return set.Channels, nil
}

func (s *Service) promote(ctx context.Context, userID int64) error {
	users, err := s.loadUsers(ctx)
	if err != nil {
		return err
	}
	if users.IsVerified(userID) {
		return nil
	}
	kept := users.NotVerified[:0]
	for _, id := range users.NotVerified {
		if id != userID {
			kept = append(kept, id)
		}
	}
	users.NotVerified = kept
	users.Verified = append(users.Verified, userID)
	return s.saveUsers(ctx, users)
}

func (s *Service) loadUsers(ctx context.Context) (*domain.UserSet, error) {
	var users domain.UserSet
	if err := s.docs.Load(ctx, domain.TableUsers, &users); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &domain.UserSet{}, nil
		}
		return nil, fmt.Errorf("load user registry: %w", err)
	}
	return &users, nil
}

func (s *Service) saveUsers(ctx context.Context, users *domain.UserSet) error {
	if err := s.docs.Save(ctx, domain.TableUsers, users); err != nil {
		return fmt.Errorf("save user registry: %w", err)
	}
	return nil
}

func (s *Service) loadChannels(ctx context.Context) (*domain.VerificationSet, error) {
	var set domain.VerificationSet
	if err := s.docs.Load(ctx, domain.TableVerifications, &set); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &domain.VerificationSet{}, nil
		}
		return nil, fmt.Errorf("load verification channels: %w", err)
	}
	return &set, nil
}

func (s *Service) saveChannels(ctx context.Context, set *domain.VerificationSet) error {
	if err := s.docs.Save(ctx, domain.TableVerifications, set); err != nil {
		return fmt.Errorf("save verification channels: %w", err)
	}
	return nil
}

// parseChatID accepts supergroup/channel ids of the "-100..." form. Invite
// links without a resolvable id cannot be checked via getChatMember.
func parseChatID(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "-100") {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
