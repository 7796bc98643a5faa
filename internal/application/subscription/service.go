// Package subscription manages per-user watched number lists.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/otp-relay/internal/domain"
	"github.com/otp-relay/internal/pkg/format"
)

// Store is the persistence surface for subscriber requests.
type Store interface {
	Put(ctx context.Context, req *domain.SubscriberRequest) error
	Get(ctx context.Context, userID int64) (*domain.SubscriberRequest, error)
	Delete(ctx context.Context, userID int64) error
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Register parses phone numbers out of free-form text and replaces any
// previous request the user had. At most MaxSubscriberNumbers are kept;
// extras are silently dropped, matching a capped watch list.
func (s *Service) Register(ctx context.Context, userID int64, text string) ([]string, error) {
	numbers := format.ExtractPhoneNumbers(text)
	if len(numbers) == 0 {
		return nil, fmt.Errorf("no phone numbers in request: %w", domain.ErrBadRequest)
	}
	if len(numbers) > domain.MaxSubscriberNumbers {
		numbers = numbers[:domain.MaxSubscriberNumbers]
	}
	req := &domain.SubscriberRequest{
		UserID:    userID,
		Numbers:   numbers,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.store.Put(ctx, req); err != nil {
		return nil, fmt.Errorf("save request: %w", err)
	}
	return numbers, nil
}

// Cancel removes the user's request. Cancelling when nothing is registered
// is not an error.
func (s *Service) Cancel(ctx context.Context, userID int64) error {
	if err := s.store.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	return nil
}

// NumbersFor returns the user's watched numbers, empty when none registered.
func (s *Service) NumbersFor(ctx context.Context, userID int64) ([]string, error) {
	req, err := s.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return req.Numbers, nil
}
