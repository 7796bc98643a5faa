package subscription

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otp-relay/internal/domain"
)

type memStore struct {
	requests map[int64]domain.SubscriberRequest
	putErr   error
}

func newMemStore() *memStore {
	return &memStore{requests: map[int64]domain.SubscriberRequest{}}
}

func (m *memStore) Put(_ context.Context, req *domain.SubscriberRequest) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.requests[req.UserID] = *req
	return nil
}

func (m *memStore) Get(_ context.Context, userID int64) (*domain.SubscriberRequest, error) {
	req, ok := m.requests[userID]
	if !ok {
		return nil, fmt.Errorf("request %d: %w", userID, domain.ErrNotFound)
	}
	return &req, nil
}

func (m *memStore) Delete(_ context.Context, userID int64) error {
	delete(m.requests, userID)
	return nil
}

func TestRegister_ParsesNumbersFromFreeText(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)

	numbers, err := svc.Register(context.Background(), 42, "/fastotps 628111222333, also +15550001111 please")
	require.NoError(t, err)
	assert.Equal(t, []string{"628111222333", "15550001111"}, numbers)

	saved := store.requests[42]
	assert.Equal(t, numbers, saved.Numbers)
	assert.False(t, saved.UpdatedAt.IsZero())
}

func TestRegister_NoNumbersIsBadRequest(t *testing.T) {
	svc := NewService(newMemStore())
	_, err := svc.Register(context.Background(), 42, "/fastotps hello there")
	require.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestRegister_CapsAtMaxNumbers(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < domain.MaxSubscriberNumbers+5; i++ {
		fmt.Fprintf(&sb, "62811122%04d ", i)
	}
	svc := NewService(newMemStore())

	numbers, err := svc.Register(context.Background(), 42, sb.String())
	require.NoError(t, err)
	assert.Len(t, numbers, domain.MaxSubscriberNumbers)
}

func TestRegister_ReplacesPreviousRequest(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)
	ctx := context.Background()

	_, err := svc.Register(ctx, 42, "628111222333")
	require.NoError(t, err)
	_, err = svc.Register(ctx, 42, "15550001111")
	require.NoError(t, err)

	assert.Equal(t, []string{"15550001111"}, store.requests[42].Numbers)
}

func TestCancelAndNumbersFor(t *testing.T) {
	store := newMemStore()
	svc := NewService(store)
	ctx := context.Background()

	_, err := svc.Register(ctx, 42, "628111222333")
	require.NoError(t, err)

	numbers, err := svc.NumbersFor(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, []string{"628111222333"}, numbers)

	require.NoError(t, svc.Cancel(ctx, 42))

	numbers, err = svc.NumbersFor(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, numbers)

	// Cancelling again is a no-op, not an error.
	require.NoError(t, svc.Cancel(ctx, 42))
}
