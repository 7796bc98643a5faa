package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otp-relay/internal/domain"
)

type memDocs struct {
	docs map[string][]byte
}

func newMemDocs() *memDocs {
	return &memDocs{docs: map[string][]byte{}}
}

func (m *memDocs) Load(_ context.Context, name string, v interface{}) error {
	body, ok := m.docs[name]
	if !ok {
		return fmt.Errorf("document %s: %w", name, domain.ErrNotFound)
	}
	return json.Unmarshal(body, v)
}

func (m *memDocs) Save(_ context.Context, name string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.docs[name] = body
	return nil
}

type fakeChecker struct {
	members map[int64]map[int64]bool // chatID -> userID -> joined
	err     error
}

func (f *fakeChecker) GetChatMember(_ context.Context, chatID, userID int64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.members[chatID][userID], nil
}

func TestVerify_NoChannelsConfiguredPassesEveryone(t *testing.T) {
	svc := NewService(newMemDocs(), &fakeChecker{})
	ok, err := svc.Verify(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, ok)

	verified, err := svc.IsVerified(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, verified)
}

func TestVerify_AllChannelsMustBeJoined(t *testing.T) {
	docs := newMemDocs()
	checker := &fakeChecker{members: map[int64]map[int64]bool{
		-100111: {42: true},
		-100222: {42: false},
	}}
	svc := NewService(docs, checker)
	ctx := context.Background()

	require.NoError(t, svc.AddChannel(ctx, "https://t.me/alpha", "-100111"))
	require.NoError(t, svc.AddChannel(ctx, "https://t.me/beta", "-100222"))

	ok, err := svc.Verify(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok)

	// Joining the second channel flips the result.
	checker.members[-100222][42] = true
	ok, err = svc.Verify(ctx, 42)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_PromotesOutOfNotVerified(t *testing.T) {
	docs := newMemDocs()
	svc := NewService(docs, &fakeChecker{})
	ctx := context.Background()

	require.NoError(t, svc.AddUser(ctx, 42))
	verified, err := svc.IsVerified(ctx, 42)
	require.NoError(t, err)
	assert.False(t, verified)

	ok, err := svc.Verify(ctx, 42)
	require.NoError(t, err)
	assert.True(t, ok)

	var users domain.UserSet
	require.NoError(t, docs.Load(ctx, domain.TableUsers, &users))
	assert.NotContains(t, users.NotVerified, int64(42))
	assert.Contains(t, users.Verified, int64(42))
}

func TestVerify_LookupFailureMeansNotJoined(t *testing.T) {
	svc := NewService(newMemDocs(), &fakeChecker{err: errors.New("telegram: chat not found")})
	ctx := context.Background()
	require.NoError(t, svc.AddChannel(ctx, "https://t.me/alpha", "-100111"))

	ok, err := svc.Verify(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_UnresolvableChatIDIsSkipped(t *testing.T) {
	svc := NewService(newMemDocs(), &fakeChecker{})
	ctx := context.Background()
	require.NoError(t, svc.AddChannel(ctx, "https://t.me/alpha", "@alpha"))

	ok, err := svc.Verify(ctx, 42)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAddRemoveChannels(t *testing.T) {
	svc := NewService(newMemDocs(), &fakeChecker{})
	ctx := context.Background()

	require.NoError(t, svc.AddChannel(ctx, "https://t.me/alpha", "-100111"))
	channels, err := svc.Channels(ctx)
	require.NoError(t, err)
	require.Len(t, channels, 1)
	assert.Equal(t, "-100111", channels["https://t.me/alpha"].ChatID)

	require.NoError(t, svc.RemoveChannel(ctx, "https://t.me/alpha"))
	channels, err = svc.Channels(ctx)
	require.NoError(t, err)
	assert.Empty(t, channels)

	err = svc.RemoveChannel(ctx, "https://t.me/alpha")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAddChannel_EmptyLinkRejected(t *testing.T) {
	svc := NewService(newMemDocs(), &fakeChecker{})
	require.ErrorIs(t, svc.AddChannel(context.Background(), "  ", "-100111"), domain.ErrBadRequest)
}

func TestAddUser_IdempotentAndListed(t *testing.T) {
	svc := NewService(newMemDocs(), &fakeChecker{})
	ctx := context.Background()

	require.NoError(t, svc.AddUser(ctx, 42))
	require.NoError(t, svc.AddUser(ctx, 42))
	require.NoError(t, svc.AddUser(ctx, 43))

	users, err := svc.AllUsers(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{42, 43}, users)
}
