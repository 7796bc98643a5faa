package inventory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otp-relay/internal/domain"
)

type memRanges struct {
	ranges map[string]domain.NumberRange
	putErr error
}

func newMemRanges() *memRanges {
	return &memRanges{ranges: map[string]domain.NumberRange{}}
}

func (m *memRanges) Put(_ context.Context, nr *domain.NumberRange) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.ranges[nr.RangeID] = *nr
	return nil
}

func (m *memRanges) Get(_ context.Context, rangeID string) (*domain.NumberRange, error) {
	nr, ok := m.ranges[rangeID]
	if !ok {
		return nil, fmt.Errorf("range %s: %w", rangeID, domain.ErrNotFound)
	}
	return &nr, nil
}

func (m *memRanges) List(_ context.Context) ([]domain.NumberRange, error) {
	out := make([]domain.NumberRange, 0, len(m.ranges))
	for _, nr := range m.ranges {
		out = append(out, nr)
	}
	return out, nil
}

func (m *memRanges) Delete(_ context.Context, rangeID string) error {
	delete(m.ranges, rangeID)
	return nil
}

type memFiles struct {
	objects map[string][]byte
}

func newMemFiles() *memFiles {
	return &memFiles{objects: map[string][]byte{}}
}

func (m *memFiles) Upload(_ context.Context, key string, r io.Reader, _ string) (string, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.objects[key] = body
	return key, nil
}

func (m *memFiles) Download(_ context.Context, key string) (io.ReadCloser, error) {
	body, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", key, domain.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

func (m *memFiles) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

const rangeFile = "628111222001\n628111222002\n\n628111222003\n"

func TestAddRange_CountsNonBlankLines(t *testing.T) {
	ranges := newMemRanges()
	files := newMemFiles()
	svc := NewService(ranges, files)

	nr, err := svc.AddRange(context.Background(), "Indonesia", "🇮🇩", "WhatsApp", strings.NewReader(rangeFile))
	require.NoError(t, err)
	assert.Equal(t, 3, nr.Capacity)
	assert.Equal(t, "Indonesia", nr.Country)
	assert.True(t, strings.HasPrefix(nr.FileKey, "ranges/"))
	assert.Contains(t, files.objects, nr.FileKey)
	assert.Contains(t, ranges.ranges, nr.RangeID)
}

func TestAddRange_EmptyFileRejected(t *testing.T) {
	svc := NewService(newMemRanges(), newMemFiles())
	_, err := svc.AddRange(context.Background(), "Indonesia", "🇮🇩", "WhatsApp", strings.NewReader("\n  \n"))
	require.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestAddRange_MetadataFailureRemovesFile(t *testing.T) {
	ranges := newMemRanges()
	ranges.putErr = errors.New("dynamo down")
	files := newMemFiles()
	svc := NewService(ranges, files)

	_, err := svc.AddRange(context.Background(), "Indonesia", "🇮🇩", "WhatsApp", strings.NewReader(rangeFile))
	require.Error(t, err)
	assert.Empty(t, files.objects)
}

func TestRemove_DeletesFileAndMetadata(t *testing.T) {
	ranges := newMemRanges()
	files := newMemFiles()
	svc := NewService(ranges, files)
	ctx := context.Background()

	nr, err := svc.AddRange(ctx, "Indonesia", "🇮🇩", "WhatsApp", strings.NewReader(rangeFile))
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, nr.RangeID))
	assert.Empty(t, files.objects)
	assert.Empty(t, ranges.ranges)

	err = svc.Remove(ctx, nr.RangeID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRangeFile_StreamsStoredContent(t *testing.T) {
	svc := NewService(newMemRanges(), newMemFiles())
	ctx := context.Background()

	nr, err := svc.AddRange(ctx, "Indonesia", "🇮🇩", "WhatsApp", strings.NewReader(rangeFile))
	require.NoError(t, err)

	meta, rc, err := svc.RangeFile(ctx, nr.RangeID)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, rangeFile, string(body))
	assert.Equal(t, nr.RangeID, meta.RangeID)
}

func TestTotalNumbers_SumsCapacities(t *testing.T) {
	svc := NewService(newMemRanges(), newMemFiles())
	ctx := context.Background()

	_, err := svc.AddRange(ctx, "Indonesia", "🇮🇩", "WhatsApp", strings.NewReader(rangeFile))
	require.NoError(t, err)
	_, err = svc.AddRange(ctx, "Nigeria", "🇳🇬", "Telegram", strings.NewReader("2348011122233\n"))
	require.NoError(t, err)

	total, err := svc.TotalNumbers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
}
