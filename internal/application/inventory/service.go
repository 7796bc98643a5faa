// Package inventory manages the stock of rentable number ranges. Range
// files live in S3; their metadata lives in DynamoDB.
package inventory

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/otp-relay/internal/domain"
	"github.com/otp-relay/internal/pkg/id"
)

// RangeStore persists number range metadata.
type RangeStore interface {
	Put(ctx context.Context, nr *domain.NumberRange) error
	Get(ctx context.Context, rangeID string) (*domain.NumberRange, error)
	List(ctx context.Context) ([]domain.NumberRange, error)
	Delete(ctx context.Context, rangeID string) error
}

// FileStore holds the range files themselves.
type FileStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

type Service struct {
	ranges RangeStore
	files  FileStore
}

func NewService(ranges RangeStore, files FileStore) *Service {
	return &Service{ranges: ranges, files: files}
}

// AddRange stores a number file and registers its metadata. Capacity is the
// count of non-blank lines; blank lines and surrounding whitespace do not
// count as numbers.
func (s *Service) AddRange(ctx context.Context, country, flag, service string, file io.Reader) (*domain.NumberRange, error) {
	body, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read range file: %w", err)
	}
	capacity := countNumbers(body)
	if capacity == 0 {
		return nil, fmt.Errorf("range file has no numbers: %w", domain.ErrBadRequest)
	}

	rangeID := id.New()
	key := "ranges/" + rangeID + ".txt"
	if _, err := s.files.Upload(ctx, key, bytes.NewReader(body), "text/plain"); err != nil {
		return nil, fmt.Errorf("upload range file: %w", err)
	}

	nr := &domain.NumberRange{
		RangeID:    rangeID,
		Country:    strings.TrimSpace(country),
		Flag:       strings.TrimSpace(flag),
		Service:    strings.TrimSpace(service),
		FileKey:    key,
		Capacity:   capacity,
		UploadedAt: time.Now().UTC(),
	}
	if err := s.ranges.Put(ctx, nr); err != nil {
		// The metadata write failed; drop the orphaned file.
		_ = s.files.Delete(ctx, key)
		return nil, fmt.Errorf("save range metadata: %w", err)
	}
	return nr, nil
}

// List returns all registered ranges.
func (s *Service) List(ctx context.Context) ([]domain.NumberRange, error) {
	return s.ranges.List(ctx)
}

// Remove deletes both the metadata and the backing file.
func (s *Service) Remove(ctx context.Context, rangeID string) error {
	nr, err := s.ranges.Get(ctx, rangeID)
	if err != nil {
		return err
	}
	if err := s.files.Delete(ctx, nr.FileKey); err != nil {
		return fmt.Errorf("delete range file: %w", err)
	}
	if err := s.ranges.Delete(ctx, rangeID); err != nil {
		return fmt.Errorf("delete range metadata: %w", err)
	}
	return nil
}

// RangeFile streams the stored number file. The caller closes the reader.
func (s *Service) RangeFile(ctx context.Context, rangeID string) (*domain.NumberRange, io.ReadCloser, error) {
	nr, err := s.ranges.Get(ctx, rangeID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.files.Download(ctx, nr.FileKey)
	if err != nil {
		return nil, nil, fmt.Errorf("download range file: %w", err)
	}
	return nr, rc, nil
}

// TotalNumbers sums the capacity of every registered range.
func (s *Service) TotalNumbers(ctx context.Context) (int, error) {
	ranges, err := s.ranges.List(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for i := range ranges {
		total += ranges[i].Capacity
	}
	return total, nil
}

func countNumbers(body []byte) int {
	sc := bufio.NewScanner(bytes.NewReader(body))
	count := 0
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) != "" {
			count++
		}
	}
	return count
}
