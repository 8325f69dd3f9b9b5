package state

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/imamik/searchstack/internal/platform/s3"
)

// ObjectClient is the object storage used by S3Store.
type ObjectClient interface {
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	PutObject(ctx context.Context, bucket, key string, data []byte) error
}

// S3Store keeps one JSON object per stack under a key prefix.
type S3Store struct {
	client ObjectClient
	bucket string
	prefix string
	mu     sync.Mutex
	now    func() time.Time
}

// NewS3Store returns a store writing to bucket/prefix.
func NewS3Store(client ObjectClient, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: prefix, now: time.Now}
}

func (s *S3Store) key(stack string) string {
	return path.Join(s.prefix, stack+".json")
}

// Load implements Store.
func (s *S3Store) Load(ctx context.Context, stack string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(ctx, stack)
}

func (s *S3Store) read(ctx context.Context, stack string) (*Snapshot, error) {
	data, err := s.client.GetObject(ctx, s.bucket, s.key(stack))
	if errors.Is(err, s3.ErrObjectNotFound) {
		return NewSnapshot(stack), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	return Decode(data)
}

// Save implements Store.
func (s *S3Store) Save(ctx context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.read(ctx, snap.Stack)
	if err != nil {
		return err
	}
	if existing.Serial > 0 {
		if err := checkLineage(existing, snap); err != nil {
			return fmt.Errorf("%w: s3://%s/%s", err, s.bucket, s.key(snap.Stack))
		}
	}

	snap.Serial++
	snap.UpdatedAt = s.now().UTC()
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	return s.client.PutObject(ctx, s.bucket, s.key(snap.Stack), data)
}

// Close implements Store.
func (s *S3Store) Close() error { return nil }
