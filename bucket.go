package storecrawl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"github.com/gabriel-vasile/mimetype"
	"google.golang.org/api/option"
)

// GCSSessionStore keeps snapshots as objects in a Google Cloud Storage
// bucket, for deployments where crawler hosts are ephemeral.
type GCSSessionStore struct {
	client *storage.Client
	bucket string
	prefix string
}

func NewGCSSessionStore(bucketName, prefix, credentialsPath string) (*GCSSessionStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSSessionStore{client: client, bucket: bucketName, prefix: prefix}, nil
}

func (s *GCSSessionStore) object(key string) *storage.ObjectHandle {
	name := key
	if s.prefix != "" {
		name = s.prefix + "/" + key
	}
	return s.client.Bucket(s.bucket).Object(name)
}

func (s *GCSSessionStore) Exists(key string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := s.object(key).Attrs(ctx)
	return err == nil
}

func (s *GCSSessionStore) Read(key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	reader, err := s.object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not read session %s: %w", key, err)
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

func (s *GCSSessionStore) Write(key string, data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	writer := s.object(key).NewWriter(ctx)
	writer.ContentType = mimetype.Detect(data).String()
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return fmt.Errorf("could not write session %s: %w", key, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("could not finish writing session %s: %w", key, err)
	}
	return nil
}

// Delete is idempotent; a missing object is not an error.
func (s *GCSSessionStore) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := s.object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

func (s *GCSSessionStore) ModTime(key string) (time.Time, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	attrs, err := s.object(key).Attrs(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return attrs.Updated, nil
}

// Close releases the underlying client.
func (s *GCSSessionStore) Close() error {
	return s.client.Close()
}
