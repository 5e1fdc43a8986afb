package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/chalkcast/appserver/internal/domain"
	"github.com/chalkcast/appserver/internal/platform/logger"
)

type gcsStore struct {
	log        *logger.Logger
	client     *storage.Client
	bucketName string
	cdnDomain  string
}

// NewGCS builds the byte-persistence collaborator on a GCS bucket. The
// credentials file path is optional; without it the client falls back to
// application default credentials.
func NewGCS(log *logger.Logger, bucketName, cdnDomain, credentialsFile string) (Store, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if bucketName == "" {
		return nil, fmt.Errorf("missing bucket name")
	}
	serviceLog := log.With("service", "BlobStore")
	ctx := context.Background()
	var client *storage.Client
	var err error
	if credentialsFile != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsFile(credentialsFile), option.WithScopes(storage.ScopeReadWrite))
	} else {
		serviceLog.Warn("no credentials file configured, relying on application default credentials")
		client, err = storage.NewClient(ctx, option.WithScopes(storage.ScopeReadWrite))
	}
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &gcsStore{
		log:        serviceLog,
		client:     client,
		bucketName: bucketName,
		cdnDomain:  cdnDomain,
	}, nil
}

func (s *gcsStore) Save(ctx context.Context, data []byte, sha domain.ContentHash, mimeType string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	obj := s.client.Bucket(s.bucketName).Object(ObjectKey(sha, mimeType))

	// Content addressing makes re-saves no-ops: same hash, same bytes.
	_, err := obj.Attrs(ctx)
	if err == nil {
		s.log.Debug("blob already stored", "sha", sha.Hex())
		return nil
	}
	if !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("check blob %q: %w", sha.Hex(), err)
	}

	w := obj.NewWriter(ctx)
	w.ContentType = mimeType
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("write blob %q: %w", sha.Hex(), err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close blob writer %q: %w", sha.Hex(), err)
	}
	return nil
}

func (s *gcsStore) URLFor(sha domain.ContentHash, mimeType string) string {
	key := ObjectKey(sha, mimeType)
	if s.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.cdnDomain, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucketName, key)
}
