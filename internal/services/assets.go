package services

import (
	"context"
	"crypto/sha256"

	"github.com/gabriel-vasile/mimetype"

	"github.com/chalkcast/appserver/internal/domain"
	"github.com/chalkcast/appserver/internal/platform/apierr"
	"github.com/chalkcast/appserver/internal/platform/logger"
	"github.com/chalkcast/appserver/internal/store/blob"
	"github.com/chalkcast/appserver/internal/store/ephemeral"
)

// MaxUploadSize bounds every binary upload handled by the asset store.
const MaxUploadSize = 30_000_000

// Deletion-candidate kinds. Each kind has its own pending set so the
// reaper can apply per-kind reference checks.
const (
	DeletionKindNotebook = "ipynb"
	DeletionKindPDF      = "pdf"
)

const pendingDeletionPrefix = "checkdel:"

// IngestResult is the verified identity of stored bytes.
type IngestResult struct {
	Sha      domain.ContentHash
	MimeType string
}

// AssetService is the content-addressed asset store. It computes content
// hashes itself, deduplicates storage via the blob collaborator and
// records garbage-collection candidates for the external reaper. It never
// deletes bytes inline: a hash may be referenced from several lectures.
type AssetService interface {
	Ingest(ctx context.Context, data []byte, declaredMime string, allowed []string, maxSize int) (IngestResult, error)
	IngestPicture(ctx context.Context, name string, picture, thumbnail []byte, declaredMime string) (domain.Asset, error)
	MarkForDeletion(ctx context.Context, kind string, sha domain.ContentHash) error
	URLFor(sha domain.ContentHash, mimeType string) string
}

type assetService struct {
	log   *logger.Logger
	blobs blob.Store
	eph   ephemeral.Store
}

func NewAssetService(log *logger.Logger, blobs blob.Store, eph ephemeral.Store) AssetService {
	return &assetService{
		log:   log.With("service", "AssetService"),
		blobs: blobs,
		eph:   eph,
	}
}

func (as *assetService) Ingest(ctx context.Context, data []byte, declaredMime string, allowed []string, maxSize int) (IngestResult, error) {
	if len(data) == 0 {
		return IngestResult{}, apierr.Malformed("empty payload")
	}
	if maxSize > 0 && len(data) > maxSize {
		return IngestResult{}, apierr.Malformed("payload too large")
	}
	if !containsString(allowed, declaredMime) {
		return IngestResult{}, apierr.Malformed("unsupported mime type")
	}

	// Binary formats sniff reliably; when the bytes identify as a
	// different allowed type, trust the bytes over the caller. Text-based
	// formats (notebooks) sniff as generic json/text and keep the
	// declared type.
	mime := declaredMime
	if sniffed := mimetype.Detect(data); !sniffed.Is(declaredMime) && mimetype.EqualsAny(sniffed.String(), allowed...) {
		mime = sniffed.String()
	}

	sum := sha256.Sum256(data)
	sha := domain.ContentHash(sum[:])
	if err := as.blobs.Save(ctx, data, sha, mime); err != nil {
		return IngestResult{}, apierr.StoreFailure(err)
	}
	return IngestResult{Sha: sha, MimeType: mime}, nil
}

// IngestPicture stores a picture together with its thumbnail and returns
// the asset tuple. The tuple's field order is load-bearing: the document
// store deduplicates pictures structurally, so the serialized shape must
// be identical across uploads of the same content.
func (as *assetService) IngestPicture(ctx context.Context, name string, picture, thumbnail []byte, declaredMime string) (domain.Asset, error) {
	if name == "" {
		return domain.Asset{}, apierr.Malformed("missing filename")
	}
	allowed := []string{"image/jpeg", "image/png"}
	pict, err := as.Ingest(ctx, picture, declaredMime, allowed, MaxUploadSize)
	if err != nil {
		return domain.Asset{}, err
	}
	thumb, err := as.Ingest(ctx, thumbnail, declaredMime, allowed, MaxUploadSize)
	if err != nil {
		return domain.Asset{}, err
	}
	return domain.Asset{
		Name:     name,
		MimeType: pict.MimeType,
		Sha:      pict.Sha,
		ThumbSha: thumb.Sha,
	}, nil
}

func (as *assetService) MarkForDeletion(ctx context.Context, kind string, sha domain.ContentHash) error {
	if sha.IsZero() {
		return nil
	}
	if err := as.eph.SAdd(ctx, pendingDeletionPrefix+kind, sha.Hex()); err != nil {
		return apierr.StoreFailure(err)
	}
	as.log.Debug("marked asset for deferred deletion", "kind", kind, "sha", sha.Hex())
	return nil
}

func (as *assetService) URLFor(sha domain.ContentHash, mimeType string) string {
	return as.blobs.URLFor(sha, mimeType)
}

func containsString(list []string, s string) bool {
	for _, el := range list {
		if el == s {
			return true
		}
	}
	return false
}
