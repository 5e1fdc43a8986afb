package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"testing"

	"github.com/chalkcast/appserver/internal/domain"
	"github.com/chalkcast/appserver/internal/platform/apierr"
	"github.com/chalkcast/appserver/internal/store/blob"
	"github.com/chalkcast/appserver/internal/store/ephemeral"
)

var (
	pngBytes  = append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, bytes.Repeat([]byte{0}, 64)...)
	jpegBytes = append([]byte{0xff, 0xd8, 0xff, 0xe0}, bytes.Repeat([]byte{1}, 64)...)
)

func testAssetService(t *testing.T) (AssetService, *blob.Memory, *ephemeral.Memory) {
	t.Helper()
	blobs := blob.NewMemory()
	eph := ephemeral.NewMemory()
	return NewAssetService(mustTestLogger(t), blobs, eph), blobs, eph
}

func TestIngestDeduplicatesWrites(t *testing.T) {
	as, blobs, _ := testAssetService(t)
	ctx := context.Background()
	allowed := []string{"image/png"}

	first, err := as.Ingest(ctx, pngBytes, "image/png", allowed, MaxUploadSize)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	second, err := as.Ingest(ctx, pngBytes, "image/png", allowed, MaxUploadSize)
	if err != nil {
		t.Fatalf("Ingest again: %v", err)
	}
	if !first.Sha.Equal(second.Sha) {
		t.Fatalf("hashes differ for identical bytes")
	}
	want := sha256.Sum256(pngBytes)
	if !first.Sha.Equal(domain.ContentHash(want[:])) {
		t.Fatalf("hash is not sha256 of the payload")
	}
	if blobs.WriteCount() != 1 {
		t.Fatalf("writes = %d, want 1", blobs.WriteCount())
	}
}

func TestIngestValidation(t *testing.T) {
	as, _, _ := testAssetService(t)
	ctx := context.Background()
	allowed := []string{"image/png", "image/jpeg"}

	if _, err := as.Ingest(ctx, nil, "image/png", allowed, MaxUploadSize); !apierr.IsCode(err, apierr.CodeMalformedInput) {
		t.Fatalf("empty payload: err = %v, want malformed_input", err)
	}
	if _, err := as.Ingest(ctx, pngBytes, "image/png", allowed, 8); !apierr.IsCode(err, apierr.CodeMalformedInput) {
		t.Fatalf("oversize payload: err = %v, want malformed_input", err)
	}
	if _, err := as.Ingest(ctx, pngBytes, "application/zip", allowed, MaxUploadSize); !apierr.IsCode(err, apierr.CodeMalformedInput) {
		t.Fatalf("disallowed mime: err = %v, want malformed_input", err)
	}
}

func TestIngestTrustsSniffedBinaryType(t *testing.T) {
	as, _, _ := testAssetService(t)
	allowed := []string{"image/png", "image/jpeg"}

	// declared jpeg, bytes are png: the bytes win
	res, err := as.Ingest(context.Background(), pngBytes, "image/jpeg", allowed, MaxUploadSize)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.MimeType != "image/png" {
		t.Fatalf("mime = %q, want image/png", res.MimeType)
	}
}

func TestIngestKeepsDeclaredTypeForNotebooks(t *testing.T) {
	as, _, _ := testAssetService(t)
	data := []byte(`{"cells":[],"nbformat":4,"nbformat_minor":5}`)
	allowed := []string{"application/x-ipynb+json"}

	res, err := as.Ingest(context.Background(), data, "application/x-ipynb+json", allowed, MaxUploadSize)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.MimeType != "application/x-ipynb+json" {
		t.Fatalf("mime = %q, want declared notebook type", res.MimeType)
	}
}

func TestIngestPictureStoresPairInOrder(t *testing.T) {
	as, blobs, _ := testAssetService(t)

	asset, err := as.IngestPicture(context.Background(), "board.png", pngBytes, jpegBytes, "image/png")
	if err != nil {
		t.Fatalf("IngestPicture: %v", err)
	}
	if asset.Name != "board.png" {
		t.Fatalf("name = %q", asset.Name)
	}
	if asset.Sha.IsZero() || asset.ThumbSha.IsZero() {
		t.Fatalf("asset hashes missing: %+v", asset)
	}
	if asset.Sha.Equal(asset.ThumbSha) {
		t.Fatalf("picture and thumbnail share a hash for different bytes")
	}
	if blobs.WriteCount() != 2 {
		t.Fatalf("writes = %d, want 2", blobs.WriteCount())
	}
}

func TestMarkForDeletion(t *testing.T) {
	as, _, eph := testAssetService(t)
	ctx := context.Background()
	sha := hashOf(0xab)

	if err := as.MarkForDeletion(ctx, DeletionKindPDF, sha); err != nil {
		t.Fatalf("MarkForDeletion: %v", err)
	}
	// marking twice keeps set semantics
	if err := as.MarkForDeletion(ctx, DeletionKindPDF, sha); err != nil {
		t.Fatalf("MarkForDeletion again: %v", err)
	}
	members, err := eph.SMembers(ctx, "checkdel:pdf")
	if err != nil {
		t.Fatalf("SMembers: %v", err)
	}
	if len(members) != 1 || members[0] != sha.Hex() {
		t.Fatalf("pending set = %v", members)
	}

	if err := as.MarkForDeletion(ctx, DeletionKindNotebook, nil); err != nil {
		t.Fatalf("MarkForDeletion zero hash: %v", err)
	}
	if n, _ := eph.SCard(ctx, "checkdel:ipynb"); n != 0 {
		t.Fatalf("zero hash was enqueued")
	}
}
