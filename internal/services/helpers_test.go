package services

import (
	"testing"

	"github.com/chalkcast/appserver/internal/domain"
	"github.com/chalkcast/appserver/internal/platform/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func hashOf(b byte) domain.ContentHash {
	h := make([]byte, 32)
	for i := range h {
		h[i] = b
	}
	return domain.ContentHash(h)
}
