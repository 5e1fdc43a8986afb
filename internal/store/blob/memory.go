package blob

import (
	"context"
	"fmt"
	"sync"

	"github.com/chalkcast/appserver/internal/domain"
)

// Memory is an in-process Store that counts physical writes, so tests can
// observe that deduplicated ingests hit the backend at most once.
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte
	writes  int
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

func (m *Memory) Save(ctx context.Context, data []byte, sha domain.ContentHash, mimeType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := ObjectKey(sha, mimeType)
	if _, ok := m.objects[key]; ok {
		return nil
	}
	m.objects[key] = append([]byte(nil), data...)
	m.writes++
	return nil
}

func (m *Memory) URLFor(sha domain.ContentHash, mimeType string) string {
	return fmt.Sprintf("https://blob.invalid/%s", ObjectKey(sha, mimeType))
}

// WriteCount reports how many physical writes happened.
func (m *Memory) WriteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Has reports whether bytes are stored under the hash.
func (m *Memory) Has(sha domain.ContentHash, mimeType string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[ObjectKey(sha, mimeType)]
	return ok
}
