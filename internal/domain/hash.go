package domain

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// ContentHash is a raw 32-byte SHA-256 digest. Hashes stay raw inside the
// system and become lowercase hex strings only at the API boundary.
type ContentHash []byte

const contentHashLen = 32

func ParseContentHash(s string) (ContentHash, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("content hash is not hex: %w", err)
	}
	if len(raw) != contentHashLen {
		return nil, fmt.Errorf("content hash has %d bytes, want %d", len(raw), contentHashLen)
	}
	return ContentHash(raw), nil
}

func (h ContentHash) Hex() string {
	return hex.EncodeToString(h)
}

func (h ContentHash) IsZero() bool {
	return len(h) == 0
}

func (h ContentHash) Equal(other ContentHash) bool {
	if len(h) != len(other) {
		return false
	}
	for i := range h {
		if h[i] != other[i] {
			return false
		}
	}
	return true
}

func (h ContentHash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Hex())
}

func (h *ContentHash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseContentHash(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
