package channel

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
)

var errKeyAllZero = errors.New("key must not be all zero")

// ParseKey decodes a 256-bit key given as hex or base64. The returned error
// never echoes the input.
func ParseKey(raw string) ([]byte, error) {
	if raw == "" {
		return nil, errors.New("key is empty")
	}

	key, ok := decodeKey(raw)
	if !ok {
		return nil, fmt.Errorf("key must decode (hex or base64) to exactly %d bytes", KeySize)
	}
	if bytes.Equal(key, make([]byte, KeySize)) {
		return nil, errKeyAllZero
	}
	return key, nil
}

func decodeKey(raw string) ([]byte, bool) {
	if len(raw) == hex.EncodedLen(KeySize) {
		if key, err := hex.DecodeString(raw); err == nil {
			return key, true
		}
	}

	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		if key, err := enc.DecodeString(raw); err == nil && len(key) == KeySize {
			return key, true
		}
	}
	return nil, false
}
