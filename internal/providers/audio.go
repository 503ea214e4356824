package providers

import (
	"encoding/base64"
	"fmt"
)

// The realtime provider carries audio as base64 text frames. Keeping the
// codec here means the bridge never sees the wire encoding.

// EncodeAudio encodes raw audio bytes for the realtime wire.
func EncodeAudio(pcm []byte) string {
	return base64.StdEncoding.EncodeToString(pcm)
}

// DecodeAudio decodes a realtime audio payload back into raw bytes.
func DecodeAudio(encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio chunk: %w", err)
	}
	return data, nil
}
