package respcache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"strconv"
)

// Fingerprint is a deterministic hash of a normalized chat request, used as
// the cache key. The cache treats it as an opaque comparable value and never
// recomputes or validates it.
type Fingerprint string

// Message is one (role, content) pair of a conversation, in order.
type Message struct {
	Role    string
	Content string
}

// GenerationParams are the request parameters that affect model output and
// therefore must be part of the fingerprint. Parameters that do not change
// the output, such as trace or request ids, must be excluded by the caller.
type GenerationParams struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// FingerprintRequest computes the cache key for a conversation and its
// generation parameters.
//
// The canonical serialization is a length-prefixed field stream, so no
// separator can collide with message content: two requests produce the same
// fingerprint only if every role, every content string, and every
// output-affecting parameter match. The hash is SHA-256.
func FingerprintRequest(messages []Message, params GenerationParams) Fingerprint {
	h := sha256.New()

	writeField(h, params.Model)
	writeField(h, strconv.FormatFloat(float64(params.Temperature), 'g', -1, 32))
	writeField(h, strconv.Itoa(params.MaxTokens))

	for _, m := range messages {
		writeField(h, m.Role)
		writeField(h, m.Content)
	}

	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

// writeField writes a length-prefixed string into the hash.
func writeField(h hash.Hash, s string) {
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(s)))
	h.Write(lenBuf[:])
	h.Write([]byte(s))
}
