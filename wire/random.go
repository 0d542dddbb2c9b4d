package wire

import "crypto/rand"

// RandomSource is the byte-level random source external collaborator
// named in §1, consumed only when this server plays the WebSocket client
// role (test harnesses, §3 "role (Server|Client for test contexts)") and
// needs to generate a masking key for an outgoing frame.
type RandomSource interface {
	Read(p []byte) (n int, err error)
}

// CryptoRandSource is the default RandomSource, backed by crypto/rand.
type CryptoRandSource struct{}

func (CryptoRandSource) Read(p []byte) (int, error) { return rand.Read(p) }
