package util

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// idBytes gives 128 bits of entropy, enough that ids minted on the client
// and on the server never collide.
const idBytes = 16

// NewID mints a random identifier, prefixed like "art_3f2a..." so an id read
// from a log line names its table. An empty prefix yields the bare hex.
func NewID(prefix string) string {
	buf := make([]byte, idBytes)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process cannot mint safe ids
		// at all.
		panic(fmt.Sprintf("util: read random bytes: %v", err))
	}
	id := hex.EncodeToString(buf)
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}
