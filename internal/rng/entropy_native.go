//go:build !js

package rng

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// Backend names the entropy source compiled into this build.
const Backend = "crypto/rand"

// EntropySeed reads a non-zero seed from the operating system.
func EntropySeed() (uint64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("read entropy: %w", err)
	}
	return binary.LittleEndian.Uint64(buf[:]) | 1, nil
}
