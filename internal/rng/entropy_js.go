//go:build js && wasm

package rng

import (
	"encoding/binary"
	"errors"
	"syscall/js"
)

// Backend names the entropy source compiled into this build.
const Backend = "crypto.getRandomValues"

// EntropySeed reads a non-zero seed from the browser's Web Crypto API.
func EntropySeed() (uint64, error) {
	crypto := js.Global().Get("crypto")
	if crypto.IsUndefined() {
		return 0, errors.New("window.crypto is not available")
	}
	arr := js.Global().Get("Uint8Array").New(8)
	crypto.Call("getRandomValues", arr)
	var buf [8]byte
	js.CopyBytesToGo(buf[:], arr)
	return binary.LittleEndian.Uint64(buf[:]) | 1, nil
}
