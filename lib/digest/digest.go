// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package digest

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/cryptoevents/lib/codec"
)

// Fingerprint is a 32-byte BLAKE3 digest of a payload.
type Fingerprint [32]byte

// payloadDomainKey separates payload fingerprints from any other BLAKE3
// use of the same bytes. Changing it changes every fingerprint.
var payloadDomainKey = [32]byte{
	'b', 'u', 'r', 'e', 'a', 'u', '.', 'c', 'r', 'y', 'p', 't', 'o', 'e', 'v', 'e',
	'n', 't', 's', '.', 'p', 'a', 'y', 'l', 'o', 'a', 'd', 0, 0, 0, 0, 0,
}

// Payload returns the fingerprint of a decoded payload. The payload is
// encoded with lib/codec's deterministic CBOR mode before hashing.
func Payload(payload any) (Fingerprint, error) {
	data, err := codec.Marshal(payload)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("encoding payload for fingerprint: %w", err)
	}
	return Bytes(data), nil
}

// Bytes returns the fingerprint of already-encoded data.
func Bytes(data []byte) Fingerprint {
	hasher, err := blake3.NewKeyed(payloadDomainKey[:])
	if err != nil {
		// NewKeyed only fails for keys that are not 32 bytes.
		panic("digest: BLAKE3 keyed hasher: " + err.Error())
	}
	_, _ = hasher.Write(data)
	var fingerprint Fingerprint
	copy(fingerprint[:], hasher.Sum(nil))
	return fingerprint
}

// String returns the lowercase hex form of the fingerprint.
func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// Short returns the first 12 hex characters, enough to correlate log
// lines by eye.
func (f Fingerprint) Short() string {
	return f.String()[:12]
}

// LogValue returns the short form for log attributes. Any failure to
// fingerprint is reported as "unavailable" rather than dropping the log
// line.
func LogValue(payload any) string {
	fingerprint, err := Payload(payload)
	if err != nil {
		return "unavailable"
	}
	return fingerprint.Short()
}
