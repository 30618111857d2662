// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import (
	"encoding/binary"
	"time"
)

// RandomLength is the length of a Random's random_bytes, RFC 5246 Section
// 7.4.1.2. Combined with the 4-byte GMT timestamp this yields the 32
// bytes the RFC requires.
const RandomLength = 28

// RandomBytesLength is the total wire size of a Random (4 + 28 = 32).
const RandomBytesLength = RandomLength + 4

// Random is ClientHello.random / ServerHello.random. The first four bytes
// are historically a GMT Unix timestamp (RFC 5246 treats this as an
// opaque 32-byte field in practice; this engine still produces/consumes
// the timestamp-prefixed layout for wire compatibility with common
// implementations).
type Random struct {
	GMTUnixTime time.Time
	RandomBytes [RandomLength]byte
}

// MarshalFixed encodes the Random to its fixed 32-byte wire form.
func (r *Random) MarshalFixed() [RandomBytesLength]byte {
	var out [RandomBytesLength]byte
	binary.BigEndian.PutUint32(out[0:4], uint32(r.GMTUnixTime.Unix()))
	copy(out[4:], r.RandomBytes[:])
	return out
}

// UnmarshalFixed populates the Random from its fixed 32-byte wire form.
func (r *Random) UnmarshalFixed(data [RandomBytesLength]byte) {
	r.GMTUnixTime = time.Unix(int64(binary.BigEndian.Uint32(data[0:4])), 0)
	copy(r.RandomBytes[:], data[4:])
}
