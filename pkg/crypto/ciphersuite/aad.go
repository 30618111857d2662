// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package ciphersuite

import (
	"encoding/binary"

	"github.com/censys-oss/tlsengine/pkg/protocol/recordlayer"
)

// generateAEADAdditionalData builds the MAC/AEAD additional_data input
// common to GCM and CBC-with-HMAC protection, RFC 5246 Section 6.2.3.3:
// an 8-byte sequence number field, the content type, the record version
// and the plaintext length. For DTLS the sequence number field is the
// 2-byte epoch followed by the 48-bit record sequence number (RFC 6347
// Section 4.1.2.1); for TLS it is the 64-bit implicit sequence counter.
func generateAEADAdditionalData(h recordlayer.Header, payloadLen int) []byte {
	var additionalData [13]byte
	if h.IsDTLS {
		binary.BigEndian.PutUint16(additionalData[0:], h.Epoch)
		putBigEndianUint48(additionalData[2:], h.SequenceNumber)
	} else {
		binary.BigEndian.PutUint64(additionalData[0:], h.SequenceNumber)
	}
	additionalData[8] = byte(h.ContentType)
	additionalData[9] = h.Version.Major
	additionalData[10] = h.Version.Minor
	binary.BigEndian.PutUint16(additionalData[11:], uint16(payloadLen))
	return additionalData[:]
}

func putBigEndianUint48(b []byte, v uint64) {
	b[0] = byte(v >> 40)
	b[1] = byte(v >> 32)
	b[2] = byte(v >> 24)
	b[3] = byte(v >> 16)
	b[4] = byte(v >> 8)
	b[5] = byte(v)
}
