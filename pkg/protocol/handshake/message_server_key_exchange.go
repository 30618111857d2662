// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import (
	"encoding/binary"

	"github.com/censys-oss/tlsengine/pkg/protocol/extension"
)

// ECCurveType identifies the curve parameterization style, RFC 4492
// Section 5.4. This engine only ever uses named_curve.
const ecCurveTypeNamedCurve = 3

// MessageServerKeyExchange carries the server's ephemeral key-exchange
// material. Exactly one of two shapes applies, depending on the
// negotiated cipher suite's Kex:
// - PSK: IdentityHint only.
// - ECDHE: NamedCurve/PublicKey plus an Ed25519 signature over
// client_random || server_random || ECParams || PublicKey,
// RFC 4492 Section 5.4 / RFC 8422.
type MessageServerKeyExchange struct {
	IsPSK bool

	IdentityHint []byte

	NamedCurve extension.NamedCurve
	PublicKey []byte

	AlgorithmHash extension.HashAlgorithm
	AlgorithmSignature extension.SignatureAlgorithm
	Signature []byte
}

// Type returns the Handshake Type
func (m MessageServerKeyExchange) Type() Type {
	return TypeServerKeyExchange
}

// Marshal encodes the Handshake
func (m *MessageServerKeyExchange) Marshal() ([]byte, error) {
	if m.IsPSK {
		out := []byte{0, 0}
		binary.BigEndian.PutUint16(out, uint16(len(m.IdentityHint)))
		return append(out, m.IdentityHint...), nil
	}

	out := []byte{ecCurveTypeNamedCurve, 0, 0}
	binary.BigEndian.PutUint16(out[1:], uint16(m.NamedCurve))
	out = append(out, byte(len(m.PublicKey)))
	out = append(out, m.PublicKey...)
	out = append(out, byte(m.AlgorithmHash), byte(m.AlgorithmSignature), 0, 0)
	binary.BigEndian.PutUint16(out[len(out)-2:], uint16(len(m.Signature)))
	return append(out, m.Signature...), nil
}

// Unmarshal populates the message from encoded data. Because ServerKeyExchange
// has no self-describing discriminator, the caller must set IsPSK before
// calling to select the decode shape; the negotiated cipher suite's Kex
// determines which shape applies.
func (m *MessageServerKeyExchange) Unmarshal(data []byte) error {
	if m.IsPSK {
		if len(data) < 2 {
			return errBufferTooSmall
		}
		n := int(binary.BigEndian.Uint16(data))
		if len(data) < 2+n {
			return errBufferTooSmall
		}
		m.IdentityHint = append([]byte{}, data[2:2+n]...)
		return nil
	}

	if len(data) < 3 {
		return errBufferTooSmall
	}
	if data[0] != ecCurveTypeNamedCurve {
		return errInvalidNamedCurve
	}
	m.NamedCurve = extension.NamedCurve(binary.BigEndian.Uint16(data[1:]))
	if m.NamedCurve != extension.X25519 {
		return errInvalidNamedCurve
	}
	offset := 3

	if len(data) <= offset {
		return errBufferTooSmall
	}
	pkLen := int(data[offset])
	offset++
	if len(data) < offset+pkLen {
		return errBufferTooSmall
	}
	m.PublicKey = append([]byte{}, data[offset:offset+pkLen]...)
	offset += pkLen

	if len(data) < offset+4 {
		return errBufferTooSmall
	}
	m.AlgorithmHash = extension.HashAlgorithm(data[offset])
	m.AlgorithmSignature = extension.SignatureAlgorithm(data[offset+1])
	sigLen := int(binary.BigEndian.Uint16(data[offset+2:]))
	offset += 4
	if len(data) < offset+sigLen {
		return errBufferTooSmall
	}
	m.Signature = append([]byte{}, data[offset:offset+sigLen]...)
	return nil
}

// SignedParams returns the byte string the server signs/the client
// verifies for an ECDHE ServerKeyExchange: client_random || server_random
// || ECParams || PublicKey.
func (m *MessageServerKeyExchange) SignedParams(clientRandom, serverRandom [RandomBytesLength]byte) []byte {
	ecParams := []byte{ecCurveTypeNamedCurve, 0, 0}
	binary.BigEndian.PutUint16(ecParams[1:], uint16(m.NamedCurve))

	out := append([]byte{}, clientRandom[:]...)
	out = append(out, serverRandom[:]...)
	out = append(out, ecParams...)
	out = append(out, byte(len(m.PublicKey)))
	out = append(out, m.PublicKey...)
	return out
}
