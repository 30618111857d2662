// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import "encoding/binary"

// MessageClientKeyExchange carries the client's half of the key exchange,
// RFC 5246 Section 7.4.7. Exactly one of the two shapes applies, selected
// by the negotiated cipher suite's Kex:
// - PSK: PSKIdentity is the client's PSK identity, which the server
// resolves to a key through the Crypto Port's ResolvePSK.
// - ECDHE: PublicKey is the client's X25519 ephemeral public key.
type MessageClientKeyExchange struct {
	IsPSK bool

	PSKIdentity []byte
	PublicKey []byte
}

// Type returns the Handshake Type
func (m MessageClientKeyExchange) Type() Type {
	return TypeClientKeyExchange
}

// Marshal encodes the Handshake
func (m *MessageClientKeyExchange) Marshal() ([]byte, error) {
	if m.IsPSK {
		out := []byte{0, 0}
		binary.BigEndian.PutUint16(out, uint16(len(m.PSKIdentity)))
		return append(out, m.PSKIdentity...), nil
	}
	return append([]byte{byte(len(m.PublicKey))}, m.PublicKey...), nil
}

// Unmarshal populates the message from encoded data. As with
// ServerKeyExchange, the caller sets IsPSK from negotiation context before
// calling.
func (m *MessageClientKeyExchange) Unmarshal(data []byte) error {
	if m.IsPSK {
		if len(data) < 2 {
			return errBufferTooSmall
		}
		n := int(binary.BigEndian.Uint16(data))
		if len(data) < 2+n {
			return errBufferTooSmall
		}
		m.PSKIdentity = append([]byte{}, data[2:2+n]...)
		return nil
	}

	if len(data) < 1 {
		return errBufferTooSmall
	}
	n := int(data[0])
	if len(data) < 1+n {
		return errBufferTooSmall
	}
	m.PublicKey = append([]byte{}, data[1:1+n]...)
	return nil
}
