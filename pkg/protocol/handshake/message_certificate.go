// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

// MaxCertificateChainLength bounds the serialized certificate_list, a
// local policy limit well under the 2^24-1 wire field width.
const MaxCertificateChainLength = (1 << 20)

// MessageCertificate carries a chain of DER-encoded X.509 certificates,
// leaf first, RFC 5246 Section 7.4.2. Chain verification and leaf public
// key extraction happen through the external Crypto Port.
type MessageCertificate struct {
	Certificate [][]byte
}

// Type returns the Handshake Type
func (m MessageCertificate) Type() Type {
	return TypeCertificate
}

// Marshal encodes the Handshake
func (m *MessageCertificate) Marshal() ([]byte, error) {
	out := make([]byte, 3)
	for _, c := range m.Certificate {
		out = append(out, 0, 0, 0)
		putUint24(out[len(out)-3:], uint32(len(c)))
		out = append(out, c...)
	}
	if len(out)-3 > MaxCertificateChainLength {
		return nil, errCertificateChainTooLong
	}
	putUint24(out, uint32(len(out)-3))
	return out, nil
}

// Unmarshal populates the message from encoded data
func (m *MessageCertificate) Unmarshal(data []byte) error {
	if len(data) < 3 {
		return errBufferTooSmall
	}
	declaredLen := int(uint24(data))
	if declaredLen+3 > len(data) {
		return errBufferTooSmall
	}

	body := data[3 : 3+declaredLen]
	m.Certificate = nil
	for len(body) != 0 {
		if len(body) < 3 {
			return errBufferTooSmall
		}
		certLen := int(uint24(body))
		body = body[3:]
		if certLen > len(body) {
			return errBufferTooSmall
		}
		m.Certificate = append(m.Certificate, append([]byte{}, body[:certLen]...))
		body = body[certLen:]
	}
	return nil
}
