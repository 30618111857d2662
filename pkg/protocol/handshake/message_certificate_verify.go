// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import (
	"encoding/binary"

	"github.com/censys-oss/tlsengine/pkg/protocol/extension"
)

// MessageCertificateVerify proves possession of the private key
// corresponding to the client's certificate by signing the handshake
// transcript so far, RFC 5246 Section 7.4.8. The signed transcript
// excludes CertificateVerify itself and everything after it.
type MessageCertificateVerify struct {
	AlgorithmHash extension.HashAlgorithm
	AlgorithmSignature extension.SignatureAlgorithm
	Signature []byte
}

// Type returns the Handshake Type
func (m MessageCertificateVerify) Type() Type {
	return TypeCertificateVerify
}

// Marshal encodes the Handshake
func (m *MessageCertificateVerify) Marshal() ([]byte, error) {
	out := []byte{byte(m.AlgorithmHash), byte(m.AlgorithmSignature), 0, 0}
	binary.BigEndian.PutUint16(out[2:], uint16(len(m.Signature)))
	return append(out, m.Signature...), nil
}

// Unmarshal populates the message from encoded data
func (m *MessageCertificateVerify) Unmarshal(data []byte) error {
	if len(data) < 4 {
		return errBufferTooSmall
	}
	m.AlgorithmHash = extension.HashAlgorithm(data[0])
	m.AlgorithmSignature = extension.SignatureAlgorithm(data[1])
	n := int(binary.BigEndian.Uint16(data[2:]))
	if len(data) < 4+n {
		return errBufferTooSmall
	}
	m.Signature = append([]byte{}, data[4:4+n]...)
	return nil
}
