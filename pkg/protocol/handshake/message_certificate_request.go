// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import "github.com/censys-oss/tlsengine/pkg/protocol/extension"

// ClientCertificateType identifies the kind of certificate the server will
// accept from the client, RFC 5246 Section 7.4.4.
type ClientCertificateType byte

// ClientCertificateType enums (only the value this engine's Ed25519/ECDHE
// suites can use)
const (
	ClientCertificateTypeECDSASign ClientCertificateType = 64
)

// MessageCertificateRequest asks the client to authenticate with a
// certificate, RFC 5246 Section 7.4.4. Receiving this message during the
// client's happy path marks client authentication as
// required for the rest of the flight.
type MessageCertificateRequest struct {
	CertificateTypes []ClientCertificateType
	SignatureHashAlgorithms []extension.SignatureHashAlgorithm
}

// Type returns the Handshake Type
func (m MessageCertificateRequest) Type() Type {
	return TypeCertificateRequest
}

// Marshal encodes the Handshake
func (m *MessageCertificateRequest) Marshal() ([]byte, error) {
	out := []byte{byte(len(m.CertificateTypes))}
	for _, c := range m.CertificateTypes {
		out = append(out, byte(c))
	}

	out = append(out, 0, 0)
	sigAlgStart := len(out)
	for _, a := range m.SignatureHashAlgorithms {
		out = append(out, byte(a.Hash), byte(a.Signature))
	}
	sigAlgLen := len(out) - sigAlgStart
	out[sigAlgStart-2] = byte(sigAlgLen >> 8)
	out[sigAlgStart-1] = byte(sigAlgLen)

	// distinguished_names: always empty (this engine never filters by CA name).
	out = append(out, 0, 0)
	return out, nil
}

// Unmarshal populates the message from encoded data
func (m *MessageCertificateRequest) Unmarshal(data []byte) error {
	if len(data) < 1 {
		return errBufferTooSmall
	}
	n := int(data[0])
	offset := 1
	if len(data) < offset+n {
		return errBufferTooSmall
	}
	m.CertificateTypes = nil
	for i := 0; i < n; i++ {
		m.CertificateTypes = append(m.CertificateTypes, ClientCertificateType(data[offset+i]))
	}
	offset += n

	if len(data) < offset+2 {
		return errBufferTooSmall
	}
	sigAlgLen := int(data[offset])<<8 | int(data[offset+1])
	offset += 2
	if sigAlgLen%2 != 0 || len(data) < offset+sigAlgLen {
		return errBufferTooSmall
	}
	m.SignatureHashAlgorithms = nil
	for i := 0; i < sigAlgLen; i += 2 {
		m.SignatureHashAlgorithms = append(m.SignatureHashAlgorithms, extension.SignatureHashAlgorithm{
			Hash: extension.HashAlgorithm(data[offset+i]),
			Signature: extension.SignatureAlgorithm(data[offset+i+1]),
		})
	}
	offset += sigAlgLen

	if len(data) < offset+2 {
		return errBufferTooSmall
	}
	// distinguished_names length is read but ignored; this engine does not
	// filter candidate client certificates by issuer name.
	return nil
}
