// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import "github.com/censys-oss/tlsengine/pkg/protocol"

// MessageHelloVerifyRequest is sent by a DTLS server in response to a
// ClientHello carrying no (or an invalid) cookie, RFC 6347 Section 4.2.1.
// It is a DoS-mitigation device: the server does not allocate per-client
// state nor advance its message-sequence counter for it.
type MessageHelloVerifyRequest struct {
	Version protocol.Version
	Cookie []byte
}

// Type returns the Handshake Type
func (m MessageHelloVerifyRequest) Type() Type {
	return TypeHelloVerifyRequest
}

// Marshal encodes the Handshake
func (m *MessageHelloVerifyRequest) Marshal() ([]byte, error) {
	if len(m.Cookie) > MaxCookieLength {
		return nil, ErrCookieTooLong
	}
	out := []byte{m.Version.Major, m.Version.Minor, byte(len(m.Cookie))}
	return append(out, m.Cookie...), nil
}

// Unmarshal populates the message from encoded data
func (m *MessageHelloVerifyRequest) Unmarshal(data []byte) error {
	if len(data) < 3 {
		return errBufferTooSmall
	}
	m.Version.Major = data[0]
	m.Version.Minor = data[1]
	if m.Version != protocol.DTLS1_2 && m.Version != protocol.DTLS1_0 {
		return ErrUnexpectedVersion
	}

	n := int(data[2])
	if len(data) < 3+n {
		return errBufferTooSmall
	}
	if n > MaxCookieLength {
		return ErrCookieTooLong
	}
	m.Cookie = append([]byte{}, data[3:3+n]...)
	return nil
}
