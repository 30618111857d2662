// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import (
	"encoding/binary"

	"github.com/censys-oss/tlsengine/pkg/protocol"
	"github.com/censys-oss/tlsengine/pkg/protocol/extension"
)

// MaxCipherSuites bounds the cipher_suites list (local
// policy, independent of the RFC's 2^16-2 byte wire limit).
const MaxCipherSuites = 10

// MaxCookieLength bounds the DTLS cookie field.
const MaxCookieLength = 32

// MaxSessionIDLength bounds the session_id field.
const MaxSessionIDLength = 32

// MessageClientHello is the first message sent by the client, RFC 5246
// Section 7.4.1.2. IsDTLS selects whether the wire form carries a Cookie
// field (DTLS only, RFC 6347 Section 4.2.1).
type MessageClientHello struct {
	Version protocol.Version
	Random Random

	SessionID []byte
	Cookie []byte
	IsDTLS bool

	CipherSuiteIDs []uint16
	CompressionMethods []*protocol.CompressionMethod
	Extensions []extension.Extension
}

// Type returns the Handshake Type
func (m MessageClientHello) Type() Type {
	return TypeClientHello
}

// Marshal encodes the Handshake
func (m *MessageClientHello) Marshal() ([]byte, error) {
	if len(m.CipherSuiteIDs) == 0 {
		return nil, ErrNoCipherSuites
	}
	if len(m.CipherSuiteIDs) > MaxCipherSuites {
		return nil, ErrTooManyCipherSuites
	}
	if len(m.SessionID) > MaxSessionIDLength {
		return nil, ErrSessionIDTooLong
	}
	if len(m.Cookie) > MaxCookieLength {
		return nil, ErrCookieTooLong
	}

	out := []byte{m.Version.Major, m.Version.Minor}

	rand := m.Random.MarshalFixed()
	out = append(out, rand[:]...)

	out = append(out, byte(len(m.SessionID)))
	out = append(out, m.SessionID...)

	if m.IsDTLS {
		out = append(out, byte(len(m.Cookie)))
		out = append(out, m.Cookie...)
	}

	cipherSuiteIDs := make([]byte, 2+2*len(m.CipherSuiteIDs))
	binary.BigEndian.PutUint16(cipherSuiteIDs, uint16(2*len(m.CipherSuiteIDs)))
	for i, id := range m.CipherSuiteIDs {
		binary.BigEndian.PutUint16(cipherSuiteIDs[2+2*i:], id)
	}
	out = append(out, cipherSuiteIDs...)

	out = append(out, byte(len(m.CompressionMethods)))
	for _, c := range m.CompressionMethods {
		out = append(out, byte(c.ID))
	}

	extensions, err := extension.Marshal(m.Extensions)
	if err != nil {
		return nil, err
	}
	return append(out, extensions...), nil
}

// Unmarshal populates the message from encoded data
func (m *MessageClientHello) Unmarshal(data []byte) error {
	if len(data) < 2+RandomBytesLength {
		return errBufferTooSmall
	}

	m.Version.Major = data[0]
	m.Version.Minor = data[1]
	if m.IsDTLS {
		if m.Version != protocol.DTLS1_2 {
			return ErrUnexpectedVersion
		}
	} else if m.Version != protocol.Version1_2 {
		return ErrUnexpectedVersion
	}

	var rand [RandomBytesLength]byte
	copy(rand[:], data[2:])
	m.Random.UnmarshalFixed(rand)

	offset := 2 + RandomBytesLength
	if len(data) <= offset {
		return errBufferTooSmall
	}
	n := int(data[offset])
	offset++
	if len(data) < offset+n {
		return errBufferTooSmall
	}
	if n > MaxSessionIDLength {
		return ErrSessionIDTooLong
	}
	m.SessionID = append([]byte{}, data[offset:offset+n]...)
	offset += n

	if m.IsDTLS {
		if len(data) <= offset {
			return errBufferTooSmall
		}
		cn := int(data[offset])
		offset++
		if len(data) < offset+cn {
			return errBufferTooSmall
		}
		if cn > MaxCookieLength {
			return ErrCookieTooLong
		}
		m.Cookie = append([]byte{}, data[offset:offset+cn]...)
		offset += cn
	}

	if len(data) < offset+2 {
		return errBufferTooSmall
	}
	cipherSuitesLen := int(binary.BigEndian.Uint16(data[offset:]))
	offset += 2
	if cipherSuitesLen%2 != 0 || len(data) < offset+cipherSuitesLen {
		return errBufferTooSmall
	}
	if cipherSuitesLen == 0 {
		return ErrNoCipherSuites
	}
	if cipherSuitesLen/2 > MaxCipherSuites {
		return ErrTooManyCipherSuites
	}
	m.CipherSuiteIDs = nil
	for i := 0; i < cipherSuitesLen; i += 2 {
		m.CipherSuiteIDs = append(m.CipherSuiteIDs, binary.BigEndian.Uint16(data[offset+i:]))
	}
	offset += cipherSuitesLen

	if len(data) <= offset {
		return errBufferTooSmall
	}
	compressionLen := int(data[offset])
	offset++
	if len(data) < offset+compressionLen {
		return errBufferTooSmall
	}
	m.CompressionMethods = nil
	for i := 0; i < compressionLen; i++ {
		id := protocol.CompressionMethodID(data[offset+i])
		if cm, ok := protocol.CompressionMethods()[id]; ok {
			m.CompressionMethods = append(m.CompressionMethods, cm)
		} else {
			m.CompressionMethods = append(m.CompressionMethods, &protocol.CompressionMethod{ID: id})
		}
	}
	offset += compressionLen

	if len(data) <= offset {
		m.Extensions = []extension.Extension{}
		return nil
	}
	extensions, err := extension.Unmarshal(data[offset:])
	if err != nil {
		return err
	}
	m.Extensions = extensions
	return nil
}
