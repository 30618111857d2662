// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import (
	"encoding/binary"

	"github.com/censys-oss/tlsengine/pkg/protocol"
	"github.com/censys-oss/tlsengine/pkg/protocol/extension"
	"github.com/zmap/zcrypto/tls"
)

// MessageServerHello is sent in response to a ClientHello when the server
// was able to select an acceptable cipher suite; otherwise it responds
// with a HandshakeFailure alert, RFC 5246 Section 7.4.1.3.
type MessageServerHello struct {
	Version protocol.Version
	Random Random

	SessionID []byte
	IsDTLS bool

	CipherSuiteID *uint16
	CompressionMethod *protocol.CompressionMethod
	Extensions []extension.Extension
}

// Type returns the Handshake Type
func (m MessageServerHello) Type() Type {
	return TypeServerHello
}

// Marshal encodes the Handshake
func (m *MessageServerHello) Marshal() ([]byte, error) {
	if m.CipherSuiteID == nil {
		return nil, errCipherSuiteUnset
	}
	if m.CompressionMethod == nil {
		return nil, errCompressionMethodUnset
	}
	if len(m.SessionID) > MaxSessionIDLength {
		return nil, ErrSessionIDTooLong
	}

	out := []byte{m.Version.Major, m.Version.Minor}

	rand := m.Random.MarshalFixed()
	out = append(out, rand[:]...)

	out = append(out, byte(len(m.SessionID)))
	out = append(out, m.SessionID...)

	suiteID := make([]byte, 2)
	binary.BigEndian.PutUint16(suiteID, *m.CipherSuiteID)
	out = append(out, suiteID...)

	out = append(out, byte(m.CompressionMethod.ID))

	extensions, err := extension.Marshal(m.Extensions)
	if err != nil {
		return nil, err
	}
	return append(out, extensions...), nil
}

// Unmarshal populates the message from encoded data
func (m *MessageServerHello) Unmarshal(data []byte) error {
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

	if len(data) < offset+2 {
		return errBufferTooSmall
	}
	id := binary.BigEndian.Uint16(data[offset:])
	m.CipherSuiteID = &id
	offset += 2

	if len(data) <= offset {
		return errBufferTooSmall
	}
	cmID := protocol.CompressionMethodID(data[offset])
	cm, ok := protocol.CompressionMethods()[cmID]
	if !ok {
		return errInvalidCompressionMethod
	}
	m.CompressionMethod = cm
	offset++

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

// MakeLog renders the ServerHello as a structured zcrypto record for
// handshake logging. The caller decides where the record goes; there is
// no process-wide logger here.
func (m *MessageServerHello) MakeLog() *tls.ServerHello {
	ret := &tls.ServerHello{}
	ret.Version = tls.TLSVersion(uint16(m.Version.Major)<<8 | uint16(m.Version.Minor))

	ret.Random = make([]byte, RandomBytesLength)
	rand := m.Random.MarshalFixed()
	copy(ret.Random, rand[:])

	ret.SessionID = append([]byte{}, m.SessionID...)
	if m.CipherSuiteID != nil {
		ret.CipherSuite = tls.CipherSuiteID(*m.CipherSuiteID)
	}
	if m.CompressionMethod != nil {
		ret.CompressionMethod = uint8(m.CompressionMethod.ID)
	}
	return ret
}
