// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package extension implements the small, fixed set of TLS/DTLS 1.2
// extensions this engine negotiates: supported_groups, signature_algorithms
// and ec_point_formats. Extension-driven feature negotiation beyond this
// enumerated set is a Non-goal.
package extension

import (
	"encoding/binary"
)

// TypeValue is the extension_type field, RFC 6066 Section 1.
type TypeValue uint16

// TypeValue enums for the extensions this engine understands. Any other
// value is decoded generically and ignored.
const (
	SupportedEllipticCurvesTypeValue TypeValue = 10
	SupportedPointFormatsTypeValue TypeValue = 11
	SignatureAlgorithmsTypeValue TypeValue = 13
)

// Extension represents a single TLS extension.
type Extension interface {
	Marshal() ([]byte, error)
	Unmarshal(data []byte) error
	TypeValue() TypeValue
}

const (
	listHeaderSize = 2
	extensionHeaderSize = 2 + 2 // type + length
)

// Marshal encodes a list of extensions into the wire extensions block,
// length-prefixed per RFC 5246 Section 7.4.1.4. An empty list marshals to
// a zero-length block (0x00 0x00).
func Marshal(extensions []Extension) ([]byte, error) {
	extensionsBodyLen := 0
	rawExtensions := make([][]byte, len(extensions))
	for i, e := range extensions {
		body, err := e.Marshal()
		if err != nil {
			return nil, err
		}
		header := make([]byte, extensionHeaderSize)
		binary.BigEndian.PutUint16(header[0:], uint16(e.TypeValue()))
		binary.BigEndian.PutUint16(header[2:], uint16(len(body)))
		rawExtensions[i] = append(header, body...)
		extensionsBodyLen += len(rawExtensions[i])
	}

	if extensionsBodyLen > maxExtensionsBlockSize {
		return nil, errExtensionsTooLarge
	}

	out := make([]byte, listHeaderSize)
	binary.BigEndian.PutUint16(out, uint16(extensionsBodyLen))
	for _, r := range rawExtensions {
		out = append(out, r...)
	}
	return out, nil
}

// Unmarshal decodes the wire extensions block. Unknown extension types
// are skipped over and ignored.
func Unmarshal(data []byte) ([]Extension, error) {
	if len(data) == 0 {
		return []Extension{}, nil
	}
	if len(data) < listHeaderSize {
		return nil, errBufferTooSmall
	}

	declaredLen := int(binary.BigEndian.Uint16(data))
	body := data[listHeaderSize:]
	if declaredLen > len(body) {
		return nil, errBufferTooSmall
	}
	body = body[:declaredLen]

	extensions := []Extension{}
	seenSupportedGroups := false

	for len(body) != 0 {
		if len(body) < extensionHeaderSize {
			return nil, errBufferTooSmall
		}
		typeValue := TypeValue(binary.BigEndian.Uint16(body))
		extLen := int(binary.BigEndian.Uint16(body[2:]))
		body = body[extensionHeaderSize:]
		if extLen > len(body) {
			return nil, errBufferTooSmall
		}
		extBody := body[:extLen]
		body = body[extLen:]

		var e Extension
		switch typeValue {
		case SupportedEllipticCurvesTypeValue:
			if seenSupportedGroups {
				return nil, errDuplicateExtension
			}
			seenSupportedGroups = true
			e = &SupportedEllipticCurves{}
		case SignatureAlgorithmsTypeValue:
			e = &SignatureAlgorithms{}
		case SupportedPointFormatsTypeValue:
			e = &SupportedPointFormats{}
		default:
			// Unknown extensions are ignored.
			continue
		}

		if err := e.Unmarshal(extBody); err != nil {
			return nil, err
		}
		extensions = append(extensions, e)
	}

	return extensions, nil
}

// Find returns the first extension of type T in the list, or nil.
func Find[T Extension](extensions []Extension) T {
	var zero T
	for _, e := range extensions {
		if t, ok := e.(T); ok {
			return t
		}
	}
	return zero
}
