// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package extension

import "encoding/binary"

// NamedCurve is the named_curve identifier from RFC 8422 Section 5.1.1.
// This engine only ever offers or accepts X25519.
type NamedCurve uint16

// NamedCurve enums
const (
	X25519 NamedCurve = 29
)

// SupportedEllipticCurves is the supported_groups extension
// (historically "elliptic_curves"), RFC 8422 Section 5.1.1. Duplicate
// curves on decode are a DeserializeError.
type SupportedEllipticCurves struct {
	EllipticCurves []NamedCurve
}

// TypeValue returns the extension TypeValue
func (s SupportedEllipticCurves) TypeValue() TypeValue {
	return SupportedEllipticCurvesTypeValue
}

// Marshal encodes the extension
func (s *SupportedEllipticCurves) Marshal() ([]byte, error) {
	out := make([]byte, 2)
	for _, c := range s.EllipticCurves {
		out = append(out, 0x00, 0x00)
		binary.BigEndian.PutUint16(out[len(out)-2:], uint16(c))
	}
	binary.BigEndian.PutUint16(out, uint16(len(out)-2))
	return out, nil
}

// Unmarshal populates the extension from encoded data
func (s *SupportedEllipticCurves) Unmarshal(data []byte) error {
	if len(data) < 2 {
		return errBufferTooSmall
	}
	declaredLen := int(binary.BigEndian.Uint16(data))
	if declaredLen+2 > len(data) || declaredLen%2 != 0 {
		return errBufferTooSmall
	}

	seen := map[NamedCurve]bool{}
	for offset := 2; offset < declaredLen+2; offset += 2 {
		curve := NamedCurve(binary.BigEndian.Uint16(data[offset:]))
		if seen[curve] {
			return errDuplicateExtension
		}
		seen[curve] = true
		s.EllipticCurves = append(s.EllipticCurves, curve)
	}
	return nil
}
