// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package extension

import "encoding/binary"

// HashAlgorithm is the hash half of a SignatureScheme, RFC 5246 Section 7.4.1.4.1.
type HashAlgorithm uint8

// HashAlgorithm enums (only the values this engine produces/accepts)
const (
	HashAlgorithmSHA1 HashAlgorithm = 2
	HashAlgorithmSHA256 HashAlgorithm = 4
	HashAlgorithmSHA384 HashAlgorithm = 5
	HashAlgorithmEd25519 HashAlgorithm = 8 // RFC 8422bis-style signature_algorithms entry for Ed25519
)

// SignatureAlgorithm is the signature half of a SignatureScheme.
type SignatureAlgorithm uint8

// SignatureAlgorithm enums
const (
	SignatureAlgorithmECDSA SignatureAlgorithm = 3
	SignatureAlgorithmEd25519 SignatureAlgorithm = 7
)

// SignatureHashAlgorithm pairs a hash and signature algorithm.
type SignatureHashAlgorithm struct {
	Hash HashAlgorithm
	Signature SignatureAlgorithm
}

// SignatureAlgorithms is the signature_algorithms extension, RFC 5246
// Section 7.4.1.4.1.
type SignatureAlgorithms struct {
	SignatureHashAlgorithms []SignatureHashAlgorithm
}

// TypeValue returns the extension TypeValue
func (s SignatureAlgorithms) TypeValue() TypeValue {
	return SignatureAlgorithmsTypeValue
}

// Marshal encodes the extension
func (s *SignatureAlgorithms) Marshal() ([]byte, error) {
	out := make([]byte, 2)
	for _, a := range s.SignatureHashAlgorithms {
		out = append(out, byte(a.Hash), byte(a.Signature))
	}
	binary.BigEndian.PutUint16(out, uint16(len(out)-2))
	return out, nil
}

// Unmarshal populates the extension from encoded data
func (s *SignatureAlgorithms) Unmarshal(data []byte) error {
	if len(data) < 2 {
		return errBufferTooSmall
	}
	declaredLen := int(binary.BigEndian.Uint16(data))
	if declaredLen+2 > len(data) || declaredLen%2 != 0 {
		return errBufferTooSmall
	}

	for offset := 2; offset < declaredLen+2; offset += 2 {
		s.SignatureHashAlgorithms = append(s.SignatureHashAlgorithms, SignatureHashAlgorithm{
			Hash: HashAlgorithm(data[offset]),
			Signature: SignatureAlgorithm(data[offset+1]),
		})
	}
	return nil
}
