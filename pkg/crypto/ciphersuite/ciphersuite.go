// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package ciphersuite implements the record-layer protection profiles:
// null, AEAD-GCM and CBC-with-HMAC, plus the fixed catalogue of eight
// negotiable cipher suite identifiers.
package ciphersuite

import (
	"crypto"
	_ "crypto/sha256" // registers crypto.SHA256
	_ "crypto/sha512" // registers crypto.SHA384

	"github.com/censys-oss/tlsengine/pkg/protocol/recordlayer"
)

// ID is a cipher suite identifier, RFC 5246/5487/5289/4492.
type ID uint16

// ID enums.
const (
	TLS_NULL_WITH_NULL_NULL ID = 0x0000
	TLS_PSK_WITH_NULL_SHA256 ID = 0x00B0
	TLS_PSK_WITH_AES_128_GCM_SHA256 ID = 0x00A8
	TLS_ECDHE_ECDSA_WITH_NULL_SHA ID = 0xC006
	TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256 ID = 0xC02B
	TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384 ID = 0xC02C
	TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA256 ID = 0xC023
	TLS_ECDHE_ECDSA_WITH_AES_256_CBC_SHA384 ID = 0xC024
)

// KeyExchangeAlgorithm identifies how the pre-master secret is derived.
type KeyExchangeAlgorithm int

// KeyExchangeAlgorithm enums
const (
	KeyExchangePSK KeyExchangeAlgorithm = iota
	KeyExchangeECDHE
)

// BulkCipherKind identifies the record protection's bulk cipher.
type BulkCipherKind int

// BulkCipherKind enums
const (
	BulkCipherNull BulkCipherKind = iota
	BulkCipherAES128GCM
	BulkCipherAES256GCM
	BulkCipherAES128CBC
	BulkCipherAES256CBC
)

// MACKind identifies the record protection's MAC. AEAD suites
// report MACNone since the GCM tag plays that role.
type MACKind int

// MACKind enums
const (
	MACNone MACKind = iota
	MACHMACSHA1
	MACHMACSHA256
	MACHMACSHA384
)

// Params is the static per-suite parameter table.
type Params struct {
	ID ID
	KeyExchange KeyExchangeAlgorithm
	CertBased bool // Auth uses Ed25519 + a certificate, vs. PSK
	Cipher BulkCipherKind
	MAC MACKind
	EncKeyLen int
	FixedIVLen int
	RecordIVLen int
	PRFHash func() crypto.Hash
}

// table is the fixed suite catalogue. Suites never change at runtime:
// dynamic plug-in of cipher suites is a Non-goal.
var table = map[ID]Params{
	TLS_NULL_WITH_NULL_NULL: {
		ID: TLS_NULL_WITH_NULL_NULL, KeyExchange: KeyExchangePSK, Cipher: BulkCipherNull, MAC: MACNone,
	},
	TLS_PSK_WITH_NULL_SHA256: {
		ID: TLS_PSK_WITH_NULL_SHA256, KeyExchange: KeyExchangePSK, Cipher: BulkCipherNull, MAC: MACHMACSHA256,
	},
	TLS_PSK_WITH_AES_128_GCM_SHA256: {
		ID: TLS_PSK_WITH_AES_128_GCM_SHA256, KeyExchange: KeyExchangePSK, Cipher: BulkCipherAES128GCM, MAC: MACNone,
		EncKeyLen: 16, FixedIVLen: 4, RecordIVLen: 8,
	},
	TLS_ECDHE_ECDSA_WITH_NULL_SHA: {
		ID: TLS_ECDHE_ECDSA_WITH_NULL_SHA, KeyExchange: KeyExchangeECDHE, CertBased: true, Cipher: BulkCipherNull, MAC: MACHMACSHA1,
	},
	TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256: {
		ID: TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256, KeyExchange: KeyExchangeECDHE, CertBased: true, Cipher: BulkCipherAES128GCM, MAC: MACNone,
		EncKeyLen: 16, FixedIVLen: 4, RecordIVLen: 8,
	},
	TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384: {
		ID: TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384, KeyExchange: KeyExchangeECDHE, CertBased: true, Cipher: BulkCipherAES256GCM, MAC: MACNone,
		EncKeyLen: 32, FixedIVLen: 4, RecordIVLen: 8,
	},
	TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA256: {
		ID: TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA256, KeyExchange: KeyExchangeECDHE, CertBased: true, Cipher: BulkCipherAES128CBC, MAC: MACHMACSHA256,
		EncKeyLen: 16, RecordIVLen: 16,
	},
	TLS_ECDHE_ECDSA_WITH_AES_256_CBC_SHA384: {
		ID: TLS_ECDHE_ECDSA_WITH_AES_256_CBC_SHA384, KeyExchange: KeyExchangeECDHE, CertBased: true, Cipher: BulkCipherAES256CBC, MAC: MACHMACSHA384,
		EncKeyLen: 32, RecordIVLen: 16,
	},
}

// Lookup returns the Params for a cipher suite ID and whether it is known.
func Lookup(id ID) (Params, bool) {
	p, ok := table[id]
	if !ok {
		return Params{}, false
	}
	// PRFHash is derived, not stored literally, to keep the table above
	// readable; SHA-384 suites are exactly the two *_SHA384 entries.
	if id == TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384 || id == TLS_ECDHE_ECDSA_WITH_AES_256_CBC_SHA384 {
		p.PRFHash = func() crypto.Hash { return crypto.SHA384 }
	} else {
		p.PRFHash = func() crypto.Hash { return crypto.SHA256 }
	}
	return p, true
}

// CipherSuite protects and unprotects record-layer traffic once key
// material has been installed.
type CipherSuite interface {
	// Encrypt protects an outbound record. raw is the fully marshaled,
	// unprotected record (header + plaintext content).
	Encrypt(header recordlayer.Header, raw []byte) ([]byte, error)
	// Decrypt unprotects an inbound record. in is the full wire datagram
	// starting at the record header.
	Decrypt(header recordlayer.Header, in []byte) ([]byte, error)
}
