// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package signaturehash wraps the single signature scheme this engine
// negotiates for ServerKeyExchange/CertificateVerify: Ed25519 (RFC
// 8032), always paired with the SHA-256 hash identifier so
// the signature_algorithms extension has exactly one entry to offer.
package signaturehash

import (
	"crypto"
	"crypto/ed25519"
	"errors"

	"github.com/censys-oss/tlsengine/pkg/protocol/extension"
)

var (
	errKeyNotEd25519 = errors.New("signaturehash: private key is not ed25519")
	errInvalidSignature = errors.New("signaturehash: signature verification failed")
)

// Algorithm names the fixed (hash, signature) pair this engine uses:
// SHA-256 / Ed25519.
var Algorithm = extension.SignatureHashAlgorithm{
	Hash: extension.HashAlgorithmSHA256,
	Signature: extension.SignatureAlgorithmEd25519,
}

// Sign signs message (the SignedParams byte string or transcript built
// by the caller) with an Ed25519 private key. Ed25519 signs the message
// directly; it does not take a pre-hashed digest.
func Sign(privateKey crypto.PrivateKey, message []byte) ([]byte, error) {
	key, ok := privateKey.(ed25519.PrivateKey)
	if !ok {
		return nil, errKeyNotEd25519
	}
	return ed25519.Sign(key, message), nil
}

// Verify checks an Ed25519 signature over message using the peer's
// public key, extracted from its leaf certificate.
func Verify(publicKey crypto.PublicKey, message, signature []byte) error {
	key, ok := publicKey.(ed25519.PublicKey)
	if !ok {
		return errKeyNotEd25519
	}
	if !ed25519.Verify(key, message, signature) {
		return errInvalidSignature
	}
	return nil
}
