// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package elliptic wraps the single named curve this engine negotiates,
// X25519 (RFC 7748), behind a small interface so the PRF and key-exchange
// code never import golang.org/x/crypto/curve25519 directly. Dynamic
// curve negotiation is a Non-goal; this exists to keep PreMasterSecret
// testable against a fixed vector rather than to support substitution.
package elliptic

import "golang.org/x/crypto/curve25519"

// Curve computes a Diffie-Hellman shared secret from a peer public key
// and the local private key.
type Curve interface {
	X(publicKey, privateKey []byte) ([]byte, error)
}

// X25519 is the only Curve this engine supports.
var X25519 Curve = x25519Curve{}

type x25519Curve struct{}

func (x25519Curve) X(publicKey, privateKey []byte) ([]byte, error) {
	return curve25519.X25519(privateKey, publicKey)
}

// GenerateKeypair produces a fresh X25519 private/public keypair using
// the supplied entropy source (the engine's RNG Port).
func GenerateKeypair(reader interface {
	Read([]byte) (int, error)
}) (private, public []byte, err error) {
	private = make([]byte, curve25519.ScalarSize)
	if _, err = reader.Read(private); err != nil {
		return nil, nil, err
	}
	public, err = curve25519.X25519(private, curve25519.Basepoint)
	if err != nil {
		return nil, nil, err
	}
	return private, public, nil
}
