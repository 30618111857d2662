// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package cryptoport defines the external Crypto Port: the one boundary
// this engine expects its embedder to satisfy. Everything the engine
// itself implements (hash, HMAC, PRF, AEAD-GCM, CBC, Ed25519, X25519) is
// wired in as a default implementation built from the standard library
// and golang.org/x/crypto; only PSK identity lookup and X.509 chain
// verification are genuinely external, since they need embedder-owned
// trust material this module has no access to.
package cryptoport

import (
	"crypto"
	"crypto/x509"
)

// PSKIdentityHint resolves a PSK identity advertised by a peer to the
// shared secret it names. Returning an error fails the handshake with
// alert.UnknownPskIdentity.
type PSKIdentityHint func(identityHint []byte) (key []byte, err error)

// CertificateVerifier validates a peer's certificate chain against the
// embedder's trust store. It returns the verified leaf's public key for
// use in ServerKeyExchange signature verification.
type CertificateVerifier func(rawCertChain [][]byte) (leafPublicKey crypto.PublicKey, err error)

// Port bundles the handful of capabilities that must come from outside
// this engine: PSK resolution, and X.509 policy (which certificate
// authorities, revocation behavior, and validity-period rules apply are
// a deployment decision this engine does not make).
type Port struct {
	ResolvePSK PSKIdentityHint
	VerifyChain CertificateVerifier
	RootCAs *x509.CertPool
	LocalCert [][]byte
	LocalSignerKey crypto.PrivateKey
}
