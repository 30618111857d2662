// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import "errors"

var (
	errBufferTooSmall = errors.New("handshake: buffer too small to unmarshal")
	errInvalidHandshakeType = errors.New("handshake: invalid or unsupported handshake type")
	errCipherSuiteUnset = errors.New("handshake: cipher suite must be set")
	errCompressionMethodUnset = errors.New("handshake: compression method must be set")
	errInvalidCompressionMethod = errors.New("handshake: invalid compression method")
	ErrCookieTooLong = errors.New("handshake: cookie exceeds maximum length")
	ErrSessionIDTooLong = errors.New("handshake: session id exceeds maximum length")
	errInvalidExtensions = errors.New("handshake: invalid extensions block")
	ErrNoCipherSuites = errors.New("handshake: ClientHello must offer at least one cipher suite")
	ErrTooManyCipherSuites = errors.New("handshake: cipher suites list exceeds local policy limit")
	ErrUnexpectedVersion = errors.New("handshake: unsupported protocol version")
	errInvalidCertificateType = errors.New("handshake: invalid certificate request type")
	errInvalidNamedCurve = errors.New("handshake: server key exchange names an unsupported curve")
	errLengthMismatch = errors.New("handshake: declared length does not match buffer")
	errCertificateChainTooLong = errors.New("handshake: certificate chain exceeds local policy limit")
)
