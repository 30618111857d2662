// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package ciphersuite

import "fmt"

// KeyMaterial is the key-block slice produced by the PRF for one direction's bulk cipher and MAC/IV.
type KeyMaterial struct {
	LocalKey, RemoteKey []byte
	LocalMacKey, RemoteMacKey []byte
	LocalWriteIV, RemoteWriteIV []byte
}

// New builds the concrete CipherSuite for id from the PRF's key-block
// output. This is the single place that turns a negotiated ID into the
// record-layer protection object the connection installs at
// ChangeCipherSpec.
func New(id ID, km KeyMaterial) (CipherSuite, error) {
	p, ok := Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: 0x%04x", errUnsupportedSuite, uint16(id))
	}

	switch p.Cipher {
	case BulkCipherNull:
		return NewNull(km.LocalMacKey, km.RemoteMacKey, p.MAC)
	case BulkCipherAES128GCM, BulkCipherAES256GCM:
		return NewGCM(km.LocalKey, km.LocalWriteIV, km.RemoteKey, km.RemoteWriteIV)
	case BulkCipherAES128CBC, BulkCipherAES256CBC:
		return NewCBC(km.LocalKey, km.LocalMacKey, km.RemoteKey, km.RemoteMacKey, p.MAC)
	default:
		return nil, fmt.Errorf("%w: cipher kind %d", errUnsupportedSuite, p.Cipher)
	}
}
