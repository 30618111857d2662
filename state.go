// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package tlsengine

import (
	"crypto"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	"github.com/censys-oss/tlsengine/pkg/crypto/ciphersuite"
	"github.com/censys-oss/tlsengine/pkg/crypto/prf"
	"github.com/censys-oss/tlsengine/pkg/protocol/handshake"
)

// Entity is which side of the handshake a SecurityParameters set was
// derived for.
type Entity int

// Entity enums
const (
	EntityClient Entity = iota
	EntityServer
)

// SecurityParameters holds one epoch's worth of negotiated cryptographic
// state. A Connection always has two live instances: current
// (installed, in use) and pending (under construction by the handshake,
// not yet activated by a ChangeCipherSpec).
type SecurityParameters struct {
	Entity Entity
	CipherSuite ciphersuite.ID
	Params ciphersuite.Params
	ClientRandom [handshake.RandomBytesLength]byte
	ServerRandom [handshake.RandomBytesLength]byte
	MasterSecret []byte

	Keys ciphersuite.KeyMaterial

	// LocalWriteSequence/RemoteReadSequence are the per-epoch counters
	// enforced by the record layer.
	LocalWriteSequence uint64
	RemoteReadSequence uint64
	Epoch uint16

	suite ciphersuite.CipherSuite
}

// Suite lazily builds (and caches) the concrete CipherSuite object from
// this SecurityParameters' negotiated ID and derived key material.
func (sp *SecurityParameters) Suite() (ciphersuite.CipherSuite, error) {
	if sp.suite != nil {
		return sp.suite, nil
	}
	suite, err := ciphersuite.New(sp.CipherSuite, sp.Keys)
	if err != nil {
		return nil, err
	}
	sp.suite = suite
	return suite, nil
}

// Zeroize overwrites key material before the SecurityParameters is
// dropped. Keys and IVs live only as long as the SecurityParameters
// that reference them.
func (sp *SecurityParameters) Zeroize() {
	zero(sp.MasterSecret)
	zero(sp.Keys.LocalKey)
	zero(sp.Keys.RemoteKey)
	zero(sp.Keys.LocalMacKey)
	zero(sp.Keys.RemoteMacKey)
	zero(sp.Keys.LocalWriteIV)
	zero(sp.Keys.RemoteWriteIV)
	sp.suite = nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// derivePreMasterSecretPSK builds the PSK pre-master-secret format, RFC
// 4279 Section 2: uint16(len(psk)) || zeros(len(psk)) || uint16(len(psk))
// || psk.
func derivePreMasterSecretPSK(psk []byte) []byte {
	n := len(psk)
	out := make([]byte, 0, 4+2*n)
	out = append(out, byte(n>>8), byte(n))
	out = append(out, make([]byte, n)...)
	out = append(out, byte(n>>8), byte(n))
	out = append(out, psk...)
	return out
}

// deriveSecurityParameters runs the full key derivation chain: pre-master
// secret -> master secret -> key_block -> six keys, staged into the
// supplied (pending) SecurityParameters.
func deriveSecurityParameters(sp *SecurityParameters, preMasterSecret []byte) error {
	hashNew := prfHashNew(sp.Params)

	masterSecret, err := prf.MasterSecret(preMasterSecret, sp.ClientRandom[:], sp.ServerRandom[:], hashNew)
	if err != nil {
		return err
	}
	sp.MasterSecret = masterSecret

	macLen := macKeyLength(sp.Params.MAC)
	keys, err := prf.GenerateEncryptionKeys(
		masterSecret, sp.ClientRandom[:], sp.ServerRandom[:],
		macLen, sp.Params.EncKeyLen, sp.Params.FixedIVLen,
		hashNew,
	)
	if err != nil {
		return err
	}

	if sp.Entity == EntityClient {
		sp.Keys = ciphersuite.KeyMaterial{
			LocalKey: keys.ClientWriteKey, RemoteKey: keys.ServerWriteKey,
			LocalMacKey: keys.ClientMACKey, RemoteMacKey: keys.ServerMACKey,
			LocalWriteIV: keys.ClientWriteIV, RemoteWriteIV: keys.ServerWriteIV,
		}
	} else {
		sp.Keys = ciphersuite.KeyMaterial{
			LocalKey: keys.ServerWriteKey, RemoteKey: keys.ClientWriteKey,
			LocalMacKey: keys.ServerMACKey, RemoteMacKey: keys.ClientMACKey,
			LocalWriteIV: keys.ServerWriteIV, RemoteWriteIV: keys.ClientWriteIV,
		}
	}
	return nil
}

func macKeyLength(m ciphersuite.MACKind) int {
	switch m {
	case ciphersuite.MACHMACSHA1:
		return 20
	case ciphersuite.MACHMACSHA256:
		return 32
	case ciphersuite.MACHMACSHA384:
		return 48
	default:
		return 0
	}
}

func prfHashNew(p ciphersuite.Params) func() hash.Hash {
	if p.PRFHash != nil && p.PRFHash() == crypto.SHA384 {
		return sha512.New384
	}
	return sha256.New
}

// cookieMAC computes the DTLS cookie: HMAC-SHA256 over the serialized
// ClientHello fields, truncated to 32 bytes.
func cookieMAC(verificationSecret [4]byte, serializedClientHello []byte) []byte {
	h := hmac.New(sha256.New, verificationSecret[:])
	h.Write(serializedClientHello)
	sum := h.Sum(nil)
	return sum[:32]
}
