// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package ciphersuite

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/censys-oss/tlsengine/pkg/protocol/recordlayer"
)

const (
	gcmTagLength = 16
	gcmNonceLength = 12
)

// GCM implements the AEAD-GCM record protection profile: a 4-byte
// fixed IV derived from the key block plus an 8-byte explicit,
// per-record nonce prepended to the ciphertext, RFC 5288.
type GCM struct {
	localGCM, remoteGCM cipher.AEAD
	localWriteIV, remoteWriteIV []byte
}

// NewGCM builds a GCM record protector from the four key-block outputs
// produced by the PRF: each side's bulk key and fixed IV.
func NewGCM(localKey, localWriteIV, remoteKey, remoteWriteIV []byte) (*GCM, error) {
	localBlock, err := aes.NewCipher(localKey)
	if err != nil {
		return nil, err
	}
	localGCM, err := cipher.NewGCM(localBlock)
	if err != nil {
		return nil, err
	}

	remoteBlock, err := aes.NewCipher(remoteKey)
	if err != nil {
		return nil, err
	}
	remoteGCM, err := cipher.NewGCM(remoteBlock)
	if err != nil {
		return nil, err
	}

	return &GCM{
		localGCM: localGCM,
		localWriteIV: localWriteIV,
		remoteGCM: remoteGCM,
		remoteWriteIV: remoteWriteIV,
	}, nil
}

// Encrypt seals raw (the unprotected record: header + plaintext content)
// and returns the full wire record: header, 8-byte explicit nonce,
// ciphertext, tag.
func (g *GCM) Encrypt(header recordlayer.Header, raw []byte) ([]byte, error) {
	payload := raw[header.Size():]
	rawHeader := raw[:header.Size()]

	nonce := make([]byte, gcmNonceLength)
	copy(nonce, g.localWriteIV[:4])
	if _, err := rand.Read(nonce[4:]); err != nil {
		return nil, err
	}

	additionalData := generateAEADAdditionalData(header, len(payload))
	encryptedPayload := g.localGCM.Seal(nil, nonce, payload, additionalData)

	r := make([]byte, len(rawHeader)+8+len(encryptedPayload))
	copy(r, rawHeader)
	copy(r[len(rawHeader):], nonce[4:])
	copy(r[len(rawHeader)+8:], encryptedPayload)

	binary.BigEndian.PutUint16(r[header.Size()-2:], uint16(len(r)-header.Size()))
	return r, nil
}

// Decrypt verifies and opens an inbound record. header must already have
// been parsed from in; the remaining bytes of in are the 8-byte explicit
// nonce followed by ciphertext and tag.
func (g *GCM) Decrypt(header recordlayer.Header, in []byte) ([]byte, error) {
	if len(in) <= header.Size()+8 {
		return nil, errNotEnoughRoomForNonce
	}

	nonce := make([]byte, 0, gcmNonceLength)
	nonce = append(append(nonce, g.remoteWriteIV[:4]...), in[header.Size():header.Size()+8]...)
	body := in[header.Size()+8:]

	additionalData := generateAEADAdditionalData(header, len(body)-gcmTagLength)
	opened, err := g.remoteGCM.Open(body[:0], nonce, body, additionalData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errDecryptPacket, err)
	}
	return append(in[:header.Size()], opened...), nil
}
