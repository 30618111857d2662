// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package ciphersuite

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"hash"

	"github.com/censys-oss/tlsengine/pkg/protocol/recordlayer"
)

// Null implements the null bulk cipher: either no protection at all
// (TLS_NULL_WITH_NULL_NULL, used only for diagnostic/bring-up
// configurations) or HMAC-only integrity protection with no
// confidentiality (TLS_PSK_WITH_NULL_SHA256, TLS_ECDHE_ECDSA_WITH_NULL_SHA).
type Null struct {
	localMacKey, remoteMacKey []byte
	hashNew func() hash.Hash
	macLen int
}

// NewNull builds a Null record protector. Pass macKind MACNone for
// TLS_NULL_WITH_NULL_NULL, which applies no MAC either.
func NewNull(localMacKey, remoteMacKey []byte, macKind MACKind) (*Null, error) {
	n := &Null{localMacKey: localMacKey, remoteMacKey: remoteMacKey}
	switch macKind {
	case MACNone:
		return n, nil
	case MACHMACSHA256:
		n.hashNew = sha256.New
	case MACHMACSHA1:
		n.hashNew = newSHA1()
	default:
		return nil, fmt.Errorf("%w: %d", errUnsupportedSuite, macKind)
	}
	n.macLen = n.hashNew().Size()
	return n, nil
}

// Encrypt appends the HMAC (if any) to the plaintext payload; there is
// never any confidentiality transform.
func (n *Null) Encrypt(header recordlayer.Header, raw []byte) ([]byte, error) {
	if n.hashNew == nil {
		return raw, nil
	}

	payload := raw[header.Size():]
	h := hmac.New(n.hashNew, n.localMacKey)
	h.Write(generateAEADAdditionalData(header, len(payload)))
	h.Write(payload)
	mac := h.Sum(nil)

	out := append(append([]byte{}, raw...), mac...)
	binary.BigEndian.PutUint16(out[header.Size()-2:], uint16(len(payload)+len(mac)))
	return out, nil
}

// Decrypt verifies and strips the trailing HMAC, if the suite has one.
func (n *Null) Decrypt(header recordlayer.Header, in []byte) ([]byte, error) {
	if n.hashNew == nil {
		return in, nil
	}

	body := in[header.Size():]
	if len(body) < n.macLen {
		return nil, errInvalidMAC
	}
	payload := body[:len(body)-n.macLen]
	recvMAC := body[len(body)-n.macLen:]

	h := hmac.New(n.hashNew, n.remoteMacKey)
	h.Write(generateAEADAdditionalData(header, len(payload)))
	h.Write(payload)
	expectedMAC := h.Sum(nil)

	if subtle.ConstantTimeCompare(expectedMAC, recvMAC) != 1 {
		return nil, errInvalidMAC
	}
	return append(append([]byte{}, in[:header.Size()]...), payload...), nil
}
