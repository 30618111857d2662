// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package ciphersuite

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/censys-oss/tlsengine/pkg/protocol"
	"github.com/censys-oss/tlsengine/pkg/protocol/recordlayer"
)

func newTestCBC(t *testing.T) *CBC {
	t.Helper()
	key := make([]byte, 16)
	macKey := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatal(err)
	}
	if _, err := rand.Read(macKey); err != nil {
		t.Fatal(err)
	}
	c, err := NewCBC(key, macKey, key, macKey, MACHMACSHA256)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestCBCRoundTrip(t *testing.T) {
	c := newTestCBC(t)

	header := recordlayer.Header{
		ContentType: protocol.ContentTypeApplicationData,
		Version:     protocol.Version{Major: 3, Minor: 3},
	}
	rawHeader, err := header.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	plaintext := []byte("mac then pad then encrypt")
	raw := append(rawHeader, plaintext...)

	encrypted, err := c.Encrypt(header, raw)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(encrypted, plaintext) {
		t.Fatal("ciphertext contains the plaintext")
	}

	decrypted, err := c.Decrypt(header, encrypted)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decrypted[header.Size():], plaintext) {
		t.Fatalf("decrypted payload: got %q, want %q", decrypted[header.Size():], plaintext)
	}
}

func TestCBCDecryptTamperedFails(t *testing.T) {
	c := newTestCBC(t)

	header := recordlayer.Header{ContentType: protocol.ContentTypeApplicationData, Version: protocol.Version{Major: 3, Minor: 3}}
	rawHeader, err := header.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	raw := append(rawHeader, []byte("payload")...)

	encrypted, err := c.Encrypt(header, raw)
	if err != nil {
		t.Fatal(err)
	}
	// Flip one ciphertext byte past the IV: the MAC check must reject it.
	encrypted[header.Size()+16] ^= 0xFF

	if _, err := c.Decrypt(header, encrypted); err == nil {
		t.Fatal("expected the tampered record to fail the MAC check")
	}
}
