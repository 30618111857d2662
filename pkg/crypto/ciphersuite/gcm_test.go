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

func TestGCMRoundTrip(t *testing.T) {
	key := make([]byte, 16)
	iv := make([]byte, 4)
	if _, err := rand.Read(key); err != nil {
		t.Fatal(err)
	}
	if _, err := rand.Read(iv); err != nil {
		t.Fatal(err)
	}

	g, err := NewGCM(key, iv, key, iv)
	if err != nil {
		t.Fatal(err)
	}

	header := recordlayer.Header{
		ContentType: protocol.ContentTypeApplicationData,
		Version: protocol.Version{Major: 3, Minor: 3},
	}
	rawHeader, err := header.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	plaintext := []byte("hello dtls")
	raw := append(rawHeader, plaintext...)

	encrypted, err := g.Encrypt(header, raw)
	if err != nil {
		t.Fatal(err)
	}

	decrypted, err := g.Decrypt(header, encrypted)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(decrypted[header.Size():], plaintext) {
		t.Fatalf("decrypted payload: got %q, want %q", decrypted[header.Size():], plaintext)
	}
}

func TestGCMDecryptTamperedFails(t *testing.T) {
	key := make([]byte, 16)
	iv := make([]byte, 4)
	g, err := NewGCM(key, iv, key, iv)
	if err != nil {
		t.Fatal(err)
	}

	header := recordlayer.Header{ContentType: protocol.ContentTypeApplicationData, Version: protocol.Version{Major: 3, Minor: 3}}
	rawHeader, err := header.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	raw := append(rawHeader, []byte("payload")...)

	encrypted, err := g.Encrypt(header, raw)
	if err != nil {
		t.Fatal(err)
	}
	encrypted[len(encrypted)-1] ^= 0xFF

	if _, err := g.Decrypt(header, encrypted); err == nil {
		t.Fatal("expected tamper detection to fail decryption")
	}
}
