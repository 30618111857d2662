// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import (
	"errors"
	"reflect"
	"testing"

	"github.com/censys-oss/tlsengine/pkg/protocol"
	"github.com/censys-oss/tlsengine/pkg/protocol/extension"
)

func testClientHello(isDTLS bool) *MessageClientHello {
	var random Random
	var fixed [RandomBytesLength]byte
	for i := range fixed {
		fixed[i] = byte(i)
	}
	random.UnmarshalFixed(fixed)

	ch := &MessageClientHello{
		Version:            protocol.Version1_2,
		Random:             random,
		SessionID:          []byte{},
		IsDTLS:             isDTLS,
		CipherSuiteIDs:     []uint16{0xC02B, 0x00A8},
		CompressionMethods: []*protocol.CompressionMethod{{ID: protocol.CompressionMethodNull}},
		Extensions: []extension.Extension{
			&extension.SupportedEllipticCurves{EllipticCurves: []extension.NamedCurve{extension.X25519}},
		},
	}
	if isDTLS {
		ch.Version = protocol.DTLS1_2
		ch.Cookie = []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	}
	return ch
}

func TestClientHelloRoundTripTLS(t *testing.T) {
	in := testClientHello(false)
	raw, err := in.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	out := &MessageClientHello{IsDTLS: false}
	if err := out.Unmarshal(raw); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip: got %#v, want %#v", out, in)
	}
}

func TestClientHelloRoundTripDTLSWithCookie(t *testing.T) {
	in := testClientHello(true)
	raw, err := in.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	out := &MessageClientHello{IsDTLS: true}
	if err := out.Unmarshal(raw); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip: got %#v, want %#v", out, in)
	}
}

func TestClientHelloRejectsEmptyCipherSuites(t *testing.T) {
	in := testClientHello(false)
	raw, err := in.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	// Zero out the cipher_suites length field: version(2) + random(32) +
	// session_id length(1) with an empty session_id puts it at offset 35.
	raw[35] = 0
	raw[36] = 0

	out := &MessageClientHello{IsDTLS: false}
	if err := out.Unmarshal(raw); !errors.Is(err, ErrNoCipherSuites) {
		t.Fatalf("got %v, want ErrNoCipherSuites", err)
	}
}

func TestClientHelloRejectsOversizedCookie(t *testing.T) {
	in := testClientHello(true)
	in.Cookie = make([]byte, MaxCookieLength+1)
	if _, err := in.Marshal(); !errors.Is(err, ErrCookieTooLong) {
		t.Fatal("expected a 33-byte cookie to be rejected")
	}
}

func TestClientHelloRejectsWrongVersion(t *testing.T) {
	in := testClientHello(false)
	raw, err := in.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	raw[1] = 0x02 // TLS 1.1

	out := &MessageClientHello{IsDTLS: false}
	if err := out.Unmarshal(raw); !errors.Is(err, ErrUnexpectedVersion) {
		t.Fatalf("got %v, want ErrUnexpectedVersion", err)
	}
}
