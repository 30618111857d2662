// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package recordlayer

import (
	"reflect"
	"testing"

	"github.com/censys-oss/tlsengine/pkg/protocol"
)

func TestHeaderRoundTripTLS(t *testing.T) {
	h := Header{
		ContentType: protocol.ContentTypeHandshake,
		Version: protocol.Version{Major: 3, Minor: 3},
		ContentLen: 42,
	}

	raw, err := h.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != FixedHeaderSize {
		t.Fatalf("TLS header length: got %d, want %d", len(raw), FixedHeaderSize)
	}

	var got Header
	if err := got.Unmarshal(raw); err != nil {
		t.Fatal(err)
	}
	if got.IsDTLS {
		t.Fatal("TLS header unmarshaled as DTLS")
	}
	if !reflect.DeepEqual(got, h) {
		t.Fatalf("header round trip: got %#v, want %#v", got, h)
	}
}

func TestHeaderRoundTripDTLS(t *testing.T) {
	h := Header{
		ContentType: protocol.ContentTypeHandshake,
		Version: protocol.Version{Major: 0xfe, Minor: 0xfd},
		Epoch: 1,
		SequenceNumber: 0x0000deadbeef,
		ContentLen: 7,
		IsDTLS: true,
	}

	raw, err := h.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != FixedHeaderSize+8 {
		t.Fatalf("DTLS header length: got %d, want %d", len(raw), FixedHeaderSize+8)
	}

	var got Header
	if err := got.Unmarshal(raw); err != nil {
		t.Fatal(err)
	}
	if !got.IsDTLS {
		t.Fatal("DTLS header unmarshaled as TLS")
	}
	if !reflect.DeepEqual(got, h) {
		t.Fatalf("header round trip: got %#v, want %#v", got, h)
	}
}

func TestHeaderUnmarshalTooShort(t *testing.T) {
	var h Header
	if err := h.Unmarshal([]byte{0x16, 0x03}); err != ErrInvalidPacketLength {
		t.Fatalf("got %v, want ErrInvalidPacketLength", err)
	}
}

func TestContentAwareUnpackDatagram(t *testing.T) {
	one := Header{ContentType: protocol.ContentTypeHandshake, Version: protocol.Version{Major: 0xfe, Minor: 0xfd}, Epoch: 0, SequenceNumber: 1, ContentLen: 3, IsDTLS: true}
	oneRaw, err := one.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	oneRaw = append(oneRaw, []byte{1, 2, 3}...)

	two := one
	two.SequenceNumber = 2
	two.ContentLen = 2
	twoRaw, err := two.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	twoRaw = append(twoRaw, []byte{4, 5}...)

	datagram := append(append([]byte{}, oneRaw...), twoRaw...)

	records, err := ContentAwareUnpackDatagram(datagram)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if !reflect.DeepEqual(records[0], oneRaw) || !reflect.DeepEqual(records[1], twoRaw) {
		t.Fatalf("unpacked records do not match originals")
	}
}
