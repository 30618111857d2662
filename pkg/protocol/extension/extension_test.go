// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package extension

import (
	"reflect"
	"testing"
)

func TestExtensionsRoundTrip(t *testing.T) {
	in := []Extension{
		&SupportedEllipticCurves{EllipticCurves: []NamedCurve{X25519}},
		&SignatureAlgorithms{SignatureHashAlgorithms: []SignatureHashAlgorithm{
			{Hash: HashAlgorithmSHA256, Signature: SignatureAlgorithmEd25519},
		}},
		&SupportedPointFormats{PointFormats: []PointFormat{PointFormatUncompressed}},
	}

	raw, err := Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	out, err := Unmarshal(raw)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip: got %#v, want %#v", out, in)
	}
}

func TestSupportedEllipticCurvesRejectsDuplicates(t *testing.T) {
	// supported_groups listing x25519 twice.
	data := []byte{0x00, 0x04, 0x00, 0x1d, 0x00, 0x1d}
	var s SupportedEllipticCurves
	if err := s.Unmarshal(data); err == nil {
		t.Fatal("expected duplicate curves to fail decoding")
	}
}

func TestUnmarshalRejectsDuplicateSupportedGroups(t *testing.T) {
	one, err := Marshal([]Extension{&SupportedEllipticCurves{EllipticCurves: []NamedCurve{X25519}}})
	if err != nil {
		t.Fatal(err)
	}
	// Duplicate the single extension entry inside one block.
	entry := one[2:]
	raw := []byte{0x00, byte(2 * len(entry))}
	raw = append(raw, entry...)
	raw = append(raw, entry...)

	if _, err := Unmarshal(raw); err == nil {
		t.Fatal("expected a duplicated supported_groups extension to fail decoding")
	}
}

func TestUnmarshalIgnoresUnknownExtensions(t *testing.T) {
	raw := []byte{
		0x00, 0x0e, // extensions block length
		0xff, 0x01, 0x00, 0x02, 0xaa, 0xbb, // unknown type, ignored
		0x00, 0x0d, 0x00, 0x04, 0x00, 0x02, 0x04, 0x07, // signature_algorithms
	}
	out, err := Unmarshal(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d extensions, want 1", len(out))
	}
	if _, ok := out[0].(*SignatureAlgorithms); !ok {
		t.Fatalf("unexpected extension type %T", out[0])
	}
}
