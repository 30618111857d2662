// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package tlsengine

import (
	"reflect"
	"testing"

	"github.com/censys-oss/tlsengine/pkg/protocol/handshake"
)

func TestFragmentBufferPushTLS(t *testing.T) {
	msg := &handshake.MessageFinished{VerifyData: []byte("abcdefghijkl")}
	hs := handshake.Handshake{Message: msg}
	wire, err := hs.Marshal()
	if err != nil {
		t.Fatal(err)
	}

	fb := newFragmentBuffer(false)
	// Split the wire bytes across two pushes to exercise the rolling buffer.
	out, err := fb.pushTLS(wire[:3])
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Fatalf("got %d whole messages from a partial push, want 0", len(out))
	}

	out, err = fb.pushTLS(wire[3:])
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d whole messages, want 1", len(out))
	}
	got, ok := out[0].Message.(*handshake.MessageFinished)
	if !ok {
		t.Fatalf("unexpected message type %T", out[0].Message)
	}
	if !reflect.DeepEqual(got.VerifyData, msg.VerifyData) {
		t.Fatalf("got VerifyData %x, want %x", got.VerifyData, msg.VerifyData)
	}
}

func TestFragmentBufferPushDTLSOutOfOrder(t *testing.T) {
	body := []byte("abcdefghijkl")
	header := handshake.Header{Type: handshake.TypeFinished, Length: uint32(len(body)), MessageSequence: 0}

	first := header
	first.FragmentOffset = 0
	first.FragmentLength = 6

	second := header
	second.FragmentOffset = 6
	second.FragmentLength = 6

	fb := newFragmentBuffer(true)

	// Deliver the second fragment first: nothing should be deliverable yet.
	out, err := fb.pushDTLS(second, body[6:])
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Fatalf("got %d deliverables after only the tail fragment, want 0", len(out))
	}

	out, err = fb.pushDTLS(first, body[:6])
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d deliverables, want 1", len(out))
	}
	if out[0].retransmit {
		t.Fatal("first delivery marked as a retransmission")
	}
	got, ok := out[0].message.Message.(*handshake.MessageFinished)
	if !ok {
		t.Fatalf("unexpected message type %T", out[0].message.Message)
	}
	if !reflect.DeepEqual(got.VerifyData, body) {
		t.Fatalf("got VerifyData %x, want %x", got.VerifyData, body)
	}

	// Redelivering the last fragment of an already-assembled message
	// reports a retransmission rather than reassembling again.
	out, err = fb.pushDTLS(second, body[6:])
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || !out[0].retransmit {
		t.Fatalf("expected a single retransmit deliverable, got %#v", out)
	}
}

func TestFragmentBufferPushDTLSConflictingOverlap(t *testing.T) {
	body := []byte("abcdefghijkl")
	header := handshake.Header{Type: handshake.TypeFinished, Length: uint32(len(body)), MessageSequence: 0}

	first := header
	first.FragmentOffset = 0
	first.FragmentLength = 8

	conflicting := header
	conflicting.FragmentOffset = 4
	conflicting.FragmentLength = 8

	fb := newFragmentBuffer(true)

	out, err := fb.pushDTLS(first, body[:8])
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Fatalf("got %d deliverables after a partial fragment, want 0", len(out))
	}

	// A fragment covering bytes [4,12) whose content disagrees with the
	// bytes already held for [4,8) must be rejected, not silently
	// overwritten.
	tampered := append([]byte{}, body[4:]...)
	tampered[0] ^= 0xff
	if _, err := fb.pushDTLS(conflicting, tampered); err == nil {
		t.Fatal("expected an error for conflicting overlapping fragment content")
	}
}

func TestFragmentBufferPushDTLSHoldsFutureSequence(t *testing.T) {
	first := []byte("first-body--")
	second := []byte("second-body-")

	hdr0 := handshake.Header{Type: handshake.TypeFinished, Length: uint32(len(first)), MessageSequence: 0, FragmentLength: uint32(len(first))}
	hdr1 := handshake.Header{Type: handshake.TypeFinished, Length: uint32(len(second)), MessageSequence: 1, FragmentLength: uint32(len(second))}

	fb := newFragmentBuffer(true)

	// A complete message ahead of the next expected sequence must wait
	// for its predecessor, not jump the queue.
	out, err := fb.pushDTLS(hdr1, second)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Fatalf("got %d deliverables for a future sequence, want 0", len(out))
	}

	out, err = fb.pushDTLS(hdr0, first)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d deliverables, want 2", len(out))
	}
	got0 := out[0].message.Message.(*handshake.MessageFinished)
	got1 := out[1].message.Message.(*handshake.MessageFinished)
	if !reflect.DeepEqual(got0.VerifyData, first) || !reflect.DeepEqual(got1.VerifyData, second) {
		t.Fatalf("delivery order: got %q then %q", got0.VerifyData, got1.VerifyData)
	}
}

func TestMergeRanges(t *testing.T) {
	in := []byteRange{{10, 20}, {0, 5}, {5, 10}, {15, 25}}
	got := mergeRanges(in)
	want := []byteRange{{0, 25}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
