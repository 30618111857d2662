// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package tlsengine

import (
	"bytes"
	"sort"

	"github.com/censys-oss/tlsengine/pkg/protocol/handshake"
)

// fragmentBuffer is the handshake aggregator: it reassembles whatever
// shape the record layer hands it, a contiguous TLS byte stream or
// out-of-order DTLS fragments, into whole handshake messages delivered
// to the state machine in message-sequence order.
type fragmentBuffer struct {
	isDTLS bool

	// TLS mode: a single rolling byte queue.
	rolling []byte

	// DTLS mode: keyed reassembly table plus delivery bookkeeping.
	collectors map[uint16]*fragmentCollector
	nextExpected uint16
	lastDelivered map[uint16]handshake.Handshake
}

type fragmentCollector struct {
	header handshake.Header
	total uint32
	have []byteRange
	buf []byte
}

type byteRange struct{ start, end uint32 }

func newFragmentBuffer(isDTLS bool) *fragmentBuffer {
	return &fragmentBuffer{
		isDTLS: isDTLS,
		collectors: map[uint16]*fragmentCollector{},
		lastDelivered: map[uint16]handshake.Handshake{},
	}
}

// reset discards all in-flight reassembly state.
func (f *fragmentBuffer) reset() {
	f.rolling = nil
	f.collectors = map[uint16]*fragmentCollector{}
	f.lastDelivered = map[uint16]handshake.Handshake{}
	f.nextExpected = 0
}

// pushTLS appends newly received handshake-record bytes to the rolling
// buffer and returns every whole message now available, in order.
func (f *fragmentBuffer) pushTLS(data []byte) ([]handshake.Handshake, error) {
	f.rolling = append(f.rolling, data...)

	var out []handshake.Handshake
	for {
		if len(f.rolling) < handshake.HeaderLength {
			return out, nil
		}
		var hdr handshake.Header
		if err := hdr.UnmarshalTLS(f.rolling); err != nil {
			return nil, err
		}
		total := handshake.HeaderLength + int(hdr.Length)
		if len(f.rolling) < total {
			return out, nil
		}

		var hs handshake.Handshake
		hs.IsDTLS = false
		if err := hs.Unmarshal(f.rolling[:total]); err != nil {
			return nil, err
		}
		out = append(out, hs)
		f.rolling = f.rolling[total:]
	}
}

// pushDTLS inserts one received fragment — its header (FragmentOffset/
// FragmentLength/MessageSequence already parsed) and its raw, still-
// undecoded body bytes — and returns every message that becomes
// deliverable, in increasing message-sequence order, plus whether each
// is a retransmission of an already-delivered message. The fragment
// body is kept raw rather than decoded per-fragment: a mid-message
// fragment is not itself a well-formed encoding of its message type,
// only the reassembled whole is.
func (f *fragmentBuffer) pushDTLS(header handshake.Header, body []byte) ([]deliverable, error) {
	seq := header.MessageSequence

	if seq < f.nextExpected {
		if prev, ok := f.lastDelivered[seq]; ok {
			return []deliverable{{message: prev, retransmit: true}}, nil
		}
		return nil, nil
	}

	c, ok := f.collectors[seq]
	if !ok {
		c = &fragmentCollector{header: header, total: header.Length}
		f.collectors[seq] = c
	} else if header.Type != c.header.Type || header.Length != c.total {
		return nil, errDeserialize("fragment_buffer.pushDTLS", errFragmentConflict)
	}

	if err := c.insert(header, body); err != nil {
		return nil, err
	}

	// Deliver strictly in message-sequence order: a message that
	// completed ahead of nextExpected stays in its collector until
	// every predecessor has been delivered.
	var out []deliverable
	for {
		next, ok := f.collectors[f.nextExpected]
		if !ok || !next.complete() {
			break
		}

		hdr := next.header
		hdr.FragmentOffset = 0
		hdr.FragmentLength = hdr.Length
		headerRaw, err := hdr.Marshal()
		if err != nil {
			return nil, err
		}

		var whole handshake.Handshake
		whole.IsDTLS = true
		if err := whole.Unmarshal(append(headerRaw, next.buf...)); err != nil {
			return nil, err
		}

		out = append(out, deliverable{message: whole})
		f.lastDelivered[f.nextExpected] = whole
		delete(f.collectors, f.nextExpected)
		f.nextExpected++
	}
	return out, nil
}

type deliverable struct {
	message handshake.Handshake
	retransmit bool
}

func (c *fragmentCollector) insert(header handshake.Header, body []byte) error {
	offset := header.FragmentOffset
	length := uint32(len(body))

	if offset+length > c.total {
		return errDeserialize("fragment_buffer.insert", errFragmentOutOfBounds)
	}

	if c.buf == nil {
		c.buf = make([]byte, c.total)
	}

	r := byteRange{offset, offset + length}

	// A fragment may legitimately overlap bytes this collector already
	// holds (a retransmission, or a peer re-sending a wider fragment that
	// subsumes an earlier one). The overlapping bytes must match what's
	// already held; a mismatch means the two fragments disagree about the
	// content of the message and the message is invalid.
	for _, existing := range c.have {
		os := maxUint32(r.start, existing.start)
		oe := minUint32(r.end, existing.end)
		if os >= oe {
			continue
		}
		if !bytes.Equal(c.buf[os:oe], body[os-offset:oe-offset]) {
			return errDeserialize("fragment_buffer.insert", errFragmentConflict)
		}
	}

	copy(c.buf[offset:], body)
	c.have = append(c.have, r)
	c.have = mergeRanges(c.have)
	return nil
}

func maxUint32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

func minUint32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

func (c *fragmentCollector) complete() bool {
	return len(c.have) == 1 && c.have[0].start == 0 && c.have[0].end == c.total
}

func mergeRanges(ranges []byteRange) []byteRange {
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].start < ranges[j].start })
	out := ranges[:0]
	for _, r := range ranges {
		if len(out) > 0 && r.start <= out[len(out)-1].end {
			if r.end > out[len(out)-1].end {
				out[len(out)-1].end = r.end
			}
			continue
		}
		out = append(out, r)
	}
	return out
}
