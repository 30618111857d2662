// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package tlsengine

import (
	"github.com/censys-oss/tlsengine/pkg/protocol/handshake"
)

// transcript is the MessageManager: an ordered record of every
// handshake message sent or received so far in canonical wire form,
// used to compute Finished.verify_data and (for CertificateVerify) the
// signed transcript.
//
// The slice also supports "everything before CertificateVerify":
// callers snapshot len(entries) before appending CertificateVerify and
// pass that count to bytes.
type transcript struct {
	entries [][]byte
}

func (t *transcript) reset() {
	t.entries = nil
}

// add appends a message's canonical wire bytes (type+length header plus
// body, i.e. handshake.Handshake.Marshal() with FragmentOffset/Length
// normalized to a whole, unfragmented message) if its type contributes
// to the Finished calculation.
func (t *transcript) add(msgType handshake.Type, wire []byte) {
	if !msgType.IncludedInFinishCalc() {
		return
	}
	t.entries = append(t.entries, append([]byte{}, wire...))
}

// len reports how many contributing messages have been recorded so far,
// used to snapshot the pre-CertificateVerify boundary.
func (t *transcript) len() int {
	return len(t.entries)
}

// bytes concatenates the first n entries (or all, if n < 0) verbatim;
// the PRF VerifyDataClient/Server functions hash the result internally.
func (t *transcript) bytes(n int) []byte {
	if n < 0 || n > len(t.entries) {
		n = len(t.entries)
	}
	var out []byte
	for _, e := range t.entries[:n] {
		out = append(out, e...)
	}
	return out
}
