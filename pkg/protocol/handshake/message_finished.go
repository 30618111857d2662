// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package handshake

import "github.com/zmap/zcrypto/tls"

// MessageFinished is the first message protected with the just-negotiated
// algorithms, keys and secrets. Recipients MUST verify verify_data against
// their own transcript hash before reaching Connected, RFC 5246 Section
// 7.4.9. verify_data is truncated to 12 bytes.
type MessageFinished struct {
	VerifyData []byte
}

// Type returns the Handshake Type
func (m MessageFinished) Type() Type {
	return TypeFinished
}

// Marshal encodes the Handshake
func (m *MessageFinished) Marshal() ([]byte, error) {
	return append([]byte{}, m.VerifyData...), nil
}

// Unmarshal populates the message from encoded data
func (m *MessageFinished) Unmarshal(data []byte) error {
	m.VerifyData = append([]byte{}, data...)
	return nil
}

func (m *MessageFinished) MakeLog() *tls.Finished {
	ret := &tls.Finished{}
	ret.VerifyData = append([]byte{}, m.VerifyData...)
	return ret
}
