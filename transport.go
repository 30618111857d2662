// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package tlsengine

// Transport is the Transport Port: two synchronous byte-stream
// callbacks, to the peer over the wire and to the local application.
// Neither callback may re-enter the Connection.
type Transport struct {
	// WriteToTransport delivers record bytes to the network.
	WriteToTransport func(b []byte) error
	// WriteToCommParty delivers authenticated plaintext application
	// bytes to the local application.
	WriteToCommParty func(b []byte) error
}
