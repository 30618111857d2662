// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package recordlayer

import "errors"

// ErrInvalidPacketLength is returned when a packet is too small to contain
// a valid record layer header or content length.
var ErrInvalidPacketLength = errors.New("recordlayer: packet is too small")

var (
	errUnhandledContentType = errors.New("recordlayer: unhandled content type")
	errRecordOverflow = errors.New("recordlayer: plaintext payload exceeds maximum record size")
)
