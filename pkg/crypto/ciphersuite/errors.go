// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package ciphersuite

import "errors"

var (
	errNotEnoughRoomForNonce = errors.New("ciphersuite: buffer not long enough to contain nonce")
	errDecryptPacket = errors.New("ciphersuite: failed to decrypt packet")
	errInvalidMAC = errors.New("ciphersuite: record MAC mismatch")
	errInvalidPadding = errors.New("ciphersuite: invalid CBC padding")
	errUnsupportedSuite = errors.New("ciphersuite: unsupported cipher suite id")
)
