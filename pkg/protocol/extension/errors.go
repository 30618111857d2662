// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package extension

import "errors"

const maxExtensionsBlockSize = (1 << 16) - 1

var (
	errBufferTooSmall = errors.New("extension: buffer too small to unmarshal")
	errExtensionsTooLarge = errors.New("extension: extensions block exceeds maximum size")
	errDuplicateExtension = errors.New("extension: duplicate value in set-typed extension")
	errInvalidCurve = errors.New("extension: invalid or unsupported named curve")
)
