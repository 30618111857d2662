// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package protocol

// ContentType is the content type of a TLSPlaintext/DTLSPlaintext record,
// per RFC 5246 Section 6.2.1.
type ContentType uint8

// ContentType enums
const (
	ContentTypeChangeCipherSpec ContentType = 20
	ContentTypeAlert ContentType = 21
	ContentTypeHandshake ContentType = 22
	ContentTypeApplicationData ContentType = 23
)

func (c ContentType) String() string {
	switch c {
	case ContentTypeChangeCipherSpec:
		return "ChangeCipherSpec"
	case ContentTypeAlert:
		return "Alert"
	case ContentTypeHandshake:
		return "Handshake"
	case ContentTypeApplicationData:
		return "ApplicationData"
	default:
		return "Unknown"
	}
}

// Content represents the body of a record; each variant implements
// Marshal/Unmarshal and reports its own ContentType.
type Content interface {
	ContentType() ContentType
	Marshal() ([]byte, error)
	Unmarshal(data []byte) error
}
