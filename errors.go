// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package tlsengine

import (
	"errors"
	"fmt"

	"github.com/censys-oss/tlsengine/pkg/protocol/alert"
	"github.com/censys-oss/tlsengine/pkg/protocol/handshake"
)

// Category is the error taxonomy the state machine and record layer use
// to decide what, if anything, crosses the wire.
type Category int

// Category enums
const (
	CategoryInternal Category = iota
	CategoryInvalidArgument
	CategoryInvalidState
	CategoryDeserialize
	CategorySerialize
	CategoryProtocol // maps 1:1 to an alert.Description
	CategoryCryptoAdapterFailure
)

// Error is the error value every exported operation returns. It always
// carries enough to decide the wire-visible consequence: whether to
// send an alert, which one, and whether the connection becomes fatal.
type Error struct {
	Category Category
	Alert alert.Description // meaningful only when Category == CategoryProtocol
	Fatal bool
	Op string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tlsengine: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("tlsengine: %s", e.Op)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(op string, category Category, fatal bool, desc alert.Description, err error) *Error {
	return &Error{Op: op, Category: category, Fatal: fatal, Alert: desc, Err: err}
}

func errInternal(op string, err error) *Error {
	return newError(op, CategoryInternal, true, alert.InternalError, err)
}

func errInvalidArgument(op string, err error) *Error {
	return newError(op, CategoryInvalidArgument, false, 0, err)
}

func errInvalidState(op string, err error) *Error {
	return newError(op, CategoryInvalidState, false, 0, err)
}

func errDeserialize(op string, err error) *Error {
	return newError(op, CategoryDeserialize, true, alert.DecodeError, err)
}

// errHandshakeDecode classifies a handshake.Message.Unmarshal failure.
// Most decode failures are wire corruption (DecodeError); a message that
// decodes structurally but carries a field value the protocol forbids
// (an empty cipher_suites list, an oversized cookie or session_id) is
// IllegalParameter instead, and a message whose protocol version the
// engine does not accept is ProtocolVersion.
func errHandshakeDecode(op string, err error) *Error {
	switch {
	case errors.Is(err, handshake.ErrUnexpectedVersion):
		return errProtocol(op, alert.ProtocolVersion, err)
	case errors.Is(err, handshake.ErrNoCipherSuites),
		errors.Is(err, handshake.ErrTooManyCipherSuites),
		errors.Is(err, handshake.ErrCookieTooLong),
		errors.Is(err, handshake.ErrSessionIDTooLong):
		return errProtocol(op, alert.IllegalParameter, err)
	default:
		return errDeserialize(op, err)
	}
}

// errProtocol builds a fatal protocol error that maps directly to an
// outbound alert.
func errProtocol(op string, desc alert.Description, err error) *Error {
	return newError(op, CategoryProtocol, true, desc, err)
}

var errFragmentOutOfBounds = errors.New("tlsengine: dtls fragment offset/length out of bounds")
var errFragmentConflict = errors.New("tlsengine: dtls fragment conflicts with previously received bytes")
var errNoTransitionDeclared = errors.New("tlsengine: no handler declared for this (state, event) pair")
var errUnsupportedKex = errors.New("tlsengine: cipher suite uses an unsupported key-exchange algorithm")
var errCipherSuiteNotOffered = errors.New("tlsengine: selected cipher suite was not offered")
var errFinishedMismatch = errors.New("tlsengine: Finished verify_data mismatch")
var errPSKIdentityUnknown = errors.New("tlsengine: PSK identity not recognized")
var errCookieInvalid = errors.New("tlsengine: DTLS cookie missing or invalid")
var errCompressionMethodNotOffered = errors.New("tlsengine: ClientHello did not offer null compression")

// AsEngineError unwraps err into an *Error, if it is (or wraps) one.
func AsEngineError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
