// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package tlsengine implements the core of a TLS 1.2 / DTLS 1.2 protocol
// engine for embedded and automotive use: the handshake state machine,
// the record layer, and the handshake message codec/reassembly layer.
//
// The engine is single-threaded and cooperative: a Connection
// is not safe to share across goroutines, and every exported method
// runs to completion synchronously. There is no internal read loop and
// no background worker; the embedder funnels transport and timer events
// onto one logical thread per Connection.
package tlsengine

import (
	"crypto"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/pion/logging"
	"github.com/pion/transport/v3/replaydetector"

	"github.com/censys-oss/tlsengine/pkg/crypto/ciphersuite"
	"github.com/censys-oss/tlsengine/pkg/crypto/elliptic"
	"github.com/censys-oss/tlsengine/pkg/protocol"
	"github.com/censys-oss/tlsengine/pkg/protocol/alert"
	"github.com/censys-oss/tlsengine/pkg/protocol/handshake"
	"github.com/censys-oss/tlsengine/pkg/protocol/recordlayer"
)

// defaultReplayProtectionWindow is specified by RFC 6347 Section 4.1.2.6.
const defaultReplayProtectionWindow = 64

// negotiation holds the in-progress handshake's working state: what has
// been offered, selected and derived so far. It backs the "pending"
// SecurityParameters slot until a ChangeCipherSpec installs it.
type negotiation struct {
	offeredSuites []ciphersuite.ID

	clientRandom [handshake.RandomBytesLength]byte
	serverRandom [handshake.RandomBytesLength]byte

	selectedSuite ciphersuite.ID
	pending *SecurityParameters

	clientAuthRequired bool
	peerLeafPublic crypto.PublicKey
	peerCertChain [][]byte

	localPrivateKey []byte // X25519 ephemeral, ECDHE suites
	localPublicKey []byte
	peerPublicKey []byte // peer's X25519 ephemeral, ECDHE suites
	pskIdentity []byte // PSK suites

	// verifyDataSnapshotLen is the transcript length just before
	// CertificateVerify: CertificateVerify signs everything
	// before itself, not the whole transcript.
	verifyDataSnapshotLen int

	cookie []byte
}

// Connection is one end of a TLS/DTLS session. Create one with
// NewClient or NewServer, drive it with OnTransportBytes/OnTimerEvent/
// Send, and release it with Close.
type Connection struct {
	role Role
	isDTLS bool
	config *Config
	log logging.LeveledLogger
	transport Transport
	timer Timer

	clientState ClientState
	serverState ServerState

	read *SecurityParameters
	write *SecurityParameters
	neg *negotiation
	epoch uint16

	localHandshakeSeq uint16
	aggregator *fragmentBuffer
	transcript transcript
	replay replaydetector.ReplayDetector

	lastFlight [][]byte // fully protected wire records of the last sent flight
	retryCount int
	nextTimeout time.Duration

	connectedCb func()
	disconnectedCb func(reason error)

	closed bool
}

// ConnOptions are the callbacks an embedder may set to observe
// Connection lifecycle events. Both are optional.
type ConnOptions struct {
	OnConnected func()
	OnDisconnected func(reason error)
}

// NewClient constructs a Connection in the client role, opened but not
// yet initiated. Call Initiate to send the first
// ClientHello.
func NewClient(cfg *Config, t Transport, opts ConnOptions) (*Connection, error) {
	return newConnection(RoleClient, cfg, t, opts)
}

// NewServer constructs a Connection in the server role, opened and
// waiting for an incoming ClientHello.
func NewServer(cfg *Config, t Transport, opts ConnOptions) (*Connection, error) {
	return newConnection(RoleServer, cfg, t, opts)
}

func newConnection(role Role, cfg *Config, t Transport, opts ConnOptions) (*Connection, error) {
	if cfg == nil {
		return nil, errInvalidArgument("newConnection", fmt.Errorf("config must not be nil"))
	}
	isDTLS := cfg.Variant == VariantDTLS

	if len(cfg.CipherSuites) > handshake.MaxCipherSuites {
		return nil, errInvalidArgument("newConnection", fmt.Errorf("at most %d cipher suites may be configured", handshake.MaxCipherSuites))
	}

	c := &Connection{
		role: role,
		isDTLS: isDTLS,
		config: cfg,
		log: cfg.loggerFactory().NewLogger("tlsengine"),
		transport: t,
		aggregator: newFragmentBuffer(isDTLS),
		read: &SecurityParameters{Entity: entityFor(role)},
		write: &SecurityParameters{Entity: entityFor(role)},
		neg: &negotiation{},
		nextTimeout: time.Duration(cfg.retransmitTimeout()) * time.Millisecond,
		connectedCb: opts.OnConnected,
		disconnectedCb: opts.OnDisconnected,
	}
	if isDTLS {
		c.replay = replaydetector.New(defaultReplayProtectionWindow, recordlayer.MaxSequenceNumber)
	}
	c.timer = cfg.timerFactory()(func() { _ = c.OnTimerEvent() })
	return c, nil
}

func entityFor(role Role) Entity {
	if role == RoleServer {
		return EntityServer
	}
	return EntityClient
}

// Initiate begins a client handshake by sending the first ClientHello.
// Calling it on a server Connection, or more than once, is an
// *InvalidState* error.
func (c *Connection) Initiate() error {
	if c.role != RoleClient {
		return errInvalidState("Initiate", fmt.Errorf("only a client Connection can initiate"))
	}
	if c.clientState != ClientDisconnected {
		return errInvalidState("Initiate", fmt.Errorf("handshake already in progress"))
	}
	return c.enterClient(ClientHelloSent)
}

// OnTransportBytes feeds bytes received from the peer. For DTLS, buf is
// one UDP datagram that may coalesce several records; for TLS it is
// whatever a stream read delivered, which this engine treats as
// record-aligned (embedders are expected to deliver whole reads).
func (c *Connection) OnTransportBytes(buf []byte) error {
	if c.closed {
		return errInvalidState("OnTransportBytes", fmt.Errorf("connection is closed"))
	}

	if c.isDTLS {
		records, err := recordlayer.ContentAwareUnpackDatagram(buf)
		if err != nil {
			return c.fail(errDeserialize("OnTransportBytes", err))
		}
		for _, raw := range records {
			if err := c.handleRecord(raw); err != nil {
				return err
			}
		}
		return nil
	}

	for len(buf) > 0 {
		if len(buf) < recordlayer.FixedHeaderSize {
			return c.fail(errDeserialize("OnTransportBytes", recordlayer.ErrInvalidPacketLength))
		}
		var hdr recordlayer.Header
		if err := hdr.Unmarshal(buf); err != nil {
			return c.fail(errDeserialize("OnTransportBytes", err))
		}
		total := hdr.Size() + int(hdr.ContentLen)
		if len(buf) < total {
			return c.fail(errDeserialize("OnTransportBytes", recordlayer.ErrInvalidPacketLength))
		}
		if err := c.handleRecord(buf[:total]); err != nil {
			return err
		}
		buf = buf[total:]
	}
	return nil
}

func (c *Connection) handleRecord(raw []byte) error {
	var header recordlayer.Header
	header.IsDTLS = c.isDTLS
	if err := header.Unmarshal(raw); err != nil {
		return c.fail(errDeserialize("handleRecord", err))
	}
	if int(header.ContentLen) > recordlayer.MaxCiphertextPayloadLength {
		return c.fail(errProtocol("handleRecord", alert.RecordOverflow, fmt.Errorf("record of %d bytes exceeds maximum ciphertext length", header.ContentLen)))
	}

	if c.isDTLS && header.Epoch != c.read.Epoch {
		return nil // epoch mismatch: silently drop
	}

	var markAsValid func() bool
	if c.isDTLS && header.Epoch > 0 && c.replay != nil {
		mark, ok := c.replay.Check(header.SequenceNumber)
		if !ok {
			return nil // replayed or below window: silently discard
		}
		markAsValid = mark
	}

	// TLS record protection authenticates an implicit 64-bit receive
	// counter that never appears on the wire; install it on the header
	// so the MAC/AEAD additional data sees the same value the sender
	// used.
	protected := header.ContentType != protocol.ContentTypeChangeCipherSpec && c.read.Epoch > 0
	if !c.isDTLS && protected {
		if c.read.RemoteReadSequence > recordlayer.MaxSequenceNumberTLS {
			return c.fail(errProtocol("handleRecord", alert.InsufficientSecurity, fmt.Errorf("read sequence number exhausted")))
		}
		header.SequenceNumber = c.read.RemoteReadSequence
	}

	plaintext, contentType, err := c.unprotect(header, raw)
	if err != nil {
		return c.fail(err)
	}
	// Authentication succeeded: slide the window (DTLS) or advance the
	// implicit receive counter (TLS). A record failing authentication
	// returns above and never advances either.
	if markAsValid != nil {
		markAsValid()
	}
	if !c.isDTLS && protected {
		c.read.RemoteReadSequence++
	}

	switch contentType {
	case protocol.ContentTypeHandshake:
		return c.onHandshakeBytes(plaintext)
	case protocol.ContentTypeChangeCipherSpec:
		var ccs protocol.ChangeCipherSpec
		if err := ccs.Unmarshal(plaintext); err != nil {
			return c.fail(errDeserialize("handleRecord", err))
		}
		return c.onChangeCipherSpec()
	case protocol.ContentTypeAlert:
		return c.onAlertBytes(plaintext)
	case protocol.ContentTypeApplicationData:
		if c.transport.WriteToCommParty != nil {
			return c.transport.WriteToCommParty(plaintext)
		}
		return nil
	default:
		return c.fail(errProtocol("handleRecord", alert.UnexpectedMessage, fmt.Errorf("unhandled content type %d", contentType)))
	}
}

// unprotect strips record protection from raw (header||content). Every
// record is protected once the read direction has activated a non-zero
// epoch; ChangeCipherSpec itself always arrives before that pivot, so
// it is never protected (renegotiation, which would allow a later CCS
// under an already-active cipher, is a Non-goal).
func (c *Connection) unprotect(header recordlayer.Header, raw []byte) ([]byte, protocol.ContentType, error) {
	if header.ContentType == protocol.ContentTypeChangeCipherSpec || c.read.Epoch == 0 {
		return raw[header.Size():], header.ContentType, nil
	}

	suite, err := c.read.Suite()
	if err != nil {
		return nil, 0, errInternal("unprotect", err)
	}
	plaintext, err := suite.Decrypt(header, raw)
	if err != nil {
		return nil, 0, errProtocol("unprotect", alert.BadRecordMac, err)
	}
	return plaintext[header.Size():], header.ContentType, nil
}

func (c *Connection) onHandshakeBytes(body []byte) error {
	if c.isDTLS {
		// One record may coalesce several handshake fragments.
		for len(body) > 0 {
			var hdr handshake.Header
			if err := hdr.Unmarshal(body); err != nil {
				return c.fail(errDeserialize("onHandshakeBytes", err))
			}
			end := handshake.DTLSHeaderLength + int(hdr.FragmentLength)
			if len(body) < end {
				return c.fail(errDeserialize("onHandshakeBytes", errFragmentOutOfBounds))
			}
			deliverables, err := c.aggregator.pushDTLS(hdr, body[handshake.DTLSHeaderLength:end])
			if err != nil {
				return c.fail(errHandshakeDecode("onHandshakeBytes", err))
			}
			body = body[end:]
			for _, d := range deliverables {
				if d.retransmit {
					if err := c.resendLastFlight(); err != nil {
						return err
					}
					continue
				}
				if err := c.deliverHandshakeMessage(d.message); err != nil {
					return err
				}
			}
		}
		return nil
	}

	whole, err := c.aggregator.pushTLS(body)
	if err != nil {
		return c.fail(errHandshakeDecode("onHandshakeBytes", err))
	}
	for _, hs := range whole {
		if err := c.deliverHandshakeMessage(hs); err != nil {
			return err
		}
	}
	return nil
}

func (c *Connection) deliverHandshakeMessage(hs handshake.Handshake) error {
	if hs.Message.Type().IncludedInFinishCalc() {
		wire, err := (&hs).Marshal()
		if err != nil {
			return c.fail(errInternal("deliverHandshakeMessage", err))
		}
		c.transcript.add(hs.Message.Type(), wire)
	}

	var err error
	if c.role == RoleClient {
		err = dispatchClient(c, eventHandshakeMessage, &hs, nil)
	} else {
		err = dispatchServer(c, eventHandshakeMessage, &hs, nil)
	}
	if err != nil {
		return c.fail(err)
	}
	return nil
}

func (c *Connection) onChangeCipherSpec() error {
	c.activatePendingRead()
	var err error
	if c.role == RoleClient {
		err = dispatchClient(c, eventChangeCipherSpec, nil, nil)
	} else {
		err = dispatchServer(c, eventChangeCipherSpec, nil, nil)
	}
	if err != nil {
		return c.fail(err)
	}
	return nil
}

func (c *Connection) onAlertBytes(body []byte) error {
	var al alert.Alert
	if err := al.Unmarshal(body); err != nil {
		return c.fail(errDeserialize("onAlertBytes", err))
	}
	if al.Level == alert.Fatal || al.Description == alert.CloseNotify {
		return c.teardown(fmt.Errorf("peer alert: %s", al.Description))
	}

	// Any other warning-level alert must not stop the connection: there is
	// no declared (state, eventAlertReceived) transition that tears it
	// down, only NoRenegotiation, which this engine sends but never
	// receives. Log and continue.
	c.log.Warnf("received warning alert: %s", al.Description)
	return nil
}

// OnTimerEvent delivers one firing of the Timer Port callback, the
// engine's only asynchronous input. States that do not await a peer
// flight declare no timer reaction; a stray firing in such a state
// (for example, one that raced the handshake's completion) is ignored.
func (c *Connection) OnTimerEvent() error {
	if c.closed {
		return nil
	}
	var h handler
	var ok bool
	if c.role == RoleClient {
		h, ok = clientTable[clientKey{c.clientState, eventTimerFired}]
	} else {
		h, ok = serverTable[serverKey{c.serverState, eventTimerFired}]
	}
	if !ok {
		return nil
	}
	if err := h(c, nil, nil); err != nil {
		return c.fail(err)
	}
	return nil
}

// Send writes application_data, fragmenting into records of at most
// 2^14 plaintext bytes each.
func (c *Connection) Send(b []byte) error {
	if c.closed {
		return errInvalidState("Send", fmt.Errorf("connection is closed"))
	}
	for len(b) > 0 {
		n := len(b)
		if n > recordlayer.MaxPlaintextPayloadLength {
			n = recordlayer.MaxPlaintextPayloadLength
		}
		if _, err := c.sendContent(protocol.ContentTypeApplicationData, &protocol.ApplicationData{Data: b[:n]}); err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

// sendContent marshals one record's content under the current write
// SecurityParameters (protecting it if the epoch is non-zero), writes
// it to transport, and returns the final wire bytes.
func (c *Connection) sendContent(ct protocol.ContentType, content protocol.Content) ([]byte, error) {
	header := recordlayer.Header{
		ContentType: ct,
		Version: versionFor(c.isDTLS),
		IsDTLS: c.isDTLS,
		Epoch: c.write.Epoch,
	}
	if c.write.LocalWriteSequence > maxSeq(c.isDTLS) {
		return nil, c.fail(errProtocol("sendContent", alert.InsufficientSecurity, fmt.Errorf("write sequence number exhausted")))
	}
	header.SequenceNumber = c.write.LocalWriteSequence
	c.write.LocalWriteSequence++

	rl := recordlayer.RecordLayer{Header: header, Content: content}
	raw, err := rl.Marshal()
	if err != nil {
		return nil, c.fail(errInternal("sendContent", err))
	}

	if header.Epoch != 0 {
		suite, err := c.write.Suite()
		if err != nil {
			return nil, c.fail(errInternal("sendContent", err))
		}
		raw, err = suite.Encrypt(header, raw)
		if err != nil {
			return nil, c.fail(errInternal("sendContent", err))
		}
	}

	if c.transport.WriteToTransport != nil {
		if err := c.transport.WriteToTransport(raw); err != nil {
			return nil, err
		}
	}
	return raw, nil
}

func versionFor(isDTLS bool) protocol.Version {
	if isDTLS {
		return protocol.DTLS1_2
	}
	return protocol.Version1_2
}

func maxSeq(isDTLS bool) uint64 {
	if isDTLS {
		return recordlayer.MaxSequenceNumber
	}
	return recordlayer.MaxSequenceNumberTLS
}

// sendHandshake marshals and sends one handshake message, assigning it
// the next message-sequence number, adds it to the transcript if it
// contributes to Finished, and records the resulting wire record for
// retransmission.
func (c *Connection) sendHandshake(msg handshake.Message) error {
	hs := handshake.Handshake{
		Header: handshake.Header{MessageSequence: c.localHandshakeSeq},
		Message: msg,
		IsDTLS: c.isDTLS,
	}
	c.localHandshakeSeq++

	wire, err := (&hs).Marshal()
	if err != nil {
		return c.fail(errInternal("sendHandshake", err))
	}
	if msg.Type().IncludedInFinishCalc() {
		c.transcript.add(msg.Type(), wire)
	}

	raw, err := c.sendContent(protocol.ContentTypeHandshake, &hs)
	if err != nil {
		return err
	}
	c.lastFlight = append(c.lastFlight, raw)
	return nil
}

// sendChangeCipherSpec sends ChangeCipherSpec and immediately pivots the
// write direction to the negotiated pending SecurityParameters.
func (c *Connection) sendChangeCipherSpec() error {
	raw, err := c.sendContent(protocol.ContentTypeChangeCipherSpec, &protocol.ChangeCipherSpec{})
	if err != nil {
		return err
	}
	c.lastFlight = append(c.lastFlight, raw)
	c.activatePendingWrite()
	return nil
}

func (c *Connection) sendAlert(level alert.Level, desc alert.Description) error {
	_, err := c.sendContent(protocol.ContentTypeAlert, &alert.Alert{Level: level, Description: desc})
	return err
}

// beginFlight clears the retransmission buffer and retry budget ahead
// of assembling a new flight.
func (c *Connection) beginFlight() {
	c.lastFlight = nil
	c.retryCount = 0
	c.nextTimeout = time.Duration(c.config.retransmitTimeout()) * time.Millisecond
}

// armRetransmitTimer starts (or restarts) the DTLS retransmission timer.
// TLS never arms it: retransmission is a stream-transport concept the
// engine does not need.
func (c *Connection) armRetransmitTimer() {
	if !c.isDTLS {
		return
	}
	c.timer.Start(c.nextTimeout)
}

// resendLastFlight rewrites the exact bytes of the previous flight to
// the transport, DTLS's retransmission behavior.
func (c *Connection) resendLastFlight() error {
	if c.transport.WriteToTransport == nil {
		return nil
	}
	for _, raw := range c.lastFlight {
		if err := c.transport.WriteToTransport(raw); err != nil {
			return err
		}
	}
	return nil
}

// retransmit resends the last flight, doubling the backoff timer up to
// its configured maximum, or fails the handshake once the retry budget
// is exhausted. In TLS mode a timeout is immediately fatal: the stream
// transport already retransmits, so an expired wait means the handshake
// is not going to complete.
func (c *Connection) retransmit() error {
	if !c.isDTLS {
		return c.fail(errProtocol("retransmit", alert.HandshakeFailure, fmt.Errorf("handshake timed out")))
	}
	maxTimeout := time.Duration(c.config.maxRetransmitTimeout()) * time.Millisecond
	if c.retryCount >= c.config.maxRetries() {
		return c.fail(errProtocol("retransmit", alert.HandshakeFailure, fmt.Errorf("retransmission retry budget exhausted")))
	}
	c.retryCount++
	c.log.Debugf("retransmitting flight (attempt %d/%d), next timeout %s", c.retryCount, c.config.maxRetries(), c.nextTimeout)
	if err := c.resendLastFlight(); err != nil {
		return err
	}
	c.nextTimeout *= 2
	if c.nextTimeout > maxTimeout {
		c.nextTimeout = maxTimeout
	}
	c.armRetransmitTimer()
	return nil
}

// newPendingSecurityParameters allocates the SecurityParameters this
// negotiation is building, pre-assigning the epoch it will activate to
// once ChangeCipherSpec pivots the corresponding read or write direction.
func (c *Connection) newPendingSecurityParameters(suite ciphersuite.ID) *SecurityParameters {
	params, _ := ciphersuite.Lookup(suite)
	sp := &SecurityParameters{
		Entity: entityFor(c.role),
		CipherSuite: suite,
		Params: params,
		Epoch: c.epoch + 1,
	}
	c.neg.pending = sp
	return sp
}

// activatePendingWrite pivots the write direction to the negotiated
// pending SecurityParameters.
func (c *Connection) activatePendingWrite() {
	if c.neg.pending == nil {
		return
	}
	c.write = c.neg.pending
	c.write.LocalWriteSequence = 0
	if c.write.Epoch > c.epoch {
		c.epoch = c.write.Epoch
	}
}

// activatePendingRead mirrors activatePendingWrite for the read
// direction, triggered by receiving ChangeCipherSpec.
func (c *Connection) activatePendingRead() {
	if c.neg.pending == nil {
		return
	}
	c.read = c.neg.pending
	c.read.RemoteReadSequence = 0
	if c.read.Epoch > c.epoch {
		c.epoch = c.read.Epoch
	}
	if c.isDTLS {
		c.replay = replaydetector.New(defaultReplayProtectionWindow, recordlayer.MaxSequenceNumber)
	}
}

// fail maps err to an alert (if any), sends it best-effort, and tears
// the connection down. Once torn down, later failures on the same
// delivery pass through without sending a second alert, preserving the
// original cause.
func (c *Connection) fail(err error) error {
	if c.closed {
		return err
	}
	if engErr, ok := AsEngineError(err); ok && engErr.Fatal {
		if engErr.Category == CategoryProtocol {
			_ = c.sendAlert(alert.Fatal, engErr.Alert)
		} else {
			_ = c.sendAlert(alert.Fatal, alert.InternalError)
		}
	}
	_ = c.teardown(err)
	return err
}

// teardown releases transient key material and notifies the application.
func (c *Connection) teardown(reason error) error {
	if c.closed {
		return nil
	}
	if reason != nil {
		c.log.Debugf("tearing down connection: %v", reason)
	}
	c.closed = true
	c.clientState = ClientDisconnected
	c.serverState = ServerDisconnected
	c.timer.Stop()
	c.read.Zeroize()
	c.write.Zeroize()
	if c.neg.pending != nil {
		c.neg.pending.Zeroize()
	}
	zero(c.neg.localPrivateKey)
	c.aggregator.reset()
	c.transcript.reset()
	if c.disconnectedCb != nil {
		c.disconnectedCb(reason)
	}
	return nil
}

// Close releases the Connection from the application side: it sends
// CloseNotify (unless disabled), then tears down.
func (c *Connection) Close() error {
	if c.closed {
		return nil
	}
	if c.config.sendCloseNotify() {
		_ = c.sendAlert(alert.Warning, alert.CloseNotify)
	}
	return c.teardown(nil)
}

func newRandom() handshake.Random {
	var r handshake.Random
	var fixed [handshake.RandomBytesLength]byte
	_, _ = rand.Read(fixed[:])
	r.UnmarshalFixed(fixed)
	return r
}

func generateX25519Keypair() (private, public []byte, err error) {
	return elliptic.GenerateKeypair(rand.Reader)
}
