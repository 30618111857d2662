// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package tlsengine

import (
	"crypto/subtle"
	"fmt"

	"github.com/censys-oss/tlsengine/pkg/crypto/ciphersuite"
	"github.com/censys-oss/tlsengine/pkg/crypto/elliptic"
	"github.com/censys-oss/tlsengine/pkg/crypto/prf"
	"github.com/censys-oss/tlsengine/pkg/crypto/signaturehash"
	"github.com/censys-oss/tlsengine/pkg/protocol"
	"github.com/censys-oss/tlsengine/pkg/protocol/alert"
	"github.com/censys-oss/tlsengine/pkg/protocol/extension"
	"github.com/censys-oss/tlsengine/pkg/protocol/handshake"
)

// This file implements the (state, event) handlers the client and
// server dispatch tables in handshaker.go reference: the handshake
// flights of both roles, happy path and failure reactions alike.

// --- client ---

func clientEnterDisconnected(_ *Connection, _ *handshake.Handshake, _ *alert.Alert) error {
	return nil
}

func clientEnterHelloSent(c *Connection, _ *handshake.Handshake, _ *alert.Alert) error {
	random := newRandom()
	c.neg.clientRandom = random.MarshalFixed()
	c.beginFlight()
	if err := clientSendClientHello(c, random); err != nil {
		return err
	}
	c.armRetransmitTimer()
	return nil
}

func clientSendClientHello(c *Connection, random handshake.Random) error {
	suiteIDs := make([]uint16, len(c.config.CipherSuites))
	for i, id := range c.config.CipherSuites {
		suiteIDs[i] = uint16(id)
	}
	ch := &handshake.MessageClientHello{
		Version: versionFor(c.isDTLS),
		Random: random,
		CompressionMethods: []*protocol.CompressionMethod{{ID: protocol.CompressionMethodNull}},
		CipherSuiteIDs: suiteIDs,
		IsDTLS: c.isDTLS,
		Cookie: c.neg.cookie,
		Extensions: []extension.Extension{
			&extension.SupportedEllipticCurves{EllipticCurves: []extension.NamedCurve{extension.X25519}},
			&extension.SignatureAlgorithms{SignatureHashAlgorithms: []extension.SignatureHashAlgorithm{signaturehash.Algorithm}},
		},
	}
	return c.sendHandshake(ch)
}

// clientHelloSentOnMessage reacts to either a DTLS HelloVerifyRequest
// (the server's cookie round trip) or the real ServerHello.
func clientHelloSentOnMessage(c *Connection, hs *handshake.Handshake, _ *alert.Alert) error {
	switch hs.Message.Type() {
	case handshake.TypeHelloVerifyRequest:
		if !c.isDTLS {
			return errProtocol("clientHelloSentOnMessage", alert.UnexpectedMessage, errNoTransitionDeclared)
		}
		hvr := hs.Message.(*handshake.MessageHelloVerifyRequest)
		c.neg.cookie = hvr.Cookie
		// Only the cookie-bearing ClientHello counts toward the
		// transcript, RFC 6347 Section 4.2.1, and both sides restart
		// message-sequence numbering at 0 for the second exchange.
		c.transcript.reset()
		c.aggregator.reset()
		c.localHandshakeSeq = 0
		c.beginFlight()
		var random handshake.Random
		random.UnmarshalFixed(c.neg.clientRandom)
		if err := clientSendClientHello(c, random); err != nil {
			return err
		}
		c.armRetransmitTimer()
		return nil
	case handshake.TypeServerHello:
		return clientHandleServerHello(c, hs)
	default:
		return errProtocol("clientHelloSentOnMessage", alert.UnexpectedMessage, errNoTransitionDeclared)
	}
}

func clientHandleServerHello(c *Connection, hs *handshake.Handshake) error {
	sh := hs.Message.(*handshake.MessageServerHello)
	if sh.CipherSuiteID == nil {
		return errProtocol("clientHandleServerHello", alert.HandshakeFailure, fmt.Errorf("server hello missing cipher suite"))
	}
	selected := ciphersuite.ID(*sh.CipherSuiteID)
	if !suiteOffered(c.config.CipherSuites, selected) {
		return errProtocol("clientHandleServerHello", alert.HandshakeFailure, errCipherSuiteNotOffered)
	}
	if _, ok := ciphersuite.Lookup(selected); !ok {
		return errProtocol("clientHandleServerHello", alert.HandshakeFailure, errUnsupportedKex)
	}

	c.neg.selectedSuite = selected
	c.neg.serverRandom = sh.Random.MarshalFixed()

	pending := c.newPendingSecurityParameters(selected)
	pending.ClientRandom = c.neg.clientRandom
	pending.ServerRandom = c.neg.serverRandom

	return c.enterClient(ClientServerHelloReceived)
}

func suiteOffered(suites []ciphersuite.ID, id ciphersuite.ID) bool {
	for _, s := range suites {
		if s == id {
			return true
		}
	}
	return false
}

// clientServerHelloReceivedOnMessage handles the first message of the
// server's flight: Certificate for cert-based suites, or ServerKeyExchange
// directly for PSK suites (which never send a Certificate).
func clientServerHelloReceivedOnMessage(c *Connection, hs *handshake.Handshake, _ *alert.Alert) error {
	params, _ := ciphersuite.Lookup(c.neg.selectedSuite)
	switch hs.Message.Type() {
	case handshake.TypeCertificate:
		if !params.CertBased {
			return errProtocol("clientServerHelloReceivedOnMessage", alert.UnexpectedMessage, errNoTransitionDeclared)
		}
		if err := clientVerifyServerCertificate(c, hs); err != nil {
			return err
		}
		return c.enterClient(ClientServerCertificateExchange)
	case handshake.TypeServerKeyExchange:
		if params.CertBased {
			return errProtocol("clientServerHelloReceivedOnMessage", alert.UnexpectedMessage, errNoTransitionDeclared)
		}
		if err := clientHandleServerKeyExchange(c, hs, params); err != nil {
			return err
		}
		return c.enterClient(ClientServerKeyExchangeState)
	default:
		return errProtocol("clientServerHelloReceivedOnMessage", alert.UnexpectedMessage, errNoTransitionDeclared)
	}
}

func clientVerifyServerCertificate(c *Connection, hs *handshake.Handshake) error {
	cert := hs.Message.(*handshake.MessageCertificate)
	if c.config.Crypto.VerifyChain == nil {
		return errInternal("clientVerifyServerCertificate", fmt.Errorf("no certificate verifier configured"))
	}
	leaf, err := c.config.Crypto.VerifyChain(cert.Certificate)
	if err != nil {
		return errProtocol("clientVerifyServerCertificate", alert.BadCertificate, err)
	}
	c.neg.peerCertChain = cert.Certificate
	c.neg.peerLeafPublic = leaf
	return nil
}

// clientServerCertificateExchangeOnMessage expects the ServerKeyExchange
// that follows a cert-based server Certificate.
func clientServerCertificateExchangeOnMessage(c *Connection, hs *handshake.Handshake, _ *alert.Alert) error {
	if hs.Message.Type() != handshake.TypeServerKeyExchange {
		return errProtocol("clientServerCertificateExchangeOnMessage", alert.UnexpectedMessage, errNoTransitionDeclared)
	}
	params, _ := ciphersuite.Lookup(c.neg.selectedSuite)
	if err := clientHandleServerKeyExchange(c, hs, params); err != nil {
		return err
	}
	return c.enterClient(ClientServerKeyExchangeState)
}

// clientHandleServerKeyExchange re-parses the MessageRaw placeholder into
// the concrete PSK or ECDHE shape and, for ECDHE, verifies the signature
// over client_random || server_random || ECParams || PublicKey.
func clientHandleServerKeyExchange(c *Connection, hs *handshake.Handshake, params ciphersuite.Params) error {
	raw, ok := hs.Message.(*handshake.MessageRaw)
	if !ok {
		return errInternal("clientHandleServerKeyExchange", fmt.Errorf("server key exchange not decoded as raw"))
	}
	skx := &handshake.MessageServerKeyExchange{IsPSK: params.KeyExchange == ciphersuite.KeyExchangePSK}
	if err := skx.Unmarshal(raw.Body); err != nil {
		return errDeserialize("clientHandleServerKeyExchange", err)
	}
	if skx.IsPSK {
		c.neg.pskIdentity = skx.IdentityHint
		return nil
	}
	if c.neg.peerLeafPublic == nil {
		return errProtocol("clientHandleServerKeyExchange", alert.HandshakeFailure, fmt.Errorf("no certificate received for ECDHE suite"))
	}
	signed := skx.SignedParams(c.neg.clientRandom, c.neg.serverRandom)
	if err := signaturehash.Verify(c.neg.peerLeafPublic, signed, skx.Signature); err != nil {
		return errProtocol("clientHandleServerKeyExchange", alert.DecryptError, err)
	}
	c.neg.peerPublicKey = skx.PublicKey
	return nil
}

func clientServerKeyExchangeOnMessage(c *Connection, hs *handshake.Handshake, _ *alert.Alert) error {
	switch hs.Message.Type() {
	case handshake.TypeCertificateRequest:
		c.neg.clientAuthRequired = true
		return c.enterClient(ClientCertificateRequestState)
	case handshake.TypeServerHelloDone:
		return c.enterClient(ClientServerHelloDone)
	default:
		return errProtocol("clientServerKeyExchangeOnMessage", alert.UnexpectedMessage, errNoTransitionDeclared)
	}
}

func clientCertificateRequestOnMessage(c *Connection, hs *handshake.Handshake, _ *alert.Alert) error {
	if hs.Message.Type() != handshake.TypeServerHelloDone {
		return errProtocol("clientCertificateRequestOnMessage", alert.UnexpectedMessage, errNoTransitionDeclared)
	}
	return c.enterClient(ClientServerHelloDone)
}

// clientEnterServerHelloDone assembles and sends the client's whole
// response flight: Certificate (if requested), ClientKeyExchange,
// CertificateVerify (if requested), ChangeCipherSpec, Finished.
func clientEnterServerHelloDone(c *Connection, _ *handshake.Handshake, _ *alert.Alert) error {
	c.beginFlight()
	params, _ := ciphersuite.Lookup(c.neg.selectedSuite)

	if c.neg.clientAuthRequired {
		if len(c.config.Crypto.LocalCert) == 0 {
			return c.fail(errProtocol("clientEnterServerHelloDone", alert.HandshakeFailure, fmt.Errorf("server requested a client certificate but none is configured")))
		}
		if err := c.sendHandshake(&handshake.MessageCertificate{Certificate: c.config.Crypto.LocalCert}); err != nil {
			return err
		}
	}

	preMasterSecret, err := clientBuildPreMasterSecret(c, params)
	if err != nil {
		return c.fail(err)
	}

	if err := c.sendHandshake(clientKeyExchangeMessage(c, params)); err != nil {
		return err
	}

	if c.neg.clientAuthRequired {
		signed := c.transcript.bytes(-1)
		sig, err := signaturehash.Sign(c.config.Crypto.LocalSignerKey, signed)
		if err != nil {
			return c.fail(errInternal("clientEnterServerHelloDone", err))
		}
		cv := &handshake.MessageCertificateVerify{
			AlgorithmHash: signaturehash.Algorithm.Hash,
			AlgorithmSignature: signaturehash.Algorithm.Signature,
			Signature: sig,
		}
		if err := c.sendHandshake(cv); err != nil {
			return err
		}
	}

	pending := c.neg.pending
	if err := deriveSecurityParameters(pending, preMasterSecret); err != nil {
		return c.fail(errInternal("clientEnterServerHelloDone", err))
	}

	verifyData, err := prf.VerifyDataClient(pending.MasterSecret, c.transcript.bytes(-1), prfHashNew(pending.Params))
	if err != nil {
		return c.fail(errInternal("clientEnterServerHelloDone", err))
	}

	if err := c.sendChangeCipherSpec(); err != nil {
		return err
	}
	if err := c.sendHandshake(&handshake.MessageFinished{VerifyData: verifyData}); err != nil {
		return err
	}

	c.armRetransmitTimer()
	return c.enterClient(ClientServerChangeCipherSpec)
}

func clientBuildPreMasterSecret(c *Connection, params ciphersuite.Params) ([]byte, error) {
	if params.KeyExchange == ciphersuite.KeyExchangePSK {
		psk, identity, err := resolveClientPSK(c)
		if err != nil {
			return nil, err
		}
		c.neg.pskIdentity = identity
		return derivePreMasterSecretPSK(psk), nil
	}

	priv, pub, err := generateX25519Keypair()
	if err != nil {
		return nil, errInternal("clientBuildPreMasterSecret", err)
	}
	c.neg.localPrivateKey = priv
	c.neg.localPublicKey = pub

	secret, err := prf.PreMasterSecret(c.neg.peerPublicKey, priv, elliptic.X25519)
	if err != nil {
		return nil, errInternal("clientBuildPreMasterSecret", err)
	}
	return secret, nil
}

// resolveClientPSK picks the first configured identity. The server's
// identity_hint (if any) is advisory only, RFC 4279 Section 2.
func resolveClientPSK(c *Connection) (psk, identity []byte, err error) {
	if c.config.PSK == nil || len(c.config.PSK.Identities) == 0 {
		return nil, nil, errProtocol("resolveClientPSK", alert.HandshakeFailure, errPSKIdentityUnknown)
	}
	entry := c.config.PSK.Identities[0]
	return entry.Key, []byte(entry.Identity), nil
}

func clientKeyExchangeMessage(c *Connection, params ciphersuite.Params) handshake.Message {
	if params.KeyExchange == ciphersuite.KeyExchangePSK {
		return &handshake.MessageClientKeyExchange{IsPSK: true, PSKIdentity: c.neg.pskIdentity}
	}
	return &handshake.MessageClientKeyExchange{PublicKey: c.neg.localPublicKey}
}

func clientOnChangeCipherSpec(_ *Connection, _ *handshake.Handshake, _ *alert.Alert) error {
	return nil
}

func clientServerChangeCipherSpecOnMessage(c *Connection, hs *handshake.Handshake, _ *alert.Alert) error {
	if hs.Message.Type() != handshake.TypeFinished {
		return errProtocol("clientServerChangeCipherSpecOnMessage", alert.UnexpectedMessage, errNoTransitionDeclared)
	}
	fin := hs.Message.(*handshake.MessageFinished)
	pending := c.read

	expected, err := prf.VerifyDataServer(pending.MasterSecret, c.transcript.bytes(c.transcript.len()-1), prfHashNew(pending.Params))
	if err != nil {
		return c.fail(errInternal("clientServerChangeCipherSpecOnMessage", err))
	}
	if subtle.ConstantTimeCompare(expected, fin.VerifyData) != 1 {
		return c.fail(errProtocol("clientServerChangeCipherSpecOnMessage", alert.DecryptError, errFinishedMismatch))
	}

	c.timer.Stop()
	if err := c.enterClient(ClientConnected); err != nil {
		return err
	}
	if c.connectedCb != nil {
		c.connectedCb()
	}
	return nil
}

func clientRetransmit(c *Connection, _ *handshake.Handshake, _ *alert.Alert) error {
	return c.retransmit()
}

// --- server ---

func serverDisconnectedOnMessage(c *Connection, hs *handshake.Handshake, _ *alert.Alert) error {
	if hs.Message.Type() != handshake.TypeClientHello {
		return errProtocol("serverDisconnectedOnMessage", alert.UnexpectedMessage, errNoTransitionDeclared)
	}
	ch := hs.Message.(*handshake.MessageClientHello)

	if !clientHelloOffersNullCompression(ch) {
		return c.fail(errProtocol("serverDisconnectedOnMessage", alert.HandshakeFailure, errCompressionMethodNotOffered))
	}

	if c.isDTLS && c.config.CookieVerificationEnabled {
		expected, err := serverExpectedCookie(c, ch)
		if err != nil {
			return c.fail(errInternal("serverDisconnectedOnMessage", err))
		}
		if len(ch.Cookie) == 0 {
			// Nothing from the first exchange counts: the transcript and
			// the reassembly table restart with the cookie-bearing
			// ClientHello, which arrives at message-sequence 0 again.
			c.transcript.reset()
			c.aggregator.reset()
			return serverSendHelloVerifyRequest(c, expected)
		}
		if subtle.ConstantTimeCompare(expected, ch.Cookie) != 1 {
			return c.fail(errProtocol("serverDisconnectedOnMessage", alert.HandshakeFailure, errCookieInvalid))
		}
	}

	selected, ok := serverSelectCipherSuite(c, ch.CipherSuiteIDs)
	if !ok {
		return c.fail(errProtocol("serverDisconnectedOnMessage", alert.HandshakeFailure, errCipherSuiteNotOffered))
	}

	offeredSuites := make([]ciphersuite.ID, len(ch.CipherSuiteIDs))
	for i, id := range ch.CipherSuiteIDs {
		offeredSuites[i] = ciphersuite.ID(id)
	}
	c.neg.offeredSuites = offeredSuites
	c.neg.selectedSuite = selected
	c.neg.clientRandom = ch.Random.MarshalFixed()

	return c.enterServer(ServerClientHelloReceived)
}

// clientHelloOffersNullCompression reports whether the ClientHello's
// compression_methods list includes null. This engine never negotiates
// anything else, so a list missing it fails the handshake outright
// rather than silently continuing as if it had been offered.
func clientHelloOffersNullCompression(ch *handshake.MessageClientHello) bool {
	for _, cm := range ch.CompressionMethods {
		if cm != nil && cm.ID == protocol.CompressionMethodNull {
			return true
		}
	}
	return false
}

// serverSelectCipherSuite walks the client's offer in its own preference
// order and picks the first suite also present in the server's configured
// list.
func serverSelectCipherSuite(c *Connection, offeredIDs []uint16) (ciphersuite.ID, bool) {
	for _, off := range offeredIDs {
		for _, cfg := range c.config.CipherSuites {
			if ciphersuite.ID(off) != cfg {
				continue
			}
			if _, ok := ciphersuite.Lookup(cfg); ok {
				return cfg, true
			}
		}
	}
	return 0, false
}

func serverExpectedCookie(c *Connection, ch *handshake.MessageClientHello) ([]byte, error) {
	withoutCookie := *ch
	withoutCookie.Cookie = nil
	raw, err := withoutCookie.Marshal()
	if err != nil {
		return nil, err
	}
	return cookieMAC(c.config.VerificationSecret, raw), nil
}

// serverSendHelloVerifyRequest replies with a stateless
// HelloVerifyRequest: no server state or handshake sequence advances.
func serverSendHelloVerifyRequest(c *Connection, cookie []byte) error {
	hvr := &handshake.MessageHelloVerifyRequest{Version: versionFor(c.isDTLS), Cookie: cookie}
	hs := handshake.Handshake{Message: hvr, IsDTLS: true}
	_, err := c.sendContent(protocol.ContentTypeHandshake, &hs)
	return err
}

// serverEnterClientHelloReceived sends the server's whole response flight
// (ServerHello, optional Certificate, ServerKeyExchange, optional
// CertificateRequest, ServerHelloDone) and moves straight on to waiting
// for the client's key exchange.
func serverEnterClientHelloReceived(c *Connection, _ *handshake.Handshake, _ *alert.Alert) error {
	c.beginFlight()
	params, _ := ciphersuite.Lookup(c.neg.selectedSuite)

	random := newRandom()
	c.neg.serverRandom = random.MarshalFixed()

	suiteID := uint16(c.neg.selectedSuite)
	sh := &handshake.MessageServerHello{
		Version: versionFor(c.isDTLS),
		Random: random,
		CipherSuiteID: &suiteID,
		CompressionMethod: &protocol.CompressionMethod{ID: protocol.CompressionMethodNull},
	}
	if err := c.sendHandshake(sh); err != nil {
		return err
	}

	pending := c.newPendingSecurityParameters(c.neg.selectedSuite)
	pending.ClientRandom = c.neg.clientRandom
	pending.ServerRandom = c.neg.serverRandom

	if params.CertBased {
		if len(c.config.Crypto.LocalCert) == 0 {
			return c.fail(errInvalidArgument("serverEnterClientHelloReceived", fmt.Errorf("certificate-based suite selected but no server certificate configured")))
		}
		if err := c.sendHandshake(&handshake.MessageCertificate{Certificate: c.config.Crypto.LocalCert}); err != nil {
			return err
		}
	}

	skx, err := serverKeyExchangeMessage(c, params)
	if err != nil {
		return c.fail(err)
	}
	if err := c.sendHandshake(skx); err != nil {
		return err
	}

	if params.CertBased && c.config.RequireClientCertificate {
		cr := &handshake.MessageCertificateRequest{
			CertificateTypes: []handshake.ClientCertificateType{handshake.ClientCertificateTypeECDSASign},
			SignatureHashAlgorithms: []extension.SignatureHashAlgorithm{signaturehash.Algorithm},
		}
		if err := c.sendHandshake(cr); err != nil {
			return err
		}
		c.neg.clientAuthRequired = true
	}

	if err := c.sendHandshake(&handshake.MessageServerHelloDone{}); err != nil {
		return err
	}

	c.armRetransmitTimer()
	return c.enterServer(ServerClientKeyExchangeState)
}

func serverKeyExchangeMessage(c *Connection, params ciphersuite.Params) (handshake.Message, error) {
	if params.KeyExchange == ciphersuite.KeyExchangePSK {
		hint := ""
		if c.config.PSK != nil {
			hint = c.config.PSK.Hint
		}
		return &handshake.MessageServerKeyExchange{IsPSK: true, IdentityHint: []byte(hint)}, nil
	}

	priv, pub, err := generateX25519Keypair()
	if err != nil {
		return nil, errInternal("serverKeyExchangeMessage", err)
	}
	c.neg.localPrivateKey = priv
	c.neg.localPublicKey = pub

	skx := &handshake.MessageServerKeyExchange{
		NamedCurve: extension.X25519,
		PublicKey: pub,
		AlgorithmHash: signaturehash.Algorithm.Hash,
		AlgorithmSignature: signaturehash.Algorithm.Signature,
	}
	sig, err := signaturehash.Sign(c.config.Crypto.LocalSignerKey, skx.SignedParams(c.neg.clientRandom, c.neg.serverRandom))
	if err != nil {
		return nil, errInternal("serverKeyExchangeMessage", err)
	}
	skx.Signature = sig
	return skx, nil
}

// serverClientKeyExchangeOnMessage handles the three messages that may
// arrive in this state, in RFC order: Certificate, ClientKeyExchange,
// CertificateVerify.
func serverClientKeyExchangeOnMessage(c *Connection, hs *handshake.Handshake, _ *alert.Alert) error {
	switch hs.Message.Type() {
	case handshake.TypeCertificate:
		if !c.neg.clientAuthRequired {
			return errProtocol("serverClientKeyExchangeOnMessage", alert.UnexpectedMessage, errNoTransitionDeclared)
		}
		cert := hs.Message.(*handshake.MessageCertificate)
		if c.config.Crypto.VerifyChain == nil {
			return errInternal("serverClientKeyExchangeOnMessage", fmt.Errorf("no certificate verifier configured"))
		}
		leaf, err := c.config.Crypto.VerifyChain(cert.Certificate)
		if err != nil {
			return errProtocol("serverClientKeyExchangeOnMessage", alert.BadCertificate, err)
		}
		c.neg.peerCertChain = cert.Certificate
		c.neg.peerLeafPublic = leaf
		return nil

	case handshake.TypeClientKeyExchange:
		return serverHandleClientKeyExchange(c, hs)

	case handshake.TypeCertificateVerify:
		if c.neg.peerLeafPublic == nil {
			return errProtocol("serverClientKeyExchangeOnMessage", alert.UnexpectedMessage, fmt.Errorf("certificate verify without a client certificate"))
		}
		cv := hs.Message.(*handshake.MessageCertificateVerify)
		signed := c.transcript.bytes(c.neg.verifyDataSnapshotLen)
		if err := signaturehash.Verify(c.neg.peerLeafPublic, signed, cv.Signature); err != nil {
			return c.fail(errProtocol("serverClientKeyExchangeOnMessage", alert.DecryptError, err))
		}
		return c.enterServer(ServerClientChangeCipherSpec)

	default:
		return errProtocol("serverClientKeyExchangeOnMessage", alert.UnexpectedMessage, errNoTransitionDeclared)
	}
}

func serverHandleClientKeyExchange(c *Connection, hs *handshake.Handshake) error {
	raw, ok := hs.Message.(*handshake.MessageRaw)
	if !ok {
		return errInternal("serverHandleClientKeyExchange", fmt.Errorf("client key exchange not decoded as raw"))
	}
	params, _ := ciphersuite.Lookup(c.neg.selectedSuite)
	ckx := &handshake.MessageClientKeyExchange{IsPSK: params.KeyExchange == ciphersuite.KeyExchangePSK}
	if err := ckx.Unmarshal(raw.Body); err != nil {
		return errDeserialize("serverHandleClientKeyExchange", err)
	}

	var preMasterSecret []byte
	if ckx.IsPSK {
		if c.config.Crypto.ResolvePSK == nil {
			return c.fail(errInternal("serverHandleClientKeyExchange", fmt.Errorf("no PSK resolver configured")))
		}
		psk, err := c.config.Crypto.ResolvePSK(ckx.PSKIdentity)
		if err != nil {
			return c.fail(errProtocol("serverHandleClientKeyExchange", alert.UnknownPskIdentity, err))
		}
		preMasterSecret = derivePreMasterSecretPSK(psk)
	} else {
		c.neg.peerPublicKey = ckx.PublicKey
		secret, err := prf.PreMasterSecret(ckx.PublicKey, c.neg.localPrivateKey, elliptic.X25519)
		if err != nil {
			return c.fail(errInternal("serverHandleClientKeyExchange", err))
		}
		preMasterSecret = secret
	}

	if err := deriveSecurityParameters(c.neg.pending, preMasterSecret); err != nil {
		return c.fail(errInternal("serverHandleClientKeyExchange", err))
	}

	if c.neg.clientAuthRequired {
		// CertificateVerify signs everything up to and including
		// ClientKeyExchange.
		c.neg.verifyDataSnapshotLen = c.transcript.len()
		return nil
	}
	return c.enterServer(ServerClientChangeCipherSpec)
}

func serverOnChangeCipherSpec(_ *Connection, _ *handshake.Handshake, _ *alert.Alert) error {
	return nil
}

func serverRetransmit(c *Connection, _ *handshake.Handshake, _ *alert.Alert) error {
	return c.retransmit()
}

func serverClientChangeCipherSpecOnMessage(c *Connection, hs *handshake.Handshake, _ *alert.Alert) error {
	if hs.Message.Type() != handshake.TypeFinished {
		return errProtocol("serverClientChangeCipherSpecOnMessage", alert.UnexpectedMessage, errNoTransitionDeclared)
	}
	fin := hs.Message.(*handshake.MessageFinished)
	pending := c.read

	expected, err := prf.VerifyDataClient(pending.MasterSecret, c.transcript.bytes(c.transcript.len()-1), prfHashNew(pending.Params))
	if err != nil {
		return c.fail(errInternal("serverClientChangeCipherSpecOnMessage", err))
	}
	if subtle.ConstantTimeCompare(expected, fin.VerifyData) != 1 {
		return c.fail(errProtocol("serverClientChangeCipherSpecOnMessage", alert.DecryptError, errFinishedMismatch))
	}

	c.timer.Stop()
	c.beginFlight()
	if err := c.sendChangeCipherSpec(); err != nil {
		return err
	}
	verifyData, err := prf.VerifyDataServer(pending.MasterSecret, c.transcript.bytes(-1), prfHashNew(pending.Params))
	if err != nil {
		return c.fail(errInternal("serverClientChangeCipherSpecOnMessage", err))
	}
	if err := c.sendHandshake(&handshake.MessageFinished{VerifyData: verifyData}); err != nil {
		return err
	}

	if err := c.enterServer(ServerConnected); err != nil {
		return err
	}
	if c.connectedCb != nil {
		c.connectedCb()
	}
	return nil
}
