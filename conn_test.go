// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package tlsengine

import (
	"bytes"
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"testing"
	"time"

	"github.com/censys-oss/tlsengine/pkg/crypto/ciphersuite"
	"github.com/censys-oss/tlsengine/pkg/crypto/cryptoport"
)

// stubTimer never fires on its own; tests that exercise retransmission
// deliver timer events by calling OnTimerEvent directly.
type stubTimer struct{}

func (stubTimer) Start(time.Duration)       {}
func (stubTimer) Stop()                     {}
func (stubTimer) IsCallbackExecuting() bool { return false }

func stubTimerFactory(func()) Timer { return stubTimer{} }

type wireQueue struct {
	packets [][]byte
}

func (q *wireQueue) write(b []byte) error {
	q.packets = append(q.packets, append([]byte{}, b...))
	return nil
}

func (q *wireQueue) pop() ([]byte, bool) {
	if len(q.packets) == 0 {
		return nil, false
	}
	b := q.packets[0]
	q.packets = q.packets[1:]
	return b, true
}

// testEnd is one side of an in-memory connection pair: the Connection,
// the packets it has written toward its peer, and the application
// plaintext delivered locally.
type testEnd struct {
	conn      *Connection
	out       *wireQueue
	app       [][]byte
	connected bool
	reason    error
}

func newTestEnd(t *testing.T, role Role, cfg *Config) *testEnd {
	t.Helper()
	e := &testEnd{out: &wireQueue{}}
	cfg.Timer = stubTimerFactory
	tr := Transport{
		WriteToTransport: e.out.write,
		WriteToCommParty: func(b []byte) error {
			e.app = append(e.app, append([]byte{}, b...))
			return nil
		},
	}
	opts := ConnOptions{
		OnConnected:    func() { e.connected = true },
		OnDisconnected: func(reason error) { e.reason = reason },
	}
	var err error
	if role == RoleClient {
		e.conn, err = NewClient(cfg, tr, opts)
	} else {
		e.conn, err = NewServer(cfg, tr, opts)
	}
	if err != nil {
		t.Fatal(err)
	}
	return e
}

// pump shuttles queued packets between the two ends until neither has
// anything left to deliver.
func pump(t *testing.T, client, server *testEnd) {
	t.Helper()
	for i := 0; i < 128; i++ {
		progressed := false
		if b, ok := client.out.pop(); ok {
			if err := server.conn.OnTransportBytes(b); err != nil {
				t.Fatalf("server: %v", err)
			}
			progressed = true
		}
		if b, ok := server.out.pop(); ok {
			if err := client.conn.OnTransportBytes(b); err != nil {
				t.Fatalf("client: %v", err)
			}
			progressed = true
		}
		if !progressed {
			return
		}
	}
	t.Fatal("connection pair did not quiesce")
}

func testPSKConfig() *PSKConfig {
	return &PSKConfig{
		Hint:       "hint",
		Identities: []PSKIdentity{{Identity: "id", Key: bytes.Repeat([]byte{0xAB}, 16)}},
	}
}

func testPSKResolver(identity []byte) ([]byte, error) {
	if string(identity) != "id" {
		return nil, fmt.Errorf("unknown identity %q", identity)
	}
	return bytes.Repeat([]byte{0xAB}, 16), nil
}

func assertAppRoundTrip(t *testing.T, client, server *testEnd) {
	t.Helper()
	if err := client.conn.Send([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	pump(t, client, server)
	if len(server.app) != 1 || !bytes.Equal(server.app[0], []byte("hello")) {
		t.Fatalf("server application data: got %q, want [hello]", server.app)
	}
	if err := server.conn.Send([]byte("olleh")); err != nil {
		t.Fatal(err)
	}
	pump(t, client, server)
	if len(client.app) != 1 || !bytes.Equal(client.app[0], []byte("olleh")) {
		t.Fatalf("client application data: got %q, want [olleh]", client.app)
	}
}

func TestHandshakePSKTLS(t *testing.T) {
	client := newTestEnd(t, RoleClient, &Config{
		Variant:      VariantTLS,
		CipherSuites: []ciphersuite.ID{ciphersuite.TLS_PSK_WITH_AES_128_GCM_SHA256},
		PSK:          testPSKConfig(),
	})
	server := newTestEnd(t, RoleServer, &Config{
		Variant:      VariantTLS,
		CipherSuites: []ciphersuite.ID{ciphersuite.TLS_PSK_WITH_AES_128_GCM_SHA256},
		PSK:          testPSKConfig(),
		Crypto:       cryptoport.Port{ResolvePSK: testPSKResolver},
	})

	if err := client.conn.Initiate(); err != nil {
		t.Fatal(err)
	}
	pump(t, client, server)

	if !client.connected || !server.connected {
		t.Fatalf("connected: client=%v server=%v", client.connected, server.connected)
	}
	assertAppRoundTrip(t, client, server)
}

func TestHandshakeECDHEGCM(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	client := newTestEnd(t, RoleClient, &Config{
		Variant:      VariantTLS,
		CipherSuites: []ciphersuite.ID{ciphersuite.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256},
		Crypto: cryptoport.Port{
			VerifyChain: func([][]byte) (crypto.PublicKey, error) { return pub, nil },
		},
	})
	server := newTestEnd(t, RoleServer, &Config{
		Variant:      VariantTLS,
		CipherSuites: []ciphersuite.ID{ciphersuite.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256},
		Crypto: cryptoport.Port{
			LocalCert:      [][]byte{{0x30, 0x82, 0x01, 0x01}},
			LocalSignerKey: priv,
		},
	})

	if err := client.conn.Initiate(); err != nil {
		t.Fatal(err)
	}
	pump(t, client, server)

	if !client.connected || !server.connected {
		t.Fatalf("connected: client=%v server=%v", client.connected, server.connected)
	}
	assertAppRoundTrip(t, client, server)
}

func TestHandshakeECDHECBCWithClientAuth(t *testing.T) {
	serverPub, serverPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	clientPub, clientPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	client := newTestEnd(t, RoleClient, &Config{
		Variant:      VariantTLS,
		CipherSuites: []ciphersuite.ID{ciphersuite.TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA256},
		Crypto: cryptoport.Port{
			VerifyChain:    func([][]byte) (crypto.PublicKey, error) { return serverPub, nil },
			LocalCert:      [][]byte{{0x30, 0x82, 0x02, 0x02}},
			LocalSignerKey: clientPriv,
		},
	})
	server := newTestEnd(t, RoleServer, &Config{
		Variant:                  VariantTLS,
		CipherSuites:             []ciphersuite.ID{ciphersuite.TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA256},
		RequireClientCertificate: true,
		Crypto: cryptoport.Port{
			VerifyChain:    func([][]byte) (crypto.PublicKey, error) { return clientPub, nil },
			LocalCert:      [][]byte{{0x30, 0x82, 0x01, 0x01}},
			LocalSignerKey: serverPriv,
		},
	})

	if err := client.conn.Initiate(); err != nil {
		t.Fatal(err)
	}
	pump(t, client, server)

	if !client.connected || !server.connected {
		t.Fatalf("connected: client=%v server=%v", client.connected, server.connected)
	}
	assertAppRoundTrip(t, client, server)
}

func TestHandshakeDTLSCookieExchange(t *testing.T) {
	client := newTestEnd(t, RoleClient, &Config{
		Variant:      VariantDTLS,
		CipherSuites: []ciphersuite.ID{ciphersuite.TLS_PSK_WITH_AES_128_GCM_SHA256},
		PSK:          testPSKConfig(),
	})
	server := newTestEnd(t, RoleServer, &Config{
		Variant:                   VariantDTLS,
		CipherSuites:              []ciphersuite.ID{ciphersuite.TLS_PSK_WITH_AES_128_GCM_SHA256},
		PSK:                       testPSKConfig(),
		Crypto:                    cryptoport.Port{ResolvePSK: testPSKResolver},
		CookieVerificationEnabled: true,
		VerificationSecret:        [4]byte{0xDE, 0xAD, 0xBE, 0xEF},
	})

	if err := client.conn.Initiate(); err != nil {
		t.Fatal(err)
	}
	pump(t, client, server)

	if !client.connected || !server.connected {
		t.Fatalf("connected: client=%v server=%v", client.connected, server.connected)
	}
	if len(client.conn.neg.cookie) != 32 {
		t.Fatalf("client cookie length: got %d, want 32", len(client.conn.neg.cookie))
	}
	assertAppRoundTrip(t, client, server)
}

func TestHandshakeDTLSRetransmission(t *testing.T) {
	client := newTestEnd(t, RoleClient, &Config{
		Variant:      VariantDTLS,
		CipherSuites: []ciphersuite.ID{ciphersuite.TLS_PSK_WITH_AES_128_GCM_SHA256},
		PSK:          testPSKConfig(),
	})
	server := newTestEnd(t, RoleServer, &Config{
		Variant:      VariantDTLS,
		CipherSuites: []ciphersuite.ID{ciphersuite.TLS_PSK_WITH_AES_128_GCM_SHA256},
		PSK:          testPSKConfig(),
		Crypto:       cryptoport.Port{ResolvePSK: testPSKResolver},
	})

	if err := client.conn.Initiate(); err != nil {
		t.Fatal(err)
	}

	// Deliver the ClientHello, then drop the server's whole reply flight.
	b, ok := client.out.pop()
	if !ok {
		t.Fatal("client did not send a ClientHello")
	}
	if err := server.conn.OnTransportBytes(b); err != nil {
		t.Fatal(err)
	}
	server.out.packets = nil

	// The client's retransmission timer fires: it resends its last
	// flight, and the server recognizes the retransmitted ClientHello
	// and resends its own.
	if err := client.conn.OnTimerEvent(); err != nil {
		t.Fatal(err)
	}
	pump(t, client, server)

	if !client.connected || !server.connected {
		t.Fatalf("connected: client=%v server=%v", client.connected, server.connected)
	}
	if client.conn.retryCount > 1 {
		t.Fatalf("client retry count: got %d, want at most 1", client.conn.retryCount)
	}
}

func TestHelloRequestAnsweredWithNoRenegotiation(t *testing.T) {
	client := newTestEnd(t, RoleClient, &Config{
		Variant:      VariantTLS,
		CipherSuites: []ciphersuite.ID{ciphersuite.TLS_NULL_WITH_NULL_NULL},
		PSK:          testPSKConfig(),
	})
	server := newTestEnd(t, RoleServer, &Config{
		Variant:      VariantTLS,
		CipherSuites: []ciphersuite.ID{ciphersuite.TLS_NULL_WITH_NULL_NULL},
		PSK:          testPSKConfig(),
		Crypto:       cryptoport.Port{ResolvePSK: testPSKResolver},
	})

	if err := client.conn.Initiate(); err != nil {
		t.Fatal(err)
	}
	pump(t, client, server)
	if !client.connected || !server.connected {
		t.Fatalf("connected: client=%v server=%v", client.connected, server.connected)
	}

	// A HelloRequest under the (null-cipher) connected epoch: the
	// client must answer with a NoRenegotiation warning and stay
	// Connected.
	helloRequest := []byte{22, 3, 3, 0, 4, 0, 0, 0, 0}
	if err := client.conn.OnTransportBytes(helloRequest); err != nil {
		t.Fatal(err)
	}

	alertRecord, ok := client.out.pop()
	if !ok {
		t.Fatal("client did not answer the HelloRequest")
	}
	if alertRecord[0] != 21 || alertRecord[5] != 1 || alertRecord[6] != 100 {
		t.Fatalf("expected a NoRenegotiation warning alert, got % 02x", alertRecord)
	}
	if client.conn.closed || client.conn.clientState != ClientConnected {
		t.Fatal("client left the Connected state after a HelloRequest")
	}
}

func TestBadRecordMACTearsDown(t *testing.T) {
	client := newTestEnd(t, RoleClient, &Config{
		Variant:      VariantTLS,
		CipherSuites: []ciphersuite.ID{ciphersuite.TLS_PSK_WITH_NULL_SHA256},
		PSK:          testPSKConfig(),
	})
	server := newTestEnd(t, RoleServer, &Config{
		Variant:      VariantTLS,
		CipherSuites: []ciphersuite.ID{ciphersuite.TLS_PSK_WITH_NULL_SHA256},
		PSK:          testPSKConfig(),
		Crypto:       cryptoport.Port{ResolvePSK: testPSKResolver},
	})

	if err := client.conn.Initiate(); err != nil {
		t.Fatal(err)
	}
	pump(t, client, server)
	if !client.connected || !server.connected {
		t.Fatalf("connected: client=%v server=%v", client.connected, server.connected)
	}

	if err := client.conn.Send([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	tampered, ok := client.out.pop()
	if !ok {
		t.Fatal("client did not write an application record")
	}
	tampered[len(tampered)-1] ^= 0xFF

	if err := server.conn.OnTransportBytes(tampered); err == nil {
		t.Fatal("expected the tampered record to fail authentication")
	}
	if server.reason == nil || !server.conn.closed {
		t.Fatal("server did not tear down after a bad record MAC")
	}
	if len(server.app) != 0 {
		t.Fatalf("application data surfaced from an unauthenticated record: %q", server.app)
	}

	// The failure is visible on the wire as a fatal BadRecordMac alert
	// (cleartext level/description under the null cipher).
	alertRecord, ok := server.out.pop()
	if !ok {
		t.Fatal("server did not send an alert")
	}
	if alertRecord[0] != 21 || alertRecord[5] != 2 || alertRecord[6] != 20 {
		t.Fatalf("expected a fatal BadRecordMac alert, got % 02x", alertRecord)
	}
}

func TestCloseSendsSingleCloseNotify(t *testing.T) {
	client := newTestEnd(t, RoleClient, &Config{
		Variant:      VariantTLS,
		CipherSuites: []ciphersuite.ID{ciphersuite.TLS_PSK_WITH_AES_128_GCM_SHA256},
		PSK:          testPSKConfig(),
	})

	if err := client.conn.Close(); err != nil {
		t.Fatal(err)
	}
	if len(client.out.packets) != 1 {
		t.Fatalf("wire records on close: got %d, want 1", len(client.out.packets))
	}
	record := client.out.packets[0]
	if record[0] != 21 || record[5] != 1 || record[6] != 0 {
		t.Fatalf("expected a CloseNotify warning, got % 02x", record)
	}
	if err := client.conn.Close(); err != nil {
		t.Fatal(err)
	}
	if len(client.out.packets) != 1 {
		t.Fatal("second Close wrote to the wire")
	}
	if err := client.conn.Send([]byte("x")); err == nil {
		t.Fatal("Send after Close must fail")
	}
}
