// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package tlsengine

import (
	"github.com/pion/logging"

	"github.com/censys-oss/tlsengine/pkg/crypto/ciphersuite"
	"github.com/censys-oss/tlsengine/pkg/crypto/cryptoport"
)

// Role is which end of the handshake a Connection plays.
type Role int

// Role enums
const (
	RoleClient Role = iota
	RoleServer
)

// Variant selects the wire-format family.
type Variant int

// Variant enums
const (
	VariantTLS Variant = iota
	VariantDTLS
)

// PSKIdentity is one entry of a psk_config's recognized (identity, key)
// set.
type PSKIdentity struct {
	Identity string
	Key []byte
}

// PSKConfig is the psk_config configuration block.
type PSKConfig struct {
	Hint string
	Identities []PSKIdentity
}

// CertificateLabels names the certificate material for cert-based
// cipher suites. The engine never loads key material itself:
// Root/OwnCert/OwnKeyUUID are opaque labels the embedder resolves when
// it builds the Crypto Port (filling Port.RootCAs, Port.LocalCert and
// Port.LocalSignerKey); the engine carries them for that resolution and
// does not interpret them.
type CertificateLabels struct {
	Root string
	OwnCert string
	OwnKeyUUID string
}

// Config is the configuration surface for a Connection. Every
// field is optional; zero values select the documented defaults. The
// role is not configured here: it is fixed by constructing the
// Connection with NewClient or NewServer.
type Config struct {
	Variant Variant

	// CipherSuites is the ordered offer/accept preference list.
	// At most 10 entries (handshake.MaxCipherSuites).
	CipherSuites []ciphersuite.ID

	PSK *PSKConfig
	CertificateLabels *CertificateLabels
	CookieVerificationEnabled bool
	VerificationSecret [4]byte

	// RequireClientCertificate sends a CertificateRequest for cert-based
	// suites. Ignored for PSK suites, which have no
	// certificate-based client authentication.
	RequireClientCertificate bool

	// DisableCloseNotify suppresses the best-effort outbound CloseNotify
	// on application-initiated Close; the default (false) sends it.
	DisableCloseNotify bool

	Crypto cryptoport.Port

	LoggerFactory logging.LoggerFactory

	// Timer builds the one-shot Timer Port a Connection arms for DTLS
	// retransmission. An embedder supplies this to wire OnTimerEvent to
	// its own clock/event loop; the zero value builds the default
	// time.AfterFunc-backed implementation (NewTimer).
	Timer TimerFactory

	// RetransmitTimeout and MaxRetransmitTimeout are T0 and Tmax for the
	// DTLS retransmission timer. Defaults: 1s / 60s.
	RetransmitTimeout DurationMillis
	MaxRetransmitTimeout DurationMillis
	MaxRetries int
}

// DurationMillis is a millisecond duration, matching the Timer Port's
// granularity.
type DurationMillis int64

func (c *Config) loggerFactory() logging.LoggerFactory {
	if c.LoggerFactory != nil {
		return c.LoggerFactory
	}
	return logging.NewDefaultLoggerFactory()
}

func (c *Config) timerFactory() TimerFactory {
	if c.Timer != nil {
		return c.Timer
	}
	return NewTimer
}

const (
	defaultRetransmitTimeout DurationMillis = 1000
	defaultMaxRetransmitTimeout DurationMillis = 60000
	defaultMaxRetries = 6
)

func (c *Config) retransmitTimeout() DurationMillis {
	if c.RetransmitTimeout > 0 {
		return c.RetransmitTimeout
	}
	return defaultRetransmitTimeout
}

func (c *Config) maxRetransmitTimeout() DurationMillis {
	if c.MaxRetransmitTimeout > 0 {
		return c.MaxRetransmitTimeout
	}
	return defaultMaxRetransmitTimeout
}

func (c *Config) maxRetries() int {
	if c.MaxRetries > 0 {
		return c.MaxRetries
	}
	return defaultMaxRetries
}

func (c *Config) sendCloseNotify() bool {
	return !c.DisableCloseNotify
}
