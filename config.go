// Package minismtp is an embeddable SMTP receiving endpoint: accept mail
// over RFC 5321 (with RFC 3207 STARTTLS and RFC 7208 SPF annotation),
// deliver each accepted message to the embedder over a channel, and stay
// out of the way otherwise — no queueing, no local delivery, no address
// rewriting. See chasquid (blitiri.com.ar/go/chasquid), whose
// internal/smtpsrv is the full-featured ancestor this package is
// distilled from.
package minismtp

import (
	"os"
	"time"
)

const (
	// DefaultTimeout is the per-read deadline applied to a session when
	// Config.Timeout is left at its zero value.
	DefaultTimeout = 10 * time.Second

	// DefaultBufferSize is the read-buffer allocation applied to a session
	// when Config.BufferSize is left at its zero value.
	DefaultBufferSize = 1 << 20 // 1 MiB
)

// Config is the embedder-facing server configuration. Host, Port, and
// Domain are mandatory; everything else has a usable default.
type Config struct {
	// Host is the address to listen on, e.g. "0.0.0.0" or "localhost".
	Host string

	// Port is the TCP port to listen on.
	Port string

	// Domain is the label inserted into the greeting and EHLO responses.
	Domain string

	// Timeout is the per-iteration read deadline for a session. Defaults
	// to DefaultTimeout.
	Timeout time.Duration

	// BufferSize is the read-buffer allocation for a session. Defaults to
	// DefaultBufferSize.
	BufferSize int

	// CertPath and KeyPath, if both set, enable STARTTLS. Either both must
	// be set or neither.
	CertPath string
	KeyPath  string

	// MaxMessageSize, if non-zero, caps the accumulated DATA payload;
	// exceeding it terminates the session with ErrMessageTooLarge
	// (expansion over the distilled spec, inert at its zero value).
	MaxMessageSize int

	// MonitoringAddr, if set, starts an HTTP server exposing /debug/requests
	// and /metrics (expansion; left unset by default).
	MonitoringAddr string
}

func (c Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

func (c Config) bufferSize() int {
	if c.BufferSize > 0 {
		return c.BufferSize
	}
	return DefaultBufferSize
}

func (c Config) tlsConfigured() bool {
	return c.CertPath != "" && c.KeyPath != ""
}

// domain resolves the greeting/EHLO domain, honouring the MINISMTP_DOMAIN
// environment override (spec §6 testing hook).
func (c Config) domain() string {
	if d := os.Getenv("MINISMTP_DOMAIN"); d != "" {
		return d
	}
	return c.Domain
}
