// Package transport implements the uniform read/write stream a Connection
// drives: plain TCP to start with, optionally upgraded in place to TLS on
// STARTTLS. Grounded on chasquid's internal/smtpsrv.Conn, which holds a
// net.Conn and swaps it for a *tls.Conn on STARTTLS rather than modelling
// the two as a sum type; we keep that shape but push it behind a named type
// so the "already encrypted" failure mode has a single owner. The "no
// certificate" check is made by the connection driver (internal/conn)
// before it calls Upgrade.
package transport

import (
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"minismtp/internal/session"
	"minismtp/internal/tlsconst"

	"blitiri.com.ar/go/log"
)

// Stream wraps a single TCP connection, plain or TLS-upgraded. The zero
// value is not usable; construct with New.
type Stream struct {
	conn      net.Conn
	encrypted bool
}

// New wraps an accepted TCP connection as a plain stream.
func New(conn net.Conn) *Stream {
	return &Stream{conn: conn}
}

// Encrypted reports whether this stream has already been upgraded to TLS.
func (s *Stream) Encrypted() bool {
	return s.encrypted
}

// RemoteAddr returns the peer address of the underlying connection.
func (s *Stream) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

// SetDeadline sets the read/write deadline for the next I/O operation,
// covering one driver loop iteration.
func (s *Stream) SetDeadline(t time.Time) error {
	return s.conn.SetDeadline(t)
}

// Read reads into dst, returning 0 on orderly EOF like net.Conn.Read.
func (s *Stream) Read(dst []byte) (int, error) {
	return s.conn.Read(dst)
}

// Write writes all of b, retrying partial writes until the buffer is
// drained.
func (s *Stream) Write(b []byte) error {
	for len(b) > 0 {
		n, err := s.conn.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

// Upgrade performs a server-side TLS handshake using the certificate and
// key at the given paths, and on success replaces the underlying plain
// connection with the encrypted one. It only succeeds on a stream that
// isn't already encrypted.
func (s *Stream) Upgrade(certPath, keyPath string) error {
	if s.encrypted {
		return session.ErrAlreadyEncrypted
	}

	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return fmt.Errorf("%w: loading certificate: %v", session.ErrIO, err)
	}

	cfg := &tls.Config{Certificates: []tls.Certificate{cert}}
	tlsConn := tls.Server(s.conn, cfg)
	if err := tlsConn.Handshake(); err != nil {
		return fmt.Errorf("%w: TLS handshake: %v", session.ErrIO, err)
	}

	cstate := tlsConn.ConnectionState()
	log.Infof("transport: upgraded %s to %s/%s", s.conn.RemoteAddr(),
		tlsconst.VersionName(cstate.Version),
		tlsconst.CipherSuiteName(cstate.CipherSuite))

	s.conn = tlsConn
	s.encrypted = true
	return nil
}

// Close releases the underlying connection.
func (s *Stream) Close() error {
	return s.conn.Close()
}
