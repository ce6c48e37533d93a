// Package conn implements the connection driver: the loop that owns one
// accepted socket for its whole lifetime, feeding raw reads through
// internal/command's dispatcher and writing back whatever reply it
// produces. Grounded on chasquid's internal/smtpsrv.Conn.Handle, whose
// single for-loop does exactly this (deadline, read, dispatch, write,
// repeat) around a bufio-wrapped net.Conn; we keep that per-iteration
// shape but drive the pure session.State/command.Dispatch machinery
// instead of mutating fields on the Conn itself.
package conn

import (
	"io"
	"time"

	"minismtp/internal/command"
	"minismtp/internal/reply"
	"minismtp/internal/session"
	"minismtp/internal/trace"
	"minismtp/internal/transport"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	commandCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "minismtp_commands_total",
		Help: "Count of SMTP commands dispatched, by verb.",
	}, []string{"verb"})

	responseCodeCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "minismtp_response_codes_total",
		Help: "Count of SMTP reply codes sent, by code.",
	}, []string{"code"})

	tlsCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "minismtp_starttls_total",
		Help: "Count of STARTTLS upgrade outcomes.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(commandCount, responseCodeCount, tlsCount)
}

// Config carries the per-session parameters a Connection needs, snapshotted
// once from the server's configuration at accept time.
type Config struct {
	Domain         string
	Timeout        time.Duration
	BufferSize     int
	CertPath       string
	KeyPath        string
	MaxMessageSize int
}

// TLSConfigured reports whether STARTTLS can be offered.
func (c Config) TLSConfigured() bool {
	return c.CertPath != "" && c.KeyPath != ""
}

// Connection drives one accepted socket through the SMTP state machine to
// completion.
type Connection struct {
	stream *transport.Stream
	cfg    Config
	state  session.State
}

// New wraps an accepted stream, ready to be driven.
func New(stream *transport.Stream, cfg Config) *Connection {
	return &Connection{stream: stream, cfg: cfg, state: session.NewInitial()}
}

// Drive runs the connection to completion: greeting, read/dispatch/write
// loop, STARTTLS pivot handling, and reports whatever Mail was accumulated
// (nil if the session never reached the Data state). The returned error is
// the session-layer error taxonomy from internal/session; a non-nil Mail
// takes precedence over it (spec.md §4.6/§7: partial acceptance).
func (c *Connection) Drive() (*session.Mail, error) {
	defer c.stream.Close()

	addr := c.stream.RemoteAddr()
	tr := trace.New("SMTP.Conn", addr.String())
	defer tr.Finish()
	tr.Debugf("connected")

	if err := c.stream.Write(reply.Greeting(c.cfg.Domain)); err != nil {
		return nil, tr.Error(session.ErrSendResponse)
	}

	buf := make([]byte, c.cfg.BufferSize)
	var loopErr error

loop:
	for {
		if err := c.stream.SetDeadline(time.Now().Add(c.cfg.Timeout)); err != nil {
			loopErr = session.ErrIO
			break
		}

		n, err := c.stream.Read(buf)
		if isTimeout(err) {
			break
		}
		if n == 0 {
			if err != nil && err != io.EOF {
				loopErr = session.ErrSocketRead
			} else {
				loopErr = session.ErrConnectionClosed
			}
			break
		}
		if err != nil {
			loopErr = session.ErrSocketRead
			break
		}

		wasData := c.state.Kind() == session.Data
		next, out, dispatchErr := command.Dispatch(c.state, c.cfg.Domain, c.cfg.TLSConfigured(), buf[:n])
		c.state = next
		if !wasData {
			observeCommand(buf[:n])
		}

		if c.cfg.MaxMessageSize > 0 && c.state.Kind() == session.Data &&
			len(c.state.Mail().Data) > c.cfg.MaxMessageSize {
			loopErr = session.ErrMessageTooLarge
			break
		}

		if dispatchErr != nil && len(out) == 0 {
			// ErrInvalidCommand and friends: the dispatcher already left the
			// state untouched; nothing to write, keep the session alive so
			// the client can retry (the driver only terminates on I/O and
			// transport errors, per spec.md §4.6/§7).
			continue
		}

		if len(out) > 0 {
			observeReply(out)
			if err := c.stream.Write(out); err != nil {
				loopErr = session.ErrSendResponse
				break
			}
			if isQuit(out) {
				break loop
			}
		}

		if c.state.Kind() == session.StartTLS {
			if err := c.pivotTLS(); err != nil {
				tlsCount.WithLabelValues("failure").Inc()
				loopErr = err
				break
			}
			tlsCount.WithLabelValues("success").Inc()
			c.state = session.NewInitial()
		}
	}

	if c.state.Kind() == session.Data {
		return c.state.Mail(), loopErr
	}
	return nil, loopErr
}

func (c *Connection) pivotTLS() error {
	if c.stream.Encrypted() {
		return session.ErrAlreadyEncrypted
	}
	if !c.cfg.TLSConfigured() {
		return session.ErrNoCertificate
	}
	if err := c.stream.Upgrade(c.cfg.CertPath, c.cfg.KeyPath); err != nil {
		return session.ErrIO
	}
	return nil
}

func isQuit(r []byte) bool {
	return len(r) >= 3 && r[0] == '2' && r[1] == '2' && r[2] == '1'
}

func isTimeout(err error) bool {
	type timeout interface{ Timeout() bool }
	te, ok := err.(timeout)
	return ok && te.Timeout()
}

func observeCommand(raw []byte) {
	verb := verbOf(raw)
	if verb != "" {
		commandCount.WithLabelValues(verb).Inc()
	}
}

func verbOf(raw []byte) string {
	i := 0
	for i < len(raw) && raw[i] != ' ' && raw[i] != '\r' && raw[i] != '\n' {
		i++
	}
	return string(raw[:i])
}

func observeReply(r []byte) {
	if len(r) < 3 {
		return
	}
	responseCodeCount.WithLabelValues(string(r[:3])).Inc()
}
