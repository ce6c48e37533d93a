package session

import "errors"

// Session-layer error taxonomy (spec.md §7). Each terminates the session
// except ErrInvalidCommand, after which the driver keeps reading;
// ConnectionClosed and SocketRead are distinguished so the caller can tell
// an orderly EOF from a transport failure, and the driver always prefers
// yielding a partial Mail (if the session was in the Data state) over
// propagating any of these.
var (
	// ErrIO covers underlying socket or TLS handshake failures that
	// don't fall into one of the more specific categories below (e.g. a
	// STARTTLS handshake error).
	ErrIO = errors.New("session: I/O error")

	// ErrNoMail is not really an error: it means the session ended
	// outside the Data state, so there is nothing to deliver.
	ErrNoMail = errors.New("session: no mail to deliver")

	// ErrConnectionClosed is raised when a read returns 0 bytes (orderly
	// EOF from the client).
	ErrConnectionClosed = errors.New("session: connection closed by peer")

	// ErrSendResponse is raised when writing a reply fails.
	ErrSendResponse = errors.New("session: failed to send response")

	// ErrNoCertificate is raised when STARTTLS is requested but no TLS
	// configuration is present.
	ErrNoCertificate = errors.New("session: STARTTLS requested but no certificate configured")

	// ErrAlreadyEncrypted is raised when STARTTLS is requested on a
	// stream that is already TLS-encrypted.
	ErrAlreadyEncrypted = errors.New("session: STARTTLS requested on an already-encrypted stream")

	// ErrSocketRead is raised when a read fails for any reason other than
	// orderly EOF.
	ErrSocketRead = errors.New("session: failed to read from socket")

	// ErrInvalidCommand is raised by the dispatcher when (verb, state) is
	// not an enumerated transition, or the command buffer carries no
	// tokens outside the Data state.
	ErrInvalidCommand = errors.New("session: invalid command for current state")

	// ErrMessageTooLarge is raised when a configured MaxMessageSize is
	// exceeded while accumulating Data (expansion over spec.md, inert
	// when MaxMessageSize is left at its default of 0).
	ErrMessageTooLarge = errors.New("session: message exceeds maximum size")
)
