// Package reply holds the canonical RFC 5321 reply strings this server can
// send, parameterised by the server's configured domain label.
package reply

import "fmt"

// Fixed replies that do not depend on the server's domain.
var (
	OK             = []byte("250 OK\r\n")
	ReadyForTLS    = []byte("220 Ready to start TLS\r\n")
	TLSUnavailable = []byte("502 TLS not available\r\n")
	SendData       = []byte("354 Start mail input; end with <CRLF>.<CRLF>\r\n")
	Quit           = []byte("221 Bye\r\n")
)

// Greeting is the banner sent immediately upon accept, before any client
// data.
func Greeting(domain string) []byte {
	return []byte(fmt.Sprintf("220 %s\r\n", domain))
}

// EhloTLSAvailable is the EHLO response advertising STARTTLS.
func EhloTLSAvailable(domain string) []byte {
	return []byte(fmt.Sprintf("250-%s\r\n250 STARTTLS\r\n", domain))
}

// EhloTLSUnavailable is the EHLO (or HELO) response when STARTTLS is not
// offered: either TLS isn't configured, or the command was HELO, which
// never advertises it.
func EhloTLSUnavailable(domain string) []byte {
	return []byte(fmt.Sprintf("250 %s\r\n", domain))
}
