// Package tlsconst contains TLS constants for human consumption, used when
// logging or tracing a connection's negotiated TLS parameters.
package tlsconst

import "crypto/tls"

var versionName = map[uint16]string{
	0x0300:           "SSL-3.0",
	tls.VersionTLS10: "TLS-1.0",
	tls.VersionTLS11: "TLS-1.1",
	tls.VersionTLS12: "TLS-1.2",
	tls.VersionTLS13: "TLS-1.3",
}

// VersionName returns a human-readable TLS version name.
func VersionName(v uint16) string {
	if name, ok := versionName[v]; ok {
		return name
	}
	return "TLS-0x" + itohex(v)
}

// CipherSuiteName returns a human-readable TLS cipher suite name. Unlike
// the teacher's own tlsconst, which carries an IANA-generated table
// (ciphers.go, produced by a generate-ciphers.py script not present in this
// lineage), this defers to the stdlib's own tls.CipherSuiteName, which
// covers every suite Go's TLS stack can actually negotiate — the only
// suites this server will ever see.
func CipherSuiteName(s uint16) string {
	return tls.CipherSuiteName(s)
}

func itohex(v uint16) string {
	const hexdigits = "0123456789abcdef"
	buf := [4]byte{}
	for i := 3; i >= 0; i-- {
		buf[i] = hexdigits[v&0xf]
		v >>= 4
	}
	return string(buf[:])
}
