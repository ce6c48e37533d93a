package minismtp

import (
	"net"
	"os"
)

// spfIPOverride implements the SPF_IP testing hook (spec §6): if set and
// parseable, it replaces the peer IP used for SPF evaluation.
func spfIPOverride() (net.IP, bool) {
	raw := os.Getenv("SPF_IP")
	if raw == "" {
		return nil, false
	}
	ip := net.ParseIP(raw)
	if ip == nil {
		return nil, false
	}
	return ip, true
}

// spfDomainOverride implements the SPF_DOMAIN testing hook (spec §6): if
// set, it replaces the client-asserted domain used for SPF evaluation.
func spfDomainOverride() (string, bool) {
	d := os.Getenv("SPF_DOMAIN")
	return d, d != ""
}
