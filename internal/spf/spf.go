// Package spf annotates accepted mail with an SPF (RFC 7208) verdict for the
// client-asserted domain: a TXT resolution, a walk of its include chain, and
// a CIDR match against the peer's IP address.
//
// This does not aim to be a general-purpose, fully RFC-compliant SPF
// checker (blitiri.com.ar/go/spf, used elsewhere in this lineage, is that).
// It deliberately reproduces one piece of non-standard behaviour from the
// program this package was modelled on: when a record's terms include an
// "include:", evaluation for that domain stops and is replaced by the
// result of the recursive lookup, rather than merging and continuing.
// Later terms in the including record (and any later TXT records) are
// discarded once an include is taken. This contradicts RFC 7208, which
// specifies a merge; it's preserved deliberately rather than fixed, since
// this package's job is annotation, not enforcement, and embedders may
// already depend on the quirk. See the package tests for the rewrite in
// action.
package spf

import (
	"net"
	"strings"

	"blitiri.com.ar/go/log"
)

// Policy is the SPF qualifier a matching term carries.
type Policy string

const (
	Pass     = Policy("pass")
	Fail     = Policy("fail")
	SoftFail = Policy("softfail")
	Neutral  = Policy("neutral")
	None     = Policy("none")
)

// maxDepth caps include: recursion. RFC 7208 §4.6.4 recommends at most 10
// DNS-querying mechanisms; we cap recursion depth at the same number.
const maxDepth = 10

// network pairs a parsed CIDR with the policy that applies if the peer IP
// falls inside it.
type network struct {
	net    *net.IPNet
	policy Policy
}

// Check resolves domain's SPF record and reports whether ip is authorized
// to send on its behalf, along with the policy of the matching term. It
// never returns an error: any DNS or parse failure downgrades to
// (false, Fail).
func Check(ip net.IP, domain string) (bool, Policy) {
	var nets []network
	walk(&nets, domain, 0)

	for _, n := range nets {
		if n.net.Contains(ip) {
			return true, n.policy
		}
	}
	return false, Fail
}

// walk resolves domain's TXT records and appends any ip4:/ip6: terms found
// to nets. On the first include: term in a matching record, it recurses and
// returns immediately, replacing rather than merging the result (see the
// package doc comment).
func walk(nets *[]network, domain string, depth int) {
	if depth > maxDepth {
		log.Errorf("spf: max include recursion depth reached for %q", domain)
		return
	}

	txts, err := lookupTXT(domain)
	if err != nil {
		log.Infof("spf: no TXT record for %q: %v", domain, err)
		return
	}

	for _, record := range txts {
		if !strings.Contains(record, "v=spf1") {
			continue
		}

		policy := terminalPolicy(record)

		for _, term := range strings.Fields(record) {
			switch {
			case strings.HasPrefix(term, "include:"):
				walk(nets, term[len("include:"):], depth+1)
				return
			case strings.HasPrefix(term, "ip4:"):
				if n, ok := parseNetwork(term[len("ip4:"):]); ok {
					*nets = append(*nets, network{n, policy})
				}
			case strings.HasPrefix(term, "ip6:"):
				if n, ok := parseNetwork(term[len("ip6:"):]); ok {
					*nets = append(*nets, network{n, policy})
				}
			}
		}
	}
}

// terminalPolicy determines the policy from the last whitespace-separated
// token of an SPF record.
func terminalPolicy(record string) Policy {
	fields := strings.Fields(record)
	if len(fields) == 0 {
		return None
	}

	switch fields[len(fields)-1] {
	case "+all", "all":
		return Pass
	case "-all":
		return Fail
	case "~all":
		return SoftFail
	case "?all":
		return Neutral
	default:
		return None
	}
}

// parseNetwork parses a CIDR, or a bare IPv4/IPv6 address treated as a
// single-host network.
func parseNetwork(s string) (*net.IPNet, bool) {
	if strings.Contains(s, "/") {
		_, ipnet, err := net.ParseCIDR(s)
		if err != nil {
			return nil, false
		}
		return ipnet, true
	}

	ip := net.ParseIP(s)
	if ip == nil {
		return nil, false
	}

	bits := 32
	if ip.To4() == nil {
		bits = 128
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}, true
}
