package spf

import (
	"fmt"
	"net"
	"strings"

	"github.com/miekg/dns"
)

// lookupTXT is overridden in tests. The production implementation queries
// the resolvers listed in /etc/resolv.conf directly with miekg/dns rather
// than net.LookupTXT, and returns one string per TXT record, with that
// record's character-strings joined together.
var lookupTXT func(domain string) ([]string, error) = dnsLookupTXT

func dnsLookupTXT(domain string) ([]string, error) {
	cfg, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(cfg.Servers) == 0 {
		return nil, fmt.Errorf("spf: no DNS servers configured: %w", err)
	}

	c := new(dns.Client)
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(domain), dns.TypeTXT)
	m.RecursionDesired = true

	var lastErr error
	for _, server := range cfg.Servers {
		addr := net.JoinHostPort(server, cfg.Port)
		resp, _, err := c.Exchange(m, addr)
		if err != nil {
			lastErr = err
			continue
		}

		var txts []string
		for _, rr := range resp.Answer {
			if txt, ok := rr.(*dns.TXT); ok {
				txts = append(txts, strings.Join(txt.Txt, ""))
			}
		}
		return txts, nil
	}
	return nil, lastErr
}
