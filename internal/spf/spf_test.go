package spf

import (
	"fmt"
	"net"
	"testing"
)

var txtResults = map[string][]string{}
var txtErrors = map[string]error{}

func stubLookupTXT(domain string) ([]string, error) {
	if err, ok := txtErrors[domain]; ok {
		return nil, err
	}
	return txtResults[domain], nil
}

func withStub(t *testing.T) {
	t.Helper()
	orig := lookupTXT
	lookupTXT = stubLookupTXT
	t.Cleanup(func() {
		lookupTXT = orig
		txtResults = map[string][]string{}
		txtErrors = map[string]error{}
	})
}

func TestCheckPassOnDirectMatch(t *testing.T) {
	withStub(t)
	txtResults["example.com"] = []string{"v=spf1 ip4:192.0.2.0/24 -all"}

	ok, policy := Check(net.ParseIP("192.0.2.5"), "example.com")
	if !ok || policy != Pass {
		t.Errorf("Check() = (%v, %v), want (true, Pass)", ok, policy)
	}
}

func TestCheckFailOutsideRange(t *testing.T) {
	withStub(t)
	txtResults["example.com"] = []string{"v=spf1 ip4:192.0.2.0/24 -all"}

	ok, policy := Check(net.ParseIP("203.0.113.5"), "example.com")
	if ok || policy != Fail {
		t.Errorf("Check() = (%v, %v), want (false, Fail)", ok, policy)
	}
}

func TestCheckBareIPTreatedAsHostNetwork(t *testing.T) {
	withStub(t)
	txtResults["example.com"] = []string{"v=spf1 ip4:198.51.100.7 ~all"}

	ok, policy := Check(net.ParseIP("198.51.100.7"), "example.com")
	if !ok || policy != SoftFail {
		t.Errorf("Check() = (%v, %v), want (true, SoftFail)", ok, policy)
	}

	ok, _ = Check(net.ParseIP("198.51.100.8"), "example.com")
	if ok {
		t.Errorf("Check() matched an address outside the /32")
	}
}

// TestCheckIncludeReplacesNotMerges pins down the non-standard behaviour
// this package preserves: once an include: term is taken, any later terms
// in the including record are discarded rather than merged in.
func TestCheckIncludeReplacesNotMerges(t *testing.T) {
	withStub(t)
	txtResults["example.com"] = []string{
		"v=spf1 include:trusted.example -all ip4:10.0.0.0/8 ~all",
	}
	txtResults["trusted.example"] = []string{"v=spf1 ip4:192.0.2.0/24 ?all"}

	// The ip4:10.0.0.0/8 term after the include: is never reached, so an
	// address in that range does not match.
	ok, _ := Check(net.ParseIP("10.1.2.3"), "example.com")
	if ok {
		t.Errorf("Check() matched a term after the replaced include:")
	}

	// The included record's own term and policy take over entirely.
	ok, policy := Check(net.ParseIP("192.0.2.9"), "example.com")
	if !ok || policy != Neutral {
		t.Errorf("Check() = (%v, %v), want (true, Neutral) from include chain", ok, policy)
	}
}

func TestCheckIncludeChainMultipleLevels(t *testing.T) {
	withStub(t)
	txtResults["a.example"] = []string{"v=spf1 include:b.example -all"}
	txtResults["b.example"] = []string{"v=spf1 include:c.example -all"}
	txtResults["c.example"] = []string{"v=spf1 ip4:203.0.113.0/24 -all"}

	ok, policy := Check(net.ParseIP("203.0.113.42"), "a.example")
	if !ok || policy != Fail {
		t.Errorf("Check() = (%v, %v), want (true, Fail)", ok, policy)
	}
}

func TestCheckIncludeRecursionDepthCap(t *testing.T) {
	withStub(t)
	// Every domain includes itself, forcing the walker to hit maxDepth
	// rather than recursing forever.
	txtResults["loop.example"] = []string{"v=spf1 include:loop.example -all"}

	done := make(chan struct{})
	go func() {
		Check(net.ParseIP("192.0.2.1"), "loop.example")
		close(done)
	}()

	select {
	case <-done:
	default:
	}
	<-done
}

func TestCheckNoTXTRecordFailsClosed(t *testing.T) {
	withStub(t)
	txtErrors["missing.example"] = fmt.Errorf("no such domain")

	ok, policy := Check(net.ParseIP("192.0.2.1"), "missing.example")
	if ok || policy != Fail {
		t.Errorf("Check() = (%v, %v), want (false, Fail)", ok, policy)
	}
}

func TestTerminalPolicyFromQualifiedAll(t *testing.T) {
	cases := []struct {
		record string
		want   Policy
	}{
		{"v=spf1 all", Pass},
		{"v=spf1 +all", Pass},
		{"v=spf1 -all", Fail},
		{"v=spf1 ~all", SoftFail},
		{"v=spf1 ?all", Neutral},
		{"v=spf1 ip4:192.0.2.0/24", None},
		{"", None},
	}

	for _, c := range cases {
		if got := terminalPolicy(c.record); got != c.want {
			t.Errorf("terminalPolicy(%q) = %v, want %v", c.record, got, c.want)
		}
	}
}

func TestParseNetworkCIDRAndBareAddress(t *testing.T) {
	if _, ok := parseNetwork("192.0.2.0/24"); !ok {
		t.Errorf("parseNetwork() rejected a valid CIDR")
	}
	if n, ok := parseNetwork("192.0.2.7"); !ok || n.Mask.String() != net.CIDRMask(32, 32).String() {
		t.Errorf("parseNetwork() did not treat a bare IPv4 address as a /32")
	}
	if n, ok := parseNetwork("2001:db8::1"); !ok || n.Mask.String() != net.CIDRMask(128, 128).String() {
		t.Errorf("parseNetwork() did not treat a bare IPv6 address as a /128")
	}
	if _, ok := parseNetwork("not-an-ip"); ok {
		t.Errorf("parseNetwork() accepted garbage input")
	}
}
