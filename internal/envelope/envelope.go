// Package envelope implements functions related to handling SMTP envelopes:
// the MAIL FROM sender and RCPT TO recipients, as distinct from message headers.
package envelope

import "strings"

// Split a user@domain address into user and domain.
func Split(addr string) (string, string) {
	ps := strings.SplitN(addr, "@", 2)
	if len(ps) != 2 {
		return addr, ""
	}

	return ps[0], ps[1]
}

// UserOf user@domain returns user.
func UserOf(addr string) string {
	user, _ := Split(addr)
	return user
}

// DomainOf user@domain returns domain.
func DomainOf(addr string) string {
	_, domain := Split(addr)
	return domain
}

// Extract pulls an address out of a raw command argument of the shape
// "...<local@domain>...". It accepts the argument iff it contains a '<', a
// subsequent '>', and at least one '@' strictly between them with a
// non-empty bracket span; the substring between the brackets is returned
// verbatim, with no normalisation. Any other shape yields ok == false.
//
// The scan deliberately ignores everything before the '<': callers such as
// MAIL and RCPT hand us a token that still carries its "FROM:"/"TO:" prefix
// (the dispatcher only splits on whitespace, see internal/command), and this
// function must still find the address inside it.
func Extract(arg string) (string, bool) {
	lt := strings.IndexByte(arg, '<')
	if lt < 0 {
		return "", false
	}
	gt := strings.IndexByte(arg[lt+1:], '>')
	if gt < 0 {
		return "", false
	}
	gt += lt + 1

	inner := arg[lt+1 : gt]
	if inner == "" {
		return "", false
	}
	if !strings.Contains(inner, "@") {
		return "", false
	}

	return inner, true
}
