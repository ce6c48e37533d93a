package session

import "minismtp/internal/spf"

// Mail is the envelope plus payload accumulated over the course of one SMTP
// transaction: the MAIL FROM sender, the RCPT TO recipients in receipt
// order (duplicates retained), the raw message data (including the
// terminating dot-stuffed sentinel), and the SPF annotation computed after
// the session ends.
type Mail struct {
	ClientDomain string
	From         string
	To           []string
	Data         []byte
	SPFResult    SPFResult
}

// SPFResult is the pair of (pass, policy) spec.md calls spf_result.
type SPFResult struct {
	Pass   bool
	Policy spf.Policy
}

// defaultSPFResult is what a Mail carries before SPF annotation runs.
func defaultSPFResult() SPFResult {
	return SPFResult{Pass: false, Policy: spf.Fail}
}

// NewMail creates a Mail for a freshly accepted MAIL FROM, owned by the
// MailFrom state from here on.
func NewMail(clientDomain, from string) *Mail {
	return &Mail{
		ClientDomain: clientDomain,
		From:         from,
		To:           nil,
		Data:         nil,
		SPFResult:    defaultSPFResult(),
	}
}

// WithRecipient returns a copy of m with addr appended to To. RCPT TO never
// mutates the previous Mail in place; callers thread the returned value
// through to the next state.
func (m *Mail) WithRecipient(addr string) *Mail {
	next := *m
	next.To = append(append([]string(nil), m.To...), addr)
	return &next
}
