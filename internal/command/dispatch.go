// Package command implements the verb dispatcher and per-verb handlers: the
// map from (current state, verb) to the next state and the reply to send.
// Grounded on chasquid's internal/smtpsrv.Conn.Handle, whose loop switches
// on the uppercased command word and calls one handler method per verb; we
// keep that one-handler-per-verb shape but make the dispatch function pure
// (it returns the next state and reply rather than mutating a *Conn and
// writing to a socket directly), matching spec.md §4.5's requirement that
// handlers never touch the stream.
package command

import (
	"bytes"
	"strings"

	"minismtp/internal/envelope"
	"minismtp/internal/reply"
	"minismtp/internal/session"
)

// dotSentinel is the dot-stuffed terminator closing a DATA payload.
var dotSentinel = []byte("\r\n.\r\n")

// Dispatch maps the current state and a raw command buffer to the next
// state and the reply to send. When the current state is Data, verb
// dispatch is bypassed entirely: the whole buffer is treated as message
// content (spec.md §4.4's "Data(m) match is tested before verb dispatch").
func Dispatch(state session.State, domain string, tlsConfigured bool, raw []byte) (session.State, []byte, error) {
	if state.Kind() == session.Data {
		return dispatchData(state, raw)
	}

	tokens := strings.Fields(string(raw))
	if len(tokens) == 0 {
		return state, nil, session.ErrInvalidCommand
	}

	verb := strings.ToLower(tokens[0])
	args := tokens[1:]

	switch verb {
	case "quit":
		return state, reply.Quit, nil
	case "ehlo":
		return ehlo(state, domain, tlsConfigured, args)
	case "helo":
		return helo(state, domain, args)
	case "starttls":
		return starttls(state, tlsConfigured)
	case "mail":
		return mailFrom(state, args)
	case "rcpt":
		return rcptTo(state, args)
	case "data":
		return data(state)
	default:
		return state, nil, session.ErrInvalidCommand
	}
}

func dispatchData(state session.State, raw []byte) (session.State, []byte, error) {
	m := state.Mail()
	next := *m
	next.Data = append(append([]byte(nil), m.Data...), raw...)

	newState := session.NewData(&next)
	if bytes.HasSuffix(next.Data, dotSentinel) {
		return newState, reply.OK, nil
	}
	return newState, nil, nil
}

// joinArg rejoins the whitespace-split tokens following the verb, since the
// dispatcher's tokenizer (space/CR/LF) can split a single logical argument
// like "FROM:<a@b> SIZE=100" into more than one token; envelope.Extract
// scans the whole thing for the bracketed address regardless.
func joinArg(args []string) string {
	return strings.Join(args, " ")
}

func ehlo(state session.State, domain string, tlsConfigured bool, args []string) (session.State, []byte, error) {
	if state.Kind() != session.Initial {
		return state, nil, session.ErrInvalidCommand
	}

	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}

	next := session.NewEhlo(arg)
	if tlsConfigured {
		return next, reply.EhloTLSAvailable(domain), nil
	}
	return next, reply.EhloTLSUnavailable(domain), nil
}

func helo(state session.State, domain string, args []string) (session.State, []byte, error) {
	if state.Kind() != session.Initial {
		return state, nil, session.ErrInvalidCommand
	}

	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}

	// HELO never advertises STARTTLS, regardless of whether TLS is
	// configured.
	return session.NewEhlo(arg), reply.EhloTLSUnavailable(domain), nil
}

func starttls(state session.State, tlsConfigured bool) (session.State, []byte, error) {
	if state.Kind() != session.Ehlo {
		return state, nil, session.ErrInvalidCommand
	}

	if !tlsConfigured {
		return state, reply.TLSUnavailable, nil
	}
	return session.NewStartTLS(), reply.ReadyForTLS, nil
}

func mailFrom(state session.State, args []string) (session.State, []byte, error) {
	if state.Kind() != session.Ehlo {
		return state, nil, session.ErrInvalidCommand
	}

	addr, ok := envelope.Extract(joinArg(args))
	if !ok {
		// The handler unconditionally replies OK even on a malformed
		// sender; the session is marked Invalid so later commands fail
		// dispatch (spec.md §9 Open Questions: preserved verbatim).
		return session.NewInvalid(), reply.OK, nil
	}

	m := session.NewMail(state.ClientDomain(), addr)
	return session.NewMailFrom(m), reply.OK, nil
}

func rcptTo(state session.State, args []string) (session.State, []byte, error) {
	if state.Kind() != session.MailFrom {
		return state, nil, session.ErrInvalidCommand
	}

	addr, ok := envelope.Extract(joinArg(args))
	if !ok {
		return session.NewInvalid(), reply.OK, nil
	}

	m := state.Mail().WithRecipient(addr)
	return session.NewMailFrom(m), reply.OK, nil
}

func data(state session.State) (session.State, []byte, error) {
	if state.Kind() != session.MailFrom {
		return state, nil, session.ErrInvalidCommand
	}
	return session.NewData(state.Mail()), reply.SendData, nil
}
