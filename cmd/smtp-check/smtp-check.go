// smtp-check is a command-line tool for exercising a running minismtp
// endpoint end to end: it dials the server, walks EHLO/STARTTLS/MAIL
// FROM/RCPT TO/DATA, and reports each reply plus the negotiated TLS
// parameters if the server offers STARTTLS.
package main

import (
	"crypto/tls"
	"flag"
	"fmt"
	"log"
	"net"
	"net/textproto"
	"time"

	"minismtp/internal/tlsconst"
)

var (
	addr = flag.String("addr", "localhost:2525", "address of the minismtp endpoint to check")
	from = flag.String("from", "prober@example.org", "MAIL FROM address to use")
	to   = flag.String("to", "postmaster@example.org", "RCPT TO address to use")
)

func main() {
	flag.Parse()

	conn, err := net.DialTimeout("tcp", *addr, 5*time.Second)
	if err != nil {
		log.Fatalf("dial %s: %v", *addr, err)
	}
	defer conn.Close()

	tp := textproto.NewConn(conn)

	readLine(tp) // greeting

	send(tp, "EHLO smtp-check")
	lines := readMultiline(tp)
	tlsOffered := false
	for _, l := range lines {
		if l == "STARTTLS" {
			tlsOffered = true
		}
	}
	log.Printf("STARTTLS offered: %v", tlsOffered)

	if tlsOffered {
		send(tp, "STARTTLS")
		readLine(tp)

		tlsConn := tls.Client(conn, &tls.Config{InsecureSkipVerify: true})
		if err := tlsConn.Handshake(); err != nil {
			log.Fatalf("TLS handshake: %v", err)
		}
		cstate := tlsConn.ConnectionState()
		log.Printf("TLS OK: %s - %s",
			tlsconst.VersionName(cstate.Version),
			tlsconst.CipherSuiteName(cstate.CipherSuite))

		tp = textproto.NewConn(tlsConn)
		send(tp, "EHLO smtp-check")
		readMultiline(tp)
	}

	send(tp, fmt.Sprintf("MAIL FROM:<%s>", *from))
	readLine(tp)

	send(tp, fmt.Sprintf("RCPT TO:<%s>", *to))
	readLine(tp)

	send(tp, "DATA")
	readLine(tp)

	send(tp, "Subject: smtp-check probe\r\n\r\nping\r\n.")
	readLine(tp)

	send(tp, "QUIT")
	readLine(tp)

	log.Printf("=== Success")
}

func send(tp *textproto.Conn, line string) {
	log.Printf("> %s", line)
	if err := tp.PrintfLine("%s", line); err != nil {
		log.Fatalf("write: %v", err)
	}
}

func readLine(tp *textproto.Conn) string {
	line, err := tp.ReadLine()
	if err != nil {
		log.Fatalf("read: %v", err)
	}
	log.Printf("< %s", line)
	return line
}

// readMultiline reads a multi-line 250- reply and returns the trailing
// word of each line (e.g. "STARTTLS" out of "250 STARTTLS").
func readMultiline(tp *textproto.Conn) []string {
	var words []string
	for {
		line, err := tp.ReadLine()
		if err != nil {
			log.Fatalf("read: %v", err)
		}
		log.Printf("< %s", line)
		words = append(words, lastField(line))
		if len(line) >= 4 && line[3] == ' ' {
			break
		}
	}
	return words
}

func lastField(line string) string {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i] == ' ' || line[i] == '-' {
			return line[i+1:]
		}
	}
	return line
}
