package minismtp

import (
	"bufio"
	"net"
	"testing"
	"time"

	"minismtp/internal/testlib"
)

func dial(t *testing.T, addr string) (net.Conn, *bufio.Reader) {
	t.Helper()
	var conn net.Conn
	var err error
	ok := testlib.WaitFor(func() bool {
		conn, err = net.DialTimeout("tcp", addr, 200*time.Millisecond)
		return err == nil
	}, 2*time.Second)
	if !ok {
		t.Fatalf("dial %s: %v", addr, err)
	}
	return conn, bufio.NewReader(conn)
}

func sendLine(t *testing.T, c net.Conn, s string) {
	t.Helper()
	if _, err := c.Write([]byte(s)); err != nil {
		t.Fatalf("Write(%q): %v", s, err)
	}
}

func readLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("ReadString: %v", err)
	}
	return line
}

// TestEndToEndHappyPath drives spec.md §8 scenario 1 against a real,
// started Server over a real TCP socket.
func TestEndToEndHappyPath(t *testing.T) {
	port := testlib.GetFreePort()
	srv := New(Config{Host: "localhost", Port: port, Domain: "mail.example.org"})

	ls, err := srv.Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer ls.Stop()

	conn, r := dial(t, net.JoinHostPort("localhost", port))
	defer conn.Close()

	if got := readLine(t, r); got != "220 mail.example.org\r\n" {
		t.Fatalf("greeting = %q", got)
	}

	sendLine(t, conn, "EHLO client.example.org\r\n")
	if got := readLine(t, r); got != "250 mail.example.org\r\n" {
		t.Fatalf("EHLO reply = %q", got)
	}

	sendLine(t, conn, "MAIL FROM:<a@x>\r\n")
	if got := readLine(t, r); got != "250 OK\r\n" {
		t.Fatalf("MAIL reply = %q", got)
	}

	sendLine(t, conn, "RCPT TO:<b@y>\r\n")
	if got := readLine(t, r); got != "250 OK\r\n" {
		t.Fatalf("RCPT reply = %q", got)
	}

	sendLine(t, conn, "DATA\r\n")
	if got := readLine(t, r); got != "354 Start mail input; end with <CRLF>.<CRLF>\r\n" {
		t.Fatalf("DATA reply = %q", got)
	}

	sendLine(t, conn, "Subject: hi\r\n\r\nhello\r\n.\r\n")
	if got := readLine(t, r); got != "250 OK\r\n" {
		t.Fatalf("data-end reply = %q", got)
	}

	sendLine(t, conn, "QUIT\r\n")
	if got := readLine(t, r); got != "221 Bye\r\n" {
		t.Fatalf("QUIT reply = %q", got)
	}

	select {
	case mail := <-ls.Mail():
		if mail.From != "a@x" {
			t.Errorf("From = %q, want a@x", mail.From)
		}
		if len(mail.To) != 1 || mail.To[0] != "b@y" {
			t.Errorf("To = %v, want [b@y]", mail.To)
		}
		if mail.SPFResult.Pass {
			t.Errorf("SPFResult.Pass = true, want false (no SPF record for client.example.org)")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for delivered mail")
	}
}

// TestBindErrorOnPortInUse exercises the Bind error surfaced by Start when
// the port is already held by another listener.
func TestBindErrorOnPortInUse(t *testing.T) {
	port := testlib.GetFreePort()
	ln, err := net.Listen("tcp", net.JoinHostPort("localhost", port))
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	srv := New(Config{Host: "localhost", Port: port, Domain: "mail.example.org"})
	_, err = srv.Start()
	if err == nil {
		t.Fatal("Start() = nil error, want a BindError")
	}
	if _, ok := err.(*BindError); !ok {
		t.Errorf("Start() error = %v (%T), want *BindError", err, err)
	}
}

// TestStopStopsAccepting verifies that after Stop, the listening port no
// longer accepts connections.
func TestStopStopsAccepting(t *testing.T) {
	port := testlib.GetFreePort()
	srv := New(Config{Host: "localhost", Port: port, Domain: "mail.example.org"})

	ls, err := srv.Start()
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	ls.Stop()

	_, err = net.DialTimeout("tcp", net.JoinHostPort("localhost", port), 200*time.Millisecond)
	if err == nil {
		t.Fatal("dial succeeded after Stop")
	}
}
