package minismtp

import (
	"fmt"
	"net"
	"strings"
	"sync"

	"minismtp/internal/conn"
	"minismtp/internal/session"
	"minismtp/internal/spf"
	"minismtp/internal/transport"

	"blitiri.com.ar/go/log"
	"blitiri.com.ar/go/systemd"
)

// BindError is returned by Start when neither a systemd-provided listener
// nor a fresh bind could be acquired.
type BindError struct {
	Host, Port string
	Source     error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("minismtp: bind %s:%s: %v", e.Host, e.Port, e.Source)
}

func (e *BindError) Unwrap() error { return e.Source }

// Server is a constructed but not yet started endpoint (spec.md §4.8's
// Closed phantom state, enforced here by construction rather than by a
// type parameter: New always returns a Closed Server, and Start always
// returns a *ListeningServer with no way back to Server).
type Server struct {
	cfg Config
}

// New constructs a Closed server ready to Start.
func New(cfg Config) *Server {
	return &Server{cfg: cfg}
}

// ListeningServer is the handle returned by a successful Start: the
// Listening phantom state. It exposes the consumer end of the mail
// channel and a Stop method; there is no way to Start it again.
type ListeningServer struct {
	cfg      Config
	listener net.Listener
	bindErr  error

	mail     *unbounded[*session.Mail]
	affirm   *unbounded[struct{}]
	shutdown *unbounded[struct{}]

	monitor *monitoringServer
}

// Start spawns the acceptor and blocks until it has either bound
// successfully or failed to. On success, accepting begins immediately and
// the returned *ListeningServer's Mail() channel starts delivering
// messages as sessions complete.
func (s *Server) Start() (*ListeningServer, error) {
	ls := &ListeningServer{
		cfg:      s.cfg,
		mail:     newUnbounded[*session.Mail](),
		affirm:   newUnbounded[struct{}](),
		shutdown: newUnbounded[struct{}](),
	}

	go ls.acceptorLoop()

	<-ls.affirm.Recv()
	if ls.bindErr != nil {
		return nil, ls.bindErr
	}

	if ls.cfg.MonitoringAddr != "" {
		ls.monitor = startMonitoringServer(ls.cfg.MonitoringAddr)
	}

	return ls, nil
}

// Mail returns the channel of accepted, SPF-annotated messages. The
// embedder should keep draining it for as long as the server is running.
func (ls *ListeningServer) Mail() <-chan *session.Mail {
	return ls.mail.Recv()
}

// Stop requests shutdown: the acceptor stops taking new connections, waits
// for the last in-flight session to submit (or discard) its result, closes
// Mail()'s channel, and only then confirms; Stop blocks until that
// confirmation arrives. In-flight sessions are not cancelled; they finish
// (or time out) on their own schedule, and Stop returns after they have.
func (ls *ListeningServer) Stop() *Server {
	ls.shutdown.Send(struct{}{})
	<-ls.affirm.Recv()

	if ls.monitor != nil {
		ls.monitor.Close()
	}

	return &Server{cfg: ls.cfg}
}

func (ls *ListeningServer) acceptorLoop() {
	ln, err := bind(ls.cfg.Host, ls.cfg.Port)
	if err != nil {
		ls.bindErr = &BindError{Host: ls.cfg.Host, Port: ls.cfg.Port, Source: err}
		ls.affirm.Send(struct{}{})
		return
	}
	ls.listener = ln
	ls.affirm.Send(struct{}{})

	var sessions sync.WaitGroup
	stopping := make(chan struct{})

	go func() {
		<-ls.shutdown.Recv()
		close(stopping)
		ln.Close()
	}()

	for {
		sock, err := ln.Accept()
		if err != nil {
			select {
			case <-stopping:
				sessions.Wait()
				ls.mail.Close()
				ls.affirm.Send(struct{}{})
				return
			default:
				log.Errorf("minismtp: accept error: %v", err)
				continue
			}
		}

		sessions.Add(1)
		go func() {
			defer sessions.Done()
			ls.runSession(sock)
		}()
	}
}

// runSession drives one accepted socket to completion, annotates a
// successfully accumulated Mail with its SPF result, and submits it on the
// mail channel. The SPF check runs on this session's own goroutine after
// Drive has closed the connection, so the DNS round-trip never overlaps
// the session's I/O or blocks other sessions.
func (ls *ListeningServer) runSession(sock net.Conn) {
	cc := conn.Config{
		Domain:         ls.cfg.domain(),
		Timeout:        ls.cfg.timeout(),
		BufferSize:     ls.cfg.bufferSize(),
		CertPath:       ls.cfg.CertPath,
		KeyPath:        ls.cfg.KeyPath,
		MaxMessageSize: ls.cfg.MaxMessageSize,
	}

	c := conn.New(transport.New(sock), cc)
	mail, err := c.Drive()
	if mail == nil {
		if err != nil {
			log.Infof("minismtp: %s: session ended: %v", sock.RemoteAddr(), err)
		}
		return
	}

	annotateSPF(sock.RemoteAddr(), mail)
	ls.mail.Send(mail)
}

// annotateSPF runs the (synchronous, DNS-bound) SPF check and records the
// result directly on mail; it never fails the session, only degrades to
// (false, Fail) per spec.md §4.7/§7.
func annotateSPF(remote net.Addr, mail *session.Mail) {
	ip := peerIP(remote)
	domain := mail.ClientDomain

	if override, ok := spfDomainOverride(); ok {
		domain = override
	}
	if override, ok := spfIPOverride(); ok {
		ip = override
	}

	pass, policy := spf.Check(ip, domain)
	mail.SPFResult = session.SPFResult{Pass: pass, Policy: policy}
}

func peerIP(addr net.Addr) net.IP {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		host = addr.String()
	}
	return net.ParseIP(strings.TrimSpace(host))
}

func bind(host, port string) (net.Listener, error) {
	addr := net.JoinHostPort(host, port)

	listeners, err := systemd.Listeners()
	if err == nil {
		for _, ls := range listeners {
			for _, l := range ls {
				if l.Addr().String() == addr {
					return l, nil
				}
			}
		}
	}

	return net.Listen("tcp", addr)
}
