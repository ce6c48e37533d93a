// minismtpd is a thin example binary demonstrating how to embed minismtp:
// it starts a server, prints every accepted Mail to stdout, and stops on
// SIGINT/SIGTERM.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blitiri.com.ar/go/log"

	"minismtp"
)

var (
	host    = flag.String("host", "localhost", "address to listen on")
	port    = flag.String("port", "2525", "port to listen on")
	domain  = flag.String("domain", "localhost", "domain label for the greeting and EHLO responses")
	cert    = flag.String("cert", "", "TLS certificate path (enables STARTTLS; requires -key)")
	key     = flag.String("key", "", "TLS key path (enables STARTTLS; requires -cert)")
	monitor = flag.String("monitoring_addr", "", "if set, address for the /debug/requests and /metrics HTTP endpoint")
)

func main() {
	flag.Parse()
	log.Init()

	srv := minismtp.New(minismtp.Config{
		Host:           *host,
		Port:           *port,
		Domain:         *domain,
		Timeout:        30 * time.Second,
		CertPath:       *cert,
		KeyPath:        *key,
		MonitoringAddr: *monitor,
	})

	ls, err := srv.Start()
	if err != nil {
		log.Fatalf("minismtpd: %v", err)
	}
	log.Infof("minismtpd: listening on %s:%s", *host, *port)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sig
		log.Infof("minismtpd: shutting down")
		ls.Stop()
		os.Exit(0)
	}()

	for mail := range ls.Mail() {
		fmt.Printf("mail: from=%s to=%v spf={pass:%v policy:%s} bytes=%d\n",
			mail.From, mail.To, mail.SPFResult.Pass, mail.SPFResult.Policy, len(mail.Data))
	}
}
