// Command line tool for exercising this module's SPF annotator directly,
// without standing up a listening server.
//
// Not for use in production, just development and experimentation.

package main

import (
	"flag"
	"fmt"
	"net"

	"minismtp/internal/spf"
)

func main() {
	flag.Parse()

	ip := net.ParseIP(flag.Arg(0))
	domain := flag.Arg(1)
	if ip == nil || domain == "" {
		fmt.Println("Use: spf-check <ip> <domain>")
		return
	}

	pass, policy := spf.Check(ip, domain)
	fmt.Printf("pass=%v policy=%s\n", pass, policy)
}
