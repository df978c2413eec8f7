// Package netutil has small helpers for picking listen addresses.
package netutil

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// ErrNoFreePort is returned when every port from start up to 65535 is taken.
var ErrNoFreePort = errors.New("no free port")

// FindPort returns the first port >= start that can be bound on host.
func FindPort(host string, start int) (int, error) {
	if start <= 0 || start > 65535 {
		return 0, fmt.Errorf("invalid start port %d", start)
	}
	for port := start; port <= 65535; port++ {
		ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
		if err != nil {
			continue
		}
		ln.Close()
		return port, nil
	}
	return 0, fmt.Errorf("%w from %d on %s", ErrNoFreePort, start, host)
}

// LocalIP returns the machine's preferred outbound IPv4 address, or nil when
// there is none. No packets are sent.
func LocalIP() net.IP {
	conn, err := net.Dial("udp4", "192.0.2.1:80")
	if err != nil {
		return nil
	}
	defer conn.Close()
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP.IsUnspecified() {
		return nil
	}
	return addr.IP
}
