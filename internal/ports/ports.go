// Package ports frees TCP ports held by stray processes.
package ports

import (
	"fmt"
	"net"
	"time"
)

// FreePort finds an available TCP port by asking the kernel for :0.
func FreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// IsBusy reports whether something accepts TCP connections on the loopback port.
func IsBusy(port int) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), 200*time.Millisecond)
	if err == nil {
		_ = conn.Close()
		return true
	}
	return false
}
