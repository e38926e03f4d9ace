// Package ports provides port availability checking for the serve and
// doctor commands.
package ports

import (
	"fmt"
	"net"
)

// IsAvailable checks if a port is available for binding.
// Returns true if the port is available, false otherwise.
func IsAvailable(port int) bool {
	return Check(port) == nil
}

// Check checks if a port is available and returns an error if not.
func Check(port int) error {
	addr := fmt.Sprintf(":%d", port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	_ = ln.Close()
	return nil
}
