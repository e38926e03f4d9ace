package performance

import (
	"net"
)

// getFreePort returns an available TCP port on localhost.
func getFreePort() int {
	listener, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		panic(err)
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port
}
