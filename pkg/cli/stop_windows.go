//go:build windows

package cli

import (
	"os"

	"golang.org/x/sys/windows"
)

// Signals for Windows systems.
// Windows has no SIGTERM; os.Interrupt asks nicely, os.Kill does not.
var (
	signalTerm = os.Interrupt
	signalKill = os.Kill
)

// signalTermName returns the name of the graceful shutdown signal.
func signalTermName() string {
	return "interrupt"
}

// signalKillName returns the name of the force kill signal.
func signalKillName() string {
	return "kill"
}

// checkProcessRunning checks if a process is running on Windows.
func checkProcessRunning(pid int) bool {
	handle, err := windows.OpenProcess(windows.SYNCHRONIZE|windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return false
	}
	defer windows.CloseHandle(handle)

	// Wait with zero timeout: WAIT_TIMEOUT means the process is still
	// running, anything else means it has exited.
	event, err := windows.WaitForSingleObject(handle, 0)
	if err != nil {
		return false
	}
	return event == uint32(windows.WAIT_TIMEOUT)
}
