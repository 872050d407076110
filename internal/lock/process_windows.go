//go:build windows

package lock

import (
	"errors"

	"golang.org/x/sys/windows"
)

// processExists checks if a process with the given PID exists on Windows
func processExists(pid int) bool {
	if pid <= 0 {
		return false
	}
	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		// ERROR_ACCESS_DENIED: alive but not ours
		if errors.Is(err, windows.ERROR_ACCESS_DENIED) {
			return true
		}
		return false
	}
	windows.CloseHandle(handle)
	return true
}
