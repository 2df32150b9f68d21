//go:build windows

package progress

import (
	"os"

	"golang.org/x/sys/windows"
)

// consoleSupportsANSI switches the console to virtual terminal processing.
// Old consoles that refuse it get plain text output instead of bars.
func consoleSupportsANSI(f *os.File) bool {
	h := windows.Handle(f.Fd())
	var mode uint32
	if err := windows.GetConsoleMode(h, &mode); err != nil {
		return false
	}
	if mode&windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING != 0 {
		return true
	}
	return windows.SetConsoleMode(h, mode|windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING) == nil
}
