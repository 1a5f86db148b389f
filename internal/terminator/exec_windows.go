//go:build windows

package terminator

import (
	"os/exec"
	"syscall"
)

// createNoWindow keeps console tools from flashing a window.
const createNoWindow = 0x08000000

func hideWindow(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: createNoWindow,
	}
}
