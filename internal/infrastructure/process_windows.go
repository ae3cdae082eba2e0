//go:build windows

package infrastructure

import (
	"os/exec"
	"syscall"
)

// setProcessGroup runs the command in its own process group
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}
