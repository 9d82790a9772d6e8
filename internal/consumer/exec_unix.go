//go:build unix

package consumer

import (
	"os/exec"
	"syscall"
)

// detach starts the command in its own process group, so a terminal Ctrl-C
// reaches only the worker, which interrupts the job through ctx.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// interrupt sends SIGINT to the command's whole process group.
func interrupt(cmd *exec.Cmd) error {
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGINT)
}
