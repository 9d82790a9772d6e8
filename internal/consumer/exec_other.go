//go:build !unix

package consumer

import (
	"os"
	"os/exec"
)

func detach(*exec.Cmd) {}

func interrupt(cmd *exec.Cmd) error { return cmd.Process.Signal(os.Interrupt) }
