//go:build unix

package process

import (
	"os/exec"
	"syscall"
)

// killGroupOnCancel starts cmd in a new process group and kills the whole group when the
// command's context is done.
func killGroupOnCancel(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
