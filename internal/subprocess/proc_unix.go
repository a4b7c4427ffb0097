//go:build unix

package subprocess

import (
	"errors"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// configureCmd starts the child in its own session: it has no controlling
// terminal and leads a process group that kill can target as a whole.
func configureCmd(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

// killProcess sends SIGKILL to the child's process group so grandchildren
// that inherited the pipes die with it. A group that no longer exists counts
// as already stopped.
func killProcess(cmd *exec.Cmd) error {
	err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	if errors.Is(err, unix.ESRCH) {
		return nil
	}

	return err
}
