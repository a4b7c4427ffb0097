//go:build !unix

package subprocess

import (
	"errors"
	"os"
	"os/exec"
)

func configureCmd(_ *exec.Cmd) {}

func killProcess(cmd *exec.Cmd) error {
	err := cmd.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}

	return err
}
