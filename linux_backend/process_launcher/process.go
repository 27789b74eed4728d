package process_launcher

import (
	"os"
	"os/exec"

	"code.cloudfoundry.org/bootstrap/command_runner"
)

// LaunchedProcess is the running container process tree, rooted at the
// init process.
type LaunchedProcess struct {
	cmd    *exec.Cmd
	runner command_runner.CommandRunner
}

func (p *LaunchedProcess) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}

	return p.cmd.Process.Pid
}

// Wait blocks until the process tree terminates and returns its exit
// status.
func (p *LaunchedProcess) Wait() (int, error) {
	err := p.runner.Wait(p.cmd)
	if err == nil {
		return 0, nil
	}

	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}

	return 0, err
}

func (p *LaunchedProcess) Signal(signal os.Signal) error {
	return p.runner.Signal(p.cmd, signal)
}
