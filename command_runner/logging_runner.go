package command_runner

import (
	"os"
	"os/exec"

	"code.cloudfoundry.org/lager/v3"
)

// LoggingCommandRunner decorates another runner, logging each command with
// its arguments before handing it on.
type LoggingCommandRunner struct {
	logger lager.Logger
	runner CommandRunner
}

func NewLogging(logger lager.Logger, runner CommandRunner) *LoggingCommandRunner {
	return &LoggingCommandRunner{
		logger: logger.Session("command-runner"),
		runner: runner,
	}
}

func (r *LoggingCommandRunner) Run(cmd *exec.Cmd) error {
	r.logger.Debug("run", commandData(cmd))

	err := r.runner.Run(cmd)
	if err != nil {
		r.logger.Error("run-failed", err, commandData(cmd))
	}

	return err
}

func (r *LoggingCommandRunner) Start(cmd *exec.Cmd) error {
	r.logger.Debug("start", commandData(cmd))
	return r.runner.Start(cmd)
}

func (r *LoggingCommandRunner) Wait(cmd *exec.Cmd) error {
	err := r.runner.Wait(cmd)
	r.logger.Debug("waited", commandData(cmd))
	return err
}

func (r *LoggingCommandRunner) Kill(cmd *exec.Cmd) error {
	r.logger.Debug("kill", commandData(cmd))
	return r.runner.Kill(cmd)
}

func (r *LoggingCommandRunner) Signal(cmd *exec.Cmd, signal os.Signal) error {
	r.logger.Debug("signal", commandData(cmd), lager.Data{"signal": signal.String()})
	return r.runner.Signal(cmd, signal)
}

func commandData(cmd *exec.Cmd) lager.Data {
	return lager.Data{
		"path": cmd.Path,
		"args": cmd.Args,
	}
}
