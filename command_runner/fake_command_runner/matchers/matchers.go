package fake_command_runner_matchers

import (
	"fmt"
	"os/exec"

	"code.cloudfoundry.org/bootstrap/command_runner/fake_command_runner"
)

func HaveExecutedSerially(specs ...fake_command_runner.CommandSpec) *HaveExecutedSeriallyMatcher {
	return &HaveExecutedSeriallyMatcher{Specs: specs}
}

type HaveExecutedSeriallyMatcher struct {
	Specs []fake_command_runner.CommandSpec

	executed []*exec.Cmd
}

func (m *HaveExecutedSeriallyMatcher) Match(actual interface{}) (bool, error) {
	runner, ok := actual.(*fake_command_runner.FakeCommandRunner)
	if !ok {
		return false, fmt.Errorf("Not a fake command runner: %#v.", actual)
	}

	m.executed = runner.ExecutedCommands()

	return matchSerially(m.Specs, m.executed), nil
}

func (m *HaveExecutedSeriallyMatcher) FailureMessage(actual interface{}) string {
	return fmt.Sprintf(
		"Expected to execute:%s\n\nActually executed:%s",
		prettySpecs(m.Specs), prettyCommands(m.executed),
	)
}

func (m *HaveExecutedSeriallyMatcher) NegatedFailureMessage(actual interface{}) string {
	return fmt.Sprintf("Expected to not execute the following commands:%s", prettySpecs(m.Specs))
}

func HaveStartedExecuting(specs ...fake_command_runner.CommandSpec) *HaveStartedExecutingMatcher {
	return &HaveStartedExecutingMatcher{Specs: specs}
}

type HaveStartedExecutingMatcher struct {
	Specs []fake_command_runner.CommandSpec

	started []*exec.Cmd
}

func (m *HaveStartedExecutingMatcher) Match(actual interface{}) (bool, error) {
	runner, ok := actual.(*fake_command_runner.FakeCommandRunner)
	if !ok {
		return false, fmt.Errorf("Not a fake command runner: %#v.", actual)
	}

	m.started = runner.StartedCommands()

	return matchSerially(m.Specs, m.started), nil
}

func (m *HaveStartedExecutingMatcher) FailureMessage(actual interface{}) string {
	return fmt.Sprintf(
		"Expected to start executing:%s\n\nActually started:%s",
		prettySpecs(m.Specs), prettyCommands(m.started),
	)
}

func (m *HaveStartedExecutingMatcher) NegatedFailureMessage(actual interface{}) string {
	return fmt.Sprintf("Expected to not start executing the following commands:%s", prettySpecs(m.Specs))
}

func matchSerially(specs []fake_command_runner.CommandSpec, commands []*exec.Cmd) bool {
	if len(specs) == 0 {
		return false
	}

	matched := false
	startSearch := 0

	for _, spec := range specs {
		matched = false

		for i := startSearch; i < len(commands); i++ {
			startSearch++

			if !spec.Matches(commands[i]) {
				continue
			}

			matched = true

			break
		}

		if !matched {
			break
		}
	}

	return matched
}

func prettySpecs(specs []fake_command_runner.CommandSpec) string {
	out := ""

	for _, spec := range specs {
		out += fmt.Sprintf("\n\t'%s'\n\t\twith arguments %v\n\t\tand environment %v", spec.Path, spec.Args, spec.Env)
	}

	return out
}

func prettyCommands(commands []*exec.Cmd) string {
	out := ""

	for _, command := range commands {
		out += fmt.Sprintf("\n\t'%s'\n\t\twith arguments %v\n\t\tand environment %v", command.Path, command.Args[1:], command.Env)
	}

	return out
}
