package fake_command_runner

import (
	"os"
	"os/exec"
	"reflect"
	"sync"
)

type FakeCommandRunner struct {
	executedCommands []*exec.Cmd
	startedCommands  []*exec.Cmd
	waitedCommands   []*exec.Cmd
	killedCommands   []*exec.Cmd

	signalledCommands map[*exec.Cmd]os.Signal

	commandCallbacks map[*CommandSpec]func(*exec.Cmd) error
	waitingCallbacks map[*CommandSpec]func(*exec.Cmd) error

	sync.RWMutex
}

type CommandSpec struct {
	Path string
	Args []string
	Env  []string
}

func (s CommandSpec) Matches(cmd *exec.Cmd) bool {
	if s.Path != "" && s.Path != cmd.Path {
		return false
	}

	if len(s.Args) > 0 && !reflect.DeepEqual(s.Args, cmd.Args[1:]) {
		return false
	}

	if len(s.Env) > 0 && !reflect.DeepEqual(s.Env, cmd.Env) {
		return false
	}

	return true
}

func New() *FakeCommandRunner {
	return &FakeCommandRunner{
		signalledCommands: make(map[*exec.Cmd]os.Signal),

		commandCallbacks: make(map[*CommandSpec]func(*exec.Cmd) error),
		waitingCallbacks: make(map[*CommandSpec]func(*exec.Cmd) error),
	}
}

func (r *FakeCommandRunner) Run(cmd *exec.Cmd) error {
	r.Lock()
	r.executedCommands = append(r.executedCommands, cmd)
	callbacks := r.commandCallbacks
	r.Unlock()

	for spec, callback := range callbacks {
		if spec.Matches(cmd) {
			return callback(cmd)
		}
	}

	return nil
}

func (r *FakeCommandRunner) Start(cmd *exec.Cmd) error {
	r.Lock()
	r.startedCommands = append(r.startedCommands, cmd)
	callbacks := r.commandCallbacks
	r.Unlock()

	for spec, callback := range callbacks {
		if spec.Matches(cmd) {
			return callback(cmd)
		}
	}

	return nil
}

func (r *FakeCommandRunner) Wait(cmd *exec.Cmd) error {
	r.Lock()
	r.waitedCommands = append(r.waitedCommands, cmd)
	callbacks := r.waitingCallbacks
	r.Unlock()

	for spec, callback := range callbacks {
		if spec.Matches(cmd) {
			return callback(cmd)
		}
	}

	return nil
}

func (r *FakeCommandRunner) Kill(cmd *exec.Cmd) error {
	r.Lock()
	defer r.Unlock()

	r.killedCommands = append(r.killedCommands, cmd)

	return nil
}

func (r *FakeCommandRunner) Signal(cmd *exec.Cmd, signal os.Signal) error {
	r.Lock()
	defer r.Unlock()

	r.signalledCommands[cmd] = signal

	return nil
}

// WhenRunning installs a callback invoked when a matching command is run or
// started.
func (r *FakeCommandRunner) WhenRunning(spec CommandSpec, callback func(*exec.Cmd) error) {
	r.Lock()
	defer r.Unlock()

	r.commandCallbacks[&spec] = callback
}

func (r *FakeCommandRunner) WhenWaitingFor(spec CommandSpec, callback func(*exec.Cmd) error) {
	r.Lock()
	defer r.Unlock()

	r.waitingCallbacks[&spec] = callback
}

func (r *FakeCommandRunner) ExecutedCommands() []*exec.Cmd {
	r.RLock()
	defer r.RUnlock()

	return append([]*exec.Cmd(nil), r.executedCommands...)
}

func (r *FakeCommandRunner) StartedCommands() []*exec.Cmd {
	r.RLock()
	defer r.RUnlock()

	return append([]*exec.Cmd(nil), r.startedCommands...)
}

func (r *FakeCommandRunner) WaitedCommands() []*exec.Cmd {
	r.RLock()
	defer r.RUnlock()

	return append([]*exec.Cmd(nil), r.waitedCommands...)
}

func (r *FakeCommandRunner) KilledCommands() []*exec.Cmd {
	r.RLock()
	defer r.RUnlock()

	return append([]*exec.Cmd(nil), r.killedCommands...)
}

func (r *FakeCommandRunner) SignalledCommands() map[*exec.Cmd]os.Signal {
	r.RLock()
	defer r.RUnlock()

	commands := make(map[*exec.Cmd]os.Signal, len(r.signalledCommands))
	for cmd, signal := range r.signalledCommands {
		commands[cmd] = signal
	}

	return commands
}
