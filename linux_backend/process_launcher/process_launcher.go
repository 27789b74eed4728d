package process_launcher

import (
	"io"
	"os"
	"os/exec"
	"runtime"
	"syscall"

	"code.cloudfoundry.org/lager/v3"
	"github.com/moby/sys/reexec"
	"github.com/vishvananda/netns"

	"code.cloudfoundry.org/bootstrap"
	"code.cloudfoundry.org/bootstrap/command_runner"
)

// LaunchSpec describes one isolated launch: where to pivot, what to exec,
// and which limit-groups to join before the workload runs.
type LaunchSpec struct {
	Handle     string
	RootFSPath string
	Hostname   string

	// Path is the program exec'd once the namespaces and mounts are set up.
	Path string
	Args []string

	// NetworkNamespace names the netns handle the process joins. Empty
	// means the host's network namespace.
	NetworkNamespace string

	// Admit is called with the launch PID (host view) after the process is
	// cloned but before it is released past the sync pipe, so the process
	// is inside every limit-group before the workload runs.
	Admit func(pid int) error

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Process is the running container process tree as seen by the backend.
type Process interface {
	Pid() int
	Wait() (int, error)
	Signal(os.Signal) error
}

// Launcher starts the reexec'd init process with fresh PID, mount, UTS,
// and IPC namespaces, joined to the container's network namespace.
type Launcher struct {
	runner command_runner.CommandRunner
}

func New(runner command_runner.CommandRunner) *Launcher {
	return &Launcher{runner: runner}
}

func (l *Launcher) Launch(logger lager.Logger, spec LaunchSpec) (Process, error) {
	log := logger.Session("launch", lager.Data{"handle": spec.Handle})

	syncRead, syncWrite, err := os.Pipe()
	if err != nil {
		return nil, bootstrap.NewLaunchError(err)
	}
	defer syncRead.Close()

	cmd := reexec.Command(append([]string{initName, spec.Path}, spec.Args...)...)

	cmd.Env = []string{
		"BOOTSTRAP_ROOTFS=" + spec.RootFSPath,
		"BOOTSTRAP_HOSTNAME=" + spec.Hostname,
	}

	cmd.Stdin = spec.Stdin
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr

	// fd 3 in the child
	cmd.ExtraFiles = []*os.File{syncRead}

	cmd.SysProcAttr = &syscall.SysProcAttr{
		Cloneflags: syscall.CLONE_NEWPID |
			syscall.CLONE_NEWNS |
			syscall.CLONE_NEWUTS |
			syscall.CLONE_NEWIPC,
	}

	if err := l.startInNamespace(cmd, spec.NetworkNamespace); err != nil {
		syncWrite.Close()
		log.Error("start-failed", err)
		return nil, bootstrap.NewLaunchError(err)
	}

	pid := 0
	if cmd.Process != nil {
		pid = cmd.Process.Pid
	}

	log.Debug("started", lager.Data{"pid": pid})

	if spec.Admit != nil {
		if err := spec.Admit(pid); err != nil {
			log.Error("admit-failed", err)
			syncWrite.Close()
			l.runner.Kill(cmd)
			l.runner.Wait(cmd)
			return nil, bootstrap.NewLaunchError(err)
		}
	}

	// release the child past its sync barrier
	if _, err := syncWrite.Write([]byte{0}); err != nil {
		log.Error("release-failed", err)
		syncWrite.Close()
		l.runner.Kill(cmd)
		l.runner.Wait(cmd)
		return nil, bootstrap.NewLaunchError(err)
	}
	syncWrite.Close()

	return &LaunchedProcess{cmd: cmd, runner: l.runner}, nil
}

// startInNamespace starts the command with the calling thread switched
// into the target network namespace, so the clone inherits it.
func (l *Launcher) startInNamespace(cmd *exec.Cmd, namespace string) error {
	if namespace == "" {
		return l.runner.Start(cmd)
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	origin, err := netns.Get()
	if err != nil {
		return err
	}
	defer origin.Close()

	target, err := netns.GetFromName(namespace)
	if err != nil {
		return err
	}
	defer target.Close()

	if err := netns.Set(target); err != nil {
		return err
	}
	defer netns.Set(origin)

	return l.runner.Start(cmd)
}
