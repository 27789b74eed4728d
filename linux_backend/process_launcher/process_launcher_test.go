package process_launcher_test

import (
	"errors"
	"os/exec"
	"syscall"

	"code.cloudfoundry.org/lager/v3/lagertest"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"code.cloudfoundry.org/bootstrap"
	"code.cloudfoundry.org/bootstrap/command_runner/fake_command_runner"
	. "code.cloudfoundry.org/bootstrap/command_runner/fake_command_runner/matchers"
	"code.cloudfoundry.org/bootstrap/linux_backend/process_launcher"
)

var _ = Describe("Process Launcher", func() {
	var runner *fake_command_runner.FakeCommandRunner
	var launcher *process_launcher.Launcher
	var logger *lagertest.TestLogger

	spec := process_launcher.LaunchSpec{
		Handle:     "demo",
		RootFSPath: "/var/run/bootstrap/demo",
		Hostname:   "demo",
		Path:       "/bin/sh",
	}

	BeforeEach(func() {
		runner = fake_command_runner.New()
		launcher = process_launcher.New(runner)
		logger = lagertest.NewTestLogger("test")
	})

	startedCommand := func() *exec.Cmd {
		started := runner.StartedCommands()
		Expect(started).To(HaveLen(1))
		return started[0]
	}

	It("starts the reexec'd init with the target program as its argument", func() {
		_, err := launcher.Launch(logger, spec)
		Expect(err).ToNot(HaveOccurred())

		cmd := startedCommand()
		Expect(cmd.Args[0]).To(Equal("bootstrap-init"))

		Expect(runner).To(HaveStartedExecuting(
			fake_command_runner.CommandSpec{
				Args: []string{"/bin/sh"},
			},
		))
	})

	It("requests fresh pid, mount, uts, and ipc namespaces", func() {
		_, err := launcher.Launch(logger, spec)
		Expect(err).ToNot(HaveOccurred())

		cmd := startedCommand()
		Expect(cmd.SysProcAttr).ToNot(BeNil())

		flags := cmd.SysProcAttr.Cloneflags
		Expect(flags & syscall.CLONE_NEWPID).ToNot(BeZero())
		Expect(flags & syscall.CLONE_NEWNS).ToNot(BeZero())
		Expect(flags & syscall.CLONE_NEWUTS).ToNot(BeZero())
		Expect(flags & syscall.CLONE_NEWIPC).ToNot(BeZero())
	})

	It("passes the root path and hostname through the environment", func() {
		_, err := launcher.Launch(logger, spec)
		Expect(err).ToNot(HaveOccurred())

		cmd := startedCommand()
		Expect(cmd.Env).To(ContainElement("BOOTSTRAP_ROOTFS=/var/run/bootstrap/demo"))
		Expect(cmd.Env).To(ContainElement("BOOTSTRAP_HOSTNAME=demo"))
	})

	It("hands the child the sync pipe", func() {
		_, err := launcher.Launch(logger, spec)
		Expect(err).ToNot(HaveOccurred())

		cmd := startedCommand()
		Expect(cmd.ExtraFiles).To(HaveLen(1))
	})

	Describe("limit-group admission", func() {
		It("admits the launch pid before releasing the child", func() {
			admitted := false

			launchSpec := spec
			launchSpec.Admit = func(pid int) error {
				admitted = true
				return nil
			}

			_, err := launcher.Launch(logger, launchSpec)
			Expect(err).ToNot(HaveOccurred())
			Expect(admitted).To(BeTrue())
		})

		Context("when admission fails", func() {
			It("kills the child and returns a LaunchError", func() {
				launchSpec := spec
				launchSpec.Admit = func(pid int) error {
					return errors.New("cgroup gone")
				}

				_, err := launcher.Launch(logger, launchSpec)
				Expect(err).To(BeAssignableToTypeOf(bootstrap.LaunchError{}))

				Expect(runner.KilledCommands()).To(HaveLen(1))
				Expect(runner.WaitedCommands()).To(HaveLen(1))
			})
		})
	})

	Context("when starting the process fails", func() {
		BeforeEach(func() {
			runner.WhenRunning(fake_command_runner.CommandSpec{}, func(*exec.Cmd) error {
				return errors.New("no such binary")
			})
		})

		It("returns a LaunchError", func() {
			_, err := launcher.Launch(logger, spec)
			Expect(err).To(BeAssignableToTypeOf(bootstrap.LaunchError{}))
		})
	})

	Context("when the network namespace handle does not exist", func() {
		It("returns a LaunchError without starting anything", func() {
			launchSpec := spec
			launchSpec.NetworkNamespace = "no-such-namespace"

			_, err := launcher.Launch(logger, launchSpec)
			Expect(err).To(BeAssignableToTypeOf(bootstrap.LaunchError{}))
			Expect(runner.StartedCommands()).To(BeEmpty())
		})
	})

	Describe("the launched process", func() {
		It("waits through the runner and reports a clean exit as zero", func() {
			process, err := launcher.Launch(logger, spec)
			Expect(err).ToNot(HaveOccurred())

			status, err := process.Wait()
			Expect(err).ToNot(HaveOccurred())
			Expect(status).To(Equal(0))

			Expect(runner.WaitedCommands()).To(HaveLen(1))
		})

		It("forwards signals through the runner", func() {
			process, err := launcher.Launch(logger, spec)
			Expect(err).ToNot(HaveOccurred())

			Expect(process.Signal(syscall.SIGTERM)).To(Succeed())
			Expect(runner.SignalledCommands()).To(HaveLen(1))
		})
	})
})
