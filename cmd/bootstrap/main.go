package main

import (
	"fmt"
	"net"
	"os"

	"code.cloudfoundry.org/lager/v3"
	"github.com/moby/sys/reexec"
	"github.com/spf13/cobra"

	"code.cloudfoundry.org/bootstrap"
	"code.cloudfoundry.org/bootstrap/command_runner"
	"code.cloudfoundry.org/bootstrap/linux_backend"
	"code.cloudfoundry.org/bootstrap/linux_backend/cgroups_manager"
	"code.cloudfoundry.org/bootstrap/linux_backend/network_manager"
	"code.cloudfoundry.org/bootstrap/linux_backend/network_manager/subnet_pool"
	"code.cloudfoundry.org/bootstrap/linux_backend/process_launcher"
	"code.cloudfoundry.org/bootstrap/linux_backend/rootfs_provider"
)

const defaultCgroupsPath = "/sys/fs/cgroup"

func main() {
	// the container init re-execs through this binary; it must take over
	// before anything else runs
	if reexec.Init() {
		return
	}

	root := &cobra.Command{
		Use:           "bootstrap",
		Short:         "launch lightweight isolated containers",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.Usage()
			return fmt.Errorf("expected a subcommand: run, cleanup, or serve")
		},
	}

	root.AddCommand(runCommand())
	root.AddCommand(cleanupCommand())
	root.AddCommand(serveCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger(component string) lager.Logger {
	logger := lager.NewLogger(component)
	logger.RegisterSink(lager.NewWriterSink(os.Stdout, lager.INFO))

	return logger
}

func newBackend(logger lager.Logger, depotPath, subnetCIDR string) (*linux_backend.LinuxBackend, error) {
	if os.Geteuid() != 0 {
		return nil, bootstrap.PermissionError{Op: "container provisioning"}
	}

	_, subnet, err := net.ParseCIDR(subnetCIDR)
	if err != nil {
		return nil, fmt.Errorf("invalid subnet %q: %s", subnetCIDR, err)
	}

	runner := command_runner.NewLogging(logger, command_runner.New())

	return linux_backend.New(
		logger,
		linux_backend.Config{
			DepotPath: depotPath,
			DefaultLimits: bootstrap.Limits{
				MemoryLimitInBytes: 100 * 1024 * 1024,
				CPUQuotaPercent:    50,
			},
		},
		rootfs_provider.New(rootfs_provider.NewELFResolver()),
		cgroups_manager.New(defaultCgroupsPath),
		network_manager.New(
			network_manager.NewDeviceManager(),
			network_manager.NewNamespaceManager(),
			subnet_pool.New(subnet),
		),
		process_launcher.New(runner),
	), nil
}
