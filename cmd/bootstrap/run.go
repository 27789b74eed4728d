package main

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"code.cloudfoundry.org/lager/v3"
	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"code.cloudfoundry.org/bootstrap"
	"code.cloudfoundry.org/bootstrap/linux_backend"
)

func runCommand() *cobra.Command {
	var (
		handle      string
		depotPath   string
		subnetCIDR  string
		rootFSPath  string
		hostname    string
		shell       string
		binaries    []string
		memoryLimit string
		cpuQuota    int64
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "provision a container, run its shell, and tear it down on exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger("bootstrap")

			memoryLimitBytes, err := units.RAMInBytes(memoryLimit)
			if err != nil {
				return err
			}

			backend, err := newBackend(logger, depotPath, subnetCIDR)
			if err != nil {
				return err
			}

			if err := backend.Start(); err != nil {
				return err
			}

			// the handler must be in place before provisioning starts: an
			// interrupt mid-create still has to tear down whatever partial
			// state exists
			var (
				runningL sync.Mutex
				running  *linux_backend.LinuxContainer
			)

			signals := make(chan os.Signal, 1)
			signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				for sig := range signals {
					runningL.Lock()
					container := running
					runningL.Unlock()

					if container != nil {
						logger.Info("forwarding-signal", lager.Data{"signal": sig.String()})
						container.Signal(sig)
						continue
					}

					logger.Info("interrupted", lager.Data{"signal": sig.String()})
					for _, warning := range backend.Cleanup(handle, rootFSPath) {
						logger.Info("teardown-warning", lager.Data{
							"step":    warning.Step,
							"message": warning.Message,
						})
					}
					os.Exit(1)
				}
			}()

			container, err := backend.Create(bootstrap.ContainerSpec{
				Handle:     handle,
				RootFSPath: rootFSPath,
				Hostname:   hostname,
				Shell:      shell,
				Binaries:   binaries,
				Limits: bootstrap.Limits{
					MemoryLimitInBytes: memoryLimitBytes,
					CPUQuotaPercent:    cpuQuota,
				},
			})
			if err != nil {
				return err
			}

			runningL.Lock()
			running = container.(*linux_backend.LinuxContainer)
			runningL.Unlock()

			status, waitErr := container.Wait()

			if err := backend.Destroy(handle); err != nil {
				logger.Error("destroy-failed", err)
			}

			if waitErr != nil {
				return waitErr
			}

			logger.Info("exited", lager.Data{"status": status})
			os.Exit(status)

			return nil
		},
	}

	cmd.Flags().StringVar(&handle, "handle", "demo", "container handle; names every derived resource")
	cmd.Flags().StringVar(&depotPath, "depot", "/var/bootstrap/depot", "directory for assembled root filesystems")
	cmd.Flags().StringVar(&subnetCIDR, "subnet", "10.200.0.0/24", "network to carve container subnets from")
	cmd.Flags().StringVar(&rootFSPath, "rootfs", "", "where to assemble the root filesystem (default <depot>/<handle>)")
	cmd.Flags().StringVar(&hostname, "hostname", "", "hostname inside the container (default the handle)")
	cmd.Flags().StringVar(&shell, "shell", "/bin/sh", "program to exec inside the container")
	cmd.Flags().StringSliceVar(&binaries, "binaries", nil, "host executables to copy in with their libraries")
	cmd.Flags().StringVar(&memoryLimit, "memory-limit", "100M", "memory ceiling, e.g. 100M or 1G")
	cmd.Flags().Int64Var(&cpuQuota, "cpu-quota", 50, "cpu quota as a percentage of one core")

	return cmd
}
