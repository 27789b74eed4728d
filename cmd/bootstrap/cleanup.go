package main

import (
	"github.com/spf13/cobra"

	"code.cloudfoundry.org/lager/v3"
)

func cleanupCommand() *cobra.Command {
	var (
		handle     string
		depotPath  string
		subnetCIDR string
		rootFSPath string
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "tear down whatever a previous run left behind",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger("bootstrap")

			backend, err := newBackend(logger, depotPath, subnetCIDR)
			if err != nil {
				return err
			}

			warnings := backend.Cleanup(handle, rootFSPath)
			for _, warning := range warnings {
				logger.Info("teardown-warning", lager.Data{
					"step":    warning.Step,
					"message": warning.Message,
				})
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&handle, "handle", "demo", "container handle to clean up after")
	cmd.Flags().StringVar(&depotPath, "depot", "/var/bootstrap/depot", "directory for assembled root filesystems")
	cmd.Flags().StringVar(&subnetCIDR, "subnet", "10.200.0.0/24", "network container subnets were carved from")
	cmd.Flags().StringVar(&rootFSPath, "rootfs", "", "root filesystem path if it was overridden at run time")

	return cmd
}
