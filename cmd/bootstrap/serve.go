package main

import (
	"os"
	"os/signal"
	"syscall"

	"code.cloudfoundry.org/lager/v3"
	"github.com/spf13/cobra"

	"code.cloudfoundry.org/bootstrap/server"
)

func serveCommand() *cobra.Command {
	var (
		socketPath string
		depotPath  string
		subnetCIDR string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "expose the backend over an API socket",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger("bootstrap-server")

			backend, err := newBackend(logger, depotPath, subnetCIDR)
			if err != nil {
				return err
			}

			bootstrapServer := server.New("unix", socketPath, backend, logger)

			if err := bootstrapServer.Start(); err != nil {
				return err
			}

			logger.Info("listening", lager.Data{"socket": socketPath})

			signals := make(chan os.Signal, 1)
			signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
			<-signals

			bootstrapServer.Stop()

			return nil
		},
	}

	cmd.Flags().StringVar(&socketPath, "socket", "/tmp/bootstrap.sock", "where to put the API .sock file")
	cmd.Flags().StringVar(&depotPath, "depot", "/var/bootstrap/depot", "directory for assembled root filesystems")
	cmd.Flags().StringVar(&subnetCIDR, "subnet", "10.200.0.0/24", "network to carve container subnets from")

	return cmd
}
