package linux_backend

import (
	"os"
	"sync"

	"code.cloudfoundry.org/bootstrap"
	"code.cloudfoundry.org/bootstrap/linux_backend/network_manager"
	"code.cloudfoundry.org/bootstrap/linux_backend/process_launcher"
)

type LinuxContainer struct {
	spec bootstrap.ContainerSpec

	network *network_manager.Network
	process process_launcher.Process

	state  string
	stateL sync.Mutex
}

func NewLinuxContainer(
	spec bootstrap.ContainerSpec,
	network *network_manager.Network,
	process process_launcher.Process,
) *LinuxContainer {
	return &LinuxContainer{
		spec: spec,

		network: network,
		process: process,

		state: bootstrap.StateActive,
	}
}

func (c *LinuxContainer) Handle() string {
	return c.spec.Handle
}

func (c *LinuxContainer) RootFSPath() string {
	return c.spec.RootFSPath
}

// Signal forwards a signal to the container's pid 1.
func (c *LinuxContainer) Signal(signal os.Signal) error {
	return c.process.Signal(signal)
}

func (c *LinuxContainer) Wait() (int, error) {
	status, err := c.process.Wait()

	c.stateL.Lock()
	c.state = bootstrap.StateExited
	c.stateL.Unlock()

	return status, err
}

func (c *LinuxContainer) Info() (bootstrap.ContainerInfo, error) {
	c.stateL.Lock()
	state := c.state
	c.stateL.Unlock()

	return bootstrap.ContainerInfo{
		State: state,

		HostInterface:      c.network.HostInterface,
		ContainerInterface: c.network.ContainerInterface,
		HostIP:             c.network.HostIP.String(),
		ContainerIP:        c.network.ContainerIP.String(),

		MemoryLimitInBytes: c.spec.Limits.MemoryLimitInBytes,
		CPUQuotaPercent:    c.spec.Limits.CPUQuotaPercent,
	}, nil
}
