package network_manager

import (
	"fmt"
	"net"
	"sync"

	"code.cloudfoundry.org/lager/v3"
	"github.com/hashicorp/go-multierror"

	"code.cloudfoundry.org/bootstrap"
	"code.cloudfoundry.org/bootstrap/linux_backend/network_manager/subnet_pool"
)

// DeviceManager drives the virtual link plumbing. The namespace argument
// names a network namespace handle; empty string means the host namespace.
type DeviceManager interface {
	CreateVethPair(hostIfcName, containerIfcName string) error
	MoveToNamespace(ifcName, namespace string) error
	AddAddress(namespace, ifcName string, ip net.IP, subnet *net.IPNet) error
	SetUp(namespace, ifcName string) error

	// DeleteLink removes the named link; a link that does not exist is not
	// an error.
	DeleteLink(ifcName string) error
}

// NamespaceManager manages named network namespace handles.
type NamespaceManager interface {
	Create(name string) error

	// Delete removes the named handle; an absent handle is not an error.
	// Deleting the namespace tears down any interfaces inside it.
	Delete(name string) error
}

// Network describes an attached container's point-to-point link.
type Network struct {
	HostInterface      string
	ContainerInterface string

	HostIP      net.IP
	ContainerIP net.IP

	Subnet *net.IPNet
}

// NetworkManager wires one veth pair per container: one end stays on the
// host, the other is moved into a namespace named after the handle.
type NetworkManager struct {
	devices    DeviceManager
	namespaces NamespaceManager
	pool       subnet_pool.SubnetPool

	assigned  map[string]*subnet_pool.Subnet
	assignedL sync.Mutex
}

func New(devices DeviceManager, namespaces NamespaceManager, pool subnet_pool.SubnetPool) *NetworkManager {
	return &NetworkManager{
		devices:    devices,
		namespaces: namespaces,
		pool:       pool,

		assigned: make(map[string]*subnet_pool.Subnet),
	}
}

func (m *NetworkManager) Attach(logger lager.Logger, handle string) (*Network, error) {
	log := logger.Session("attach-network", lager.Data{"handle": handle})

	subnet, err := m.pool.Acquire()
	if err != nil {
		return nil, bootstrap.NewResourceCreationError("subnet", err)
	}

	m.assignedL.Lock()
	m.assigned[handle] = subnet
	m.assignedL.Unlock()

	hostIfc := HostInterfaceName(handle)
	containerIfc := ContainerInterfaceName(handle)

	steps := []struct {
		name string
		run  func() error
	}{
		{"namespace", func() error { return m.namespaces.Create(handle) }},
		{"veth-pair", func() error { return m.devices.CreateVethPair(hostIfc, containerIfc) }},
		{"move-link", func() error { return m.devices.MoveToNamespace(containerIfc, handle) }},
		{"host-address", func() error { return m.devices.AddAddress("", hostIfc, subnet.HostIP(), subnet.IPNet()) }},
		{"host-up", func() error { return m.devices.SetUp("", hostIfc) }},
		{"container-address", func() error {
			return m.devices.AddAddress(handle, containerIfc, subnet.ContainerIP(), subnet.IPNet())
		}},
		{"container-up", func() error { return m.devices.SetUp(handle, containerIfc) }},
		{"loopback-up", func() error { return m.devices.SetUp(handle, "lo") }},
	}

	for _, step := range steps {
		if err := step.run(); err != nil {
			log.Error(step.name+"-failed", err)
			m.Detach(logger, handle)
			return nil, bootstrap.NewResourceCreationError("network link", fmt.Errorf("%s: %w", step.name, err))
		}
	}

	log.Debug("attached", lager.Data{
		"host-ip":      subnet.HostIP().String(),
		"container-ip": subnet.ContainerIP().String(),
	})

	return &Network{
		HostInterface:      hostIfc,
		ContainerInterface: containerIfc,

		HostIP:      subnet.HostIP(),
		ContainerIP: subnet.ContainerIP(),

		Subnet: subnet.IPNet(),
	}, nil
}

// Detach tears the link down. Deleting the namespace destroys the
// container end implicitly; the host end is deleted explicitly in case the
// pair never made it into the namespace. Teardown is best-effort: a failed
// step is reported but never stops the remaining steps, and the subnet
// always goes back to the pool.
func (m *NetworkManager) Detach(logger lager.Logger, handle string) error {
	log := logger.Session("detach-network", lager.Data{"handle": handle})

	var result *multierror.Error

	if err := m.devices.DeleteLink(HostInterfaceName(handle)); err != nil {
		log.Error("delete-link-failed", err)
		result = multierror.Append(result, err)
	}

	if err := m.namespaces.Delete(handle); err != nil {
		log.Error("delete-namespace-failed", err)
		result = multierror.Append(result, err)
	}

	m.assignedL.Lock()
	subnet, assigned := m.assigned[handle]
	delete(m.assigned, handle)
	m.assignedL.Unlock()

	if assigned {
		m.pool.Release(subnet)
	}

	return result.ErrorOrNil()
}

// Interface names are capped at IFNAMSIZ-1 (15) characters, so long
// handles are truncated.
const maxHandleInIfcName = 13

func HostInterfaceName(handle string) string {
	return "h-" + truncate(handle)
}

func ContainerInterfaceName(handle string) string {
	return "c-" + truncate(handle)
}

func truncate(handle string) string {
	if len(handle) > maxHandleInIfcName {
		return handle[:maxHandleInIfcName]
	}

	return handle
}
