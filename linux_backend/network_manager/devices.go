package network_manager

import (
	"net"

	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
)

// NetlinkDeviceManager is the real DeviceManager, speaking rtnetlink via
// the vishvananda/netlink package.
type NetlinkDeviceManager struct{}

func NewDeviceManager() *NetlinkDeviceManager {
	return &NetlinkDeviceManager{}
}

func (d *NetlinkDeviceManager) CreateVethPair(hostIfcName, containerIfcName string) error {
	veth := &netlink.Veth{
		LinkAttrs: netlink.LinkAttrs{Name: hostIfcName},
		PeerName:  containerIfcName,
	}

	return netlink.LinkAdd(veth)
}

func (d *NetlinkDeviceManager) MoveToNamespace(ifcName, namespace string) error {
	link, err := netlink.LinkByName(ifcName)
	if err != nil {
		return err
	}

	ns, err := netns.GetFromName(namespace)
	if err != nil {
		return err
	}
	defer ns.Close()

	return netlink.LinkSetNsFd(link, int(ns))
}

func (d *NetlinkDeviceManager) AddAddress(namespace, ifcName string, ip net.IP, subnet *net.IPNet) error {
	handle, cleanup, err := handleFor(namespace)
	if err != nil {
		return err
	}
	defer cleanup()

	link, err := handle.LinkByName(ifcName)
	if err != nil {
		return err
	}

	return handle.AddrAdd(link, &netlink.Addr{
		IPNet: &net.IPNet{IP: ip, Mask: subnet.Mask},
	})
}

func (d *NetlinkDeviceManager) SetUp(namespace, ifcName string) error {
	handle, cleanup, err := handleFor(namespace)
	if err != nil {
		return err
	}
	defer cleanup()

	link, err := handle.LinkByName(ifcName)
	if err != nil {
		return err
	}

	return handle.LinkSetUp(link)
}

func (d *NetlinkDeviceManager) DeleteLink(ifcName string) error {
	link, err := netlink.LinkByName(ifcName)
	if err != nil {
		if _, notFound := err.(netlink.LinkNotFoundError); notFound {
			return nil
		}

		return err
	}

	return netlink.LinkDel(link)
}

func handleFor(namespace string) (*netlink.Handle, func(), error) {
	if namespace == "" {
		handle, err := netlink.NewHandle()
		if err != nil {
			return nil, nil, err
		}

		return handle, handle.Close, nil
	}

	ns, err := netns.GetFromName(namespace)
	if err != nil {
		return nil, nil, err
	}

	handle, err := netlink.NewHandleAt(ns)
	if err != nil {
		ns.Close()
		return nil, nil, err
	}

	return handle, func() {
		handle.Close()
		ns.Close()
	}, nil
}
