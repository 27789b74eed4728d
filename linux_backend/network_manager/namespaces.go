package network_manager

import (
	"errors"
	"os"
	"runtime"

	"github.com/vishvananda/netns"
)

// NetnsNamespaceManager manages named handles under /var/run/netns, the
// same handles `ip netns` uses.
type NetnsNamespaceManager struct{}

func NewNamespaceManager() *NetnsNamespaceManager {
	return &NetnsNamespaceManager{}
}

// Create makes the named namespace. netns.NewNamed switches the calling
// thread into the new namespace, so the thread is locked and restored.
func (m *NetnsNamespaceManager) Create(name string) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	origin, err := netns.Get()
	if err != nil {
		return err
	}
	defer origin.Close()

	handle, err := netns.NewNamed(name)
	if err != nil {
		return err
	}
	handle.Close()

	return netns.Set(origin)
}

func (m *NetnsNamespaceManager) Delete(name string) error {
	err := netns.DeleteNamed(name)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return err
}
