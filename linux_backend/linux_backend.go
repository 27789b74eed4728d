package linux_backend

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"code.cloudfoundry.org/lager/v3"
	"github.com/hashicorp/go-multierror"
	"github.com/moby/sys/mount"
	"github.com/moby/sys/mountinfo"

	"code.cloudfoundry.org/bootstrap"
	"code.cloudfoundry.org/bootstrap/linux_backend/network_manager"
	"code.cloudfoundry.org/bootstrap/linux_backend/process_launcher"
	"code.cloudfoundry.org/bootstrap/linux_backend/rootfs_provider"
)

var ErrHandleRequired = errors.New("container spec must specify a handle")

type Config struct {
	// DepotPath is where root filesystem trees are assembled when the spec
	// does not name a path.
	DepotPath string

	DefaultLimits bootstrap.Limits
}

type RootFSProvider interface {
	Provide(logger lager.Logger, rootFSPath string, binaries []string) error
}

type CgroupsManager interface {
	Create(handle string, limits bootstrap.Limits) error
	Add(handle string, pid int) error
	Remove(handle string) error
}

type NetworkManager interface {
	Attach(logger lager.Logger, handle string) (*network_manager.Network, error)
	Detach(logger lager.Logger, handle string) error
}

type ProcessLauncher interface {
	Launch(logger lager.Logger, spec process_launcher.LaunchSpec) (process_launcher.Process, error)
}

// LinuxBackend drives the ordered provisioning sequence for each
// container and owns the teardown path. Filesystem assembly and network
// wiring are independent and run concurrently; everything else is strictly
// ordered.
type LinuxBackend struct {
	logger lager.Logger

	config Config

	rootfsProvider RootFSProvider
	cgroupsManager CgroupsManager
	networkManager NetworkManager
	launcher       ProcessLauncher

	containers  map[string]*LinuxContainer
	pending     map[string]bool
	containersL sync.RWMutex
}

func New(
	logger lager.Logger,
	config Config,
	rootfsProvider RootFSProvider,
	cgroupsManager CgroupsManager,
	networkManager NetworkManager,
	launcher ProcessLauncher,
) *LinuxBackend {
	return &LinuxBackend{
		logger: logger.Session("linux-backend"),

		config: config,

		rootfsProvider: rootfsProvider,
		cgroupsManager: cgroupsManager,
		networkManager: networkManager,
		launcher:       launcher,

		containers: make(map[string]*LinuxContainer),
		pending:    make(map[string]bool),
	}
}

func (b *LinuxBackend) Start() error {
	return os.MkdirAll(b.config.DepotPath, 0755)
}

// Stop signals every active container and waits for it to exit.
func (b *LinuxBackend) Stop() {
	b.containersL.RLock()
	containers := make([]*LinuxContainer, 0, len(b.containers))
	for _, container := range b.containers {
		containers = append(containers, container)
	}
	b.containersL.RUnlock()

	for _, container := range containers {
		container.process.Signal(syscall.SIGKILL)
		container.Wait()
	}
}

func (b *LinuxBackend) Ping() error {
	return nil
}

func (b *LinuxBackend) Create(spec bootstrap.ContainerSpec) (bootstrap.Container, error) {
	if spec.Handle == "" {
		return nil, ErrHandleRequired
	}

	spec = b.withDefaults(spec)

	log := b.logger.Session("create", lager.Data{"handle": spec.Handle})

	if err := b.reserve(spec.Handle); err != nil {
		return nil, err
	}
	defer b.unreserve(spec.Handle)

	// network wiring is independent of the filesystem and limit-group
	// steps, but must be done before launch
	type attachResult struct {
		network *network_manager.Network
		err     error
	}

	netCh := make(chan attachResult, 1)
	go func() {
		network, err := b.networkManager.Attach(log, spec.Handle)
		netCh <- attachResult{network: network, err: err}
	}()

	abort := func(err error) (bootstrap.Container, error) {
		<-netCh

		log.Error("create-failed", err)
		b.cleanup(log, spec.Handle, spec.RootFSPath)

		return nil, err
	}

	if err := b.rootfsProvider.Provide(log, spec.RootFSPath, spec.Binaries); err != nil {
		return abort(err)
	}

	if err := b.cgroupsManager.Create(spec.Handle, spec.Limits); err != nil {
		return abort(bootstrap.NewResourceCreationError("limit-group", err))
	}

	attached := <-netCh
	if attached.err != nil {
		log.Error("create-failed", attached.err)
		b.cleanup(log, spec.Handle, spec.RootFSPath)
		return nil, attached.err
	}

	process, err := b.launcher.Launch(log, process_launcher.LaunchSpec{
		Handle:     spec.Handle,
		RootFSPath: spec.RootFSPath,
		Hostname:   spec.Hostname,

		Path: spec.Shell,

		NetworkNamespace: spec.Handle,

		Admit: func(pid int) error {
			return b.cgroupsManager.Add(spec.Handle, pid)
		},

		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})
	if err != nil {
		log.Error("create-failed", err)
		b.cleanup(log, spec.Handle, spec.RootFSPath)
		return nil, err
	}

	container := NewLinuxContainer(spec, attached.network, process)

	b.containersL.Lock()
	b.containers[spec.Handle] = container
	b.containersL.Unlock()

	log.Info("created", lager.Data{"pid": process.Pid()})

	return container, nil
}

// Destroy reverses everything derived from the handle. It never fails on
// resources that are already gone, so it is safe for handles this backend
// has never seen.
func (b *LinuxBackend) Destroy(handle string) error {
	log := b.logger.Session("destroy", lager.Data{"handle": handle})

	rootFSPath := filepath.Join(b.config.DepotPath, handle)

	b.containersL.Lock()
	if container, found := b.containers[handle]; found {
		rootFSPath = container.RootFSPath()
		delete(b.containers, handle)
	}
	b.containersL.Unlock()

	warnings := b.cleanup(log, handle, rootFSPath)
	for _, warning := range warnings {
		log.Info("teardown-warning", lager.Data{"step": warning.Step, "message": warning.Message})
	}

	log.Info("destroyed")

	return nil
}

func (b *LinuxBackend) Containers() ([]bootstrap.Container, error) {
	b.containersL.RLock()
	defer b.containersL.RUnlock()

	containers := make([]bootstrap.Container, 0, len(b.containers))
	for _, container := range b.containers {
		containers = append(containers, container)
	}

	return containers, nil
}

func (b *LinuxBackend) Lookup(handle string) (bootstrap.Container, error) {
	b.containersL.RLock()
	defer b.containersL.RUnlock()

	container, found := b.containers[handle]
	if !found {
		return nil, bootstrap.ContainerNotFoundError{Handle: handle}
	}

	return container, nil
}

// Cleanup is the standalone teardown path: unmount, remove limit-groups,
// detach the network, delete the root tree. Every step tolerates the
// resource not existing; problems are reported as warnings and never stop
// the remaining steps.
func (b *LinuxBackend) Cleanup(handle, rootFSPath string) []bootstrap.TeardownWarning {
	log := b.logger.Session("cleanup", lager.Data{"handle": handle})

	if rootFSPath == "" {
		rootFSPath = filepath.Join(b.config.DepotPath, handle)
	}

	b.containersL.Lock()
	delete(b.containers, handle)
	b.containersL.Unlock()

	return b.cleanup(log, handle, rootFSPath)
}

func (b *LinuxBackend) cleanup(log lager.Logger, handle, rootFSPath string) []bootstrap.TeardownWarning {
	var warnings []bootstrap.TeardownWarning

	// unmount strictly before deleting the tree: removing a mount point
	// that is still mounted reaches through to the host view
	for _, dir := range []string{"proc", "sys"} {
		target := filepath.Join(rootFSPath, dir)

		mounted, err := mountinfo.Mounted(target)
		if err != nil {
			if !os.IsNotExist(err) {
				warnings = append(warnings, bootstrap.NewTeardownWarning("unmount "+dir, err))
			}
			continue
		}

		if !mounted {
			continue
		}

		if err := mount.Unmount(target); err != nil {
			warnings = append(warnings, bootstrap.NewTeardownWarning("unmount "+dir, err))
		}
	}

	if err := b.cgroupsManager.Remove(handle); err != nil {
		if merr, ok := err.(*multierror.Error); ok {
			for _, stepErr := range merr.Errors {
				warnings = append(warnings, bootstrap.NewTeardownWarning("remove limit-group", stepErr))
			}
		} else {
			warnings = append(warnings, bootstrap.NewTeardownWarning("remove limit-group", err))
		}
	}

	if err := b.networkManager.Detach(log, handle); err != nil {
		if merr, ok := err.(*multierror.Error); ok {
			for _, stepErr := range merr.Errors {
				warnings = append(warnings, bootstrap.NewTeardownWarning("detach network", stepErr))
			}
		} else {
			warnings = append(warnings, bootstrap.NewTeardownWarning("detach network", err))
		}
	}

	if err := os.RemoveAll(rootFSPath); err != nil {
		warnings = append(warnings, bootstrap.NewTeardownWarning("remove rootfs", err))
	}

	return warnings
}

func (b *LinuxBackend) withDefaults(spec bootstrap.ContainerSpec) bootstrap.ContainerSpec {
	if spec.RootFSPath == "" {
		spec.RootFSPath = filepath.Join(b.config.DepotPath, spec.Handle)
	}

	if spec.Hostname == "" {
		spec.Hostname = spec.Handle
	}

	if spec.Shell == "" {
		spec.Shell = "/bin/sh"
	}

	if len(spec.Binaries) == 0 {
		spec.Binaries = rootfs_provider.DefaultBinaries
	}

	if spec.Limits.MemoryLimitInBytes == 0 {
		spec.Limits.MemoryLimitInBytes = b.config.DefaultLimits.MemoryLimitInBytes
	}

	if spec.Limits.CPUQuotaPercent == 0 {
		spec.Limits.CPUQuotaPercent = b.config.DefaultLimits.CPUQuotaPercent
	}

	return spec
}

func (b *LinuxBackend) reserve(handle string) error {
	b.containersL.Lock()
	defer b.containersL.Unlock()

	if b.pending[handle] {
		return bootstrap.HandleTakenError{Handle: handle}
	}

	if _, found := b.containers[handle]; found {
		return bootstrap.HandleTakenError{Handle: handle}
	}

	b.pending[handle] = true

	return nil
}

func (b *LinuxBackend) unreserve(handle string) {
	b.containersL.Lock()
	defer b.containersL.Unlock()

	delete(b.pending, handle)
}
