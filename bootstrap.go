package bootstrap

// Backend provisions, tracks, and tears down bootstrapped containers.
type Backend interface {
	// Start readies the backend (depot directories, subnet pool). It must be
	// called before Create.
	Start() error

	// Stop signals every active container and waits for it to exit. Teardown
	// of each container still happens through Destroy.
	Stop()

	Ping() error

	// Create runs the ordered provisioning sequence for the given spec and
	// launches the container's shell. The returned Container is already
	// running; Wait blocks until its process tree exits.
	//
	// Any provisioning failure tears down everything created so far before
	// returning.
	Create(ContainerSpec) (Container, error)

	// Destroy reverses every resource derived from the handle: mounts,
	// limit-groups, network namespace and link, and the root filesystem
	// tree. It is idempotent and best-effort; problems during teardown are
	// reported as TeardownWarnings, not errors.
	Destroy(handle string) error

	Containers() ([]Container, error)
	Lookup(handle string) (Container, error)
}

type Container interface {
	Handle() string

	RootFSPath() string

	// Wait blocks until the container's process tree terminates and returns
	// its exit status.
	Wait() (int, error)

	Info() (ContainerInfo, error)
}

// ContainerSpec is the configuration surface for a single container. Only
// Handle is required; everything else has a default.
type ContainerSpec struct {
	// Handle names the container and keys every derived resource name:
	// the root filesystem directory, the limit-group directories, the
	// network namespace, and the interface pair.
	Handle string `json:"handle"`

	// RootFSPath is where the minimal filesystem tree is assembled.
	// Defaults to <depot>/<handle>.
	RootFSPath string `json:"rootfs_path,omitempty"`

	// Hostname inside the new UTS namespace. Defaults to Handle.
	Hostname string `json:"hostname,omitempty"`

	// Shell is the program exec'd inside the container. Defaults to /bin/sh.
	Shell string `json:"shell,omitempty"`

	// Binaries are host executables copied into the root filesystem tree
	// together with their transitive shared-library dependencies.
	Binaries []string `json:"binaries,omitempty"`

	Limits Limits `json:"limits"`
}

type Limits struct {
	// MemoryLimitInBytes caps the memory limit-group. 0 means the backend
	// default.
	MemoryLimitInBytes int64 `json:"memory_limit_in_bytes,omitempty"`

	// CPUQuotaPercent (0-100] is translated to a cfs quota/period pair.
	// 0 means the backend default.
	CPUQuotaPercent int64 `json:"cpu_quota_percent,omitempty"`
}

type ContainerInfo struct {
	State string `json:"state"`

	HostInterface      string `json:"host_interface"`
	ContainerInterface string `json:"container_interface"`
	HostIP             string `json:"host_ip"`
	ContainerIP        string `json:"container_ip"`

	MemoryLimitInBytes int64 `json:"memory_limit_in_bytes"`
	CPUQuotaPercent    int64 `json:"cpu_quota_percent"`
}

const (
	StateActive = "active"
	StateExited = "exited"
)
