package process_launcher

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/moby/sys/reexec"
	"golang.org/x/sys/unix"
)

const initName = "bootstrap-init"

const oldRootDir = ".pivot-old"

func init() {
	reexec.Register(initName, initProcess)
}

// initProcess is what the reexec'd child runs: it is PID 1 of the new PID
// namespace, inside fresh mount, UTS, and IPC namespaces and the
// container's network namespace. It blocks on the sync pipe until the
// parent has admitted it to the limit-groups, then sets the hostname,
// mounts proc and sysfs under the root tree, pivots into it, and execs
// the target program.
func initProcess() {
	runtime.LockOSThread()

	if len(os.Args) < 2 {
		die(fmt.Errorf("no program to exec"))
	}

	rootFSPath := os.Getenv("BOOTSTRAP_ROOTFS")
	hostname := os.Getenv("BOOTSTRAP_HOSTNAME")

	if rootFSPath == "" {
		die(fmt.Errorf("BOOTSTRAP_ROOTFS not set"))
	}

	awaitRelease()

	if err := unix.Sethostname([]byte(hostname)); err != nil {
		die(fmt.Errorf("set hostname: %w", err))
	}

	if err := mountSpecial(rootFSPath); err != nil {
		die(fmt.Errorf("mount special filesystems: %w", err))
	}

	if err := pivotRoot(rootFSPath); err != nil {
		die(fmt.Errorf("pivot root: %w", err))
	}

	path := os.Args[1]
	args := os.Args[1:]

	env := []string{
		"PATH=/usr/sbin:/usr/bin:/sbin:/bin",
		"HOME=/root",
		"HOSTNAME=" + hostname,
		"TERM=" + os.Getenv("TERM"),
	}

	if err := unix.Exec(path, args, env); err != nil {
		die(fmt.Errorf("exec %s: %w", path, err))
	}
}

// awaitRelease blocks on fd 3 until the parent writes the release byte.
// EOF without a byte means the parent died before admitting this process;
// there is nothing sensible to do but exit.
func awaitRelease() {
	sync := os.NewFile(3, "sync")
	if sync == nil {
		die(fmt.Errorf("sync pipe missing"))
	}
	defer sync.Close()

	buf := make([]byte, 1)
	if n, _ := sync.Read(buf); n == 0 {
		die(fmt.Errorf("parent exited before release"))
	}
}

func mountSpecial(rootFSPath string) error {
	// keep mount events out of the host's table
	if err := unix.Mount("", "/", "", unix.MS_PRIVATE|unix.MS_REC, ""); err != nil {
		return fmt.Errorf("remount / private: %w", err)
	}

	mounts := []struct {
		source string
		target string
		fstype string
	}{
		{"proc", filepath.Join(rootFSPath, "proc"), "proc"},
		{"sysfs", filepath.Join(rootFSPath, "sys"), "sysfs"},
	}

	for _, m := range mounts {
		flags := uintptr(unix.MS_NOSUID | unix.MS_NODEV | unix.MS_NOEXEC)
		if err := unix.Mount(m.source, m.target, m.fstype, flags, ""); err != nil {
			return fmt.Errorf("mount %s: %w", m.fstype, err)
		}
	}

	return nil
}

func pivotRoot(rootFSPath string) error {
	// pivot_root requires the new root to be a mount point
	if err := unix.Mount(rootFSPath, rootFSPath, "", unix.MS_BIND|unix.MS_REC, ""); err != nil {
		return fmt.Errorf("bind mount new root: %w", err)
	}

	oldRoot := filepath.Join(rootFSPath, oldRootDir)
	if err := os.MkdirAll(oldRoot, 0700); err != nil {
		return err
	}

	if err := unix.PivotRoot(rootFSPath, oldRoot); err != nil {
		return fmt.Errorf("pivot_root: %w", err)
	}

	if err := os.Chdir("/"); err != nil {
		return err
	}

	if err := unix.Unmount("/"+oldRootDir, unix.MNT_DETACH); err != nil {
		return fmt.Errorf("unmount old root: %w", err)
	}

	return os.Remove("/" + oldRootDir)
}

func die(err error) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", initName, err)
	os.Exit(2)
}
