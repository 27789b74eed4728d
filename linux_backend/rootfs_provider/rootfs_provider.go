package rootfs_provider

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"code.cloudfoundry.org/lager/v3"
)

// SkeletonDirs is the directory layout assembled under every container
// root. proc and sys stay empty until the launched process mounts over
// them.
var SkeletonDirs = []string{
	"bin",
	"sbin",
	"lib",
	"lib64",
	"usr/bin",
	"usr/lib",
	"usr/lib64",
	"proc",
	"sys",
	"dev",
	"etc",
	"tmp",
	"root",
}

// DefaultBinaries is the fixed set of executables copied into a container
// when the spec does not name its own.
var DefaultBinaries = []string{
	"/bin/sh",
	"/bin/ls",
	"/bin/cat",
	"/bin/echo",
	"/bin/ps",
	"/bin/hostname",
}

type DependencyResolver interface {
	// Resolve returns the full transitive set of shared objects the
	// executable needs, each as the absolute path it lives at on the host.
	Resolve(executablePath string) ([]string, error)
}

// RootFSProvider assembles the minimal filesystem tree a container is
// pivoted into: the skeleton directories, the requested executables, and
// every shared library they transitively depend on, all preserving their
// host-absolute paths so the dynamic loader finds them unchanged.
type RootFSProvider struct {
	resolver DependencyResolver
}

func New(resolver DependencyResolver) *RootFSProvider {
	return &RootFSProvider{resolver: resolver}
}

func (p *RootFSProvider) Provide(logger lager.Logger, rootFSPath string, binaries []string) error {
	log := logger.Session("provide-rootfs", lager.Data{"path": rootFSPath})

	for _, dir := range SkeletonDirs {
		if err := os.MkdirAll(filepath.Join(rootFSPath, dir), 0755); err != nil {
			return err
		}
	}

	copied := map[string]bool{}

	for _, binary := range binaries {
		if err := p.copyPreservingPath(rootFSPath, binary, copied); err != nil {
			log.Error("copy-binary-failed", err, lager.Data{"binary": binary})
			return err
		}

		dependencies, err := p.resolver.Resolve(binary)
		if err != nil {
			log.Error("resolve-dependencies-failed", err, lager.Data{"binary": binary})
			return err
		}

		for _, dependency := range dependencies {
			if err := p.copyPreservingPath(rootFSPath, dependency, copied); err != nil {
				log.Error("copy-dependency-failed", err, lager.Data{"dependency": dependency})
				return err
			}
		}
	}

	log.Debug("assembled", lager.Data{"binaries": len(binaries)})

	return nil
}

func (p *RootFSProvider) copyPreservingPath(rootFSPath, hostPath string, copied map[string]bool) error {
	if copied[hostPath] {
		return nil
	}

	if !filepath.IsAbs(hostPath) {
		return fmt.Errorf("not an absolute path: %s", hostPath)
	}

	dst := filepath.Join(rootFSPath, hostPath)

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	if err := copyFile(hostPath, dst); err != nil {
		return err
	}

	copied[hostPath] = true

	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}
