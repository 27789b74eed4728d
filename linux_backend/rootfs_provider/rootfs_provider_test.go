package rootfs_provider_test

import (
	"os"
	"path/filepath"

	"code.cloudfoundry.org/lager/v3/lagertest"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"code.cloudfoundry.org/bootstrap/linux_backend/rootfs_provider"
)

type stubResolver struct {
	dependencies map[string][]string
	err          error
}

func (r *stubResolver) Resolve(executablePath string) ([]string, error) {
	if r.err != nil {
		return nil, r.err
	}

	return r.dependencies[executablePath], nil
}

var _ = Describe("Assembling the root filesystem tree", func() {
	var hostDir string
	var rootFSPath string
	var resolver *stubResolver
	var provider *rootfs_provider.RootFSProvider
	var logger *lagertest.TestLogger

	placeFile := func(relPath string, mode os.FileMode) string {
		hostPath := filepath.Join(hostDir, relPath)
		Expect(os.MkdirAll(filepath.Dir(hostPath), 0755)).To(Succeed())
		Expect(os.WriteFile(hostPath, []byte(relPath), mode)).To(Succeed())
		return hostPath
	}

	BeforeEach(func() {
		hostDir = GinkgoT().TempDir()
		rootFSPath = filepath.Join(GinkgoT().TempDir(), "rootfs")

		resolver = &stubResolver{dependencies: map[string][]string{}}
		provider = rootfs_provider.New(resolver)
		logger = lagertest.NewTestLogger("test")
	})

	It("creates the directory skeleton", func() {
		err := provider.Provide(logger, rootFSPath, nil)
		Expect(err).ToNot(HaveOccurred())

		for _, dir := range rootfs_provider.SkeletonDirs {
			Expect(filepath.Join(rootFSPath, dir)).To(BeADirectory())
		}
	})

	It("copies each binary preserving its absolute path and mode", func() {
		binary := placeFile("bin/sh", 0755)

		err := provider.Provide(logger, rootFSPath, []string{binary})
		Expect(err).ToNot(HaveOccurred())

		copied := filepath.Join(rootFSPath, binary)
		Expect(copied).To(BeARegularFile())

		info, err := os.Stat(copied)
		Expect(err).ToNot(HaveOccurred())
		Expect(info.Mode().Perm()).To(Equal(os.FileMode(0755)))
	})

	It("copies the binary's resolved dependencies preserving their paths", func() {
		binary := placeFile("bin/sh", 0755)
		library := placeFile("lib/x86_64-linux-gnu/libc.so.6", 0644)

		resolver.dependencies[binary] = []string{library}

		err := provider.Provide(logger, rootFSPath, []string{binary})
		Expect(err).ToNot(HaveOccurred())

		Expect(filepath.Join(rootFSPath, library)).To(BeARegularFile())
	})

	It("copies a library shared by several binaries only once", func() {
		sh := placeFile("bin/sh", 0755)
		ls := placeFile("bin/ls", 0755)
		library := placeFile("lib/libc.so.6", 0644)

		resolver.dependencies[sh] = []string{library}
		resolver.dependencies[ls] = []string{library}

		err := provider.Provide(logger, rootFSPath, []string{sh, ls})
		Expect(err).ToNot(HaveOccurred())

		Expect(filepath.Join(rootFSPath, library)).To(BeARegularFile())
	})

	Context("when a binary does not exist", func() {
		It("returns an error", func() {
			err := provider.Provide(logger, rootFSPath, []string{filepath.Join(hostDir, "bin/nope")})
			Expect(err).To(HaveOccurred())
		})
	})

	Context("when dependency resolution fails", func() {
		It("propagates the resolver's error", func() {
			binary := placeFile("bin/sh", 0755)
			resolver.err = os.ErrNotExist

			err := provider.Provide(logger, rootFSPath, []string{binary})
			Expect(err).To(MatchError(os.ErrNotExist))
		})
	})

	Context("when a binary path is not absolute", func() {
		It("returns an error", func() {
			err := provider.Provide(logger, rootFSPath, []string{"bin/sh"})
			Expect(err).To(HaveOccurred())
		})
	})
})
