package cgroups_manager_test

import (
	"os"
	"path"

	"github.com/hashicorp/go-multierror"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"code.cloudfoundry.org/bootstrap"
	"code.cloudfoundry.org/bootstrap/linux_backend/cgroups_manager"
)

var _ = Describe("Container cgroups", func() {
	var cgroupsPath string
	var cgroupsManager *cgroups_manager.CgroupsManager

	limits := bootstrap.Limits{
		MemoryLimitInBytes: 100 * 1024 * 1024,
		CPUQuotaPercent:    50,
	}

	BeforeEach(func() {
		cgroupsPath = GinkgoT().TempDir()
		cgroupsManager = cgroups_manager.New(cgroupsPath)
	})

	Describe("creating the limit-groups", func() {
		It("makes a group per subsystem and writes the ceilings before admission", func() {
			err := cgroupsManager.Create("some-handle", limits)
			Expect(err).ToNot(HaveOccurred())

			memoryLimit, err := os.ReadFile(path.Join(cgroupsPath, "memory", "bootstrap-some-handle", "memory.limit_in_bytes"))
			Expect(err).ToNot(HaveOccurred())
			Expect(string(memoryLimit)).To(Equal("104857600"))

			period, err := os.ReadFile(path.Join(cgroupsPath, "cpu", "bootstrap-some-handle", "cpu.cfs_period_us"))
			Expect(err).ToNot(HaveOccurred())
			Expect(string(period)).To(Equal("100000"))

			quota, err := os.ReadFile(path.Join(cgroupsPath, "cpu", "bootstrap-some-handle", "cpu.cfs_quota_us"))
			Expect(err).ToNot(HaveOccurred())
			Expect(string(quota)).To(Equal("50000"))
		})

		Context("when the cgroups mount point is not writable", func() {
			BeforeEach(func() {
				Expect(os.RemoveAll(cgroupsPath)).To(Succeed())
				Expect(os.WriteFile(cgroupsPath, []byte{}, 0644)).To(Succeed())
			})

			It("returns an error", func() {
				err := cgroupsManager.Create("some-handle", limits)
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("admitting a process", func() {
		It("writes the pid into each subsystem's procs file", func() {
			err := cgroupsManager.Create("some-handle", limits)
			Expect(err).ToNot(HaveOccurred())

			err = cgroupsManager.Add("some-handle", 42)
			Expect(err).ToNot(HaveOccurred())

			for _, subsystem := range cgroups_manager.Subsystems {
				procs, err := os.ReadFile(path.Join(cgroupsPath, subsystem, "bootstrap-some-handle", "cgroup.procs"))
				Expect(err).ToNot(HaveOccurred())
				Expect(string(procs)).To(Equal("42"))
			}
		})
	})

	Describe("removing the limit-groups", func() {
		It("deletes the group directories", func() {
			err := cgroupsManager.Create("some-handle", limits)
			Expect(err).ToNot(HaveOccurred())

			err = cgroupsManager.Remove("some-handle")
			Expect(err).ToNot(HaveOccurred())

			Expect(path.Join(cgroupsPath, "memory", "bootstrap-some-handle")).ToNot(BeADirectory())
			Expect(path.Join(cgroupsPath, "cpu", "bootstrap-some-handle")).ToNot(BeADirectory())
		})

		It("is idempotent", func() {
			err := cgroupsManager.Create("some-handle", limits)
			Expect(err).ToNot(HaveOccurred())

			Expect(cgroupsManager.Remove("some-handle")).To(Succeed())
			Expect(cgroupsManager.Remove("some-handle")).To(Succeed())
		})

		Context("when a group still has member processes", func() {
			It("reports the busy group but removes the others", func() {
				err := cgroupsManager.Create("some-handle", limits)
				Expect(err).ToNot(HaveOccurred())

				err = os.WriteFile(
					path.Join(cgroupsPath, "memory", "bootstrap-some-handle", "cgroup.procs"),
					[]byte("42\n43\n"),
					0644,
				)
				Expect(err).ToNot(HaveOccurred())

				err = cgroupsManager.Remove("some-handle")
				Expect(err).To(HaveOccurred())

				merr, ok := err.(*multierror.Error)
				Expect(ok).To(BeTrue())
				Expect(merr.Errors).To(HaveLen(1))

				busy, ok := merr.Errors[0].(cgroups_manager.GroupBusyError)
				Expect(ok).To(BeTrue())
				Expect(busy.Subsystem).To(Equal("memory"))
				Expect(busy.PIDs).To(Equal([]int{42, 43}))

				Expect(path.Join(cgroupsPath, "cpu", "bootstrap-some-handle")).ToNot(BeADirectory())
			})
		})
	})

	Describe("setting and getting", func() {
		It("round-trips a value under the subsystem", func() {
			err := cgroupsManager.Create("some-handle", limits)
			Expect(err).ToNot(HaveOccurred())

			err = cgroupsManager.Set("memory", "some-handle", "memory.limit_in_bytes", "42")
			Expect(err).ToNot(HaveOccurred())

			value, err := cgroupsManager.Get("memory", "some-handle", "memory.limit_in_bytes")
			Expect(err).ToNot(HaveOccurred())
			Expect(value).To(Equal("42"))
		})
	})

	Describe("retrieving a subsystem path", func() {
		It("returns <path>/<subsystem>/bootstrap-<handle>", func() {
			Expect(cgroupsManager.SubsystemPath("memory", "some-handle")).To(Equal(
				path.Join(cgroupsPath, "memory", "bootstrap-some-handle"),
			))
		})
	})
})
