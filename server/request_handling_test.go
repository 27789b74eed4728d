package server_test

import (
	"errors"
	"path/filepath"

	"code.cloudfoundry.org/lager/v3/lagertest"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"code.cloudfoundry.org/bootstrap"
	"code.cloudfoundry.org/bootstrap/client"
	"code.cloudfoundry.org/bootstrap/client/connection"
	"code.cloudfoundry.org/bootstrap/fake_backend"
	"code.cloudfoundry.org/bootstrap/server"
)

var _ = Describe("Request handling", func() {
	var backend *fake_backend.FakeBackend
	var bootstrapServer *server.BootstrapServer
	var bootstrapClient client.Client

	BeforeEach(func() {
		socketPath := filepath.Join(GinkgoT().TempDir(), "api.sock")

		backend = fake_backend.New()

		bootstrapServer = server.New("unix", socketPath, backend, lagertest.NewTestLogger("test"))
		Expect(bootstrapServer.Start()).To(Succeed())

		bootstrapClient = client.New(connection.New("unix", socketPath))
		Eventually(bootstrapClient.Ping).ShouldNot(HaveOccurred())
	})

	AfterEach(func() {
		bootstrapServer.Stop()
	})

	Describe("pinging", func() {
		It("succeeds when the backend is healthy", func() {
			Expect(bootstrapClient.Ping()).To(Succeed())
		})

		It("fails when the backend is not", func() {
			backend.PingError = errors.New("cgroupfs gone")

			Expect(bootstrapClient.Ping()).To(MatchError(ContainSubstring("cgroupfs gone")))
		})
	})

	Describe("creating a container", func() {
		It("passes the spec through to the backend and returns its handle", func() {
			container, err := bootstrapClient.Create(bootstrap.ContainerSpec{
				Handle:   "demo",
				Hostname: "demo-host",
				Binaries: []string{"/bin/ls"},
				Limits: bootstrap.Limits{
					MemoryLimitInBytes: 64 * 1024 * 1024,
					CPUQuotaPercent:    25,
				},
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(container.Handle()).To(Equal("demo"))

			created := backend.CreatedContainers["demo"]
			Expect(created).ToNot(BeNil())
			Expect(created.Spec.Hostname).To(Equal("demo-host"))
			Expect(created.Spec.Binaries).To(Equal([]string{"/bin/ls"}))
			Expect(created.Spec.Limits.MemoryLimitInBytes).To(Equal(int64(64 * 1024 * 1024)))
			Expect(created.Spec.Limits.CPUQuotaPercent).To(Equal(int64(25)))
		})

		Context("when the handle is already taken", func() {
			It("round-trips the typed error", func() {
				backend.CreateError = bootstrap.HandleTakenError{Handle: "demo"}

				_, err := bootstrapClient.Create(bootstrap.ContainerSpec{Handle: "demo"})
				Expect(err).To(Equal(bootstrap.HandleTakenError{Handle: "demo"}))
			})
		})
	})

	Describe("listing containers", func() {
		It("returns the handles of everything the backend tracks", func() {
			_, err := bootstrapClient.Create(bootstrap.ContainerSpec{Handle: "one"})
			Expect(err).ToNot(HaveOccurred())
			_, err = bootstrapClient.Create(bootstrap.ContainerSpec{Handle: "two"})
			Expect(err).ToNot(HaveOccurred())

			containers, err := bootstrapClient.Containers()
			Expect(err).ToNot(HaveOccurred())

			handles := []string{}
			for _, container := range containers {
				handles = append(handles, container.Handle())
			}

			Expect(handles).To(ConsistOf("one", "two"))
		})
	})

	Describe("getting info", func() {
		It("returns what the backend reports", func() {
			container, err := bootstrapClient.Create(bootstrap.ContainerSpec{Handle: "demo"})
			Expect(err).ToNot(HaveOccurred())

			backend.CreatedContainers["demo"].ReportedInfo = bootstrap.ContainerInfo{
				State:              bootstrap.StateActive,
				HostInterface:      "h-demo",
				ContainerInterface: "c-demo",
				HostIP:             "10.200.0.1",
				ContainerIP:        "10.200.0.2",
			}

			info, err := container.Info()
			Expect(err).ToNot(HaveOccurred())
			Expect(info.HostInterface).To(Equal("h-demo"))
			Expect(info.ContainerIP).To(Equal("10.200.0.2"))
		})

		Context("when the handle is unknown", func() {
			It("round-trips the not-found error", func() {
				_, err := bootstrapClient.Create(bootstrap.ContainerSpec{Handle: "demo"})
				Expect(err).ToNot(HaveOccurred())

				_, err = bootstrapClient.Lookup("missing")
				Expect(err).To(Equal(bootstrap.ContainerNotFoundError{Handle: "missing"}))
			})
		})
	})

	Describe("destroying", func() {
		It("tells the backend to destroy the handle", func() {
			_, err := bootstrapClient.Create(bootstrap.ContainerSpec{Handle: "demo"})
			Expect(err).ToNot(HaveOccurred())

			Expect(bootstrapClient.Destroy("demo")).To(Succeed())

			Expect(backend.DestroyedContainers).To(Equal([]string{"demo"}))
		})
	})
})
