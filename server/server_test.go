package server_test

import (
	"errors"
	"net"
	"os"
	"path/filepath"

	"code.cloudfoundry.org/lager/v3/lagertest"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"code.cloudfoundry.org/bootstrap/fake_backend"
	"code.cloudfoundry.org/bootstrap/server"
)

var _ = Describe("The Bootstrap server", func() {
	var socketPath string
	var backend *fake_backend.FakeBackend

	BeforeEach(func() {
		socketPath = filepath.Join(GinkgoT().TempDir(), "bootstrap.sock")
		backend = fake_backend.New()
	})

	It("listens on the given socket path and chmods it to 0777", func() {
		bootstrapServer := server.New("unix", socketPath, backend, lagertest.NewTestLogger("test"))

		Expect(bootstrapServer.Start()).To(Succeed())
		defer bootstrapServer.Stop()

		Eventually(errorDialingUnix(socketPath)).ShouldNot(HaveOccurred())

		stat, err := os.Stat(socketPath)
		Expect(err).ToNot(HaveOccurred())
		Expect(int(stat.Mode() & 0777)).To(Equal(0777))
	})

	It("deletes the socket file if it is already there", func() {
		socket, err := os.Create(socketPath)
		Expect(err).ToNot(HaveOccurred())
		socket.WriteString("oops")
		socket.Close()

		bootstrapServer := server.New("unix", socketPath, backend, lagertest.NewTestLogger("test"))

		Expect(bootstrapServer.Start()).To(Succeed())
		defer bootstrapServer.Stop()

		Eventually(errorDialingUnix(socketPath)).ShouldNot(HaveOccurred())
	})

	It("starts the backend before accepting connections", func() {
		bootstrapServer := server.New("unix", socketPath, backend, lagertest.NewTestLogger("test"))

		Expect(bootstrapServer.Start()).To(Succeed())
		defer bootstrapServer.Stop()

		Expect(backend.Started).To(BeTrue())
	})

	Context("when the backend fails to start", func() {
		BeforeEach(func() {
			backend.StartError = errors.New("cgroup mount missing")
		})

		It("fails to start and does not listen", func() {
			bootstrapServer := server.New("unix", socketPath, backend, lagertest.NewTestLogger("test"))

			Expect(bootstrapServer.Start()).To(MatchError("cgroup mount missing"))

			_, err := os.Stat(socketPath)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("stopping", func() {
		It("stops accepting new connections and stops the backend", func() {
			bootstrapServer := server.New("unix", socketPath, backend, lagertest.NewTestLogger("test"))

			Expect(bootstrapServer.Start()).To(Succeed())
			Eventually(errorDialingUnix(socketPath)).ShouldNot(HaveOccurred())

			bootstrapServer.Stop()

			Expect(errorDialingUnix(socketPath)()).To(HaveOccurred())
			Expect(backend.Stopped).To(BeTrue())
		})

		It("can be called before starting without panicking", func() {
			bootstrapServer := server.New("unix", socketPath, backend, lagertest.NewTestLogger("test"))

			Expect(bootstrapServer.Stop).ToNot(Panic())
		})
	})
})

func errorDialingUnix(socketPath string) func() error {
	return func() error {
		conn, err := net.Dial("unix", socketPath)
		if err == nil {
			conn.Close()
		}

		return err
	}
}
