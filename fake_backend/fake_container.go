package fake_backend

import (
	"path/filepath"

	"code.cloudfoundry.org/bootstrap"
)

type FakeContainer struct {
	Spec bootstrap.ContainerSpec

	WaitStatus int
	WaitError  error
	WaitedFor  bool

	InfoError    error
	ReportedInfo bootstrap.ContainerInfo
}

func NewFakeContainer(spec bootstrap.ContainerSpec) *FakeContainer {
	return &FakeContainer{
		Spec: spec,

		ReportedInfo: bootstrap.ContainerInfo{
			State: bootstrap.StateActive,
		},
	}
}

func (c *FakeContainer) Handle() string {
	return c.Spec.Handle
}

func (c *FakeContainer) RootFSPath() string {
	if c.Spec.RootFSPath != "" {
		return c.Spec.RootFSPath
	}

	return filepath.Join("/var/bootstrap/depot", c.Spec.Handle)
}

func (c *FakeContainer) Wait() (int, error) {
	c.WaitedFor = true

	if c.WaitError != nil {
		return 0, c.WaitError
	}

	return c.WaitStatus, nil
}

func (c *FakeContainer) Info() (bootstrap.ContainerInfo, error) {
	if c.InfoError != nil {
		return bootstrap.ContainerInfo{}, c.InfoError
	}

	return c.ReportedInfo, nil
}
