package client

import (
	"code.cloudfoundry.org/bootstrap"
	"code.cloudfoundry.org/bootstrap/client/connection"
)

type container struct {
	handle string

	connection connection.Connection
}

func newContainer(handle string, connection connection.Connection) Container {
	return &container{
		handle: handle,

		connection: connection,
	}
}

func (container *container) Handle() string {
	return container.handle
}

func (container *container) Info() (bootstrap.ContainerInfo, error) {
	return container.connection.Info(container.handle)
}
