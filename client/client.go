package client

import (
	"code.cloudfoundry.org/bootstrap"
	"code.cloudfoundry.org/bootstrap/client/connection"
)

// Client drives a remote bootstrap server over its API socket.
type Client interface {
	Ping() error

	Create(spec bootstrap.ContainerSpec) (Container, error)
	Containers() ([]Container, error)
	Destroy(handle string) error
	Lookup(handle string) (Container, error)
}

type Container interface {
	Handle() string

	Info() (bootstrap.ContainerInfo, error)
}

type client struct {
	connection connection.Connection
}

func New(connection connection.Connection) Client {
	return &client{
		connection: connection,
	}
}

func (client *client) Ping() error {
	return client.connection.Ping()
}

func (client *client) Create(spec bootstrap.ContainerSpec) (Container, error) {
	handle, err := client.connection.Create(spec)
	if err != nil {
		return nil, err
	}

	return newContainer(handle, client.connection), nil
}

func (client *client) Containers() ([]Container, error) {
	handles, err := client.connection.List()
	if err != nil {
		return nil, err
	}

	containers := []Container{}
	for _, handle := range handles {
		containers = append(containers, newContainer(handle, client.connection))
	}

	return containers, nil
}

func (client *client) Destroy(handle string) error {
	return client.connection.Destroy(handle)
}

func (client *client) Lookup(handle string) (Container, error) {
	handles, err := client.connection.List()
	if err != nil {
		return nil, err
	}

	for _, h := range handles {
		if h == handle {
			return newContainer(handle, client.connection), nil
		}
	}

	return nil, bootstrap.ContainerNotFoundError{Handle: handle}
}
