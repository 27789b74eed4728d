package fake_backend

import (
	"sync"

	"code.cloudfoundry.org/bootstrap"
)

type FakeBackend struct {
	Started    bool
	StartError error

	Stopped bool

	PingError error

	CreateResult    *FakeContainer
	CreateError     error
	DestroyError    error
	ContainersError error

	CreatedContainers   map[string]*FakeContainer
	DestroyedContainers []string

	sync.RWMutex
}

func New() *FakeBackend {
	return &FakeBackend{
		CreatedContainers: make(map[string]*FakeContainer),
	}
}

func (b *FakeBackend) Start() error {
	if b.StartError != nil {
		return b.StartError
	}

	b.Started = true

	return nil
}

func (b *FakeBackend) Stop() {
	b.Stopped = true
}

func (b *FakeBackend) Ping() error {
	return b.PingError
}

func (b *FakeBackend) Create(spec bootstrap.ContainerSpec) (bootstrap.Container, error) {
	if b.CreateError != nil {
		return nil, b.CreateError
	}

	var container *FakeContainer

	if b.CreateResult != nil {
		container = b.CreateResult
	} else {
		container = NewFakeContainer(spec)
	}

	b.Lock()
	defer b.Unlock()

	b.CreatedContainers[container.Handle()] = container

	return container, nil
}

func (b *FakeBackend) Destroy(handle string) error {
	if b.DestroyError != nil {
		return b.DestroyError
	}

	b.Lock()
	defer b.Unlock()

	delete(b.CreatedContainers, handle)

	b.DestroyedContainers = append(b.DestroyedContainers, handle)

	return nil
}

func (b *FakeBackend) Containers() ([]bootstrap.Container, error) {
	if b.ContainersError != nil {
		return nil, b.ContainersError
	}

	b.RLock()
	defer b.RUnlock()

	containers := []bootstrap.Container{}
	for _, c := range b.CreatedContainers {
		containers = append(containers, c)
	}

	return containers, nil
}

func (b *FakeBackend) Lookup(handle string) (bootstrap.Container, error) {
	b.RLock()
	defer b.RUnlock()

	container, found := b.CreatedContainers[handle]
	if !found {
		return nil, bootstrap.ContainerNotFoundError{Handle: handle}
	}

	return container, nil
}
