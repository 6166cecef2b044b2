package dao

import (
	"fmt"
	"sync"

	"rincewind/server/errors"
)

//DaoFactory builds a concrete Dao for a registered entity type name.
type DaoFactory func() (*Dao, error)

//Registry maps entity type names to Dao factories. A factory runs at most
//once; the produced instance is memoized. This replaces by-name dynamic
//instantiation with an explicit, reflection-free registry.
type Registry struct {
	mutex     sync.Mutex
	factories map[string]DaoFactory
	instances map[string]*Dao
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]DaoFactory),
		instances: make(map[string]*Dao),
	}
}

func (registry *Registry) Register(name string, factory DaoFactory) {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	registry.factories[name] = factory
}

//Names lists every registered entity type name.
func (registry *Registry) Names() []string {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	names := make([]string, 0, len(registry.factories))
	for name := range registry.factories {
		names = append(names, name)
	}
	return names
}

func (registry *Registry) Get(name string) (*Dao, error) {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	if instance, ok := registry.instances[name]; ok {
		return instance, nil
	}
	factory, ok := registry.factories[name]
	if !ok {
		return nil, errors.NewFatalError(
			ErrDaoNotFound, fmt.Sprintf("No Dao registered under the name '%s'", name), nil,
		)
	}
	instance, err := factory()
	if err != nil {
		return nil, err
	}
	registry.instances[name] = instance
	return instance, nil
}
