// Package di provides a minimal service registry with type-safe tokens.
// Services are registered by modules at startup and resolved lazily; every
// factory runs at most once (singletons).
package di

import (
	"fmt"
	"sync"
)

// ServiceRegistry is the read side of the container.
type ServiceRegistry interface {
	// Get returns the service registered under name, resolving its factory
	// on first use. It panics if the name is unknown: a missing service is
	// a wiring bug, not a runtime condition.
	Get(name string) any
}

// Container is the write side: modules register services and factories here.
type Container interface {
	ServiceRegistry

	// Register stores an already-constructed service instance.
	Register(name string, svc any)

	// RegisterFactory stores a lazy constructor for the service.
	RegisterFactory(name string, factory func(ServiceRegistry) any)
}

// Token is a type-safe handle for a registered service.
type Token[T any] struct {
	name string
}

// NewToken creates a token with a unique name. Convention: public services
// use "context.ServiceName", private dependencies use "context:depName".
func NewToken[T any](name string) Token[T] {
	return Token[T]{name: name}
}

// Name returns the registry name behind the token.
func (t Token[T]) Name() string {
	return t.name
}

// RegisterToken registers a typed factory under the token's name.
func RegisterToken[T any](c Container, token Token[T], factory func(ServiceRegistry) T) {
	c.RegisterFactory(token.name, func(sr ServiceRegistry) any {
		return factory(sr)
	})
}

// GetToken resolves the service behind the token with its concrete type.
func GetToken[T any](sr ServiceRegistry, token Token[T]) T {
	svc, ok := sr.Get(token.name).(T)
	if !ok {
		panic(fmt.Sprintf("di: service %q has unexpected type", token.name))
	}
	return svc
}

// container is the default Container implementation.
type container struct {
	mu        sync.Mutex
	services  map[string]any
	factories map[string]func(ServiceRegistry) any
}

// NewContainer creates an empty container.
func NewContainer() Container {
	return &container{
		services:  make(map[string]any),
		factories: make(map[string]func(ServiceRegistry) any),
	}
}

func (c *container) Register(name string, svc any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[name] = svc
}

func (c *container) RegisterFactory(name string, factory func(ServiceRegistry) any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[name] = factory
}

func (c *container) Get(name string) any {
	c.mu.Lock()
	if svc, ok := c.services[name]; ok {
		c.mu.Unlock()
		return svc
	}
	factory, ok := c.factories[name]
	c.mu.Unlock()

	if !ok {
		panic(fmt.Sprintf("di: unknown service %q", name))
	}

	// Run the factory outside the lock: factories resolve their own
	// dependencies through Get and would deadlock otherwise.
	svc := factory(c)

	c.mu.Lock()
	if existing, ok := c.services[name]; ok {
		// Another goroutine resolved it first; keep the original.
		c.mu.Unlock()
		return existing
	}
	c.services[name] = svc
	c.mu.Unlock()

	return svc
}
