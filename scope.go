package micropods

import (
	"fmt"
	"reflect"
	"slices"
	"sync"
)

// SharedScope holds the live instances of the registry's singleton packages.
// The first pod to provide a package wins; later providers receive the existing
// instance as long as their version satisfies the declared range.
type SharedScope struct {
	registry  *SharedRegistry
	mu        sync.RWMutex
	instances map[string]sharedInstance
	logger    Logger
}

type sharedInstance struct {
	provider string
	version  string
	value    any
}

// NewSharedScope creates an empty scope bound to registry.
func NewSharedScope(registry *SharedRegistry, logger Logger) *SharedScope {
	return &SharedScope{
		registry:  registry,
		instances: make(map[string]sharedInstance),
		logger:    LoggerOrNop(logger),
	}
}

// Registry returns the declaration table the scope enforces.
func (s *SharedScope) Registry() *SharedRegistry {
	return s.registry
}

// Provide offers instance of pkg at version on behalf of provider and returns
// the instance every consumer must use.
func (s *SharedScope) Provide(provider, pkg, version string, instance any) (any, error) {
	if s.registry == nil {
		return nil, ErrRegistryNil
	}
	if instance == nil {
		return nil, fmt.Errorf("%w: %s from %s", ErrSharedInstanceNil, pkg, provider)
	}
	if err := s.registry.Satisfies(pkg, version); err != nil {
		return nil, fmt.Errorf("pod %s: %w", provider, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if active, ok := s.instances[pkg]; ok {
		s.logger.Debug("Reusing shared instance", "package", pkg, "provider", active.provider,
			"version", active.version, "requestedBy", provider, "requestedVersion", version)
		return active.value, nil
	}

	s.instances[pkg] = sharedInstance{provider: provider, version: version, value: instance}
	s.logger.Debug("Registered shared instance", "package", pkg, "provider", provider,
		"version", version, "type", reflect.TypeOf(instance))
	return instance, nil
}

// Get returns the live instance of pkg.
func (s *SharedScope) Get(pkg string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instances[pkg]
	return inst.value, ok
}

// Version returns the version of the live instance of pkg.
func (s *SharedScope) Version(pkg string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instances[pkg]
	return inst.version, ok
}

// Packages lists the packages that currently have a live instance, sorted.
func (s *SharedScope) Packages() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.instances))
	for pkg := range s.instances {
		out = append(out, pkg)
	}
	slices.Sort(out)
	return out
}

// Resolve assigns the live instance of pkg to target, which must be a non-nil
// pointer to a type the instance implements or is assignable to.
func (s *SharedScope) Resolve(pkg string, target any) error {
	instance, ok := s.Get(pkg)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSharedNotProvided, pkg)
	}

	targetValue := reflect.ValueOf(target)
	if targetValue.Kind() != reflect.Ptr || targetValue.IsNil() {
		return ErrSharedTargetNotPtr
	}

	instanceType := reflect.TypeOf(instance)
	targetType := targetValue.Elem().Type()

	// Case 1: Target is an interface that the instance implements
	if targetType.Kind() == reflect.Interface && instanceType.Implements(targetType) {
		targetValue.Elem().Set(reflect.ValueOf(instance))
		return nil
	}

	// Case 2: Direct assignment or pointer dereference
	if instanceType.AssignableTo(targetType) {
		targetValue.Elem().Set(reflect.ValueOf(instance))
		return nil
	} else if instanceType.Kind() == reflect.Ptr && instanceType.Elem().AssignableTo(targetType) {
		targetValue.Elem().Set(reflect.ValueOf(instance).Elem())
		return nil
	}

	return fmt.Errorf("%w: %s of type %s cannot be assigned to %s",
		ErrSharedWrongType, pkg, instanceType, targetType)
}
