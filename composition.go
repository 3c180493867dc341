package micropods

import (
	"errors"
	"fmt"
	"slices"
)

// Composition is the validated set of build descriptors of every pod in one
// application, for one environment.
type Composition struct {
	Environment Environment
	pods        []PodConfig
	descriptors map[string]*BuildDescriptor
}

// Compose builds every pod and checks the cross-pod invariants: unique names and
// ports, remote table consistency, and one compatible range per shared package.
func Compose(pods []PodConfig, opts BuildOptions) (*Composition, error) {
	opts = opts.withDefaults()
	if err := opts.Remotes.Validate(); err != nil {
		return nil, err
	}

	var errs []error
	names := make(map[string]bool, len(pods))
	ports := make(map[int]string, len(pods))
	for _, pod := range pods {
		if names[pod.Name] {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicatePod, pod.Name))
		}
		names[pod.Name] = true
		if other, ok := ports[pod.Port]; ok && pod.Port != 0 {
			errs = append(errs, fmt.Errorf("%w: %d used by %s and %s", ErrDuplicatePort, pod.Port, other, pod.Name))
		}
		ports[pod.Port] = pod.Name
	}

	// Every remote a pod consumes must be built by a pod of the same name, and
	// every address in the table must publish under the name it is keyed by.
	for _, pod := range pods {
		for _, remote := range pod.Remotes {
			name := CanonicalPodName(remote)
			if !names[name] {
				errs = append(errs, fmt.Errorf("%w: %s consumes %q but no pod in the composition is named %q",
					ErrPodNameMismatch, pod.Name, name, name))
			}
		}
	}
	for _, name := range opts.Remotes.Pods(opts.Environment) {
		if !names[name] {
			errs = append(errs, fmt.Errorf("%w: remote table entry %q has no matching pod", ErrPodNameMismatch, name))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	c := &Composition{
		Environment: opts.Environment,
		pods:        slices.Clone(pods),
		descriptors: make(map[string]*BuildDescriptor, len(pods)),
	}
	for _, pod := range pods {
		d, err := BuildConfig(pod, opts)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		c.descriptors[pod.Name] = d
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if err := c.checkShared(); err != nil {
		return nil, err
	}

	opts.Logger.Info("Composed application", "environment", opts.Environment, "pods", len(pods))
	return c, nil
}

// checkShared verifies that all descriptors agree on every shared package.
func (c *Composition) checkShared() error {
	seen := map[string]struct {
		pod string
		dep SharedDependency
	}{}
	var errs []error
	for _, name := range c.Names() {
		for pkg, dep := range c.descriptors[name].Shared {
			dep.Package = pkg
			first, ok := seen[pkg]
			if !ok {
				seen[pkg] = struct {
					pod string
					dep SharedDependency
				}{name, dep}
				continue
			}
			if !Compatible(first.dep, dep) {
				errs = append(errs, fmt.Errorf("%w: %s requires %s in %s but %s in %s",
					ErrSingletonConflict, pkg, first.dep.RequiredVersion, first.pod, dep.RequiredVersion, name))
			}
		}
	}
	return errors.Join(errs...)
}

// Names returns the pod names in declaration order.
func (c *Composition) Names() []string {
	out := make([]string, 0, len(c.pods))
	for _, p := range c.pods {
		out = append(out, p.Name)
	}
	return out
}

// Pods returns a copy of the pod declarations.
func (c *Composition) Pods() []PodConfig {
	return slices.Clone(c.pods)
}

// Pod returns the declaration of the named pod.
func (c *Composition) Pod(name string) (PodConfig, error) {
	name = CanonicalPodName(name)
	for _, p := range c.pods {
		if p.Name == name {
			return p, nil
		}
	}
	return PodConfig{}, fmt.Errorf("%w: %s", ErrPodNotFound, name)
}

// Descriptor returns the build descriptor of the named pod.
func (c *Composition) Descriptor(name string) (*BuildDescriptor, error) {
	d, ok := c.descriptors[CanonicalPodName(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPodNotFound, name)
	}
	return d, nil
}
