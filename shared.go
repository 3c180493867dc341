package micropods

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// SharedDependency declares a runtime library that must exist as exactly one
// instance across every composed pod.
type SharedDependency struct {
	Package         string `json:"-" yaml:"-"`
	RequiredVersion string `json:"requiredVersion" yaml:"requiredVersion"`
	Singleton       bool   `json:"singleton" yaml:"singleton"`
}

// SharedRegistry is the fixed table of singleton dependencies. It has no
// runtime state: every call to Descriptors yields equal values.
type SharedRegistry struct {
	deps  map[string]SharedDependency
	order []string
}

// NewSharedRegistry validates every version range and forces the singleton flag.
func NewSharedRegistry(deps ...SharedDependency) (*SharedRegistry, error) {
	r := &SharedRegistry{deps: make(map[string]SharedDependency, len(deps))}
	var errs []error
	for _, dep := range deps {
		if strings.TrimSpace(dep.Package) == "" {
			errs = append(errs, ErrSharedPackageMissing)
			continue
		}
		if _, err := semver.NewConstraint(dep.RequiredVersion); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s %q: %w", ErrInvalidVersionRange, dep.Package, dep.RequiredVersion, err))
			continue
		}
		if _, exists := r.deps[dep.Package]; !exists {
			r.order = append(r.order, dep.Package)
		}
		dep.Singleton = true
		r.deps[dep.Package] = dep
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return r, nil
}

// SharedRegistryFromMap builds a registry from a package -> version range map,
// in package name order.
func SharedRegistryFromMap(ranges map[string]string) (*SharedRegistry, error) {
	pkgs := make([]string, 0, len(ranges))
	for pkg := range ranges {
		pkgs = append(pkgs, pkg)
	}
	slices.Sort(pkgs)
	deps := make([]SharedDependency, 0, len(pkgs))
	for _, pkg := range pkgs {
		deps = append(deps, SharedDependency{Package: pkg, RequiredVersion: ranges[pkg]})
	}
	return NewSharedRegistry(deps...)
}

// DefaultSharedDependencies is the singleton table every pod is built against.
func DefaultSharedDependencies() []SharedDependency {
	return []SharedDependency{
		{Package: "react", RequiredVersion: "^18.13.1"},
		{Package: "react-dom", RequiredVersion: "^18.13.1"},
		{Package: "@tanstack/react-query", RequiredVersion: "^5.51.16"},
	}
}

// DefaultSharedRegistry returns the registry built from DefaultSharedDependencies.
func DefaultSharedRegistry() *SharedRegistry {
	r, err := NewSharedRegistry(DefaultSharedDependencies()...)
	if err != nil {
		panic(err)
	}
	return r
}

// Descriptors returns a fresh map of value copies of every declared dependency.
func (r *SharedRegistry) Descriptors() map[string]SharedDependency {
	out := make(map[string]SharedDependency, len(r.deps))
	for pkg, dep := range r.deps {
		out[pkg] = dep
	}
	return out
}

// Packages returns the declared package names in declaration order.
func (r *SharedRegistry) Packages() []string {
	return slices.Clone(r.order)
}

// Lookup returns the declaration for pkg.
func (r *SharedRegistry) Lookup(pkg string) (SharedDependency, bool) {
	dep, ok := r.deps[pkg]
	return dep, ok
}

// Satisfies checks a concrete version against the declared range of pkg.
func (r *SharedRegistry) Satisfies(pkg, version string) error {
	dep, ok := r.deps[pkg]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSharedNotDeclared, pkg)
	}
	c, err := semver.NewConstraint(dep.RequiredVersion)
	if err != nil {
		return fmt.Errorf("%w: %s %q: %w", ErrInvalidVersionRange, pkg, dep.RequiredVersion, err)
	}
	v, err := semver.NewVersion(strings.TrimSpace(version))
	if err != nil {
		return fmt.Errorf("%w: %s version %q: %w", ErrSingletonConflict, pkg, version, err)
	}
	if !c.Check(v) {
		return fmt.Errorf("%w: %s %s does not satisfy %s", ErrSingletonConflict, pkg, version, dep.RequiredVersion)
	}
	return nil
}

// Merge folds requested ranges into the declared set. Requests compatible with
// an existing declaration are absorbed without changing it; incompatible ones
// fail with ErrSingletonConflict. Unknown packages are added as singletons.
// The receiver is not modified; the merged set is returned.
func (r *SharedRegistry) Merge(requested map[string]string) (map[string]SharedDependency, error) {
	out := r.Descriptors()
	var errs []error
	for pkg, rng := range requested {
		req := SharedDependency{Package: pkg, RequiredVersion: rng, Singleton: true}
		if _, err := semver.NewConstraint(rng); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s %q: %w", ErrInvalidVersionRange, pkg, rng, err))
			continue
		}
		existing, ok := out[pkg]
		if !ok {
			out[pkg] = req
			continue
		}
		if !Compatible(existing, req) {
			errs = append(errs, fmt.Errorf("%w: %s requested %s, declared %s", ErrSingletonConflict, pkg, rng, existing.RequiredVersion))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// Compatible reports whether one instance could satisfy both ranges. Equal
// ranges are always compatible; otherwise some version at or just past a bound
// named by either range must satisfy both.
func Compatible(a, b SharedDependency) bool {
	ra, rb := strings.TrimSpace(a.RequiredVersion), strings.TrimSpace(b.RequiredVersion)
	ca, err := semver.NewConstraint(ra)
	if err != nil {
		return false
	}
	cb, err := semver.NewConstraint(rb)
	if err != nil {
		return false
	}
	if ra == rb {
		return true
	}
	for _, v := range candidates(ra, rb) {
		if ca.Check(v) && cb.Check(v) {
			return true
		}
	}
	return false
}

var (
	versionToken = regexp.MustCompile(`\d+(?:\.(?:\d+|[xX*]))?(?:\.(?:\d+|[xX*]))?`)
	wildcards    = strings.NewReplacer("x", "0", "X", "0", "*", "0")
)

// candidates lists 0.0.0 plus every version named in ranges and the next
// patch, minor and major after it, in ascending order.
func candidates(ranges ...string) []*semver.Version {
	out := []*semver.Version{semver.MustParse("0.0.0")}
	for _, rng := range ranges {
		for _, tok := range versionToken.FindAllString(rng, -1) {
			v, err := semver.NewVersion(wildcards.Replace(tok))
			if err != nil {
				continue
			}
			patch, minor, major := v.IncPatch(), v.IncMinor(), v.IncMajor()
			out = append(out, v, &patch, &minor, &major)
		}
	}
	sort.Sort(semver.Collection(out))
	return out
}

// minSatisfying returns the smallest candidate version inside rng.
func minSatisfying(rng string) (*semver.Version, error) {
	c, err := semver.NewConstraint(rng)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidVersionRange, rng, err)
	}
	for _, v := range candidates(rng) {
		if c.Check(v) {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: nothing satisfies %q", ErrInvalidVersionRange, rng)
}
