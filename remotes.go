package micropods

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ManifestPath is where every pod publishes its runtime manifest.
const ManifestPath = "/mf-manifest.json"

// PodPrefix is prepended to short pod names ("ui" becomes "pod_ui").
const PodPrefix = "pod_"

// CanonicalPodName returns the federation name for a logical pod name.
// Both "dashboard" and "pod_dashboard" map to "pod_dashboard".
func CanonicalPodName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.HasPrefix(name, PodPrefix) {
		return name
	}
	return PodPrefix + name
}

// ShortPodName strips the federation prefix ("pod_ui" becomes "ui").
func ShortPodName(name string) string {
	return strings.TrimPrefix(strings.TrimSpace(name), PodPrefix)
}

// RemoteAddress is one entry of the remote address table: the federation name
// the pod publishes under, and its manifest URL.
type RemoteAddress struct {
	Name string
	URL  string
}

// ParseRemoteAddress accepts either "<federationName>@<url>" or a plain URL.
func ParseRemoteAddress(s string) (RemoteAddress, error) {
	s = strings.TrimSpace(s)
	var addr RemoteAddress
	if at := strings.Index(s, "@"); at > 0 && !strings.Contains(s[:at], "://") {
		addr.Name = s[:at]
		addr.URL = s[at+1:]
	} else {
		addr.URL = s
	}

	u, err := url.Parse(addr.URL)
	if err != nil {
		return RemoteAddress{}, fmt.Errorf("%w: %q: %w", ErrInvalidRemoteAddress, s, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return RemoteAddress{}, fmt.Errorf("%w: %q: want an absolute http(s) URL", ErrInvalidRemoteAddress, s)
	}
	return addr, nil
}

// String renders the address in federation reference form when a name is known.
func (a RemoteAddress) String() string {
	if a.Name == "" {
		return a.URL
	}
	return a.Name + "@" + a.URL
}

// BaseURL is the manifest URL with the manifest file stripped, i.e. the root the
// pod's other static resources are served from.
func (a RemoteAddress) BaseURL() string {
	u, err := url.Parse(a.URL)
	if err != nil {
		return a.URL
	}
	u.Path = strings.TrimSuffix(u.Path, ManifestPath)
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimSuffix(u.String(), "/")
}

// RemoteTable maps environment -> pod name -> address. Pod names are canonical
// federation names.
type RemoteTable map[Environment]map[string]RemoteAddress

// DefaultRemoteTable returns the address table of the four standard pods.
func DefaultRemoteTable() RemoteTable {
	table := RemoteTable{}
	ports := map[Environment]int{Development: 3000, Production: 8000}
	for env, base := range ports {
		table[env] = map[string]RemoteAddress{}
		for i, pod := range []string{"ui", "dashboard", "server", "invoices"} {
			name := CanonicalPodName(pod)
			table[env][name] = RemoteAddress{
				Name: name,
				URL:  fmt.Sprintf("http://localhost:%d%s", base+i+1, ManifestPath),
			}
		}
	}
	return table
}

// ParseRemoteTable converts the raw configuration form (environment name ->
// pod name -> address string) into a RemoteTable.
func ParseRemoteTable(raw map[string]map[string]string) (RemoteTable, error) {
	table := RemoteTable{}
	var errs []error
	for envName, pods := range raw {
		env, err := ParseEnvironment(envName)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if table[env] == nil {
			table[env] = map[string]RemoteAddress{}
		}
		for pod, rawAddr := range pods {
			addr, err := ParseRemoteAddress(rawAddr)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s/%s: %w", env, pod, err))
				continue
			}
			table[env][CanonicalPodName(pod)] = addr
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return table, nil
}

// Address looks up the full table entry for pod in env.
func (t RemoteTable) Address(pod string, env Environment) (RemoteAddress, error) {
	pods, ok := t[env]
	if !ok {
		return RemoteAddress{}, fmt.Errorf("%w: no remotes declared for environment %q", ErrMissingRemoteReference, env)
	}
	addr, ok := pods[CanonicalPodName(pod)]
	if !ok || addr.URL == "" {
		return RemoteAddress{}, fmt.Errorf("%w: pod %q has no address in environment %q", ErrMissingRemoteReference, pod, env)
	}
	return addr, nil
}

// Resolve returns the manifest URL of pod in env. It never falls back to another
// environment or a default address.
func (t RemoteTable) Resolve(pod string, env Environment) (string, error) {
	addr, err := t.Address(pod, env)
	if err != nil {
		return "", err
	}
	return addr.URL, nil
}

// Pods returns the pod names declared for env, sorted.
func (t RemoteTable) Pods(env Environment) []string {
	names := make([]string, 0, len(t[env]))
	for name := range t[env] {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Validate checks that every environment declares the same pods and that no
// entry publishes under a federation name other than its key.
func (t RemoteTable) Validate() error {
	var errs []error
	var reference []string
	var referenceEnv Environment
	for _, env := range Environments() {
		pods, ok := t[env]
		if !ok {
			continue
		}
		for key, addr := range pods {
			if addr.Name != "" && addr.Name != key {
				errs = append(errs, fmt.Errorf("%w: %s entry %q publishes as %q", ErrPodNameMismatch, env, key, addr.Name))
			}
		}
		names := t.Pods(env)
		if reference == nil {
			reference, referenceEnv = names, env
			continue
		}
		for _, name := range names {
			if !slices.Contains(reference, name) {
				errs = append(errs, fmt.Errorf("%w: pod %q has no address in environment %q", ErrMissingRemoteReference, name, referenceEnv))
			}
		}
		for _, name := range reference {
			if !slices.Contains(names, name) {
				errs = append(errs, fmt.Errorf("%w: pod %q has no address in environment %q", ErrMissingRemoteReference, name, env))
			}
		}
	}
	for env := range t {
		if !env.Valid() {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownEnvironment, env))
		}
	}
	return errors.Join(errs...)
}
