package micropods

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"
)

// DefaultRemoteEntry is the file name of a pod's remote entry script.
const DefaultRemoteEntry = "remoteEntry.js"

// Manifest is the runtime description a pod publishes at ManifestPath.
type Manifest struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	MetaData ManifestMetaData `json:"metaData"`
	Shared   []ManifestShared `json:"shared"`
	Remotes  []ManifestRemote `json:"remotes"`
	Exposes  []ManifestExpose `json:"exposes"`
}

type ManifestMetaData struct {
	Name        string              `json:"name"`
	Type        string              `json:"type"`
	BuildInfo   ManifestBuildInfo   `json:"buildInfo"`
	RemoteEntry ManifestRemoteEntry `json:"remoteEntry"`
	GlobalName  string              `json:"globalName"`
	PublicPath  string              `json:"publicPath"`
}

type ManifestBuildInfo struct {
	BuildVersion string `json:"buildVersion"`
	BuildName    string `json:"buildName"`
}

type ManifestRemoteEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
}

// ManifestShared is one shared package as built into the pod. Version is the
// concrete version bundled by the pod.
type ManifestShared struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Version         string `json:"version"`
	Singleton       bool   `json:"singleton"`
	RequiredVersion string `json:"requiredVersion"`
}

type ManifestRemote struct {
	FederationContainerName string `json:"federationContainerName"`
	ModuleName              string `json:"moduleName"`
	Alias                   string `json:"alias"`
	Entry                   string `json:"entry"`
}

// ManifestExpose is one exposed module. Path is the served file, relative to
// the pod's base URL.
type ManifestExpose struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// ParseManifest decodes a manifest and checks that it names its pod.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifestInvalid, err)
	}
	if m.Name == "" {
		m.Name = m.MetaData.Name
	}
	if m.Name == "" {
		return nil, fmt.Errorf("%w: missing name", ErrManifestInvalid)
	}
	return &m, nil
}

// NewManifest describes the pod built from d. versions gives the concrete
// version bundled for each shared package; when a package has none, the lower
// bound of its range is used.
func NewManifest(d *BuildDescriptor, versions map[string]string) *Manifest {
	m := &Manifest{
		ID:   d.Name,
		Name: d.Name,
		MetaData: ManifestMetaData{
			Name: d.Name,
			Type: "app",
			BuildInfo: ManifestBuildInfo{
				BuildVersion: d.Tools.BuildID,
				BuildName:    d.Tools.UniqueName,
			},
			RemoteEntry: ManifestRemoteEntry{Name: DefaultRemoteEntry, Type: "global"},
			GlobalName:  d.Name,
			PublicPath:  strings.TrimSuffix(d.Output.AssetPrefix, "/") + "/",
		},
	}

	for _, pkg := range sortedKeys(d.Shared) {
		dep := d.Shared[pkg]
		version := versions[pkg]
		if version == "" {
			if v, err := minSatisfying(dep.RequiredVersion); err == nil {
				version = v.String()
			}
		}
		m.Shared = append(m.Shared, ManifestShared{
			ID:              d.Name + ":" + pkg,
			Name:            pkg,
			Version:         version,
			Singleton:       dep.Singleton,
			RequiredVersion: dep.RequiredVersion,
		})
	}

	for _, name := range sortedKeys(d.Remotes) {
		m.Remotes = append(m.Remotes, ManifestRemote{
			FederationContainerName: name,
			ModuleName:              name,
			Alias:                   name,
			Entry:                   d.Remotes[name],
		})
	}

	for _, expose := range sortedKeys(d.Exposes) {
		name := strings.TrimPrefix(expose, "./")
		served := path.Base(d.Exposes[expose])
		if expose != TranslationsModule {
			served = strings.TrimSuffix(served, path.Ext(served)) + ".js"
		}
		m.Exposes = append(m.Exposes, ManifestExpose{
			ID:   d.Name + ":" + name,
			Name: name,
			Path: served,
		})
	}
	return m
}

// Expose finds an exposed module by its public path ("./App") or bare name.
func (m *Manifest) Expose(name string) (ManifestExpose, bool) {
	name = strings.TrimPrefix(name, "./")
	for _, e := range m.Exposes {
		if e.Name == name {
			return e, true
		}
	}
	return ManifestExpose{}, false
}

// RemoteEntryPath is the remote entry script relative to the pod's base URL.
func (m *Manifest) RemoteEntryPath() string {
	entry := m.MetaData.RemoteEntry
	if entry.Name == "" {
		entry.Name = DefaultRemoteEntry
	}
	return strings.TrimPrefix(path.Join(entry.Path, entry.Name), "/")
}

// CheckShared verifies that every singleton the manifest bundles satisfies
// the registry. Packages the registry does not declare are ignored.
func (m *Manifest) CheckShared(r *SharedRegistry) error {
	if r == nil {
		return ErrRegistryNil
	}
	var errs []error
	for _, s := range m.Shared {
		if _, ok := r.Lookup(s.Name); !ok || s.Version == "" {
			continue
		}
		if err := r.Satisfies(s.Name, s.Version); err != nil {
			errs = append(errs, fmt.Errorf("pod %s: %w", m.Name, err))
		}
	}
	return errors.Join(errs...)
}

// JSON encodes the manifest.
func (m *Manifest) JSON() ([]byte, error) {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest %s: %w", m.Name, err)
	}
	return b, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
