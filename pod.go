package micropods

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// PodConfig describes one independently built pod. It is defined once at
// configuration time and not modified afterwards.
type PodConfig struct {
	// Name is the globally unique federation name, e.g. "pod_dashboard".
	Name string `json:"name" yaml:"name" toml:"name"`

	// Port is the dev server port.
	Port int `json:"port" yaml:"port" toml:"port"`

	// AssetPrefix is the public URL prefix the built assets are served from.
	AssetPrefix string `json:"assetPrefix" yaml:"assetPrefix" toml:"assetPrefix"`

	// Exposes maps public module paths ("./App") to local sources.
	Exposes map[string]string `json:"exposes,omitempty" yaml:"exposes,omitempty" toml:"exposes,omitempty"`

	// Remotes lists the pods this pod consumes at runtime.
	Remotes []string `json:"remotes,omitempty" yaml:"remotes,omitempty" toml:"remotes,omitempty"`

	// Tools are caller-supplied build tool overrides.
	Tools ToolOverrides `json:"tools,omitempty" yaml:"tools,omitempty" toml:"tools,omitempty"`

	// Title and Route place the pod in the shell navigation. A pod without a
	// route is not mounted as a page.
	Title string `json:"title,omitempty" yaml:"title,omitempty" toml:"title,omitempty"`
	Route string `json:"route,omitempty" yaml:"route,omitempty" toml:"route,omitempty"`
	Color string `json:"color,omitempty" yaml:"color,omitempty" toml:"color,omitempty"`
}

// TranslationsModule is the exposed path under which a pod publishes its
// translation bundle.
const TranslationsModule = "./translations"

// ExposesTranslations reports whether the pod contributes a translation bundle.
func (p PodConfig) ExposesTranslations() bool {
	_, ok := p.Exposes[TranslationsModule]
	return ok
}

// Validate checks the static shape of the pod.
func (p PodConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, fmt.Errorf("%w: name is required", ErrInvalidPod))
	}
	if p.Port <= 0 || p.Port > 65535 {
		errs = append(errs, fmt.Errorf("%w: %s: port %d out of range", ErrInvalidPod, p.Name, p.Port))
	}
	if p.AssetPrefix != "" {
		if u, err := url.Parse(p.AssetPrefix); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%w: %s: asset prefix %q is not an absolute URL", ErrInvalidPod, p.Name, p.AssetPrefix))
		}
	}
	for public, local := range p.Exposes {
		if !strings.HasPrefix(public, "./") {
			errs = append(errs, fmt.Errorf("%w: %s: exposed path %q must start with ./", ErrInvalidPod, p.Name, public))
		}
		if strings.TrimSpace(local) == "" {
			errs = append(errs, fmt.Errorf("%w: %s: exposed path %q has no source", ErrInvalidPod, p.Name, public))
		}
	}
	for _, remote := range p.Remotes {
		if CanonicalPodName(remote) == p.Name {
			errs = append(errs, fmt.Errorf("%w: %s lists itself as a remote", ErrInvalidPod, p.Name))
		}
	}
	return errors.Join(errs...)
}

// ToolOverrides are merged into the build tool section of the descriptor.
// Aliases, headers and experiments override configurator defaults. Unique name,
// build ID and the shared singleton set cannot be overridden.
type ToolOverrides struct {
	ModuleRules []ModuleRule      `json:"moduleRules,omitempty" yaml:"moduleRules,omitempty" toml:"moduleRules,omitempty"`
	Alias       map[string]string `json:"alias,omitempty" yaml:"alias,omitempty" toml:"alias,omitempty"`
	Headers     map[string]string `json:"headers,omitempty" yaml:"headers,omitempty" toml:"headers,omitempty"`
	Experiments map[string]bool   `json:"experiments,omitempty" yaml:"experiments,omitempty" toml:"experiments,omitempty"`

	// Shared requests extra or narrower singleton ranges. Requests that would
	// weaken a declared entry fail the build.
	Shared map[string]string `json:"shared,omitempty" yaml:"shared,omitempty" toml:"shared,omitempty"`

	// UniqueName is accepted for compatibility and always replaced by the pod name.
	UniqueName string `json:"uniqueName,omitempty" yaml:"uniqueName,omitempty" toml:"uniqueName,omitempty"`
}

// ModuleRule is a bundler module rule: files matching Test are processed by Use.
type ModuleRule struct {
	Test string   `json:"test" yaml:"test" toml:"test"`
	Use  []string `json:"use" yaml:"use" toml:"use"`
}
