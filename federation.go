package micropods

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Permissive CORS applied to every pod's asset server.
const (
	CORSAllowOrigin  = "*"
	CORSAllowMethods = "GET, POST, PUT, DELETE, PATCH, OPTIONS"
	CORSAllowHeaders = "X-Requested-With, content-type, Authorization"
)

// CORSHeaders returns the default cross-origin response headers.
func CORSHeaders() map[string]string {
	return map[string]string{
		"Access-Control-Allow-Origin":  CORSAllowOrigin,
		"Access-Control-Allow-Methods": CORSAllowMethods,
		"Access-Control-Allow-Headers": CORSAllowHeaders,
	}
}

func isCORSHeader(name string) bool {
	for k := range CORSHeaders() {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

// BuildDescriptor is the federation configuration the bundler consumes for one pod.
type BuildDescriptor struct {
	Name    string                      `json:"name" yaml:"name"`
	Port    int                         `json:"port" yaml:"port"`
	Remotes map[string]string           `json:"remotes" yaml:"remotes"`
	Shared  map[string]SharedDependency `json:"shared" yaml:"shared"`
	Exposes map[string]string           `json:"exposes" yaml:"exposes"`

	Server ServerSection `json:"server" yaml:"server"`
	Dev    DevSection    `json:"dev" yaml:"dev"`
	Output OutputSection `json:"output" yaml:"output"`
	Tools  ToolsSection  `json:"tools" yaml:"tools"`
}

type ServerSection struct {
	Port    int               `json:"port" yaml:"port"`
	Headers map[string]string `json:"headers" yaml:"headers"`
}

type DevSection struct {
	AssetPrefix bool `json:"assetPrefix" yaml:"assetPrefix"`
	ClientPort  int  `json:"clientPort" yaml:"clientPort"`
}

type OutputSection struct {
	AssetPrefix string `json:"assetPrefix,omitempty" yaml:"assetPrefix,omitempty"`
}

type ToolsSection struct {
	Alias       map[string]string `json:"alias" yaml:"alias"`
	UniqueName  string            `json:"uniqueName" yaml:"uniqueName"`
	BuildID     string            `json:"buildId" yaml:"buildId"`
	PathInfo    bool              `json:"pathinfo" yaml:"pathinfo"`
	Experiments map[string]bool   `json:"experiments" yaml:"experiments"`
	ModuleRules []ModuleRule      `json:"moduleRules,omitempty" yaml:"moduleRules,omitempty"`
	DTS         bool              `json:"dts" yaml:"dts"`
}

// BuildOptions carries the inputs that are not part of a pod's own declaration.
// Environment is required and is never read from process state.
type BuildOptions struct {
	Environment Environment
	Remotes     RemoteTable
	Shared      *SharedRegistry
	Logger      Logger

	// NewBuildID overrides build ID generation, for reproducible output.
	NewBuildID func() string
}

func (o BuildOptions) withDefaults() BuildOptions {
	if o.Remotes == nil {
		o.Remotes = DefaultRemoteTable()
	}
	if o.Shared == nil {
		o.Shared = DefaultSharedRegistry()
	}
	if o.NewBuildID == nil {
		o.NewBuildID = newBuildID
	}
	o.Logger = LoggerOrNop(o.Logger)
	return o
}

// newBuildID generates a unique identifier using UUIDv7, falling back to v4.
func newBuildID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}

// BuildConfig produces the build descriptor of pod. Every requested remote is
// resolved for opts.Environment; a missing address fails the build.
func BuildConfig(pod PodConfig, opts BuildOptions) (*BuildDescriptor, error) {
	opts = opts.withDefaults()
	if !opts.Environment.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEnvironment, opts.Environment)
	}
	if err := pod.Validate(); err != nil {
		return nil, err
	}

	remotes := make(map[string]string, len(pod.Remotes))
	var errs []error
	for _, remote := range pod.Remotes {
		name := CanonicalPodName(remote)
		url, err := opts.Remotes.Resolve(name, opts.Environment)
		if err != nil {
			errs = append(errs, fmt.Errorf("pod %s: %w", pod.Name, err))
			continue
		}
		remotes[name] = url
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	shared, err := opts.Shared.Merge(pod.Tools.Shared)
	if err != nil {
		return nil, fmt.Errorf("pod %s: %w", pod.Name, err)
	}

	headers := CORSHeaders()
	for k, v := range pod.Tools.Headers {
		if isCORSHeader(k) {
			opts.Logger.Warn("Ignoring CORS header override", "pod", pod.Name, "header", k)
			continue
		}
		headers[k] = v
	}

	alias := map[string]string{"@": "src"}
	maps.Copy(alias, pod.Tools.Alias)

	experiments := map[string]bool{"css": false}
	maps.Copy(experiments, pod.Tools.Experiments)

	exposes := make(map[string]string, len(pod.Exposes))
	maps.Copy(exposes, pod.Exposes)

	if pod.Tools.UniqueName != "" && pod.Tools.UniqueName != pod.Name {
		opts.Logger.Warn("Ignoring uniqueName override", "pod", pod.Name, "override", pod.Tools.UniqueName)
	}

	d := &BuildDescriptor{
		Name:    pod.Name,
		Port:    pod.Port,
		Remotes: remotes,
		Shared:  shared,
		Exposes: exposes,
		Server: ServerSection{
			Port:    pod.Port,
			Headers: headers,
		},
		Dev: DevSection{
			AssetPrefix: true,
			ClientPort:  pod.Port,
		},
		Output: OutputSection{
			AssetPrefix: pod.AssetPrefix,
		},
		Tools: ToolsSection{
			Alias:       alias,
			UniqueName:  pod.Name,
			BuildID:     opts.NewBuildID(),
			PathInfo:    true,
			Experiments: experiments,
			ModuleRules: append([]ModuleRule(nil), pod.Tools.ModuleRules...),
			DTS:         false,
		},
	}

	opts.Logger.Debug("Built descriptor", "pod", d.Name, "environment", opts.Environment,
		"remotes", len(d.Remotes), "exposes", len(d.Exposes), "shared", len(d.Shared))
	return d, nil
}

// FederationRemotes renders the remotes in "<name>@<url>" reference form.
func (d *BuildDescriptor) FederationRemotes() map[string]string {
	out := make(map[string]string, len(d.Remotes))
	for name, url := range d.Remotes {
		out[name] = RemoteAddress{Name: name, URL: url}.String()
	}
	return out
}

// JSON encodes the descriptor for the bundler.
func (d *BuildDescriptor) JSON() ([]byte, error) {
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal descriptor %s: %w", d.Name, err)
	}
	return b, nil
}

// YAML encodes the descriptor as YAML.
func (d *BuildDescriptor) YAML() ([]byte, error) {
	b, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal descriptor %s: %w", d.Name, err)
	}
	return b, nil
}
