package micropods

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golobby/config/v3"

	"github.com/GoCodeAlone/micropods/feeders"
)

// EnvPrefix prefixes every environment variable the configuration reads.
const EnvPrefix = "MICROPODS"

// Config is the composition configuration: the pods, the remote address table,
// the shared singleton table and the shell settings.
//
// Example YAML:
//
//	environment: development
//	languages: [en, ro]
//	defaultLanguage: en
//	shared:
//	  react: ^18.13.1
//	remotes:
//	  development:
//	    pod_ui: pod_ui@http://localhost:3001/mf-manifest.json
//	pods:
//	  - name: pod_ui
//	    port: 3001
//
// Environment variables: MICROPODS_ENV, MICROPODS_DEFAULT_LANGUAGE,
// MICROPODS_SHELL_PORT, MICROPODS_SHELL_LOAD_TIMEOUT.
type Config struct {
	Environment     string                       `json:"environment" yaml:"environment" toml:"environment" env:"ENV"`
	Languages       []string                     `json:"languages" yaml:"languages" toml:"languages" env:"LANGUAGES"`
	DefaultLanguage string                       `json:"defaultLanguage" yaml:"defaultLanguage" toml:"defaultLanguage" env:"DEFAULT_LANGUAGE"`
	Shared          map[string]string            `json:"shared" yaml:"shared" toml:"shared"`
	Remotes         map[string]map[string]string `json:"remotes" yaml:"remotes" toml:"remotes"`
	Pods            []PodConfig                  `json:"pods" yaml:"pods" toml:"pods"`
	Shell           ShellConfig                  `json:"shell" yaml:"shell" toml:"shell"`
}

// ShellConfig configures the composition root.
type ShellConfig struct {
	// Pod is the name of the pod acting as shell.
	Pod string `json:"pod" yaml:"pod" toml:"pod" env:"SHELL_POD"`

	Host string `json:"host" yaml:"host" toml:"host" env:"SHELL_HOST"`
	Port int    `json:"port" yaml:"port" toml:"port" env:"SHELL_PORT"`

	// LoadTimeout bounds a remote manifest fetch. Zero disables the bound.
	LoadTimeout time.Duration `json:"loadTimeout" yaml:"loadTimeout" toml:"loadTimeout" env:"SHELL_LOAD_TIMEOUT"`

	// ToastTTL is how long a notification toast stays visible.
	ToastTTL time.Duration `json:"toastTTL" yaml:"toastTTL" toml:"toastTTL" env:"SHELL_TOAST_TTL"`

	ShutdownTimeout time.Duration `json:"shutdownTimeout" yaml:"shutdownTimeout" toml:"shutdownTimeout" env:"SHELL_SHUTDOWN_TIMEOUT"`
}

// DefaultConfig returns the standard five-pod composition.
func DefaultConfig() *Config {
	remotes := map[string]map[string]string{}
	for env, pods := range DefaultRemoteTable() {
		remotes[env.String()] = map[string]string{}
		for name, addr := range pods {
			remotes[env.String()][name] = addr.String()
		}
	}
	shared := map[string]string{}
	for _, dep := range DefaultSharedDependencies() {
		shared[dep.Package] = dep.RequiredVersion
	}

	return &Config{
		Environment:     Development.String(),
		Languages:       []string{"en", "ro"},
		DefaultLanguage: "en",
		Shared:          shared,
		Remotes:         remotes,
		Pods:            DefaultPods(),
		Shell: ShellConfig{
			Pod:             "pod_shell",
			Host:            "localhost",
			Port:            3000,
			LoadTimeout:     10 * time.Second,
			ToastTTL:        4 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
	}
}

// DefaultPods returns the pod declarations of the standard composition.
func DefaultPods() []PodConfig {
	return []PodConfig{
		{
			Name:        "pod_shell",
			Port:        3000,
			AssetPrefix: "http://localhost:8000",
			Remotes:     []string{"pod_ui", "pod_server", "pod_dashboard", "pod_invoices"},
			Title:       "Shell",
			Route:       "/",
			Color:       "bg-rose-400",
		},
		{
			Name:        "pod_ui",
			Port:        3001,
			AssetPrefix: "http://localhost:8001",
			Exposes: map[string]string{
				"./config":     "./src/config.ts",
				"./UIProvider": "./src/providers/UIProvider.tsx",
				"./Button":     "./src/components/button/Button.tsx",
				"./Input":      "./src/components/input/Input.tsx",
				"./Skeleton":   "./src/components/skeleton/Skeleton.tsx",
			},
			Tools: ToolOverrides{
				ModuleRules: []ModuleRule{{Test: `\.css$`, Use: []string{"postcss-loader"}}},
			},
			Title: "UI",
			Color: "bg-green-400",
		},
		{
			Name:        "pod_dashboard",
			Port:        3002,
			AssetPrefix: "http://localhost:8002",
			Exposes: map[string]string{
				"./App":            "./src/App.tsx",
				TranslationsModule: "./translations.json",
			},
			Remotes: []string{"pod_ui", "pod_server"},
			Title:   "Dashboard",
			Route:   "/dashboard",
			Color:   "bg-teal-400",
		},
		{
			Name:        "pod_server",
			Port:        3003,
			AssetPrefix: "http://localhost:8003",
			Exposes: map[string]string{
				"./providers/ServerProvider": "./src/providers/ServerProvider.tsx",
				"./hooks/useAuth":            "./src/hooks/useAuth/useAuth.ts",
				"./hooks/useData":            "./src/hooks/useData/useData.ts",
			},
			Title: "Server",
			Color: "bg-orange-400",
		},
		{
			Name:        "pod_invoices",
			Port:        3004,
			AssetPrefix: "http://localhost:8004",
			Exposes: map[string]string{
				"./App":            "./src/App.tsx",
				TranslationsModule: "./translations.json",
			},
			Remotes: []string{"pod_ui", "pod_server", "pod_dashboard"},
			Title:   "Invoices",
			Route:   "/invoices",
			Color:   "bg-violet-400",
		},
	}
}

// LoadOptions select where configuration is read from.
type LoadOptions struct {
	// Path of a YAML, JSON or TOML file. Empty means defaults plus environment.
	Path string

	// Section reads the configuration from a top-level key of the file.
	Section string

	// Lookup replaces os.LookupEnv, mainly for tests.
	Lookup func(string) (string, bool)
}

// LoadConfig starts from DefaultConfig, applies the file (if any) and then the
// MICROPODS_* environment variables, and validates the result. Scalar settings
// in the file override their defaults one by one. Pods, shared and each
// environment's remote table replace their defaults as a whole when present.
func LoadConfig(opts LoadOptions) (*Config, error) {
	defaults := DefaultConfig()
	cfg := DefaultConfig()

	if opts.Path != "" {
		if _, err := os.Stat(opts.Path); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrConfigFileNotFound, opts.Path, err)
		}
		file, err := feeders.ForFile(opts.Path)
		if err != nil {
			return nil, err
		}
		var source config.Feeder = file
		if opts.Section != "" {
			source = feeders.Section{Source: file, Key: opts.Section}
		}
		cfg.Pods, cfg.Shared, cfg.Remotes = nil, nil, nil
		if err := config.New().AddFeeder(source).AddStruct(cfg).Feed(); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg.fillCollections(defaults)
	}

	env := feeders.NewPrefixedEnvFeeder(EnvPrefix)
	if opts.Lookup != nil {
		env = env.WithLookup(opts.Lookup)
	}
	if err := config.New().AddFeeder(env).AddStruct(cfg).Feed(); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fillCollections takes the pods, shared table and per-environment remote
// tables the file left out from d.
func (c *Config) fillCollections(d *Config) {
	if c.Pods == nil {
		c.Pods = d.Pods
	}
	if c.Shared == nil {
		c.Shared = d.Shared
	}
	if c.Remotes == nil {
		c.Remotes = map[string]map[string]string{}
	}
	for env, table := range d.Remotes {
		if _, ok := c.Remotes[env]; !ok {
			c.Remotes[env] = table
		}
	}
}

// Validate checks that the configuration can be turned into build options.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Env(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.RemoteTable(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.SharedRegistry(); err != nil {
		errs = append(errs, err)
	}
	if len(c.Languages) == 0 {
		errs = append(errs, fmt.Errorf("%w: at least one language is required", ErrInvalidConfig))
	}
	for _, pod := range c.Pods {
		if err := pod.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Env parses the configured environment.
func (c *Config) Env() (Environment, error) {
	return ParseEnvironment(c.Environment)
}

// RemoteTable parses the configured remote addresses.
func (c *Config) RemoteTable() (RemoteTable, error) {
	return ParseRemoteTable(c.Remotes)
}

// SharedRegistry builds the configured singleton table.
func (c *Config) SharedRegistry() (*SharedRegistry, error) {
	return SharedRegistryFromMap(c.Shared)
}

// BuildOptions assembles the inputs BuildConfig and Compose need.
func (c *Config) BuildOptions(logger Logger) (BuildOptions, error) {
	env, err := c.Env()
	if err != nil {
		return BuildOptions{}, err
	}
	remotes, err := c.RemoteTable()
	if err != nil {
		return BuildOptions{}, err
	}
	shared, err := c.SharedRegistry()
	if err != nil {
		return BuildOptions{}, err
	}
	return BuildOptions{Environment: env, Remotes: remotes, Shared: shared, Logger: logger}, nil
}

// Compose builds the full composition described by the configuration.
func (c *Config) Compose(logger Logger) (*Composition, error) {
	opts, err := c.BuildOptions(logger)
	if err != nil {
		return nil, err
	}
	return Compose(c.Pods, opts)
}
