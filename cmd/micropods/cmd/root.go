package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/micropods"
)

// OsExit is swapped out by tests.
var OsExit = os.Exit

// Version information
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// PrintVersion returns the version line.
func PrintVersion() string {
	return fmt.Sprintf("micropods v%s (commit: %s, built on: %s)", Version, Commit, Date)
}

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath  string
	section     string
	environment string
	logLevel    string
}

// NewRootCommand creates the root command for the micropods CLI
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "micropods",
		Short: "micropods - compose an application from independently deployed pods",
		Long: `micropods builds the federation descriptors of every pod, serves pod assets
with permissive CORS, and runs the shell that composes the pods into one
application.

Configuration is read from --config (or MICROPODS_CONFIG) and MICROPODS_*
environment variables, on top of the built-in five-pod composition.`,
		Version:       PrintVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Configuration file (YAML, JSON or TOML)")
	flags.StringVar(&opts.section, "section", "", "Read the configuration from this top-level key of the file")
	flags.StringVarP(&opts.environment, "env", "e", "", "Target environment (development or production)")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(NewConfigCommand(opts))
	cmd.AddCommand(NewManifestCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewShellCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), PrintVersion())
		},
	}
}

func (o *globalOptions) path() string {
	if o.configPath != "" {
		return o.configPath
	}
	return os.Getenv(micropods.EnvPrefix + "_CONFIG")
}

// load reads the configuration. --env wins over the file and the environment.
func (o *globalOptions) load() (*micropods.Config, error) {
	cfg, err := micropods.LoadConfig(micropods.LoadOptions{Path: o.path(), Section: o.section})
	if err != nil {
		return nil, err
	}
	if o.environment != "" {
		env, err := micropods.ParseEnvironment(o.environment)
		if err != nil {
			return nil, err
		}
		cfg.Environment = env.String()
	}
	return cfg, nil
}

// logger builds the slog logger the commands log through.
func (o *globalOptions) logger(cmd *cobra.Command) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(o.logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}
