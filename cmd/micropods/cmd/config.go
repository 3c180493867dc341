package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/GoCodeAlone/micropods"
)

// NewConfigCommand creates the config command
func NewConfigCommand(opts *globalOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "config [pod...]",
		Short: "Print the federation build descriptor of pods",
		Long: `Print the build descriptor the bundler consumes for each pod: resolved
remotes, the shared singleton set, exposed modules and tool settings.

Examples:
  micropods config pod_dashboard
  micropods config --env production --format yaml invoices`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			comp, err := cfg.Compose(opts.logger(cmd))
			if err != nil {
				return err
			}
			names := args
			if len(names) == 0 {
				names = comp.Names()
			}
			out := make(map[string]*micropods.BuildDescriptor, len(names))
			for _, name := range names {
				d, err := comp.Descriptor(name)
				if err != nil {
					return err
				}
				out[d.Name] = d
			}
			return write(cmd, format, out)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format (json or yaml)")
	return cmd
}

// NewManifestCommand creates the manifest command
func NewManifestCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest <pod>",
		Short: "Print the remote manifest a pod publishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			comp, err := cfg.Compose(opts.logger(cmd))
			if err != nil {
				return err
			}
			d, err := comp.Descriptor(args[0])
			if err != nil {
				return err
			}
			data, err := micropods.NewManifest(d, nil).JSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	return cmd
}

func write(cmd *cobra.Command, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "yml":
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		defer enc.Close()
		return enc.Encode(v)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
