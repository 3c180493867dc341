package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/micropods"
)

// NewValidateCommand creates the validate command
func NewValidateCommand(opts *globalOptions) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that the pods compose",
		Long: `Compose every pod and report composition errors: missing remote addresses,
federation names that do not match their remote table entry, duplicate pods or
ports, and incompatible singleton ranges.

With --all every environment is checked, not only the selected one.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			envs := []micropods.Environment{}
			if all {
				envs = micropods.Environments()
			} else {
				env, err := cfg.Env()
				if err != nil {
					return err
				}
				envs = append(envs, env)
			}

			logger := opts.logger(cmd)
			for _, env := range envs {
				cfg.Environment = env.String()
				comp, err := cfg.Compose(logger)
				if err != nil {
					return fmt.Errorf("%s: %w", env, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d pods)\n", env, len(comp.Names()))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Validate every environment")
	return cmd
}
