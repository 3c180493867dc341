package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/micropods"
	"github.com/GoCodeAlone/micropods/watch"
)

// NewWatchCommand creates the watch command
func NewWatchCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-validate the composition whenever the configuration file changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.path()
			if path == "" {
				return errors.New("watch needs --config or MICROPODS_CONFIG")
			}
			var env micropods.Environment
			if opts.environment != "" {
				parsed, err := micropods.ParseEnvironment(opts.environment)
				if err != nil {
					return err
				}
				env = parsed
			}
			w, err := watch.New(watch.Options{
				Path:        path,
				Section:     opts.section,
				Environment: env,
				Logger:      opts.logger(cmd),
			}, func(res watch.Result) {
				if res.Err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s invalid: %v\n", res.At.Format("15:04:05"), res.Err)
					return
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s: ok (%d pods)\n",
					res.At.Format("15:04:05"), res.Composition.Environment, len(res.Composition.Names()))
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return w.Run(ctx)
		},
	}
	return cmd
}
