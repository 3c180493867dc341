package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/micropods/i18n"
	"github.com/GoCodeAlone/micropods/shell"
)

// NewShellCommand creates the shell command
func NewShellCommand(opts *globalOptions) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Run the shell that composes the pods",
		Long: `Run the composition root. The shell loads the translation bundles of the
pods that expose one, mounts each remote pod on its route the first time the
route is requested, and turns success notifications into toasts.

Pods publish events by POSTing CloudEvents to /events.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Shell.Port = port
			}
			logger := opts.logger(cmd)

			s, err := shell.New(shell.Options{Config: cfg, Logger: logger, NewEngine: i18n.Initialize})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := s.Start(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "shell: http://%s/\n", s.Addr())

			<-ctx.Done()
			shutdown, cancel := context.WithTimeout(context.Background(), cfg.Shell.ShutdownTimeout)
			defer cancel()
			return s.Close(shutdown)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Override the shell port")
	return cmd
}
