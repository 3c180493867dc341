package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/micropods"
	"github.com/GoCodeAlone/micropods/assets"
)

// NewServeCommand creates the serve command
func NewServeCommand(opts *globalOptions) *cobra.Command {
	var (
		pods []string
		dist string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve pod assets with permissive CORS",
		Long: `Start one asset server per pod on the pod's port. Each server answers
preflight requests, sets the cross-origin headers on every response, serves
the pod's build output and publishes its remote manifest.

Without --pod every pod except the shell pod is served; the shell pod is
served by the shell command on the same port.

The --dist template replaces {pod} with the short pod name.

Examples:
  micropods serve
  micropods serve --pod dashboard --pod ui --dist ./pods/{pod}/dist`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			logger := opts.logger(cmd)
			comp, err := cfg.Compose(logger)
			if err != nil {
				return err
			}
			names := servedPods(comp.Names(), cfg.Shell.Pod, pods)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var servers []*assets.Server
			defer func() {
				shutdown, cancel := context.WithTimeout(context.Background(), cfg.Shell.ShutdownTimeout)
				defer cancel()
				for _, s := range servers {
					if err := s.Stop(shutdown); err != nil {
						logger.Warn("Failed to stop asset server", "error", err)
					}
				}
			}()

			for _, name := range names {
				d, err := comp.Descriptor(name)
				if err != nil {
					return err
				}
				dir := distDir(dist, d.Name)
				if dir != "" {
					if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
						logger.Warn("Build output missing, serving manifest only", "pod", d.Name, "dir", dir)
						dir = ""
					}
				}
				s, err := assets.New(d, assets.Config{
					Dir:             dir,
					Host:            cfg.Shell.Host,
					ShutdownTimeout: cfg.Shell.ShutdownTimeout,
				}, logger)
				if err != nil {
					return err
				}
				if err := s.Start(ctx); err != nil {
					return err
				}
				servers = append(servers, s)
				fmt.Fprintf(cmd.OutOrStdout(), "%s: http://%s%s\n", d.Name, s.Addr(), micropods.ManifestPath)
			}

			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&pods, "pod", "p", nil, "Pod to serve (repeatable, default all but the shell pod)")
	cmd.Flags().StringVar(&dist, "dist", "pods/{pod}/dist", "Build output directory template")
	return cmd
}

// servedPods returns the requested pods, or every composed pod except the
// shell pod when none was requested.
func servedPods(composed []string, shellPod string, requested []string) []string {
	if len(requested) > 0 {
		return requested
	}
	shellPod = micropods.CanonicalPodName(shellPod)
	names := make([]string, 0, len(composed))
	for _, name := range composed {
		if name != shellPod {
			names = append(names, name)
		}
	}
	return names
}

func distDir(template, pod string) string {
	if template == "" {
		return ""
	}
	return strings.ReplaceAll(template, "{pod}", micropods.ShortPodName(pod))
}
