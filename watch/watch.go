// Package watch re-composes the application whenever its configuration file
// changes on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/GoCodeAlone/micropods"
)

var ErrNoPath = errors.New("watch needs a configuration file path")

// Result is the outcome of one reload. Err is set when the file could not be
// loaded or the composition failed; Config and Composition are then nil.
type Result struct {
	Config      *micropods.Config
	Composition *micropods.Composition
	Err         error
	At          time.Time
}

// Options configure a Watcher.
type Options struct {
	Path    string
	Section string

	// Environment, when set, replaces the environment named in the file.
	Environment micropods.Environment

	// Debounce coalesces bursts of file events. Defaults to 200ms.
	Debounce time.Duration

	Lookup func(string) (string, bool)
	Logger micropods.Logger
}

// Watcher reloads a configuration file on change.
type Watcher struct {
	path     string
	opts     Options
	onChange func(Result)
	logger   micropods.Logger
}

// New creates a watcher that reports every reload to onChange.
func New(opts Options, onChange func(Result)) (*Watcher, error) {
	if opts.Path == "" {
		return nil, ErrNoPath
	}
	abs, err := filepath.Abs(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", opts.Path, err)
	}
	if opts.Environment != "" && !opts.Environment.Valid() {
		return nil, fmt.Errorf("%w: %q", micropods.ErrUnknownEnvironment, opts.Environment)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 200 * time.Millisecond
	}
	if onChange == nil {
		onChange = func(Result) {}
	}
	return &Watcher{path: abs, opts: opts, onChange: onChange, logger: micropods.LoggerOrNop(opts.Logger)}, nil
}

// Reload loads and composes the configuration once.
func (w *Watcher) Reload() Result {
	res := Result{At: time.Now()}
	cfg, err := micropods.LoadConfig(micropods.LoadOptions{Path: w.path, Section: w.opts.Section, Lookup: w.opts.Lookup})
	if err != nil {
		res.Err = err
		return res
	}
	if w.opts.Environment != "" {
		cfg.Environment = w.opts.Environment.String()
	}
	comp, err := cfg.Compose(w.logger)
	if err != nil {
		res.Err = err
		return res
	}
	res.Config, res.Composition = cfg, comp
	return res
}

// Run reports an initial reload, then one reload per burst of changes to the
// file, until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fw.Close()

	// Editors often replace the file, so watch its directory.
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}
	w.logger.Info("Watching configuration", "path", w.path)
	w.report(w.Reload())

	timer := time.NewTimer(w.opts.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.logger.Debug("Configuration changed", "path", ev.Name, "op", ev.Op.String())
			timer.Reset(w.opts.Debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("File watcher error", "error", err)
		case <-timer.C:
			w.report(w.Reload())
		}
	}
}

func (w *Watcher) report(res Result) {
	if res.Err != nil {
		w.logger.Error("Configuration reload failed", "path", w.path, "error", res.Err)
	} else {
		w.logger.Info("Configuration reloaded", "path", w.path, "pods", len(res.Composition.Names()))
	}
	w.onChange(res)
}
