package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/GoCodeAlone/micropods"
	"github.com/GoCodeAlone/micropods/i18n"
)

// maxManifestSize bounds manifest and bundle downloads.
const maxManifestSize = 4 << 20

// RemotePod is a successfully loaded pod.
type RemotePod struct {
	Name     string
	Address  micropods.RemoteAddress
	BaseURL  string
	Manifest *micropods.Manifest

	// Bundle is nil when the pod exposes no translations.
	Bundle *i18n.Bundle

	LoadedAt time.Time
}

// RemoteEntryURL is the absolute URL of the pod's remote entry script.
func (p *RemotePod) RemoteEntryURL() string {
	return p.BaseURL + "/" + p.Manifest.RemoteEntryPath()
}

// LoaderOptions configure a Loader.
type LoaderOptions struct {
	Environment micropods.Environment
	Remotes     micropods.RemoteTable
	Shared      *micropods.SharedRegistry
	Client      *http.Client

	// Timeout bounds one Load. Zero waits as long as ctx allows.
	Timeout time.Duration
	Logger  micropods.Logger
}

// Loader fetches and validates remote pods on demand. Successful loads are
// cached; a failed load is reported once and attempted again only when Load
// is called again.
type Loader struct {
	env     micropods.Environment
	remotes micropods.RemoteTable
	shared  *micropods.SharedRegistry
	client  *http.Client
	timeout time.Duration
	logger  micropods.Logger

	mu      sync.Mutex
	entries map[string]*loadEntry
}

type loadEntry struct {
	done chan struct{}
	pod  *RemotePod
	err  error
}

// NewLoader creates a loader.
func NewLoader(opts LoaderOptions) (*Loader, error) {
	if !opts.Environment.Valid() {
		return nil, fmt.Errorf("%w: %q", micropods.ErrUnknownEnvironment, opts.Environment)
	}
	if opts.Remotes == nil {
		opts.Remotes = micropods.DefaultRemoteTable()
	}
	if opts.Shared == nil {
		opts.Shared = micropods.DefaultSharedRegistry()
	}
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	return &Loader{
		env:     opts.Environment,
		remotes: opts.Remotes,
		shared:  opts.Shared,
		client:  opts.Client,
		timeout: opts.Timeout,
		logger:  micropods.LoggerOrNop(opts.Logger),
		entries: make(map[string]*loadEntry),
	}, nil
}

// Load returns the pod, fetching it on first use. Concurrent calls for the
// same pod share one fetch.
func (l *Loader) Load(ctx context.Context, pod string) (*RemotePod, error) {
	name := micropods.CanonicalPodName(pod)

	l.mu.Lock()
	if e, ok := l.entries[name]; ok {
		l.mu.Unlock()
		select {
		case <-e.done:
			return e.pod, e.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	e := &loadEntry{done: make(chan struct{})}
	l.entries[name] = e
	l.mu.Unlock()

	e.pod, e.err = l.load(ctx, name)
	if e.err != nil {
		l.mu.Lock()
		delete(l.entries, name)
		l.mu.Unlock()
	}
	close(e.done)
	return e.pod, e.err
}

func (l *Loader) load(ctx context.Context, name string) (*RemotePod, error) {
	addr, err := l.remotes.Address(name, l.env)
	if err != nil {
		return nil, err
	}
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	started := time.Now()
	l.logger.Debug("Loading remote pod", "pod", name, "url", addr.URL)

	data, err := l.fetch(ctx, addr.URL)
	if err != nil {
		l.logger.Error("Failed to load remote pod", "pod", name, "url", addr.URL, "error", err)
		return nil, fmt.Errorf("pod %s: %w", name, err)
	}
	manifest, err := micropods.ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("pod %s: %w", name, err)
	}

	published := addr.Name
	if published == "" {
		published = name
	}
	if manifest.Name != published {
		return nil, fmt.Errorf("%w: %s manifest at %s is named %q", micropods.ErrPodNameMismatch, name, addr.URL, manifest.Name)
	}
	if err := manifest.CheckShared(l.shared); err != nil {
		return nil, err
	}

	rp := &RemotePod{
		Name:     name,
		Address:  addr,
		BaseURL:  addr.BaseURL(),
		Manifest: manifest,
	}

	if expose, ok := manifest.Expose(micropods.TranslationsModule); ok {
		bundle, err := l.loadBundle(ctx, rp, expose)
		if err != nil {
			return nil, fmt.Errorf("pod %s: %w", name, err)
		}
		rp.Bundle = &bundle
	}

	rp.LoadedAt = time.Now()
	l.logger.Info("Loaded remote pod", "pod", name, "exposes", len(manifest.Exposes),
		"translations", rp.Bundle != nil, "duration", time.Since(started))
	return rp, nil
}

func (l *Loader) loadBundle(ctx context.Context, rp *RemotePod, expose micropods.ManifestExpose) (i18n.Bundle, error) {
	path := expose.Path
	if path == "" {
		path = "translations.json"
	}
	format, err := i18n.FormatFromPath(path)
	if err != nil {
		return i18n.Bundle{}, err
	}
	data, err := l.fetch(ctx, rp.BaseURL+"/"+path)
	if err != nil {
		return i18n.Bundle{}, err
	}
	return i18n.ParseBundle(rp.Name, data, format)
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrManifestUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := l.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s: %w", ErrManifestUnavailable, url, context.DeadlineExceeded)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrManifestUnavailable, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: status %d", ErrManifestUnavailable, url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrManifestUnavailable, url, err)
	}
	return data, nil
}

// Loaded returns the names of the pods loaded successfully, sorted.
func (l *Loader) Loaded() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var names []string
	for name, e := range l.entries {
		select {
		case <-e.done:
			if e.err == nil {
				names = append(names, name)
			}
		default:
		}
	}
	slices.Sort(names)
	return names
}

// Forget drops the cached load of pod so the next Load fetches it again.
func (l *Loader) Forget(pod string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, micropods.CanonicalPodName(pod))
}
