package shell

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"sync"

	"github.com/GoCodeAlone/micropods"
	"github.com/GoCodeAlone/micropods/i18n"
)

// View is the content of one route. A view is mounted once, before its first
// render, and unmounted when the shell closes.
type View interface {
	Mount(ctx context.Context, host *Host) error
	Render(w io.Writer, r *http.Request) error
	Unmount()
}

// StaticView renders content owned by the shell itself. Heading and Body are
// translation keys; keys without an entry render as written.
type StaticView struct {
	Heading string
	Body    string

	mu   sync.RWMutex
	host *Host
}

var staticTemplate = template.Must(template.New("static").Parse(
	`<section class="static-view"><h1>{{.Heading}}</h1>{{if .Body}}<p>{{.Body}}</p>{{end}}</section>`))

func (v *StaticView) Mount(ctx context.Context, host *Host) error {
	v.mu.Lock()
	v.host = host
	v.mu.Unlock()
	return nil
}

func (v *StaticView) Render(w io.Writer, _ *http.Request) error {
	v.mu.RLock()
	host := v.host
	v.mu.RUnlock()
	heading, body := v.Heading, v.Body
	if host != nil && host.Translations != nil {
		heading, body = host.Translations.T(heading), host.Translations.T(body)
	}
	return staticTemplate.Execute(w, struct{ Heading, Body string }{heading, body})
}

func (v *StaticView) Unmount() {
	v.mu.Lock()
	v.host = nil
	v.mu.Unlock()
}

// SharedProvider is the instance a pod contributes to the shared scope: the
// copy of a package bundled in that pod's build.
type SharedProvider struct {
	Pod     string
	Package string
	Version string
	Entry   string
}

// RemoteView mounts one exposed module of a remote pod. Mounting loads the
// pod, registers its shared packages in the host scope and follows language
// changes for as long as the view is mounted.
type RemoteView struct {
	Pod    string
	Module string

	loader *Loader

	mu       sync.RWMutex
	pod      *RemotePod
	expose   micropods.ManifestExpose
	language string
	binding  *i18n.Binding
}

// NewRemoteView creates a view of module ("./App") exposed by pod.
func NewRemoteView(loader *Loader, pod, module string) *RemoteView {
	return &RemoteView{Pod: micropods.CanonicalPodName(pod), Module: module, loader: loader}
}

func (v *RemoteView) Mount(ctx context.Context, host *Host) error {
	if err := host.Validate(); err != nil {
		return err
	}
	pod, err := v.loader.Load(ctx, v.Pod)
	if err != nil {
		return err
	}
	expose, ok := pod.Manifest.Expose(v.Module)
	if !ok {
		return fmt.Errorf("%w: %s does not expose %s", ErrModuleNotExposed, v.Pod, v.Module)
	}

	// A failed mount leaves the scope untouched: check every package first.
	registry := host.Shared.Registry()
	if registry == nil {
		return micropods.ErrRegistryNil
	}
	var providers []SharedProvider
	for _, s := range pod.Manifest.Shared {
		if _, declared := registry.Lookup(s.Name); !declared || s.Version == "" {
			continue
		}
		if err := registry.Satisfies(s.Name, s.Version); err != nil {
			return fmt.Errorf("pod %s: %w", pod.Name, err)
		}
		providers = append(providers, SharedProvider{Pod: pod.Name, Package: s.Name, Version: s.Version, Entry: pod.RemoteEntryURL()})
	}

	binding, err := i18n.Bind(host.Translations, func(e *i18n.Engine) {
		v.mu.Lock()
		v.language = e.Language()
		v.mu.Unlock()
	})
	if err != nil {
		return err
	}
	for _, p := range providers {
		if _, err := host.Shared.Provide(pod.Name, p.Package, p.Version, p); err != nil {
			binding.Close()
			return err
		}
	}

	v.mu.Lock()
	v.pod, v.expose, v.binding = pod, expose, binding
	v.mu.Unlock()
	return nil
}

var remoteTemplate = template.Must(template.New("remote").Parse(
	`<div id="{{.ID}}" class="remote-view" data-pod="{{.Pod}}" data-module="{{.Module}}" data-language="{{.Language}}">` +
		`<script type="module" src="{{.Entry}}"></script>` +
		`<script type="module" src="{{.Script}}"></script>` +
		`</div>`))

func (v *RemoteView) Render(w io.Writer, _ *http.Request) error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.pod == nil {
		return fmt.Errorf("%w: %s", ErrNotMounted, v.Pod)
	}
	return remoteTemplate.Execute(w, map[string]string{
		"ID":       "pod-" + micropods.ShortPodName(v.pod.Name),
		"Pod":      v.pod.Name,
		"Module":   v.Module,
		"Language": v.language,
		"Entry":    v.pod.RemoteEntryURL(),
		"Script":   v.pod.BaseURL + "/" + v.expose.Path,
	})
}

// Language returns the language the view last rendered for.
func (v *RemoteView) Language() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.language
}

func (v *RemoteView) Unmount() {
	v.mu.Lock()
	binding := v.binding
	v.pod, v.binding = nil, nil
	v.mu.Unlock()
	if binding != nil {
		binding.Close()
	}
}
