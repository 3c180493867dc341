package shell

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/micropods"
)

var remotePods = []string{"pod_ui", "pod_dashboard", "pod_server", "pod_invoices"}

// fakeRemotes serves the manifests and bundles of the remote pods under
// /<short name>/.
type fakeRemotes struct {
	srv *httptest.Server

	mu        sync.Mutex
	manifests map[string][]byte
	files     map[string][]byte
	hits      map[string]int
	hang      map[string]bool
}

func newFakeRemotes(t *testing.T) *fakeRemotes {
	t.Helper()
	f := &fakeRemotes{
		manifests: map[string][]byte{},
		files:     map[string][]byte{},
		hits:      map[string]int{},
		hang:      map[string]bool{},
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeRemotes) serve(w http.ResponseWriter, r *http.Request) {
	short, file, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	f.mu.Lock()
	f.hits[r.URL.Path]++
	hang := f.hang[short]
	var body []byte
	var ok bool
	if "/"+file == micropods.ManifestPath {
		body, ok = f.manifests[short]
	} else {
		body, ok = f.files[r.URL.Path]
	}
	f.mu.Unlock()

	if hang {
		<-r.Context().Done()
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func (f *fakeRemotes) manifestHits(pod string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits["/"+micropods.ShortPodName(pod)+micropods.ManifestPath]
}

func (f *fakeRemotes) setManifest(pod string, m *micropods.Manifest) {
	data, err := m.JSON()
	if err != nil {
		panic(err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.manifests[micropods.ShortPodName(pod)] = data
}

func (f *fakeRemotes) removeManifest(pod string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.manifests, micropods.ShortPodName(pod))
}

func (f *fakeRemotes) setFile(pod, name, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files["/"+micropods.ShortPodName(pod)+"/"+name] = []byte(body)
}

func (f *fakeRemotes) hangOn(pod string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hang[micropods.ShortPodName(pod)] = true
}

// config points the development remote table at the fake server.
func (f *fakeRemotes) config() *micropods.Config {
	cfg := micropods.DefaultConfig()
	cfg.Shell.LoadTimeout = 2 * time.Second
	cfg.Shell.Host = "127.0.0.1"
	cfg.Shell.Port = 0
	for _, pod := range remotePods {
		cfg.Remotes["development"][pod] = pod + "@" + f.srv.URL + "/" + micropods.ShortPodName(pod) + micropods.ManifestPath
	}
	return cfg
}

const dashboardBundle = `{
  "en": {"pod_dashboard": {"welcomeMessage": "Welcome to the dashboard"}},
  "ro": {"pod_dashboard": {"welcomeMessage": "Bine ai venit"}}
}`

const invoicesBundle = `{
  "en": {"pod_invoices": {"title": "Invoices"}},
  "ro": {"pod_invoices": {"title": "Facturi"}}
}`

// publishAll serves a manifest for every remote pod, generated from the
// composition of cfg, plus the translation bundles.
func (f *fakeRemotes) publishAll(t *testing.T, cfg *micropods.Config) {
	t.Helper()
	comp, err := cfg.Compose(nil)
	require.NoError(t, err)
	for _, pod := range remotePods {
		d, err := comp.Descriptor(pod)
		require.NoError(t, err)
		f.setManifest(pod, micropods.NewManifest(d, nil))
	}
	f.setFile("pod_dashboard", "translations.json", dashboardBundle)
	f.setFile("pod_invoices", "translations.json", invoicesBundle)
}

func newTestLoader(t *testing.T, cfg *micropods.Config) *Loader {
	t.Helper()
	opts, err := cfg.BuildOptions(nil)
	require.NoError(t, err)
	l, err := NewLoader(LoaderOptions{
		Environment: opts.Environment,
		Remotes:     opts.Remotes,
		Shared:      opts.Shared,
		Timeout:     cfg.Shell.LoadTimeout,
	})
	require.NoError(t, err)
	return l
}
