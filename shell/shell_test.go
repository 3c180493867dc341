package shell

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/micropods"
)

func newTestShell(t *testing.T) (*Shell, *fakeRemotes) {
	t.Helper()
	f := newFakeRemotes(t)
	cfg := f.config()
	f.publishAll(t, cfg)
	s, err := New(Options{Config: cfg})
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background()))
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s, f
}

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	body, _ := io.ReadAll(rec.Body)
	return rec.Code, string(body)
}

func TestShellRouteTable(t *testing.T) {
	s, _ := newTestShell(t)
	var paths []string
	for _, r := range s.Routes() {
		paths = append(paths, r.Path)
	}
	assert.Equal(t, []string{"/", "/dashboard", "/invoices"}, paths)
}

func TestShellHomePage(t *testing.T) {
	s, _ := newTestShell(t)
	code, body := get(t, s.Handler(), "/")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "This is the shell module")
	assert.Contains(t, body, `href="/dashboard"`)
	assert.Contains(t, body, `action="/language/ro"`)
	for _, pod := range []string{"pod_shell", "pod_ui", "pod_server", "pod_dashboard", "pod_invoices"} {
		assert.Contains(t, body, pod, "legend lists every pod")
	}
}

func TestShellRemotePage(t *testing.T) {
	s, f := newTestShell(t)
	code, body := get(t, s.Handler(), "/dashboard")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `data-pod="pod_dashboard"`)
	assert.Contains(t, body, f.srv.URL+"/dashboard/remoteEntry.js")
	assert.Contains(t, body, `data-language="en"`)
}

func TestShellNotFound(t *testing.T) {
	s, _ := newTestShell(t)
	code, body := get(t, s.Handler(), "/nowhere")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, body, "Not found")
}

func TestShellBoundaryIsolatesFailingPod(t *testing.T) {
	f := newFakeRemotes(t)
	cfg := f.config()
	f.publishAll(t, cfg)
	f.removeManifest("pod_invoices")
	s, err := New(Options{Config: cfg})
	require.NoError(t, err)
	defer s.Close(context.Background())
	require.NoError(t, s.Init(context.Background()))

	code, body := get(t, s.Handler(), "/invoices")
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Contains(t, body, DefaultFallback)
	assert.Contains(t, body, `href="/dashboard"`, "chrome still renders")

	code, body = get(t, s.Handler(), "/dashboard")
	assert.Equal(t, http.StatusOK, code)
	assert.NotContains(t, body, DefaultFallback)
}

func TestShellTranslationsAndLanguageSwitch(t *testing.T) {
	s, _ := newTestShell(t)
	engine := s.Host().Translations
	require.NotNil(t, engine)
	assert.Equal(t, "Welcome to the dashboard", engine.T("pod_dashboard:welcomeMessage"))
	assert.Equal(t, "Invoices", engine.T("pod_invoices:title"))

	_, _ = get(t, s.Handler(), "/dashboard")

	req := httptest.NewRequest(http.MethodPost, "/language/ro", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"language":"ro"}`, rec.Body.String())

	assert.Equal(t, "Bine ai venit", engine.T("pod_dashboard:welcomeMessage"))
	view := s.Routes()[1].View.(*RemoteView)
	assert.Equal(t, "ro", view.Language(), "mounted views follow language changes")

	_, body := get(t, s.Handler(), "/dashboard")
	assert.Contains(t, body, `data-language="ro"`)
}

func TestShellLanguageSwitchFromForm(t *testing.T) {
	s, _ := newTestShell(t)
	req := httptest.NewRequest(http.MethodPost, "/language/ro", nil)
	req.Header.Set("Referer", "/invoices")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/invoices", rec.Header().Get("Location"))
}

func postEvent(t *testing.T, h http.Handler, eventType, body string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("ce-specversion", "1.0")
	req.Header.Set("ce-id", "evt-1")
	req.Header.Set("ce-source", "pod_dashboard")
	req.Header.Set("ce-type", eventType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestShellEventIngressDrivesToasts(t *testing.T) {
	s, _ := newTestShell(t)
	h := s.Handler()

	code := postEvent(t, h, "shell/notification", `{"type":"success","content":"Event sent from pod_dashboard"}`)
	assert.Equal(t, http.StatusAccepted, code)
	code = postEvent(t, h, "shell/notification", `{"type":"error","content":"ignored"}`)
	assert.Equal(t, http.StatusAccepted, code)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/toasts", nil))
	var toasts []Toast
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &toasts))
	require.Len(t, toasts, 1)
	assert.Equal(t, "Event sent from pod_dashboard", toasts[0].Content)
	assert.Equal(t, ToastPosition, toasts[0].Position)

	_, body := get(t, h, "/")
	assert.Contains(t, body, "Event sent from pod_dashboard")
}

func TestShellEventIngressRejectsGarbage(t *testing.T) {
	s, _ := newTestShell(t)
	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader("hello"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShellSharedScopeFirstProviderWins(t *testing.T) {
	s, _ := newTestShell(t)
	_, _ = get(t, s.Handler(), "/dashboard")
	_, _ = get(t, s.Handler(), "/invoices")

	var provider SharedProvider
	require.NoError(t, s.Host().Shared.Resolve("react", &provider))
	assert.Equal(t, "pod_dashboard", provider.Pod)
	assert.Equal(t, "18.13.1", provider.Version)

	st := s.Status()
	assert.Equal(t, "18.13.1", st.Shared["react"])
	assert.Contains(t, st.Loaded, "pod_invoices")
	assert.Equal(t, "development", st.Environment)
}

func TestShellRequiresInit(t *testing.T) {
	f := newFakeRemotes(t)
	s, err := New(Options{Config: f.config()})
	require.NoError(t, err)
	defer s.Close(context.Background())
	code, _ := get(t, s.Handler(), "/")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestShellServesWhileInitializing(t *testing.T) {
	f := newFakeRemotes(t)
	cfg := f.config()
	f.publishAll(t, cfg)
	s, err := New(Options{Config: cfg})
	require.NoError(t, err)
	defer s.Close(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Init(context.Background()) }()

	for initializing := true; initializing; {
		select {
		case err := <-done:
			require.NoError(t, err)
			initializing = false
		default:
		}
		code, _ := get(t, s.Handler(), "/")
		assert.Contains(t, []int{http.StatusOK, http.StatusServiceUnavailable}, code)
		_ = s.Status()
	}

	code, _ := get(t, s.Handler(), "/")
	assert.Equal(t, http.StatusOK, code)
	assert.NotNil(t, s.Host().Translations)
}

func TestShellInitSurvivesMissingBundles(t *testing.T) {
	f := newFakeRemotes(t)
	s, err := New(Options{Config: f.config()})
	require.NoError(t, err)
	defer s.Close(context.Background())

	require.NoError(t, s.Init(context.Background()))
	assert.Equal(t, "pod_dashboard:welcomeMessage", s.Host().Translations.T("pod_dashboard:welcomeMessage"))
}

func TestNewShellRejectsBrokenComposition(t *testing.T) {
	cfg := micropods.DefaultConfig()
	cfg.Remotes["development"]["pod_invoices"] = "pod_invioces@http://localhost:3004/mf-manifest.json"
	_, err := New(Options{Config: cfg})
	assert.ErrorIs(t, err, micropods.ErrPodNameMismatch)

	cfg = micropods.DefaultConfig()
	cfg.Shell.Pod = "pod_missing"
	_, err = New(Options{Config: cfg})
	assert.ErrorIs(t, err, ErrNoShellPod)
}

func TestShellViewOverride(t *testing.T) {
	f := newFakeRemotes(t)
	cfg := f.config()
	s, err := New(Options{Config: cfg, Views: map[string]View{
		"/dashboard": &StaticView{Heading: "pod_dashboard:welcomeMessage"},
	}})
	require.NoError(t, err)
	defer s.Close(context.Background())
	require.NoError(t, s.Init(context.Background()))

	code, body := get(t, s.Handler(), "/dashboard")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "pod_dashboard:welcomeMessage")
}

func TestShellStartAndClose(t *testing.T) {
	f := newFakeRemotes(t)
	cfg := f.config()
	f.publishAll(t, cfg)
	s, err := New(Options{Config: cfg})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	resp, err := http.Get("http://" + s.Addr() + "/status")
	require.NoError(t, err)
	var st Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	resp.Body.Close()
	assert.Equal(t, []string{"/", "/dashboard", "/invoices"}, st.Routes)

	require.NoError(t, s.Close(ctx))
	assert.Equal(t, 0, s.Host().Bus.SubscriberCount("shell/notification"))
}
