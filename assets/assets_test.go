package assets

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/micropods"
)

func dashboardDescriptor(t *testing.T) *micropods.BuildDescriptor {
	t.Helper()
	comp, err := micropods.DefaultConfig().Compose(nil)
	require.NoError(t, err)
	d, err := comp.Descriptor("pod_dashboard")
	require.NoError(t, err)
	return d
}

func assertCORS(t *testing.T, h http.Header) {
	t.Helper()
	assert.Equal(t, "*", h.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, PUT, DELETE, PATCH, OPTIONS", h.Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "X-Requested-With, content-type, Authorization", h.Get("Access-Control-Allow-Headers"))
}

func TestGeneratedManifest(t *testing.T) {
	s, err := New(dashboardDescriptor(t), Config{SharedVersions: map[string]string{"react": "18.13.2"}}, nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, micropods.ManifestPath, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assertCORS(t, rec.Header())

	m, err := micropods.ParseManifest(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "pod_dashboard", m.Name)
	require.NoError(t, m.CheckShared(micropods.DefaultSharedRegistry()))
	expose, ok := m.Expose("./translations")
	require.True(t, ok)
	assert.Equal(t, "translations.json", expose.Path)
	for _, shared := range m.Shared {
		if shared.Name == "react" {
			assert.Equal(t, "18.13.2", shared.Version)
		}
	}
}

func TestPreflight(t *testing.T) {
	s, err := New(dashboardDescriptor(t), Config{}, nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/remoteEntry.js", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assertCORS(t, rec.Header())
}

func TestServesDistWithCORS(t *testing.T) {
	s, err := New(dashboardDescriptor(t), Config{Dir: "testdata/dist"}, nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/remoteEntry.js", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "remote entry")
	assertCORS(t, rec.Header())

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing.js", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assertCORS(t, rec.Header())
}

func TestBuiltManifestTakesPrecedence(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mf-manifest.json"), []byte(`{"name":"pod_dashboard","id":"built"}`), 0o600))
	s, err := New(dashboardDescriptor(t), Config{Dir: dir}, nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, micropods.ManifestPath, nil))
	assert.Contains(t, rec.Body.String(), `"id":"built"`)
}

func TestHeaderOverrides(t *testing.T) {
	pod := micropods.DefaultPods()[2]
	pod.Tools.Headers = map[string]string{
		"Cache-Control":               "no-store",
		"Access-Control-Allow-Origin": "https://app.example.com",
	}
	d, err := micropods.BuildConfig(pod, micropods.BuildOptions{Environment: micropods.Development})
	require.NoError(t, err)
	d.Server.Headers["Access-Control-Allow-Methods"] = "GET"
	s, err := New(d, Config{}, nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, micropods.ManifestPath, nil))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assertCORS(t, rec.Header())
}

func TestStartStop(t *testing.T) {
	s, err := New(dashboardDescriptor(t), Config{Host: "127.0.0.1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3002, s.config.Port)
	s.config.Port = 0

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	resp, err := http.Get("http://" + s.Addr() + micropods.ManifestPath)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "pod_dashboard")
	assertCORS(t, resp.Header)
	require.NoError(t, s.Stop(ctx))
}

func TestNewRequiresDescriptor(t *testing.T) {
	_, err := New(nil, Config{}, nil)
	assert.ErrorIs(t, err, ErrNoDescriptor)
}
