package i18n

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBundleFileFormats(t *testing.T) {
	t.Run("json namespaces", func(t *testing.T) {
		b, err := LoadBundleFile("pod_dashboard", "testdata/dashboard.json")
		require.NoError(t, err)
		assert.Equal(t, "pod_dashboard", b.Pod)
		assert.Equal(t, []string{"en", "ro"}, b.Languages())
		assert.Equal(t, "Welcome to the dashboard", b.Messages["en"]["pod_dashboard:welcomeMessage"])
		assert.Equal(t, "Total: {{count}}", b.Messages["ro"]["pod_dashboard:stats.total"])
	})

	t.Run("yaml mixed flat and namespaced", func(t *testing.T) {
		b, err := LoadBundleFile("pod_invoices", "testdata/invoices.yaml")
		require.NoError(t, err)
		assert.Equal(t, "Facturi", b.Messages["ro"]["pod_invoices:title"])
		assert.Equal(t, "Hello", b.Messages["en"]["greeting"])
	})

	t.Run("toml scalars", func(t *testing.T) {
		b, err := LoadBundleFile("pod_server", "testdata/server.toml")
		require.NoError(t, err)
		assert.Equal(t, "3", b.Messages["en"]["retries"])
		assert.Equal(t, "Connected", b.Messages["en"]["pod_server:status"])
	})
}

func TestLoadBundleErrors(t *testing.T) {
	_, err := LoadBundleFile("x", "testdata/missing.ini")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = LoadBundleFile("x", "testdata/missing.json")
	require.Error(t, err)

	_, err = LoadBundle("x", strings.NewReader(`{"en": "flat"}`), FormatJSON)
	assert.ErrorIs(t, err, ErrInvalidBundle)

	_, err = LoadBundle("x", strings.NewReader(`{"en": {"list": ["a"]}}`), FormatJSON)
	assert.ErrorIs(t, err, ErrInvalidBundle)

	_, err = LoadBundle("x", strings.NewReader(`{not json`), FormatJSON)
	assert.ErrorIs(t, err, ErrInvalidBundle)

	_, err = LoadBundle("x", strings.NewReader(`{}`), Format("xml"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = LoadBundle("x", strings.NewReader(`{"not a language!": {"a": "b"}}`), FormatJSON)
	assert.ErrorIs(t, err, ErrInvalidLanguage)
}

func TestCanonicalLanguage(t *testing.T) {
	code, err := CanonicalLanguage("en-us")
	require.NoError(t, err)
	assert.Equal(t, "en-US", code)

	code, err = CanonicalLanguage(" ro ")
	require.NoError(t, err)
	assert.Equal(t, "ro", code)

	_, err = CanonicalLanguage("")
	assert.ErrorIs(t, err, ErrInvalidLanguage)
}

func TestNewBundleMergesAliases(t *testing.T) {
	b, err := NewBundle("p", map[string]map[string]string{
		"EN": {"a": "1"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1"}, b.Messages["en"])
}
