package i18n

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable() ResourceTable {
	return ResourceTable{
		"en": {"pod_dashboard:welcomeMessage": "Welcome", "total": "Total: {{count}} of {{ max }}"},
		"ro": {"pod_dashboard:welcomeMessage": "Bine ai venit"},
	}
}

func resetDefault(t *testing.T) {
	t.Helper()
	defaultMu.Lock()
	defaultEngine = nil
	defaultMu.Unlock()
	t.Cleanup(func() {
		defaultMu.Lock()
		defaultEngine = nil
		defaultMu.Unlock()
	})
}

func TestEngineTranslate(t *testing.T) {
	e := New(testTable(), "en")
	assert.Equal(t, "en", e.Language())
	assert.Equal(t, "Welcome", e.T("pod_dashboard:welcomeMessage"))
	assert.Equal(t, "missingKey", e.T("missingKey"))
	assert.True(t, e.Exists("total"))
	assert.False(t, e.Exists("missingKey"))
}

func TestEngineTf(t *testing.T) {
	e := New(testTable(), "en")
	assert.Equal(t, "Total: 3 of 10", e.Tf("total", map[string]any{"count": 3, "max": 10}))
	assert.Equal(t, "Total: 3 of {{ max }}", e.Tf("total", map[string]any{"count": 3}))
	assert.Equal(t, "Total: {{count}} of {{ max }}", e.Tf("total", nil))
}

func TestChangeLanguage(t *testing.T) {
	e := New(testTable(), "en")

	var got []string
	e.OnLanguageChanged(func(lang string) { got = append(got, "first:"+lang) })
	e.OnLanguageChanged(func(lang string) { got = append(got, "second:"+lang) })

	e.ChangeLanguage("ro")
	assert.Equal(t, []string{"first:ro", "second:ro"}, got)
	assert.Equal(t, "Bine ai venit", e.T("pod_dashboard:welcomeMessage"))
}

func TestChangeLanguageUnknownDegradesToRawKeys(t *testing.T) {
	e := New(testTable(), "en")
	e.ChangeLanguage("de")
	assert.Equal(t, "de", e.Language())
	assert.Equal(t, "pod_dashboard:welcomeMessage", e.T("pod_dashboard:welcomeMessage"))
}

func TestFallbackLanguage(t *testing.T) {
	e := New(testTable(), "ro", WithFallbackLanguage("en"))
	assert.Equal(t, "Bine ai venit", e.T("pod_dashboard:welcomeMessage"))
	assert.Equal(t, "Total: {{count}} of {{ max }}", e.T("total"))
	assert.Equal(t, "nope", e.T("nope"))
}

func TestLanguageListenerCancel(t *testing.T) {
	e := New(testTable(), "en")
	calls := 0
	sub := e.OnLanguageChanged(func(string) { calls++ })
	require.Equal(t, 1, e.ListenerCount())

	sub.Cancel()
	sub.Cancel()
	e.ChangeLanguage("ro")
	assert.Equal(t, 0, calls)
	assert.Equal(t, 0, e.ListenerCount())
}

func TestLanguageListenerPanicIsIsolated(t *testing.T) {
	e := New(testTable(), "en")
	reached := false
	e.OnLanguageChanged(func(string) { panic("boom") })
	e.OnLanguageChanged(func(string) { reached = true })

	assert.NotPanics(t, func() { e.ChangeLanguage("ro") })
	assert.True(t, reached)
}

func TestNilListener(t *testing.T) {
	e := New(testTable(), "en")
	sub := e.OnLanguageChanged(nil)
	assert.Equal(t, 0, e.ListenerCount())
	assert.NotPanics(t, sub.Cancel)
}

func TestEngineCopiesTable(t *testing.T) {
	table := testTable()
	e := New(table, "en")
	table["en"]["pod_dashboard:welcomeMessage"] = "mutated"
	assert.Equal(t, "Welcome", e.T("pod_dashboard:welcomeMessage"))
}

func TestInitializeOnce(t *testing.T) {
	resetDefault(t)

	_, err := Default()
	assert.ErrorIs(t, err, ErrNotInitialized)

	first, err := Initialize(testTable(), "en")
	require.NoError(t, err)

	second, err := Initialize(ResourceTable{}, "ro")
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
	assert.Same(t, first, second)

	got, err := Default()
	require.NoError(t, err)
	assert.Same(t, first, got)
}

func TestEngineConcurrentUse(t *testing.T) {
	e := New(testTable(), "en")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				e.ChangeLanguage("ro")
			} else {
				e.ChangeLanguage("en")
			}
		}(i)
		go func() {
			defer wg.Done()
			_ = e.T("pod_dashboard:welcomeMessage")
			sub := e.OnLanguageChanged(func(string) {})
			sub.Cancel()
		}()
	}
	wg.Wait()
	assert.Contains(t, []string{"en", "ro"}, e.Language())
}
