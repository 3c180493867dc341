package shell

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundaryRender(t *testing.T) {
	var contained []string
	b := &Boundary{OnError: func(route string, err error) { contained = append(contained, route) }}

	html, err := b.Render("/ok", func(w io.Writer) error {
		_, err := io.WriteString(w, "<p>fine</p>")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "<p>fine</p>", string(html))

	html, err = b.Render("/err", func(w io.Writer) error {
		_, _ = io.WriteString(w, "partial")
		return errors.New("load failed")
	})
	require.Error(t, err)
	assert.Contains(t, string(html), DefaultFallback)
	assert.NotContains(t, string(html), "partial")

	html, err = b.Render("/panic", func(io.Writer) error { panic("boom") })
	require.Error(t, err)
	assert.Contains(t, string(html), DefaultFallback)

	assert.Equal(t, []string{"/err", "/panic"}, contained)
}

func TestBoundaryCustomFallbackIsEscaped(t *testing.T) {
	b := &Boundary{Fallback: "<b>oops</b>"}
	html, _ := b.Render("/", func(io.Writer) error { return errors.New("x") })
	assert.Contains(t, string(html), "&lt;b&gt;oops&lt;/b&gt;")
}
