package shell

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/GoCodeAlone/micropods"
)

// DefaultFallback is rendered in place of content that failed.
const DefaultFallback = "Something went wrong"

// Boundary contains failures of one route's content so the rest of the page
// still renders.
type Boundary struct {
	Fallback string
	Logger   micropods.Logger

	// OnError, when set, is told about every contained failure.
	OnError func(route string, err error)
}

// Render runs fn into a buffer. On error or panic the partial output is
// discarded and the fallback is returned together with the failure.
func (b *Boundary) Render(route string, fn func(w io.Writer) error) (html template.HTML, err error) {
	var buf bytes.Buffer
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic rendering %s: %v", route, r)
		}
		if err != nil {
			html = b.fallback()
			micropods.LoggerOrNop(b.Logger).Error("Route failed, rendering fallback", "route", route, "error", err)
			if b.OnError != nil {
				b.OnError(route, err)
			}
		}
	}()
	if err = fn(&buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

func (b *Boundary) fallback() template.HTML {
	text := b.Fallback
	if text == "" {
		text = DefaultFallback
	}
	return template.HTML(`<p class="boundary-fallback">` + template.HTMLEscapeString(text) + `</p>`)
}
