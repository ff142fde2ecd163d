// Package templates renders the donation pages as templ components.
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// html writes markup to w and keeps the first write error.
type html struct {
	ctx context.Context
	w   io.Writer
	err error
}

func (h *html) raw(parts ...string) {
	for _, p := range parts {
		if h.err != nil {
			return
		}
		_, h.err = io.WriteString(h.w, p)
	}
}

// text writes s escaped, valid both as element content and inside a
// double-quoted attribute.
func (h *html) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *html) textf(format string, args ...any) {
	h.text(fmt.Sprintf(format, args...))
}

// href writes a sanitized, escaped URL.
func (h *html) href(url string) {
	h.text(string(templ.URL(url)))
}

func (h *html) render(c templ.Component) {
	if h.err != nil || c == nil {
		return
	}
	h.err = c.Render(h.ctx, h.w)
}

// component adapts a write function to templ.Component.
func component(fn func(h *html)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{ctx: ctx, w: w}
		fn(h)
		return h.err
	})
}

func (h *html) list(items []string) {
	h.raw("<ul>")
	for _, it := range items {
		h.raw("<li>")
		h.text(it)
		h.raw("</li>")
	}
	h.raw("</ul>")
}

func (h *html) hidden(name, value string) {
	h.raw(`<input type="hidden" name="`)
	h.text(name)
	h.raw(`" value="`)
	h.text(value)
	h.raw(`">`)
}
