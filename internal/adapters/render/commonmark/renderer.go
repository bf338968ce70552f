// Package commonmark renders replies with a full GFM parser. It is the
// alternative to the incremental renderer for callers that prefer strict
// CommonMark output over the streaming-friendly dialect.
package commonmark

import (
	"bytes"
	"html"
	"strings"
	"sync"

	"github.com/bnema/shopchat/internal/ports"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
)

var _ ports.Renderer = (*Renderer)(nil)

// Renderer is safe for concurrent use; goldmark keeps per-call parse
// state.
type Renderer struct {
	once     sync.Once
	markdown goldmark.Markdown
}

func New() *Renderer {
	return &Renderer{}
}

func (r *Renderer) engine() goldmark.Markdown {
	r.once.Do(func() {
		r.markdown = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(goldmarkhtml.WithHardWraps()),
		)
	})
	return r.markdown
}

// Render never fails: a conversion error degrades to the escaped source
// in a paragraph.
func (r *Renderer) Render(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := r.engine().Convert([]byte(text), &buf); err != nil {
		return "<p>" + html.EscapeString(text) + "</p>"
	}

	return strings.TrimRight(buf.String(), "\n")
}
