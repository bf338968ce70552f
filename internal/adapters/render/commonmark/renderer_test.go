package commonmark

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	renderer := New()

	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "empty", text: "", want: ""},
		{name: "paragraph", text: "Hi **there**", want: "<p>Hi <strong>there</strong></p>"},
		{name: "hard wraps", text: "one\ntwo", want: "<p>one<br>\ntwo</p>"},
		{name: "heading", text: "# Deals", want: "<h1>Deals</h1>"},
		{name: "strikethrough", text: "~~old~~", want: "<p><del>old</del></p>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, renderer.Render(tt.text))
		})
	}
}

func TestRenderOmitsRawHTML(t *testing.T) {
	got := New().Render("<script>alert(1)</script>")

	assert.NotContains(t, got, "<script>")
}

func TestRenderTable(t *testing.T) {
	got := New().Render("| a | b |\n|---|---|\n| 1 | 2 |")

	assert.Contains(t, got, "<table>")
	assert.Contains(t, got, "<td>1</td>")
}
