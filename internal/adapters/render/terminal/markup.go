package terminal

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"
	"golang.org/x/net/html"
)

const (
	wrapBreakpoints = " ,.;-+|"
	quotePrefix     = "│ "
	codeIndent      = "  "
	maxRuleWidth    = 40
)

type listState struct {
	ordered    bool
	n          int
	markerDone bool
}

type tableState struct {
	header []string
	rows   [][]string
	row    []string
	inHead bool
}

// markupWriter turns reply markup into styled terminal text. It accepts
// the tag set produced by both reply renderers and ignores anything else.
type markupWriter struct {
	s     styles
	width int

	blocks      []string
	inline      strings.Builder
	atLineStart bool

	bold, italic int
	inCode       bool
	pre          *strings.Builder
	preLang      string
	quote        int
	lists        []listState
	items        int
	links        []link
	table        *tableState
	cell         bool
}

type link struct {
	href  string
	start int
}

func renderMarkup(markup string, s styles, width int) string {
	w := &markupWriter{s: s, width: width, atLineStart: true}
	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		switch z.Next() {
		case html.ErrorToken:
			w.flush()
			return strings.Join(w.blocks, "\n")
		case html.TextToken:
			w.text(string(z.Text()))
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			attrs := map[string]string{}
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				attrs[string(key)] = string(val)
			}
			w.open(string(name), attrs)
		case html.EndTagToken:
			name, _ := z.TagName()
			w.close(string(name))
		}
	}
}

func (w *markupWriter) text(text string) {
	if w.pre != nil {
		w.pre.WriteString(text)
		return
	}

	text = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || r == '\r' {
			return ' '
		}
		return r
	}, text)
	if w.atLineStart {
		text = strings.TrimLeft(text, " ")
	}
	if text == "" {
		return
	}

	w.inline.WriteString(w.styled(text))
	w.atLineStart = false
}

func (w *markupWriter) styled(text string) string {
	if !w.s.color {
		return text
	}

	style := w.s.base
	switch {
	case w.inCode:
		style = w.s.code
	case len(w.links) > 0:
		style = w.s.link
	}
	if w.bold > 0 {
		style = style.Bold(true)
	}
	if w.italic > 0 {
		style = style.Italic(true)
	}
	return style.Render(text)
}

func (w *markupWriter) open(name string, attrs map[string]string) {
	switch name {
	case "p":
		if w.nested() {
			if w.inline.Len() > 0 {
				w.lineBreak()
			}
			return
		}
		w.flush()
	case "br":
		w.lineBreak()
	case "strong", "b":
		w.bold++
	case "em", "i":
		w.italic++
	case "code":
		if w.pre != nil {
			w.preLang = strings.TrimPrefix(attrs["class"], "language-")
			return
		}
		w.inCode = true
	case "pre":
		w.flush()
		w.pre = &strings.Builder{}
		w.preLang = ""
	case "h1", "h2", "h3", "h4", "h5", "h6":
		w.flush()
		w.bold++
	case "blockquote":
		w.flush()
		w.quote++
	case "hr":
		w.flush()
		w.blocks = append(w.blocks, w.s.rule.Render(strings.Repeat("─", w.ruleWidth())))
	case "ul", "ol":
		if w.items > 0 {
			w.emitItem()
		} else {
			w.flush()
		}
		w.lists = append(w.lists, listState{ordered: name == "ol"})
	case "li":
		if len(w.lists) == 0 {
			return
		}
		top := &w.lists[len(w.lists)-1]
		top.n++
		top.markerDone = false
		w.items++
	case "a":
		w.links = append(w.links, link{href: attrs["href"], start: w.inline.Len()})
	case "table":
		w.flush()
		w.table = &tableState{}
	case "thead":
		if w.table != nil {
			w.table.inHead = true
		}
	case "th", "td":
		w.cell = true
		w.inline.Reset()
		w.atLineStart = true
	}
}

func (w *markupWriter) close(name string) {
	switch name {
	case "p":
		if !w.nested() {
			w.flush()
		}
	case "strong", "b":
		w.bold = max(0, w.bold-1)
	case "em", "i":
		w.italic = max(0, w.italic-1)
	case "code":
		w.inCode = false
	case "pre":
		w.closePre()
	case "h1", "h2", "h3", "h4", "h5", "h6":
		heading := w.inline.String()
		w.resetInline()
		w.bold = max(0, w.bold-1)
		if heading != "" {
			w.blocks = append(w.blocks, w.s.heading.Render(ansi.Strip(heading)))
		}
	case "blockquote":
		w.flush()
		w.quote = max(0, w.quote-1)
	case "li":
		if w.items == 0 {
			return
		}
		w.emitItem()
		w.items--
	case "ul", "ol":
		if len(w.lists) > 0 {
			w.lists = w.lists[:len(w.lists)-1]
		}
	case "a":
		w.closeLink()
	case "th", "td":
		if w.table != nil {
			w.table.row = append(w.table.row, w.inline.String())
		}
		w.resetInline()
		w.cell = false
	case "tr":
		if w.table == nil {
			return
		}
		if w.table.inHead && w.table.header == nil {
			w.table.header = w.table.row
		} else {
			w.table.rows = append(w.table.rows, w.table.row)
		}
		w.table.row = nil
	case "thead":
		if w.table != nil {
			w.table.inHead = false
		}
	case "table":
		w.closeTable()
	}
}

// nested reports whether block content currently belongs to a list item
// or a table cell rather than to the top level.
func (w *markupWriter) nested() bool {
	return w.items > 0 || w.cell
}

func (w *markupWriter) lineBreak() {
	w.inline.WriteString("\n")
	w.atLineStart = true
}

func (w *markupWriter) resetInline() {
	w.inline.Reset()
	w.atLineStart = true
}

func (w *markupWriter) flush() {
	content := strings.TrimRight(w.inline.String(), "\n ")
	w.resetInline()
	if content == "" {
		return
	}

	prefix := strings.Repeat(quotePrefix, w.quote)
	content = w.wrap(content, ansi.StringWidth(prefix))
	if prefix != "" {
		content = prefixLines(content, w.s.quote.Render(prefix), w.s.quote.Render(prefix))
	}
	w.blocks = append(w.blocks, content)
}

func (w *markupWriter) emitItem() {
	content := strings.TrimRight(w.inline.String(), "\n ")
	w.resetInline()
	if len(w.lists) == 0 {
		return
	}

	top := &w.lists[len(w.lists)-1]
	indent := strings.Repeat("  ", len(w.lists)-1)
	marker := "• "
	if top.ordered {
		marker = fmt.Sprintf("%d. ", top.n)
	}
	hanging := indent + strings.Repeat(" ", ansi.StringWidth(marker))
	first := indent + marker
	if top.markerDone {
		first = hanging
	}
	top.markerDone = true

	if content == "" {
		return
	}
	content = w.wrap(content, ansi.StringWidth(hanging))
	w.blocks = append(w.blocks, prefixLines(content, first, hanging))
}

func (w *markupWriter) closeLink() {
	if len(w.links) == 0 {
		return
	}
	l := w.links[len(w.links)-1]
	w.links = w.links[:len(w.links)-1]

	current := w.inline.String()
	visible := ""
	if l.start <= len(current) {
		visible = ansi.Strip(current[l.start:])
	}
	if l.href == "" || l.href == "#" || l.href == visible {
		return
	}
	w.inline.WriteString(w.s.faint.Render(" (" + l.href + ")"))
}

func (w *markupWriter) closePre() {
	if w.pre == nil {
		return
	}
	code := strings.TrimRight(w.pre.String(), "\n")
	w.pre = nil
	w.blocks = append(w.blocks, prefixLines(highlight(code, w.preLang, w.s), codeIndent, codeIndent))
}

func (w *markupWriter) closeTable() {
	if w.table == nil {
		return
	}
	state := w.table
	w.table = nil

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(w.s.rule).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return w.s.tableHead
			}
			return w.s.base.Padding(0, 1)
		})
	if len(state.header) > 0 {
		t = t.Headers(state.header...)
	}
	t = t.Rows(state.rows...)

	w.blocks = append(w.blocks, t.String())
}

func (w *markupWriter) wrap(content string, reserved int) string {
	limit := w.width - reserved
	if w.width <= 0 || limit <= 0 {
		return content
	}
	return ansi.Wrap(content, limit, wrapBreakpoints)
}

func (w *markupWriter) ruleWidth() int {
	if w.width <= 0 || w.width > maxRuleWidth {
		return maxRuleWidth
	}
	return w.width
}

func prefixLines(content, first, rest string) string {
	lines := strings.Split(content, "\n")
	for i := range lines {
		if i == 0 {
			lines[i] = first + lines[i]
			continue
		}
		lines[i] = rest + lines[i]
	}
	return strings.Join(lines, "\n")
}

// highlight colors a fenced code block. Unknown languages and colorless
// output keep the source as is.
func highlight(code, language string, s styles) string {
	if !s.color {
		return code
	}
	if language == "" {
		return s.codeBlock.Render(code)
	}

	var b strings.Builder
	if err := quick.Highlight(&b, code, language, "terminal256", "monokai"); err != nil {
		return s.codeBlock.Render(code)
	}
	return strings.TrimRight(b.String(), "\n")
}
