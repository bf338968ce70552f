// Package markdown renders the small markdown dialect used by assistant
// replies into HTML. Every call re-derives the output from the full text,
// so it is safe to call on each streamed token.
package markdown

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bnema/shopchat/internal/ports"
)

var _ ports.Renderer = Renderer{}

type Renderer struct{}

func New() Renderer {
	return Renderer{}
}

func (Renderer) Render(text string) string {
	return Render(text)
}

// Render converts text to markup. Only code is HTML-escaped; other text is
// passed through as written.
func Render(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	doc := newDocument(text)
	for _, pass := range passes {
		pass(doc)
	}

	return doc.output()
}

const (
	placeholderOpen  = '\ue000'
	placeholderClose = '\ue001'
)

type fragmentKind int

const (
	fragmentCodeBlock fragmentKind = iota
	fragmentInlineCode
	fragmentLink
)

// text is the escaped content of an inline code span, used where markup
// cannot nest.
type fragment struct {
	kind   fragmentKind
	markup string
	text   string
}

type line struct {
	text  string
	block bool
}

type document struct {
	source    string
	fragments []fragment
	lines     []line
	html      string
}

func newDocument(text string) *document {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.Map(func(r rune) rune {
		if r == placeholderOpen || r == placeholderClose {
			return -1
		}
		return r
	}, text)

	return &document{source: text}
}

func (d *document) stash(kind fragmentKind, markup string) string {
	return d.stashFragment(fragment{kind: kind, markup: markup})
}

func (d *document) stashFragment(f fragment) string {
	d.fragments = append(d.fragments, f)
	return fmt.Sprintf("%c%d%c", placeholderOpen, len(d.fragments)-1, placeholderClose)
}

// passes run in order; each one sees the result of the previous.
var passes = []func(*document){
	extractCode,
	splitLines,
	lineBlocks,
	tables,
	inlineSpans,
	lists,
	paragraphs,
	restore,
}

var (
	fencedCode = regexp.MustCompile("(?s)```(\\w*)\\n?(.*?)```")
	inlineCode = regexp.MustCompile("`([^`]+)`")
)

func extractCode(d *document) {
	d.source = fencedCode.ReplaceAllStringFunc(d.source, func(match string) string {
		groups := fencedCode.FindStringSubmatch(match)
		lang, code := groups[1], groups[2]
		class := ""
		if lang != "" {
			class = fmt.Sprintf(` class="language-%s"`, lang)
		}
		return d.stash(fragmentCodeBlock, fmt.Sprintf("<pre><code%s>%s</code></pre>", class, escapeHTML(strings.TrimSpace(code))))
	})

	d.source = inlineCode.ReplaceAllStringFunc(d.source, func(match string) string {
		code := escapeHTML(match[1 : len(match)-1])
		return d.stashFragment(fragment{kind: fragmentInlineCode, markup: "<code>" + code + "</code>", text: code})
	})
}

func splitLines(d *document) {
	raw := strings.Split(d.source, "\n")
	d.lines = make([]line, 0, len(raw))
	for _, text := range raw {
		d.lines = append(d.lines, line{text: text})
	}
}

var (
	ruleLine       = regexp.MustCompile(`^---+$`)
	headingLine    = regexp.MustCompile(`^(#{1,6})[ \t]+(.+)$`)
	blockquoteLine = regexp.MustCompile(`^>[ \t]*(.+)$`)
)

func lineBlocks(d *document) {
	for i, l := range d.lines {
		switch {
		case ruleLine.MatchString(l.text):
			d.lines[i] = line{text: "<hr>", block: true}
		case headingLine.MatchString(l.text):
			groups := headingLine.FindStringSubmatch(l.text)
			level := len(groups[1])
			d.lines[i] = line{text: fmt.Sprintf("<h%d>%s</h%d>", level, strings.TrimSpace(groups[2]), level), block: true}
		case blockquoteLine.MatchString(l.text):
			groups := blockquoteLine.FindStringSubmatch(l.text)
			d.lines[i] = line{text: "<blockquote>" + groups[1] + "</blockquote>", block: true}
		}
	}
}

var (
	tableRow       = regexp.MustCompile(`^\|(.+)\|\s*$`)
	tableSeparator = regexp.MustCompile(`^\|[:\-\s|]*-[:\-\s|]*\|\s*$`)
)

// tables folds a header line, a separator line and the rows that follow
// into one table line. Without a valid separator the lines stay as text.
func tables(d *document) {
	out := make([]line, 0, len(d.lines))
	for i := 0; i < len(d.lines); i++ {
		header := d.lines[i]
		if header.block || i+1 >= len(d.lines) || !tableRow.MatchString(header.text) || !tableSeparator.MatchString(d.lines[i+1].text) {
			out = append(out, header)
			continue
		}

		var b strings.Builder
		b.WriteString("<table><thead><tr>")
		inner := tableRow.FindStringSubmatch(header.text)[1]
		for _, cell := range strings.Split(inner, "|") {
			b.WriteString("<th>" + strings.TrimSpace(cell) + "</th>")
		}
		b.WriteString("</tr></thead><tbody>")

		next := i + 2
		for ; next < len(d.lines); next++ {
			row := d.lines[next]
			if row.block || !tableRow.MatchString(row.text) {
				break
			}
			cells := strings.Split(strings.TrimSpace(row.text), "|")
			b.WriteString("<tr>")
			for _, cell := range cells[1 : len(cells)-1] {
				b.WriteString("<td>" + strings.TrimSpace(cell) + "</td>")
			}
			b.WriteString("</tr>")
		}
		b.WriteString("</tbody></table>")

		out = append(out, line{text: b.String(), block: true})
		i = next - 1
	}
	d.lines = out
}

var (
	linkSpan       = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	strongStars    = regexp.MustCompile(`\*\*(.*?)\*\*`)
	strongUnders   = regexp.MustCompile(`__(.*?)__`)
	emphasisStars  = regexp.MustCompile(`\*([^*\s](?:[^*\n]*[^*\s])?)\*`)
	emphasisUnders = regexp.MustCompile(`_([^_\s](?:[^_\n]*[^_\s])?)_`)
)

// inlineSpans handles links, strong and emphasis. Link targets are stashed
// so underscores in URLs are not read as emphasis.
func inlineSpans(d *document) {
	for i, l := range d.lines {
		text := linkSpan.ReplaceAllStringFunc(l.text, func(match string) string {
			groups := linkSpan.FindStringSubmatch(match)
			open := d.stash(fragmentLink, fmt.Sprintf(`<a href="%s">`, d.plainText(groups[2])))
			return open + groups[1] + "</a>"
		})
		text = strongStars.ReplaceAllString(text, "<strong>$1</strong>")
		text = strongUnders.ReplaceAllString(text, "<strong>$1</strong>")
		text = emphasisStars.ReplaceAllString(text, "<em>$1</em>")
		text = emphasisUnders.ReplaceAllString(text, "<em>$1</em>")
		d.lines[i].text = text
	}
}

var (
	orderedItem   = regexp.MustCompile(`^\d+\.\s+(.+)`)
	unorderedItem = regexp.MustCompile(`^[-*+]\s+(.+)`)
)

type listKind string

const (
	listNone      listKind = ""
	listOrdered   listKind = "ol"
	listUnordered listKind = "ul"
)

// lists groups consecutive item lines into one list line. A change of list
// type closes the current list and opens a new one.
func lists(d *document) {
	out := make([]line, 0, len(d.lines))
	current := listNone
	var items []string

	flush := func() {
		if current == listNone {
			return
		}
		out = append(out, line{
			text:  fmt.Sprintf("<%s>%s</%s>", current, strings.Join(items, ""), current),
			block: true,
		})
		current = listNone
		items = nil
	}

	for _, l := range d.lines {
		trimmed := strings.TrimSpace(l.text)
		kind, item := listNone, ""
		if !l.block {
			if groups := orderedItem.FindStringSubmatch(trimmed); groups != nil {
				kind, item = listOrdered, groups[1]
			} else if groups := unorderedItem.FindStringSubmatch(trimmed); groups != nil {
				kind, item = listUnordered, groups[1]
			}
		}

		if kind == listNone {
			flush()
			out = append(out, line{text: trimmed, block: l.block})
			continue
		}
		if kind != current {
			flush()
			current = kind
		}
		items = append(items, "<li>"+item+"</li>")
	}
	flush()

	d.lines = out
}

// paragraphs wraps plain content in <p>. Any block element cancels the
// wrap for the whole text.
func paragraphs(d *document) {
	hasBlock := false
	for i, l := range d.lines {
		if !l.block && d.isCodeBlockLine(l.text) {
			d.lines[i].block = true
		}
		if d.lines[i].block || d.containsCodeBlock(l.text) {
			hasBlock = true
		}
	}

	if hasBlock {
		d.html = joinAroundBlocks(d.lines)
		return
	}

	var paras []string
	var current []string
	for _, l := range d.lines {
		if l.text == "" {
			if len(current) > 0 {
				paras = append(paras, strings.Join(current, "<br>"))
				current = nil
			}
			continue
		}
		current = append(current, l.text)
	}
	if len(current) > 0 {
		paras = append(paras, strings.Join(current, "<br>"))
	}
	if len(paras) == 0 {
		return
	}

	d.html = "<p>" + strings.Join(paras, "</p><p>") + "</p>"
}

// joinAroundBlocks keeps text lines beside block elements unwrapped. A
// blank-line run between two text lines still separates them.
func joinAroundBlocks(lines []line) string {
	var b strings.Builder
	var prev *line
	blank := false
	for i := range lines {
		l := &lines[i]
		if l.text == "" {
			blank = prev != nil
			continue
		}
		if prev != nil && !prev.block && !l.block {
			if blank {
				b.WriteString("<br><br>")
			} else {
				b.WriteString("<br>")
			}
		}
		b.WriteString(l.text)
		prev = l
		blank = false
	}
	return b.String()
}

var placeholder = regexp.MustCompile("\ue000(\\d+)\ue001")

func (d *document) fragmentAt(token string) (fragment, bool) {
	groups := placeholder.FindStringSubmatch(token)
	if groups == nil {
		return fragment{}, false
	}
	idx, err := strconv.Atoi(groups[1])
	if err != nil || idx >= len(d.fragments) {
		return fragment{}, false
	}
	return d.fragments[idx], true
}

func (d *document) isCodeBlockLine(text string) bool {
	if !placeholder.MatchString(text) || placeholder.ReplaceAllString(text, "") != "" {
		return false
	}
	for _, token := range placeholder.FindAllString(text, -1) {
		if f, ok := d.fragmentAt(token); !ok || f.kind != fragmentCodeBlock {
			return false
		}
	}
	return true
}

func (d *document) containsCodeBlock(text string) bool {
	for _, token := range placeholder.FindAllString(text, -1) {
		if f, ok := d.fragmentAt(token); ok && f.kind == fragmentCodeBlock {
			return true
		}
	}
	return false
}

func restore(d *document) {
	d.html = placeholder.ReplaceAllStringFunc(d.html, func(token string) string {
		f, ok := d.fragmentAt(token)
		if !ok {
			return ""
		}
		return f.markup
	})
}

// plainText swaps inline code placeholders for their escaped text and
// drops any other placeholder.
func (d *document) plainText(text string) string {
	return placeholder.ReplaceAllStringFunc(text, func(token string) string {
		if f, ok := d.fragmentAt(token); ok && f.kind == fragmentInlineCode {
			return f.text
		}
		return ""
	})
}

func (d *document) output() string {
	return d.html
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeHTML(text string) string {
	return htmlEscaper.Replace(text)
}
