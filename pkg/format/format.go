// Package format renders reading text, a small Markdown subset, to HTML as an
// ordered pipeline of named passes.
//
// The subset is what the reading prompts ask for: "#" headings, **bold**,
// *italic*, numbered and dashed lists, and blank-line separated paragraphs.
// Each pass is a pure string transform; the order is fixed because later
// passes depend on markup inserted by earlier ones (list-wrap needs <li>, and
// line-breaks only sees the newlines left inside paragraphs).
package format

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

// Pass is one named transform of the pipeline.
type Pass struct {
	Name  string
	Apply func(string) string
}

var (
	headingRe    = regexp.MustCompile(`(?m)^(#{1,6})[ \t]+(.+?)[ \t]*$`)
	boldRe       = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicRe     = regexp.MustCompile(`\*([^*\n]+)\*`)
	orderedRe    = regexp.MustCompile(`(?m)^\d+\.[ \t]+(.+?)[ \t]*$`)
	unorderedRe  = regexp.MustCompile(`(?m)^-[ \t]+(.+?)[ \t]*$`)
	listRunRe    = regexp.MustCompile(`(?m)(?:^<li>.*</li>(?:\n|$))+`)
	blockLineRe  = regexp.MustCompile(`^(?:<h[1-6]>.*</h[1-6]>|<ul>.*</ul>)$`)
	tagRe        = regexp.MustCompile(`<[^>]*>`)
	breakTagRe   = regexp.MustCompile(`(?i)<br\s*/?>|</p>|</h[1-6]>|</li>`)
	multiBlankRe = regexp.MustCompile(`\n{3,}`)
)

var passes = []Pass{
	{Name: "escape", Apply: escape},
	{Name: "headings", Apply: headings},
	{Name: "bold", Apply: func(s string) string {
		return boldRe.ReplaceAllString(s, "<strong>$1</strong>")
	}},
	{Name: "italic", Apply: func(s string) string {
		return italicRe.ReplaceAllString(s, "<em>$1</em>")
	}},
	{Name: "ordered-list", Apply: func(s string) string {
		return orderedRe.ReplaceAllString(s, "<li>$1</li>")
	}},
	{Name: "unordered-list", Apply: func(s string) string {
		return unorderedRe.ReplaceAllString(s, "<li>$1</li>")
	}},
	{Name: "list-wrap", Apply: wrapLists},
	{Name: "paragraphs", Apply: paragraphs},
	{Name: "line-breaks", Apply: lineBreaks},
}

// Passes returns the pipeline in application order.
func Passes() []Pass {
	out := make([]Pass, len(passes))
	copy(out, passes)
	return out
}

// Lookup returns the pass with the given name.
func Lookup(name string) (Pass, error) {
	for _, p := range passes {
		if p.Name == name {
			return p, nil
		}
	}
	return Pass{}, fmt.Errorf("unknown format pass %q", name)
}

// HTML renders text through every pass. Blank text renders as "".
func HTML(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	return Apply(text, passes...)
}

// Apply runs the given passes over text in order.
func Apply(text string, ps ...Pass) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	for _, p := range ps {
		text = p.Apply(text)
	}
	return text
}

// PlainText strips tags from rendered HTML and decodes entities, keeping line
// structure.
func PlainText(s string) string {
	s = breakTagRe.ReplaceAllStringFunc(s, func(m string) string {
		if strings.EqualFold(m, "</p>") {
			return m + "\n\n"
		}
		return m + "\n"
	})
	s = tagRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = html.UnescapeString(s)
	return strings.TrimSpace(multiBlankRe.ReplaceAllString(s, "\n\n"))
}

func escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}

// headings maps "#" to <h3> and each further level down one step, capped at
// <h6>.
func headings(s string) string {
	return headingRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := headingRe.FindStringSubmatch(m)
		level := min(len(sub[1])+2, 6)
		return fmt.Sprintf("<h%d>%s</h%d>", level, sub[2], level)
	})
}

// wrapLists wraps each run of consecutive <li> lines in one <ul>.
func wrapLists(s string) string {
	return listRunRe.ReplaceAllStringFunc(s, func(run string) string {
		trailing := ""
		if strings.HasSuffix(run, "\n") {
			trailing = "\n"
		}
		items := strings.Split(strings.TrimSuffix(run, "\n"), "\n")
		return "<ul>" + strings.Join(items, "") + "</ul>" + trailing
	})
}

// paragraphs wraps runs of inline lines in <p>. Block lines (headings and
// lists) stand alone; blank lines end a paragraph.
func paragraphs(s string) string {
	var (
		b    strings.Builder
		para []string
	)
	flush := func() {
		if len(para) > 0 {
			b.WriteString("<p>" + strings.Join(para, "\n") + "</p>")
			para = para[:0]
		}
	}

	for _, line := range strings.Split(strings.Trim(s, "\n"), "\n") {
		switch {
		case strings.TrimSpace(line) == "":
			flush()
		case blockLineRe.MatchString(line):
			flush()
			b.WriteString(line)
		default:
			para = append(para, line)
		}
	}
	flush()
	return b.String()
}

func lineBreaks(s string) string {
	return strings.ReplaceAll(s, "\n", "<br>")
}
