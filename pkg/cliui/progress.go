package cliui

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Progress prints accumulated text as it grows, writing only what is new.
// When the text is replaced rather than extended, as happens when a reading
// falls back to offline generation, it starts a fresh block.
type Progress struct {
	w io.Writer

	mu      sync.Mutex
	printed string
}

// NewProgress creates a Progress writing to w.
func NewProgress(w io.Writer) *Progress {
	return &Progress{w: w}
}

// Update receives the full accumulated text.
func (p *Progress) Update(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if strings.HasPrefix(text, p.printed) {
		fmt.Fprint(p.w, text[len(p.printed):])
		p.printed = text
		return
	}

	fmt.Fprint(p.w, "\n"+DimStyle.Render(strings.Repeat("─", 24))+"\n")
	fmt.Fprint(p.w, text)
	p.printed = text
}

// Finish ends the block with a newline if anything was printed.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.printed != "" && !strings.HasSuffix(p.printed, "\n") {
		fmt.Fprintln(p.w)
	}
}

// Text returns everything printed so far.
func (p *Progress) Text() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.printed
}
