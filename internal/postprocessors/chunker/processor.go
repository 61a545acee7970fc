// Package chunker provides a markdown header-aware text splitter with overlap.
package chunker

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driven"
)

// Verify interface compliance at compile time.
var _ driven.Splitter = (*Processor)(nil)

// DefaultChunkSize is the default number of characters per segment.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of characters shared by
// consecutive segments of one section.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

// Processor splits page content into segments along level 1 and level 2
// markdown headings, then into size-bounded windows within each section.
type Processor struct {
	chunkSize int
	overlap   int
	md        goldmark.Markdown
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the segment size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between segments in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		md:        goldmark.New(),
	}

	for _, opt := range opts {
		opt(p)
	}

	// Overlap must leave room for the window to advance.
	if p.overlap >= p.chunkSize/2 {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the splitter name.
func (p *Processor) Name() string {
	return "markdown"
}

// ChunkSize returns the configured segment size.
func (p *Processor) ChunkSize() int { return p.chunkSize }

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int { return p.overlap }

// Split returns the segments of content in document order.
func (p *Processor) Split(content string) []domain.Segment {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	var segments []domain.Segment
	for _, sec := range p.sections(content) {
		for _, window := range p.windows(sec.body) {
			segments = append(segments, domain.Segment{
				Text:    window,
				Header1: sec.header1,
				Header2: sec.header2,
			})
		}
	}
	return segments
}

// section is the text between two level 1/2 headings.
type section struct {
	body    string
	header1 *string
	header2 *string
}

// heading is a level 1/2 ATX heading located in the source.
type heading struct {
	level     int
	title     string
	lineStart int
	lineEnd   int
}

func (p *Processor) sections(content string) []section {
	src := []byte(content)
	headings := p.headings(src)

	var (
		out    []section
		h1, h2 *string
		offset int
	)
	flush := func(end int) {
		body := strings.TrimSpace(content[offset:end])
		if body != "" {
			out = append(out, section{body: body, header1: h1, header2: h2})
		}
	}

	for _, h := range headings {
		flush(h.lineStart)
		title := h.title
		switch h.level {
		case 1:
			h1, h2 = &title, nil
		case 2:
			h2 = &title
		}
		offset = h.lineEnd
	}
	flush(len(content))

	return out
}

// headings parses src and returns every level 1 and 2 ATX heading in order.
// Headings inside code blocks, block quotes or lists are not returned.
func (p *Processor) headings(src []byte) []heading {
	root := p.md.Parser().Parse(text.NewReader(src))

	var found []heading
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Kind() != ast.KindHeading {
			return ast.WalkContinue, nil
		}
		h := n.(*ast.Heading)
		if h.Level > 2 || h.Parent() == nil || h.Parent().Kind() != ast.KindDocument {
			return ast.WalkSkipChildren, nil
		}
		lines := h.Lines()
		if lines.Len() == 0 {
			return ast.WalkSkipChildren, nil
		}

		first, last := lines.At(0), lines.At(lines.Len()-1)
		start := lineStart(src, first.Start)
		if !isATX(src[start:first.Start]) {
			return ast.WalkSkipChildren, nil
		}

		found = append(found, heading{
			level:     h.Level,
			title:     headingText(src, lines),
			lineStart: start,
			lineEnd:   lineEnd(src, last.Stop),
		})
		return ast.WalkSkipChildren, nil
	})

	return found
}

// windows cuts body into segments of at most chunkSize characters. A cut
// prefers the last newline, then the last space, in the back half of the
// window. Consecutive windows share exactly overlap characters.
func (p *Processor) windows(body string) []string {
	runes := []rune(body)
	if len(runes) <= p.chunkSize {
		return []string{body}
	}

	var out []string
	start := 0
	for {
		if len(runes)-start <= p.chunkSize {
			out = append(out, string(runes[start:]))
			return out
		}

		end := start + p.chunkSize
		floor := start + max(p.chunkSize/2, p.overlap+1)
		if cut := lastBreak(runes, floor, end); cut > 0 {
			end = cut
		}

		out = append(out, string(runes[start:end]))
		start = end - p.overlap
	}
}

// lastBreak returns the index just past the last newline in runes[floor:end],
// or past the last space when there is no newline, or 0 when neither exists.
func lastBreak(runes []rune, floor, end int) int {
	for _, sep := range []rune{'\n', ' '} {
		for i := end - 1; i >= floor; i-- {
			if runes[i] == sep {
				return i + 1
			}
		}
	}
	return 0
}

func headingText(src []byte, lines *text.Segments) string {
	var b strings.Builder
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
	return strings.TrimSpace(b.String())
}

func lineStart(src []byte, pos int) int {
	for pos > 0 && src[pos-1] != '\n' {
		pos--
	}
	return pos
}

func lineEnd(src []byte, pos int) int {
	for pos < len(src) && src[pos] != '\n' {
		pos++
	}
	return pos
}

// isATX reports whether the heading prefix is up to three spaces followed by '#'.
func isATX(prefix []byte) bool {
	s := strings.TrimLeft(string(prefix), " ")
	return len(prefix)-len(s) <= 3 && strings.HasPrefix(s, "#")
}
