// Package pdf implements the Parser port for PDF files using
// github.com/ledongthuc/pdf. Every page of the file yields one entry,
// including pages without a text layer, so page indexes stay contiguous.
package pdf

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driven"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/logger"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// columnGap is the horizontal gap, in multiples of the font size, that
// separates two columns of a row in layout mode.
const columnGap = 1.5

// Parser extracts page text from PDF files.
type Parser struct{}

// New creates a PDF parser.
func New() *Parser {
	return &Parser{}
}

// SupportedExtensions returns the file extensions this parser handles.
func (p *Parser) SupportedExtensions() []string {
	return []string{".pdf"}
}

// Parse extracts the pages of the PDF at path.
func (p *Parser) Parse(ctx context.Context, path string, mode domain.ParseMode) (*driven.ParseResult, error) {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".pdf" {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, ext)
	}
	if !mode.IsValid() {
		return nil, fmt.Errorf("%w: parse mode %q", domain.ErrInvalidConfig, mode)
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	count := r.NumPage()
	if count == 0 {
		return nil, fmt.Errorf("%w: %s has no pages", domain.ErrInvalidInput, filepath.Base(path))
	}

	result := &driven.ParseResult{
		PageCount: count,
		Pages:     make([]driven.ParsedPage, 0, count),
	}
	for i := 1; i <= count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := pageText(r.Page(i), mode)
		if err != nil {
			logger.Debug("pdf %s: page %d unreadable: %v", filepath.Base(path), i, err)
			text = ""
		}
		result.Pages = append(result.Pages, driven.ParsedPage{
			Index:   i - 1,
			Content: text,
		})
	}
	return result, nil
}

// pageText extracts one page. The pdf library panics on some malformed
// content streams, so those are reported as errors.
func pageText(page pdf.Page, mode domain.ParseMode) (text string, err error) {
	if page.V.IsNull() {
		return "", nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed page content: %v", r)
		}
	}()

	if mode == domain.ParseModeOCR {
		text, err = page.GetPlainText(nil)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(text), nil
	}

	rows, err := page.GetTextByRow()
	if err != nil {
		return "", err
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		if line := layoutRow(row.Content); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// layoutRow joins the text runs of one row, separating runs that are
// far apart horizontally with a tab.
func layoutRow(texts pdf.TextHorizontal) string {
	var b strings.Builder
	var prevEnd float64
	for i, t := range texts {
		if i > 0 {
			gap := t.X - prevEnd
			if size := t.FontSize; size > 0 && gap > size*columnGap {
				b.WriteByte('\t')
			}
		}
		b.WriteString(t.S)
		prevEnd = t.X + t.W
	}
	return strings.TrimRight(b.String(), " \t")
}
