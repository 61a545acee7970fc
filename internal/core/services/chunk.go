package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driven"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/logger"
)

// SignatureBlockHeader introduces the signature block on canonical chunks.
const SignatureBlockHeader = "--- Handwritten Signatures ---"

// chunkNamespace scopes deterministic chunk IDs.
var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("cortexdocs/chunk"))

// ChunkService regenerates the chunk set from page content and metadata.
type ChunkService struct {
	pages    driven.PageStore
	chunks   driven.ChunkStore
	splitter driven.Splitter
}

// NewChunkService creates a chunk service.
func NewChunkService(pages driven.PageStore, chunks driven.ChunkStore, splitter driven.Splitter) *ChunkService {
	return &ChunkService{pages: pages, chunks: chunks, splitter: splitter}
}

// Run rebuilds the chunks of every matching Document and swaps them in
// one step. Documents outside the filter keep their chunks.
func (s *ChunkService) Run(ctx context.Context, filter domain.DocumentFilter) (domain.StageReport, error) {
	start := time.Now()
	report := domain.StageReport{Stage: domain.StageChunk}

	docs, err := s.pages.ListDocuments(ctx, filter)
	if err != nil {
		return report, fmt.Errorf("list documents: %w", err)
	}
	report.Selected = len(docs)
	logger.Stage(string(domain.StageChunk), len(docs))

	keys := make([]domain.DocumentKey, 0, len(docs))
	var all []domain.Chunk
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		pages, err := s.pages.GetPages(ctx, doc.DocumentKey)
		if err != nil {
			return report, fmt.Errorf("get pages %s: %w", doc.DocumentKey, err)
		}
		keys = append(keys, doc.DocumentKey)
		for _, page := range pages {
			all = append(all, BuildChunks(page, s.splitter)...)
		}
		report.Processed++
	}

	if err := s.chunks.ReplaceChunks(ctx, keys, all); err != nil {
		return report, fmt.Errorf("replace chunks: %w", err)
	}
	report.Duration = time.Since(start)
	logger.Info("chunk: %d chunks from %d documents", len(all), len(keys))
	return report, nil
}

// BuildChunks splits one page and composes its chunks.
func BuildChunks(page domain.Page, splitter driven.Splitter) []domain.Chunk {
	segments := splitter.Split(page.Content)
	chunks := make([]domain.Chunk, 0, len(segments))
	for i, seg := range segments {
		chunks = append(chunks, domain.Chunk{
			ID:          ChunkID(page.DocumentKey, page.PageIndex, i),
			DocumentKey: page.DocumentKey,
			PageIndex:   page.PageIndex,
			ChunkIndex:  i,
			Content:     ComposeChunkText(page, seg),
			Title:       page.Title,
			PrintDate:   page.PrintDate,
			Language:    page.Language,
			Summary:     page.Summary,
			Header1:     seg.Header1,
			Header2:     seg.Header2,
		})
	}
	return chunks
}

// ComposeChunkText builds the searchable text of one chunk. Only the
// canonical page carries the signature block.
func ComposeChunkText(page domain.Page, seg domain.Segment) string {
	lines := []string{fmt.Sprintf("%s - Page %d:", page.Filepath, page.PageIndex)}
	if page.Title != nil {
		lines = append(lines, "Title: "+*page.Title)
	}
	if seg.Header1 != nil {
		lines = append(lines, "Header 1: "+*seg.Header1)
	}
	if seg.Header2 != nil {
		lines = append(lines, "Header 2: "+*seg.Header2)
	}
	lines = append(lines, seg.Text)
	text := strings.Join(lines, "\n")

	if page.IsCanonical() && page.Signatures != nil {
		sigs := make([]string, 0, len(page.Signatures))
		for _, sig := range page.Signatures {
			sigs = append(sigs, fmt.Sprintf("Signature: %s | Title: %s | Date: %s", sig.Name, sig.Title, sig.Date))
		}
		text += "\n\n" + SignatureBlockHeader + "\n" + strings.Join(sigs, "\n")
	}
	return text
}

// ChunkID derives a stable identifier from the chunk identity.
func ChunkID(key domain.DocumentKey, pageIndex, chunkIndex int) string {
	name := strings.Join([]string{
		key.Filepath,
		key.Filename,
		strconv.Itoa(pageIndex),
		strconv.Itoa(chunkIndex),
	}, "\x00")
	return uuid.NewSHA1(chunkNamespace, []byte(name)).String()
}
