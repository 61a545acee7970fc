package postprocessors

import (
	"fmt"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/domain"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/core/ports/driven"
	"github.com/sfc-gh-gcharriere/cortexdocs/internal/postprocessors/chunker"
)

// builtins are the splitters every registry starts from.
var builtins = map[string]BuilderFunc{
	"markdown": buildMarkdown,
}

// RegisterDefaults registers the built-in splitters.
func RegisterDefaults(r *Registry) {
	for name, build := range builtins {
		r.Register(name, build)
	}
}

// buildMarkdown builds the header-aware splitter.
//
//	chunk_size  characters per segment, default 2000
//	overlap     characters shared by consecutive segments, default 300
//
// The overlap must be less than half the chunk size so every window
// advances by more than it repeats.
func buildMarkdown(cfg map[string]any) (driven.Splitter, error) {
	var opts []chunker.Option
	effSize, effOverlap := chunker.DefaultChunkSize, chunker.DefaultChunkOverlap

	size, ok, err := intOption(cfg, "chunk_size")
	if err != nil {
		return nil, err
	}
	if ok {
		if size <= 0 {
			return nil, fmt.Errorf("%w: chunk_size must be positive, got %d", domain.ErrInvalidConfig, size)
		}
		opts = append(opts, chunker.WithChunkSize(size))
		effSize = size
	}

	overlap, ok, err := intOption(cfg, "overlap")
	if err != nil {
		return nil, err
	}
	if ok {
		if overlap < 0 {
			return nil, fmt.Errorf("%w: overlap must not be negative, got %d", domain.ErrInvalidConfig, overlap)
		}
		opts = append(opts, chunker.WithOverlap(overlap))
		effOverlap = overlap
	}
	if effOverlap >= effSize/2 {
		return nil, fmt.Errorf("%w: overlap %d must be less than half of chunk_size %d",
			domain.ErrInvalidConfig, effOverlap, effSize)
	}

	return chunker.New(opts...), nil
}

// intOption reads a whole number from config decoded from TOML or JSON.
// A missing key reports ok=false; a value of any other type is an error.
func intOption(cfg map[string]any, key string) (n int, ok bool, err error) {
	val, found := cfg[key]
	if !found {
		return 0, false, nil
	}

	switch v := val.(type) {
	case int:
		return v, true, nil
	case int64:
		return int(v), true, nil
	case float64:
		if v != float64(int(v)) {
			return 0, false, fmt.Errorf("%w: %s must be a whole number, got %v", domain.ErrInvalidConfig, key, v)
		}
		return int(v), true, nil
	default:
		return 0, false, fmt.Errorf("%w: %s must be a number, got %T", domain.ErrInvalidConfig, key, val)
	}
}
