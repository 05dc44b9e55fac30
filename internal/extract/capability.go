package extract

import (
	"context"
	"errors"

	"github.com/ppiankov/brdsynth/internal/model"
)

// ErrExtractionFailed wraps every capability error the extractor recovers from
var ErrExtractionFailed = errors.New("extraction failed")

// Capability turns cleaned record text into a raw extraction payload.
// Implementations live in internal/llm; RuleExtractor is the built-in one.
type Capability interface {
	// Name identifies the capability and model, e.g. "openai:gpt-4o-mini".
	// It is part of the cache key.
	Name() string
	Extract(ctx context.Context, text string) (*model.ExtractionPayload, error)
}
