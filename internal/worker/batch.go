package worker

import (
	"context"
	"sort"

	"github.com/ppiankov/brdsynth/internal/model"
)

// RecordExtractor extracts the entities of one record. Failures are
// reported through the audit entry, never as an error.
type RecordExtractor interface {
	Extract(ctx context.Context, record model.Record) (model.RecordEntities, *model.AuditEntry)
}

// ExtractionJob represents the extraction of one record
type ExtractionJob struct {
	Index     int
	Record    model.Record
	Extractor RecordExtractor
}

// Execute executes the extraction job. A job that reaches a worker after
// ctx is done is skipped without calling the extractor.
func (j *ExtractionJob) Execute(ctx context.Context) Result {
	if ctx.Err() != nil {
		return &ExtractionResult{Index: j.Index, RecordID: j.Record.ID, Skipped: true}
	}
	entities, audit := j.Extractor.Extract(ctx, j.Record)
	return &ExtractionResult{
		Index:    j.Index,
		RecordID: j.Record.ID,
		Entities: entities,
		Audit:    audit,
	}
}

// ExtractionResult represents the result of an extraction job
type ExtractionResult struct {
	Index    int
	RecordID string
	Entities model.RecordEntities
	Audit    *model.AuditEntry
	Skipped  bool // Run cancelled before the extractor was called
}

// GetError always returns nil; extraction failures are recovered upstream
func (r *ExtractionResult) GetError() error {
	return nil
}

// BatchProcessor extracts many records on a bounded worker pool
type BatchProcessor struct {
	extractor   RecordExtractor
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(extractor RecordExtractor, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		extractor:   extractor,
		concurrency: concurrency,
	}
}

// ProcessRecords extracts every record and returns the results in input
// order. Once ctx is cancelled no further extractor call starts: queued and
// unsubmitted records are returned as notDispatched, in input order, while
// in-flight calls still finish.
func (b *BatchProcessor) ProcessRecords(ctx context.Context, records []model.Record) (results []*ExtractionResult, notDispatched []model.Record) {
	if len(records) == 0 {
		return []*ExtractionResult{}, nil
	}

	pool := NewPool(b.concurrency)
	pool.Start(ctx)

	submitted := len(records)
	for i, record := range records {
		job := &ExtractionJob{
			Index:     i,
			Record:    record,
			Extractor: b.extractor,
		}
		if !pool.SubmitContext(ctx, job) {
			submitted = i
			break
		}
	}

	raw := pool.Wait()

	results = make([]*ExtractionResult, 0, len(raw))
	var skipped []int
	for _, r := range raw {
		res := r.(*ExtractionResult)
		if res.Skipped {
			skipped = append(skipped, res.Index)
			continue
		}
		results = append(results, res)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	sort.Ints(skipped)

	for _, i := range skipped {
		notDispatched = append(notDispatched, records[i])
	}
	notDispatched = append(notDispatched, records[submitted:]...)

	return results, notDispatched
}
