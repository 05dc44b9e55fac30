package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/brdsynth/internal/cache"
	"github.com/ppiankov/brdsynth/internal/channel"
	"github.com/ppiankov/brdsynth/internal/conflict"
	"github.com/ppiankov/brdsynth/internal/extract"
	"github.com/ppiankov/brdsynth/internal/merge"
	"github.com/ppiankov/brdsynth/internal/model"
	"github.com/ppiankov/brdsynth/internal/noise"
	"github.com/ppiankov/brdsynth/internal/stakeholder"
	"github.com/ppiankov/brdsynth/internal/worker"
)

// Pipeline orchestrates one synthesis run over a set of records
type Pipeline struct {
	config     model.Config
	filter     *noise.Filter
	classifier *channel.Classifier
	extractor  *extract.Extractor
	batch      *worker.BatchProcessor
	merger     *merge.Merger
	detector   *conflict.Detector
	builder    *stakeholder.Builder
	assembler  *Assembler
	logger     *slog.Logger
	newID      IDGenerator
	now        func() time.Time
}

type settings struct {
	capability extract.Capability
	cache      cache.Cache
	limiter    *worker.Limiter
	logger     *slog.Logger
	newID      IDGenerator
	now        func() time.Time
}

// Option configures a Pipeline
type Option func(*settings)

// WithCapability sets the extraction capability. Without one the rule
// extractor is used for every record.
func WithCapability(c extract.Capability) Option {
	return func(s *settings) { s.capability = c }
}

// WithCache caches successful capability payloads
func WithCache(c cache.Cache) Option {
	return func(s *settings) { s.cache = c }
}

// WithLimiter overrides the capability rate limiter
func WithLimiter(l *worker.Limiter) Option {
	return func(s *settings) { s.limiter = l }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithIDGenerator sets the run id generator
func WithIDGenerator(g IDGenerator) Option {
	return func(s *settings) { s.newID = g }
}

// WithClock sets the clock used for the generation timestamp
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// NewPipeline creates a new pipeline with the given configuration
func NewPipeline(cfg model.Config, opts ...Option) *Pipeline {
	s := settings{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		newID:  Prefixed("run_", UUIDv7()),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.limiter == nil {
		s.limiter = worker.NewLimiter(cfg.Extraction.RequestsPerSecond, cfg.Extraction.Burst)
	}

	extractorOpts := []extract.Option{
		extract.WithLimiter(s.limiter),
		extract.WithLogger(s.logger),
	}
	if s.cache != nil {
		ttl := time.Duration(cfg.Cache.MemoryTTLMinutes) * time.Minute
		extractorOpts = append(extractorOpts, extract.WithCache(s.cache, ttl))
	}
	extractor := extract.NewExtractor(s.capability, cfg.Extraction, extractorOpts...)

	return &Pipeline{
		config:     cfg,
		filter:     noise.NewFilter(cfg.Noise),
		classifier: channel.NewClassifier(cfg.Channel),
		extractor:  extractor,
		batch:      worker.NewBatchProcessor(extractor, cfg.Concurrency.Workers),
		merger:     merge.NewMerger(cfg.Merge),
		detector:   conflict.NewDetector(cfg.Conflict),
		builder:    stakeholder.NewBuilder(cfg.Stakeholder),
		assembler:  NewAssembler(cfg.Health),
		logger:     s.logger,
		newID:      s.newID,
		now:        s.now,
	}
}

// Synthesize runs every stage over the records and returns the assembled
// result. Only structurally invalid input is an error: malformed records,
// capability failures and cancellation are reported in the audit trail.
func (p *Pipeline) Synthesize(ctx context.Context, records []model.Record) (*model.SynthesisResult, error) {
	if err := checkDuplicateIDs(records); err != nil {
		return nil, err
	}

	runID := p.newID()
	logger := p.logger.With("run", runID)
	stats := model.Stats{
		RecordsLoaded: len(records),
		PerChannel:    make(map[model.Channel]int),
	}

	// 1. Drop malformed records
	valid, audit := validateRecords(records)
	stats.RecordsMalformed = len(audit)
	model.SortRecords(valid)
	logger.Info("records loaded", "total", len(records), "malformed", stats.RecordsMalformed)

	// 2. Noise filter
	kept, noiseReport := p.filter.Apply(valid)
	stats.RecordsFiltered = noiseReport.Excluded()
	logger.Debug("noise filter applied", "kept", len(kept), "excluded", stats.RecordsFiltered)

	// 3. Channel classification
	classified := p.classifier.Apply(kept)
	for _, r := range classified {
		stats.PerChannel[r.Channel]++
	}

	// 4. Extraction on the worker pool
	results, notDispatched := p.batch.ProcessRecords(ctx, classified)
	perRecord := make([]model.RecordEntities, 0, len(results))
	for _, r := range results {
		perRecord = append(perRecord, r.Entities)
		if r.Audit != nil {
			audit = append(audit, *r.Audit)
			stats.ExtractionFailures++
		}
	}
	stats.RecordsExtracted = len(results)
	for _, r := range notDispatched {
		audit = append(audit, model.AuditEntry{
			RecordID: r.ID,
			Kind:     model.AuditNotDispatched,
			Reason:   "run cancelled before dispatch",
			Action:   "record skipped",
		})
	}
	partial := len(notDispatched) > 0
	if partial {
		logger.Warn("run cancelled", "not_dispatched", len(notDispatched))
	}
	logger.Info("extraction complete", "records", stats.RecordsExtracted, "failures", stats.ExtractionFailures)

	// 5. Merge
	raw := model.Flatten(perRecord)
	stats.RequirementsRaw = len(raw.Requirements)
	merged := p.merger.Merge(raw)
	stats.Requirements = len(merged.Requirements)

	// 6. Conflicts and stakeholders
	conflicts := p.detector.Detect(merged)
	stakeholders := p.builder.Build(classified, merged)
	stats.Conflicts = len(conflicts)
	stats.CriticalConflicts = model.CountSeverity(conflicts, model.SeverityCritical)
	logger.Info("analysis complete", "requirements", stats.Requirements, "conflicts", stats.Conflicts, "critical", stats.CriticalConflicts)

	sortAudit(audit)

	// 7. Assemble
	return p.assembler.Assemble(Inputs{
		Metadata: model.Metadata{
			RunID:       runID,
			GeneratedAt: p.now(),
			Capability:  p.extractor.CapabilityName(),
		},
		Entities:       merged,
		Conflicts:      conflicts,
		StakeholderMap: stakeholders,
		Noise:          noiseReport,
		Audit:          audit,
		Stats:          stats,
		Partial:        partial,
	}), nil
}

// checkDuplicateIDs fails the run when two records share an id
func checkDuplicateIDs(records []model.Record) error {
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			continue
		}
		if seen[id] {
			return fmt.Errorf("%w: duplicate record id %q", model.ErrInvalidInput, id)
		}
		seen[id] = true
	}
	return nil
}

// validateRecords returns normalized copies of the valid records and an
// audit entry for every malformed one
func validateRecords(records []model.Record) ([]model.Record, []model.AuditEntry) {
	valid := make([]model.Record, 0, len(records))
	var audit []model.AuditEntry
	for i, r := range records {
		if err := r.Validate(); err != nil {
			id := r.ID
			if strings.TrimSpace(id) == "" {
				id = fmt.Sprintf("#%d", i)
			}
			audit = append(audit, model.AuditEntry{
				RecordID: id,
				Kind:     model.AuditMalformedRecord,
				Reason:   err.Error(),
				Action:   "record skipped",
			})
			continue
		}
		r.Recipients = model.NormalizeRecipients(r.Recipients)
		if !r.Channel.IsKnown() {
			r.Channel = model.ParseChannel(string(r.Channel))
		}
		valid = append(valid, r)
	}
	return valid, audit
}

func sortAudit(audit []model.AuditEntry) {
	sort.SliceStable(audit, func(i, j int) bool {
		if audit[i].RecordID != audit[j].RecordID {
			return audit[i].RecordID < audit[j].RecordID
		}
		return audit[i].Kind < audit[j].Kind
	})
}
