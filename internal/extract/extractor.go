package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ppiankov/brdsynth/internal/cache"
	"github.com/ppiankov/brdsynth/internal/model"
	"github.com/ppiankov/brdsynth/internal/worker"
)

// Extractor runs a capability over one record at a time and owns
// normalization and the rule-based fallback
type Extractor struct {
	capability Capability
	timeout    time.Duration
	cache      cache.Cache
	cacheTTL   time.Duration
	limiter    *worker.Limiter
	logger     *slog.Logger
}

// Option configures an Extractor
type Option func(*Extractor)

// WithCache stores successful capability payloads
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(e *Extractor) {
		e.cache = c
		e.cacheTTL = ttl
	}
}

// WithLimiter rate limits capability calls
func WithLimiter(l *worker.Limiter) Option {
	return func(e *Extractor) {
		e.limiter = l
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = l
	}
}

// NewExtractor creates an extractor. A nil capability means rules only.
func NewExtractor(capability Capability, config model.ExtractionConfig, opts ...Option) *Extractor {
	timeout := time.Duration(config.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	e := &Extractor{
		capability: capability,
		timeout:    timeout,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CapabilityName returns the configured capability name, or "rules"
func (e *Extractor) CapabilityName() string {
	if e.capability == nil {
		return "rules"
	}
	return e.capability.Name()
}

// Extract returns the normalized entities of one record. A capability
// failure is recovered with the rule-based fallback and reported as the
// returned audit entry; it never surfaces as an error.
func (e *Extractor) Extract(ctx context.Context, record model.Record) (model.RecordEntities, *model.AuditEntry) {
	text := CleanText(record.RawText)
	fallback := NewRuleExtractor(record.Timestamp)

	if e.capability == nil {
		payload, _ := fallback.Extract(ctx, text)
		return e.result(record, payload, model.MethodFallback), nil
	}

	key := cache.PayloadKey(e.capability.Name(), text)
	if payload, ok := e.cached(key); ok {
		e.logger.Debug("capability cache hit", "record", record.ID)
		return e.result(record, payload, model.MethodCache), nil
	}

	payload, err := e.call(ctx, text)
	if err != nil {
		e.logger.Warn("capability failed, using rule fallback", "record", record.ID, "error", err)
		payload, _ = fallback.Extract(ctx, text)
		return e.result(record, payload, model.MethodFallback), &model.AuditEntry{
			RecordID: record.ID,
			Kind:     model.AuditExtractionFailure,
			Reason:   err.Error(),
			Action:   "rule-based fallback",
		}
	}

	e.store(key, payload)
	return e.result(record, payload, model.MethodCapability), nil
}

// call invokes the capability with its own timeout. The call is detached
// from run cancellation so an in-flight call finishes or times out.
func (e *Extractor) call(ctx context.Context, text string) (*model.ExtractionPayload, error) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()

	name := e.capability.Name()
	if e.limiter != nil {
		if err := e.limiter.Wait(callCtx, name); err != nil {
			return nil, fmt.Errorf("%w: %s: rate limit: %v", ErrExtractionFailed, name, err)
		}
	}

	payload, err := e.capability.Extract(callCtx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrExtractionFailed, name, err)
	}
	if payload == nil {
		return nil, fmt.Errorf("%w: %s: empty payload", ErrExtractionFailed, name)
	}
	return payload, nil
}

func (e *Extractor) cached(key string) (*model.ExtractionPayload, bool) {
	if e.cache == nil {
		return nil, false
	}
	data, ok := e.cache.Get(key)
	if !ok {
		return nil, false
	}
	var payload model.ExtractionPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, false
	}
	return &payload, true
}

func (e *Extractor) store(key string, payload *model.ExtractionPayload) {
	if e.cache == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := e.cache.Set(key, data, e.cacheTTL); err != nil {
		e.logger.Debug("cache write failed", "error", err)
	}
}

func (e *Extractor) result(record model.Record, payload *model.ExtractionPayload, method model.ExtractionMethod) model.RecordEntities {
	return model.RecordEntities{
		RecordID:   record.ID,
		Entities:   Normalize(payload, record),
		Method:     method,
		Confidence: payload.Confidence,
	}
}
