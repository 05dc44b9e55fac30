package extract

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/brdsynth/internal/cache"
	"github.com/ppiankov/brdsynth/internal/model"
)

// mockCapability implements Capability
type mockCapability struct {
	payload *model.ExtractionPayload
	err     error
	delay   time.Duration
	calls   int32
}

func (m *mockCapability) Name() string { return "mock:test" }

func (m *mockCapability) Extract(ctx context.Context, text string) (*model.ExtractionPayload, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.payload, m.err
}

func testRecord(id, text string) model.Record {
	return model.Record{
		ID:        id,
		Channel:   model.ChannelEmail,
		Timestamp: time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC),
		Sender:    "alice@example.com",
		RawText:   text,
	}
}

func TestCleanText(t *testing.T) {
	raw := "Hi Bob,\n\nThe API must support SSO.\n> old quoted line\n\n\n\nThanks\n--\nAlice Smith\nVP Product"
	got := CleanText(raw)

	if strings.Contains(got, "old quoted") {
		t.Error("quoted line was not removed")
	}
	if strings.Contains(got, "VP Product") {
		t.Error("signature was not removed")
	}
	if !strings.Contains(got, "The API must support SSO.") {
		t.Errorf("body lost: %q", got)
	}
	if strings.Contains(got, "\n\n\n") {
		t.Error("blank lines not collapsed")
	}
}

func TestCleanText_HTML(t *testing.T) {
	raw := `<html><head><style>p{}</style></head><body><p>The system <b>must</b> log every login.</p><blockquote>quoted</blockquote></body></html>`
	got := CleanText(raw)
	if !strings.Contains(got, "The system must log every login.") {
		t.Errorf("unexpected text %q", got)
	}
	if strings.Contains(got, "quoted") || strings.Contains(got, "p{}") {
		t.Errorf("non-visible text leaked: %q", got)
	}
}

func TestCleanText_ForwardedBlock(t *testing.T) {
	raw := "Please review.\n---------- Forwarded message ----------\nFrom: x@y.com\nOld content must go"
	got := CleanText(raw)
	if strings.Contains(got, "Old content") {
		t.Errorf("forwarded content kept: %q", got)
	}
}

func TestRuleExtractor(t *testing.T) {
	text := "Subject: Launch must slip\n" +
		"Alice (PM): The system must support SSO for all users.\n" +
		"Bob: Decision: we go with PostgreSQL for the database.\n" +
		"The deadline is May 15.\n" +
		"Carol (QA) asked about coverage"

	payload, err := NewRuleExtractor(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)).Extract(context.Background(), text)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if len(payload.Requirements) != 1 || !strings.Contains(payload.Requirements[0].Text, "SSO") {
		t.Errorf("unexpected requirements %+v", payload.Requirements)
	}
	if len(payload.Decisions) != 1 {
		t.Fatalf("expected 1 decision, got %+v", payload.Decisions)
	}
	if payload.Decisions[0].DecidedBy != "Bob" {
		t.Errorf("expected decision by Bob, got %q", payload.Decisions[0].DecidedBy)
	}
	if strings.HasPrefix(payload.Decisions[0].Text, "Decision") {
		t.Errorf("decision label not stripped: %q", payload.Decisions[0].Text)
	}
	if len(payload.Timelines) != 1 || payload.Timelines[0].Date != "2025-05-15" {
		t.Errorf("unexpected timelines %+v", payload.Timelines)
	}

	names := map[string]string{}
	for _, s := range payload.Stakeholders {
		names[s.Name] = s.Role
	}
	if names["Alice"] != "PM" || names["Carol"] != "QA" {
		t.Errorf("unexpected mentions %v", names)
	}
	if _, ok := names["Bob"]; !ok {
		t.Errorf("speaker Bob not mentioned: %v", names)
	}
}

func TestRuleExtractor_ObligationWinsOverDecisionVocabulary(t *testing.T) {
	tests := []struct {
		text         string
		requirements int
		decisions    int
	}{
		{"The vendor contract must be approved by legal before launch.", 1, 0},
		{"The rollout plan should be signed off by the CTO.", 1, 0},
		{"We agreed to ship the beta in June.", 0, 1},
		{"Decision: the API must use OAuth2.", 0, 1},
	}
	for _, tt := range tests {
		payload, err := NewRuleExtractor(time.Now()).Extract(context.Background(), tt.text)
		if err != nil {
			t.Fatalf("Extract(%q) error = %v", tt.text, err)
		}
		if len(payload.Requirements) != tt.requirements || len(payload.Decisions) != tt.decisions {
			t.Errorf("Extract(%q) = %d requirement(s), %d decision(s), want %d, %d",
				tt.text, len(payload.Requirements), len(payload.Decisions), tt.requirements, tt.decisions)
		}
	}
}

func TestRuleExtractor_DecidedBy(t *testing.T) {
	payload, _ := NewRuleExtractor(time.Now()).Extract(context.Background(), "The budget was approved by Dana Lee yesterday.")
	if len(payload.Decisions) != 1 || payload.Decisions[0].DecidedBy != "Dana Lee" {
		t.Errorf("unexpected decisions %+v", payload.Decisions)
	}
}

func TestNormalize(t *testing.T) {
	payload := &model.ExtractionPayload{
		Requirements: []model.RawRequirement{
			{Text: "  The API   must respond within 200ms  "},
			{Text: "Users must export reports", Kind: "functional", Status: "approved"},
			{Text: "   "},
		},
		Timelines: []model.RawTimeline{
			{Label: "Go-live", Date: "June 1"},
			{Label: "Beta sometime in spring", Date: "spring"},
		},
		Decisions:    []model.RawDecision{{Text: "Use Postgres", DecidedBy: " Bob "}},
		Stakeholders: []model.RawStakeholder{{Name: "Alice", Role: "PM"}, {Name: ""}},
	}
	set := Normalize(payload, testRecord("e1", ""))

	if len(set.Requirements) != 2 {
		t.Fatalf("expected 2 requirements, got %d", len(set.Requirements))
	}
	r0 := set.Requirements[0]
	if r0.Text != "The API must respond within 200ms" {
		t.Errorf("whitespace not collapsed: %q", r0.Text)
	}
	if r0.Kind != model.NonFunctional && r0.Kind != model.Functional {
		t.Errorf("invalid kind %q", r0.Kind)
	}
	if r0.Status != model.StatusPendingReview {
		t.Errorf("expected default status pending_review, got %s", r0.Status)
	}
	if r0.ID != "e1#req-1" || r0.SourceRecordID != "e1" || r0.Channel != model.ChannelEmail {
		t.Errorf("origin not tagged: %+v", r0)
	}
	if set.Requirements[1].Status != model.StatusApproved {
		t.Errorf("expected approved, got %s", set.Requirements[1].Status)
	}
	if set.Timelines[0].Date != "2025-06-01" {
		t.Errorf("expected 2025-06-01, got %q", set.Timelines[0].Date)
	}
	if set.Timelines[1].Date != "" {
		t.Errorf("expected empty date for unparseable value, got %q", set.Timelines[1].Date)
	}
	if set.Decisions[0].DecidedBy != "Bob" {
		t.Errorf("decided_by not trimmed: %q", set.Decisions[0].DecidedBy)
	}
	if len(set.Stakeholders) != 1 {
		t.Errorf("expected empty mention dropped, got %d", len(set.Stakeholders))
	}
}

func TestInferKind(t *testing.T) {
	if InferKind("Page load latency must stay under two seconds") != model.NonFunctional {
		t.Error("expected non-functional for latency")
	}
	if InferKind("Users must be able to export invoices") != model.Functional {
		t.Error("expected functional")
	}
}

func TestExtractor_CapabilitySuccess(t *testing.T) {
	capability := &mockCapability{payload: &model.ExtractionPayload{
		Requirements: []model.RawRequirement{{Text: "The portal must support SSO"}},
		Confidence:   0.9,
	}}
	e := NewExtractor(capability, model.DefaultConfig().Extraction)

	entities, audit := e.Extract(context.Background(), testRecord("e1", "The portal must support SSO"))
	if audit != nil {
		t.Errorf("unexpected audit %+v", audit)
	}
	if entities.Method != model.MethodCapability || entities.Confidence != 0.9 {
		t.Errorf("unexpected method/confidence %s %v", entities.Method, entities.Confidence)
	}
	if len(entities.Entities.Requirements) != 1 {
		t.Errorf("expected 1 requirement, got %d", len(entities.Entities.Requirements))
	}
}

func TestExtractor_FailureFallsBack(t *testing.T) {
	capability := &mockCapability{err: errors.New("HTTP 500")}
	e := NewExtractor(capability, model.DefaultConfig().Extraction)

	entities, audit := e.Extract(context.Background(), testRecord("e2", "The system must encrypt data at rest."))
	if audit == nil {
		t.Fatal("expected exactly one audit entry")
	}
	if audit.RecordID != "e2" || audit.Kind != model.AuditExtractionFailure {
		t.Errorf("unexpected audit %+v", audit)
	}
	if !strings.Contains(audit.Reason, ErrExtractionFailed.Error()) {
		t.Errorf("reason should wrap ErrExtractionFailed: %q", audit.Reason)
	}
	if entities.Method != model.MethodFallback {
		t.Errorf("expected fallback method, got %s", entities.Method)
	}
	if len(entities.Entities.Requirements) < 1 {
		t.Error("expected fallback to yield the obligation sentence")
	}
}

func TestExtractor_NilPayloadIsFailure(t *testing.T) {
	e := NewExtractor(&mockCapability{}, model.DefaultConfig().Extraction)
	_, audit := e.Extract(context.Background(), testRecord("e3", "We need a dashboard."))
	if audit == nil {
		t.Error("expected audit for nil payload")
	}
}

func TestExtractor_Timeout(t *testing.T) {
	capability := &mockCapability{delay: 5 * time.Second, payload: &model.ExtractionPayload{}}
	cfg := model.DefaultConfig().Extraction
	cfg.TimeoutSeconds = 1
	e := NewExtractor(capability, cfg)

	start := time.Now()
	entities, audit := e.Extract(context.Background(), testRecord("e4", "The app must work offline."))
	if time.Since(start) > 3*time.Second {
		t.Error("timeout was not applied")
	}
	if audit == nil || entities.Method != model.MethodFallback {
		t.Errorf("expected fallback after timeout, got %s %+v", entities.Method, audit)
	}
}

func TestExtractor_CancelledRunStillCompletesCall(t *testing.T) {
	capability := &mockCapability{delay: 50 * time.Millisecond, payload: &model.ExtractionPayload{Confidence: 1}}
	e := NewExtractor(capability, model.DefaultConfig().Extraction)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	entities, audit := e.Extract(ctx, testRecord("e5", "The app must work offline."))
	if audit != nil || entities.Method != model.MethodCapability {
		t.Errorf("in-flight call should not be cancelled by the run: %s %+v", entities.Method, audit)
	}
}

func TestExtractor_CachesSuccessOnly(t *testing.T) {
	capability := &mockCapability{payload: &model.ExtractionPayload{Confidence: 0.8}}
	mem := cache.NewMemoryCache(time.Minute, time.Minute)
	e := NewExtractor(capability, model.DefaultConfig().Extraction, WithCache(mem, time.Minute))

	rec := testRecord("e6", "The API must be versioned.")
	first, _ := e.Extract(context.Background(), rec)
	second, _ := e.Extract(context.Background(), rec)

	if first.Method != model.MethodCapability || second.Method != model.MethodCache {
		t.Errorf("expected capability then cache, got %s then %s", first.Method, second.Method)
	}
	if atomic.LoadInt32(&capability.calls) != 1 {
		t.Errorf("expected 1 capability call, got %d", capability.calls)
	}

	failing := &mockCapability{err: errors.New("boom")}
	mem2 := cache.NewMemoryCache(time.Minute, time.Minute)
	e2 := NewExtractor(failing, model.DefaultConfig().Extraction, WithCache(mem2, time.Minute))
	_, _ = e2.Extract(context.Background(), rec)
	if mem2.Len() != 0 {
		t.Error("failures must not be cached")
	}
}

func TestExtractor_NoCapabilityUsesRules(t *testing.T) {
	e := NewExtractor(nil, model.DefaultConfig().Extraction)
	entities, audit := e.Extract(context.Background(), testRecord("e7", "The system shall archive logs."))
	if audit != nil {
		t.Error("rules-only extraction is not a failure")
	}
	if entities.Method != model.MethodFallback || len(entities.Entities.Requirements) != 1 {
		t.Errorf("unexpected result %+v", entities)
	}
	if e.CapabilityName() != "rules" {
		t.Errorf("CapabilityName = %q", e.CapabilityName())
	}
}
