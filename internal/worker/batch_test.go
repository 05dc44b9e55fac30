package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/brdsynth/internal/model"
)

// mockExtractor implements RecordExtractor
type mockExtractor struct {
	delay   time.Duration
	failIDs map[string]bool
	calls   int32
}

func (m *mockExtractor) Extract(ctx context.Context, record model.Record) (model.RecordEntities, *model.AuditEntry) {
	atomic.AddInt32(&m.calls, 1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	entities := model.RecordEntities{RecordID: record.ID, Method: model.MethodCapability}
	if m.failIDs[record.ID] {
		return entities, &model.AuditEntry{RecordID: record.ID, Kind: model.AuditExtractionFailure}
	}
	return entities, nil
}

func records(n int) []model.Record {
	out := make([]model.Record, n)
	for i := range out {
		out[i] = model.Record{ID: fmt.Sprintf("r%02d", i), RawText: "text"}
	}
	return out
}

func TestBatchProcessor_ProcessRecords(t *testing.T) {
	extractor := &mockExtractor{failIDs: map[string]bool{"r03": true}}
	processor := NewBatchProcessor(extractor, 3)

	results, notDispatched := processor.ProcessRecords(context.Background(), records(10))

	if len(results) != 10 {
		t.Fatalf("expected 10 results, got %d", len(results))
	}
	if len(notDispatched) != 0 {
		t.Errorf("expected all records dispatched, got %d left", len(notDispatched))
	}
	for i, r := range results {
		if r.Index != i {
			t.Errorf("results not in input order: position %d has index %d", i, r.Index)
		}
	}
	if results[3].Audit == nil {
		t.Error("expected audit entry for r03")
	}
	if results[0].GetError() != nil {
		t.Error("extraction results never carry errors")
	}
}

func TestBatchProcessor_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockExtractor{}, 2)
	results, notDispatched := processor.ProcessRecords(context.Background(), nil)
	if len(results) != 0 || len(notDispatched) != 0 {
		t.Errorf("expected empty output, got %d results and %d pending", len(results), len(notDispatched))
	}
}

func TestBatchProcessor_CancelStopsDispatch(t *testing.T) {
	extractor := &mockExtractor{delay: 20 * time.Millisecond}
	processor := NewBatchProcessor(extractor, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, notDispatched := processor.ProcessRecords(ctx, records(5))

	if len(results)+len(notDispatched) != 5 {
		t.Errorf("every record must be either processed or reported, got %d + %d", len(results), len(notDispatched))
	}
	if len(notDispatched) != 5 {
		t.Errorf("expected nothing dispatched after cancel, got %d pending", len(notDispatched))
	}
	if atomic.LoadInt32(&extractor.calls) != int32(len(results)) {
		t.Errorf("calls %d do not match results %d", extractor.calls, len(results))
	}
}

// gatedExtractor blocks its first call until released
type gatedExtractor struct {
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func (g *gatedExtractor) Extract(ctx context.Context, record model.Record) (model.RecordEntities, *model.AuditEntry) {
	if g.calls.Add(1) == 1 {
		close(g.started)
		<-g.release
	}
	return model.RecordEntities{RecordID: record.ID}, nil
}

func TestBatchProcessor_CancelMidRunStartsNoQueuedCalls(t *testing.T) {
	extractor := &gatedExtractor{started: make(chan struct{}), release: make(chan struct{})}
	processor := NewBatchProcessor(extractor, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type output struct {
		results       []*ExtractionResult
		notDispatched []model.Record
	}
	done := make(chan output)
	go func() {
		r, n := processor.ProcessRecords(ctx, records(10))
		done <- output{r, n}
	}()

	<-extractor.started
	// Let the submitter fill the queue behind the blocked call
	time.Sleep(20 * time.Millisecond)
	cancel()
	close(extractor.release)

	var out output
	select {
	case out = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("ProcessRecords did not return after cancel")
	}

	if got := extractor.calls.Load(); got != 1 {
		t.Errorf("extractor called %d times, want only the in-flight call", got)
	}
	if len(out.results) != 1 || out.results[0].RecordID != "r00" {
		t.Errorf("results = %+v, want only r00", out.results)
	}
	if len(out.notDispatched) != 9 {
		t.Fatalf("notDispatched = %d, want 9", len(out.notDispatched))
	}
	for i, r := range out.notDispatched {
		if want := fmt.Sprintf("r%02d", i+1); r.ID != want {
			t.Errorf("notDispatched[%d] = %s, want %s", i, r.ID, want)
		}
	}
}
