package merge

import (
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/ppiankov/brdsynth/internal/model"
)

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func origin(record string, ch model.Channel, hours int) model.Origin {
	return model.Origin{SourceRecordID: record, Channel: ch, Timestamp: base.Add(time.Duration(hours) * time.Hour)}
}

func req(id, text string, o model.Origin) model.Requirement {
	return model.Requirement{Origin: o, ID: id, Text: text, Kind: model.Functional, Status: model.StatusPendingReview}
}

func sampleSet() model.EntitySet {
	return model.EntitySet{
		Requirements: []model.Requirement{
			req("m1#req-1", "The portal must support single sign-on", origin("m1", model.ChannelMeeting, 5)),
			req("e1#req-1", "The portal must support single sign on.", origin("e1", model.ChannelEmail, 1)),
			req("c1#req-1", "Reports must be exportable to CSV", origin("c1", model.ChannelChat, 3)),
			req("c2#req-1", "the portal MUST support single sign-on", origin("c2", model.ChannelChat, 8)),
		},
		Decisions: []model.Decision{
			{Origin: origin("m1", model.ChannelMeeting, 5), ID: "m1#dec-1", Text: "We go with PostgreSQL"},
			{Origin: origin("e2", model.ChannelEmail, 6), ID: "e2#dec-1", Text: "we go with PostgreSQL", DecidedBy: "Bob"},
		},
		Timelines: []model.Timeline{
			{Origin: origin("e1", model.ChannelEmail, 1), ID: "e1#tl-1", Label: "Deadline is May 15", Date: "2025-05-15"},
			{Origin: origin("m1", model.ChannelMeeting, 5), ID: "m1#tl-1", Label: "Deadline is May 16", Date: "2025-05-16"},
			{Origin: origin("c1", model.ChannelChat, 3), ID: "c1#tl-1", Label: "deadline is May 15", Date: "2025-05-15"},
		},
		Stakeholders: []model.StakeholderMention{
			{Origin: origin("m1", model.ChannelMeeting, 5), Name: "Alice", Role: ""},
			{Origin: origin("m1", model.ChannelMeeting, 5), Name: "alice", Role: "PM"},
			{Origin: origin("e1", model.ChannelEmail, 1), Name: "Alice"},
		},
	}
}

func TestSimilarity(t *testing.T) {
	if s := Similarity("The portal must support SSO", "the portal must support sso."); s != 1 {
		t.Errorf("expected 1 for identical keys, got %v", s)
	}
	if s := Similarity("Use PostgreSQL", "Export reports to CSV"); s >= 0.8 {
		t.Errorf("expected low similarity, got %v", s)
	}
	a, b := "deploy on kubernetes", "deploy to kubernetes"
	if Similarity(a, b) != Similarity(b, a) {
		t.Error("similarity must be symmetric")
	}
}

func TestMerge_EarliestIsCanonical(t *testing.T) {
	m := NewMerger(model.DefaultConfig().Merge)
	out := m.Merge(sampleSet())

	if len(out.Requirements) != 2 {
		t.Fatalf("expected 2 canonical requirements, got %d: %+v", len(out.Requirements), out.Requirements)
	}

	var sso model.Requirement
	for _, r := range out.Requirements {
		if r.SourceRecordID == "e1" {
			sso = r
		}
	}
	if sso.ID == "" {
		t.Fatalf("expected the earliest (e1) SSO requirement to be canonical: %+v", out.Requirements)
	}
	if len(sso.Duplicates) != 2 {
		t.Fatalf("expected 2 trace refs, got %+v", sso.Duplicates)
	}
	if sso.Duplicates[0].SourceRecordID != "m1" || sso.Duplicates[1].SourceRecordID != "c2" {
		t.Errorf("trace refs not in timestamp order: %+v", sso.Duplicates)
	}
}

func TestMerge_IDsAndOrder(t *testing.T) {
	out := NewMerger(model.DefaultConfig().Merge).Merge(sampleSet())

	if out.Requirements[0].ID != "REQ-0001" || out.Requirements[1].ID != "REQ-0002" {
		t.Errorf("unexpected ids %s %s", out.Requirements[0].ID, out.Requirements[1].ID)
	}
	// "reports ..." sorts before "the portal ..."
	if out.Requirements[0].SourceRecordID != "c1" {
		t.Errorf("expected output sorted by canonical text, got %+v", out.Requirements)
	}
	if out.Decisions[0].ID != "DEC-0001" || out.Timelines[0].ID != "TL-0001" {
		t.Errorf("unexpected ids %s %s", out.Decisions[0].ID, out.Timelines[0].ID)
	}
}

func TestMerge_DifferentDatesNeverMerge(t *testing.T) {
	out := NewMerger(model.DefaultConfig().Merge).Merge(sampleSet())

	if len(out.Timelines) != 2 {
		t.Fatalf("expected May 15 and May 16 kept apart, got %+v", out.Timelines)
	}
	for _, tl := range out.Timelines {
		if tl.Date == "2025-05-15" && (tl.SourceRecordID != "e1" || len(tl.Duplicates) != 1) {
			t.Errorf("expected e1 canonical with c1 duplicate, got %+v", tl)
		}
	}
}

func TestMerge_DecisionAttributionFromDuplicate(t *testing.T) {
	out := NewMerger(model.DefaultConfig().Merge).Merge(sampleSet())
	if len(out.Decisions) != 1 {
		t.Fatalf("expected 1 decision, got %d", len(out.Decisions))
	}
	d := out.Decisions[0]
	if d.SourceRecordID != "m1" || d.DecidedBy != "Bob" {
		t.Errorf("unexpected decision %+v", d)
	}
}

func TestMerge_MentionsPerRecord(t *testing.T) {
	out := NewMerger(model.DefaultConfig().Merge).Merge(sampleSet())
	if len(out.Stakeholders) != 2 {
		t.Fatalf("expected one mention per record, got %+v", out.Stakeholders)
	}
	for _, s := range out.Stakeholders {
		if s.SourceRecordID == "m1" && s.Role != "PM" {
			t.Errorf("expected role kept for m1 mention, got %+v", s)
		}
	}
}

func TestMerge_Idempotent(t *testing.T) {
	m := NewMerger(model.DefaultConfig().Merge)
	once := m.Merge(sampleSet())
	twice := m.Merge(once)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("merge is not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestMerge_OrderIndependent(t *testing.T) {
	m := NewMerger(model.DefaultConfig().Merge)
	want := m.Merge(sampleSet())

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		set := sampleSet()
		rng.Shuffle(len(set.Requirements), func(a, b int) {
			set.Requirements[a], set.Requirements[b] = set.Requirements[b], set.Requirements[a]
		})
		rng.Shuffle(len(set.Timelines), func(a, b int) {
			set.Timelines[a], set.Timelines[b] = set.Timelines[b], set.Timelines[a]
		})
		rng.Shuffle(len(set.Decisions), func(a, b int) {
			set.Decisions[a], set.Decisions[b] = set.Decisions[b], set.Decisions[a]
		})
		rng.Shuffle(len(set.Stakeholders), func(a, b int) {
			set.Stakeholders[a], set.Stakeholders[b] = set.Stakeholders[b], set.Stakeholders[a]
		})

		if got := m.Merge(set); !reflect.DeepEqual(got, want) {
			t.Fatalf("permutation %d changed the result", i)
		}
	}
}

func TestMerge_Empty(t *testing.T) {
	out := NewMerger(model.DefaultConfig().Merge).Merge(model.EntitySet{})
	if out.Len() != 0 {
		t.Errorf("expected empty set, got %d entities", out.Len())
	}
	if out.Requirements == nil {
		t.Error("expected non-nil empty lists")
	}
}
