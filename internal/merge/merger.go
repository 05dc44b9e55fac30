package merge

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/brdsynth/internal/model"
	"github.com/ppiankov/brdsynth/internal/textutil"
)

// Merger folds near-duplicate entities of the same kind into one canonical
// entity. The earliest entity wins; later ones become trace references.
type Merger struct {
	threshold float64
}

// NewMerger creates a merger
func NewMerger(config model.MergeConfig) *Merger {
	return &Merger{threshold: config.SimilarityThreshold}
}

// Similarity returns max(token Jaccard, normalized Levenshtein) of the
// comparison keys of two texts. It is symmetric and in [0,1].
func Similarity(a, b string) float64 {
	ka, kb := textutil.NormalizeKey(a), textutil.NormalizeKey(b)
	j := textutil.Jaccard(strings.Fields(ka), strings.Fields(kb))
	l := textutil.LevenshteinSimilarity(ka, kb)
	if j > l {
		return j
	}
	return l
}

// entry is the kind-independent view of an entity used for clustering
type entry struct {
	pos    int // Index in the input slice
	id     string
	text   string
	key    string
	dates  []string
	origin model.Origin
	dups   []model.TraceRef
}

func newEntry(pos int, id, text, date string, origin model.Origin, dups []model.TraceRef) entry {
	var dates []string
	if date != "" {
		dates = append(dates, date)
	}
	for _, d := range textutil.FindDates(text, origin.Timestamp.Year()) {
		dates = append(dates, d.Canonical())
	}
	return entry{
		pos:    pos,
		id:     id,
		text:   text,
		key:    textutil.NormalizeKey(text),
		dates:  uniqueSorted(dates),
		origin: origin,
		dups:   dups,
	}
}

// less is the total order entities are compared in
func less(a, b entry) bool {
	if !a.origin.Timestamp.Equal(b.origin.Timestamp) {
		return a.origin.Timestamp.Before(b.origin.Timestamp)
	}
	if a.key != b.key {
		return a.key < b.key
	}
	if a.origin.SourceRecordID != b.origin.SourceRecordID {
		return a.origin.SourceRecordID < b.origin.SourceRecordID
	}
	if a.id != b.id {
		return a.id < b.id
	}
	return a.text < b.text
}

// duplicate reports whether two entries describe the same thing
func (m *Merger) duplicate(a, b entry) bool {
	if len(a.dates) > 0 && len(b.dates) > 0 && strings.Join(a.dates, ",") != strings.Join(b.dates, ",") {
		return false
	}
	return Similarity(a.text, b.text) >= m.threshold
}

// cluster groups entries around anchors. Each returned group starts with
// its canonical entry followed by its duplicates in comparison order.
func (m *Merger) cluster(entries []entry) [][]entry {
	sort.SliceStable(entries, func(i, j int) bool { return less(entries[i], entries[j]) })

	var groups [][]entry
	for _, e := range entries {
		placed := false
		for g := range groups {
			if m.duplicate(groups[g][0], e) {
				groups[g] = append(groups[g], e)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, []entry{e})
		}
	}

	// Output order: canonical text, then timestamp
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i][0], groups[j][0]
		if a.key != b.key {
			return a.key < b.key
		}
		return less(a, b)
	})
	return groups
}

// traceRefs flattens the duplicates of a group, keeping the duplicates
// each member already carried
func traceRefs(group []entry) []model.TraceRef {
	var refs []model.TraceRef
	for i, e := range group {
		refs = append(refs, e.dups...)
		if i == 0 {
			continue
		}
		refs = append(refs, model.TraceRef{
			EntityID:       e.id,
			Text:           e.text,
			SourceRecordID: e.origin.SourceRecordID,
			Channel:        e.origin.Channel,
			Timestamp:      e.origin.Timestamp,
		})
	}
	sort.SliceStable(refs, func(i, j int) bool {
		if !refs[i].Timestamp.Equal(refs[j].Timestamp) {
			return refs[i].Timestamp.Before(refs[j].Timestamp)
		}
		if refs[i].SourceRecordID != refs[j].SourceRecordID {
			return refs[i].SourceRecordID < refs[j].SourceRecordID
		}
		return refs[i].EntityID < refs[j].EntityID
	})
	return refs
}

// Merge deduplicates every entity list of the set. It is idempotent and
// independent of input order. Canonical ids are reassigned in output order.
func (m *Merger) Merge(set model.EntitySet) model.EntitySet {
	return model.EntitySet{
		Requirements: m.mergeRequirements(set.Requirements),
		Decisions:    m.mergeDecisions(set.Decisions),
		Timelines:    m.mergeTimelines(set.Timelines),
		Stakeholders: mergeMentions(set.Stakeholders),
	}
}

func (m *Merger) mergeRequirements(in []model.Requirement) []model.Requirement {
	entries := make([]entry, len(in))
	for i, r := range in {
		entries[i] = newEntry(i, r.ID, r.Text, "", r.Origin, r.Duplicates)
	}

	out := make([]model.Requirement, 0, len(in))
	for n, group := range m.cluster(entries) {
		canonical := in[group[0].pos]
		canonical.ID = fmt.Sprintf("REQ-%04d", n+1)
		canonical.Duplicates = traceRefs(group)
		out = append(out, canonical)
	}
	return out
}

func (m *Merger) mergeDecisions(in []model.Decision) []model.Decision {
	entries := make([]entry, len(in))
	for i, d := range in {
		entries[i] = newEntry(i, d.ID, d.Text, "", d.Origin, d.Duplicates)
	}

	out := make([]model.Decision, 0, len(in))
	for n, group := range m.cluster(entries) {
		canonical := in[group[0].pos]
		// Attribution comes from the earliest member that names someone
		for _, e := range group {
			if canonical.DecidedBy != "" {
				break
			}
			canonical.DecidedBy = in[e.pos].DecidedBy
		}
		canonical.ID = fmt.Sprintf("DEC-%04d", n+1)
		canonical.Duplicates = traceRefs(group)
		out = append(out, canonical)
	}
	return out
}

func (m *Merger) mergeTimelines(in []model.Timeline) []model.Timeline {
	entries := make([]entry, len(in))
	for i, t := range in {
		entries[i] = newEntry(i, t.ID, t.Label, t.Date, t.Origin, t.Duplicates)
	}

	out := make([]model.Timeline, 0, len(in))
	for n, group := range m.cluster(entries) {
		canonical := in[group[0].pos]
		canonical.ID = fmt.Sprintf("TL-%04d", n+1)
		canonical.Duplicates = traceRefs(group)
		out = append(out, canonical)
	}
	return out
}

// mergeMentions drops repeated mentions of a person within one record.
// Mentions from different records are kept so channel presence survives.
func mergeMentions(in []model.StakeholderMention) []model.StakeholderMention {
	sorted := make([]model.StakeholderMention, len(in))
	copy(sorted, in)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		ka, kb := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if ka != kb {
			return ka < kb
		}
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		if a.SourceRecordID != b.SourceRecordID {
			return a.SourceRecordID < b.SourceRecordID
		}
		if a.Role != b.Role {
			return a.Role > b.Role // Non-empty role first
		}
		return a.Name < b.Name
	})

	seen := make(map[string]int)
	out := make([]model.StakeholderMention, 0, len(sorted))
	for _, s := range sorted {
		k := strings.ToLower(s.Name) + "\x00" + s.SourceRecordID
		if i, ok := seen[k]; ok {
			if out[i].Role == "" {
				out[i].Role = s.Role
			}
			continue
		}
		seen[k] = len(out)
		out = append(out, s)
	}
	return out
}

func uniqueSorted(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	sort.Strings(in)
	out := in[:1]
	for _, s := range in[1:] {
		if s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	return out
}
