package conflict

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ppiankov/brdsynth/internal/model"
	"github.com/ppiankov/brdsynth/internal/textutil"
)

// Detector finds disagreements between canonical entities that come from
// different records
type Detector struct {
	config model.ConflictConfig
}

// NewDetector creates a detector
func NewDetector(config model.ConflictConfig) *Detector {
	if len(config.Topics) == 0 {
		config.Topics = model.DefaultTopics()
	}
	return &Detector{config: config}
}

// claim is the kind-independent view of an entity for pairing
type claim struct {
	id       string
	text     string
	origin   model.Origin
	tokens   []string
	content  []string
	dates    []string
	polarity float64
	polar    bool
	approval bool
	markers  []string
	topics   []string
}

// finding is one pairwise result before collapsing
type finding struct {
	severity model.Severity
	kind     model.ConflictType
	a, b     claim
	topics   []string
	detail   string
}

func (d *Detector) newClaim(id, text, date string, origin model.Origin) claim {
	tokens := textutil.Tokenize(text)

	var dates []string
	if date != "" {
		dates = append(dates, date)
	}
	for _, m := range textutil.FindDates(text, origin.Timestamp.Year()) {
		dates = append(dates, m.Canonical())
	}

	var topics []string
	for _, t := range d.config.Topics {
		if len(textutil.MatchTerms(tokens, t.Anchors)) > 0 {
			topics = append(topics, t.Name)
		}
	}
	sort.Strings(topics)

	p, polar := polarity(tokens)
	return claim{
		id:       id,
		text:     text,
		origin:   origin,
		tokens:   tokens,
		content:  textutil.ContentTokens(text),
		dates:    dedupe(dates),
		polarity: p,
		polar:    polar,
		approval: hasApprovalVocabulary(tokens),
		markers:  textutil.MatchTerms(tokens, d.config.ContradictionMarkers),
		topics:   topics,
	}
}

func (d *Detector) claims(set model.EntitySet) []claim {
	var out []claim
	for _, r := range set.Requirements {
		out = append(out, d.newClaim(r.ID, r.Text, "", r.Origin))
	}
	for _, dec := range set.Decisions {
		out = append(out, d.newClaim(dec.ID, dec.Text, "", dec.Origin))
	}
	for _, t := range set.Timelines {
		out = append(out, d.newClaim(t.ID, t.Label, t.Date, t.Origin))
	}

	// Canonical order makes detection independent of input order
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].id != out[j].id {
			return out[i].id < out[j].id
		}
		return out[i].text < out[j].text
	})
	return out
}

// excludedUnknown returns, per topic, whether unknown-channel claims are
// left out of pairing because the topic already has two known channels
func excludedUnknown(claims []claim) map[string]bool {
	known := make(map[string]map[model.Channel]bool)
	for _, c := range claims {
		if !c.origin.Channel.IsKnown() {
			continue
		}
		for _, t := range c.topics {
			if known[t] == nil {
				known[t] = make(map[model.Channel]bool)
			}
			known[t][c.origin.Channel] = true
		}
	}
	out := make(map[string]bool, len(known))
	for t, chs := range known {
		out[t] = len(chs) >= 2
	}
	return out
}

// Detect returns the conflicts of a merged entity set. The result does not
// depend on input order and each entity pair is reported at most once.
func (d *Detector) Detect(set model.EntitySet) []model.Conflict {
	claims := d.claims(set)
	excluded := excludedUnknown(claims)

	var findings []finding
	for i := 0; i < len(claims); i++ {
		for j := i + 1; j < len(claims); j++ {
			a, b := claims[i], claims[j]
			if a.origin.SourceRecordID == b.origin.SourceRecordID {
				continue
			}
			topics := eligibleTopics(a, b, excluded)
			if len(topics) == 0 {
				continue
			}
			if f, ok := d.evaluate(a, b, topics); ok {
				findings = append(findings, f)
			}
		}
	}

	conflicts := collapse(findings)
	escalate(conflicts)

	sort.SliceStable(conflicts, func(i, j int) bool {
		a, b := conflicts[i], conflicts[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		ta, tb := strings.Join(a.Topics, ","), strings.Join(b.Topics, ",")
		if ta != tb {
			return ta < tb
		}
		return strings.Join(a.EntityIDs, ",") < strings.Join(b.EntityIDs, ",")
	})
	return conflicts
}

// eligibleTopics returns the shared topics in which neither claim is
// excluded for having an unknown channel
func eligibleTopics(a, b claim, excluded map[string]bool) []string {
	var out []string
	for _, t := range textutil.SharedTokens(a.topics, b.topics) {
		unknown := !a.origin.Channel.IsKnown() || !b.origin.Channel.IsKnown()
		if unknown && excluded[t] {
			continue
		}
		out = append(out, t)
	}
	return out
}

// evaluate applies the rules in priority order and returns the first match
func (d *Detector) evaluate(a, b claim, topics []string) (finding, bool) {
	crossChannel := a.origin.Channel != b.origin.Channel
	f := finding{a: a, b: b, topics: topics}

	// Dates
	gap, dated := closestGap(a.dates, b.dates)
	if crossChannel && dated && gap > d.config.DeadlineToleranceDays {
		f.severity, f.kind = model.SeverityCritical, model.ConflictDeadline
		f.detail = fmt.Sprintf("%d days apart", gap)
		return f, true
	}

	// Polarity
	diff := math.Abs(a.polarity - b.polarity)
	polar := a.polar && b.polar
	if crossChannel && polar && diff > d.config.PolarityThreshold {
		f.severity, f.kind = model.SeverityHigh, model.ConflictScope
		if a.approval || b.approval {
			f.kind = model.ConflictApproval
		}
		f.detail = "opposing positions"
		return f, true
	}

	// Contradiction markers that reference the other claim
	shared := len(textutil.SharedTokens(a.content, b.content))
	marked := len(a.markers) > 0 || len(b.markers) > 0
	if marked && shared >= d.config.ReferenceMinShared {
		f.severity, f.kind = model.SeverityMedium, model.ConflictExplicit
		if crossChannel && (contains(topics, "technology") || contains(topics, "database")) {
			f.kind = model.ConflictTechnology
		}
		markers := dedupe(append(append([]string(nil), a.markers...), b.markers...))
		f.detail = "contradiction: " + strings.Join(markers, ", ")
		return f, true
	}

	// Signals under thresholds
	f.severity = model.SeverityLow
	switch {
	case crossChannel && dated && gap > 0:
		f.kind = model.ConflictDeadline
		f.detail = fmt.Sprintf("dates %d day(s) apart, within tolerance", gap)
		return f, true
	case crossChannel && polar && diff > d.config.AmbiguityThreshold:
		f.kind = model.ConflictScope
		if a.approval || b.approval {
			f.kind = model.ConflictApproval
		}
		f.detail = "diverging positions"
		return f, true
	case marked && shared > 0:
		f.kind = model.ConflictExplicit
		f.detail = "contradiction marker with weak reference"
		return f, true
	}
	return finding{}, false
}

// closestGap returns the smallest day distance between the two date sets
func closestGap(a, b []string) (int, bool) {
	best, found := 0, false
	for _, x := range a {
		for _, y := range b {
			days, ok := textutil.DaysBetween(x, y)
			if !ok {
				continue
			}
			if !found || days < best {
				best, found = days, true
			}
		}
	}
	return best, found
}

type collapseKey struct {
	kind    model.ConflictType
	records string
}

// collapse merges findings of the same type between the same two records
func collapse(findings []finding) []model.Conflict {
	index := make(map[collapseKey]int)
	var out []model.Conflict
	for _, f := range findings {
		records := []string{f.a.origin.SourceRecordID, f.b.origin.SourceRecordID}
		sort.Strings(records)
		key := collapseKey{kind: f.kind, records: strings.Join(records, "\x00")}

		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, model.Conflict{
				Description: describe(f),
				Severity:    f.severity,
				Type:        f.kind,
				Sources:     records,
				EntityIDs:   dedupe([]string{f.a.id, f.b.id}),
				Channels:    channels(f.a.origin.Channel, f.b.origin.Channel),
				Topics:      f.topics,
			})
			continue
		}

		c := &out[i]
		if f.severity.Rank() > c.Severity.Rank() {
			c.Severity = f.severity
			c.Description = describe(f)
		}
		c.EntityIDs = dedupe(append(c.EntityIDs, f.a.id, f.b.id))
		c.Topics = dedupe(append(c.Topics, f.topics...))
	}
	return out
}

// escalate raises MEDIUM conflicts that share a topic with a CRITICAL one
func escalate(conflicts []model.Conflict) {
	critical := make(map[string]bool)
	for _, c := range conflicts {
		if c.Severity != model.SeverityCritical {
			continue
		}
		for _, t := range c.Topics {
			critical[t] = true
		}
	}
	for i := range conflicts {
		if conflicts[i].Severity != model.SeverityMedium {
			continue
		}
		for _, t := range conflicts[i].Topics {
			if critical[t] {
				conflicts[i].Severity = model.SeverityHigh
				conflicts[i].Escalated = true
				break
			}
		}
	}
}

// describe renders a finding with the pair in canonical order
func describe(f finding) string {
	a, b := f.a, f.b
	if b.id < a.id {
		a, b = b, a
	}
	switch f.kind {
	case model.ConflictDeadline:
		return fmt.Sprintf("Deadline mismatch on %s: %q (%s, %s) vs %q (%s, %s), %s",
			strings.Join(f.topics, "/"), a.text, a.origin.Channel, a.origin.SourceRecordID,
			b.text, b.origin.Channel, b.origin.SourceRecordID, f.detail)
	case model.ConflictApproval, model.ConflictScope:
		return fmt.Sprintf("%s disagreement on %s (%s): %q (%s, %s) vs %q (%s, %s)",
			titleCase(string(f.kind)), strings.Join(f.topics, "/"), f.detail,
			a.text, a.origin.Channel, a.origin.SourceRecordID,
			b.text, b.origin.Channel, b.origin.SourceRecordID)
	default:
		return fmt.Sprintf("%s conflict on %s (%s): %q (%s, %s) vs %q (%s, %s)",
			titleCase(string(f.kind)), strings.Join(f.topics, "/"), f.detail,
			a.text, a.origin.Channel, a.origin.SourceRecordID,
			b.text, b.origin.Channel, b.origin.SourceRecordID)
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func channels(a, b model.Channel) []model.Channel {
	if a == b {
		return []model.Channel{a}
	}
	if b < a {
		a, b = b, a
	}
	return []model.Channel{a, b}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// dedupe sorts and removes repeated values. It does not modify in.
func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	sorted := append([]string(nil), in...)
	sort.Strings(sorted)
	out := sorted[:1]
	for _, s := range sorted[1:] {
		if s != out[len(out)-1] {
			out = append(out, s)
		}
	}
	return out
}
