package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/brdsynth/internal/model"
	"github.com/ppiankov/brdsynth/internal/noise"
	"github.com/ppiankov/brdsynth/internal/textutil"
)

// DefaultTheme is reported when no theme vocabulary matches
const DefaultTheme = "Project Delivery"

type theme struct {
	name  string
	terms []string
}

// Checked in order; earlier entries win ties
var themes = []theme{
	{"API & Integration", []string{"api", "apis", "integration", "integrate", "endpoint", "endpoints", "webhook", "rest", "graphql", "sdk"}},
	{"Migration", []string{"migration", "migrate", "migrating", "legacy", "cutover", "transition"}},
	{"Security & Compliance", []string{"security", "secure", "compliance", "gdpr", "hipaa", "soc2", "encryption", "authentication", "sso", "audit"}},
	{"Performance & Scalability", []string{"performance", "latency", "scalability", "scalable", "throughput", "uptime", "load", "response time"}},
	{"Data Management", []string{"data", "database", "schema", "storage", "backup", "retention", "postgres", "postgresql", "mysql", "mongodb"}},
	{"Notification System", []string{"notification", "notifications", "notify", "alert", "alerts", "email alerts", "push"}},
}

// DefaultTopic is the project topic when no topic vocabulary matches
const DefaultTopic = "Technology Project"

// Checked in order; the first topic whose vocabulary any requirement uses wins
var topics = []theme{
	{"Platform Migration Project", []string{"migration", "migrate", "migrating", "cutover"}},
	{"Security Enhancement Initiative", []string{"security", "secure", "encryption", "encrypt"}},
	{"Customer Portal Development", []string{"portal"}},
	{"API Infrastructure Project", []string{"api", "apis"}},
}

// ProjectTopic names the project from the vocabulary of its requirements
func ProjectTopic(entities model.EntitySet) string {
	var tokens [][]string
	for _, r := range entities.Requirements {
		tokens = append(tokens, textutil.Tokenize(r.Text))
	}
	for _, tp := range topics {
		for _, tok := range tokens {
			if len(textutil.MatchTerms(tok, tp.terms)) > 0 {
				return tp.name
			}
		}
	}
	return DefaultTopic
}

// ProjectOverview names the project and counts rejected requirements as out
// of scope
func ProjectOverview(result *model.SynthesisResult) model.ProjectOverview {
	var scope model.Scope
	for _, r := range result.Entities.Requirements {
		if r.Status == model.StatusRejected {
			scope.OutOfScopeItems++
		} else {
			scope.InScopeItems++
		}
	}
	scope.TotalRequirements = len(result.Entities.Requirements)

	description := "No requirements were extracted from the communications."
	if scope.TotalRequirements > 0 {
		description = fmt.Sprintf("Delivers %d requirement(s) synthesized from project communications", scope.TotalRequirements)
		if channels := channelBreakdown(result.Stats.PerChannel); channels != "" {
			description += " across " + channels
		}
		description += "."
	}

	return model.ProjectOverview{
		Topic:       ProjectTopic(result.Entities),
		Description: description,
		Scope:       scope,
	}
}

// Themes returns up to three themes ranked by how many requirements and
// decisions mention them
func Themes(entities model.EntitySet) []string {
	var texts []string
	for _, r := range entities.Requirements {
		texts = append(texts, r.Text)
	}
	for _, d := range entities.Decisions {
		texts = append(texts, d.Text)
	}

	counts := make([]int, len(themes))
	for _, text := range texts {
		tokens := textutil.Tokenize(text)
		for i, th := range themes {
			if len(textutil.MatchTerms(tokens, th.terms)) > 0 {
				counts[i]++
			}
		}
	}

	idx := make([]int, 0, len(themes))
	for i := range themes {
		if counts[i] > 0 {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool { return counts[idx[a]] > counts[idx[b]] })

	if len(idx) == 0 {
		return []string{DefaultTheme}
	}
	if len(idx) > 3 {
		idx = idx[:3]
	}
	out := make([]string, len(idx))
	for i, n := range idx {
		out[i] = themes[n].name
	}
	return out
}

// Document maps a result onto the output document layout
func Document(result *model.SynthesisResult) model.Document {
	doc := model.Document{
		ExecutionSummary:    ExecutionSummary(result),
		ProjectOverview:     ProjectOverview(result),
		StakeholderMap:      result.StakeholderMap,
		TraceabilityMatrix:  make([]model.TraceabilityRow, 0, len(result.Entities.Requirements)),
		DecisionLog:         make([]model.DecisionLogEntry, 0, len(result.Entities.Decisions)),
		Timeline:            make([]model.TimelineEntry, 0, len(result.Entities.Timelines)),
		NoiseReductionLogic: NoiseReductionLogic(result.Noise),
		ProjectHealthScore:  result.HealthScore(),
		DataSources:         result.Stats.PerChannel,
		AuditTrail:          result.Audit,
		RiskAndConflicts: model.RiskAndConflicts{
			Conflicts:     result.Conflicts,
			CriticalCount: result.CriticalCount(),
		},
		SynthesisMetadata: model.SynthesisMetadata{
			Metadata: result.Metadata,
			Stats:    result.Stats,
			Partial:  result.Partial,
		},
	}

	for _, r := range result.Entities.Requirements {
		doc.TraceabilityMatrix = append(doc.TraceabilityMatrix, model.TraceabilityRow{
			ReqID:        r.ID,
			Requirement:  r.Text,
			Kind:         r.Kind,
			Source:       r.SourceRecordID,
			Channel:      r.Channel,
			Status:       r.Status,
			Traceability: r.Duplicates,
		})
	}

	for _, d := range result.Entities.Decisions {
		doc.DecisionLog = append(doc.DecisionLog, model.DecisionLogEntry{
			ID:        d.ID,
			Decision:  d.Text,
			DecidedBy: d.DecidedBy,
			Source:    d.SourceRecordID,
			Channel:   d.Channel,
		})
	}

	for _, t := range result.Entities.Timelines {
		doc.Timeline = append(doc.Timeline, model.TimelineEntry{
			ID:        t.ID,
			Date:      t.Date,
			Milestone: t.Label,
			Source:    t.SourceRecordID,
			Channel:   t.Channel,
		})
	}
	// Chronological; undated milestones last
	sort.SliceStable(doc.Timeline, func(i, j int) bool {
		a, b := doc.Timeline[i], doc.Timeline[j]
		if (a.Date == "") != (b.Date == "") {
			return b.Date == ""
		}
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return a.ID < b.ID
	})

	return doc
}

// ExecutionSummary renders the one-paragraph summary of a run
func ExecutionSummary(result *model.SynthesisResult) string {
	stats := result.Stats
	if stats.RecordsLoaded == 0 {
		return "No input records were provided; nothing to synthesize. Project health score: 100/100."
	}

	functional, nonFunctional := 0, 0
	for _, r := range result.Entities.Requirements {
		if r.Kind == model.NonFunctional {
			nonFunctional++
		} else {
			functional++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Synthesized %d requirement(s) (%d functional, %d non-functional), %d decision(s) and %d milestone(s) from %d record(s)",
		len(result.Entities.Requirements), functional, nonFunctional,
		len(result.Entities.Decisions), len(result.Entities.Timelines), stats.RecordsExtracted)
	if channels := channelBreakdown(stats.PerChannel); channels != "" {
		fmt.Fprintf(&b, " across %s", channels)
	}
	b.WriteString(". ")

	fmt.Fprintf(&b, "Key themes: %s. ", strings.Join(Themes(result.Entities), ", "))
	fmt.Fprintf(&b, "%d conflict(s) detected (%d critical). ", len(result.Conflicts), result.CriticalCount())
	if n := len(result.StakeholderMap.Stakeholders); n > 0 {
		fmt.Fprintf(&b, "%d stakeholder(s) identified, led by %s. ", n, result.StakeholderMap.Stakeholders[0].Name)
	}
	fmt.Fprintf(&b, "Project health score: %d/100.", result.HealthScore())
	if result.Partial {
		b.WriteString(" The run was cancelled before every record was processed; results are partial.")
	}
	return b.String()
}

func channelBreakdown(perChannel map[model.Channel]int) string {
	var parts []string
	for _, ch := range append(append([]model.Channel{}, model.KnownChannels...), model.ChannelUnknown) {
		if n := perChannel[ch]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s (%d)", ch, n))
		}
	}
	return strings.Join(parts, ", ")
}

// ruleDescriptions explain each noise rule in the generated logic text
var ruleDescriptions = map[string]string{
	noise.RuleShortRecord:    "records shorter than the minimum token count score 1.0",
	noise.RuleNoiseTerms:     "social and logistics vocabulary raises the keyword signal",
	noise.RuleRelevanceTerms: "project vocabulary lowers the keyword signal",
	noise.RuleNeutralTerms:   "records matching no vocabulary get a neutral keyword signal of 0.5",
	noise.RuleSimilarity:     "distance from the relevance corpus centroid is blended in",
	noise.RuleThreshold:      "records at or above the threshold are excluded",
	noise.RuleOffProject:     "records that do not mention the project filter are excluded",
}

var ruleOrder = []string{
	noise.RuleShortRecord,
	noise.RuleNoiseTerms,
	noise.RuleRelevanceTerms,
	noise.RuleNeutralTerms,
	noise.RuleSimilarity,
	noise.RuleThreshold,
	noise.RuleOffProject,
}

// NoiseReductionLogic describes the filtering rules that actually fired
func NoiseReductionLogic(report model.NoiseReport) string {
	if len(report.Decisions) == 0 {
		return fmt.Sprintf("No records were scored. Noise threshold: %.2f.", report.Threshold)
	}

	fired := make(map[string]int)
	for _, d := range report.Decisions {
		seen := make(map[string]bool)
		for _, rule := range d.Rules {
			name, _, _ := strings.Cut(rule, ":")
			if !seen[name] {
				seen[name] = true
				fired[name]++
			}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Scored %d record(s) against a noise threshold of %.2f; %d excluded.",
		len(report.Decisions), report.Threshold, report.Excluded())
	if report.ProjectFilter != "" {
		fmt.Fprintf(&b, " Project filter: %q.", report.ProjectFilter)
	}
	for _, rule := range ruleOrder {
		n := fired[rule]
		if n == 0 {
			continue
		}
		fmt.Fprintf(&b, " %s (%d record(s)): %s.", rule, n, ruleDescriptions[rule])
	}
	return b.String()
}
