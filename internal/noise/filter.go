package noise

import (
	"fmt"
	"math"
	"strings"

	"github.com/ppiankov/brdsynth/internal/model"
	"github.com/ppiankov/brdsynth/internal/textutil"
)

// Rule names reported in a decision's Rules list
const (
	RuleShortRecord    = "short_record"
	RuleNoiseTerms     = "noise_terms"
	RuleRelevanceTerms = "relevance_terms"
	RuleNeutralTerms   = "no_keyword_match"
	RuleSimilarity     = "centroid_similarity"
	RuleThreshold      = "above_threshold"
	RuleOffProject     = "off_project"
)

// Filter scores records for noise
type Filter struct {
	config   model.NoiseConfig
	centroid map[string]float64
	project  string // Lower-cased project filter
}

// NewFilter creates a filter. The relevance centroid is built once from the
// configured corpus.
func NewFilter(config model.NoiseConfig) *Filter {
	return &Filter{
		config:   config,
		centroid: buildCentroid(config.RelevanceCorpus),
		project:  strings.ToLower(textutil.CollapseSpace(config.ProjectFilter)),
	}
}

// buildCentroid averages the unit-length term vectors of the corpus
func buildCentroid(corpus []string) map[string]float64 {
	centroid := make(map[string]float64)
	docs := 0
	for _, doc := range corpus {
		tf := textutil.TermFrequency(textutil.ContentTokens(doc))
		var norm float64
		for _, v := range tf {
			norm += v * v
		}
		if norm == 0 {
			continue
		}
		docs++
		for k, v := range tf {
			centroid[k] += v / math.Sqrt(norm)
		}
	}
	if docs == 0 {
		return nil
	}
	for k := range centroid {
		centroid[k] /= float64(docs)
	}
	return centroid
}

// Score returns the noise score of a record in [0,1] and the decision that
// explains it
func (f *Filter) Score(record model.Record) (float64, model.NoiseDecision) {
	tokens := textutil.Tokenize(record.RawText)
	decision := model.NoiseDecision{
		RecordID:   record.ID,
		Channel:    record.Channel,
		TokenCount: len(tokens),
		Rules:      []string{},
	}

	decision.NoiseTerms = textutil.MatchTerms(tokens, f.config.NoiseKeywords)
	decision.Relevant = textutil.MatchTerms(tokens, f.config.RelevanceKeywords)

	if len(tokens) < f.config.MinTokens {
		decision.Rules = append(decision.Rules, fmt.Sprintf("%s: %d tokens < %d", RuleShortRecord, len(tokens), f.config.MinTokens))
		decision.Score = 1.0
		f.finish(&decision, record.RawText)
		return decision.Score, decision
	}

	// Signal (a): share of noise terms among all matched terms
	var keyword float64
	noiseHits, relHits := len(decision.NoiseTerms), len(decision.Relevant)
	switch {
	case noiseHits+relHits == 0:
		keyword = 0.5
		decision.Rules = append(decision.Rules, RuleNeutralTerms+": neutral 0.5")
	default:
		keyword = float64(noiseHits) / float64(noiseHits+relHits)
		if noiseHits > 0 {
			decision.Rules = append(decision.Rules, fmt.Sprintf("%s: %s", RuleNoiseTerms, strings.Join(decision.NoiseTerms, ", ")))
		}
		if relHits > 0 {
			decision.Rules = append(decision.Rules, fmt.Sprintf("%s: %s", RuleRelevanceTerms, strings.Join(decision.Relevant, ", ")))
		}
	}

	// Signal (b): distance from the relevance centroid
	wk, ws := f.config.KeywordWeight, f.config.SimilarityWeight
	var score float64
	if f.centroid == nil || ws == 0 {
		score = keyword
	} else {
		sim := textutil.Cosine(textutil.TermFrequency(textutil.ContentTokens(record.RawText)), f.centroid)
		decision.Similarity = textutil.Round(sim, 4)
		decision.Rules = append(decision.Rules, fmt.Sprintf("%s: %.2f", RuleSimilarity, sim))
		score = (wk*keyword + ws*(1-sim)) / (wk + ws)
	}

	decision.Score = clamp(textutil.Round(score, 4))
	f.finish(&decision, record.RawText)
	return decision.Score, decision
}

func (f *Filter) finish(d *model.NoiseDecision, text string) {
	if d.Score >= f.config.Threshold {
		d.Excluded = true
		d.Rules = append(d.Rules, fmt.Sprintf("%s: %.2f >= %.2f", RuleThreshold, d.Score, f.config.Threshold))
	}
	if f.project != "" && !strings.Contains(strings.ToLower(textutil.CollapseSpace(text)), f.project) {
		d.Excluded = true
		d.Rules = append(d.Rules, fmt.Sprintf("%s: no mention of %q", RuleOffProject, f.config.ProjectFilter))
	}
}

// IsNoise reports whether the record is excluded: it scores at or above the
// threshold or misses the project filter
func (f *Filter) IsNoise(record model.Record) bool {
	_, decision := f.Score(record)
	return decision.Excluded
}

// Apply scores every record, annotates the kept copies with their score and
// returns them with the per-record decisions
func (f *Filter) Apply(records []model.Record) ([]model.Record, model.NoiseReport) {
	report := model.NoiseReport{
		Threshold:     f.config.Threshold,
		ProjectFilter: f.config.ProjectFilter,
		Decisions:     make([]model.NoiseDecision, 0, len(records)),
	}
	kept := make([]model.Record, 0, len(records))
	for _, r := range records {
		score, decision := f.Score(r)
		report.Decisions = append(report.Decisions, decision)
		if decision.Excluded {
			continue
		}
		r.NoiseScore = score
		kept = append(kept, r)
	}
	return kept, report
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
