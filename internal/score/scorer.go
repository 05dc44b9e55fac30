package score

import (
	"fmt"

	"github.com/ppiankov/brdsynth/internal/model"
)

// Signal types emitted by the scorer
const (
	SignalConflictPenalty   = "conflict_penalty"
	SignalExtractionQuality = "extraction_quality"
	SignalNoiseReduction    = "noise_reduction"
)

// Scorer calculates the project health score and its signals
type Scorer struct {
	config model.HealthConfig
}

// NewScorer creates a new scorer
func NewScorer(config model.HealthConfig) *Scorer {
	return &Scorer{config: config}
}

// Calculate returns 100 minus the conflict penalties, floored at 0. Only
// conflicts move the score; the remaining signals explain the run.
func (s *Scorer) Calculate(conflicts []model.Conflict, stats model.Stats) model.Health {
	var signals []model.Signal

	// 1. Conflict penalties
	penalty := 0
	for _, sev := range []model.Severity{model.SeverityCritical, model.SeverityHigh, model.SeverityMedium, model.SeverityLow} {
		p, signal := s.calculatePenalty(conflicts, sev)
		penalty += p
		if signal.Type != "" {
			signals = append(signals, signal)
		}
	}

	// 2. Extraction quality (informational)
	signals = append(signals, s.extractionQuality(stats))

	// 3. Noise reduction (informational)
	signals = append(signals, s.noiseReduction(stats))

	score := 100 - penalty
	if score < 0 {
		score = 0
	}

	return model.Health{
		Score:   score,
		Signals: signals,
	}
}

// calculatePenalty returns the penalty points of one severity tier
func (s *Scorer) calculatePenalty(conflicts []model.Conflict, sev model.Severity) (int, model.Signal) {
	count := model.CountSeverity(conflicts, sev)
	if count == 0 {
		return 0, model.Signal{}
	}

	each := s.config.Penalty(sev)
	points := count * each
	return points, model.Signal{
		Type:        SignalConflictPenalty,
		Description: fmt.Sprintf("%d %s conflict(s): -%d", count, sev, points),
		Data: map[string]interface{}{
			"severity": string(sev),
			"count":    count,
			"penalty":  each,
			"points":   points,
			"formula":  "count * penalty",
		},
	}
}

// extractionQuality reports how many records needed the rule fallback
func (s *Scorer) extractionQuality(stats model.Stats) model.Signal {
	if stats.RecordsExtracted == 0 {
		return model.Signal{
			Type:        SignalExtractionQuality,
			Description: "No records extracted",
			Data:        map[string]interface{}{"extracted": 0},
		}
	}

	ratio := float64(stats.ExtractionFailures) / float64(stats.RecordsExtracted)
	return model.Signal{
		Type:        SignalExtractionQuality,
		Description: fmt.Sprintf("Capability failures: %d/%d (%.0f%%)", stats.ExtractionFailures, stats.RecordsExtracted, ratio*100),
		Data: map[string]interface{}{
			"extracted": stats.RecordsExtracted,
			"failures":  stats.ExtractionFailures,
			"ratio":     ratio,
			"formula":   "failures / extracted",
		},
	}
}

// noiseReduction reports the share of records filtered as noise
func (s *Scorer) noiseReduction(stats model.Stats) model.Signal {
	considered := stats.RecordsLoaded - stats.RecordsMalformed
	if considered <= 0 {
		return model.Signal{
			Type:        SignalNoiseReduction,
			Description: "No records considered",
			Data:        map[string]interface{}{"considered": 0},
		}
	}

	ratio := float64(stats.RecordsFiltered) / float64(considered)
	return model.Signal{
		Type:        SignalNoiseReduction,
		Description: fmt.Sprintf("Filtered as noise: %d/%d (%.0f%%)", stats.RecordsFiltered, considered, ratio*100),
		Data: map[string]interface{}{
			"considered": considered,
			"filtered":   stats.RecordsFiltered,
			"ratio":      ratio,
			"formula":    "filtered / (loaded - malformed)",
		},
	}
}
