package model

import "time"

// SynthesisResult is the complete output of one synthesis run
type SynthesisResult struct {
	Metadata       Metadata       `json:"metadata"`
	Entities       EntitySet      `json:"entities"` // Canonical, deduplicated
	Conflicts      []Conflict     `json:"conflicts"`
	StakeholderMap StakeholderMap `json:"stakeholder_map"`
	Health         Health         `json:"health"`
	Noise          NoiseReport    `json:"noise"`
	Audit          []AuditEntry   `json:"audit"`
	Stats          Stats          `json:"stats"`
	Partial        bool           `json:"partial"` // Run was cancelled before every record was dispatched
}

// HealthScore is a shortcut for Health.Score
func (r *SynthesisResult) HealthScore() int {
	return r.Health.Score
}

// CriticalCount returns the number of CRITICAL conflicts
func (r *SynthesisResult) CriticalCount() int {
	return CountSeverity(r.Conflicts, SeverityCritical)
}

// Metadata describes the run itself and never affects the result
type Metadata struct {
	RunID       string    `json:"run_id,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
	Capability  string    `json:"capability"`
}

// Health is the transparent health score breakdown
type Health struct {
	Score   int      `json:"score"` // 0-100
	Signals []Signal `json:"signals"`
}

// Signal is one transparent contribution to a score
type Signal struct {
	Type        string                 `json:"type"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"` // Inputs and formula
}

// AuditKind classifies audit trail entries
type AuditKind string

const (
	AuditExtractionFailure AuditKind = "extraction_failure"
	AuditMalformedRecord   AuditKind = "malformed_record"
	AuditNotDispatched     AuditKind = "not_dispatched"
)

// AuditEntry records a recovered error for one record
type AuditEntry struct {
	RecordID string    `json:"record_id"`
	Kind     AuditKind `json:"kind"`
	Reason   string    `json:"reason"`
	Action   string    `json:"action"` // What the engine did instead
}

// NoiseDecision is the filter verdict for one record
type NoiseDecision struct {
	RecordID   string   `json:"record_id"`
	Channel    Channel  `json:"channel"`
	Score      float64  `json:"score"`
	Excluded   bool     `json:"excluded"`
	Rules      []string `json:"rules"`
	NoiseTerms []string `json:"noise_terms,omitempty"`
	Relevant   []string `json:"relevance_terms,omitempty"`
	TokenCount int      `json:"token_count"`
	Similarity float64  `json:"similarity"`
}

// NoiseReport summarizes the noise filter over a run
type NoiseReport struct {
	Threshold     float64         `json:"threshold"`
	ProjectFilter string          `json:"project_filter,omitempty"`
	Decisions     []NoiseDecision `json:"decisions"`
}

// Excluded returns the number of records that were filtered out
func (n NoiseReport) Excluded() int {
	count := 0
	for _, d := range n.Decisions {
		if d.Excluded {
			count++
		}
	}
	return count
}

// Stats are the run counters
type Stats struct {
	RecordsLoaded      int             `json:"records_loaded"`
	RecordsMalformed   int             `json:"records_malformed"`
	RecordsFiltered    int             `json:"records_filtered"` // Excluded as noise
	RecordsExtracted   int             `json:"records_extracted"`
	ExtractionFailures int             `json:"extraction_failures"`
	PerChannel         map[Channel]int `json:"per_channel"` // Retained records
	RequirementsRaw    int             `json:"requirements_raw"`
	Requirements       int             `json:"requirements"`
	Conflicts          int             `json:"conflicts"`
	CriticalConflicts  int             `json:"critical_conflicts"`
}
