package pipeline

import (
	"github.com/ppiankov/brdsynth/internal/model"
	"github.com/ppiankov/brdsynth/internal/score"
)

// Inputs are the upstream stage outputs the assembler combines
type Inputs struct {
	Metadata       model.Metadata
	Entities       model.EntitySet
	Conflicts      []model.Conflict
	StakeholderMap model.StakeholderMap
	Noise          model.NoiseReport
	Audit          []model.AuditEntry
	Stats          model.Stats
	Partial        bool
}

// Assembler combines stage outputs into a SynthesisResult. It makes no
// external calls.
type Assembler struct {
	scorer *score.Scorer
}

// NewAssembler creates an assembler
func NewAssembler(health model.HealthConfig) *Assembler {
	return &Assembler{scorer: score.NewScorer(health)}
}

// Assemble scores the conflicts and returns the result with every list
// non-nil
func (a *Assembler) Assemble(in Inputs) *model.SynthesisResult {
	entities := in.Entities
	if entities.Requirements == nil {
		entities.Requirements = []model.Requirement{}
	}
	if entities.Decisions == nil {
		entities.Decisions = []model.Decision{}
	}
	if entities.Timelines == nil {
		entities.Timelines = []model.Timeline{}
	}
	if entities.Stakeholders == nil {
		entities.Stakeholders = []model.StakeholderMention{}
	}

	conflicts := in.Conflicts
	if conflicts == nil {
		conflicts = []model.Conflict{}
	}
	audit := in.Audit
	if audit == nil {
		audit = []model.AuditEntry{}
	}
	stakeholders := in.StakeholderMap
	if stakeholders.Stakeholders == nil {
		stakeholders.Stakeholders = []model.Stakeholder{}
	}
	if stakeholders.Hierarchy == nil {
		stakeholders.Hierarchy = []model.HierarchyLevel{}
	}
	noise := in.Noise
	if noise.Decisions == nil {
		noise.Decisions = []model.NoiseDecision{}
	}
	stats := in.Stats
	if stats.PerChannel == nil {
		stats.PerChannel = map[model.Channel]int{}
	}
	stats.Conflicts = len(conflicts)
	stats.CriticalConflicts = model.CountSeverity(conflicts, model.SeverityCritical)

	return &model.SynthesisResult{
		Metadata:       in.Metadata,
		Entities:       entities,
		Conflicts:      conflicts,
		StakeholderMap: stakeholders,
		Health:         a.scorer.Calculate(conflicts, stats),
		Noise:          noise,
		Audit:          audit,
		Stats:          stats,
		Partial:        in.Partial,
	}
}
