package model

// Document is the synthesized requirements document as written to JSON
type Document struct {
	ExecutionSummary    string             `json:"execution_summary"`
	ProjectOverview     ProjectOverview    `json:"project_overview"`
	StakeholderMap      StakeholderMap     `json:"stakeholder_map"`
	TraceabilityMatrix  []TraceabilityRow  `json:"requirement_traceability_matrix"`
	DecisionLog         []DecisionLogEntry `json:"decision_log"`
	Timeline            []TimelineEntry    `json:"timeline"`
	RiskAndConflicts    RiskAndConflicts   `json:"risk_and_conflicts"`
	NoiseReductionLogic string             `json:"noise_reduction_logic"`
	ProjectHealthScore  int                `json:"project_health_score"`
	DataSources         map[Channel]int    `json:"data_sources"`
	AuditTrail          []AuditEntry       `json:"audit_trail"`
	SynthesisMetadata   SynthesisMetadata  `json:"synthesis_metadata"`
}

// TraceabilityRow is one line of the requirement traceability matrix
type TraceabilityRow struct {
	ReqID        string            `json:"req_id"`
	Requirement  string            `json:"requirement"`
	Kind         RequirementKind   `json:"kind"`
	Source       string            `json:"source"` // Originating record id
	Channel      Channel           `json:"channel"`
	Status       RequirementStatus `json:"status"`
	Traceability []TraceRef        `json:"traceability,omitempty"`
}

// DecisionLogEntry is one line of the decision log
type DecisionLogEntry struct {
	ID        string  `json:"id"`
	Decision  string  `json:"decision"`
	DecidedBy string  `json:"decided_by,omitempty"`
	Source    string  `json:"source"`
	Channel   Channel `json:"channel"`
}

// TimelineEntry is one milestone in chronological order
type TimelineEntry struct {
	ID        string  `json:"id"`
	Date      string  `json:"date"`
	Milestone string  `json:"milestone"`
	Source    string  `json:"source"`
	Channel   Channel `json:"channel"`
}

// RiskAndConflicts lists the detected conflicts
type RiskAndConflicts struct {
	Conflicts     []Conflict `json:"conflicts"`
	CriticalCount int        `json:"critical_count"`
}

// SynthesisMetadata carries run metadata and counters
type SynthesisMetadata struct {
	Metadata
	Stats   Stats `json:"stats"`
	Partial bool  `json:"partial"`
}

// ProjectOverview names the project and sizes its scope
type ProjectOverview struct {
	Topic       string `json:"topic"`
	Description string `json:"description"`
	Scope       Scope  `json:"scope"`
}

// Scope counts requirements in and out of scope; rejected ones are out
type Scope struct {
	InScopeItems      int `json:"in_scope_items"`
	OutOfScopeItems   int `json:"out_of_scope_items"`
	TotalRequirements int `json:"total_requirements"`
}
