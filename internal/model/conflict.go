package model

// Severity is the impact tier of a conflict
type Severity string

const (
	SeverityCritical Severity = "CRITICAL" // Blocks delivery
	SeverityHigh     Severity = "HIGH"     // Significant rework
	SeverityMedium   Severity = "MEDIUM"   // Moderate rework
	SeverityLow      Severity = "LOW"      // Clarification only
)

// Rank orders severities; higher is more severe
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// ConflictType classifies what two sources disagree about
type ConflictType string

const (
	ConflictDeadline   ConflictType = "deadline"
	ConflictScope      ConflictType = "scope"
	ConflictApproval   ConflictType = "approval"
	ConflictTechnology ConflictType = "technology"
	ConflictExplicit   ConflictType = "explicit"
)

// Conflict is a disagreement between canonical entities from different records
type Conflict struct {
	Description string       `json:"description"`
	Severity    Severity     `json:"severity"`
	Type        ConflictType `json:"type"`
	Sources     []string     `json:"sources"`    // Record ids, sorted
	EntityIDs   []string     `json:"entity_ids"` // Canonical entity ids, sorted
	Channels    []Channel    `json:"channels"`   // Distinct channels, sorted
	Topics      []string     `json:"topics"`     // Topic groups the pair shares
	Escalated   bool         `json:"escalated,omitempty"`
}

// CountSeverity returns how many conflicts carry the given severity
func CountSeverity(conflicts []Conflict, sev Severity) int {
	n := 0
	for _, c := range conflicts {
		if c.Severity == sev {
			n++
		}
	}
	return n
}
