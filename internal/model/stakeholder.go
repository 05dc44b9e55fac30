package model

// StakeholderRole is the behavioral role inferred for a stakeholder
type StakeholderRole string

const (
	RoleDecisionMaker StakeholderRole = "decision_maker"
	RoleUnknown       StakeholderRole = "unknown"
)

// Stakeholder is a person aggregated across all records of a run
type Stakeholder struct {
	Name             string          `json:"name"` // Display name from first occurrence
	Role             StakeholderRole `json:"role"`
	Function         string          `json:"function,omitempty"` // PM, Engineer, ... from vocabulary
	InfluenceScore   float64         `json:"influence_score"`
	InteractionCount float64         `json:"interaction_count"`
	Decisions        int             `json:"decisions"`
	Channels         []Channel       `json:"channels"`
}

// HierarchyLevel groups stakeholders for presentation
type HierarchyLevel struct {
	Level   string   `json:"level"`
	Members []string `json:"members"`
}

// Relationship is a directed communication edge
type Relationship struct {
	From    string  `json:"from"`
	To      string  `json:"to"`
	Channel Channel `json:"channel"`
	Count   int     `json:"count"`
}

// StakeholderMap is the influence-ranked view of everyone in the run
type StakeholderMap struct {
	Stakeholders  []Stakeholder    `json:"stakeholders"`
	Hierarchy     []HierarchyLevel `json:"hierarchy_detected"`
	Relationships []Relationship   `json:"relationships,omitempty"`
}
