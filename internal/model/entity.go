package model

import "time"

// EntityKind distinguishes the entity families that can be merged
type EntityKind string

const (
	KindRequirement EntityKind = "requirement"
	KindDecision    EntityKind = "decision"
	KindTimeline    EntityKind = "timeline"
)

// RequirementKind classifies a requirement
type RequirementKind string

const (
	Functional    RequirementKind = "functional"
	NonFunctional RequirementKind = "non_functional"
)

// RequirementStatus is the review state of a requirement
type RequirementStatus string

const (
	StatusPendingReview RequirementStatus = "pending_review"
	StatusApproved      RequirementStatus = "approved"
	StatusRejected      RequirementStatus = "rejected"
)

// Origin ties an entity to the record it was extracted from
type Origin struct {
	SourceRecordID string    `json:"source_record_id"`
	Channel        Channel   `json:"channel"`
	Timestamp      time.Time `json:"timestamp"`
}

// TraceRef is a duplicate that was folded into a canonical entity.
// It is kept so the duplicate stays traceable to its own record.
type TraceRef struct {
	EntityID       string    `json:"entity_id"`
	Text           string    `json:"text"`
	SourceRecordID string    `json:"source_record_id"`
	Channel        Channel   `json:"channel"`
	Timestamp      time.Time `json:"timestamp"`
}

// Requirement is a functional or non-functional requirement
type Requirement struct {
	Origin
	ID         string            `json:"id"`
	Text       string            `json:"text"`
	Kind       RequirementKind   `json:"kind"`
	Status     RequirementStatus `json:"status"`
	Duplicates []TraceRef        `json:"duplicates,omitempty"`
}

// Decision is a recorded decision, optionally attributed to a stakeholder
type Decision struct {
	Origin
	ID         string     `json:"id"`
	Text       string     `json:"text"`
	DecidedBy  string     `json:"decided_by,omitempty"`
	Duplicates []TraceRef `json:"duplicates,omitempty"`
}

// Timeline is a dated milestone. Date is YYYY-MM-DD or empty when unparseable.
type Timeline struct {
	Origin
	ID         string     `json:"id"`
	Label      string     `json:"label"`
	Date       string     `json:"date,omitempty"`
	Duplicates []TraceRef `json:"duplicates,omitempty"`
}

// StakeholderMention is a person named inside a record's text
type StakeholderMention struct {
	Origin
	Name string `json:"name"`
	Role string `json:"role,omitempty"` // Free-text role as written, e.g. "PM"
}

// EntitySet is a flat collection of entities from one or more records
type EntitySet struct {
	Requirements []Requirement        `json:"requirements"`
	Decisions    []Decision           `json:"decisions"`
	Timelines    []Timeline           `json:"timelines"`
	Stakeholders []StakeholderMention `json:"stakeholders"`
}

// Len returns the number of mergeable entities in the set
func (s EntitySet) Len() int {
	return len(s.Requirements) + len(s.Decisions) + len(s.Timelines)
}

// Append adds every entity of other to the set
func (s *EntitySet) Append(other EntitySet) {
	s.Requirements = append(s.Requirements, other.Requirements...)
	s.Decisions = append(s.Decisions, other.Decisions...)
	s.Timelines = append(s.Timelines, other.Timelines...)
	s.Stakeholders = append(s.Stakeholders, other.Stakeholders...)
}

// ExtractionMethod records how a record's entities were produced
type ExtractionMethod string

const (
	MethodCapability ExtractionMethod = "capability"
	MethodCache      ExtractionMethod = "cache"
	MethodFallback   ExtractionMethod = "fallback"
)

// RecordEntities holds the normalized entities extracted from one record
type RecordEntities struct {
	RecordID   string           `json:"record_id"`
	Entities   EntitySet        `json:"entities"`
	Method     ExtractionMethod `json:"method"`
	Confidence float64          `json:"confidence"`
}

// Flatten concatenates per-record entity lists into one set
func Flatten(perRecord []RecordEntities) EntitySet {
	var set EntitySet
	for _, re := range perRecord {
		set.Append(re.Entities)
	}
	return set
}

// ExtractionPayload is the raw output of an extraction capability before normalization
type ExtractionPayload struct {
	Requirements []RawRequirement `json:"requirements"`
	Decisions    []RawDecision    `json:"decisions"`
	Stakeholders []RawStakeholder `json:"stakeholders"`
	Timelines    []RawTimeline    `json:"timelines"`
	Confidence   float64          `json:"confidence"`
}

// RawRequirement is a requirement as returned by a capability
type RawRequirement struct {
	Text   string `json:"text"`
	Kind   string `json:"type,omitempty"`
	Status string `json:"status,omitempty"`
}

// RawDecision is a decision as returned by a capability
type RawDecision struct {
	Text      string `json:"text"`
	DecidedBy string `json:"decided_by,omitempty"`
}

// RawStakeholder is a stakeholder as returned by a capability
type RawStakeholder struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// RawTimeline is a milestone as returned by a capability
type RawTimeline struct {
	Label string `json:"milestone"`
	Date  string `json:"date"`
}
