package extract

import (
	"fmt"
	"strings"

	"github.com/ppiankov/brdsynth/internal/model"
	"github.com/ppiankov/brdsynth/internal/textutil"
)

// Vocabulary that marks a requirement as non-functional
var nonFunctionalTerms = []string{
	"performance", "latency", "response time", "throughput", "scalability",
	"scalable", "availability", "uptime", "reliability", "security", "secure",
	"encryption", "compliance", "gdpr", "hipaa", "soc2", "usability",
	"accessibility", "maintainability", "load", "concurrent users",
}

// InferKind classifies requirement text as functional or non-functional
func InferKind(text string) model.RequirementKind {
	if len(textutil.MatchTerms(textutil.Tokenize(text), nonFunctionalTerms)) > 0 {
		return model.NonFunctional
	}
	return model.Functional
}

func parseKind(raw, text string) model.RequirementKind {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "functional":
		return model.Functional
	case "non_functional", "non-functional", "nonfunctional", "nfr":
		return model.NonFunctional
	}
	return InferKind(text)
}

func parseStatus(raw string) model.RequirementStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "approved":
		return model.StatusApproved
	case "rejected":
		return model.StatusRejected
	}
	return model.StatusPendingReview
}

// Normalize converts a raw payload into entities tagged with the record's
// origin. Local ids are "<record id>#req-N", "#dec-N", "#tl-N".
func Normalize(payload *model.ExtractionPayload, record model.Record) model.EntitySet {
	set := model.EntitySet{
		Requirements: []model.Requirement{},
		Decisions:    []model.Decision{},
		Timelines:    []model.Timeline{},
		Stakeholders: []model.StakeholderMention{},
	}
	if payload == nil {
		return set
	}

	origin := model.Origin{
		SourceRecordID: record.ID,
		Channel:        record.Channel,
		Timestamp:      record.Timestamp,
	}
	year := record.Timestamp.Year()

	for _, raw := range payload.Requirements {
		text := textutil.CollapseSpace(raw.Text)
		if text == "" {
			continue
		}
		set.Requirements = append(set.Requirements, model.Requirement{
			Origin: origin,
			ID:     fmt.Sprintf("%s#req-%d", record.ID, len(set.Requirements)+1),
			Text:   text,
			Kind:   parseKind(raw.Kind, text),
			Status: parseStatus(raw.Status),
		})
	}

	for _, raw := range payload.Decisions {
		text := textutil.CollapseSpace(raw.Text)
		if text == "" {
			continue
		}
		set.Decisions = append(set.Decisions, model.Decision{
			Origin:    origin,
			ID:        fmt.Sprintf("%s#dec-%d", record.ID, len(set.Decisions)+1),
			Text:      text,
			DecidedBy: textutil.CollapseSpace(raw.DecidedBy),
		})
	}

	for _, raw := range payload.Timelines {
		label := textutil.CollapseSpace(raw.Label)
		date, ok := textutil.ParseDate(raw.Date, year)
		if !ok {
			date, _ = textutil.ParseDate(label, year)
		}
		if label == "" {
			label = date
		}
		if label == "" {
			continue
		}
		set.Timelines = append(set.Timelines, model.Timeline{
			Origin: origin,
			ID:     fmt.Sprintf("%s#tl-%d", record.ID, len(set.Timelines)+1),
			Label:  label,
			Date:   date,
		})
	}

	for _, raw := range payload.Stakeholders {
		name := textutil.CollapseSpace(raw.Name)
		if name == "" {
			continue
		}
		set.Stakeholders = append(set.Stakeholders, model.StakeholderMention{
			Origin: origin,
			Name:   name,
			Role:   textutil.CollapseSpace(raw.Role),
		})
	}

	return set
}
