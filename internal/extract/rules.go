package extract

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/ppiankov/brdsynth/internal/model"
	"github.com/ppiankov/brdsynth/internal/textutil"
)

var (
	obligation    = regexp.MustCompile(`(?i)\b(must|shall|should|needs? to|required to|is required|are required|has to|have to)\b`)
	decisionCue   = regexp.MustCompile(`(?i)\b(decision|decided|agreed|approved|signed off|go with|going with)\b`)
	decisionLabel = regexp.MustCompile(`(?i)^\s*decision\s*[:\-]\s*`)
	decidedBy     = regexp.MustCompile(`\b(?:decided|approved|agreed|signed off)\s+by\s+([A-Z][a-z]+(?: [A-Z][a-z]+)?)`)
	namedRole     = regexp.MustCompile(`\b([A-Z][a-z]+(?: [A-Z][a-z]+)?)\s*\(([A-Za-z][A-Za-z0-9 &/.-]{0,30})\)`)
	speakerPrefix = regexp.MustCompile(`^([A-Z][\w.'-]*(?: [A-Z][\w.'-]*)?)\s*(?:\(([^)]*)\))?\s*:\s+`)
	chatPrefix    = regexp.MustCompile(`^\[[^\]]*\]\s*@?([\w.-]+)\s*:\s*`)
	headerLine    = regexp.MustCompile(`(?i)^\s*(from|to|cc|bcc|sent|date|subject|reply-to|attendees|participants|facilitator)\s*:`)
)

// Words that look like names in a Name (Role) pattern but are not people
var notNames = map[string]bool{
	"Phase": true, "Sprint": true, "Option": true, "Version": true, "Step": true,
	"Q1": true, "Q2": true, "Q3": true, "Q4": true, "See": true, "Note": true,
	"Deadline": true, "Update": true, "Summary": true, "Status": true, "Action": true,
	"Requirement": true, "Requirements": true, "Agenda": true, "Reminder": true,
	"Re": true, "FYI": true, "Important": true, "TODO": true, "Decision": true,
}

// RuleExtractor is the deterministic keyword extractor used when no
// capability is configured and whenever a capability fails
type RuleExtractor struct {
	reference time.Time
}

// NewRuleExtractor creates a rule extractor. Dates without a year resolve
// against the reference time's year.
func NewRuleExtractor(reference time.Time) *RuleExtractor {
	return &RuleExtractor{reference: reference}
}

// Name identifies the rule extractor
func (r *RuleExtractor) Name() string {
	return "rules"
}

// Extract applies the keyword rules line by line. It never fails.
func (r *RuleExtractor) Extract(ctx context.Context, text string) (*model.ExtractionPayload, error) {
	payload := &model.ExtractionPayload{Confidence: 0.5}
	mentioned := make(map[string]bool)

	addMention := func(name, role string) {
		name = strings.TrimSpace(name)
		if name == "" || notNames[name] || mentioned[strings.ToLower(name)] {
			return
		}
		mentioned[strings.ToLower(name)] = true
		payload.Stakeholders = append(payload.Stakeholders, model.RawStakeholder{Name: name, Role: strings.TrimSpace(role)})
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		for _, m := range namedRole.FindAllStringSubmatch(line, -1) {
			addMention(m[1], m[2])
		}

		if headerLine.MatchString(line) {
			continue
		}

		speaker := ""
		if m := chatPrefix.FindStringSubmatch(line); m != nil {
			speaker = m[1]
			line = line[len(m[0]):]
		} else if m := speakerPrefix.FindStringSubmatch(line); m != nil && !notNames[m[1]] {
			speaker = m[1]
			addMention(m[1], m[2])
			line = line[len(m[0]):]
		}

		for _, sentence := range splitSentences(line) {
			r.classify(sentence, speaker, payload)
		}
	}

	return payload, nil
}

func (r *RuleExtractor) classify(sentence, speaker string, payload *model.ExtractionPayload) {
	labeled := decisionLabel.MatchString(sentence)
	obliged := obligation.MatchString(sentence)

	// "must be approved" is still a requirement; only a label overrides modals
	switch {
	case labeled || (!obliged && decisionCue.MatchString(sentence)):
		by := speaker
		if m := decidedBy.FindStringSubmatch(sentence); m != nil {
			by = m[1]
		}
		text := decisionLabel.ReplaceAllString(sentence, "")
		if strings.TrimSpace(text) != "" {
			payload.Decisions = append(payload.Decisions, model.RawDecision{Text: text, DecidedBy: by})
		}
	case obliged:
		payload.Requirements = append(payload.Requirements, model.RawRequirement{Text: sentence})
	}

	if dates := textutil.FindDates(sentence, r.reference.Year()); len(dates) > 0 {
		payload.Timelines = append(payload.Timelines, model.RawTimeline{
			Label: sentence,
			Date:  dates[0].Canonical(),
		})
	}
}
