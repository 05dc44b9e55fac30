package stakeholder

import (
	"strings"

	"github.com/ppiankov/brdsynth/internal/textutil"
)

// FunctionDefault is used when no vocabulary matches
const FunctionDefault = "Stakeholder"

type function struct {
	name   string
	titles []string // Matched against declared roles
	terms  []string // Matched against the text a person sent
}

// Checked in order; earlier entries win ties
var functions = []function{
	{
		name:   "Executive",
		titles: []string{"ceo", "cto", "cfo", "coo", "vp", "vice president", "director", "head", "executive", "sponsor"},
		terms:  []string{"budget", "strategy", "revenue", "board", "investment", "roi", "quarter", "approve", "approved", "funding"},
	},
	{
		name:   "PM",
		titles: []string{"pm", "product manager", "product owner", "project manager", "program manager", "po", "scrum master"},
		terms:  []string{"roadmap", "backlog", "priority", "prioritize", "requirements", "requirement", "scope", "sprint", "stakeholders", "milestone", "deadline", "mvp"},
	},
	{
		name:   "Security",
		titles: []string{"security", "ciso", "compliance", "infosec"},
		terms:  []string{"security", "compliance", "encryption", "audit", "vulnerability", "gdpr", "hipaa", "soc2", "pentest", "authentication"},
	},
	{
		name:   "Engineer",
		titles: []string{"engineer", "developer", "dev", "architect", "tech lead", "devops", "sre", "backend", "frontend"},
		terms:  []string{"api", "code", "deploy", "deployment", "database", "backend", "frontend", "architecture", "implementation", "endpoint", "schema", "migration", "kubernetes", "latency"},
	},
	{
		name:   "Designer",
		titles: []string{"designer", "ux", "ui", "design lead"},
		terms:  []string{"design", "ux", "ui", "mockup", "mockups", "wireframe", "wireframes", "prototype", "figma", "layout"},
	},
	{
		name:   "QA",
		titles: []string{"qa", "tester", "test engineer", "quality"},
		terms:  []string{"test", "tests", "testing", "qa", "regression", "quality", "acceptance", "bug", "bugs"},
	},
}

// inferFunction picks a function from declared roles first, then from the
// vocabulary of sent text
func inferFunction(roles []string, sent []string) string {
	for _, role := range roles {
		tokens := textutil.Tokenize(role)
		for _, f := range functions {
			if len(textutil.MatchTerms(tokens, f.titles)) > 0 {
				return f.name
			}
		}
	}

	best, bestCount := FunctionDefault, 0
	for _, f := range functions {
		n := 0
		for _, term := range f.terms {
			n += countTerm(sent, term)
		}
		if n > bestCount {
			best, bestCount = f.name, n
		}
	}
	return best
}

func countTerm(tokens []string, term string) int {
	if !strings.Contains(term, " ") {
		n := 0
		for _, t := range tokens {
			if t == term {
				n++
			}
		}
		return n
	}
	if textutil.ContainsPhrase(tokens, term) {
		return 1
	}
	return 0
}
