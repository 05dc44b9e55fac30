package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/ppiankov/brdsynth/internal/model"
)

// Renderer writes the synthesized document in its output formats
type Renderer struct {
	includeFooter bool
	markdown      goldmark.Markdown
}

// NewRenderer creates a renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{
		includeFooter: includeFooter,
		markdown:      goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Outputs names the files a run writes; empty paths are skipped
type Outputs struct {
	JSON     string
	Markdown string
	HTML     string
}

// RenderReport writes the document to every requested output and prints
// the summary to w
func (r *Renderer) RenderReport(w io.Writer, result *model.SynthesisResult, out Outputs, verbose bool) error {
	doc := Document(result)

	if out.JSON != "" {
		if err := r.RenderJSON(doc, out.JSON); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Fprintf(w, "✓ Wrote JSON: %s\n", out.JSON)
		}
	}

	if out.Markdown != "" {
		if err := r.RenderMarkdown(doc, out.Markdown); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Fprintf(w, "✓ Wrote Markdown: %s\n", out.Markdown)
		}
	}

	if out.HTML != "" {
		if err := r.RenderHTML(doc, out.HTML); err != nil {
			return fmt.Errorf("render HTML: %w", err)
		}
		if verbose {
			fmt.Fprintf(w, "✓ Wrote HTML: %s\n", out.HTML)
		}
	}

	r.RenderSummary(w, result)
	return nil
}

// RenderJSON writes the document as indented JSON
func (r *Renderer) RenderJSON(doc model.Document, path string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// RenderMarkdown writes the Markdown report
func (r *Renderer) RenderMarkdown(doc model.Document, path string) error {
	return os.WriteFile(path, []byte(r.Markdown(doc)), 0644)
}

// RenderHTML converts the Markdown report to a standalone HTML page
func (r *Renderer) RenderHTML(doc model.Document, path string) error {
	page, err := r.HTML(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, page, 0644)
}

// HTML returns the Markdown report rendered by goldmark inside a minimal page
func (r *Renderer) HTML(doc model.Document) ([]byte, error) {
	var body bytes.Buffer
	if err := r.markdown.Convert([]byte(r.Markdown(doc)), &body); err != nil {
		return nil, fmt.Errorf("convert markdown: %w", err)
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>Business Requirements Document</title>\n</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}

// Markdown returns the human-readable report
func (r *Renderer) Markdown(doc model.Document) string {
	var b strings.Builder

	b.WriteString("# Business Requirements Document\n\n")
	fmt.Fprintf(&b, "**Project health score:** %d/100  \n", doc.ProjectHealthScore)
	fmt.Fprintf(&b, "**Critical conflicts:** %d\n\n", doc.RiskAndConflicts.CriticalCount)

	b.WriteString("## Execution Summary\n\n")
	b.WriteString(doc.ExecutionSummary + "\n\n")

	overview := doc.ProjectOverview
	b.WriteString("## Project Overview\n\n")
	fmt.Fprintf(&b, "**Topic:** %s  \n", overview.Topic)
	b.WriteString(overview.Description + "\n\n")
	fmt.Fprintf(&b, "- In scope: %d\n- Out of scope: %d\n- Total requirements: %d\n\n",
		overview.Scope.InScopeItems, overview.Scope.OutOfScopeItems, overview.Scope.TotalRequirements)

	b.WriteString("## Stakeholders\n\n")
	if len(doc.StakeholderMap.Stakeholders) == 0 {
		b.WriteString("_No stakeholders identified._\n\n")
	} else {
		b.WriteString("| Name | Role | Function | Influence | Interactions | Channels |\n")
		b.WriteString("|---|---|---|---|---|---|\n")
		for _, s := range doc.StakeholderMap.Stakeholders {
			fmt.Fprintf(&b, "| %s | %s | %s | %.2f | %.1f | %s |\n",
				cell(s.Name), s.Role, s.Function, s.InfluenceScore, s.InteractionCount, joinChannels(s.Channels))
		}
		b.WriteString("\n")
		for _, level := range doc.StakeholderMap.Hierarchy {
			fmt.Fprintf(&b, "- **%s:** %s\n", level.Level, strings.Join(level.Members, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Requirement Traceability Matrix\n\n")
	if len(doc.TraceabilityMatrix) == 0 {
		b.WriteString("_No requirements extracted._\n\n")
	} else {
		b.WriteString("| ID | Requirement | Kind | Source | Status | Also in |\n")
		b.WriteString("|---|---|---|---|---|---|\n")
		for _, row := range doc.TraceabilityMatrix {
			var also []string
			for _, ref := range row.Traceability {
				also = append(also, fmt.Sprintf("%s (%s)", ref.SourceRecordID, ref.Channel))
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s (%s) | %s | %s |\n",
				row.ReqID, cell(row.Requirement), row.Kind, row.Source, row.Channel, row.Status, strings.Join(also, ", "))
		}
		b.WriteString("\n")
	}

	if len(doc.DecisionLog) > 0 {
		b.WriteString("## Decision Log\n\n")
		for _, d := range doc.DecisionLog {
			by := ""
			if d.DecidedBy != "" {
				by = " by " + d.DecidedBy
			}
			fmt.Fprintf(&b, "- **%s**%s: %s _(%s, %s)_\n", d.ID, by, d.Decision, d.Source, d.Channel)
		}
		b.WriteString("\n")
	}

	if len(doc.Timeline) > 0 {
		b.WriteString("## Timeline\n\n")
		for _, t := range doc.Timeline {
			date := t.Date
			if date == "" {
				date = "undated"
			}
			fmt.Fprintf(&b, "- **%s** %s _(%s, %s)_\n", date, t.Milestone, t.Source, t.Channel)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Risks and Conflicts\n\n")
	if len(doc.RiskAndConflicts.Conflicts) == 0 {
		b.WriteString("_No conflicts detected._\n\n")
	} else {
		for _, c := range doc.RiskAndConflicts.Conflicts {
			escalated := ""
			if c.Escalated {
				escalated = " (escalated)"
			}
			fmt.Fprintf(&b, "- **%s** `%s`%s: %s\n", c.Severity, c.Type, escalated, c.Description)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Noise Reduction Logic\n\n")
	b.WriteString(doc.NoiseReductionLogic + "\n\n")

	if len(doc.DataSources) > 0 {
		b.WriteString("## Data Sources\n\n")
		for _, ch := range append(append([]model.Channel{}, model.KnownChannels...), model.ChannelUnknown) {
			if n, ok := doc.DataSources[ch]; ok {
				fmt.Fprintf(&b, "- %s: %d record(s)\n", ch, n)
			}
		}
		b.WriteString("\n")
	}

	if len(doc.AuditTrail) > 0 {
		b.WriteString("## Audit Trail\n\n")
		for _, a := range doc.AuditTrail {
			fmt.Fprintf(&b, "- `%s` %s: %s (%s)\n", a.RecordID, a.Kind, a.Reason, a.Action)
		}
		b.WriteString("\n")
	}

	if r.includeFooter {
		meta := doc.SynthesisMetadata
		fmt.Fprintf(&b, "---\n\n_Generated %s by brdsynth (run %s, capability %s)._\n",
			meta.GeneratedAt.Format("2006-01-02 15:04 MST"), meta.RunID, meta.Capability)
	}

	return b.String()
}

// RenderSummary prints a short run summary
func (r *Renderer) RenderSummary(w io.Writer, result *model.SynthesisResult) {
	s := result.Stats
	fmt.Fprintf(w, "\nHealth score: %d/100\n", result.HealthScore())
	fmt.Fprintf(w, "Records: %d loaded, %d malformed, %d filtered, %d extracted (%d fallback)\n",
		s.RecordsLoaded, s.RecordsMalformed, s.RecordsFiltered, s.RecordsExtracted, s.ExtractionFailures)
	fmt.Fprintf(w, "Requirements: %d (%d before merge)\n", s.Requirements, s.RequirementsRaw)
	fmt.Fprintf(w, "Conflicts: %d (%d critical)\n", s.Conflicts, s.CriticalConflicts)
	if result.Partial {
		fmt.Fprintln(w, "⚠ Partial result: run cancelled before every record was dispatched")
	}
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func joinChannels(chs []model.Channel) string {
	parts := make([]string, len(chs))
	for i, ch := range chs {
		parts[i] = string(ch)
	}
	return strings.Join(parts, ", ")
}
