package analysis

import (
	"strconv"
	"strings"
)

// SummaryPrecision is the number of decimals used for finding percentages.
const SummaryPrecision = 2

const (
	healthySummary      = "Great news! Your skin appears to be in good condition with no major concerns detected."
	findingsHeader      = "Analysis detected the following skin conditions:"
	recommendationTitle = "Personalized Recommendations:"
	generalCareTitle    = "General Care Tips:"
)

var healthyCare = []string{
	"Continue your current skincare routine",
	"Use daily SPF protection",
	"Maintain proper hydration",
	"Consider regular professional skin checkups",
}

var generalCare = []string{
	"Consult with a dermatologist for professional advice",
	"Use gentle, fragrance-free products",
	"Always apply sunscreen (SPF 30+)",
	"Maintain a consistent skincare routine",
}

// Report is the prose rendering of an AnalysisResult.
type Report struct {
	Summary         string `json:"summary"`
	Recommendations string `json:"recommendations"`
}

// Assembler renders results using an injected vocabulary.
type Assembler struct {
	vocab *Vocabulary
}

// NewAssembler returns an Assembler backed by vocab.
func NewAssembler(vocab *Vocabulary) *Assembler {
	return &Assembler{vocab: vocab}
}

// Vocabulary exposes the table the assembler renders with.
func (a *Assembler) Vocabulary() *Vocabulary {
	return a.vocab
}

// FormatPercent renders a probability as a percentage with the given number of decimals.
// 0.925 with precision 2 renders as "92.50".
func FormatPercent(confidence float64, precision int) string {
	return strconv.FormatFloat(confidence*100, 'f', precision, 64)
}

// Assemble builds the summary and recommendation text. Findings are rendered
// primary first, then secondary in ranked order.
func (a *Assembler) Assemble(result AnalysisResult) Report {
	if !result.Success {
		return Report{Summary: "Analysis could not be completed: " + result.Message}
	}
	if !result.HasFindings() {
		return Report{
			Summary:         healthySummary,
			Recommendations: block(recommendationTitle, healthyCare),
		}
	}

	var summary strings.Builder
	summary.WriteString(findingsHeader)
	summary.WriteByte('\n')

	var recs strings.Builder
	recs.WriteString(recommendationTitle)
	recs.WriteString("\n\n")

	for i, f := range result.Findings() {
		name, advice := a.vocab.Describe(f.Label)
		summary.WriteString("• ")
		summary.WriteString(name)
		summary.WriteString(" (")
		summary.WriteString(FormatPercent(f.Confidence, SummaryPrecision))
		summary.WriteString("% confidence)")
		if i == 0 && result.Primary != nil {
			summary.WriteString(" - Primary concern")
		}
		summary.WriteByte('\n')

		for _, line := range advice {
			recs.WriteString("• ")
			recs.WriteString(line)
			recs.WriteByte('\n')
		}
		recs.WriteByte('\n')
	}

	recs.WriteString(block(generalCareTitle, generalCare))
	return Report{Summary: summary.String(), Recommendations: recs.String()}
}

// ConditionScore is one entry of the ordered label to confidence listing.
type ConditionScore struct {
	Name       string  `json:"name"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// DetectedConditions lists every surfaced finding in presentation order.
func (a *Assembler) DetectedConditions(result AnalysisResult) []ConditionScore {
	findings := result.Findings()
	out := make([]ConditionScore, 0, len(findings))
	for _, f := range findings {
		out = append(out, ConditionScore{
			Name:       a.vocab.DisplayName(f.Label),
			Label:      f.Label,
			Confidence: f.Confidence,
		})
	}
	return out
}

func block(title string, lines []string) string {
	var b strings.Builder
	b.WriteString(title)
	b.WriteByte('\n')
	for _, line := range lines {
		b.WriteString("• ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
