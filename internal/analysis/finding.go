package analysis

// Finding is a single label reported by the upstream classifier.
// Confidence is a probability in [0,1]; percentages are produced only when formatting.
type Finding struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

const (
	// MessageCompleted accompanies a result with at least one finding.
	MessageCompleted = "Analysis completed"
	// MessageNothingDetected accompanies a successful result with no findings above the floor.
	MessageNothingDetected = "No skin conditions detected"
)

// AnalysisResult is the ranked outcome of a condition analysis.
//
// Success=false means the upstream call or the response could not be used at all.
// Success=true with a nil Primary means the response was valid but nothing cleared the floor.
type AnalysisResult struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Primary   *Finding  `json:"primary,omitempty"`
	Secondary []Finding `json:"secondary"`
}

// HasFindings reports whether the result carries a primary or any secondary finding.
func (r AnalysisResult) HasFindings() bool {
	return r.Primary != nil || len(r.Secondary) > 0
}

// Findings returns primary followed by secondary, in presentation order.
func (r AnalysisResult) Findings() []Finding {
	out := make([]Finding, 0, len(r.Secondary)+1)
	if r.Primary != nil {
		out = append(out, *r.Primary)
	}
	return append(out, r.Secondary...)
}

// Failed builds an unsuccessful result carrying the given message.
func Failed(message string) AnalysisResult {
	return AnalysisResult{Success: false, Message: message, Secondary: []Finding{}}
}
