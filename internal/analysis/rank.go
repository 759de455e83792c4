package analysis

import (
	"fmt"
	"sort"
)

const (
	// DefaultGlobalFloor is the minimum confidence for a label to count as detected.
	DefaultGlobalFloor = 0.10
	// DefaultSecondaryFloor is the minimum confidence for a non-primary label to be surfaced.
	DefaultSecondaryFloor = 0.50
)

// Thresholds holds the two confidence floors. Both bounds are inclusive.
type Thresholds struct {
	Global    float64 `json:"global"`
	Secondary float64 `json:"secondary"`
}

// DefaultThresholds returns the floors used when nothing is configured.
func DefaultThresholds() Thresholds {
	return Thresholds{Global: DefaultGlobalFloor, Secondary: DefaultSecondaryFloor}
}

// Validate checks that both floors are probabilities and that the secondary floor is the stricter one.
func (t Thresholds) Validate() error {
	if t.Global < 0 || t.Global > 1 {
		return fmt.Errorf("global floor %v out of range [0,1]", t.Global)
	}
	if t.Secondary < 0 || t.Secondary > 1 {
		return fmt.Errorf("secondary floor %v out of range [0,1]", t.Secondary)
	}
	if t.Secondary < t.Global {
		return fmt.Errorf("secondary floor %v below global floor %v", t.Secondary, t.Global)
	}
	return nil
}

// ApplyFloor keeps the findings whose confidence is at least floor, preserving order.
func ApplyFloor(findings []Finding, floor float64) []Finding {
	kept := make([]Finding, 0, len(findings))
	for _, f := range findings {
		if f.Confidence >= floor {
			kept = append(kept, f)
		}
	}
	return kept
}

// RankAndFilter applies the global floor, orders the survivors by confidence
// (ties keep their input order) and splits them into primary and secondary.
// A non-primary finding below the secondary floor is dropped from the result.
// The input slice is not modified.
func RankAndFilter(findings []Finding, thresholds Thresholds) AnalysisResult {
	ranked := ApplyFloor(findings, thresholds.Global)
	if len(ranked) == 0 {
		return AnalysisResult{Success: true, Message: MessageNothingDetected, Secondary: []Finding{}}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})

	primary := ranked[0]
	secondary := make([]Finding, 0, len(ranked)-1)
	for _, f := range ranked[1:] {
		// Array shapes may repeat a class; the primary label is reported once.
		if f.Label == primary.Label {
			continue
		}
		if f.Confidence >= thresholds.Secondary {
			secondary = append(secondary, f)
		}
	}

	return AnalysisResult{
		Success:   true,
		Message:   MessageCompleted,
		Primary:   &primary,
		Secondary: secondary,
	}
}

// Analyze runs extraction and ranking over a raw classifier response.
func Analyze(raw []byte, thresholds Thresholds) AnalysisResult {
	return RankAndFilter(ExtractFindings(raw), thresholds)
}
