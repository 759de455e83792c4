package analysis

import (
	"github.com/tidwall/gjson"
)

// defaultConfidence is used for multi-label responses that omit a usable confidence array.
const defaultConfidence = 0.5

// metadataKeys are top-level fields that never name a label in the flat fallback shape.
var metadataKeys = map[string]struct{}{
	"time":         {},
	"inference_id": {},
	"image":        {},
	"predictions":  {},
}

// shape is one known classifier response layout. match returns ok=false when the
// document does not have this layout, so the next shape can be tried.
type shape struct {
	name  string
	match func(doc gjson.Result) ([]Finding, bool)
}

// shapes is ordered by priority; the first match wins.
var shapes = []shape{
	{name: "predictions_object", match: matchPredictionsObject},
	{name: "predictions_array", match: matchPredictionsArray},
	{name: "predicted_classes", match: matchPredictedClasses},
	{name: "flat_scores", match: matchFlatScores},
}

// ExtractFindings returns every (label, confidence) pair found in a classifier
// response. It never fails: malformed input yields an empty slice.
// No confidence floor is applied.
func ExtractFindings(raw []byte) []Finding {
	findings, _ := extract(raw)
	return findings
}

// DetectShape reports which response layout ExtractFindings would use, or "" when none applies.
func DetectShape(raw []byte) string {
	_, name := extract(raw)
	return name
}

func extract(raw []byte) ([]Finding, string) {
	if !gjson.ValidBytes(raw) {
		return []Finding{}, ""
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return []Finding{}, ""
	}
	for _, s := range shapes {
		if findings, ok := s.match(doc); ok {
			return findings, s.name
		}
	}
	return []Finding{}, ""
}

func matchPredictionsObject(doc gjson.Result) ([]Finding, bool) {
	predictions := doc.Get("predictions")
	if !predictions.IsObject() {
		return nil, false
	}
	findings := []Finding{}
	predictions.ForEach(func(key, value gjson.Result) bool {
		if !value.IsObject() {
			return true
		}
		confidence := value.Get("confidence")
		if confidence.Type != gjson.Number {
			return true
		}
		findings = append(findings, Finding{Label: key.String(), Confidence: confidence.Float()})
		return true
	})
	return findings, true
}

func matchPredictionsArray(doc gjson.Result) ([]Finding, bool) {
	predictions := doc.Get("predictions")
	if !predictions.IsArray() {
		return nil, false
	}
	findings := []Finding{}
	predictions.ForEach(func(_, element gjson.Result) bool {
		if finding, ok := classConfidence(element); ok {
			findings = append(findings, finding)
		}
		return true
	})
	return findings, true
}

// classConfidence reads a {"class": ..., "confidence": ...} element.
func classConfidence(element gjson.Result) (Finding, bool) {
	if !element.IsObject() {
		return Finding{}, false
	}
	class := element.Get("class")
	confidence := element.Get("confidence")
	if class.Type != gjson.String || confidence.Type != gjson.Number {
		return Finding{}, false
	}
	return Finding{Label: class.String(), Confidence: confidence.Float()}, true
}

func matchPredictedClasses(doc gjson.Result) ([]Finding, bool) {
	classes := doc.Get("predicted_classes")
	if !classes.IsArray() {
		return nil, false
	}
	labels := classes.Array()

	var scores []gjson.Result
	if confidence := doc.Get("confidence"); confidence.IsArray() {
		if parallel := confidence.Array(); len(parallel) == len(labels) {
			scores = parallel
		}
	}

	findings := make([]Finding, 0, len(labels))
	for i, label := range labels {
		if label.Type != gjson.String {
			continue
		}
		value := defaultConfidence
		if scores != nil && scores[i].Type == gjson.Number {
			value = scores[i].Float()
		}
		findings = append(findings, Finding{Label: label.String(), Confidence: value})
	}
	return findings, true
}

func matchFlatScores(doc gjson.Result) ([]Finding, bool) {
	findings := []Finding{}
	doc.ForEach(func(key, value gjson.Result) bool {
		if _, skip := metadataKeys[key.String()]; skip {
			return true
		}
		if value.Type == gjson.Number {
			findings = append(findings, Finding{Label: key.String(), Confidence: value.Float()})
		}
		return true
	})
	return findings, true
}
