package analysis

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Depth is the lightness bucket of a skin tone.
type Depth string

// Undertone is the hue bucket of a skin tone.
type Undertone string

const (
	DepthLight  Depth = "Light"
	DepthMedium Depth = "Medium"
	DepthDeep   Depth = "Deep"

	UndertoneCool    Undertone = "Cool"
	UndertoneNeutral Undertone = "Neutral"
	UndertoneWarm    Undertone = "Warm"
)

// MessageNoTone is reported when the tone classifier returned no usable prediction.
const MessageNoTone = "No skin tone detected in the image"

// ToneResult is the canonical form of a skin tone classification.
type ToneResult struct {
	Success              bool      `json:"success"`
	Message              string    `json:"message,omitempty"`
	RawClass             string    `json:"rawClass"`
	Confidence           float64   `json:"confidence"`
	Depth                Depth     `json:"depth"`
	Undertone            Undertone `json:"undertone"`
	Description          string    `json:"description"`
	ColorRecommendations []string  `json:"colorRecommendations"`
	StyleTips            []string  `json:"styleTips"`
}

// ToneProfile is the guidance attached to one family of tone classes.
type ToneProfile struct {
	Depth                Depth
	Undertone            Undertone
	Description          string
	ColorRecommendations []string
	StyleTips            []string
}

// ToneTable maps raw tone classes to profiles. It is read-only after construction.
type ToneTable struct {
	profiles map[string]ToneProfile
	fallback ToneProfile
}

// NewToneTable builds the tone table for the known class families.
func NewToneTable() *ToneTable {
	light := ToneProfile{
		Depth:       DepthLight,
		Undertone:   UndertoneCool,
		Description: "Light skin tone with cool undertones",
		ColorRecommendations: []string{
			"Soft pastels and cool tones",
			"Silver jewelry",
			"Blues, purples, and cool greens",
		},
		StyleTips: []string{
			"Use light coverage foundation",
			"Opt for pink or berry lip colors",
		},
	}
	medium := ToneProfile{
		Depth:       DepthMedium,
		Undertone:   UndertoneNeutral,
		Description: "Medium skin tone with neutral undertones",
		ColorRecommendations: []string{
			"Earthy neutrals and warm tones",
			"Gold or rose gold jewelry",
			"Warm browns, oranges, and deep greens",
		},
		StyleTips: []string{
			"Medium coverage foundation works well",
			"Try coral or warm red lip colors",
		},
	}
	deep := ToneProfile{
		Depth:       DepthDeep,
		Undertone:   UndertoneWarm,
		Description: "Deep skin tone with warm undertones",
		ColorRecommendations: []string{
			"Rich, vibrant colors",
			"Gold jewelry",
			"Deep purples, bright oranges, and emerald greens",
		},
		StyleTips: []string{
			"Full coverage foundation for even tone",
			"Bold lip colors like deep reds or plums",
		},
	}

	return &ToneTable{
		profiles: map[string]ToneProfile{
			"fair":   light,
			"light":  light,
			"pale":   light,
			"medium": medium,
			"olive":  medium,
			"dark":   deep,
			"deep":   deep,
			"rich":   deep,
		},
		fallback: ToneProfile{
			Depth:                DepthMedium,
			Undertone:            UndertoneNeutral,
			ColorRecommendations: []string{"Versatile neutral colors", "Mixed metal jewelry"},
			StyleTips:            []string{"Experiment with different shades"},
		},
	}
}

// Classify maps a raw tone class to its profile. Unknown classes get the neutral fallback.
// Confidence is carried through unchanged.
func (t *ToneTable) Classify(class string, confidence float64) ToneResult {
	profile, ok := t.profiles[strings.ToLower(strings.TrimSpace(class))]
	description := profile.Description
	if !ok {
		profile = t.fallback
		description = "Detected skin tone: " + class
	}
	return ToneResult{
		Success:              true,
		RawClass:             class,
		Confidence:           confidence,
		Depth:                profile.Depth,
		Undertone:            profile.Undertone,
		Description:          description,
		ColorRecommendations: append([]string(nil), profile.ColorRecommendations...),
		StyleTips:            append([]string(nil), profile.StyleTips...),
	}
}

// ExtractTone reads the dominant class from a tone classifier response: the first
// well-formed element of the predictions array.
func ExtractTone(raw []byte) (string, float64, bool) {
	if !gjson.ValidBytes(raw) {
		return "", 0, false
	}
	predictions := gjson.GetBytes(raw, "predictions")
	if !predictions.IsArray() {
		return "", 0, false
	}
	elements := predictions.Array()
	if len(elements) == 0 {
		return "", 0, false
	}
	finding, ok := classConfidence(elements[0])
	if !ok {
		return "", 0, false
	}
	return finding.Label, finding.Confidence, true
}

// ToneFailed builds an unsuccessful tone result.
func ToneFailed(message string) ToneResult {
	return ToneResult{Success: false, Message: message, ColorRecommendations: []string{}, StyleTips: []string{}}
}

// AnalyzeTone runs extraction and classification over a raw tone classifier response.
func (t *ToneTable) AnalyzeTone(raw []byte) ToneResult {
	class, confidence, ok := ExtractTone(raw)
	if !ok {
		return ToneFailed(MessageNoTone)
	}
	return t.Classify(class, confidence)
}
