package analysis

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// VocabularyEntry is the presentation form of one known classifier label.
type VocabularyEntry struct {
	DisplayName string
	Advice      []string
}

// Vocabulary maps raw labels to display names and advice. It is read-only after construction.
type Vocabulary struct {
	entries map[string]VocabularyEntry
	generic []string
}

var genericAdvice = []string{
	"Follow a gentle skincare routine",
	"Monitor the condition regularly",
}

// NewVocabulary builds the condition vocabulary.
func NewVocabulary() *Vocabulary {
	pigmentation := []string{
		"Use vitamin C serum in the morning",
		"Consider retinol products (start slowly)",
		"Extra sun protection is crucial",
	}
	aging := []string{
		"Use retinol or retinoid products",
		"Apply moisturizer with hyaluronic acid",
		"Consider anti-aging serums",
	}

	return NewVocabularyFrom(map[string]VocabularyEntry{
		"acne": {DisplayName: "Acne", Advice: []string{
			"Use salicylic acid or benzoyl peroxide treatments",
			"Avoid over-cleansing which can irritate skin",
			"Consider non-comedogenic products",
		}},
		"dark spots":        {DisplayName: "Dark Spots", Advice: pigmentation},
		"hyperpigmentation": {DisplayName: "Hyperpigmentation", Advice: pigmentation},
		"wrinkles":          {DisplayName: "Wrinkles", Advice: aging},
		"fine lines":        {DisplayName: "Fine Lines", Advice: aging},
		"dryness": {DisplayName: "Dry Skin", Advice: []string{
			"Use a gentle, hydrating cleanser",
			"Apply moisturizer while skin is still damp",
			"Consider using a humidifier",
		}},
		"oiliness": {DisplayName: "Oily Skin", Advice: genericAdvice},
	}, genericAdvice)
}

// NewVocabularyFrom builds a vocabulary from an explicit table. Keys are matched case-insensitively.
func NewVocabularyFrom(entries map[string]VocabularyEntry, generic []string) *Vocabulary {
	v := &Vocabulary{
		entries: make(map[string]VocabularyEntry, len(entries)),
		generic: append([]string(nil), generic...),
	}
	for label, entry := range entries {
		v.entries[strings.ToLower(label)] = VocabularyEntry{
			DisplayName: entry.DisplayName,
			Advice:      append([]string(nil), entry.Advice...),
		}
	}
	return v
}

// Describe returns the display name and advice lines for a raw label.
// Unknown labels get their first character capitalized and the generic advice.
func (v *Vocabulary) Describe(label string) (string, []string) {
	if entry, ok := v.entries[strings.ToLower(label)]; ok {
		return entry.DisplayName, append([]string(nil), entry.Advice...)
	}
	return capitalize(label), append([]string(nil), v.generic...)
}

// DisplayName returns only the presentation name of a label.
func (v *Vocabulary) DisplayName(label string) string {
	name, _ := v.Describe(label)
	return name
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
