package normalizer

import (
	"strings"
	"unicode"
)

// Metadata holds simple measurements over the combined title + description.
type Metadata struct {
	WordCount      int     `json:"word_count"`
	CharCount      int     `json:"char_count"`
	UppercaseRatio float64 `json:"uppercase_ratio"`
	HasURLs        bool    `json:"has_urls"`
}

// Result is the output of one preprocessing pass.
type Result struct {
	CleanTitle       string   `json:"clean_title"`
	CleanDescription string   `json:"clean_description"`
	Metadata         Metadata `json:"metadata"`
}

// Clean trims the text and collapses internal whitespace runs to single spaces.
func Clean(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// ExtractMetadata measures the combined "title description" text.
// Empty input yields zero counts and ratio 0.
func ExtractMetadata(title, description string) Metadata {
	combined := strings.TrimSpace(title + " " + description)

	runes := []rune(combined)
	upper := 0
	for _, r := range runes {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	charCount := len(runes)
	denom := charCount
	if denom < 1 {
		denom = 1
	}

	return Metadata{
		WordCount:      len(strings.Fields(combined)),
		CharCount:      charCount,
		UppercaseRatio: float64(upper) / float64(denom),
		HasURLs:        strings.Contains(combined, "http://") || strings.Contains(combined, "https://"),
	}
}

// Preprocess cleans title/description and measures the cleaned pair.
func Preprocess(title, description string) Result {
	cleanTitle := Clean(title)
	cleanDescription := Clean(description)

	return Result{
		CleanTitle:       cleanTitle,
		CleanDescription: cleanDescription,
		Metadata:         ExtractMetadata(cleanTitle, cleanDescription),
	}
}
