package rules

import (
	"regexp"
	"strings"
	"unicode"
)

// Decision is the outcome of a single rule check or the aggregated rule stage.
type Decision string

const (
	DecisionPass     Decision = "PASS"
	DecisionApprove  Decision = "APPROVE"
	DecisionEscalate Decision = "ESCALATE"
	DecisionReject   Decision = "REJECT"
)

// BannedWords are terms that immediately push content towards rejection.
var BannedWords = []string{
	"spam", "fake", "scam", "clickbait",
	"http://bit.ly", "http://tinyurl.com",
}

// Profanity terms escalate to human review when enough of them appear.
var Profanity = []string{
	"fuck", "shit", "asshole", "bastard",
}

var (
	urlPattern   = regexp.MustCompile(`http[s]?://[^\s]+`)
	phonePattern = regexp.MustCompile(`\b\d{10,}\b`)
)

// CheckResult is the outcome of one heuristic check.
type CheckResult struct {
	Score    float64  `json:"score"`
	Flags    []string `json:"flags"`
	Decision Decision `json:"decision"`
}

// Result aggregates all rule checks for one submission.
type Result struct {
	Stage      string                 `json:"stage"`
	Score      float64                `json:"score"`
	Confidence float64                `json:"confidence"`
	Flags      []string               `json:"flags"`
	Decision   Decision               `json:"decision"`
	Details    map[string]CheckResult `json:"details"`
}

// CheckSpam accumulates spam indicators over the text.
func CheckSpam(text string) CheckResult {
	textLower := strings.ToLower(text)

	indicators := 0.0
	flags := []string{}

	if len([]rune(text)) < 20 {
		indicators += 0.3
		flags = append(flags, "TOO_SHORT")
	}

	if isAllUpper(text) && len([]rune(text)) > 50 {
		indicators += 0.4
		flags = append(flags, "ALL_CAPS")
	}

	if hasRepeatedRun(text, 5) {
		indicators += 0.3
		flags = append(flags, "REPEATED_CHARS")
	}

	for _, word := range BannedWords {
		if strings.Contains(textLower, word) {
			indicators += 0.5
			flags = append(flags, "BANNED_WORD_"+strings.ToUpper(word))
		}
	}

	if len(urlPattern.FindAllString(text, -1)) > 2 {
		indicators += 0.4
		flags = append(flags, "EXCESSIVE_URLS")
	}

	score := indicators
	if score > 1.0 {
		score = 1.0
	}

	decision := DecisionPass
	if score > 0.7 {
		decision = DecisionReject
	}
	return CheckResult{Score: score, Flags: flags, Decision: decision}
}

// CheckProfanity counts distinct profanity terms, 0.3 each, capped at 1.0.
func CheckProfanity(text string) CheckResult {
	textLower := strings.ToLower(text)

	found := []string{}
	for _, word := range Profanity {
		if strings.Contains(textLower, word) {
			found = append(found, word)
		}
	}

	score := float64(len(found)) * 0.3
	if score > 1.0 {
		score = 1.0
	}

	decision := DecisionPass
	if score > 0.5 {
		decision = DecisionEscalate
	}
	return CheckResult{Score: score, Flags: found, Decision: decision}
}

// CheckContactInfo flags digit runs of length >= 10 as leaked phone numbers.
func CheckContactInfo(text string) CheckResult {
	if phonePattern.MatchString(text) {
		return CheckResult{Score: 1.0, Flags: []string{"PHONE_NUMBER"}, Decision: DecisionReject}
	}
	return CheckResult{Score: 0.0, Flags: []string{}, Decision: DecisionPass}
}

// CheckDuplicateContent measures word uniqueness as a cheap copy-paste signal.
func CheckDuplicateContent(text string) CheckResult {
	words := strings.Fields(text)
	if len(words) == 0 {
		return CheckResult{Score: 1.0, Flags: []string{"EMPTY"}, Decision: DecisionReject}
	}

	unique := map[string]struct{}{}
	for _, w := range words {
		unique[w] = struct{}{}
	}
	ratio := float64(len(unique)) / float64(len(words))

	if ratio < 0.3 {
		return CheckResult{Score: 0.8, Flags: []string{"LOW_UNIQUENESS"}, Decision: DecisionEscalate}
	}
	return CheckResult{Score: 0.0, Flags: []string{}, Decision: DecisionPass}
}

// RunAllChecks runs every check over "title description" and folds the results.
// Rejection wins over escalation; profanity alone never forces a reject.
func RunAllChecks(title, description string) Result {
	combined := title + " " + description

	spam := CheckSpam(combined)
	profanity := CheckProfanity(combined)
	phone := CheckContactInfo(combined)
	duplicate := CheckDuplicateContent(combined)

	flags := []string{}
	flags = append(flags, spam.Flags...)
	flags = append(flags, profanity.Flags...)
	flags = append(flags, phone.Flags...)
	flags = append(flags, duplicate.Flags...)

	maxScore := spam.Score
	for _, s := range []float64{profanity.Score, phone.Score, duplicate.Score} {
		if s > maxScore {
			maxScore = s
		}
	}

	var decision Decision
	switch {
	case spam.Decision == DecisionReject || phone.Decision == DecisionReject || duplicate.Decision == DecisionReject:
		decision = DecisionReject
	case spam.Decision == DecisionEscalate || profanity.Decision == DecisionEscalate || duplicate.Decision == DecisionEscalate:
		decision = DecisionEscalate
	default:
		decision = DecisionApprove
	}

	return Result{
		Stage:      "RULES",
		Score:      maxScore,
		Confidence: 1.0,
		Flags:      flags,
		Decision:   decision,
		Details: map[string]CheckResult{
			"spam":      spam,
			"profanity": profanity,
			"phone":     phone,
			"duplicate": duplicate,
		},
	}
}

// isAllUpper reports whether text has at least one cased rune and no lowercase runes.
func isAllUpper(text string) bool {
	hasCased := false
	for _, r := range text {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			hasCased = true
		}
	}
	return hasCased
}

// hasRepeatedRun reports whether any rune repeats n or more times consecutively.
func hasRepeatedRun(text string, n int) bool {
	var prev rune
	run := 0
	for _, r := range text {
		if r == prev {
			run++
		} else {
			prev = r
			run = 1
		}
		if run >= n {
			return true
		}
	}
	return false
}
