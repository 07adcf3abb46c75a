// Package intent turns a free-text WhatsApp reply into a confirmation intent.
// Classification is a deterministic keyword scorer with no I/O.
package intent

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Status is a meeting's confirmation state.
type Status string

const (
	// StatusPending is the state of a meeting nobody has answered for yet.
	// Classify never returns it.
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusDeclined   Status = "declined"
	StatusReschedule Status = "reschedule"
	StatusUnclear    Status = "unclear"
)

// IsTerminal reports whether the status ends the wait for a reply.
func (s Status) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusDeclined
}

// Valid reports whether s is a known state.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusDeclined, StatusReschedule, StatusUnclear:
		return true
	}
	return false
}

// Scores are the raw bucket totals behind a classification.
type Scores struct {
	Positive   int `json:"positive"`
	Negative   int `json:"negative"`
	Reschedule int `json:"reschedule"`
}

// Total sums all buckets.
func (s Scores) Total() int { return s.Positive + s.Negative + s.Reschedule }

// Result is the outcome of classifying one reply.
type Result struct {
	Status     Status   `json:"status"`
	Confidence float64  `json:"confidence"`
	Scores     Scores   `json:"scores"`
	Normalized string   `json:"normalized"`
	Matched    []string `json:"matched,omitempty"`
}

// Classify scores text against the positive, negative and reschedule lexicons.
// Empty text is unclear with zero confidence.
func Classify(text string) Result {
	normalized := NormalizeText(text)
	if normalized == "" {
		return Result{Status: StatusUnclear}
	}

	var scores Scores
	var matched []string

	scan := func(terms []string, minWeight int, bucket *int) {
		for _, term := range terms {
			if !strings.Contains(normalized, term) {
				continue
			}
			*bucket += max(minWeight, len(strings.Fields(term)))
			matched = append(matched, term)
		}
	}
	scan(positiveTerms, 2, &scores.Positive)
	scan(negativeTerms, 2, &scores.Negative)
	scan(rescheduleTerms, 1, &scores.Reschedule)

	if utf8.RuneCountInString(normalized) <= shortReplyMaxRunes {
		if _, ok := shortAffirmatives[normalized]; ok {
			scores.Positive += shortReplyBonus
		} else if _, ok := shortNegatives[normalized]; ok {
			scores.Negative += shortReplyBonus
		}
	}

	status, confidence := decide(scores)
	return Result{
		Status:     status,
		Confidence: confidence,
		Scores:     scores,
		Normalized: normalized,
		Matched:    matched,
	}
}

func decide(s Scores) (Status, float64) {
	total := float64(s.Total())
	p, n, r := s.Positive, s.Negative, s.Reschedule

	switch {
	case total == 0:
		return StatusUnclear, 0
	case p > n && p > r:
		return StatusConfirmed, min(0.5+float64(p)/(total+1)*0.5, 1.0)
	case n > p && n > r:
		return StatusDeclined, min(0.5+float64(n)/(total+1)*0.5, 1.0)
	case r > 0 && r >= max(p, n):
		return StatusReschedule, min(0.4+float64(r)/(total+1)*0.4, 0.9)
	default:
		// Equal positive and negative: no tie-break is applied.
		return StatusUnclear, 0.2
	}
}

// NormalizeText removes accents, lowercases and trims.
func NormalizeText(text string) string {
	if text == "" {
		return ""
	}
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, text)
	if err != nil {
		out = text
	}
	return strings.TrimSpace(strings.ToLower(out))
}
