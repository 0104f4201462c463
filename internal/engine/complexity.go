package engine

import (
	"strings"

	"smartstart/internal/domain"
)

const (
	baseComplexity = 5
	minComplexity  = 1
	maxComplexity  = 10
	maxKeywordHits = 2
)

var complexityKeywords = []string{
	"essay",
	"research",
	"project",
	"presentation",
	"analysis",
	"report",
	"portfolio",
	"paper",
	"thesis",
	"experiment",
	"investigation",
}

var simpleKeywords = []string{
	"quiz",
	"worksheet",
	"practice",
	"review",
	"reading",
	"watch",
	"complete",
}

// ComputeComplexity scores an assignment from 1 (trivial) to 10 (major piece of work)
// using its point value, description length and title/description keywords.
func ComputeComplexity(a domain.AssignmentInput) int {
	score := baseComplexity
	score += pointsContribution(a.MaxPoints)

	words := len(strings.Fields(a.Description))
	switch {
	case words > 200:
		score += 2
	case words > 100:
		score++
	}

	text := strings.ToLower(a.Title + " " + a.Description)
	score += min(countKeywords(text, complexityKeywords), maxKeywordHits)
	score -= min(countKeywords(text, simpleKeywords), maxKeywordHits)

	return clamp(score, minComplexity, maxComplexity)
}

func pointsContribution(points *float64) int {
	if points == nil {
		return 0
	}
	switch p := *points; {
	case p >= 100:
		return 3
	case p >= 50:
		return 2
	case p >= 20:
		return 1
	default:
		return 0
	}
}

// countKeywords counts distinct keywords appearing anywhere in text, substrings included
// ("papers" matches "paper").
func countKeywords(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}

// EstimateEffortHours maps a complexity score to expected hours of work. The mapping is
// piecewise linear and non-decreasing; it steps up at the 3/4 and 6/7 boundaries.
func EstimateEffortHours(score int) float64 {
	s := float64(score)
	switch {
	case score <= 3:
		return 0.5 + s*0.33
	case score <= 6:
		return 2 + (s-3)*0.67
	default:
		return 5 + (s-6)*1.25
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
