// Package classifier routes free-text complaints to departments by keyword
// scoring against the department registry.
package classifier

import (
	"strings"

	"complaints_backend/internal/registry"
)

// AutoRouteThreshold is the minimum confidence at which the session manager
// auto-routes a complaint without asking the user to pick a department.
// The boundary is inclusive: exactly 0.5 auto-routes.
const AutoRouteThreshold = 0.5

// Result is the outcome of classifying one complaint text.
type Result struct {
	DepartmentID    string
	Confidence      float64
	MatchedKeywords []string
}

// AutoRoutable reports whether the confidence clears the auto-route threshold.
func (r Result) AutoRoutable() bool {
	return r.Confidence >= AutoRouteThreshold
}

// Classify scores the text against every routable department's keyword set.
// A department's score is the number of its keywords occurring as substrings
// of the case-folded text; confidence is the winner's share of the total
// score across all matching departments. When nothing matches, the reserved
// unclassified department is returned with confidence 0.
//
// Ties on the maximum score break deterministically in favor of the
// department listed first in the registry.
//
// Classify is a pure function of its inputs.
func Classify(text string, departments []registry.Department) Result {
	folded := strings.ToLower(text)

	var (
		best      *registry.Department
		bestScore int
		total     int
	)
	for i := range departments {
		d := &departments[i]
		if d.ID == registry.UnclassifiedID {
			continue
		}

		score := 0
		for _, kw := range d.Keywords {
			if kw != "" && strings.Contains(folded, strings.ToLower(kw)) {
				score++
			}
		}
		if score == 0 {
			continue
		}

		total += score
		if score > bestScore {
			best = d
			bestScore = score
		}
	}

	if best == nil {
		return Result{DepartmentID: registry.UnclassifiedID, Confidence: 0.0}
	}

	matched := make([]string, 0, bestScore)
	for _, kw := range best.Keywords {
		if kw != "" && strings.Contains(folded, strings.ToLower(kw)) {
			matched = append(matched, kw)
		}
	}

	return Result{
		DepartmentID:    best.ID,
		Confidence:      float64(bestScore) / float64(total),
		MatchedKeywords: matched,
	}
}
