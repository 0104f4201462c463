package engine

import (
	"math"
	"sort"
	"strings"
	"time"

	"smartstart/internal/domain"
)

const (
	// DefaultAvgHoursPerDay is used when the caller has no study-history figure.
	DefaultAvgHoursPerDay = 2.0
	maxAdvanceDays        = 14
	day                   = 24 * time.Hour
)

// StartPlan is the scheduling outcome for a single assignment.
type StartPlan struct {
	StartDate      time.Time
	DaysUntilDue   int
	WorkDaysNeeded int
}

// ComputeStartDate picks the day work should begin so the assignment fits before its due
// date with a complexity-dependent buffer. Starts are never before now nor more than two
// weeks ahead. A non-positive or non-finite avgHoursPerDay means DefaultAvgHoursPerDay.
func ComputeStartDate(now time.Time, a domain.AssignmentInput, score int, hours, avgHoursPerDay float64) StartPlan {
	if !(avgHoursPerDay > 0) || math.IsInf(avgHoursPerDay, 0) {
		avgHoursPerDay = DefaultAvgHoursPerDay
	}
	if a.DueDate == nil {
		return StartPlan{StartDate: now, DaysUntilDue: 0, WorkDaysNeeded: 1}
	}
	daysUntilDue := ceilDays(a.DueDate.Sub(now))
	buffer := 1 + float64(score)/20
	workDays := int(math.Ceil(hours / avgHoursPerDay * buffer))

	maxAdvance := min(daysUntilDue-1, maxAdvanceDays)
	startIn := max(0, min(daysUntilDue-workDays, maxAdvance))

	return StartPlan{
		StartDate:      now.Add(time.Duration(startIn) * day),
		DaysUntilDue:   daysUntilDue,
		WorkDaysNeeded: workDays,
	}
}

// ClassifyPriority buckets a start date relative to now. A past due date is always behind.
func ClassifyPriority(now, start time.Time, due *time.Time) domain.PriorityClass {
	if due != nil && due.Before(now) {
		return domain.PriorityBehind
	}
	startIn := ceilDays(start.Sub(now))
	switch {
	case startIn < 0:
		return domain.PriorityBehind
	case startIn == 0:
		return domain.PriorityStartNow
	case startIn <= 2:
		return domain.PriorityStartSoon
	default:
		return domain.PriorityOnTrack
	}
}

// GenerateReasoning builds the display text explaining a recommendation.
func GenerateReasoning(a domain.AssignmentInput, daysUntilDue, workDaysNeeded, score int) string {
	var reasons []string
	switch {
	case daysUntilDue <= 1:
		reasons = append(reasons, "Due very soon")
	case daysUntilDue <= 3:
		reasons = append(reasons, "Due this week")
	case daysUntilDue <= 7:
		reasons = append(reasons, "Due within a week")
	}
	switch {
	case workDaysNeeded >= 5:
		reasons = append(reasons, "Complex assignment requiring significant time")
	case workDaysNeeded >= 3:
		reasons = append(reasons, "Moderate complexity")
	}
	if a.MaxPoints != nil && *a.MaxPoints >= 100 {
		reasons = append(reasons, "High point value")
	}
	if score >= 8 {
		reasons = append(reasons, "Major assignment")
	}
	if len(reasons) == 0 {
		return "Regular assignment"
	}
	return strings.Join(reasons, ". ")
}

// ComputeSmartStart turns a batch of assignments into a ranked start plan. Assignments
// already past due are dropped; the rest are ranked 1..N by priority class, then start
// date, then descending complexity. A zero avgHoursPerDay means DefaultAvgHoursPerDay.
func ComputeSmartStart(now time.Time, assignments []domain.AssignmentInput, avgHoursPerDay float64) ([]domain.Recommendation, error) {
	if avgHoursPerDay == 0 {
		avgHoursPerDay = DefaultAvgHoursPerDay
	}
	if err := validateBatch(now, assignments, avgHoursPerDay); err != nil {
		return nil, err
	}

	recs := make([]domain.Recommendation, 0, len(assignments))
	for _, a := range assignments {
		if a.DueDate != nil && a.DueDate.Before(now) {
			continue
		}
		score := ComputeComplexity(a)
		hours := EstimateEffortHours(score)
		plan := ComputeStartDate(now, a, score, hours, avgHoursPerDay)
		recs = append(recs, domain.Recommendation{
			AssignmentID:         a.ID,
			RecommendedStartDate: plan.StartDate,
			ComplexityScore:      score,
			EstimatedHours:       math.Round(hours*10) / 10,
			Reasoning:            GenerateReasoning(a, plan.DaysUntilDue, plan.WorkDaysNeeded, score),
			Priority:             ClassifyPriority(now, plan.StartDate, a.DueDate),
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
			return ra < rb
		}
		if !a.RecommendedStartDate.Equal(b.RecommendedStartDate) {
			return a.RecommendedStartDate.Before(b.RecommendedStartDate)
		}
		return a.ComplexityScore > b.ComplexityScore
	})
	for i := range recs {
		recs[i].PriorityRank = i + 1
	}
	return recs, nil
}

func ceilDays(d time.Duration) int {
	return int(math.Ceil(d.Hours() / 24))
}
