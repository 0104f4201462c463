package engine

import (
	"fmt"
	"math"
	"strings"

	"smartstart/internal/domain"
)

const (
	severityCritical   = "critical"
	criticalOverdueDay = 3
	failingGrade       = 50.0
	lowGrade           = 60.0
	completionDropPts  = 20.0
)

// IdentifyInterventions splits a student's signals into critical interventions and
// lower-severity attention items. Items are emitted in rule order; nothing is sorted.
//
// Slightly overdue work is only reported when nothing is critically overdue, even if the
// two sets name different assignments.
func IdentifyInterventions(in domain.InterventionInput) domain.InterventionResult {
	res := domain.InterventionResult{
		Interventions:  []domain.InterventionItem{},
		AttentionItems: []domain.AttentionItem{},
	}

	var critical, minor []domain.OverdueAssignment
	for _, a := range in.OverdueAssignments {
		if a.DaysOverdue >= criticalOverdueDay {
			critical = append(critical, a)
		} else {
			minor = append(minor, a)
		}
	}
	if len(critical) > 0 {
		details := make([]string, 0, len(critical))
		for _, a := range critical {
			details = append(details, fmt.Sprintf("%s (%s) - %d days overdue", a.Title, a.CourseName, a.DaysOverdue))
		}
		res.Interventions = append(res.Interventions, domain.InterventionItem{
			Type:     domain.InterventionOverdue,
			Severity: severityCritical,
			Message:  fmt.Sprintf("%s overdue 3+ days", plural(len(critical), "assignment")),
			Details:  details,
		})
	}

	var failing []string
	for _, s := range in.SubjectGrades {
		if s.AvgGrade != nil && *s.AvgGrade < failingGrade {
			failing = append(failing, fmt.Sprintf("%s: %d%%", s.SubjectName, roundPct(*s.AvgGrade)))
		}
	}
	if len(failing) > 0 {
		res.Interventions = append(res.Interventions, domain.InterventionItem{
			Type:     domain.InterventionFailing,
			Severity: severityCritical,
			Message:  fmt.Sprintf("Failing grades in %s", plural(len(failing), "subject")),
			Details:  failing,
		})
	}

	if prev := in.PreviousCompletionRate; prev != nil && in.CompletionRate < *prev-completionDropPts {
		res.Interventions = append(res.Interventions, domain.InterventionItem{
			Type:     domain.InterventionDropped,
			Severity: severityCritical,
			Message:  fmt.Sprintf("Completion rate dropped from %d%% to %d%%", roundPct(*prev), roundPct(in.CompletionRate)),
		})
	}

	if len(minor) > 0 && len(critical) == 0 {
		res.AttentionItems = append(res.AttentionItems, domain.AttentionItem{
			Type:    domain.AttentionOverdue,
			Message: fmt.Sprintf("%s slightly overdue", plural(len(minor), "assignment")),
		})
	}

	var low, declining []string
	for _, s := range in.SubjectGrades {
		if s.AvgGrade != nil && *s.AvgGrade >= failingGrade && *s.AvgGrade < lowGrade {
			low = append(low, s.SubjectName)
		}
		if s.Trend == domain.TrendDeclining {
			declining = append(declining, s.SubjectName)
		}
	}
	if len(low) > 0 {
		res.AttentionItems = append(res.AttentionItems, domain.AttentionItem{
			Type:    domain.AttentionDeclining,
			Message: "Low grades in: " + strings.Join(low, ", "),
		})
	}
	if len(declining) > 0 {
		res.AttentionItems = append(res.AttentionItems, domain.AttentionItem{
			Type:    domain.AttentionDeclining,
			Message: "Declining trends in: " + strings.Join(declining, ", "),
		})
	}
	return res
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func roundPct(v float64) int {
	return int(math.Round(v))
}
