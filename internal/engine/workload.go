package engine

import (
	"fmt"
	"strconv"

	"smartstart/internal/domain"
)

const healthyReason = "On track with assignments"

type healthRule struct {
	health  domain.WorkloadHealth
	applies func(domain.WorkloadMetrics) bool
	reason  func(domain.WorkloadMetrics) string
}

// healthRules are evaluated top to bottom and the first match wins, so every stressed
// rule must stay ahead of every moderate one.
var healthRules = []healthRule{
	{
		health:  domain.HealthStressed,
		applies: func(m domain.WorkloadMetrics) bool { return m.OverdueCount >= 4 },
		reason: func(m domain.WorkloadMetrics) string {
			return fmt.Sprintf("%d overdue assignments need attention", m.OverdueCount)
		},
	},
	{
		health:  domain.HealthStressed,
		applies: func(m domain.WorkloadMetrics) bool { return m.AssignmentsDueThisWeek >= 9 },
		reason: func(m domain.WorkloadMetrics) string {
			return fmt.Sprintf("Heavy week with %d assignments due", m.AssignmentsDueThisWeek)
		},
	},
	{
		health:  domain.HealthStressed,
		applies: func(m domain.WorkloadMetrics) bool { return m.CompletionRate < 60 },
		reason: func(m domain.WorkloadMetrics) string {
			return fmt.Sprintf("Completion rate at %s%% needs improvement", formatRate(m.CompletionRate))
		},
	},
	{
		health:  domain.HealthModerate,
		applies: func(m domain.WorkloadMetrics) bool { return m.OverdueCount >= 2 },
		reason: func(m domain.WorkloadMetrics) string {
			return fmt.Sprintf("%d overdue assignments to catch up on", m.OverdueCount)
		},
	},
	{
		health:  domain.HealthModerate,
		applies: func(m domain.WorkloadMetrics) bool { return m.AssignmentsDueThisWeek >= 5 },
		reason: func(m domain.WorkloadMetrics) string {
			return fmt.Sprintf("Busy week with %d assignments due", m.AssignmentsDueThisWeek)
		},
	},
	{
		health:  domain.HealthModerate,
		applies: func(m domain.WorkloadMetrics) bool { return m.CompletionRate < 80 },
		reason: func(m domain.WorkloadMetrics) string {
			return fmt.Sprintf("Completion rate at %s%%", formatRate(m.CompletionRate))
		},
	},
}

// CalculateWorkloadHealth rates a student's workload from aggregate metrics.
func CalculateWorkloadHealth(m domain.WorkloadMetrics) domain.WorkloadHealthResult {
	for _, r := range healthRules {
		if r.applies(m) {
			return domain.WorkloadHealthResult{Health: r.health, Reason: r.reason(m)}
		}
	}
	return domain.WorkloadHealthResult{Health: domain.HealthHealthy, Reason: healthyReason}
}

func formatRate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
