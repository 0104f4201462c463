package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"smartstart/internal/domain"
	"smartstart/internal/events"
	"smartstart/internal/repo"
)

const upcomingWindow = 7 * day

// TakeSnapshot records the student's current completion and deadline counts.
func (e Engine) TakeSnapshot(ctx context.Context, studentID string) (domain.ProgressSnapshot, error) {
	if _, err := e.Repo.GetStudent(ctx, studentID); err != nil {
		return domain.ProgressSnapshot{}, err
	}
	now := e.now()
	progress, err := e.Repo.ListAssignmentProgress(ctx, studentID)
	if err != nil {
		return domain.ProgressSnapshot{}, err
	}
	snap := summarizeProgress(now, progress)
	snap.ID = uuid.NewString()
	snap.StudentID = studentID
	snap.SnapshotDate = repo.FormatTime(now)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.ProgressSnapshot{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertSnapshotTx(ctx, tx, snap); err != nil {
		return domain.ProgressSnapshot{}, fmt.Errorf("insert snapshot: %w", err)
	}
	if err := e.eventWriter().Append(ctx, tx, events.SnapshotTaken, studentID, "snapshot", snap.ID, events.Payload{
		"completion_rate": snap.CompletionRate,
		"overdue_count":   snap.OverdueCount,
		"upcoming_count":  snap.UpcomingCount,
	}); err != nil {
		return domain.ProgressSnapshot{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.ProgressSnapshot{}, err
	}
	return snap, nil
}

func summarizeProgress(now time.Time, progress []repo.AssignmentProgress) domain.ProgressSnapshot {
	snap := domain.ProgressSnapshot{TotalAssignments: len(progress), CompletionRate: 100}
	horizon := now.Add(upcomingWindow)
	for _, p := range progress {
		if p.Done {
			snap.CompletedAssignments++
			continue
		}
		if p.DueDate == nil {
			continue
		}
		switch {
		case p.DueDate.Before(now):
			snap.OverdueCount++
		case !p.DueDate.After(horizon):
			snap.UpcomingCount++
		}
	}
	if snap.TotalAssignments > 0 {
		rate := float64(snap.CompletedAssignments) / float64(snap.TotalAssignments) * 100
		snap.CompletionRate = math.Round(rate*10) / 10
	}
	return snap
}

// SetSubjectGrade stores the average and trend for one subject.
func (e Engine) SetSubjectGrade(ctx context.Context, studentID string, g domain.SubjectGrade) (domain.SubjectGrade, error) {
	if err := validate.Struct(g); err != nil {
		return domain.SubjectGrade{}, fieldError("subject", err)
	}
	if _, err := e.Repo.GetStudent(ctx, studentID); err != nil {
		return domain.SubjectGrade{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.SubjectGrade{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpsertSubjectGradeTx(ctx, tx, studentID, g, repo.FormatTime(e.now())); err != nil {
		return domain.SubjectGrade{}, fmt.Errorf("upsert subject grade: %w", err)
	}
	payload := events.Payload{"trend": string(g.Trend)}
	if g.AvgGrade != nil {
		payload["avg_grade"] = *g.AvgGrade
	}
	if err := e.eventWriter().Append(ctx, tx, events.SubjectGradeSet, studentID, "subject", g.SubjectName, payload); err != nil {
		return domain.SubjectGrade{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.SubjectGrade{}, err
	}
	return g, nil
}

// StudentSummary builds the parent-facing view from the two latest snapshots, stored subject
// grades and the live overdue list. Subjects without an average grade never count as failing.
func (e Engine) StudentSummary(ctx context.Context, studentID string) (domain.StudentSummary, error) {
	student, err := e.Repo.GetStudent(ctx, studentID)
	if err != nil {
		return domain.StudentSummary{}, err
	}
	now := e.now()
	snapshots, err := e.Repo.LatestSnapshots(ctx, studentID, 2)
	if err != nil {
		return domain.StudentSummary{}, err
	}
	grades, err := e.Repo.ListSubjectGrades(ctx, studentID)
	if err != nil {
		return domain.StudentSummary{}, err
	}
	overdue, err := e.Repo.ListOverdue(ctx, studentID, now)
	if err != nil {
		return domain.StudentSummary{}, err
	}

	stats := domain.SummaryStats{OverdueCount: len(overdue), CompletionRate: 100}
	var previous *float64
	if len(snapshots) > 0 {
		latest := snapshots[0]
		stats = domain.SummaryStats{
			AssignmentsDue: latest.UpcomingCount,
			OverdueCount:   latest.OverdueCount,
			CompletionRate: latest.CompletionRate,
		}
	}
	if len(snapshots) > 1 {
		v := snapshots[1].CompletionRate
		previous = &v
	}

	health := CalculateWorkloadHealth(domain.WorkloadMetrics{
		OverdueCount:           stats.OverdueCount,
		AssignmentsDueThisWeek: stats.AssignmentsDue,
		CompletionRate:         stats.CompletionRate,
	})
	result := IdentifyInterventions(domain.InterventionInput{
		OverdueAssignments:     overdue,
		SubjectGrades:          grades,
		CompletionRate:         stats.CompletionRate,
		PreviousCompletionRate: previous,
	})

	summary := domain.StudentSummary{
		ID:                student.ID,
		Name:              student.FullName,
		WorkloadHealth:    health.Health,
		HealthReason:      health.Reason,
		Stats:             stats,
		ImprovingSubjects: []string{},
		DecliningSubjects: []string{},
		Interventions:     result.Interventions,
		AttentionItems:    result.AttentionItems,
	}
	for _, g := range grades {
		switch g.Trend {
		case domain.TrendImproving:
			summary.ImprovingSubjects = append(summary.ImprovingSubjects, g.SubjectName)
		case domain.TrendDeclining:
			summary.DecliningSubjects = append(summary.DecliningSubjects, g.SubjectName)
		}
	}
	return summary, nil
}

// ChildrenSummaries returns a summary for each student the parent has an accepted link to.
// Students that no longer exist are skipped.
func (e Engine) ChildrenSummaries(ctx context.Context, parentID string) ([]domain.StudentSummary, error) {
	ids, err := e.Repo.AcceptedStudentIDs(ctx, parentID)
	if err != nil {
		return nil, err
	}
	res := make([]domain.StudentSummary, 0, len(ids))
	for _, id := range ids {
		s, err := e.StudentSummary(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("summary for %s: %w", id, err)
		}
		res = append(res, s)
	}
	return res, nil
}

// ChildSummary returns one student's summary if the parent's link to them is accepted.
func (e Engine) ChildSummary(ctx context.Context, parentID, studentID string) (domain.StudentSummary, error) {
	link, err := e.Repo.FindLink(ctx, parentID, studentID)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.StudentSummary{}, fmt.Errorf("parent %s has no link to %s: %w", parentID, studentID, ErrLinkNotAccepted)
	}
	if err != nil {
		return domain.StudentSummary{}, err
	}
	if link.Status != domain.LinkAccepted {
		return domain.StudentSummary{}, fmt.Errorf("link %s is %s: %w", link.ID, link.Status, ErrLinkNotAccepted)
	}
	return e.StudentSummary(ctx, studentID)
}
