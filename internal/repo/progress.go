package repo

import (
	"context"
	"database/sql"

	"smartstart/internal/domain"
)

func (r Repo) InsertSnapshotTx(ctx context.Context, tx *sql.Tx, s domain.ProgressSnapshot) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO progress_snapshots(id,student_id,snapshot_date,total_assignments,completed_assignments,completion_rate,overdue_count,upcoming_count)
VALUES (?,?,?,?,?,?,?,?)`,
		s.ID, s.StudentID, s.SnapshotDate, s.TotalAssignments, s.CompletedAssignments, s.CompletionRate, s.OverdueCount, s.UpcomingCount)
	return err
}

// LatestSnapshots returns up to n snapshots, newest first.
func (r Repo) LatestSnapshots(ctx context.Context, studentID string, n int) ([]domain.ProgressSnapshot, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,student_id,snapshot_date,total_assignments,completed_assignments,completion_rate,overdue_count,upcoming_count
FROM progress_snapshots WHERE student_id=? ORDER BY snapshot_date DESC, rowid DESC LIMIT ?`, studentID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ProgressSnapshot
	for rows.Next() {
		var s domain.ProgressSnapshot
		if err := rows.Scan(&s.ID, &s.StudentID, &s.SnapshotDate, &s.TotalAssignments, &s.CompletedAssignments,
			&s.CompletionRate, &s.OverdueCount, &s.UpcomingCount); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func (r Repo) UpsertSubjectGradeTx(ctx context.Context, tx *sql.Tx, studentID string, g domain.SubjectGrade, updatedAt string) error {
	var avg any
	if g.AvgGrade != nil {
		avg = *g.AvgGrade
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO subject_grades(student_id,subject_name,avg_grade,trend,updated_at) VALUES (?,?,?,?,?)
ON CONFLICT(student_id,subject_name) DO UPDATE SET avg_grade=excluded.avg_grade, trend=excluded.trend, updated_at=excluded.updated_at`,
		studentID, g.SubjectName, avg, nullable(string(g.Trend)), updatedAt)
	return err
}

func (r Repo) ListSubjectGrades(ctx context.Context, studentID string) ([]domain.SubjectGrade, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT subject_name,avg_grade,COALESCE(trend,'') FROM subject_grades WHERE student_id=? ORDER BY subject_name`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.SubjectGrade
	for rows.Next() {
		var (
			g     domain.SubjectGrade
			avg   sql.NullFloat64
			trend string
		)
		if err := rows.Scan(&g.SubjectName, &avg, &trend); err != nil {
			return nil, err
		}
		if avg.Valid {
			v := avg.Float64
			g.AvgGrade = &v
		}
		g.Trend = domain.Trend(trend)
		res = append(res, g)
	}
	return res, rows.Err()
}
