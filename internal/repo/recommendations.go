package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"smartstart/internal/domain"
)

// RecommendationID is stable per student/assignment pair so recomputes overwrite in place.
func RecommendationID(studentID, assignmentID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(studentID+"|"+assignmentID)).String()
}

// ReplaceRecommendationsTx swaps the student's stored plan for recs.
func (r Repo) ReplaceRecommendationsTx(ctx context.Context, tx *sql.Tx, studentID string, recs []domain.Recommendation, calculatedAt string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM recommendations WHERE student_id=?`, studentID); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO recommendations(id,assignment_id,student_id,recommended_start_date,complexity_score,estimated_hours,reasoning,priority,priority_rank,calculated_at)
VALUES (?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, rec := range recs {
		if _, err := stmt.ExecContext(ctx, RecommendationID(studentID, rec.AssignmentID), rec.AssignmentID, studentID,
			FormatTime(rec.RecommendedStartDate), rec.ComplexityScore, rec.EstimatedHours, rec.Reasoning,
			string(rec.Priority), rec.PriorityRank, calculatedAt); err != nil {
			return err
		}
	}
	return nil
}

// ListRecommendations returns stored recommendations in rank order, skipping assignments
// whose due date is before notBefore.
func (r Repo) ListRecommendations(ctx context.Context, studentID string, notBefore time.Time, limit int) ([]domain.StoredRecommendation, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT r.id,r.student_id,r.assignment_id,r.recommended_start_date,r.complexity_score,r.estimated_hours,
  r.reasoning,r.priority,r.priority_rank,r.calculated_at,a.title,a.due_date,c.name,COALESCE(c.teacher_name,'')
FROM recommendations r
JOIN assignments a ON a.student_id=r.student_id AND a.id=r.assignment_id
JOIN courses c ON c.student_id=a.student_id AND c.id=a.course_id
WHERE r.student_id=? AND (a.due_date IS NULL OR a.due_date>=?)
ORDER BY r.priority_rank ASC
LIMIT ?`, studentID, FormatTime(notBefore), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.StoredRecommendation
	for rows.Next() {
		var (
			rec      domain.StoredRecommendation
			start    string
			priority string
			due      sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.AssignmentID, &start, &rec.ComplexityScore, &rec.EstimatedHours,
			&rec.Reasoning, &priority, &rec.PriorityRank, &rec.CalculatedAt, &rec.Title, &due, &rec.CourseName, &rec.TeacherName); err != nil {
			return nil, err
		}
		if rec.RecommendedStartDate, err = parseTime(start); err != nil {
			return nil, err
		}
		if rec.DueDate, err = parseOptionalTime(due); err != nil {
			return nil, err
		}
		rec.Priority = domain.PriorityClass(priority)
		res = append(res, rec)
	}
	return res, rows.Err()
}
