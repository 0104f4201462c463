package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"smartstart/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// AssignmentProgress is a stored assignment with the student's completion state.
type AssignmentProgress struct {
	domain.AssignmentInput
	CourseName string
	Done       bool
}

// FormatTime is the canonical timestamp encoding; UTC keeps string comparison in SQL
// chronological.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseOptionalTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r Repo) UpsertStudentTx(ctx context.Context, tx *sql.Tx, s domain.Student) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO students(id,full_name,created_at) VALUES (?,?,?)
ON CONFLICT(id) DO UPDATE SET full_name=CASE WHEN excluded.full_name<>'' THEN excluded.full_name ELSE students.full_name END`,
		s.ID, s.FullName, s.CreatedAt)
	return err
}

func (r Repo) GetStudent(ctx context.Context, id string) (domain.Student, error) {
	var s domain.Student
	err := r.DB.QueryRowContext(ctx, `SELECT id,full_name,created_at FROM students WHERE id=?`, id).
		Scan(&s.ID, &s.FullName, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return s, fmt.Errorf("student %s: %w", id, ErrNotFound)
	}
	return s, err
}

func (r Repo) UpsertCourseTx(ctx context.Context, tx *sql.Tx, c domain.Course) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO courses(id,student_id,name,teacher_name) VALUES (?,?,?,?)
ON CONFLICT(student_id,id) DO UPDATE SET name=excluded.name, teacher_name=excluded.teacher_name`,
		c.ID, c.StudentID, c.Name, nullable(c.TeacherName))
	return err
}

// UpsertAssignmentTx stores a for studentID; the same coursework id may exist for other students.
func (r Repo) UpsertAssignmentTx(ctx context.Context, tx *sql.Tx, studentID string, a domain.AssignmentInput, updatedAt string) error {
	var due any
	if a.DueDate != nil {
		due = FormatTime(*a.DueDate)
	}
	var points any
	if a.MaxPoints != nil {
		points = *a.MaxPoints
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO assignments(student_id,id,course_id,title,description,due_date,max_points,updated_at) VALUES (?,?,?,?,?,?,?,?)
ON CONFLICT(student_id,id) DO UPDATE SET course_id=excluded.course_id, title=excluded.title, description=excluded.description,
  due_date=excluded.due_date, max_points=excluded.max_points, updated_at=excluded.updated_at`,
		studentID, a.ID, a.CourseID, a.Title, nullable(a.Description), due, points, updatedAt)
	return err
}

func (r Repo) UpsertSubmissionTx(ctx context.Context, tx *sql.Tx, studentID string, s domain.Submission, updatedAt string) error {
	var grade any
	if s.AssignedGrade != nil {
		grade = *s.AssignedGrade
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO submissions(assignment_id,student_id,state,assigned_grade,updated_at) VALUES (?,?,?,?,?)
ON CONFLICT(student_id,assignment_id) DO UPDATE SET state=excluded.state, assigned_grade=excluded.assigned_grade, updated_at=excluded.updated_at`,
		s.AssignmentID, studentID, s.State, grade, updatedAt)
	return err
}

// CourseExists reports whether a course is already stored for the student.
func (r Repo) CourseExists(ctx context.Context, studentID, courseID string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM courses WHERE id=? AND student_id=?`, courseID, studentID).Scan(&n)
	return n > 0, err
}

// ListAssignments returns every stored assignment across the student's courses.
func (r Repo) ListAssignments(ctx context.Context, studentID string) ([]domain.AssignmentInput, error) {
	progress, err := r.ListAssignmentProgress(ctx, studentID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.AssignmentInput, 0, len(progress))
	for _, p := range progress {
		out = append(out, p.AssignmentInput)
	}
	return out, nil
}

func (r Repo) ListAssignmentProgress(ctx context.Context, studentID string) ([]AssignmentProgress, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT a.id,a.course_id,c.name,a.title,COALESCE(a.description,''),a.due_date,a.max_points,COALESCE(s.state,'')
FROM assignments a
JOIN courses c ON c.student_id=a.student_id AND c.id=a.course_id
LEFT JOIN submissions s ON s.student_id=a.student_id AND s.assignment_id=a.id
WHERE a.student_id=?
ORDER BY a.id`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []AssignmentProgress
	for rows.Next() {
		var (
			p      AssignmentProgress
			due    sql.NullString
			points sql.NullFloat64
			state  string
		)
		if err := rows.Scan(&p.ID, &p.CourseID, &p.CourseName, &p.Title, &p.Description, &due, &points, &state); err != nil {
			return nil, err
		}
		if p.DueDate, err = parseOptionalTime(due); err != nil {
			return nil, err
		}
		if points.Valid {
			v := points.Float64
			p.MaxPoints = &v
		}
		p.Done = domain.Submission{State: state}.Done()
		res = append(res, p)
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

// ListOverdue returns past-due assignments the student has not turned in, with whole days overdue.
func (r Repo) ListOverdue(ctx context.Context, studentID string, now time.Time) ([]domain.OverdueAssignment, error) {
	progress, err := r.ListAssignmentProgress(ctx, studentID)
	if err != nil {
		return nil, err
	}
	var res []domain.OverdueAssignment
	for _, p := range progress {
		if p.Done || p.DueDate == nil || !p.DueDate.Before(now) {
			continue
		}
		course := p.CourseName
		if course == "" {
			course = "Unknown Course"
		}
		res = append(res, domain.OverdueAssignment{
			Title:       p.Title,
			CourseName:  course,
			DaysOverdue: int(now.Sub(*p.DueDate) / (24 * time.Hour)),
		})
	}
	return res, nil
}
