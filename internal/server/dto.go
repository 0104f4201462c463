package server

import (
	"time"

	"smartstart/internal/domain"
)

// Request payloads

type SmartStartRequest struct {
	Assignments    []domain.AssignmentInput `json:"assignments"`
	AvgHoursPerDay *float64                 `json:"avg_hours_per_day,omitempty" doc:"Daily study capacity in hours; defaults to the server setting"`
	Now            *time.Time               `json:"now,omitempty" format:"date-time" doc:"Reference time; defaults to the server clock"`
}

type InterventionRequest struct {
	OverdueAssignments     []domain.OverdueAssignment `json:"overdue_assignments,omitempty"`
	SubjectGrades          []domain.SubjectGrade      `json:"subject_grades,omitempty"`
	CompletionRate         float64                    `json:"completion_rate"`
	PreviousCompletionRate *float64                   `json:"previous_completion_rate,omitempty"`
}

type CourseRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	TeacherName string `json:"teacher_name,omitempty"`
}

type SyncRequest struct {
	FullName    string                   `json:"full_name,omitempty"`
	Courses     []CourseRequest          `json:"courses,omitempty"`
	Assignments []domain.AssignmentInput `json:"assignments"`
	Submissions []domain.Submission      `json:"submissions,omitempty"`
}

type SubjectGradeRequest struct {
	AvgGrade *float64 `json:"avg_grade,omitempty"`
	Trend    string   `json:"trend,omitempty"`
}

type CreateLinkRequest struct {
	StudentID string `json:"student_id"`
}

type RespondLinkRequest struct {
	Status string `json:"status" enum:"accepted,rejected"`
}

// Response payloads

type SmartStartResponse struct {
	Recommendations []domain.Recommendation `json:"recommendations"`
	CalculatedAt    time.Time               `json:"calculated_at" format:"date-time"`
}

type RecommendationsResponse struct {
	StudentID string                        `json:"student_id"`
	Items     []domain.StoredRecommendation `json:"items"`
}

type ChildrenResponse struct {
	ParentID string                  `json:"parent_id"`
	Children []domain.StudentSummary `json:"children"`
}

type EventsResponse struct {
	Items []domain.Event `json:"items"`
}

func (r SyncRequest) batch(studentID string) domain.SyncBatch {
	b := domain.SyncBatch{
		Student:     domain.Student{ID: studentID, FullName: r.FullName},
		Assignments: r.Assignments,
		Submissions: r.Submissions,
	}
	for _, c := range r.Courses {
		b.Courses = append(b.Courses, domain.Course{ID: c.ID, Name: c.Name, TeacherName: c.TeacherName})
	}
	return b
}

func (r InterventionRequest) input() domain.InterventionInput {
	return domain.InterventionInput{
		OverdueAssignments:     r.OverdueAssignments,
		SubjectGrades:          r.SubjectGrades,
		CompletionRate:         r.CompletionRate,
		PreviousCompletionRate: r.PreviousCompletionRate,
	}
}
