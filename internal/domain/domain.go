package domain

import "time"

// PriorityClass buckets a recommendation by how urgently work should begin.
type PriorityClass string

const (
	PriorityBehind    PriorityClass = "behind"
	PriorityStartNow  PriorityClass = "start-now"
	PriorityStartSoon PriorityClass = "start-soon"
	PriorityOnTrack   PriorityClass = "on-track"
)

// Rank orders classes for sorting; lower is more urgent.
func (p PriorityClass) Rank() int {
	switch p {
	case PriorityBehind:
		return 0
	case PriorityStartNow:
		return 1
	case PriorityStartSoon:
		return 2
	default:
		return 3
	}
}

// AssignmentInput is one assignment as supplied by the classroom data source.
type AssignmentInput struct {
	ID          string     `json:"id" yaml:"id" validate:"required"`
	Title       string     `json:"title" yaml:"title" validate:"required"`
	Description string     `json:"description,omitempty" yaml:"description"`
	DueDate     *time.Time `json:"due_date,omitempty" yaml:"due_date" format:"date-time"`
	MaxPoints   *float64   `json:"max_points,omitempty" yaml:"max_points" validate:"omitempty,finite,gte=0"`
	CourseID    string     `json:"course_id,omitempty" yaml:"course_id"`
}

type Recommendation struct {
	AssignmentID         string        `json:"assignment_id"`
	RecommendedStartDate time.Time     `json:"recommended_start_date" format:"date-time"`
	ComplexityScore      int           `json:"complexity_score" minimum:"1" maximum:"10"`
	EstimatedHours       float64       `json:"estimated_hours"`
	PriorityRank         int           `json:"priority_rank" minimum:"1"`
	Reasoning            string        `json:"reasoning"`
	Priority             PriorityClass `json:"priority" enum:"behind,start-now,start-soon,on-track"`
}

// StoredRecommendation is a persisted recommendation joined with its assignment.
type StoredRecommendation struct {
	Recommendation
	ID           string     `json:"id"`
	StudentID    string     `json:"student_id"`
	Title        string     `json:"title"`
	CourseName   string     `json:"course_name,omitempty"`
	TeacherName  string     `json:"teacher_name,omitempty"`
	DueDate      *time.Time `json:"due_date,omitempty" format:"date-time"`
	CalculatedAt string     `json:"calculated_at" format:"date-time"`
}

type WorkloadHealth string

const (
	HealthHealthy  WorkloadHealth = "healthy"
	HealthModerate WorkloadHealth = "moderate"
	HealthStressed WorkloadHealth = "stressed"
)

type WorkloadMetrics struct {
	OverdueCount           int     `json:"overdue_count" validate:"gte=0"`
	AssignmentsDueThisWeek int     `json:"assignments_due_this_week" validate:"gte=0"`
	CompletionRate         float64 `json:"completion_rate" validate:"finite,gte=0,lte=100"`
}

type WorkloadHealthResult struct {
	Health WorkloadHealth `json:"health" enum:"healthy,moderate,stressed"`
	Reason string         `json:"reason"`
}

type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// SubjectGrade carries a per-subject average. A nil AvgGrade or empty Trend means unknown.
type SubjectGrade struct {
	SubjectName string   `json:"subject_name" yaml:"subject_name" validate:"required"`
	AvgGrade    *float64 `json:"avg_grade,omitempty" yaml:"avg_grade" validate:"omitempty,finite,gte=0,lte=100"`
	Trend       Trend    `json:"trend,omitempty" yaml:"trend" validate:"omitempty,oneof=improving stable declining"`
}

type OverdueAssignment struct {
	Title       string `json:"title"`
	CourseName  string `json:"course_name"`
	DaysOverdue int    `json:"days_overdue" validate:"gte=0"`
}

type InterventionInput struct {
	OverdueAssignments     []OverdueAssignment `json:"overdue_assignments" validate:"dive"`
	SubjectGrades          []SubjectGrade      `json:"subject_grades" validate:"dive"`
	CompletionRate         float64             `json:"completion_rate" validate:"finite,gte=0,lte=100"`
	PreviousCompletionRate *float64            `json:"previous_completion_rate,omitempty" validate:"omitempty,finite,gte=0,lte=100"`
}

type InterventionType string

const (
	InterventionOverdue InterventionType = "overdue"
	InterventionFailing InterventionType = "failing"
	InterventionDropped InterventionType = "dropped"
)

type InterventionItem struct {
	Type     InterventionType `json:"type" enum:"overdue,failing,dropped"`
	Severity string           `json:"severity" enum:"critical"`
	Message  string           `json:"message"`
	Details  []string         `json:"details,omitempty"`
}

type AttentionType string

const (
	AttentionOverdue   AttentionType = "overdue"
	AttentionDeclining AttentionType = "declining"
	AttentionWorkload  AttentionType = "workload"
)

type AttentionItem struct {
	Type    AttentionType `json:"type" enum:"overdue,declining,workload"`
	Message string        `json:"message"`
}

type InterventionResult struct {
	Interventions  []InterventionItem `json:"interventions"`
	AttentionItems []AttentionItem    `json:"attention_items"`
}

type Student struct {
	ID        string `json:"id" yaml:"id"`
	FullName  string `json:"full_name" yaml:"full_name"`
	CreatedAt string `json:"created_at" yaml:"-" format:"date-time"`
}

type Course struct {
	ID          string `json:"id" yaml:"id" validate:"required"`
	StudentID   string `json:"student_id" yaml:"-"`
	Name        string `json:"name" yaml:"name"`
	TeacherName string `json:"teacher_name,omitempty" yaml:"teacher_name"`
}

// Submission states mirrored from the classroom service.
const (
	SubmissionNew       = "NEW"
	SubmissionCreated   = "CREATED"
	SubmissionTurnedIn  = "TURNED_IN"
	SubmissionReturned  = "RETURNED"
	SubmissionReclaimed = "RECLAIMED_BY_STUDENT"
)

type Submission struct {
	AssignmentID  string   `json:"assignment_id" yaml:"assignment_id" validate:"required"`
	State         string   `json:"state" yaml:"state" validate:"required"`
	AssignedGrade *float64 `json:"assigned_grade,omitempty" yaml:"assigned_grade"`
}

// Done reports whether the submission counts as completed work.
func (s Submission) Done() bool {
	return s.State == SubmissionTurnedIn || s.State == SubmissionReturned
}

// SyncBatch is one pull from the classroom service for a single student.
type SyncBatch struct {
	Student     Student           `json:"student" yaml:"student"`
	Courses     []Course          `json:"courses" yaml:"courses" validate:"dive"`
	Assignments []AssignmentInput `json:"assignments" yaml:"assignments"`
	Submissions []Submission      `json:"submissions,omitempty" yaml:"submissions" validate:"dive"`
}

type ProgressSnapshot struct {
	ID                   string  `json:"id"`
	StudentID            string  `json:"student_id"`
	SnapshotDate         string  `json:"snapshot_date" format:"date-time"`
	TotalAssignments     int     `json:"total_assignments"`
	CompletedAssignments int     `json:"completed_assignments"`
	CompletionRate       float64 `json:"completion_rate"`
	OverdueCount         int     `json:"overdue_count"`
	UpcomingCount        int     `json:"upcoming_count"`
}

type SummaryStats struct {
	AssignmentsDue int     `json:"assignments_due"`
	OverdueCount   int     `json:"overdue_count"`
	CompletionRate float64 `json:"completion_rate"`
}

// StudentSummary is the parent-facing view of one student.
type StudentSummary struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	WorkloadHealth    WorkloadHealth     `json:"workload_health" enum:"healthy,moderate,stressed"`
	HealthReason      string             `json:"health_reason"`
	Stats             SummaryStats       `json:"stats"`
	ImprovingSubjects []string           `json:"improving_subjects"`
	DecliningSubjects []string           `json:"declining_subjects"`
	Interventions     []InterventionItem `json:"interventions"`
	AttentionItems    []AttentionItem    `json:"attention_items"`
}

const (
	LinkPending  = "pending"
	LinkAccepted = "accepted"
	LinkRejected = "rejected"
)

type ParentLink struct {
	ID        string `json:"id"`
	ParentID  string `json:"parent_id"`
	StudentID string `json:"student_id"`
	Status    string `json:"status" enum:"pending,accepted,rejected"`
	CreatedAt string `json:"created_at" format:"date-time"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	StudentID  string `json:"student_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Payload    string `json:"payload_json"`
}
