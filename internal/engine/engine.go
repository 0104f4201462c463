package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"smartstart/internal/config"
	"smartstart/internal/domain"
	"smartstart/internal/events"
	"smartstart/internal/repo"
)

var (
	// ErrLinkConflict is returned when a link request or response does not fit the link's state.
	ErrLinkConflict = errors.New("link conflict")
	// ErrLinkNotAccepted guards parent views of students they are not linked to.
	ErrLinkNotAccepted = errors.New("link not accepted")
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Log    zerolog.Logger
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config, log zerolog.Logger) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{Now: time.Now},
		Config: cfg,
		Log:    log,
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

// CurrentTime is the engine clock in UTC.
func (e Engine) CurrentTime() time.Time {
	return e.now()
}

// AvgHoursPerDay is the configured daily study capacity.
func (e Engine) AvgHoursPerDay() float64 {
	if e.Config == nil || e.Config.Scheduling.AvgHoursPerDay <= 0 {
		return DefaultAvgHoursPerDay
	}
	return e.Config.Scheduling.AvgHoursPerDay
}

func (e Engine) recommendationLimit() int {
	if e.Config == nil || e.Config.Recommendations.Limit < 1 {
		return config.Default().Recommendations.Limit
	}
	return e.Config.Recommendations.Limit
}

func (e Engine) eventWriter() events.Writer {
	w := e.Events
	w.Now = e.now
	return w
}

// SyncResult reports what a sync stored and the plan computed from it.
type SyncResult struct {
	StudentID       string                  `json:"student_id"`
	Courses         int                     `json:"courses"`
	Assignments     int                     `json:"assignments"`
	Submissions     int                     `json:"submissions"`
	Recommendations []domain.Recommendation `json:"recommendations"`
}

// SyncAssignments stores one classroom pull and recomputes the student's plan.
func (e Engine) SyncAssignments(ctx context.Context, batch domain.SyncBatch) (SyncResult, error) {
	known, err := e.storedCourses(ctx, batch)
	if err != nil {
		return SyncResult{}, err
	}
	if err := ValidateSyncBatch(batch, known); err != nil {
		return SyncResult{}, err
	}
	studentID := batch.Student.ID
	stamp := repo.FormatTime(e.now())

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return SyncResult{}, err
	}
	defer tx.Rollback()

	student := batch.Student
	student.CreatedAt = stamp
	if err := e.Repo.UpsertStudentTx(ctx, tx, student); err != nil {
		return SyncResult{}, fmt.Errorf("upsert student: %w", err)
	}
	for _, c := range batch.Courses {
		c.StudentID = studentID
		if err := e.Repo.UpsertCourseTx(ctx, tx, c); err != nil {
			return SyncResult{}, fmt.Errorf("upsert course %s: %w", c.ID, err)
		}
	}
	for _, a := range batch.Assignments {
		if err := e.Repo.UpsertAssignmentTx(ctx, tx, studentID, a, stamp); err != nil {
			return SyncResult{}, fmt.Errorf("upsert assignment %s: %w", a.ID, err)
		}
	}
	for _, s := range batch.Submissions {
		if err := e.Repo.UpsertSubmissionTx(ctx, tx, studentID, s, stamp); err != nil {
			return SyncResult{}, fmt.Errorf("upsert submission %s: %w", s.AssignmentID, err)
		}
	}
	if err := e.eventWriter().Append(ctx, tx, events.SyncCompleted, studentID, "student", studentID, events.Payload{
		"courses":     len(batch.Courses),
		"assignments": len(batch.Assignments),
		"submissions": len(batch.Submissions),
	}); err != nil {
		return SyncResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return SyncResult{}, err
	}

	recs, err := e.RecomputeRecommendations(ctx, studentID)
	if err != nil {
		return SyncResult{}, err
	}
	e.Log.Info().
		Str("student_id", studentID).
		Int("courses", len(batch.Courses)).
		Int("assignments", len(batch.Assignments)).
		Msg("sync completed")
	return SyncResult{
		StudentID:       studentID,
		Courses:         len(batch.Courses),
		Assignments:     len(batch.Assignments),
		Submissions:     len(batch.Submissions),
		Recommendations: recs,
	}, nil
}

func (e Engine) storedCourses(ctx context.Context, batch domain.SyncBatch) (map[string]bool, error) {
	inBatch := make(map[string]bool, len(batch.Courses))
	for _, c := range batch.Courses {
		inBatch[c.ID] = true
	}
	known := map[string]bool{}
	for _, a := range batch.Assignments {
		if a.CourseID == "" || inBatch[a.CourseID] || known[a.CourseID] {
			continue
		}
		ok, err := e.Repo.CourseExists(ctx, batch.Student.ID, a.CourseID)
		if err != nil {
			return nil, err
		}
		if ok {
			known[a.CourseID] = true
		}
	}
	return known, nil
}

// RecomputeRecommendations rebuilds the stored plan from every assignment not yet turned in.
func (e Engine) RecomputeRecommendations(ctx context.Context, studentID string) ([]domain.Recommendation, error) {
	if _, err := e.Repo.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}
	now := e.now()
	progress, err := e.Repo.ListAssignmentProgress(ctx, studentID)
	if err != nil {
		return nil, err
	}
	pending := make([]domain.AssignmentInput, 0, len(progress))
	for _, p := range progress {
		if !p.Done {
			pending = append(pending, p.AssignmentInput)
		}
	}
	recs, err := ComputeSmartStart(now, pending, e.AvgHoursPerDay())
	if err != nil {
		return nil, err
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	if err := e.Repo.ReplaceRecommendationsTx(ctx, tx, studentID, recs, repo.FormatTime(now)); err != nil {
		return nil, fmt.Errorf("store recommendations: %w", err)
	}
	if err := e.eventWriter().Append(ctx, tx, events.RecommendationsUpdated, studentID, "student", studentID, events.Payload{
		"count": len(recs),
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	e.Log.Debug().Str("student_id", studentID).Int("recommendations", len(recs)).Msg("recommendations recomputed")
	return recs, nil
}

// Recommendations returns the top stored recommendations with priority re-read against the
// current time, so a stale plan still reports who is falling behind.
func (e Engine) Recommendations(ctx context.Context, studentID string) ([]domain.StoredRecommendation, error) {
	if _, err := e.Repo.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}
	now := e.now()
	recs, err := e.Repo.ListRecommendations(ctx, studentID, now, e.recommendationLimit())
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []domain.StoredRecommendation{}
	}
	for i := range recs {
		recs[i].Priority = ClassifyPriority(now, recs[i].RecommendedStartDate, recs[i].DueDate)
	}
	return recs, nil
}

// RecentEvents lists audit events, newest first.
func (e Engine) RecentEvents(ctx context.Context, f repo.EventFilter) ([]domain.Event, error) {
	return e.Repo.LatestEvents(ctx, f)
}
