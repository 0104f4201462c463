package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"smartstart/internal/config"
	"smartstart/internal/db"
	"smartstart/internal/domain"
	"smartstart/internal/engine"
	"smartstart/internal/events"
	"smartstart/internal/migrate"
	"smartstart/internal/repo"
)

type testEnv struct {
	Engine *engine.Engine
	Ctx    context.Context
	clock  *time.Time
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	ctx := context.Background()
	if err := migrate.Migrate(ctx, conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default()
	eng := engine.New(conn, cfg, zerolog.Nop())
	clock := fixedNow
	eng.Now = func() time.Time { return clock }
	return testEnv{Engine: &eng, Ctx: ctx, clock: &clock}
}

func (env testEnv) advance(d time.Duration) {
	*env.clock = env.clock.Add(d)
}

func sampleBatch() domain.SyncBatch {
	return domain.SyncBatch{
		Student: domain.Student{ID: "s1", FullName: "Ada"},
		Courses: []domain.Course{{ID: "c1", Name: "Math", TeacherName: "Mr T"}},
		Assignments: []domain.AssignmentInput{
			{ID: "a1", Title: "Lab report", DueDate: dueIn(5 * 24 * time.Hour), MaxPoints: ptr(100.0), CourseID: "c1"},
			{ID: "a2", Title: "Worksheet", DueDate: dueIn(-3 * 24 * time.Hour), CourseID: "c1"},
			{ID: "a3", Title: "Quiz", DueDate: dueIn(2 * 24 * time.Hour), CourseID: "c1"},
			{ID: "a4", Title: "Journal", CourseID: "c1"},
		},
		Submissions: []domain.Submission{
			{AssignmentID: "a3", State: domain.SubmissionTurnedIn},
			{AssignmentID: "a2", State: domain.SubmissionCreated},
		},
	}
}

func syncSample(t *testing.T, env testEnv) engine.SyncResult {
	t.Helper()
	res, err := env.Engine.SyncAssignments(env.Ctx, sampleBatch())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	return res
}

func TestSyncComputesPlanForOpenWork(t *testing.T) {
	env := newTestEnv(t)
	res := syncSample(t, env)
	if res.Assignments != 4 || res.Submissions != 2 || res.Courses != 1 {
		t.Fatalf("unexpected counts %+v", res)
	}
	got := map[string]bool{}
	for _, r := range res.Recommendations {
		got[r.AssignmentID] = true
	}
	if len(res.Recommendations) != 2 || !got["a1"] || !got["a4"] {
		t.Fatalf("expected plan for a1 and a4, got %+v", res.Recommendations)
	}

	recs, err := env.Engine.Recommendations(env.Ctx, "s1")
	if err != nil {
		t.Fatalf("recommendations: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 stored recommendations, got %d", len(recs))
	}
	for i, r := range recs {
		if r.PriorityRank != i+1 {
			t.Fatalf("rank order broken at %d: %+v", i, r)
		}
		if r.CourseName != "Math" || r.TeacherName != "Mr T" || r.StudentID != "s1" {
			t.Fatalf("join fields missing: %+v", r)
		}
	}
}

func TestStudentsSharingCourseKeepSeparateData(t *testing.T) {
	env := newTestEnv(t)
	syncSample(t, env)

	other := sampleBatch()
	other.Student = domain.Student{ID: "s2", FullName: "Grace"}
	other.Courses[0].Name = "Algebra"
	other.Submissions = []domain.Submission{{AssignmentID: "a1", State: domain.SubmissionTurnedIn}}
	res, err := env.Engine.SyncAssignments(env.Ctx, other)
	if err != nil {
		t.Fatalf("sync s2: %v", err)
	}
	got := map[string]bool{}
	for _, r := range res.Recommendations {
		got[r.AssignmentID] = true
	}
	if len(res.Recommendations) != 2 || !got["a3"] || !got["a4"] {
		t.Fatalf("expected plan for a3 and a4 for s2, got %+v", res.Recommendations)
	}

	stored, err := env.Engine.Recommendations(env.Ctx, "s2")
	if err != nil {
		t.Fatalf("recommendations s2: %v", err)
	}
	if len(stored) != 2 || stored[0].CourseName != "Algebra" {
		t.Fatalf("unexpected s2 recommendations %+v", stored)
	}
	first, err := env.Engine.Recommendations(env.Ctx, "s1")
	if err != nil {
		t.Fatalf("recommendations s1: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("s1 plan changed by s2 sync: %+v", first)
	}
	for _, r := range first {
		if r.CourseName != "Math" || r.AssignmentID == "a3" {
			t.Fatalf("s1 recommendation affected by s2 sync: %+v", r)
		}
	}

	snap, err := env.Engine.TakeSnapshot(env.Ctx, "s2")
	if err != nil {
		t.Fatalf("snapshot s2: %v", err)
	}
	if snap.TotalAssignments != 4 || snap.CompletedAssignments != 1 || snap.OverdueCount != 1 {
		t.Fatalf("unexpected s2 snapshot %+v", snap)
	}
	sum, err := env.Engine.StudentSummary(env.Ctx, "s2")
	if err != nil {
		t.Fatalf("summary s2: %v", err)
	}
	found := false
	for _, in := range sum.Interventions {
		for _, d := range in.Details {
			if d == "Worksheet (Algebra) - 3 days overdue" {
				found = true
			}
		}
	}
	if !found {
		t.Fatalf("s2 overdue worksheet missing: %+v", sum.Interventions)
	}
}

func TestRecommendationsReclassifiedOnRead(t *testing.T) {
	env := newTestEnv(t)
	syncSample(t, env)
	env.advance(3 * 24 * time.Hour)
	recs, err := env.Engine.Recommendations(env.Ctx, "s1")
	if err != nil {
		t.Fatalf("recommendations: %v", err)
	}
	var journal *domain.StoredRecommendation
	for i := range recs {
		if recs[i].AssignmentID == "a4" {
			journal = &recs[i]
		}
	}
	if journal == nil {
		t.Fatalf("journal recommendation missing: %+v", recs)
	}
	if !journal.RecommendedStartDate.Equal(fixedNow) {
		t.Fatalf("stored start date changed: %v", journal.RecommendedStartDate)
	}
	if journal.Priority != domain.PriorityBehind {
		t.Fatalf("expected behind after three idle days, got %s", journal.Priority)
	}
}

func TestRecommendationsDropPastDueOnRead(t *testing.T) {
	env := newTestEnv(t)
	syncSample(t, env)
	env.advance(6 * 24 * time.Hour)
	recs, err := env.Engine.Recommendations(env.Ctx, "s1")
	if err != nil {
		t.Fatalf("recommendations: %v", err)
	}
	if len(recs) != 1 || recs[0].AssignmentID != "a4" {
		t.Fatalf("expected only the undated assignment, got %+v", recs)
	}
}

func TestSyncRejectsUnknownCourse(t *testing.T) {
	env := newTestEnv(t)
	batch := sampleBatch()
	batch.Assignments[0].CourseID = "nope"
	_, err := env.Engine.SyncAssignments(env.Ctx, batch)
	var verr *engine.ValidationError
	if !errors.As(err, &verr) || verr.Field != "assignments[0].course_id" {
		t.Fatalf("expected course_id validation error, got %v", err)
	}
	if !errors.Is(err, engine.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput")
	}
}

func TestSyncAcceptsStoredCourse(t *testing.T) {
	env := newTestEnv(t)
	syncSample(t, env)
	_, err := env.Engine.SyncAssignments(env.Ctx, domain.SyncBatch{
		Student:     domain.Student{ID: "s1"},
		Assignments: []domain.AssignmentInput{{ID: "a5", Title: "Poster", DueDate: dueIn(10 * 24 * time.Hour), CourseID: "c1"}},
	})
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	st, err := env.Engine.Repo.GetStudent(env.Ctx, "s1")
	if err != nil || st.FullName != "Ada" {
		t.Fatalf("name lost on partial sync: %+v %v", st, err)
	}
}

func TestUnknownStudentIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Engine.Recommendations(env.Ctx, "ghost"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := env.Engine.StudentSummary(env.Ctx, "ghost"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSnapshotAndSummary(t *testing.T) {
	env := newTestEnv(t)
	syncSample(t, env)

	sum, err := env.Engine.StudentSummary(env.Ctx, "s1")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Stats.OverdueCount != 1 || sum.Stats.CompletionRate != 100 || sum.WorkloadHealth != domain.HealthHealthy {
		t.Fatalf("expected fallback stats without snapshots, got %+v", sum)
	}

	snap, err := env.Engine.TakeSnapshot(env.Ctx, "s1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.TotalAssignments != 4 || snap.CompletedAssignments != 1 || snap.CompletionRate != 25 {
		t.Fatalf("unexpected totals %+v", snap)
	}
	if snap.OverdueCount != 1 || snap.UpcomingCount != 1 {
		t.Fatalf("unexpected deadline counts %+v", snap)
	}

	if _, err := env.Engine.SetSubjectGrade(env.Ctx, "s1", domain.SubjectGrade{SubjectName: "Math", AvgGrade: ptr(45.0), Trend: domain.TrendDeclining}); err != nil {
		t.Fatalf("grade: %v", err)
	}
	if _, err := env.Engine.SetSubjectGrade(env.Ctx, "s1", domain.SubjectGrade{SubjectName: "Art", Trend: domain.TrendImproving}); err != nil {
		t.Fatalf("grade: %v", err)
	}

	sum, err = env.Engine.StudentSummary(env.Ctx, "s1")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Name != "Ada" || sum.WorkloadHealth != domain.HealthStressed {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if sum.HealthReason != "Completion rate at 25% needs improvement" {
		t.Fatalf("reason %q", sum.HealthReason)
	}
	if len(sum.ImprovingSubjects) != 1 || sum.ImprovingSubjects[0] != "Art" {
		t.Fatalf("improving %v", sum.ImprovingSubjects)
	}
	if len(sum.DecliningSubjects) != 1 || sum.DecliningSubjects[0] != "Math" {
		t.Fatalf("declining %v", sum.DecliningSubjects)
	}
	if len(sum.Interventions) != 2 {
		t.Fatalf("expected overdue and failing interventions, got %+v", sum.Interventions)
	}
	if sum.Interventions[0].Details[0] != "Worksheet (Math) - 3 days overdue" {
		t.Fatalf("overdue detail %q", sum.Interventions[0].Details[0])
	}
	if sum.Interventions[1].Type != domain.InterventionFailing {
		t.Fatalf("expected failing intervention, got %+v", sum.Interventions[1])
	}
	// Art has no average grade and must not be reported as failing
	if d := sum.Interventions[1].Details; len(d) != 1 || d[0] != "Math: 45%" {
		t.Fatalf("failing details %v", d)
	}
}

func TestSummaryFlagsCompletionDrop(t *testing.T) {
	env := newTestEnv(t)
	batch := sampleBatch()
	batch.Submissions = []domain.Submission{
		{AssignmentID: "a1", State: domain.SubmissionTurnedIn},
		{AssignmentID: "a2", State: domain.SubmissionReturned},
		{AssignmentID: "a3", State: domain.SubmissionTurnedIn},
		{AssignmentID: "a4", State: domain.SubmissionTurnedIn},
	}
	if _, err := env.Engine.SyncAssignments(env.Ctx, batch); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if _, err := env.Engine.TakeSnapshot(env.Ctx, "s1"); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	env.advance(time.Hour)
	batch.Submissions = []domain.Submission{
		{AssignmentID: "a1", State: domain.SubmissionReclaimed},
		{AssignmentID: "a4", State: domain.SubmissionNew},
	}
	if _, err := env.Engine.SyncAssignments(env.Ctx, batch); err != nil {
		t.Fatalf("resync: %v", err)
	}
	if _, err := env.Engine.TakeSnapshot(env.Ctx, "s1"); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	sum, err := env.Engine.StudentSummary(env.Ctx, "s1")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	var dropped bool
	for _, in := range sum.Interventions {
		if in.Type == domain.InterventionDropped {
			dropped = in.Message == "Completion rate dropped from 100% to 50%"
		}
	}
	if !dropped {
		t.Fatalf("expected completion drop intervention, got %+v", sum.Interventions)
	}
}

func TestParentLinkLifecycle(t *testing.T) {
	env := newTestEnv(t)
	syncSample(t, env)

	link, err := env.Engine.RequestLink(env.Ctx, "p1", "s1")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if link.Status != domain.LinkPending {
		t.Fatalf("status %s", link.Status)
	}
	if _, err := env.Engine.RequestLink(env.Ctx, "p1", "s1"); !errors.Is(err, engine.ErrLinkConflict) {
		t.Fatalf("expected conflict on duplicate request, got %v", err)
	}
	kids, err := env.Engine.ChildrenSummaries(env.Ctx, "p1")
	if err != nil || len(kids) != 0 {
		t.Fatalf("pending link must not expose summaries: %v %v", kids, err)
	}
	if _, err := env.Engine.ChildSummary(env.Ctx, "p1", "s1"); !errors.Is(err, engine.ErrLinkNotAccepted) {
		t.Fatalf("expected not accepted, got %v", err)
	}

	if _, err := env.Engine.RespondLink(env.Ctx, "s2", link.ID, domain.LinkAccepted); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("other student must not see link: %v", err)
	}
	if _, err := env.Engine.RespondLink(env.Ctx, "s1", link.ID, "maybe"); !errors.Is(err, engine.ErrInvalidInput) {
		t.Fatalf("expected invalid status, got %v", err)
	}
	link, err = env.Engine.RespondLink(env.Ctx, "s1", link.ID, domain.LinkAccepted)
	if err != nil || link.Status != domain.LinkAccepted {
		t.Fatalf("accept: %+v %v", link, err)
	}
	if _, err := env.Engine.RespondLink(env.Ctx, "s1", link.ID, domain.LinkRejected); !errors.Is(err, engine.ErrLinkConflict) {
		t.Fatalf("expected conflict responding twice, got %v", err)
	}

	kids, err = env.Engine.ChildrenSummaries(env.Ctx, "p1")
	if err != nil || len(kids) != 1 || kids[0].ID != "s1" {
		t.Fatalf("expected one child summary: %+v %v", kids, err)
	}
}

func TestRejectedLinkCanBeRequestedAgain(t *testing.T) {
	env := newTestEnv(t)
	syncSample(t, env)
	link, err := env.Engine.RequestLink(env.Ctx, "p2", "s1")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if _, err := env.Engine.RespondLink(env.Ctx, "s1", link.ID, domain.LinkRejected); err != nil {
		t.Fatalf("reject: %v", err)
	}
	again, err := env.Engine.RequestLink(env.Ctx, "p2", "s1")
	if err != nil {
		t.Fatalf("re-request: %v", err)
	}
	if again.ID != link.ID || again.Status != domain.LinkPending {
		t.Fatalf("expected reopened link, got %+v", again)
	}
	if _, err := env.Engine.RequestLink(env.Ctx, "p2", "ghost"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found for unknown student, got %v", err)
	}
}

func TestEventsAppendedForStateChanges(t *testing.T) {
	env := newTestEnv(t)
	syncSample(t, env)
	if _, err := env.Engine.TakeSnapshot(env.Ctx, "s1"); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	evts, err := env.Engine.RecentEvents(env.Ctx, repo.EventFilter{StudentID: "s1"})
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	want := []string{events.SnapshotTaken, events.RecommendationsUpdated, events.SyncCompleted}
	if len(evts) != len(want) {
		t.Fatalf("expected %d events, got %+v", len(want), evts)
	}
	for i, w := range want {
		if evts[i].Type != w {
			t.Fatalf("event %d: want %s got %s", i, w, evts[i].Type)
		}
	}
	only, err := env.Engine.RecentEvents(env.Ctx, repo.EventFilter{Type: events.SyncCompleted, Limit: 5})
	if err != nil || len(only) != 1 {
		t.Fatalf("type filter: %v %v", only, err)
	}
}
