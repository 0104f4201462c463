package engine_test

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"smartstart/internal/domain"
	"smartstart/internal/engine"
)

var fixedNow = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func dueIn(d time.Duration) *time.Time {
	t := fixedNow.Add(d)
	return &t
}

func TestComputeComplexityBoundaries(t *testing.T) {
	long := strings.Repeat("word ", 250)
	cases := []struct {
		name string
		in   domain.AssignmentInput
		want int
	}{
		{"base", domain.AssignmentInput{Title: "Chapter 4"}, 5},
		{"points 20", domain.AssignmentInput{Title: "Chapter 4", MaxPoints: ptr(20.0)}, 6},
		{"points 50", domain.AssignmentInput{Title: "Chapter 4", MaxPoints: ptr(50.0)}, 7},
		{"points 100", domain.AssignmentInput{Title: "Chapter 4", MaxPoints: ptr(100.0)}, 8},
		{"points 19", domain.AssignmentInput{Title: "Chapter 4", MaxPoints: ptr(19.0)}, 5},
		{"101 words", domain.AssignmentInput{Title: "Chapter 4", Description: strings.Repeat("word ", 101)}, 6},
		{"100 words", domain.AssignmentInput{Title: "Chapter 4", Description: strings.Repeat("word ", 100)}, 5},
		{"keywords capped", domain.AssignmentInput{Title: "Essay research project presentation"}, 7},
		{"repeated keyword counts once", domain.AssignmentInput{Title: "paper paper paper"}, 6},
		{"case insensitive substring", domain.AssignmentInput{Title: "PAPERS"}, 6},
		{"simple keywords capped", domain.AssignmentInput{Title: "quiz worksheet practice review"}, 3},
		{"clamped high", domain.AssignmentInput{Title: "Research essay", Description: long, MaxPoints: ptr(250.0)}, 10},
		{"keyword in description", domain.AssignmentInput{Title: "Unit 2", Description: "watch the video"}, 4},
	}
	for _, tc := range cases {
		if got := engine.ComputeComplexity(tc.in); got != tc.want {
			t.Fatalf("%s: got %d want %d", tc.name, got, tc.want)
		}
	}
}

func TestComputeComplexityStaysInRange(t *testing.T) {
	titles := []string{"", "quiz", "quiz worksheet review reading watch", "essay thesis paper", "misc"}
	descs := []string{"", strings.Repeat("x ", 150), strings.Repeat("x ", 300)}
	points := []*float64{nil, ptr(0.0), ptr(25.0), ptr(60.0), ptr(500.0)}
	for _, ti := range titles {
		for _, d := range descs {
			for _, p := range points {
				got := engine.ComputeComplexity(domain.AssignmentInput{Title: ti, Description: d, MaxPoints: p})
				if got < 1 || got > 10 {
					t.Fatalf("score %d out of range for %q", got, ti)
				}
			}
		}
	}
}

func TestEstimateEffortHours(t *testing.T) {
	want := map[int]float64{1: 0.83, 3: 1.49, 4: 2.67, 6: 4.01, 7: 6.25, 10: 10}
	for score, hours := range want {
		if got := engine.EstimateEffortHours(score); math.Abs(got-hours) > 1e-9 {
			t.Fatalf("score %d: got %v want %v", score, got, hours)
		}
	}
	prev := engine.EstimateEffortHours(1)
	for s := 2; s <= 10; s++ {
		cur := engine.EstimateEffortHours(s)
		if cur < prev {
			t.Fatalf("effort decreased at %d: %v < %v", s, cur, prev)
		}
		prev = cur
	}
}

func TestComputeStartDateWithoutDueDate(t *testing.T) {
	plan := engine.ComputeStartDate(fixedNow, domain.AssignmentInput{ID: "a", Title: "x"}, 5, 3.34, 2)
	if !plan.StartDate.Equal(fixedNow) || plan.DaysUntilDue != 0 || plan.WorkDaysNeeded != 1 {
		t.Fatalf("unexpected plan %+v", plan)
	}
}

func TestComputeStartDateCapsAdvance(t *testing.T) {
	a := domain.AssignmentInput{ID: "a", Title: "quiz", DueDate: dueIn(60 * 24 * time.Hour)}
	plan := engine.ComputeStartDate(fixedNow, a, 4, engine.EstimateEffortHours(4), 2)
	if plan.DaysUntilDue != 60 {
		t.Fatalf("days until due %d", plan.DaysUntilDue)
	}
	if want := fixedNow.Add(14 * 24 * time.Hour); !plan.StartDate.Equal(want) {
		t.Fatalf("start %v want %v", plan.StartDate, want)
	}
}

func TestComputeStartDateDefaultsUnusableHours(t *testing.T) {
	a := domain.AssignmentInput{ID: "a", Title: "essay", DueDate: dueIn(10 * 24 * time.Hour)}
	hours := engine.EstimateEffortHours(7)
	want := engine.ComputeStartDate(fixedNow, a, 7, hours, engine.DefaultAvgHoursPerDay)
	for _, avg := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		got := engine.ComputeStartDate(fixedNow, a, 7, hours, avg)
		if !got.StartDate.Equal(want.StartDate) || got.WorkDaysNeeded != want.WorkDaysNeeded || got.DaysUntilDue != want.DaysUntilDue {
			t.Fatalf("avg %v: got %+v want %+v", avg, got, want)
		}
	}
	// 6.25h / 2h * 1.35 buffer
	if want.WorkDaysNeeded != 5 {
		t.Fatalf("work days %d", want.WorkDaysNeeded)
	}
}

func TestComputeStartDateNeverBeforeNow(t *testing.T) {
	a := domain.AssignmentInput{ID: "a", Title: "thesis", DueDate: dueIn(2 * time.Hour)}
	plan := engine.ComputeStartDate(fixedNow, a, 10, engine.EstimateEffortHours(10), 2)
	if !plan.StartDate.Equal(fixedNow) {
		t.Fatalf("start %v should be now", plan.StartDate)
	}
	if plan.DaysUntilDue != 1 {
		t.Fatalf("days until due %d", plan.DaysUntilDue)
	}
}

func TestClassifyPriority(t *testing.T) {
	day := 24 * time.Hour
	cases := []struct {
		start time.Time
		due   *time.Time
		want  domain.PriorityClass
	}{
		{fixedNow.Add(3 * day), dueIn(-time.Minute), domain.PriorityBehind},
		{fixedNow.Add(-2 * day), dueIn(day), domain.PriorityBehind},
		{fixedNow, nil, domain.PriorityStartNow},
		{fixedNow.Add(-time.Hour), nil, domain.PriorityStartNow},
		{fixedNow.Add(day), dueIn(5 * day), domain.PriorityStartSoon},
		{fixedNow.Add(2 * day), dueIn(5 * day), domain.PriorityStartSoon},
		{fixedNow.Add(3 * day), dueIn(9 * day), domain.PriorityOnTrack},
	}
	for i, tc := range cases {
		if got := engine.ClassifyPriority(fixedNow, tc.start, tc.due); got != tc.want {
			t.Fatalf("case %d: got %s want %s", i, got, tc.want)
		}
	}
}

func TestGenerateReasoning(t *testing.T) {
	a := domain.AssignmentInput{Title: "x", MaxPoints: ptr(100.0)}
	got := engine.GenerateReasoning(a, 1, 5, 9)
	want := "Due very soon. Complex assignment requiring significant time. High point value. Major assignment"
	if got != want {
		t.Fatalf("got %q", got)
	}
	if got := engine.GenerateReasoning(domain.AssignmentInput{Title: "x"}, 3, 3, 5); got != "Due this week. Moderate complexity" {
		t.Fatalf("got %q", got)
	}
	if got := engine.GenerateReasoning(domain.AssignmentInput{Title: "x"}, 7, 1, 5); got != "Due within a week" {
		t.Fatalf("got %q", got)
	}
	if got := engine.GenerateReasoning(domain.AssignmentInput{Title: "x"}, 20, 1, 4); got != "Regular assignment" {
		t.Fatalf("got %q", got)
	}
}

func TestSmartStartResearchPaperExample(t *testing.T) {
	a := domain.AssignmentInput{
		ID:          "a1",
		Title:       "Research Paper on Climate Change",
		Description: strings.TrimSpace(strings.Repeat("word ", 250)),
		MaxPoints:   ptr(100.0),
		DueDate:     dueIn(10 * 24 * time.Hour),
		CourseID:    "c1",
	}
	recs, err := engine.ComputeSmartStart(fixedNow, []domain.AssignmentInput{a}, 2)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 rec, got %d", len(recs))
	}
	r := recs[0]
	if r.ComplexityScore != 10 {
		t.Fatalf("complexity %d", r.ComplexityScore)
	}
	if r.EstimatedHours != 10 {
		t.Fatalf("hours %v", r.EstimatedHours)
	}
	if want := fixedNow.Add(48 * time.Hour); !r.RecommendedStartDate.Equal(want) {
		t.Fatalf("start %v want %v", r.RecommendedStartDate, want)
	}
	if r.Priority != domain.PriorityStartSoon {
		t.Fatalf("priority %s", r.Priority)
	}
	if r.PriorityRank != 1 || r.AssignmentID != "a1" {
		t.Fatalf("unexpected rec %+v", r)
	}
	if r.Reasoning != "Complex assignment requiring significant time. High point value. Major assignment" {
		t.Fatalf("reasoning %q", r.Reasoning)
	}
}

func TestSmartStartDropsPastDueAndRanksDensely(t *testing.T) {
	day := 24 * time.Hour
	in := []domain.AssignmentInput{
		{ID: "past", Title: "Essay", DueDate: dueIn(-time.Hour)},
		{ID: "far", Title: "Quiz", DueDate: dueIn(30 * day)},
		{ID: "none", Title: "Reading log"},
		{ID: "soon", Title: "Lab report", DueDate: dueIn(day)},
		{ID: "mid", Title: "Worksheet", MaxPoints: ptr(10.0), DueDate: dueIn(4 * day)},
		{ID: "due-now", Title: "Practice", DueDate: dueIn(0)},
	}
	recs, err := engine.ComputeSmartStart(fixedNow, in, 0)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(recs) != 5 {
		t.Fatalf("expected 5 recs, got %d", len(recs))
	}
	for i, r := range recs {
		if r.AssignmentID == "past" {
			t.Fatalf("past-due assignment returned")
		}
		if r.PriorityRank != i+1 {
			t.Fatalf("rank %d at position %d", r.PriorityRank, i)
		}
		if i > 0 && recs[i-1].Priority.Rank() > r.Priority.Rank() {
			t.Fatalf("classes out of order: %s before %s", recs[i-1].Priority, r.Priority)
		}
	}
	if last := recs[len(recs)-1]; last.AssignmentID != "far" || last.Priority != domain.PriorityOnTrack {
		t.Fatalf("expected far on-track last, got %+v", last)
	}
}

func TestSmartStartTieBreakOnComplexity(t *testing.T) {
	in := []domain.AssignmentInput{
		{ID: "easy", Title: "Quiz"},
		{ID: "hard", Title: "Essay", MaxPoints: ptr(100.0)},
		{ID: "mid", Title: "Chapter notes"},
	}
	recs, err := engine.ComputeSmartStart(fixedNow, in, 2)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	got := []string{recs[0].AssignmentID, recs[1].AssignmentID, recs[2].AssignmentID}
	want := []string{"hard", "mid", "easy"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order %v want %v", got, want)
		}
	}
	for _, r := range recs {
		if r.Priority != domain.PriorityStartNow {
			t.Fatalf("undated assignment should start now, got %s", r.Priority)
		}
	}
}

func TestSmartStartEmptyBatch(t *testing.T) {
	recs, err := engine.ComputeSmartStart(fixedNow, nil, 2)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("expected no recs")
	}
}

func TestSmartStartRejectsInvalidInput(t *testing.T) {
	cases := map[string][]domain.AssignmentInput{
		"duplicate id":    {{ID: "a", Title: "x"}, {ID: "a", Title: "y"}},
		"missing id":      {{Title: "x"}},
		"missing title":   {{ID: "a"}},
		"negative points": {{ID: "a", Title: "x", MaxPoints: ptr(-1.0)}},
		"nan points":      {{ID: "a", Title: "x", MaxPoints: ptr(math.NaN())}},
		"zero due date":   {{ID: "a", Title: "x", DueDate: &time.Time{}}},
	}
	for name, in := range cases {
		_, err := engine.ComputeSmartStart(fixedNow, in, 2)
		if !errors.Is(err, engine.ErrInvalidInput) {
			t.Fatalf("%s: expected invalid input, got %v", name, err)
		}
	}
	if _, err := engine.ComputeSmartStart(fixedNow, nil, -1); !errors.Is(err, engine.ErrInvalidInput) {
		t.Fatalf("negative hours per day accepted")
	}
	if _, err := engine.ComputeSmartStart(time.Time{}, nil, 2); !errors.Is(err, engine.ErrInvalidInput) {
		t.Fatalf("zero now accepted")
	}
	_, err := engine.ComputeSmartStart(fixedNow, []domain.AssignmentInput{{ID: "a", Title: "x", MaxPoints: ptr(-5.0)}}, 2)
	var verr *engine.ValidationError
	if !errors.As(err, &verr) || verr.Field != "assignments[0].max_points" {
		t.Fatalf("unexpected error %v", err)
	}
}
