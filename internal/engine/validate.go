package engine

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"smartstart/internal/domain"
)

// ErrInvalidInput is wrapped by every input rejection.
var ErrInvalidInput = errors.New("invalid input")

// ValidationError names the offending field of a rejected input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		switch fl.Field().Kind() {
		case reflect.Float32, reflect.Float64:
			f := fl.Field().Float()
			return !math.IsNaN(f) && !math.IsInf(f, 0)
		}
		return true
	})
	return v
}

// ValidateAssignments checks a batch before scoring: ids present and unique, titles present,
// point values finite and non-negative, due dates set when given.
func ValidateAssignments(assignments []domain.AssignmentInput) error {
	seen := make(map[string]int, len(assignments))
	for i, a := range assignments {
		prefix := fmt.Sprintf("assignments[%d]", i)
		if err := validate.Struct(a); err != nil {
			return fieldError(prefix, err)
		}
		if a.DueDate != nil && a.DueDate.IsZero() {
			return &ValidationError{Field: prefix + ".due_date", Reason: "must be a real date"}
		}
		if j, dup := seen[a.ID]; dup {
			return &ValidationError{Field: prefix + ".id", Reason: fmt.Sprintf("duplicate id %q (also at index %d)", a.ID, j)}
		}
		seen[a.ID] = i
	}
	return nil
}

// ValidateMetrics checks workload metrics are within their documented ranges.
func ValidateMetrics(m domain.WorkloadMetrics) error {
	if err := validate.Struct(m); err != nil {
		return fieldError("metrics", err)
	}
	return nil
}

// ValidateInterventionInput checks overdue and grade inputs before classification.
func ValidateInterventionInput(in domain.InterventionInput) error {
	if err := validate.Struct(in); err != nil {
		return fieldError("input", err)
	}
	return nil
}

// ValidateSyncBatch checks a classroom pull: the student is identified, every course and
// submission carries its ids, and assignments reference a course of the batch or one already stored.
func ValidateSyncBatch(b domain.SyncBatch, known map[string]bool) error {
	if strings.TrimSpace(b.Student.ID) == "" {
		return &ValidationError{Field: "student.id", Reason: "is required"}
	}
	if err := validate.Struct(b); err != nil {
		return fieldError("", err)
	}
	if err := ValidateAssignments(b.Assignments); err != nil {
		return err
	}
	courses := make(map[string]bool, len(b.Courses))
	for _, c := range b.Courses {
		courses[c.ID] = true
	}
	assignments := make(map[string]bool, len(b.Assignments))
	for i, a := range b.Assignments {
		if !courses[a.CourseID] && !known[a.CourseID] {
			return &ValidationError{Field: fmt.Sprintf("assignments[%d].course_id", i), Reason: fmt.Sprintf("unknown course %q", a.CourseID)}
		}
		assignments[a.ID] = true
	}
	for i, s := range b.Submissions {
		if !assignments[s.AssignmentID] {
			return &ValidationError{Field: fmt.Sprintf("submissions[%d].assignment_id", i), Reason: fmt.Sprintf("unknown assignment %q", s.AssignmentID)}
		}
	}
	return nil
}

func validateBatch(now time.Time, assignments []domain.AssignmentInput, avgHoursPerDay float64) error {
	if now.IsZero() {
		return &ValidationError{Field: "now", Reason: "must be set"}
	}
	if math.IsNaN(avgHoursPerDay) || math.IsInf(avgHoursPerDay, 0) || avgHoursPerDay <= 0 {
		return &ValidationError{Field: "avg_hours_per_day", Reason: "must be a positive number"}
	}
	return ValidateAssignments(assignments)
}

func fieldError(prefix string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	fe := verrs[0]
	field := prefix
	if ns := fe.Namespace(); ns != "" {
		// drop the root type name, keep json field path
		if i := strings.Index(ns, "."); i >= 0 {
			field = strings.TrimPrefix(prefix+ns[i:], ".")
		}
	}
	return &ValidationError{Field: field, Reason: describeTag(fe)}
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "finite":
		return "must be a finite number"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
