package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"smartstart/internal/domain"
	"smartstart/internal/engine"
	"smartstart/internal/repo"
)

type studentPath struct {
	StudentID string `path:"student_id"`
}

func registerStudents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "sync-student",
		Method:      http.MethodPost,
		Path:        "/students/{student_id}/sync",
		Summary:     "Store a classroom pull and recompute the plan",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		StudentID string      `path:"student_id"`
		Body      SyncRequest `json:"body"`
	}) (*struct {
		Body engine.SyncResult `json:"body"`
	}, error) {
		res, err := e.SyncAssignments(ctx, input.Body.batch(input.StudentID))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.SyncResult `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "recompute-recommendations",
		Method:      http.MethodPost,
		Path:        "/students/{student_id}/recommendations/recompute",
		Summary:     "Recompute stored recommendations",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *studentPath) (*struct {
		Body []domain.Recommendation `json:"body"`
	}, error) {
		recs, err := e.RecomputeRecommendations(ctx, input.StudentID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Recommendation `json:"body"`
		}{Body: recs}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-recommendations",
		Method:      http.MethodGet,
		Path:        "/students/{student_id}/recommendations",
		Summary:     "Top stored recommendations",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *studentPath) (*struct {
		Body RecommendationsResponse `json:"body"`
	}, error) {
		recs, err := e.Recommendations(ctx, input.StudentID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RecommendationsResponse `json:"body"`
		}{Body: RecommendationsResponse{StudentID: input.StudentID, Items: recs}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "take-snapshot",
		Method:        http.MethodPost,
		Path:          "/students/{student_id}/snapshots",
		Summary:       "Record a progress snapshot",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusNotFound},
	}, func(ctx context.Context, input *studentPath) (*struct {
		Body domain.ProgressSnapshot `json:"body"`
	}, error) {
		snap, err := e.TakeSnapshot(ctx, input.StudentID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ProgressSnapshot `json:"body"`
		}{Body: snap}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-subject-grade",
		Method:      http.MethodPut,
		Path:        "/students/{student_id}/subjects/{subject}",
		Summary:     "Set a subject average and trend",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		StudentID string              `path:"student_id"`
		Subject   string              `path:"subject"`
		Body      SubjectGradeRequest `json:"body"`
	}) (*struct {
		Body domain.SubjectGrade `json:"body"`
	}, error) {
		g, err := e.SetSubjectGrade(ctx, input.StudentID, domain.SubjectGrade{
			SubjectName: input.Subject,
			AvgGrade:    input.Body.AvgGrade,
			Trend:       domain.Trend(input.Body.Trend),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.SubjectGrade `json:"body"`
		}{Body: g}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "student-summary",
		Method:      http.MethodGet,
		Path:        "/students/{student_id}/summary",
		Summary:     "Workload health, interventions and subject trends",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *studentPath) (*struct {
		Body domain.StudentSummary `json:"body"`
	}, error) {
		sum, err := e.StudentSummary(ctx, input.StudentID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.StudentSummary `json:"body"`
		}{Body: sum}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/students/{student_id}/events",
		Summary:     "Recent events for a student",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		StudentID string `path:"student_id"`
		Type      string `query:"type"`
		Limit     int    `query:"limit" default:"20" minimum:"1" maximum:"200"`
	}) (*struct {
		Body EventsResponse `json:"body"`
	}, error) {
		items, err := e.RecentEvents(ctx, repo.EventFilter{StudentID: input.StudentID, Type: input.Type, Limit: input.Limit})
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.Event{}
		}
		return &struct {
			Body EventsResponse `json:"body"`
		}{Body: EventsResponse{Items: items}}, nil
	})
}
