package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"smartstart/internal/domain"
	"smartstart/internal/engine"
)

func registerParents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "request-link",
		Method:        http.MethodPost,
		Path:          "/parents/{parent_id}/links",
		Summary:       "Ask a student to link to a parent",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ParentID string            `path:"parent_id"`
		Body     CreateLinkRequest `json:"body"`
	}) (*struct {
		Body domain.ParentLink `json:"body"`
	}, error) {
		link, err := e.RequestLink(ctx, input.ParentID, input.Body.StudentID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ParentLink `json:"body"`
		}{Body: link}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "respond-link",
		Method:      http.MethodPost,
		Path:        "/students/{student_id}/links/{link_id}",
		Summary:     "Accept or reject a pending link request",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		StudentID string             `path:"student_id"`
		LinkID    string             `path:"link_id"`
		Body      RespondLinkRequest `json:"body"`
	}) (*struct {
		Body domain.ParentLink `json:"body"`
	}, error) {
		link, err := e.RespondLink(ctx, input.StudentID, input.LinkID, input.Body.Status)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ParentLink `json:"body"`
		}{Body: link}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-children",
		Method:      http.MethodGet,
		Path:        "/parents/{parent_id}/children",
		Summary:     "Summaries for every accepted child link",
	}, func(ctx context.Context, input *struct {
		ParentID string `path:"parent_id"`
	}) (*struct {
		Body ChildrenResponse `json:"body"`
	}, error) {
		kids, err := e.ChildrenSummaries(ctx, input.ParentID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ChildrenResponse `json:"body"`
		}{Body: ChildrenResponse{ParentID: input.ParentID, Children: kids}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "child-summary",
		Method:      http.MethodGet,
		Path:        "/parents/{parent_id}/children/{student_id}",
		Summary:     "Summary for one linked child",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ParentID  string `path:"parent_id"`
		StudentID string `path:"student_id"`
	}) (*struct {
		Body domain.StudentSummary `json:"body"`
	}, error) {
		sum, err := e.ChildSummary(ctx, input.ParentID, input.StudentID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.StudentSummary `json:"body"`
		}{Body: sum}, nil
	})
}
