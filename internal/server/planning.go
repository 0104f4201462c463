package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"smartstart/internal/domain"
	"smartstart/internal/engine"
)

// registerPlanning exposes the stateless scoring endpoints; nothing is stored.
func registerPlanning(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "smart-start",
		Method:      http.MethodPost,
		Path:        "/smart-start",
		Summary:     "Compute start recommendations for a batch of assignments",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body SmartStartRequest `json:"body"`
	}) (*struct {
		Body SmartStartResponse `json:"body"`
	}, error) {
		now := e.CurrentTime()
		if input.Body.Now != nil {
			now = input.Body.Now.UTC()
		}
		avg := e.AvgHoursPerDay()
		if input.Body.AvgHoursPerDay != nil {
			avg = *input.Body.AvgHoursPerDay
		}
		recs, err := engine.ComputeSmartStart(now, input.Body.Assignments, avg)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SmartStartResponse `json:"body"`
		}{Body: SmartStartResponse{Recommendations: recs, CalculatedAt: now}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "workload-health",
		Method:      http.MethodPost,
		Path:        "/workload-health",
		Summary:     "Rate workload health from aggregate metrics",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body domain.WorkloadMetrics `json:"body"`
	}) (*struct {
		Body domain.WorkloadHealthResult `json:"body"`
	}, error) {
		if err := engine.ValidateMetrics(input.Body); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.WorkloadHealthResult `json:"body"`
		}{Body: engine.CalculateWorkloadHealth(input.Body)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "interventions",
		Method:      http.MethodPost,
		Path:        "/interventions",
		Summary:     "Classify interventions and attention items",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body InterventionRequest `json:"body"`
	}) (*struct {
		Body domain.InterventionResult `json:"body"`
	}, error) {
		in := input.Body.input()
		if err := engine.ValidateInterventionInput(in); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.InterventionResult `json:"body"`
		}{Body: engine.IdentifyInterventions(in)}, nil
	})
}
