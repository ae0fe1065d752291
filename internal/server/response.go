package server

import (
	"github.com/HENNGE/lambda-container-example/internal/pipeline"
	"github.com/HENNGE/lambda-container-example/internal/reconcile"
)

// Status is the outcome reported in every response.
type Status string

const (
	// StatusOK is used for health-check responses.
	StatusOK Status = "ok"

	// StatusSuccess indicates a batch completed successfully.
	StatusSuccess Status = "success"

	// StatusError indicates a request or batch failed.
	StatusError Status = "error"
)

// Rejection is a dropped record in a response.
type Rejection struct {
	Code    reconcile.RejectCode `json:"code"`
	EventID string               `json:"event_id,omitempty"`
	Message string               `json:"message"`
}

// Response is the standard API response format.
type Response struct {
	Status     Status                   `json:"status"`
	BatchID    string                   `json:"batch_id,omitempty"`
	Stats      *reconcile.Stats         `json:"stats,omitempty"`
	Operations []reconcile.Operation    `json:"operations,omitzero"`
	Rejections []Rejection              `json:"rejections,omitempty"`
	Applied    []*reconcile.ApplyResult `json:"applied,omitempty"`

	Code   string                      `json:"code,omitempty"`
	Error  string                      `json:"error,omitempty"`
	Failed []reconcile.FailedOperation `json:"failed,omitempty"`
}

// NewOKResponse is the health-check response.
func NewOKResponse() Response {
	return Response{Status: StatusOK}
}

// NewErrorResponse reports a request-level error.
func NewErrorResponse(err string) Response {
	return Response{Status: StatusError, Error: err}
}

// NewOutcomeResponse reports a reconciled batch. Operations are always
// present, even when empty.
func NewOutcomeResponse(out *pipeline.Outcome) Response {
	stats := out.Stats()
	resp := Response{
		Status:     StatusSuccess,
		BatchID:    out.BatchID,
		Stats:      &stats,
		Operations: []reconcile.Operation{},
		Applied:    out.Applied,
	}
	if out.Result == nil {
		return resp
	}
	if out.Result.Operations != nil {
		resp.Operations = out.Result.Operations
	}
	for _, r := range out.Result.Rejections {
		resp.Rejections = append(resp.Rejections, Rejection{Code: r.Code, EventID: r.EventID, Message: r.Error()})
	}
	return resp
}
