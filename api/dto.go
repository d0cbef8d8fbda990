/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. vacation.Record is
  already shaped for the wire and is returned as is; everything else lives
  here.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Response wrappers

VALIDATION:
  Request types carry validator/v10 tags; handlers run them through
  Handler.validate before touching the pipeline.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/warp/vacation-calendar/ingest"
	"github.com/warp/vacation-calendar/report"
	"github.com/warp/vacation-calendar/vacation"
)

// =============================================================================
// WEBHOOK
// =============================================================================

// WebhookRequest is the messenger's outgoing webhook payload.
type WebhookRequest struct {
	Message WebhookMessageDTO `json:"message"`
	Author  WebhookAuthorDTO  `json:"author"`
}

type WebhookMessageDTO struct {
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

type WebhookAuthorDTO struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name"`
}

// CandidateDTO is the stored vacation as echoed to the messenger.
type CandidateDTO struct {
	EmployeeName string `json:"employee_name"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
}

// WebhookResponse is returned for every accepted delivery.
type WebhookResponse struct {
	Success  bool          `json:"success"`
	Vacation bool          `json:"vacation"`
	Outcome  string        `json:"outcome,omitempty"`
	Data     *CandidateDTO `json:"data,omitempty"`
}

func (r WebhookRequest) toMessage() ingest.WebhookMessage {
	return ingest.WebhookMessage{
		Text:       r.Message.Text,
		CreatedAt:  r.Message.CreatedAt,
		AuthorID:   r.Author.ID,
		AuthorName: r.Author.Name,
	}
}

func toWebhookResponse(res ingest.WebhookResult) WebhookResponse {
	if !res.Recognized {
		return WebhookResponse{Success: true}
	}
	return WebhookResponse{
		Success:  true,
		Vacation: true,
		Outcome:  string(res.Outcome),
		Data: &CandidateDTO{
			EmployeeName: res.Record.EmployeeName,
			StartDate:    res.Record.StartDate,
			EndDate:      res.Record.EndDate,
		},
	}
}

// =============================================================================
// VACATIONS
// =============================================================================

// SummaryDTO wraps report.Summary with the date it was computed for.
type SummaryDTO struct {
	AsOf string `json:"as_of"`
	report.Summary
}

// SeedResponse lists the demo records that were loaded.
type SeedResponse struct {
	Loaded  int               `json:"loaded"`
	Records []vacation.Record `json:"records"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}
