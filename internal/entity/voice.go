package entity

import (
	"time"
)

// PipelineRun is the audit record of one voice run. It holds no transcript or
// translated text.
type PipelineRun struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	SourceLanguage     string    `json:"source_language"`
	PivotLanguage      string    `json:"pivot_language"`
	Mode               string    `json:"mode"`
	RecognitionStatus  string    `json:"recognition_status"`
	CancellationReason string    `json:"cancellation_reason,omitempty"`
	ErrorCode          string    `json:"error_code,omitempty"`
	ErrorDetails       string    `json:"error_details,omitempty"`
	TopIntent          string    `json:"top_intent,omitempty"`
	Confidence         float64   `json:"confidence"`
	EntityCount        int       `json:"entity_count"`
	Destination        string    `json:"destination,omitempty"`
	Navigated          bool      `json:"navigated"`
	FatalError         string    `json:"fatal_error,omitempty"`
	ArchiveURL         string    `json:"archive_url,omitempty"`
	DurationMs         int64     `json:"duration_ms"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
