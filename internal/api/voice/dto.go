package voice

import (
	"VoiceIntent/internal/entity"
	"VoiceIntent/pkg/intent"
)

type ProcessRunRequest struct {
	SourceLanguage string `form:"source_language" validate:"omitempty,bcp47_language_tag"`
}

type RecognitionResponse struct {
	Status             string `json:"status"`
	Original           string `json:"original,omitempty"`
	Translated         string `json:"translated,omitempty"`
	CancellationReason string `json:"cancellation_reason,omitempty"`
	ErrorCode          string `json:"error_code,omitempty"`
	ErrorDetails       string `json:"error_details,omitempty"`
}

// RunResponse echoes the recognized text to the caller only. It is never
// stored.
type RunResponse struct {
	RunID          string               `json:"run_id"`
	SourceLanguage string               `json:"source_language"`
	PivotLanguage  string               `json:"pivot_language"`
	Mode           string               `json:"mode"`
	Recognition    RecognitionResponse  `json:"recognition"`
	Prediction     *intent.Prediction   `json:"prediction,omitempty"`
	Destination    *DestinationResponse `json:"destination,omitempty"`
	Navigated      bool                 `json:"navigated"`
	DurationMs     int64                `json:"duration_ms"`
}

type GetRunsRequest struct {
	Page  int `query:"page" validate:"omitempty,min=1"`
	Limit int `query:"limit" validate:"omitempty,min=1,max=100"`
}

type RunHistoryResponse struct {
	Runs       []entity.PipelineRun `json:"runs"`
	Pagination Pagination           `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

type RecordingStateResponse struct {
	Recording bool `json:"recording"`
}

type ClassifyRequest struct {
	Text string `json:"text" validate:"required,min=1,max=500"`
}

type ClassifyResponse struct {
	Input       string              `json:"input"`
	Prediction  *intent.Prediction  `json:"prediction"`
	Destination DestinationResponse `json:"destination"`
}

type DestinationResponse struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Intent string `json:"intent,omitempty"`
}

type NavigateResponse struct {
	Path      string `json:"path"`
	Delivered bool   `json:"delivered"`
}
