// Package pipeline is the Redis Streams channel between this service and the
// external transcription/summarization pipeline: dispatch requests flow out,
// progress events flow back and are applied to the ingest records.
package pipeline

import "encoding/json"

// Stream name constants
const (
	StreamIngestDispatch = "ingest:dispatch"
	StreamIngestEvents   = "ingest:events"
)

// Consumer group constants
const (
	GroupPipelineWorkers = "pipeline-workers" // sidecar side
	GroupGoWorkers       = "go-workers"       // this service
)

// Schema version constant
const (
	SchemaVersionV1 = "v1"
)

// Progress event types reported by the pipeline
const (
	EventStarted   = "started"
	EventStage     = "stage"
	EventSucceeded = "succeeded"
	EventFailed    = "failed"
)

// DispatchRequest asks the pipeline to process one ingest request.
type DispatchRequest struct {
	DispatchID string `json:"dispatch_id"`
	RequestID  uint   `json:"request_id"`
	URL        string `json:"url"`
	Source     string `json:"source"`
	JobID      string `json:"job_id"`
}

// EpisodeResult is the artifact payload carried by a succeeded event.
type EpisodeResult struct {
	Title           string          `json:"title"`
	DurationSeconds int             `json:"duration_seconds"`
	Summary         json.RawMessage `json:"summary"`
}

// ProgressEvent is one state-machine advance reported by the pipeline.
type ProgressEvent struct {
	RequestID    uint            `json:"request_id"`
	Event        string          `json:"event"` // started/stage/succeeded/failed
	Stage        string          `json:"stage,omitempty"`
	Error        string          `json:"error,omitempty"`
	ErrorDetails json.RawMessage `json:"error_details,omitempty"`
	Episode      *EpisodeResult  `json:"episode,omitempty"`
}
