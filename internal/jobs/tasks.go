/**
 * Async job queue.
 *
 * Long conversions can run out-of-band: the API enqueues a task, a separate
 * worker process consumes it, and results land in the job store.
 */

package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// TypeProcessDocument is the asynq task type for one conversion.
const TypeProcessDocument = "document:process"

// QueueDocuments is the dedicated queue for conversion tasks.
const QueueDocuments = "documents"

// ProcessPayload is the serialized task body. Exactly one of FileData
// (base64) or URL is set.
type ProcessPayload struct {
	JobID    string          `json:"job_id"`
	Filename string          `json:"filename"`
	FileData string          `json:"file_data,omitempty"`
	URL      string          `json:"url,omitempty"`
	Options  json.RawMessage `json:"options"`
}

// NewProcessTask builds the asynq task for a payload.
func NewProcessTask(p *ProcessPayload) (*asynq.Task, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task payload: %w", err)
	}
	// Engine failures are recorded in the job record, never retried.
	return asynq.NewTask(TypeProcessDocument, body,
		asynq.Queue(QueueDocuments),
		asynq.MaxRetry(0)), nil
}

// DecodeProcessPayload parses a task body.
func DecodeProcessPayload(task *asynq.Task) (*ProcessPayload, error) {
	var p ProcessPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return nil, fmt.Errorf("failed to decode task payload: %w", err)
	}
	return &p, nil
}
