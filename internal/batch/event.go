package batch

import (
	"github.com/dunamismax/imagemin/internal/domain"
)

type EventType string

const (
	EventStart        EventType = "start"
	EventFileComplete EventType = "file_complete"
	EventFileFailed   EventType = "file_failed"
	EventComplete     EventType = "complete"
	EventAborted      EventType = "aborted"
)

// Event is a progress notification. Percent counts processed files,
// failed ones included under the skip policy.
type Event struct {
	Type    EventType                 `json:"type"`
	BatchID string                    `json:"batchId"`
	Index   int                       `json:"index"`
	Total   int                       `json:"total"`
	Path    string                    `json:"path,omitempty"`
	Percent float64                   `json:"percent"`
	Result  *domain.CompressionResult `json:"result,omitempty"`
	Error   string                    `json:"error,omitempty"`
}

type Callback func(Event)
