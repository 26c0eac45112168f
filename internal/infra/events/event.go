package events

import (
	"encoding/json"
	"time"

	domain "github.com/bryanwahyu/linkedin-analyzer/internal/domain/analyst"
)

// EventAnalysisFinished is the type of every message these publishers send.
const EventAnalysisFinished = "analysis.finished"

// AnalysisFinished is the message body. The resume text and the model reply
// are not included; consumers fetch the analysis by id.
type AnalysisFinished struct {
	Event     string    `json:"event"`
	ID        string    `json:"analysis_id"`
	Filename  string    `json:"filename"`
	Model     string    `json:"model"`
	Status    string    `json:"status"`
	ErrorKind string    `json:"error_kind,omitempty"`
	ResultLen int       `json:"result_len"`
	CreatedAt time.Time `json:"created_at"`
	Timestamp time.Time `json:"timestamp"`
}

func newAnalysisFinished(a *domain.Analysis, now time.Time) AnalysisFinished {
	status := "completed"
	if a.Failed() {
		status = "failed"
	}
	return AnalysisFinished{
		Event:     EventAnalysisFinished,
		ID:        string(a.ID),
		Filename:  a.Filename,
		Model:     a.Model,
		Status:    status,
		ErrorKind: a.ErrorKind,
		ResultLen: len(a.Result),
		CreatedAt: a.CreatedAt,
		Timestamp: now,
	}
}

func encode(a *domain.Analysis, now time.Time) ([]byte, error) {
	return json.Marshal(newAnalysisFinished(a, now))
}

// routingKey mirrors the "<entity>.<id>" keys consumers bind on.
func routingKey(a *domain.Analysis) string {
	return "analysis." + string(a.ID)
}
