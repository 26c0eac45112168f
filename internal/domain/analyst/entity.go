package analyst

import "time"

// AnalysisID identifier type
type AnalysisID string

// Analysis is one resume analysis, kept for history and auditing
type Analysis struct {
	ID         AnalysisID `json:"id"`
	Filename   string     `json:"filename"`
	Model      string     `json:"model"`
	PromptHash string     `json:"prompt_hash"`
	Result     string     `json:"result"`
	ErrorKind  string     `json:"error_kind,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Failed reports whether the analysis ended with an error string instead of a reply.
func (a *Analysis) Failed() bool {
	return a.ErrorKind != ""
}
