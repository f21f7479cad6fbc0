// internal/workers/fraud/narrative-report/models.go
package narrativereport

import "encoding/json"

type Input struct {
	// Application is any JSON value: an object, or a string holding raw text.
	Application json.RawMessage `json:"application"`
	Model       string          `json:"model,omitempty"`
}

type Output struct {
	Report   string `json:"report"`
	ReportID string `json:"reportId"`
	Repaired bool   `json:"repaired"`
	Cached   bool   `json:"cached"`
}
