package tools

import "encoding/json"

// Result is what a tool returns: exactly one of Status (success) or Error.
type Result struct {
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

func Success(status string) Result { return Result{Status: status} }

func Failure(msg string) Result { return Result{Error: msg} }

func (r Result) IsError() bool { return r.Error != "" }

// MarshalJSON emits {"status": ...} or {"error": ...}, never both.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.IsError() {
		return json.Marshal(map[string]string{"error": r.Error})
	}
	return json.Marshal(map[string]string{"status": r.Status})
}
