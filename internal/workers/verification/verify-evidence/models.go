// internal/workers/verification/verify-evidence/models.go
package verifyevidence

// Output mirrors the tool result: exactly one of Status or Error is set.
// ErrorCode accompanies Error so the process can branch on it.
type Output struct {
	Status    string `json:"status,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"errorCode,omitempty"`
}
