package tools

// Status indicates whether a tool call succeeded.
type Status string

const (
	// StatusSuccess indicates the tool completed normally.
	StatusSuccess Status = "success"
	// StatusError indicates the tool failed; details are in Error.
	StatusError Status = "error"
)

// Error codes returned to the model. The model uses these to decide
// whether to retry with corrected arguments.
const (
	ErrCodeValidation = "VALIDATION"
	ErrCodeSecurity   = "SECURITY"
	ErrCodeNetwork    = "NETWORK"
	ErrCodeIO         = "IO"
	ErrCodeNotFound   = "NOT_FOUND"
)

// Error is a structured error format for model consumption.
// Tool failures are returned as data, not Go errors, so the agent loop
// can feed them back to the model instead of aborting.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result is the uniform output envelope for every tool.
type Result struct {
	Status  Status         `json:"status"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Error   *Error         `json:"error,omitempty"`
}
