package response

type StandardApiResponse struct {
	Status     string      `json:"status"`           // "success" or "error"
	StatusCode int         `json:"status_code"`      // HTTP status code
	Message    string      `json:"message"`          // Human-readable message
	Data       interface{} `json:"data,omitempty"`   // Payload for success
	Errors     interface{} `json:"errors,omitempty"` // Validation or error details
}

// ErrorDetail is the error payload for failures raised by the core
type ErrorDetail struct {
	Code      string   `json:"code"`
	Message   string   `json:"message"`
	Seats     []string `json:"seats,omitempty"`
	Required  *int64   `json:"required,omitempty"`
	Available *int64   `json:"available,omitempty"`
}
