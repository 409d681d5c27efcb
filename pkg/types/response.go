package types

// SuccessEnvelope wraps every successful API payload under "data".
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the body of a failed request. Code is one of the pkg/errors
// codes; RequestID repeats the X-Request-Id header so a user can quote it.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
