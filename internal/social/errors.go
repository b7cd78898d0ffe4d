package social

import "fmt"

// APIError is a transport-level failure from the social network carrying an
// HTTP-like status. Its string form is "<status> <message>", which is what
// ends up verbatim in nack reasons.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s", e.StatusCode, e.Message)
}

// IsRetryable reports whether the failure is worth retrying at the transport
// level. Client errors other than rate limiting are not.
func (e *APIError) IsRetryable() bool {
	if e.StatusCode == 429 {
		return true
	}
	return e.StatusCode >= 500
}
