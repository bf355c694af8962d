package genai

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind is the machine-readable classification of a generation
// failure, populated at the API-call boundary. String matching on the
// error text is kept only as a fallback for unstructured upstream
// errors.
type ErrorKind int

const (
	// KindGeneric covers every failure without a more specific class.
	KindGeneric ErrorKind = iota
	// KindQuota marks rate-limit and quota exhaustion failures.
	KindQuota
	// KindCredential marks missing or invalid API credentials.
	KindCredential
	// KindMalformed marks an OK response with no usable payload.
	KindMalformed
)

// APIError is a failure from the generation backend with its
// classification attached.
type APIError struct {
	Kind    ErrorKind
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("generation request failed with status %d: %s", e.Status, e.Message)
	}
	return e.Message
}

var quotaPatterns = []string{"429", "quota", "resource_exhausted", "resource exhausted", "rate limit"}

var credentialPatterns = []string{"403", "401", "api key", "permission", "credential", "not found"}

// Classify returns the kind of a generation failure. Structured errors
// carry their kind; anything else falls back to message sniffing.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindGeneric
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Kind != KindGeneric {
		return apiErr.Kind
	}

	msg := strings.ToLower(err.Error())
	for _, p := range quotaPatterns {
		if strings.Contains(msg, p) {
			return KindQuota
		}
	}
	for _, p := range credentialPatterns {
		if strings.Contains(msg, p) {
			return KindCredential
		}
	}
	return KindGeneric
}

// kindForStatus maps an HTTP status to an error kind. The response body
// is sniffed as well because some upstream failures hide the real cause
// behind a generic status.
func kindForStatus(status int, body string) ErrorKind {
	switch status {
	case 429:
		return KindQuota
	case 401, 403:
		return KindCredential
	}

	lower := strings.ToLower(body)
	for _, p := range quotaPatterns {
		if strings.Contains(lower, p) {
			return KindQuota
		}
	}
	for _, p := range credentialPatterns {
		if strings.Contains(lower, p) {
			return KindCredential
		}
	}
	return KindGeneric
}
