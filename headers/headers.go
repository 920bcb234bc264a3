// Package headers defines HTTP header constants used across the CadenaFria
// dashboard platform. This is the single source of truth for header names
// used in API requests/responses.
package headers

const (
	// RequestID is the header for request correlation.
	// Clients supply this header so retried requests can be traced end to end.
	RequestID = "X-CadenaFria-Request-Id"

	// Authorization carries the bearer access token.
	Authorization = "Authorization"

	// Traceparent is the W3C trace context header.
	Traceparent = "Traceparent"
)
