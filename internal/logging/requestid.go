package logging

type contextKey string

// RequestIDKey is the context key under which the per-request id travels.
const RequestIDKey contextKey = "request_id"

// HeaderRequestID is the header used to propagate the request id to
// downstream services.
const HeaderRequestID = "X-Request-ID"
