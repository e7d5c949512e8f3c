package logger

// Standard field keys for structured logging. Use these consistently so log
// lines can be aggregated and queried by key.
const (
	KeyError      = "error"       // Error message
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds

	KeyRequestID = "request_id" // HTTP request identifier
	KeyClientIP  = "client_ip"  // Client IP address

	KeySessionID = "session_id" // Client session identifier
	KeyUserID    = "user_id"    // Local user identity
	KeyBackendID = "backend_id" // Compute backend identifier

	KeyFlag  = "flag"  // Command-line flag key
	KeyValue = "value" // Offending flag value
	KeyPath  = "path"  // File path (settings document, log file)
	KeyState = "state" // Lifecycle state name
)
