package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Service
	FieldService   = "service"
	FieldComponent = "component"

	// Search
	FieldCategory = "category"
	FieldEntityID = "entity_id"
	FieldBackend  = "backend"
	FieldMode     = "mode"
	FieldQuery    = "query"
	FieldTopic    = "topic"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
