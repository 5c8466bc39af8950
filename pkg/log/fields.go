package log

const (
	// Session
	FieldUsername = "username"
	FieldRoom     = "room"
	FieldState    = "state"

	// Transport
	FieldEvent    = "event"
	FieldClientID = "client_id"
	FieldLatency  = "latency_ms"

	// Service
	FieldService = "service"
)
