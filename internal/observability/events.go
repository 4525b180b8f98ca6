package observability

// Routing keys for the hub's lifecycle events.
const (
	RoutingKeyWSEvents = "ws_events.studyhub"
	RoutingKeyAudit    = "audit.studyhub"
)

// Event names carried in EventEnvelope.
const (
	EventWSConnect    = "ws_connect"
	EventWSDisconnect = "ws_disconnect"
	EventWSError      = "ws_error"
)

type EventEnvelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	Payload   interface{} `json:"payload"`
}

// WSEventPayload describes one connection lifecycle event.
type WSEventPayload struct {
	ConnID     string `json:"conn_id"`
	UserID     string `json:"user_id"`
	DeviceID   string `json:"device_id,omitempty"`
	IP         string `json:"ip,omitempty"`
	Event      string `json:"event"`
	DurationMS int64  `json:"duration_ms"`
	Reason     string `json:"reason,omitempty"`
}

func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
