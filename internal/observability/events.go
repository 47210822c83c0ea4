package observability

// EventEnvelope wraps operational events (websocket errors and the like) published to the broker.
type EventEnvelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	Headers   Headers     `json:"headers,omitempty"`
	Payload   interface{} `json:"payload"`
}

type Headers map[string]string

func BuildHeaders(requestID, traceID string) Headers {
	headers := Headers{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}
