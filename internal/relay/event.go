package relay

// Frame tags sent by the backend. Arrival of any particular tag is not
// guaranteed; stream_complete in particular may never be sent.
const (
	EventError          = "error"
	EventStreamChunk    = "stream_chunk"
	EventStreamComplete = "stream_complete"
)

// BackendEvent is one inbound frame from the backend connection.
type BackendEvent struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// chatRequest is the single outbound payload, sent once after the backend
// acknowledges the connection.
type chatRequest struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}
