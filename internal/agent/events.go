package agent

// EventType labels one frame of the chat response stream.
type EventType string

const (
	// EventAgent carries the agent's narration (what it decided to do).
	EventAgent EventType = "agent"
	// EventTools carries raw tool output.
	EventTools EventType = "tools"
	// EventCompleted carries the final reply and ends the stream.
	EventCompleted EventType = "completed"
	// EventError carries a failure and ends the stream.
	EventError EventType = "error"
)

// Event is one streamed frame.
type Event struct {
	Type EventType `json:"event"`
	Data string    `json:"data"`
}

// Emitter receives stream frames as they are produced. A non-nil error stops
// the dispatcher (the client went away).
type Emitter func(Event) error
