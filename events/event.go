package events

import "time"

type Name string

const (
	Request    Name = "request"
	Processing Name = "processing"
	Blocked    Name = "blocked"
	Status     Name = "status"
	Watch      Name = "watch"
	Message    Name = "message"
	Done       Name = "done"
)

type Event struct {
	Name    Name      `json:"name"`
	Time    time.Time `json:"time"`
	Payload any       `json:"payload,omitempty"`
}

// StatusPayload is the payload of Status events.
type StatusPayload struct {
	State  string `json:"state"`
	Source string `json:"source,omitempty"`
	Line   int    `json:"line,omitempty"`
}

// DonePayload is the payload of Done events.
type DonePayload struct {
	Number   int64         `json:"number"`
	Name     string        `json:"name,omitempty"`
	Success  bool          `json:"success"`
	Stopped  bool          `json:"stopped,omitempty"`
	Reason   string        `json:"reason,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// MessagePayload is the payload of Message events.
type MessagePayload struct {
	Level   string            `json:"level"`
	Message string            `json:"message"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}
