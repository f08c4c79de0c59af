package requests

import (
	"fmt"
	"time"
)

type Request struct {
	// Number is assigned by the queue
	Number  int64
	User    User
	Created time.Time
}

func NewRequest(user *User) (Request, error) {
	if !user.Valid() {
		return Request{}, fmt.Errorf("%w: bad user %+v", ErrInvalidRequest, user)
	}
	return Request{
		User:    *user,
		Created: time.Now(),
	}, nil
}

func (r *Request) Base() *Request {
	return r
}

// Queued is anything the execution queue accepts.
type Queued interface {
	Base() *Request
	Info() Info
}

// Info is the serialized form of a request, carried by events.
type Info struct {
	Number int64  `json:"number"`
	Name   string `json:"name,omitempty"`
	Script string `json:"script,omitempty"`
	User   string `json:"user"`
	Level  Level  `json:"level"`
}

type EmergencyStopRequest struct {
	Request
}

func NewEmergencyStopRequest(user *User) (*EmergencyStopRequest, error) {
	req, err := NewRequest(user)
	if err != nil {
		return nil, err
	}
	return &EmergencyStopRequest{
		Request: req,
	}, nil
}

func (e *EmergencyStopRequest) Info() Info {
	return Info{
		Number: e.Number,
		Name:   "emergency stop",
		User:   e.User.Name,
		Level:  e.User.Level,
	}
}
