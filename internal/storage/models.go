package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Session is a persisted conversation: its state store and delegation stack.
type Session struct {
	ID          string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ActiveAgent string
	StateJSON   string // JSON object stored as text
	StackJSON   string // JSON array of frames stored as text
	TurnCount   int
}

// Turn is one logged user turn and everything the agents said in reply.
type Turn struct {
	ID           string
	SessionID    string
	Seq          int
	CreatedAt    time.Time
	Input        string
	MessagesJSON string // JSON array of {agent, text}
	AgentsJSON   string // JSON array of agent names in hop order
	ActiveAgent  string
	Error        string
}
