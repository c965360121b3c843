package domain

import (
	"fmt"
	"time"
)

// Session is the correlation state of the bridge: the active work id and
// the model selected by the last successful setup.
//
// A Session is owned by the dispatch loop and must only be touched from
// that goroutine.
type Session struct {
	WorkID    string
	ModelName string
}

// NewWorkID derives a work id from the wall clock. Ids are not unique
// across restarts and collisions within 100s windows are tolerated.
func NewWorkID(now time.Time) string {
	return fmt.Sprintf("llm_%d", now.UnixMilli()%100000)
}

// Select records a validated model and starts a new work id.
func (s *Session) Select(model string, now time.Time) string {
	s.ModelName = model
	s.WorkID = NewWorkID(now)
	return s.WorkID
}

// EnsureWorkID returns the active work id, creating one if none is set.
// Once set, the id is reused until the next Select or Reset.
func (s *Session) EnsureWorkID(now time.Time) string {
	if s.WorkID == "" {
		s.WorkID = NewWorkID(now)
	}
	return s.WorkID
}

// Reset clears the work id and the selected model.
func (s *Session) Reset() {
	s.WorkID = ""
	s.ModelName = ""
}
