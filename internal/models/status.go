package models

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending Status = "Pending"
	StatusRunning Status = "Running"
	StatusSuccess Status = "Success"
	StatusFailed  Status = "Failed"
)

// transitions lists every legal edge of the job state machine.
// Deletion (cancel) is not a status and is not represented here.
var transitions = map[Status][]Status{
	StatusPending: {StatusRunning},
	StatusRunning: {StatusSuccess, StatusFailed},
	StatusFailed:  {StatusPending},
}

// CanTransition reports whether a job in state s may move to next.
func (s Status) CanTransition(next Status) bool {
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsFinal reports whether the runner is done with a job in state s.
func (s Status) IsFinal() bool {
	return s == StatusSuccess || s == StatusFailed
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusSuccess, StatusFailed:
		return true
	default:
		return false
	}
}

// ParseStatus converts a case-insensitive status name.
func ParseStatus(s string) (Status, error) {
	for _, status := range []Status{StatusPending, StatusRunning, StatusSuccess, StatusFailed} {
		if strings.EqualFold(string(status), strings.TrimSpace(s)) {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown job status %q", s)
}
