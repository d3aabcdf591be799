package order

import "errors"

var ErrInvalidTransition = errors.New("order: invalid status transition")

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusProcessing: true},
	StatusProcessing: {StatusShipped: true},
	StatusShipped:    {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Normalized treats an absent status as pending, matching legacy documents
// written before the status field existed.
func (s Status) Normalized() Status {
	if s == "" {
		return StatusPending
	}
	return s
}
