package postman

// Status is the connectivity status of the manager, as seen from its last request.
type Status int

const (
	StatusUp Status = iota
	StatusDown
)

func (s Status) String() string {
	switch s {
	case StatusUp:
		return "up"

	case StatusDown:
		return "down"

	default:
		return "unknown"
	}
}

// StatusObserver is called whenever the connectivity status changes.
type StatusObserver func(Status)
