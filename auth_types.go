package postman

type AuthReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthStatus struct {
	Status string `json:"status"`
}

// SessionState is the outcome of a successful session check.
type SessionState int

const (
	// SessionActive means the session was already valid.
	SessionActive SessionState = iota + 1

	// SessionRefreshed means the session was invalid and a refresh restored it.
	SessionRefreshed
)

func (state SessionState) String() string {
	switch state {
	case SessionActive:
		return "active"

	case SessionRefreshed:
		return "refreshed"

	default:
		return "unknown"
	}
}
