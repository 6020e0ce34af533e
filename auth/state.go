package auth

import "fmt"

// State of an Auth Context. Every context starts Unknown and resolves to one
// of the other two; it never returns to Unknown.
type State int

const (
	StateUnknown State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Attempt is one sign-in attempt of SignInWithRetry
type Attempt struct {
	Number int
	Max    int
	Err    error // nil when the attempt succeeded
}

// String renders the attempt as "n/max"
func (a Attempt) String() string {
	return fmt.Sprintf("%d/%d", a.Number, a.Max)
}
