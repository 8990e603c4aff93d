package listeners

import "fmt"

// ListenError is returned when a callback cannot be registered.
type ListenError struct {
	Event   Event
	Message string
}

func (e *ListenError) Error() string {
	return fmt.Sprintf("listen %q: %s", string(e.Event), e.Message)
}
