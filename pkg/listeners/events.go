package listeners

// Event names a connection lifecycle event.
type Event string

const (
	Connect            Event = "connect"
	Reconnect          Event = "reconnect"
	Disconnect         Event = "disconnect"
	Error              Event = "error"
	Commit             Event = "commit"
	Rollback           Event = "rollback"
	TransactionSuccess Event = "transaction_success"
)

// Events lists every event a callback can be registered for.
var Events = []Event{
	Connect,
	Reconnect,
	Disconnect,
	Error,
	Commit,
	Rollback,
	TransactionSuccess,
}

// Valid reports whether e belongs to the fixed event set.
func (e Event) Valid() bool {
	for _, known := range Events {
		if e == known {
			return true
		}
	}
	return false
}

func (e Event) String() string {
	return string(e)
}
