// Package listeners holds the per-connection lifecycle event callbacks.
//
// Each event has at most one callback. Callbacks are plain functions whose
// parameters are matched against the dispatched arguments at dispatch time:
//
//	reg.Register(listeners.Reconnect, func(path string, attempt int) {
//		log.Printf("reconnected to %s on attempt %d", path, attempt)
//	})
package listeners

import (
	"log/slog"
	"reflect"
	"sync"
)

// Result reports what a Dispatch did.
type Result int

const (
	// NoListener means no callback is registered for the event.
	NoListener Result = iota
	// Invoked means the callback ran.
	Invoked
	// SignatureMismatch means the callback cannot accept the arguments and
	// was not called.
	SignatureMismatch
)

func (r Result) String() string {
	switch r {
	case Invoked:
		return "invoked"
	case SignatureMismatch:
		return "signature mismatch"
	default:
		return "no listener"
	}
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Registry maps events to callbacks.
type Registry struct {
	mu        sync.RWMutex
	callbacks map[Event]reflect.Value
	logger    *slog.Logger
}

// NewRegistry creates an empty registry. A nil logger discards output.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		callbacks: make(map[Event]reflect.Value, len(Events)),
		logger:    logger,
	}
}

// Register stores callback for event, replacing any earlier one.
func (r *Registry) Register(event Event, callback any) error {
	if !event.Valid() {
		return &ListenError{Event: event, Message: "event is not recognised"}
	}

	fn := reflect.ValueOf(callback)
	if callback == nil || fn.Kind() != reflect.Func || fn.IsNil() {
		return &ListenError{Event: event, Message: "callback must be a function"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks[event] = fn
	return nil
}

// Remove drops the callback for event, if any.
func (r *Registry) Remove(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.callbacks, event)
}

// Registered reports whether event has a callback.
func (r *Registry) Registered(event Event) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.callbacks[event]
	return ok
}

// Dispatch calls the callback for event with args.
//
// A callback that cannot accept args is skipped and SignatureMismatch is
// returned. Panics raised by the callback are not recovered. If the
// callback's last result is a non-nil error it is logged.
func (r *Registry) Dispatch(event Event, args ...any) Result {
	r.mu.RLock()
	fn, ok := r.callbacks[event]
	r.mu.RUnlock()

	if !ok {
		r.logger.Debug("no listener registered", "event", string(event))
		return NoListener
	}

	in, ok := bindArgs(fn.Type(), args)
	if !ok {
		r.logger.Debug("listener signature mismatch",
			"event", string(event),
			"listener", fn.Type().String(),
			"args", len(args),
		)
		return SignatureMismatch
	}

	out := fn.Call(in)
	if n := len(out); n > 0 && fn.Type().Out(n-1) == errorType && !out[n-1].IsNil() {
		r.logger.Warn("listener returned error",
			"event", string(event),
			"error", out[n-1].Interface().(error),
		)
	}
	return Invoked
}

// bindArgs converts args to call arguments for a function of type fnType.
func bindArgs(fnType reflect.Type, args []any) ([]reflect.Value, bool) {
	numIn := fnType.NumIn()
	fixed := numIn
	if fnType.IsVariadic() {
		fixed = numIn - 1
		if len(args) < fixed {
			return nil, false
		}
	} else if len(args) != numIn {
		return nil, false
	}

	in := make([]reflect.Value, 0, len(args))
	for i, arg := range args {
		var want reflect.Type
		if i < fixed {
			want = fnType.In(i)
		} else {
			want = fnType.In(numIn - 1).Elem()
		}

		v, ok := convertArg(arg, want)
		if !ok {
			return nil, false
		}
		in = append(in, v)
	}
	return in, true
}

func convertArg(arg any, want reflect.Type) (reflect.Value, bool) {
	if arg == nil {
		switch want.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(want), true
		default:
			return reflect.Value{}, false
		}
	}

	v := reflect.ValueOf(arg)
	if !v.Type().AssignableTo(want) {
		return reflect.Value{}, false
	}
	if v.Type() != want {
		converted := reflect.New(want).Elem()
		converted.Set(v)
		v = converted
	}
	return v, true
}
