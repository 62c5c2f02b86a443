// Package member defines the declarative Method, Property and Signal
// descriptors and their bound, per-instance forms. A descriptor is declared
// once per type and shared read-only by every instance; binding pairs it
// with one instance and selects local or remote dispatch from that
// instance's binding state.
package member

import (
	"context"
	"fmt"

	"github.com/b0bbywan/go-busbind/bus"
)

// QueueSize is the buffer of a local signal subscription. A subscriber that
// falls this far behind starts losing values, with a warning.
var QueueSize = 32

// Handler is the Go-side implementation of a declared method. recv is the
// instance the method was accessed through and args the full positional
// argument list.
type Handler func(ctx context.Context, recv any, args []any) (any, error)

// Getter reads a property value from recv.
type Getter func(recv any) (any, error)

// Setter writes a property value on recv.
type Setter func(recv any, value any) error

// Flags annotate a declaration; dispatch and export ignore them.
type Flags uint64

// Instance is the view of a bindable object that bound members need: the
// handler receiver, the binding state, and the local signal fan-out hooks.
// It is implemented by object.Object.
type Instance interface {
	// Receiver returns the value method handlers and property accessors
	// receive.
	Receiver() any

	// ProxyTarget reports the remote binding, ok when proxy-bound.
	ProxyTarget() (b bus.Bus, peer, path string, ok bool)

	// ServingTarget reports the serving binding, ok only when at least one
	// interface registration is active.
	ServingTarget() (b bus.Bus, path string, ok bool)

	// AttachLocalSignal registers ch for local delivery of sig and returns
	// the detach function, which also closes ch.
	AttachLocalSignal(sig *Signal, ch chan any) (detach func())

	// EmitLocal pushes value into every live local subscription of sig.
	EmitLocal(sig *Signal, value any)
}

// stamp is the interface-ownership mark the table builder places on every
// descriptor. Immutable once set.
type stamp struct {
	ifaceName string
	serving   bool
	stamped   bool
}

// InterfaceName returns the owning interface wire name, empty before the
// descriptor is stamped.
func (s *stamp) InterfaceName() string { return s.ifaceName }

// ServingEnabled reports whether the owning interface serves this member.
func (s *stamp) ServingEnabled() bool { return s.serving }

// SetOwner assigns the owning interface name and serving flag. A descriptor
// belongs to exactly one interface; a second owner is a declaration error.
func (s *stamp) SetOwner(ifaceName string, serving bool) error {
	if s.stamped {
		return fmt.Errorf("member: already declared on interface %q", s.ifaceName)
	}
	s.ifaceName = ifaceName
	s.serving = serving
	s.stamped = true
	return nil
}

// Collapse reduces a decoded message body to the value shape handlers and
// subscribers see: nil for an empty body, the sole value for a single-value
// body, the full slice otherwise.
func Collapse(body []any) any {
	switch len(body) {
	case 0:
		return nil
	case 1:
		return body[0]
	default:
		return body
	}
}

// expand is the reply-shaping inverse of Collapse: a []any result is
// encoded positionally, a single non-nil result as the sole output value,
// nil as an empty body.
func expand(result any) []any {
	switch v := result.(type) {
	case nil:
		return nil
	case []any:
		return v
	default:
		return []any{result}
	}
}
