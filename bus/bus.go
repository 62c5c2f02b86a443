// Package bus defines the narrow contract this framework consumes from the
// D-Bus engine and implements it on top of github.com/godbus/dbus.
package bus

import (
	"context"
	"sync"

	"github.com/godbus/dbus/v5"
)

// Bus is the capability surface the binding layer needs from the engine:
// request/reply calls, property access, signal emission and subscription,
// and interface export for serving.
type Bus interface {
	// Call sends a method call addressed to (peer, path, iface, member) and
	// awaits the single reply, returning the decoded reply body. inSig is the
	// declared input signature of the arguments.
	Call(ctx context.Context, peer, path, iface, member, inSig string, args []any) ([]any, error)

	// GetProperty issues a property read through the standard Properties
	// interface and returns the unwrapped value.
	GetProperty(ctx context.Context, peer, path, iface, prop string) (any, error)

	// SetProperty issues a property write carrying a variant typed by sig.
	SetProperty(ctx context.Context, peer, path, iface, prop, sig string, value any) error

	// EmitSignal broadcasts a signal from path with the given body.
	EmitSignal(path, iface, member, sig string, body []any) error

	// Subscribe returns an independent stream of matching incoming signals;
	// its backlog starts at subscription time.
	Subscribe(ctx context.Context, peer, path, iface, member string) (SignalStream, error)

	// Export registers one interface at an object path for serving. Method
	// handlers run until ctx ends or the handle is unexported.
	Export(ctx context.Context, path string, spec InterfaceSpec) (Handle, error)
}

// SignalStream delivers decoded signal bodies in arrival order. Closing a
// stream never disturbs other subscriptions to the same signal.
type SignalStream interface {
	C() <-chan []any
	Close() error
}

// Handle identifies one exported interface registration.
type Handle interface {
	Path() string
	Interface() string
	Unexport() error
}

// InterfaceSpec describes one interface to export: its dispatchable methods
// and properties, plus signal metadata for introspection.
type InterfaceSpec struct {
	Name       string
	Methods    []MethodSpec
	Properties []PropertySpec
	Signals    []SignalSpec
}

// MethodSpec carries one method's wire contract and its dispatch entry
// point. The handler receives the decoded request body and returns the
// positional reply values.
type MethodSpec struct {
	Name            string
	InputSignature  string
	OutputSignature string
	InputNames      []string
	OutputNames     []string
	Handler         func(ctx context.Context, body []any) ([]any, error)
}

// PropertySpec carries one property's wire contract with live get/set entry
// points. A nil Set marks a read-only property.
type PropertySpec struct {
	Name      string
	Signature string
	Get       func() (any, error)
	Set       func(value any) error
}

// SignalSpec is signal metadata only; signals have no inbound dispatch.
type SignalSpec struct {
	Name      string
	Signature string
	ArgNames  []string
}

var (
	defaultOnce sync.Once
	defaultBus  Bus
	defaultErr  error
)

// Default returns the process-wide session bus connection, opened lazily on
// first use.
func Default() (Bus, error) {
	defaultOnce.Do(func() {
		conn, err := dbus.SessionBus()
		if err != nil {
			defaultErr = err
			return
		}
		defaultBus = NewConn(conn)
	})
	return defaultBus, defaultErr
}

// Open connects to the named bus, "session" or "system".
func Open(kind string) (Bus, error) {
	var (
		conn *dbus.Conn
		err  error
	)
	switch kind {
	case "system":
		conn, err = dbus.SystemBus()
	default:
		conn, err = dbus.SessionBus()
	}
	if err != nil {
		return nil, err
	}
	return NewConn(conn), nil
}
