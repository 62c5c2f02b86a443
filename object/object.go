package object

import (
	"context"
	"fmt"
	"sync"

	"github.com/b0bbywan/go-busbind/bus"
	"github.com/b0bbywan/go-busbind/logger"
	"github.com/b0bbywan/go-busbind/member"
	"github.com/b0bbywan/go-busbind/names"
)

// State is an Object's binding mode. Every instance starts Unbound;
// ProxyBound and ServerActivated are terminal and mutually exclusive.
type State int

const (
	Unbound State = iota
	ProxyBound
	ServerActivated
)

func (s State) String() string {
	switch s {
	case Unbound:
		return "unbound"
	case ProxyBound:
		return "proxy-bound"
	case ServerActivated:
		return "server-activated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// StateError reports a binding transition the state machine forbids.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("object: cannot %s while %s", e.Op, e.State)
}

// Object is the per-instance binding state for a declared interface table.
// Zero or more local subscribers and the bus side share one instance; the
// descriptors themselves stay in the table, shared across instances.
type Object struct {
	table *Table
	recv  any

	mu          sync.RWMutex
	state       State
	bus         bus.Bus
	peer        string
	remotePath  string
	servingPath string
	handles     []bus.Handle
	subs        map[*member.Signal][]chan any
}

// New creates an unbound instance of table. recv is the value handlers and
// property accessors receive; pass the struct embedding the Object, or nil
// to pass the Object itself.
func New(table *Table, recv any) *Object {
	return &Object{
		table: table,
		subs:  make(map[*member.Signal][]chan any),
		recv:  recv,
	}
}

// NewProxy creates an instance already bound to a remote peer.
func NewProxy(table *Table, b bus.Bus, peer, path string) (*Object, error) {
	o := New(table, nil)
	if err := o.ConnectProxy(b, peer, path); err != nil {
		return nil, err
	}
	return o, nil
}

// Table returns the shared interface table.
func (o *Object) Table() *Table { return o.table }

// State returns the current binding mode.
func (o *Object) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Method returns a fresh bound method for the declared key. Unknown keys
// are programming errors and panic.
func (o *Object) Method(key string) *member.BoundMethod {
	m, ok := o.table.methods[key]
	if !ok {
		panic(fmt.Sprintf("object: no method %q on interface %s", key, o.table.ifaceName))
	}
	return m.Bind(o)
}

// Property returns a fresh bound property for the declared key.
func (o *Object) Property(key string) *member.BoundProperty {
	p, ok := o.table.properties[key]
	if !ok {
		panic(fmt.Sprintf("object: no property %q on interface %s", key, o.table.ifaceName))
	}
	return p.Bind(o)
}

// Signal returns a fresh bound signal for the declared key.
func (o *Object) Signal(key string) *member.BoundSignal {
	s, ok := o.table.signals[key]
	if !ok {
		panic(fmt.Sprintf("object: no signal %q on interface %s", key, o.table.ifaceName))
	}
	return s.Bind(o)
}

// ConnectProxy binds the instance to a remote object. All subsequent method
// and property access routes over the bus; signal subscriptions attach to
// the remote peer's streams. The transition is one-way.
func (o *Object) ConnectProxy(b bus.Bus, peer, path string) error {
	if err := names.ValidateBusName(peer); err != nil {
		return err
	}
	if err := names.ValidateObjectPath(path); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != Unbound {
		return &StateError{Op: "connect as proxy", State: o.state}
	}
	o.state = ProxyBound
	o.bus = b
	o.peer = peer
	o.remotePath = path
	return nil
}

// StartServing exports every serving-enabled member of the table, grouped
// by interface name, at path. Method handlers then answer bus requests
// until ctx ends. The transition is one-way; unregistration is left to the
// bus engine. A failed export unexports whatever was already registered
// and returns the instance to Unbound, so the call can be retried.
func (o *Object) StartServing(ctx context.Context, b bus.Bus, path string) error {
	if err := names.ValidateObjectPath(path); err != nil {
		return err
	}

	o.mu.Lock()
	if o.state != Unbound {
		prev := o.state
		o.mu.Unlock()
		return &StateError{Op: "start serving", State: prev}
	}
	o.state = ServerActivated
	o.bus = b
	o.servingPath = path
	o.mu.Unlock()

	groups := make(map[string]*bus.InterfaceSpec)
	group := func(name string) *bus.InterfaceSpec {
		g, ok := groups[name]
		if !ok {
			g = &bus.InterfaceSpec{Name: name}
			groups[name] = g
		}
		return g
	}

	for _, key := range sortedKeys(o.table.methods) {
		m := o.table.methods[key]
		if !m.ServingEnabled() || m.InterfaceName() == "" {
			continue
		}
		bound := m.Bind(o)
		g := group(m.InterfaceName())
		g.Methods = append(g.Methods, bus.MethodSpec{
			Name:            m.Name,
			InputSignature:  m.InputSignature,
			OutputSignature: m.OutputSignature,
			InputNames:      m.ArgNames(),
			OutputNames:     m.OutputNames,
			Handler:         bound.ServeCall,
		})
	}
	for _, key := range sortedKeys(o.table.properties) {
		p := o.table.properties[key]
		if !p.ServingEnabled() || p.InterfaceName() == "" {
			continue
		}
		bound := p.Bind(o)
		spec := bus.PropertySpec{
			Name:      p.Name,
			Signature: p.Signature,
			Get:       bound.GetLocal,
		}
		if p.Set != nil {
			spec.Set = bound.SetLocal
		}
		g := group(p.InterfaceName())
		g.Properties = append(g.Properties, spec)
	}
	for _, key := range sortedKeys(o.table.signals) {
		s := o.table.signals[key]
		if !s.ServingEnabled() || s.InterfaceName() == "" {
			continue
		}
		g := group(s.InterfaceName())
		g.Signals = append(g.Signals, bus.SignalSpec{
			Name:      s.Name,
			Signature: s.Signature,
			ArgNames:  s.ArgNames,
		})
	}

	var handles []bus.Handle
	for _, name := range sortedKeys(groups) {
		h, err := b.Export(ctx, path, *groups[name])
		if err != nil {
			for _, registered := range handles {
				if uerr := registered.Unexport(); uerr != nil {
					logger.Warn("[object] rollback unexport of %s: %v", registered.Interface(), uerr)
				}
			}
			o.mu.Lock()
			o.state = Unbound
			o.bus = nil
			o.servingPath = ""
			o.mu.Unlock()
			return fmt.Errorf("object: exporting %s at %s: %w", name, path, err)
		}
		handles = append(handles, h)
	}

	o.mu.Lock()
	o.handles = handles
	o.mu.Unlock()
	logger.Info("[object] serving %d interface(s) at %s", len(handles), path)
	return nil
}

// Handles returns the interface registrations recorded by StartServing.
func (o *Object) Handles() []bus.Handle {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]bus.Handle, len(o.handles))
	copy(out, o.handles)
	return out
}

// Receiver implements member.Instance.
func (o *Object) Receiver() any {
	if o.recv != nil {
		return o.recv
	}
	return o
}

// ProxyTarget implements member.Instance.
func (o *Object) ProxyTarget() (bus.Bus, string, string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.state != ProxyBound {
		return nil, "", "", false
	}
	return o.bus, o.peer, o.remotePath, true
}

// ServingTarget implements member.Instance; ok only once at least one
// interface registration is active.
func (o *Object) ServingTarget() (bus.Bus, string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.state != ServerActivated || len(o.handles) == 0 {
		return nil, "", false
	}
	return o.bus, o.servingPath, true
}

// AttachLocalSignal implements member.Instance: it registers ch for local
// delivery of sig and returns the detach function, which removes ch from
// the fan-out and closes it.
func (o *Object) AttachLocalSignal(sig *member.Signal, ch chan any) func() {
	o.mu.Lock()
	o.subs[sig] = append(o.subs[sig], ch)
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		list := o.subs[sig]
		for i := range list {
			if list[i] == ch {
				o.subs[sig] = append(list[:i], list[i+1:]...)
				close(ch)
				return
			}
		}
	}
}

// EmitLocal implements member.Instance: value goes to every live local
// subscription of sig, in subscription order. Full queues drop the value
// rather than block the emitter.
func (o *Object) EmitLocal(sig *member.Signal, value any) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	for _, ch := range o.subs[sig] {
		select {
		case ch <- value:
		default:
			logger.Warn("[object] signal %s subscriber queue full, dropping value", sig.Name)
		}
	}
}
