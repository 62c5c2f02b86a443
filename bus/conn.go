package bus

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/b0bbywan/go-busbind/logger"
)

// DefaultTimeout is applied to bus calls whose context carries no deadline.
var DefaultTimeout = 5 * time.Second

// signalQueueSize is the per-subscription buffer; a subscriber that falls
// this far behind starts losing signals, with a warning.
var signalQueueSize = 32

// Conn adapts a godbus connection to the Bus contract.
type Conn struct {
	conn *dbus.Conn

	demuxOnce sync.Once
	sigCh     chan *dbus.Signal

	mu      sync.Mutex
	subs    map[*subscription]struct{}
	exports map[dbus.ObjectPath]*exportedObject
}

// NewConn wraps an established godbus connection.
func NewConn(conn *dbus.Conn) *Conn {
	return &Conn{
		conn:    conn,
		subs:    make(map[*subscription]struct{}),
		exports: make(map[dbus.ObjectPath]*exportedObject),
	}
}

// Raw exposes the underlying godbus connection for callers that need
// engine features outside the Bus contract.
func (c *Conn) Raw() *dbus.Conn { return c.conn }

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, DefaultTimeout)
}

// wrapCallError translates godbus call failures into the package taxonomy.
func wrapCallError(err error) error {
	if err == nil {
		return nil
	}
	var dbusErr dbus.Error
	if errors.As(err, &dbusErr) {
		return &RemoteError{Name: dbusErr.Name, Body: dbusErr.Body}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{}
	}
	return err
}

func (c *Conn) Call(ctx context.Context, peer, path, iface, member, inSig string, args []any) ([]any, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	obj := c.conn.Object(peer, dbus.ObjectPath(path))
	call := obj.CallWithContext(ctx, iface+"."+member, 0, args...)
	if call.Err != nil {
		return nil, wrapCallError(call.Err)
	}
	return call.Body, nil
}

func (c *Conn) GetProperty(ctx context.Context, peer, path, iface, prop string) (any, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	obj := c.conn.Object(peer, dbus.ObjectPath(path))
	call := obj.CallWithContext(ctx, PROP_GET, 0, iface, prop)
	if call.Err != nil {
		return nil, wrapCallError(call.Err)
	}
	var v dbus.Variant
	if err := call.Store(&v); err != nil {
		return nil, err
	}
	return v.Value(), nil
}

func (c *Conn) SetProperty(ctx context.Context, peer, path, iface, prop, sig string, value any) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	parsed, err := dbus.ParseSignature(sig)
	if err != nil {
		return err
	}
	variant := dbus.MakeVariantWithSignature(value, parsed)
	obj := c.conn.Object(peer, dbus.ObjectPath(path))
	return wrapCallError(obj.CallWithContext(ctx, PROP_SET, 0, iface, prop, variant).Err)
}

func (c *Conn) EmitSignal(path, iface, member, sig string, body []any) error {
	return c.conn.Emit(dbus.ObjectPath(path), iface+"."+member, body...)
}

// nameOwner resolves a well-known bus name to the unique name of its
// current owner. Unique names pass through.
func (c *Conn) nameOwner(ctx context.Context, name string) (string, error) {
	if name == "" || name[0] == ':' {
		return name, nil
	}
	var owner string
	call := c.conn.BusObject().CallWithContext(ctx, BUS_GET_NAME_OWNER, 0, name)
	if call.Err != nil {
		return "", wrapCallError(call.Err)
	}
	if err := call.Store(&owner); err != nil {
		return "", err
	}
	return owner, nil
}

type subscription struct {
	conn *Conn
	ch   chan []any
	once sync.Once

	// match fields; sender and owner are both accepted because signals
	// carry the emitter's unique name, not the well-known one.
	sender string
	owner  string
	path   dbus.ObjectPath
	name   string
	opts   []dbus.MatchOption
}

func (s *subscription) C() <-chan []any { return s.ch }

func (s *subscription) Close() error {
	var err error
	s.once.Do(func() {
		s.conn.mu.Lock()
		delete(s.conn.subs, s)
		s.conn.mu.Unlock()
		err = s.conn.conn.RemoveMatchSignal(s.opts...)
		close(s.ch)
	})
	return err
}

func (s *subscription) matches(sig *dbus.Signal) bool {
	if sig.Path != s.path || sig.Name != s.name {
		return false
	}
	return sig.Sender == s.sender || sig.Sender == s.owner
}

func (c *Conn) Subscribe(ctx context.Context, peer, path, iface, member string) (SignalStream, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	c.demuxOnce.Do(func() {
		c.sigCh = make(chan *dbus.Signal, signalQueueSize)
		c.conn.Signal(c.sigCh)
		go c.demux()
	})

	owner, err := c.nameOwner(ctx, peer)
	if err != nil {
		// The peer may not be on the bus yet; match on the given name only.
		logger.Debug("[bus] no owner for %s: %v", peer, err)
		owner = peer
	}

	opts := []dbus.MatchOption{
		dbus.WithMatchSender(peer),
		dbus.WithMatchObjectPath(dbus.ObjectPath(path)),
		dbus.WithMatchInterface(iface),
		dbus.WithMatchMember(member),
	}
	if err := c.conn.AddMatchSignal(opts...); err != nil {
		return nil, wrapCallError(err)
	}

	sub := &subscription{
		conn:   c,
		ch:     make(chan []any, signalQueueSize),
		sender: peer,
		owner:  owner,
		path:   dbus.ObjectPath(path),
		name:   iface + "." + member,
		opts:   opts,
	}
	c.mu.Lock()
	c.subs[sub] = struct{}{}
	c.mu.Unlock()
	return sub, nil
}

// demux fans incoming signals out to every matching subscription, in the
// order they arrive from the engine.
func (c *Conn) demux() {
	for sig := range c.sigCh {
		c.mu.Lock()
		for sub := range c.subs {
			if !sub.matches(sig) {
				continue
			}
			select {
			case sub.ch <- sig.Body:
			default:
				logger.Warn("[bus] subscriber queue full, dropping %s", sig.Name)
			}
		}
		c.mu.Unlock()
	}
}
