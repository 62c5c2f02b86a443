package member

import (
	"context"
	"strings"
	"sync"

	"github.com/b0bbywan/go-busbind/logger"
)

// Signal is the static declaration of one bus-exposed signal. Shared
// read-only after the table builder stamps it.
type Signal struct {
	stamp

	Name      string
	Signature string
	ArgNames  []string
	Flags     Flags
}

// Bind pairs the descriptor with an owning instance.
func (s *Signal) Bind(inst Instance) *BoundSignal {
	return &BoundSignal{sig: s, inst: inst}
}

// BoundSignal is a Signal paired with one instance.
type BoundSignal struct {
	sig  *Signal
	inst Instance
}

// Descriptor returns the shared signal declaration.
func (b *BoundSignal) Descriptor() *Signal { return b.sig }

// Subscription delivers one consumer's signal values in arrival order.
// Close releases it; the channel is closed and other subscriptions are
// untouched. Closing twice is safe.
type Subscription struct {
	ch      <-chan any
	release func()
	once    sync.Once
}

// C returns the delivery channel. It is closed when the subscription is.
func (s *Subscription) C() <-chan any { return s.ch }

// Close detaches the subscription from the fan-out.
func (s *Subscription) Close() {
	s.once.Do(s.release)
}

// Subscribe starts delivery of this signal. On a proxy-bound instance the
// values come from the remote peer's signal stream; otherwise from local
// Emit calls on this instance. Every call yields an independent
// subscription whose backlog starts now.
func (b *BoundSignal) Subscribe(ctx context.Context) (*Subscription, error) {
	if busConn, peer, path, ok := b.inst.ProxyTarget(); ok {
		stream, err := busConn.Subscribe(ctx, peer, path, b.sig.InterfaceName(), b.sig.Name)
		if err != nil {
			return nil, err
		}
		ch := make(chan any, QueueSize)
		go func() {
			defer close(ch)
			for body := range stream.C() {
				select {
				case ch <- Collapse(body):
				default:
					logger.Warn("[member] signal %s subscriber queue full, dropping value", b.sig.Name)
				}
			}
		}()
		return &Subscription{ch: ch, release: func() { stream.Close() }}, nil
	}

	ch := make(chan any, QueueSize)
	detach := b.inst.AttachLocalSignal(b.sig, ch)
	return &Subscription{ch: ch, release: detach}, nil
}

// Emit broadcasts a value from the serving side. When the instance has at
// least one active interface registration a bus signal goes out; live local
// subscribers receive the value in every case, which is what lets interface
// objects be exercised without a bus connection.
func (b *BoundSignal) Emit(value any) error {
	if busConn, path, ok := b.inst.ServingTarget(); ok {
		if err := busConn.EmitSignal(path,
			b.sig.InterfaceName(), b.sig.Name, b.sig.Signature, b.emitBody(value)); err != nil {
			return err
		}
	}
	b.inst.EmitLocal(b.sig, value)
	return nil
}

// emitBody applies the wire-encoding splat rule: a []any value is encoded
// as multiple positional values unless the declared signature is itself a
// single struct type.
func (b *BoundSignal) emitBody(value any) []any {
	if vs, ok := value.([]any); ok && !strings.HasPrefix(b.sig.Signature, "(") {
		return vs
	}
	if value == nil {
		return nil
	}
	return []any{value}
}
