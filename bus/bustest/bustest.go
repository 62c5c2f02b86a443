// Package bustest provides an in-memory Bus fake recording all traffic,
// for exercising binding code without a live bus connection.
package bustest

import (
	"context"
	"fmt"
	"sync"

	"github.com/b0bbywan/go-busbind/bus"
)

type CallRecord struct {
	Peer, Path, Iface, Member, Signature string
	Args                                 []any
}

type SignalRecord struct {
	Path, Iface, Member, Signature string
	Body                           []any
}

type PropSetRecord struct {
	Peer, Path, Iface, Prop, Signature string
	Value                              any
}

type ExportRecord struct {
	Path string
	Spec bus.InterfaceSpec
}

// Fake implements bus.Bus in memory. Configure Reply/Err/Props before use;
// inspect the recorded slices after.
type Fake struct {
	mu sync.Mutex

	Calls     []CallRecord
	Emitted   []SignalRecord
	PropSets  []PropSetRecord
	Exports   []ExportRecord
	Unexports []string

	// Reply is returned as the body of every Call; Err, when set, fails
	// Call, GetProperty and SetProperty.
	Reply []any
	Err   error

	// ExportErr fails Export for the named interface only.
	ExportErr map[string]error

	// Props backs GetProperty, keyed "iface.prop".
	Props map[string]any

	streams []*Stream
}

func New() *Fake {
	return &Fake{Props: make(map[string]any)}
}

func (f *Fake) Call(ctx context.Context, peer, path, iface, member, inSig string, args []any) ([]any, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, CallRecord{peer, path, iface, member, inSig, args})
	reply, err := f.Reply, f.Err
	f.mu.Unlock()
	return reply, err
}

func (f *Fake) GetProperty(ctx context.Context, peer, path, iface, prop string) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	value, ok := f.Props[iface+"."+prop]
	if !ok {
		return nil, fmt.Errorf("bustest: no property %s.%s", iface, prop)
	}
	return value, nil
}

func (f *Fake) SetProperty(ctx context.Context, peer, path, iface, prop, sig string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.PropSets = append(f.PropSets, PropSetRecord{peer, path, iface, prop, sig, value})
	return nil
}

func (f *Fake) EmitSignal(path, iface, member, sig string, body []any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.Emitted = append(f.Emitted, SignalRecord{path, iface, member, sig, body})
	return nil
}

// Stream is a Fake subscription; feed it through Fake.Push.
type Stream struct {
	fake *Fake
	ch   chan []any
	once sync.Once

	Peer, Path, Iface, Member string
}

func (s *Stream) C() <-chan []any { return s.ch }

func (s *Stream) Close() error {
	s.once.Do(func() {
		s.fake.mu.Lock()
		for i, other := range s.fake.streams {
			if other == s {
				s.fake.streams = append(s.fake.streams[:i], s.fake.streams[i+1:]...)
				break
			}
		}
		s.fake.mu.Unlock()
		close(s.ch)
	})
	return nil
}

func (f *Fake) Subscribe(ctx context.Context, peer, path, iface, member string) (bus.SignalStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	s := &Stream{fake: f, ch: make(chan []any, 16), Peer: peer, Path: path, Iface: iface, Member: member}
	f.streams = append(f.streams, s)
	return s, nil
}

// Push delivers a signal body to every open subscription matching the
// address.
func (f *Fake) Push(peer, path, iface, member string, body []any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.streams {
		if s.Peer == peer && s.Path == path && s.Iface == iface && s.Member == member {
			s.ch <- body
		}
	}
}

// Handle is the Fake's export registration.
type Handle struct {
	fake       *Fake
	path       string
	iface      string
	Unexported bool
}

func (h *Handle) Path() string      { return h.path }
func (h *Handle) Interface() string { return h.iface }

func (h *Handle) Unexport() error {
	h.fake.mu.Lock()
	defer h.fake.mu.Unlock()
	h.Unexported = true
	h.fake.Unexports = append(h.fake.Unexports, h.iface)
	return nil
}

func (f *Fake) Export(ctx context.Context, path string, spec bus.InterfaceSpec) (bus.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	if err := f.ExportErr[spec.Name]; err != nil {
		return nil, err
	}
	f.Exports = append(f.Exports, ExportRecord{Path: path, Spec: spec})
	return &Handle{fake: f, path: path, iface: spec.Name}, nil
}

// ExportedInterface returns the recorded spec for an interface name, if
// any export carried it.
func (f *Fake) ExportedInterface(name string) (bus.InterfaceSpec, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.Exports {
		if e.Spec.Name == name {
			return e.Spec, true
		}
	}
	return bus.InterfaceSpec{}, false
}

var _ bus.Bus = (*Fake)(nil)
