package member

import (
	"sync"

	"github.com/b0bbywan/go-busbind/bus"
)

// fakeInstance is a minimal Instance for exercising bound members without
// the object package.
type fakeInstance struct {
	mu   sync.Mutex
	recv any
	b    bus.Bus

	proxied    bool
	peer       string
	remotePath string

	served      bool
	servingPath string

	subs map[*Signal][]chan any
}

func newFakeInstance(recv any, b bus.Bus) *fakeInstance {
	return &fakeInstance{recv: recv, b: b, subs: make(map[*Signal][]chan any)}
}

func (f *fakeInstance) Receiver() any { return f.recv }

func (f *fakeInstance) ProxyTarget() (bus.Bus, string, string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.proxied {
		return nil, "", "", false
	}
	return f.b, f.peer, f.remotePath, true
}

func (f *fakeInstance) ServingTarget() (bus.Bus, string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.served {
		return nil, "", false
	}
	return f.b, f.servingPath, true
}

func (f *fakeInstance) AttachLocalSignal(sig *Signal, ch chan any) func() {
	f.mu.Lock()
	f.subs[sig] = append(f.subs[sig], ch)
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		list := f.subs[sig]
		for i := range list {
			if list[i] == ch {
				f.subs[sig] = append(list[:i], list[i+1:]...)
				close(ch)
				return
			}
		}
	}
}

func (f *fakeInstance) EmitLocal(sig *Signal, value any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs[sig] {
		select {
		case ch <- value:
		default:
		}
	}
}
