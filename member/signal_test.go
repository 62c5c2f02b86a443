package member

import (
	"context"
	"testing"
	"time"

	"github.com/b0bbywan/go-busbind/bus/bustest"
)

func newChangedSignal(signature string) *Signal {
	s := &Signal{
		Name:      "Changed",
		Signature: signature,
		ArgNames:  []string{"value"},
	}
	if err := s.SetOwner("com.example.Mixer", true); err != nil {
		panic(err)
	}
	return s
}

func recvValue(t *testing.T, sub *Subscription) any {
	t.Helper()
	select {
	case v := <-sub.C():
		return v
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for signal value")
		return nil
	}
}

func TestEmitLocalOnlyWithoutServing(t *testing.T) {
	fake := bustest.New()
	inst := newFakeInstance(nil, fake)
	bound := newChangedSignal("s").Bind(inst)

	sub, err := bound.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Close()

	if err := bound.Emit("hello"); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	if got := recvValue(t, sub); got != "hello" {
		t.Errorf("subscriber got %v, want hello", got)
	}
	if len(fake.Emitted) != 0 {
		t.Errorf("no bus message expected without active registrations, got %d", len(fake.Emitted))
	}
}

func TestEmitWithServingSendsOneBusMessage(t *testing.T) {
	fake := bustest.New()
	inst := newFakeInstance(nil, fake)
	inst.served = true
	inst.servingPath = "/mixer"

	bound := newChangedSignal("s").Bind(inst)
	sub, err := bound.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Close()

	if err := bound.Emit("loud"); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}

	if len(fake.Emitted) != 1 {
		t.Fatalf("got %d bus messages, want exactly 1", len(fake.Emitted))
	}
	msg := fake.Emitted[0]
	if msg.Path != "/mixer" || msg.Iface != "com.example.Mixer" || msg.Member != "Changed" {
		t.Errorf("unexpected signal address %+v", msg)
	}
	if got := recvValue(t, sub); got != "loud" {
		t.Errorf("local subscriber got %v, want loud", got)
	}
}

func TestEmitSplatRule(t *testing.T) {
	fake := bustest.New()
	inst := newFakeInstance(nil, fake)
	inst.served = true
	inst.servingPath = "/mixer"

	// Multi-value signature: a tuple-like value is splatted positionally.
	if err := newChangedSignal("ss").Bind(inst).Emit([]any{"a", "b"}); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	if body := fake.Emitted[0].Body; len(body) != 2 || body[0] != "a" || body[1] != "b" {
		t.Errorf("splat body = %v, want [a b]", body)
	}

	// Struct signature: the tuple is one value.
	if err := newChangedSignal("(ss)").Bind(inst).Emit([]any{"a", "b"}); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	if body := fake.Emitted[1].Body; len(body) != 1 {
		t.Errorf("struct body = %v, want a single value", body)
	}
}

func TestClosedSubscriptionLeavesFanOut(t *testing.T) {
	inst := newFakeInstance(nil, nil)
	bound := newChangedSignal("s").Bind(inst)

	sub, err := bound.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	keeper, err := bound.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer keeper.Close()

	sub.Close()
	sub.Close() // closing twice is safe

	if err := bound.Emit("after-close"); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	if got := recvValue(t, keeper); got != "after-close" {
		t.Errorf("surviving subscriber got %v, want after-close", got)
	}
	if _, open := <-sub.C(); open {
		t.Error("closed subscription channel should be closed")
	}
	if got := len(inst.subs[bound.Descriptor()]); got != 1 {
		t.Errorf("fan-out list has %d entries, want 1", got)
	}
}

func TestIndependentSubscriptions(t *testing.T) {
	inst := newFakeInstance(nil, nil)
	bound := newChangedSignal("s").Bind(inst)

	first, _ := bound.Subscribe(context.Background())
	defer first.Close()

	if err := bound.Emit("one"); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}

	// A later subscription's backlog starts at subscription time.
	second, _ := bound.Subscribe(context.Background())
	defer second.Close()

	if err := bound.Emit("two"); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}

	if got := recvValue(t, first); got != "one" {
		t.Errorf("first subscriber got %v, want one", got)
	}
	if got := recvValue(t, first); got != "two" {
		t.Errorf("first subscriber got %v, want two", got)
	}
	if got := recvValue(t, second); got != "two" {
		t.Errorf("second subscriber got %v, want two", got)
	}
}

func TestRemoteSubscription(t *testing.T) {
	fake := bustest.New()
	inst := newFakeInstance(nil, fake)
	inst.proxied = true
	inst.peer = "com.example.Peer"
	inst.remotePath = "/mixer"

	bound := newChangedSignal("s").Bind(inst)
	sub, err := bound.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Close()

	fake.Push("com.example.Peer", "/mixer", "com.example.Mixer", "Changed", []any{"remote"})
	if got := recvValue(t, sub); got != "remote" {
		t.Errorf("remote subscriber got %v, want remote", got)
	}

	// Multi-value bodies come through as a slice.
	fake.Push("com.example.Peer", "/mixer", "com.example.Mixer", "Changed", []any{"a", "b"})
	got := recvValue(t, sub)
	pair, ok := got.([]any)
	if !ok || len(pair) != 2 {
		t.Errorf("multi-value body = %v, want a 2-value slice", got)
	}
}

func TestRemoteSubscriptionAbandonedWithoutDraining(t *testing.T) {
	fake := bustest.New()
	inst := newFakeInstance(nil, fake)
	inst.proxied = true
	inst.peer = "com.example.Peer"
	inst.remotePath = "/mixer"

	bound := newChangedSignal("s").Bind(inst)
	sub, err := bound.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	extra := 8
	for i := 0; i < QueueSize+extra; i++ {
		fake.Push("com.example.Peer", "/mixer", "com.example.Mixer", "Changed", []any{i})
	}

	// Wait for the forwarder to fill the queue; the overflow is dropped,
	// never sent.
	deadline := time.After(time.Second)
	for len(sub.C()) < QueueSize {
		select {
		case <-deadline:
			t.Fatalf("queue holds %d values, want %d", len(sub.C()), QueueSize)
		case <-time.After(time.Millisecond):
		}
	}
	time.Sleep(10 * time.Millisecond)

	// Closing a full, undrained subscription must still terminate delivery.
	sub.Close()

	received := 0
	for {
		select {
		case _, open := <-sub.C():
			if !open {
				if received != QueueSize {
					t.Errorf("drained %d values, want %d", received, QueueSize)
				}
				return
			}
			received++
		case <-time.After(time.Second):
			t.Fatalf("channel never closed after Close, drained %d values", received)
		}
	}
}

func TestCollapse(t *testing.T) {
	if Collapse(nil) != nil {
		t.Error("empty body should collapse to nil")
	}
	if Collapse([]any{"x"}) != "x" {
		t.Error("single body should collapse to the sole value")
	}
	if vs, ok := Collapse([]any{1, 2}).([]any); !ok || len(vs) != 2 {
		t.Error("multi body should stay a slice")
	}
}
