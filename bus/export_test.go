package bus

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/godbus/dbus/v5"
)

func TestMakeExportedMethodArity(t *testing.T) {
	spec := MethodSpec{
		Name:            "Mix",
		InputSignature:  "sis",
		OutputSignature: "s",
		Handler: func(ctx context.Context, body []any) ([]any, error) {
			return []any{"ok"}, nil
		},
	}
	fn, err := makeExportedMethod(context.Background(), spec)
	if err != nil {
		t.Fatalf("makeExportedMethod failed: %v", err)
	}

	typ := reflect.TypeOf(fn)
	if typ.Kind() != reflect.Func {
		t.Fatalf("expected func, got %v", typ.Kind())
	}
	if typ.NumIn() != 3 {
		t.Errorf("NumIn = %d, want 3", typ.NumIn())
	}
	// outputs plus the trailing *dbus.Error
	if typ.NumOut() != 2 {
		t.Errorf("NumOut = %d, want 2", typ.NumOut())
	}
}

func TestMakeExportedMethodDispatch(t *testing.T) {
	var gotBody []any
	spec := MethodSpec{
		Name:            "Echo",
		InputSignature:  "ss",
		OutputSignature: "s",
		Handler: func(ctx context.Context, body []any) ([]any, error) {
			gotBody = body
			return []any{body[0].(string) + body[1].(string)}, nil
		},
	}
	fn, err := makeExportedMethod(context.Background(), spec)
	if err != nil {
		t.Fatalf("makeExportedMethod failed: %v", err)
	}

	results := reflect.ValueOf(fn).Call([]reflect.Value{
		reflect.ValueOf(any("foo")),
		reflect.ValueOf(any("bar")),
	})
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if !results[1].IsNil() {
		t.Fatalf("unexpected dbus error: %v", results[1].Interface())
	}
	if got := results[0].Interface(); got != "foobar" {
		t.Errorf("result = %v, want foobar", got)
	}
	if len(gotBody) != 2 {
		t.Errorf("handler body = %v, want 2 values", gotBody)
	}
}

func TestMakeExportedMethodError(t *testing.T) {
	spec := MethodSpec{
		Name:           "Boom",
		InputSignature: "",
		Handler: func(ctx context.Context, body []any) ([]any, error) {
			return nil, errors.New("kaput")
		},
	}
	fn, err := makeExportedMethod(context.Background(), spec)
	if err != nil {
		t.Fatalf("makeExportedMethod failed: %v", err)
	}

	results := reflect.ValueOf(fn).Call(nil)
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	derr, ok := results[0].Interface().(*dbus.Error)
	if !ok || derr == nil {
		t.Fatalf("expected *dbus.Error, got %v", results[0].Interface())
	}
	if !strings.Contains(derr.Error(), "kaput") {
		t.Errorf("error %q should carry the handler message", derr.Error())
	}
}

func TestMakeExportedMethodBadSignature(t *testing.T) {
	spec := MethodSpec{Name: "Bad", InputSignature: "(s", Handler: func(ctx context.Context, body []any) ([]any, error) { return nil, nil }}
	if _, err := makeExportedMethod(context.Background(), spec); err == nil {
		t.Fatal("expected error for invalid input signature")
	}
}

func TestToDBusErrorKeepsName(t *testing.T) {
	remote := &RemoteError{Name: "com.example.Error.Denied", Body: []any{"nope"}}
	derr := toDBusError(remote)
	if derr.Name != "com.example.Error.Denied" {
		t.Errorf("Name = %q, want com.example.Error.Denied", derr.Name)
	}

	derr = toDBusError(errors.New("plain"))
	if derr.Name != "org.freedesktop.DBus.Error.Failed" {
		t.Errorf("Name = %q, want org.freedesktop.DBus.Error.Failed", derr.Name)
	}
}

func TestWrapCallError(t *testing.T) {
	wrapped := wrapCallError(dbus.Error{Name: "com.example.Error.Busy", Body: []interface{}{"try later"}})
	var remote *RemoteError
	if !errors.As(wrapped, &remote) {
		t.Fatalf("expected RemoteError, got %T", wrapped)
	}
	if remote.Name != "com.example.Error.Busy" {
		t.Errorf("Name = %q, want com.example.Error.Busy", remote.Name)
	}

	if wrapCallError(nil) != nil {
		t.Error("wrapCallError(nil) should be nil")
	}

	var timeout *TimeoutError
	if !errors.As(wrapCallError(context.DeadlineExceeded), &timeout) {
		t.Error("deadline errors should map to TimeoutError")
	}
}

func TestSignatureArgs(t *testing.T) {
	args := signatureArgs("sa{sv}", []string{"name"}, "in")
	if len(args) != 2 {
		t.Fatalf("got %d args, want 2", len(args))
	}
	if args[0].Name != "name" || args[0].Type != "s" || args[0].Direction != "in" {
		t.Errorf("unexpected first arg: %+v", args[0])
	}
	if args[1].Name != "" || args[1].Type != "a{sv}" {
		t.Errorf("unexpected second arg: %+v", args[1])
	}
}
