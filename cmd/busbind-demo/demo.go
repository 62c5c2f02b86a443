package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/b0bbywan/go-busbind/member"
	"github.com/b0bbywan/go-busbind/object"
)

const (
	demoInterface = "com.github.b0bbywan.busbind.Demo"
	demoBusName   = "com.github.b0bbywan.busbind"
	demoPath      = "/com/github/b0bbywan/busbind/Demo"
)

// Demo is a small served object: a greeter with a counter property and a
// signal per greeting.
type Demo struct {
	*object.Object

	mu       sync.Mutex
	greeting string
	count    int64
}

func (d *Demo) sayHello(ctx context.Context, args []any) (any, error) {
	name, _ := args[0].(string)
	punctuation, _ := args[1].(string)

	d.mu.Lock()
	d.count++
	reply := fmt.Sprintf("%s, %s%s", d.greeting, name, punctuation)
	d.mu.Unlock()

	if err := d.Signal("greeted").Emit(name); err != nil {
		return nil, err
	}
	return reply, nil
}

var demoTable = object.MustBuild(object.Spec{
	InterfaceName: demoInterface,
	Serving:       true,
	Extends:       []*object.Table{object.Common()},
	Methods: map[string]*member.Method{
		"say_hello": {
			InputSignature:  "ss",
			OutputSignature: "s",
			OutputNames:     []string{"reply"},
			Args: []member.Arg{
				{Name: "name"},
				{Name: "punctuation", Default: "!"},
			},
			Handler: func(ctx context.Context, recv any, args []any) (any, error) {
				return recv.(*Demo).sayHello(ctx, args)
			},
		},
	},
	Properties: map[string]*member.Property{
		"greeting": {
			Signature: "s",
			Get: func(recv any) (any, error) {
				d := recv.(*Demo)
				d.mu.Lock()
				defer d.mu.Unlock()
				return d.greeting, nil
			},
			Set: func(recv any, value any) error {
				s, ok := value.(string)
				if !ok {
					return fmt.Errorf("greeting must be a string, got %T", value)
				}
				d := recv.(*Demo)
				d.mu.Lock()
				d.greeting = s
				d.mu.Unlock()
				return nil
			},
		},
		"greet_count": {
			Signature: "x",
			Get: func(recv any) (any, error) {
				d := recv.(*Demo)
				d.mu.Lock()
				defer d.mu.Unlock()
				return d.count, nil
			},
		},
	},
	Signals: map[string]*member.Signal{
		"greeted": {
			Signature: "s",
			ArgNames:  []string{"name"},
		},
	},
})

func newDemo() *Demo {
	d := &Demo{greeting: "Hello"}
	d.Object = object.New(demoTable, d)
	return d
}
