package member

import (
	"context"
)

// Arg declares one positional method parameter. A non-nil Default makes the
// parameter optional when a call has to be rebuilt; defaulted parameters
// must form a suffix of the list.
type Arg struct {
	Name    string
	Default any
}

// Method is the static declaration of one bus-exposed method. The table
// builder derives the wire name from the member key when Name is empty,
// validates the signatures and stamps the owning interface; after that the
// value is read-only and shared by every instance of the declaring type.
type Method struct {
	stamp

	Name            string
	InputSignature  string
	OutputSignature string
	OutputNames     []string
	Args            []Arg
	Flags           Flags
	Handler         Handler
}

// DefaultsStart returns the index of the first parameter carrying a default
// value, or len(Args) when none do.
func (m *Method) DefaultsStart() int {
	for i := range m.Args {
		if m.Args[i].Default != nil {
			return i
		}
	}
	return len(m.Args)
}

// ArgNames returns the declared parameter names in order.
func (m *Method) ArgNames() []string {
	names := make([]string, len(m.Args))
	for i := range m.Args {
		names[i] = m.Args[i].Name
	}
	return names
}

// WithHandler returns a new descriptor sharing this method's wire contract
// with a different implementation, stamp included. This is the only
// sanctioned way to replace an inherited method's behavior.
func (m *Method) WithHandler(h Handler) *Method {
	clone := &Method{
		stamp:           m.stamp,
		Name:            m.Name,
		InputSignature:  m.InputSignature,
		OutputSignature: m.OutputSignature,
		OutputNames:     m.OutputNames,
		Args:            m.Args,
		Flags:           m.Flags,
		Handler:         h,
	}
	return clone
}

// Bind pairs the descriptor with an owning instance. Bound values are
// transient: a fresh one is produced on every access and is cheap to build.
func (m *Method) Bind(inst Instance) *BoundMethod {
	return &BoundMethod{method: m, inst: inst}
}

// rebuildArgs completes a positional argument list. Each slot takes, in
// priority order: the supplied positional argument, the keyword argument
// matching the parameter name, the declared default.
func (m *Method) rebuildArgs(args []any, kwargs map[string]any) ([]any, error) {
	full := make([]any, 0, len(m.Args))
	for i := range m.Args {
		spec := &m.Args[i]
		switch {
		case i < len(args) && args[i] != nil:
			full = append(full, args[i])
		case kwargs[spec.Name] != nil:
			full = append(full, kwargs[spec.Name])
		case spec.Default != nil:
			full = append(full, spec.Default)
		default:
			return nil, &ArgumentError{Method: m.Name, Arg: spec.Name}
		}
	}
	return full, nil
}

// BoundMethod is a Method paired with one instance.
type BoundMethod struct {
	method *Method
	inst   Instance
}

// Descriptor returns the shared method declaration.
func (b *BoundMethod) Descriptor() *Method { return b.method }

// Call invokes the method: over the bus when the instance is proxy-bound,
// against the local handler otherwise. The reply body is collapsed to a
// single value where possible.
func (b *BoundMethod) Call(ctx context.Context, args ...any) (any, error) {
	return b.CallNamed(ctx, args, nil)
}

// CallNamed is Call with keyword arguments. When the positional count
// matches the declaration exactly and no keywords are given, the arguments
// pass through untouched; otherwise the full list is rebuilt per slot.
func (b *BoundMethod) CallNamed(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
	full := args
	if len(args) != len(b.method.Args) || len(kwargs) > 0 {
		rebuilt, err := b.method.rebuildArgs(args, kwargs)
		if err != nil {
			return nil, err
		}
		full = rebuilt
	}

	busConn, peer, path, ok := b.inst.ProxyTarget()
	if !ok {
		return b.method.Handler(ctx, b.inst.Receiver(), full)
	}

	body, err := busConn.Call(ctx, peer, path,
		b.method.InterfaceName(), b.method.Name, b.method.InputSignature, full)
	if err != nil {
		return nil, err
	}
	return Collapse(body), nil
}

// ServeCall is the inbound dispatch entry point: the decoded request body
// becomes the positional argument list, the result is expanded into the
// reply body. Handler errors propagate to the bus adapter, which turns them
// into protocol error replies.
func (b *BoundMethod) ServeCall(ctx context.Context, body []any) ([]any, error) {
	result, err := b.method.Handler(ctx, b.inst.Receiver(), body)
	if err != nil {
		return nil, err
	}
	return expand(result), nil
}
