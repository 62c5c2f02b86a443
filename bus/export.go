package bus

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/b0bbywan/go-busbind/logger"
)

var (
	anyType     = reflect.TypeOf((*any)(nil)).Elem()
	dbusErrType = reflect.TypeOf((*dbus.Error)(nil))
)

// exportedObject tracks every interface registered at one object path so
// the shared Properties and Introspectable dispatch can cover all of them.
type exportedObject struct {
	interfaces map[string]*InterfaceSpec
}

type handle struct {
	conn  *Conn
	path  dbus.ObjectPath
	iface string
}

func (h *handle) Path() string      { return string(h.path) }
func (h *handle) Interface() string { return h.iface }

func (h *handle) Unexport() error {
	h.conn.mu.Lock()
	if obj, ok := h.conn.exports[h.path]; ok {
		delete(obj.interfaces, h.iface)
	}
	h.conn.mu.Unlock()
	if err := h.conn.conn.Export(nil, h.path, h.iface); err != nil {
		return err
	}
	return h.conn.refreshIntrospection(h.path)
}

func (c *Conn) Export(ctx context.Context, path string, spec InterfaceSpec) (Handle, error) {
	objPath := dbus.ObjectPath(path)
	if !objPath.IsValid() {
		return nil, fmt.Errorf("bus: invalid object path %q", path)
	}

	table := make(map[string]interface{}, len(spec.Methods))
	for _, m := range spec.Methods {
		fn, err := makeExportedMethod(ctx, m)
		if err != nil {
			return nil, err
		}
		table[m.Name] = fn
	}
	if err := c.conn.ExportMethodTable(table, objPath, spec.Name); err != nil {
		return nil, err
	}

	c.mu.Lock()
	obj, ok := c.exports[objPath]
	if !ok {
		obj = &exportedObject{interfaces: make(map[string]*InterfaceSpec)}
		c.exports[objPath] = obj
	}
	specCopy := spec
	obj.interfaces[spec.Name] = &specCopy
	c.mu.Unlock()

	if !ok {
		// First interface at this path: wire up the shared standard
		// interfaces.
		props := &propDispatch{conn: c, path: objPath}
		if err := c.conn.Export(props, objPath, DBUS_PROP_IFACE); err != nil {
			return nil, err
		}
	}
	if err := c.refreshIntrospection(objPath); err != nil {
		return nil, err
	}

	logger.Debug("[bus] exported %s at %s", spec.Name, path)
	return &handle{conn: c, path: objPath, iface: spec.Name}, nil
}

// makeExportedMethod builds an arity-correct function for godbus's method
// table export: one empty-interface parameter per declared input type, one
// result per declared output type, plus the trailing *dbus.Error.
func makeExportedMethod(ctx context.Context, m MethodSpec) (interface{}, error) {
	nin, err := Arity(m.InputSignature)
	if err != nil {
		return nil, err
	}
	nout, err := Arity(m.OutputSignature)
	if err != nil {
		return nil, err
	}

	in := make([]reflect.Type, nin)
	for i := range in {
		in[i] = anyType
	}
	out := make([]reflect.Type, nout+1)
	for i := 0; i < nout; i++ {
		out[i] = anyType
	}
	out[nout] = dbusErrType

	handler := m.Handler
	name := m.Name
	fn := reflect.MakeFunc(reflect.FuncOf(in, out, false), func(args []reflect.Value) []reflect.Value {
		body := make([]any, len(args))
		for i, a := range args {
			body[i] = a.Interface()
		}

		results := make([]reflect.Value, nout+1)
		reply, err := handler(ctx, body)
		if err != nil {
			logger.Debug("[bus] %s failed: %v", name, err)
			for i := 0; i < nout; i++ {
				results[i] = reflect.Zero(anyType)
			}
			results[nout] = reflect.ValueOf(toDBusError(err))
			return results
		}
		for i := 0; i < nout; i++ {
			if i < len(reply) && reply[i] != nil {
				results[i] = reflect.ValueOf(reply[i]).Convert(anyType)
			} else {
				results[i] = reflect.Zero(anyType)
			}
		}
		results[nout] = reflect.Zero(dbusErrType)
		return results
	})
	return fn.Interface(), nil
}

// toDBusError translates a handler error into a bus error reply. RemoteError
// values keep their error name; anything else becomes a generic failure.
func toDBusError(err error) *dbus.Error {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return dbus.NewError(remote.Name, remote.Body)
	}
	return dbus.MakeFailedError(err)
}

// propDispatch serves org.freedesktop.DBus.Properties for every interface
// exported at one path, routing to the live get/set entry points.
type propDispatch struct {
	conn *Conn
	path dbus.ObjectPath
}

func (p *propDispatch) lookup(iface, prop string) (*PropertySpec, *dbus.Error) {
	p.conn.mu.Lock()
	defer p.conn.mu.Unlock()
	obj, ok := p.conn.exports[p.path]
	if !ok {
		return nil, dbus.NewError(ERR_UNKNOWN_INTERFACE, []any{iface})
	}
	spec, ok := obj.interfaces[iface]
	if !ok {
		return nil, dbus.NewError(ERR_UNKNOWN_INTERFACE, []any{iface})
	}
	for i := range spec.Properties {
		if spec.Properties[i].Name == prop {
			return &spec.Properties[i], nil
		}
	}
	return nil, dbus.NewError(ERR_UNKNOWN_PROPERTY, []any{prop})
}

func (p *propDispatch) Get(iface, prop string) (dbus.Variant, *dbus.Error) {
	spec, derr := p.lookup(iface, prop)
	if derr != nil {
		return dbus.Variant{}, derr
	}
	value, err := spec.Get()
	if err != nil {
		return dbus.Variant{}, toDBusError(err)
	}
	return makeVariant(value, spec.Signature), nil
}

func (p *propDispatch) Set(iface, prop string, value dbus.Variant) *dbus.Error {
	spec, derr := p.lookup(iface, prop)
	if derr != nil {
		return derr
	}
	if spec.Set == nil {
		return dbus.NewError(ERR_READ_ONLY, []any{prop})
	}
	if err := spec.Set(value.Value()); err != nil {
		return toDBusError(err)
	}
	return nil
}

func (p *propDispatch) GetAll(iface string) (map[string]dbus.Variant, *dbus.Error) {
	p.conn.mu.Lock()
	obj, ok := p.conn.exports[p.path]
	var spec *InterfaceSpec
	if ok {
		spec, ok = obj.interfaces[iface]
	}
	p.conn.mu.Unlock()
	if !ok {
		return nil, dbus.NewError(ERR_UNKNOWN_INTERFACE, []any{iface})
	}

	all := make(map[string]dbus.Variant, len(spec.Properties))
	for i := range spec.Properties {
		value, err := spec.Properties[i].Get()
		if err != nil {
			logger.Warn("[bus] GetAll %s.%s: %v", iface, spec.Properties[i].Name, err)
			continue
		}
		all[spec.Properties[i].Name] = makeVariant(value, spec.Properties[i].Signature)
	}
	return all, nil
}

func makeVariant(value any, sig string) dbus.Variant {
	if parsed, err := dbus.ParseSignature(sig); err == nil {
		return dbus.MakeVariantWithSignature(value, parsed)
	}
	return dbus.MakeVariant(value)
}

// propertiesIntrospection mirrors the Properties dispatch above; the
// introspect package only ships descriptions for Introspectable itself.
var propertiesIntrospection = introspect.Interface{
	Name: DBUS_PROP_IFACE,
	Methods: []introspect.Method{
		{Name: "Get", Args: []introspect.Arg{
			{Name: "interface_name", Type: "s", Direction: "in"},
			{Name: "property_name", Type: "s", Direction: "in"},
			{Name: "value", Type: "v", Direction: "out"},
		}},
		{Name: "Set", Args: []introspect.Arg{
			{Name: "interface_name", Type: "s", Direction: "in"},
			{Name: "property_name", Type: "s", Direction: "in"},
			{Name: "value", Type: "v", Direction: "in"},
		}},
		{Name: "GetAll", Args: []introspect.Arg{
			{Name: "interface_name", Type: "s", Direction: "in"},
			{Name: "props", Type: "a{sv}", Direction: "out"},
		}},
	},
}

// refreshIntrospection re-exports the Introspectable interface for a path
// from the current interface registry.
func (c *Conn) refreshIntrospection(path dbus.ObjectPath) error {
	c.mu.Lock()
	obj, ok := c.exports[path]
	if !ok || len(obj.interfaces) == 0 {
		c.mu.Unlock()
		return c.conn.Export(nil, path, INTROSPECTABLE)
	}

	names := make([]string, 0, len(obj.interfaces))
	for name := range obj.interfaces {
		names = append(names, name)
	}
	sort.Strings(names)

	node := &introspect.Node{
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			propertiesIntrospection,
		},
	}
	for _, name := range names {
		node.Interfaces = append(node.Interfaces, specIntrospection(obj.interfaces[name]))
	}
	c.mu.Unlock()

	return c.conn.Export(introspect.NewIntrospectable(node), path, INTROSPECTABLE)
}

// specIntrospection renders one exported interface as introspection
// metadata, splitting signatures back into per-argument types.
func specIntrospection(spec *InterfaceSpec) introspect.Interface {
	out := introspect.Interface{Name: spec.Name}

	for _, m := range spec.Methods {
		method := introspect.Method{Name: m.Name}
		method.Args = append(method.Args, signatureArgs(m.InputSignature, m.InputNames, "in")...)
		method.Args = append(method.Args, signatureArgs(m.OutputSignature, m.OutputNames, "out")...)
		out.Methods = append(out.Methods, method)
	}
	for _, p := range spec.Properties {
		access := "read"
		if p.Set != nil {
			access = "readwrite"
		}
		out.Properties = append(out.Properties, introspect.Property{
			Name:   p.Name,
			Type:   p.Signature,
			Access: access,
		})
	}
	for _, s := range spec.Signals {
		signal := introspect.Signal{Name: s.Name}
		signal.Args = append(signal.Args, signatureArgs(s.Signature, s.ArgNames, "")...)
		out.Signals = append(out.Signals, signal)
	}
	return out
}

func signatureArgs(sig string, names []string, direction string) []introspect.Arg {
	types, err := SplitSignature(sig)
	if err != nil {
		logger.Warn("[bus] bad signature %q in introspection: %v", sig, err)
		return nil
	}
	args := make([]introspect.Arg, len(types))
	for i, t := range types {
		arg := introspect.Arg{Type: t, Direction: direction}
		if i < len(names) {
			arg.Name = names[i]
		}
		args[i] = arg
	}
	return args
}
