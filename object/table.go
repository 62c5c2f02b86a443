// Package object assembles validated interface tables for bindable types
// and provides the per-instance Object that binds them to a bus, either as
// a proxy for a remote peer or as a served local implementation.
package object

import (
	"fmt"
	"sort"

	"github.com/b0bbywan/go-busbind/bus"
	"github.com/b0bbywan/go-busbind/member"
	"github.com/b0bbywan/go-busbind/names"
)

// DeclarationError reports an invalid interface declaration: a bad wire
// name, an illegal member redeclaration, or a malformed descriptor. It is
// raised when the table is built, never at call time.
type DeclarationError struct {
	Interface string
	Key       string
	Reason    string
}

func (e *DeclarationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("object: interface %q: %s", e.Interface, e.Reason)
	}
	return fmt.Sprintf("object: interface %q, member %q: %s", e.Interface, e.Key, e.Reason)
}

// Spec declares one interface for the table builder. Member keys are the
// Go-side snake_case identifiers; wire names derive from them unless the
// descriptor sets one explicitly. Overrides is the only sanctioned way to
// replace an inherited method's implementation: the base descriptor's wire
// contract is kept, only the handler changes.
type Spec struct {
	// InterfaceName may be empty for non-serving mix-ins.
	InterfaceName string
	Serving       bool
	Extends       []*Table
	Methods       map[string]*member.Method
	Properties    map[string]*member.Property
	Signals       map[string]*member.Signal
	Overrides     map[string]member.Handler
}

// Table is the validated, merged member table for one bindable type.
// Immutable after Build.
type Table struct {
	ifaceName  string
	serving    bool
	methods    map[string]*member.Method
	properties map[string]*member.Property
	signals    map[string]*member.Signal
	declared   map[string]struct{}
}

// InterfaceName returns the wire name declared for this table's own
// members, empty for mix-ins.
func (t *Table) InterfaceName() string { return t.ifaceName }

// Serving reports whether this table's own members are served.
func (t *Table) Serving() bool { return t.serving }

// Method looks up a declared method by its Go-side key, inherited members
// included.
func (t *Table) Method(key string) (*member.Method, bool) {
	m, ok := t.methods[key]
	return m, ok
}

// Property looks up a declared property by its Go-side key.
func (t *Table) Property(key string) (*member.Property, bool) {
	p, ok := t.properties[key]
	return p, ok
}

// Signal looks up a declared signal by its Go-side key.
func (t *Table) Signal(key string) (*member.Signal, bool) {
	s, ok := t.signals[key]
	return s, ok
}

// MustBuild is Build for known-good declarations, typically package-level
// tables; it panics on a declaration error.
func MustBuild(spec Spec) *Table {
	t, err := Build(spec)
	if err != nil {
		panic(err)
	}
	return t
}

// Build validates and merges an interface declaration into a Table. It
// stamps every newly declared descriptor with the interface name and
// serving flag, merges the inherited member sets, and rejects any
// redeclaration of an inherited key that does not go through
// Spec.Overrides.
func Build(spec Spec) (*Table, error) {
	if spec.InterfaceName != "" {
		if err := names.ValidateInterfaceName(spec.InterfaceName); err != nil {
			return nil, &DeclarationError{Interface: spec.InterfaceName, Reason: err.Error()}
		}
	}

	t := &Table{
		ifaceName:  spec.InterfaceName,
		serving:    spec.Serving,
		methods:    make(map[string]*member.Method),
		properties: make(map[string]*member.Property),
		signals:    make(map[string]*member.Signal),
		declared:   make(map[string]struct{}),
	}

	inherited := make(map[string]struct{})
	for _, base := range spec.Extends {
		for key, m := range base.methods {
			t.methods[key] = m
		}
		for key, p := range base.properties {
			t.properties[key] = p
		}
		for key, s := range base.signals {
			t.signals[key] = s
		}
		for key := range base.declared {
			inherited[key] = struct{}{}
			t.declared[key] = struct{}{}
		}
	}

	declare := func(key string) error {
		if _, clash := inherited[key]; clash {
			return &DeclarationError{Interface: spec.InterfaceName, Key: key,
				Reason: "redeclares an inherited member; use Overrides to replace a method implementation"}
		}
		if _, dup := t.declared[key]; dup {
			return &DeclarationError{Interface: spec.InterfaceName, Key: key,
				Reason: "declared twice"}
		}
		t.declared[key] = struct{}{}
		return nil
	}

	stamp := func(key string, s interface {
		SetOwner(string, bool) error
	}) error {
		if err := s.SetOwner(spec.InterfaceName, spec.Serving); err != nil {
			return &DeclarationError{Interface: spec.InterfaceName, Key: key, Reason: err.Error()}
		}
		return nil
	}

	for _, key := range sortedKeys(spec.Methods) {
		m := spec.Methods[key]
		if err := declare(key); err != nil {
			return nil, err
		}
		if m.Handler == nil {
			return nil, &DeclarationError{Interface: spec.InterfaceName, Key: key, Reason: "method has no handler"}
		}
		if m.Name == "" {
			m.Name = names.ToWire(key)
		}
		if err := validateMethod(spec.InterfaceName, key, m); err != nil {
			return nil, err
		}
		if err := stamp(key, m); err != nil {
			return nil, err
		}
		t.methods[key] = m
	}

	for _, key := range sortedKeys(spec.Properties) {
		p := spec.Properties[key]
		if err := declare(key); err != nil {
			return nil, err
		}
		if p.Get == nil {
			return nil, &DeclarationError{Interface: spec.InterfaceName, Key: key, Reason: "property has no getter"}
		}
		if p.Name == "" {
			p.Name = names.ToWire(key)
		}
		if err := names.ValidateMemberName(p.Name); err != nil {
			return nil, &DeclarationError{Interface: spec.InterfaceName, Key: key, Reason: err.Error()}
		}
		if n, err := bus.Arity(p.Signature); err != nil || n != 1 {
			return nil, &DeclarationError{Interface: spec.InterfaceName, Key: key,
				Reason: fmt.Sprintf("property signature %q is not a single complete type", p.Signature)}
		}
		if err := stamp(key, p); err != nil {
			return nil, err
		}
		t.properties[key] = p
	}

	for _, key := range sortedKeys(spec.Signals) {
		s := spec.Signals[key]
		if err := declare(key); err != nil {
			return nil, err
		}
		if s.Name == "" {
			s.Name = names.ToWire(key)
		}
		if err := names.ValidateMemberName(s.Name); err != nil {
			return nil, &DeclarationError{Interface: spec.InterfaceName, Key: key, Reason: err.Error()}
		}
		if _, err := bus.SplitSignature(s.Signature); err != nil {
			return nil, &DeclarationError{Interface: spec.InterfaceName, Key: key, Reason: err.Error()}
		}
		if err := stamp(key, s); err != nil {
			return nil, err
		}
		t.signals[key] = s
	}

	for _, key := range sortedKeys(spec.Overrides) {
		h := spec.Overrides[key]
		if _, ok := inherited[key]; !ok {
			return nil, &DeclarationError{Interface: spec.InterfaceName, Key: key,
				Reason: "overrides a member that no base interface declares"}
		}
		base, ok := t.methods[key]
		if !ok {
			return nil, &DeclarationError{Interface: spec.InterfaceName, Key: key,
				Reason: "only methods can be overridden"}
		}
		if h == nil {
			return nil, &DeclarationError{Interface: spec.InterfaceName, Key: key,
				Reason: "override has no handler"}
		}
		t.methods[key] = base.WithHandler(h)
	}

	return t, nil
}

func validateMethod(iface, key string, m *member.Method) error {
	if err := names.ValidateMemberName(m.Name); err != nil {
		return &DeclarationError{Interface: iface, Key: key, Reason: err.Error()}
	}
	if _, err := bus.SplitSignature(m.InputSignature); err != nil {
		return &DeclarationError{Interface: iface, Key: key, Reason: err.Error()}
	}
	if _, err := bus.SplitSignature(m.OutputSignature); err != nil {
		return &DeclarationError{Interface: iface, Key: key, Reason: err.Error()}
	}
	seenDefault := false
	for i := range m.Args {
		if m.Args[i].Default != nil {
			seenDefault = true
		} else if seenDefault {
			return &DeclarationError{Interface: iface, Key: key,
				Reason: fmt.Sprintf("parameter %q without default follows a defaulted parameter", m.Args[i].Name)}
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
