package member

import (
	"context"
)

// Property is the static declaration of one bus-exposed property. A nil Set
// marks it read-only. Shared read-only after the table builder stamps it.
type Property struct {
	stamp

	Name      string
	Signature string
	Get       Getter
	Set       Setter
	Flags     Flags
}

// Bind pairs the descriptor with an owning instance.
func (p *Property) Bind(inst Instance) *BoundProperty {
	return &BoundProperty{prop: p, inst: inst}
}

// BoundProperty is a Property paired with one instance.
type BoundProperty struct {
	prop *Property
	inst Instance
}

// Descriptor returns the shared property declaration.
func (b *BoundProperty) Descriptor() *Property { return b.prop }

// GetLocal runs the getter against the local receiver regardless of binding
// mode. It backs the server-side Properties dispatch; application code
// should prefer Get, which is uniform across local and proxy instances.
func (b *BoundProperty) GetLocal() (any, error) {
	return b.prop.Get(b.inst.Receiver())
}

// SetLocal runs the setter against the local receiver, failing with a
// NoSetterError on read-only properties.
func (b *BoundProperty) SetLocal(value any) error {
	if b.prop.Set == nil {
		return &NoSetterError{Property: b.prop.Name}
	}
	return b.prop.Set(b.inst.Receiver(), value)
}

// Get reads the property: a remote round trip when proxy-bound, the local
// getter otherwise.
func (b *BoundProperty) Get(ctx context.Context) (any, error) {
	busConn, peer, path, ok := b.inst.ProxyTarget()
	if !ok {
		return b.GetLocal()
	}
	return busConn.GetProperty(ctx, peer, path, b.prop.InterfaceName(), b.prop.Name)
}

// Set writes the property: a variant-wrapped remote write when proxy-bound,
// the local setter otherwise with the same NoSetterError failure.
func (b *BoundProperty) Set(ctx context.Context, value any) error {
	busConn, peer, path, ok := b.inst.ProxyTarget()
	if !ok {
		return b.SetLocal(value)
	}
	return busConn.SetProperty(ctx, peer, path,
		b.prop.InterfaceName(), b.prop.Name, b.prop.Signature, value)
}
