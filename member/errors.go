package member

import "fmt"

// ArgumentError reports a method call whose positional argument list could
// not be completed from positional, keyword and default values.
type ArgumentError struct {
	Method string
	Arg    string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("member: call to %s: no value for argument %q", e.Method, e.Arg)
}

// NoSetterError reports a set attempted on a read-only property.
type NoSetterError struct {
	Property string
}

func (e *NoSetterError) Error() string {
	return fmt.Sprintf("member: property %s has no setter", e.Property)
}
