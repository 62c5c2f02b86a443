// Package names converts Go-side member identifiers to the D-Bus wire
// naming convention and validates wire names against the bus naming grammar.
package names

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/godbus/dbus/v5"
)

// maxNameLength is the bus limit on interface, member and bus names.
const maxNameLength = 255

// InvalidNameError reports a wire name that violates the bus naming grammar.
type InvalidNameError struct {
	Kind   string // "interface", "member", "bus", "object path"
	Name   string
	Reason string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("names: invalid %s name %q: %s", e.Kind, e.Name, e.Reason)
}

// ToWire converts a snake_case identifier to the CapitalizedCamelCase wire
// convention: the first rune is uppercased and every underscore is dropped,
// uppercasing the rune that follows it. Leading and consecutive underscores
// therefore collapse ("_foo" -> "Foo", "a__b" -> "AB").
func ToWire(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	upperNext := true
	for _, r := range name {
		if r == '_' {
			upperNext = true
			continue
		}
		if upperNext {
			b.WriteRune(unicode.ToUpper(r))
			upperNext = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isElementStart(c byte) bool {
	return c == '_' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func isElementByte(c byte) bool {
	return isElementStart(c) || (c >= '0' && c <= '9')
}

// ValidateMemberName checks a method, property or signal wire name.
func ValidateMemberName(name string) error {
	if name == "" {
		return &InvalidNameError{"member", name, "empty"}
	}
	if len(name) > maxNameLength {
		return &InvalidNameError{"member", name, "longer than 255 bytes"}
	}
	if !isElementStart(name[0]) {
		return &InvalidNameError{"member", name, "must not start with a digit"}
	}
	for i := 0; i < len(name); i++ {
		if !isElementByte(name[i]) {
			return &InvalidNameError{"member", name, fmt.Sprintf("illegal character %q", name[i])}
		}
	}
	return nil
}

// ValidateInterfaceName checks an interface wire name: two or more
// dot-separated elements, each a valid member-style element.
func ValidateInterfaceName(name string) error {
	if name == "" {
		return &InvalidNameError{"interface", name, "empty"}
	}
	if len(name) > maxNameLength {
		return &InvalidNameError{"interface", name, "longer than 255 bytes"}
	}
	elems := strings.Split(name, ".")
	if len(elems) < 2 {
		return &InvalidNameError{"interface", name, "needs at least two dot-separated elements"}
	}
	for _, elem := range elems {
		if elem == "" {
			return &InvalidNameError{"interface", name, "empty element"}
		}
		if !isElementStart(elem[0]) {
			return &InvalidNameError{"interface", name, "element must not start with a digit"}
		}
		for i := 0; i < len(elem); i++ {
			if !isElementByte(elem[i]) {
				return &InvalidNameError{"interface", name, fmt.Sprintf("illegal character %q", elem[i])}
			}
		}
	}
	return nil
}

// ValidateBusName checks a peer identity: either a unique name (":1.42") or
// a well-known name. Well-known name elements additionally allow '-'.
func ValidateBusName(name string) error {
	if name == "" {
		return &InvalidNameError{"bus", name, "empty"}
	}
	if len(name) > maxNameLength {
		return &InvalidNameError{"bus", name, "longer than 255 bytes"}
	}
	unique := name[0] == ':'
	body := name
	if unique {
		body = name[1:]
	}
	elems := strings.Split(body, ".")
	if len(elems) < 2 {
		return &InvalidNameError{"bus", name, "needs at least two dot-separated elements"}
	}
	for _, elem := range elems {
		if elem == "" {
			return &InvalidNameError{"bus", name, "empty element"}
		}
		if !unique && !isElementStart(elem[0]) && elem[0] != '-' {
			return &InvalidNameError{"bus", name, "element must not start with a digit"}
		}
		for i := 0; i < len(elem); i++ {
			c := elem[i]
			if !isElementByte(c) && c != '-' {
				return &InvalidNameError{"bus", name, fmt.Sprintf("illegal character %q", c)}
			}
		}
	}
	return nil
}

// ValidateObjectPath delegates to the bus engine's object path grammar.
func ValidateObjectPath(path string) error {
	if !dbus.ObjectPath(path).IsValid() {
		return &InvalidNameError{"object path", path, "not a valid object path"}
	}
	return nil
}
