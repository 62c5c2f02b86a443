package bus

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

// SplitSignature splits a wire signature into its top-level complete types,
// e.g. "sa{sv}i" -> ["s", "a{sv}", "i"]. The signature is validated through
// the bus engine first.
func SplitSignature(sig string) ([]string, error) {
	if sig == "" {
		return nil, nil
	}
	if _, err := dbus.ParseSignature(sig); err != nil {
		return nil, err
	}
	var types []string
	for i := 0; i < len(sig); {
		end, err := completeType(sig, i)
		if err != nil {
			return nil, err
		}
		types = append(types, sig[i:end])
		i = end
	}
	return types, nil
}

// Arity returns the number of top-level complete types in sig.
func Arity(sig string) (int, error) {
	types, err := SplitSignature(sig)
	if err != nil {
		return 0, err
	}
	return len(types), nil
}

// completeType returns the index just past the complete type starting at i.
func completeType(sig string, i int) (int, error) {
	switch c := sig[i]; c {
	case 'y', 'b', 'n', 'q', 'i', 'u', 'x', 't', 'd', 'h', 's', 'o', 'g', 'v':
		return i + 1, nil
	case 'a':
		if i+1 >= len(sig) {
			return 0, fmt.Errorf("bus: truncated array in signature %q", sig)
		}
		return completeType(sig, i+1)
	case '(':
		return matchBracket(sig, i, '(', ')')
	case '{':
		return matchBracket(sig, i, '{', '}')
	default:
		return 0, fmt.Errorf("bus: unexpected type code %q in signature %q", c, sig)
	}
}

func matchBracket(sig string, i int, open, close byte) (int, error) {
	depth := 0
	for j := i; j < len(sig); j++ {
		switch sig[j] {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return j + 1, nil
			}
		}
	}
	return 0, fmt.Errorf("bus: unbalanced %q in signature %q", open, sig)
}
